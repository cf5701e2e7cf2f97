// Package chatcmder provides the chat command for talking to a running
// exambot server from the terminal.
package chatcmder

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/dotdir"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/logger"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("exambot> ")
	dimStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

const chatLongDesc string = `Start an interactive chat session against a running exambot server.

The active user and session are remembered in the .exambot/ directory, so
re-running "exambot chat" resumes the previous conversation. Use --new to
start a fresh session.

Examples:
  exambot chat
  exambot chat --user alice
  exambot chat --new
  exambot chat --api-target http://localhost:8000`

const chatShortDesc string = "Interactive chat with the study assistant"

type chatCommander struct {
	apiTarget string
	userName  string
	fresh     bool
	debug     bool

	client *http.Client
	logger *zap.Logger
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.apiTarget, "api-target", "a", "http://localhost:8000", "Exambot API server URL")
	cmd.Flags().StringVarP(&cmder.userName, "user", "u", "student", "User name to chat as")
	cmd.Flags().BoolVarP(&cmder.fresh, "new", "n", false, "Start a new session instead of resuming")

	return cmd
}

type userResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type sessionResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type messageResponse struct {
	Reply   string `json:"reply"`
	Rounds  int    `json:"rounds"`
	Aborted bool   `json:"aborted"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *chatCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	c.client = &http.Client{Timeout: 5 * time.Minute}

	ddm := dotdir.NewManager()
	state, err := c.resolveSession(ddm)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("  %s\n\n", dimStyle.Render(fmt.Sprintf("chatting as %s (session %s), type exit to quit", state.UserName, state.SessionID)))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			break
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "exit" || text == "quit" {
			break
		}

		reply, err := c.sendMessage(state.SessionID, text)
		if err != nil {
			fmt.Printf("  %s\n", dimStyle.Render("error: "+err.Error()))
			continue
		}

		fmt.Printf("%s%s\n\n", assistantPrompt, reply.Reply)
	}

	return scanner.Err()
}

// resolveSession finds or creates the user and session to chat in, and
// persists the result so the next invocation resumes it.
func (c *chatCommander) resolveSession(ddm *dotdir.Manager) (*dotdir.SessionState, error) {
	state, err := ddm.LoadSessionState("")
	if err != nil {
		return nil, err
	}

	if state != nil && state.UserName == c.userName && !c.fresh {
		return state, nil
	}

	user, err := c.ensureUser()
	if err != nil {
		return nil, err
	}

	session, err := c.createSession(user.ID)
	if err != nil {
		return nil, err
	}

	state = &dotdir.SessionState{
		UserName:  user.Name,
		UserID:    user.ID,
		SessionID: session.ID,
	}
	if err := ddm.SaveSessionState(state, ""); err != nil {
		return nil, err
	}

	return state, nil
}

func (c *chatCommander) ensureUser() (*userResponse, error) {
	body, _ := json.Marshal(map[string]string{"name": c.userName})
	user := &userResponse{}
	if err := c.postJSON("/api/users", body, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return user, nil
}

func (c *chatCommander) createSession(userID string) (*sessionResponse, error) {
	session := &sessionResponse{}
	if err := c.postJSON("/api/users/"+userID+"/sessions", []byte("{}"), session); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return session, nil
}

func (c *chatCommander) sendMessage(sessionID, text string) (*messageResponse, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}

	reply := &messageResponse{}
	if err := c.postJSON("/api/sessions/"+sessionID+"/messages", body, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

func (c *chatCommander) postJSON(path string, body []byte, out any) error {
	resp, err := c.client.Post(c.apiTarget+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	// 502 still carries a committed fallback reply; decode it like a
	// success so the apology is shown.
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusBadGateway {
		var apiErr errorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.Unmarshal(data, out)
}
