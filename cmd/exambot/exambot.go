// Package exambotcmder
package exambotcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/cardea-mcp/ExamPrepAgent/cmd/exambot/chat"
	configcmder "github.com/cardea-mcp/ExamPrepAgent/cmd/exambot/config"
	seedcmder "github.com/cardea-mcp/ExamPrepAgent/cmd/exambot/seed"
	servecmder "github.com/cardea-mcp/ExamPrepAgent/cmd/exambot/serve"
	versioncmder "github.com/cardea-mcp/ExamPrepAgent/cmd/version"
)

const exambotLongDesc string = `Exambot is a conversational study assistant backed by a question dataset.

Run services using:
  exambot serve        Run the HTTP API and MCP tool server
  exambot chat         Chat with the assistant from the terminal
  exambot seed         Load a question dataset into the vector store`

const exambotShortDesc string = "Exambot - Conversational Study Assistant"

func NewExambotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exambot",
		Short: exambotShortDesc,
		Long:  exambotLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .exambot/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(seedcmder.NewSeedCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
