// Package servecmder provides the serve command that runs the HTTP API and
// MCP tool server.
package servecmder

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cardea-mcp/ExamPrepAgent/api"
	mcpapi "github.com/cardea-mcp/ExamPrepAgent/api/mcp"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/agent"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/audio"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/audio/gtts"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/audio/whisper"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/config"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/dotdir"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/embeddings/ollama"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/eventstream"
	kafkastream "github.com/cardea-mcp/ExamPrepAgent/pkg/eventstream/kafka"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/eventstream/nop"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/llm/provider/openai"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/logger"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/search"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/store"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/store/inmemory"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/store/postgres"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/store/sqlite"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/toolexec"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/toolexec/local"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/toolexec/mcptool"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/vector/qdrant"
)

// audioBodyLimit caps audio upload size. A 60s 16-bit stereo 48kHz WAV is
// about 11.5MB, so 16MB leaves headroom for headers and padding.
const audioBodyLimit = 16 << 20

const serveLongDesc string = `Run the exambot server.

Serves the HTTP API (users, sessions, chat messages, audio turns) and the
MCP tool server on one listener.

Examples:
  exambot serve
  exambot serve --listen :8000 --store sqlite
  exambot serve --tools mcp --mcp-target http://localhost:8000/mcp`

const serveShortDesc string = "Run the exambot API and MCP tool server"

type ServeCommander struct {
	listen string

	storeProvider string
	sqlitePath    string
	postgresDSN   string

	modelTarget string
	model       string

	vectorTarget string
	collection   string

	embeddingTarget string
	embeddingModel  string

	toolsProvider string
	mcpTarget     string

	maxRounds  uint
	windowSize uint

	debug  bool
	v      *viper.Viper
	logger *zap.Logger
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, fs, []string{
				config.FlagListen,
				config.FlagStoreProvider,
				config.FlagSQLitePath,
				config.FlagPostgresDSN,
				config.FlagModelTarget,
				config.FlagModel,
				config.FlagVectorTarget,
				config.FlagCollection,
				config.FlagEmbeddingTgt,
				config.FlagEmbeddingMdl,
				config.FlagToolsProvider,
				config.FlagMCPTarget,
				config.FlagMaxRounds,
				config.FlagWindowSize,
			})

			cmder.v = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.applyViper()
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, fs, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, fs, config.FlagStoreProvider, &cmder.storeProvider)
	config.AddStringFlag(cmd, fs, config.FlagSQLitePath, &cmder.sqlitePath)
	config.AddStringFlag(cmd, fs, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, fs, config.FlagModelTarget, &cmder.modelTarget)
	config.AddStringFlag(cmd, fs, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, fs, config.FlagVectorTarget, &cmder.vectorTarget)
	config.AddStringFlag(cmd, fs, config.FlagCollection, &cmder.collection)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingMdl, &cmder.embeddingModel)
	config.AddStringFlag(cmd, fs, config.FlagToolsProvider, &cmder.toolsProvider)
	config.AddStringFlag(cmd, fs, config.FlagMCPTarget, &cmder.mcpTarget)
	config.AddUintFlag(cmd, fs, config.FlagMaxRounds, &cmder.maxRounds)
	config.AddUintFlag(cmd, fs, config.FlagWindowSize, &cmder.windowSize)

	return cmd
}

// applyViper pulls the resolved values out of viper so env vars and the
// config file take effect for flags the user didn't pass.
func (c *ServeCommander) applyViper() {
	c.listen = c.v.GetString("api.listen")
	c.storeProvider = c.v.GetString("store.provider")
	c.sqlitePath = c.v.GetString("store.sqlite_path")
	c.postgresDSN = c.v.GetString("store.postgres_dsn")
	c.modelTarget = c.v.GetString("model.target")
	c.model = c.v.GetString("model.model")
	c.vectorTarget = c.v.GetString("vector.target")
	c.collection = c.v.GetString("vector.collection")
	c.embeddingTarget = c.v.GetString("embedding.target")
	c.embeddingModel = c.v.GetString("embedding.model")
	c.toolsProvider = c.v.GetString("tools.provider")
	c.mcpTarget = c.v.GetString("tools.mcp_target")
	c.maxRounds = c.v.GetUint("agent.max_rounds")
	c.windowSize = c.v.GetUint("agent.window_size")
}

func (c *ServeCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	// Context store
	storer, err := c.createStore()
	if err != nil {
		return err
	}
	defer func() { _ = storer.Close() }()

	// Knowledge stack: embedder + vector store + searcher
	embedder, err := ollama.NewEmbedder(ollama.EmbedderConfig{
		BaseURL: c.embeddingTarget,
		Model:   c.embeddingModel,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	host, port, err := splitHostPort(c.vectorTarget)
	if err != nil {
		return fmt.Errorf("parsing vector target: %w", err)
	}
	vecDriver, err := qdrant.NewDriver(ctx, qdrant.Config{
		Host:           host,
		Port:           port,
		CollectionName: c.collection,
		Dimensions:     uint64(c.v.GetUint("vector.dimensions")),
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating vector driver: %w", err)
	}
	defer func() { _ = vecDriver.Close() }()

	searcher := search.NewSearcher(embedder, vecDriver, c.logger)

	// Completion backend
	completer := openai.NewCompleter(openai.Config{
		BaseURL: c.modelTarget,
		APIKey:  c.v.GetString("model.api_key"),
	}, c.logger)

	// Tool execution backend
	invoker, closeInvoker, err := c.createInvoker(ctx, searcher)
	if err != nil {
		return err
	}
	defer closeInvoker()

	// Event stream
	publisher, err := c.createPublisher()
	if err != nil {
		return err
	}
	defer func() { _ = publisher.Close() }()

	// Audio turn adapter
	processor, err := c.createAudioProcessor()
	if err != nil {
		return err
	}

	orchestrator, err := agent.NewOrchestrator(agent.Config{
		Store:      storer,
		Completer:  completer,
		Invoker:    invoker,
		Publisher:  publisher,
		Model:      c.model,
		Tools:      toolexec.DefaultTools(),
		MaxRounds:  int(c.maxRounds),
		WindowSize: int(c.windowSize),
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}

	mcpServer, err := mcpapi.NewServer(mcpapi.Config{
		Searcher: searcher,
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	apiServer := api.NewServer(api.Config{
		ListenAddr: c.listen,
		BodyLimit:  audioBodyLimit,
	}, storer, orchestrator, processor, mcpServer.Handler(), c.logger)

	c.logger.Info("starting exambot",
		zap.String("listen", c.listen),
		zap.String("store", c.storeProvider),
		zap.String("model", c.model),
		zap.String("tools", c.toolsProvider),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return apiServer.Shutdown()
	}
}

func (c *ServeCommander) createStore() (store.Driver, error) {
	switch c.storeProvider {
	case "memory":
		c.logger.Info("using in-memory context store")
		return inmemory.NewDriver(), nil

	case "sqlite", "":
		path := c.sqlitePath
		if path == "" {
			dir, err := dotdir.NewManager().Target("")
			if err != nil {
				return nil, fmt.Errorf("resolving sqlite path: %w", err)
			}
			path = filepath.Join(dir, "exambot.db")
		}
		driver, err := sqlite.NewDriver(path)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite store: %w", err)
		}
		c.logger.Info("using sqlite context store", zap.String("path", path))
		return driver, nil

	case "postgres":
		if c.postgresDSN == "" {
			return nil, fmt.Errorf("postgres store requires a connection string")
		}
		driver, err := postgres.NewDriver(context.Background(), c.postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("creating postgres store: %w", err)
		}
		c.logger.Info("using postgres context store")
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown store provider %q (available: memory, sqlite, postgres)", c.storeProvider)
	}
}

func (c *ServeCommander) createInvoker(ctx context.Context, searcher *search.Searcher) (toolexec.Invoker, func(), error) {
	switch c.toolsProvider {
	case "local", "":
		return local.NewInvoker(searcher, c.logger), func() {}, nil

	case "mcp":
		invoker, err := mcptool.NewInvoker(ctx, mcptool.Config{
			Endpoint: c.mcpTarget,
		}, c.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to MCP tool server: %w", err)
		}
		return invoker, func() { _ = invoker.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown tools provider %q (available: local, mcp)", c.toolsProvider)
	}
}

func (c *ServeCommander) createPublisher() (eventstream.Publisher, error) {
	if !c.v.GetBool("events.enabled") {
		return nop.NewPublisher(), nil
	}

	brokers := c.v.GetStringSlice("events.brokers")
	return kafkastream.NewPublisher(kafkastream.Config{
		Brokers: brokers,
		Topic:   c.v.GetString("events.topic"),
	}, c.logger)
}

func (c *ServeCommander) createAudioProcessor() (*audio.Processor, error) {
	transcriber := whisper.NewTranscriber(whisper.Config{
		BaseURL: c.v.GetString("audio.stt_target"),
		APIKey:  c.v.GetString("model.api_key"),
		Model:   c.v.GetString("audio.stt_model"),
	})

	synthesizer := gtts.NewSynthesizer(gtts.Config{
		BaseURL: c.v.GetString("audio.tts_target"),
		APIKey:  c.v.GetString("model.api_key"),
		Model:   c.v.GetString("audio.tts_model"),
		Voice:   c.v.GetString("audio.tts_voice"),
	})

	maxSeconds := c.v.GetUint("audio.max_seconds")
	return audio.NewProcessor(audio.Config{
		Transcriber: transcriber,
		Synthesizer: synthesizer,
		MaxDuration: time.Duration(maxSeconds) * time.Second,
	}, c.logger)
}

func splitHostPort(target string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return host, port, nil
}
