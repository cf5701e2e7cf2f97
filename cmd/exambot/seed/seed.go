// Package seedcmder provides the seed command for loading a question
// dataset into the vector store.
package seedcmder

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/cliui"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/config"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/embeddings/ollama"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/ingest"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/logger"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/vector/qdrant"
)

const seedLongDesc string = `Load a question/answer dataset into the vector store.

The dataset is a JSON array or a CSV file with question, answer, and optional
topic and difficulty columns. Each question is embedded and upserted into the
configured qdrant collection.

Examples:
  exambot seed ./datasets/kubernetes_qa.json
  exambot seed ./datasets/kubernetes_qa.csv --collection exam_qa
  exambot seed ./qa.json --workers 8`

const seedShortDesc string = "Load a question dataset into the vector store"

type seedCommander struct {
	vectorTarget    string
	collection      string
	embeddingTarget string
	embeddingModel  string
	workers         uint

	debug bool
	v     *viper.Viper
	path  string
}

func NewSeedCmd() *cobra.Command {
	cmder := &seedCommander{}
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "seed <dataset>",
		Short: seedShortDesc,
		Long:  seedLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}

			config.BindRegisteredFlags(v, cmd, fs, []string{
				config.FlagVectorTarget,
				config.FlagCollection,
				config.FlagEmbeddingTgt,
				config.FlagEmbeddingMdl,
			})

			cmder.v = v
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			cmder.path = args[0]
			cmder.vectorTarget = cmder.v.GetString("vector.target")
			cmder.collection = cmder.v.GetString("vector.collection")
			cmder.embeddingTarget = cmder.v.GetString("embedding.target")
			cmder.embeddingModel = cmder.v.GetString("embedding.model")

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, fs, config.FlagVectorTarget, &cmder.vectorTarget)
	config.AddStringFlag(cmd, fs, config.FlagCollection, &cmder.collection)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, fs, config.FlagEmbeddingMdl, &cmder.embeddingModel)
	cmd.Flags().UintVarP(&cmder.workers, "workers", "w", 4, "Concurrent embedding workers")

	return cmd
}

func (c *seedCommander) run(ctx context.Context) error {
	log := logger.NewLogger(c.debug)
	defer func() { _ = log.Sync() }()

	var records []ingest.Record
	if err := cliui.Step(os.Stdout, "Loading dataset", func() error {
		var loadErr error
		records, loadErr = ingest.LoadFile(c.path)
		return loadErr
	}); err != nil {
		return err
	}

	host, portStr, err := net.SplitHostPort(c.vectorTarget)
	if err != nil {
		return fmt.Errorf("parsing vector target: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", portStr, err)
	}

	driver, err := qdrant.NewDriver(ctx, qdrant.Config{
		Host:           host,
		Port:           port,
		CollectionName: c.collection,
		Dimensions:     uint64(c.v.GetUint("vector.dimensions")),
	}, log)
	if err != nil {
		return fmt.Errorf("creating vector driver: %w", err)
	}
	defer func() { _ = driver.Close() }()

	embedder, err := ollama.NewEmbedder(ollama.EmbedderConfig{
		BaseURL: c.embeddingTarget,
		Model:   c.embeddingModel,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}

	ingestor, err := ingest.NewIngestor(ingest.Config{
		Embedder:   embedder,
		Driver:     driver,
		NumWorkers: int(c.workers),
		Logger:     log,
	})
	if err != nil {
		return err
	}

	var stored int
	if err := cliui.Step(os.Stdout, "Embedding and storing records", func() error {
		var runErr error
		stored, runErr = ingestor.Run(ctx, records)
		return runErr
	}); err != nil {
		return err
	}

	fmt.Printf("\n  %s Seeded %s questions into %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(strconv.Itoa(stored)),
		cliui.DimStyle.Render(c.collection),
	)
	return nil
}
