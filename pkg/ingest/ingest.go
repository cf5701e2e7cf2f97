// Package ingest loads question/answer datasets from disk, embeds each
// question, and upserts the records into the vector store. Embedding is the
// slow part, so records are processed by a bounded worker group and written
// in batches.
package ingest

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/embeddings"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/vector"
)

const (
	defaultNumWorkers = 4
	defaultBatchSize  = 64
)

// Record is one dataset entry before embedding.
type Record struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Topic      string `json:"topic,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// Config is the configuration options for an Ingestor.
type Config struct {
	// Embedder generates the question embeddings. Required.
	Embedder embeddings.Embedder

	// Driver is the vector store the embedded records are written to. Required.
	Driver vector.Driver

	// NumWorkers bounds concurrent embedding calls (defaults to 4).
	NumWorkers int

	// BatchSize is how many embedded records are upserted per write
	// (defaults to 64).
	BatchSize int

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Ingestor embeds dataset records and stores them.
type Ingestor struct {
	embedder   embeddings.Embedder
	driver     vector.Driver
	numWorkers int
	batchSize  int
	logger     *zap.Logger
}

// NewIngestor validates the config and creates a new Ingestor.
func NewIngestor(c Config) (*Ingestor, error) {
	if c.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if c.Driver == nil {
		return nil, fmt.Errorf("vector driver is required")
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return &Ingestor{
		embedder:   c.Embedder,
		driver:     c.Driver,
		numWorkers: c.NumWorkers,
		batchSize:  c.BatchSize,
		logger:     c.Logger,
	}, nil
}

// Run embeds every record and upserts the results. Records with an empty
// question are skipped. Returns the number of records stored.
func (in *Ingestor) Run(ctx context.Context, records []Record) (int, error) {
	embedded := make([]*vector.Record, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.numWorkers)

	for i, rec := range records {
		if strings.TrimSpace(rec.Question) == "" {
			in.logger.Warn("skipping record with empty question", zap.Int("index", i))
			continue
		}

		g.Go(func() error {
			embedding, err := in.embedder.Embed(gctx, rec.Question)
			if err != nil {
				return fmt.Errorf("embedding record %d: %w", i, err)
			}
			embedded[i] = &vector.Record{
				ID:         uuid.New().String(),
				Question:   rec.Question,
				Answer:     rec.Answer,
				Topic:      rec.Topic,
				Difficulty: rec.Difficulty,
				Embedding:  embedding,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	stored := 0
	batch := make([]vector.Record, 0, in.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := in.driver.Upsert(ctx, batch); err != nil {
			return fmt.Errorf("upserting batch: %w", err)
		}
		stored += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, rec := range embedded {
		if rec == nil {
			continue
		}
		batch = append(batch, *rec)
		if len(batch) >= in.batchSize {
			if err := flush(); err != nil {
				return stored, err
			}
		}
	}
	if err := flush(); err != nil {
		return stored, err
	}

	in.logger.Info("dataset ingested",
		zap.Int("records", len(records)),
		zap.Int("stored", stored),
	)
	return stored, nil
}

// LoadFile reads a dataset from path, dispatching on the file extension.
// JSON files hold an array of records; CSV files need a header row naming at
// least question and answer columns.
func LoadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSON(f)
	case ".csv":
		return loadCSV(f)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", filepath.Ext(path))
	}
}

func loadJSON(r io.Reader) ([]Record, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding dataset: %w", err)
	}
	return records, nil
}

func loadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := cols["question"]; !ok {
		return nil, fmt.Errorf("csv header missing question column")
	}
	if _, ok := cols["answer"]; !ok {
		return nil, fmt.Errorf("csv header missing answer column")
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row: %w", err)
		}
		records = append(records, Record{
			Question:   field(row, "question"),
			Answer:     field(row, "answer"),
			Topic:      field(row, "topic"),
			Difficulty: field(row, "difficulty"),
		})
	}
	return records, nil
}
