// Package qdrant provides a Qdrant vector database driver implementation.
package qdrant

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for Q/A embeddings.
	DefaultCollectionName = "exam_qa"

	// DefaultDimensions matches all-MiniLM-L6-v2 style sentence embeddings.
	DefaultDimensions = 384
)

// Driver implements vector.Driver using Qdrant's gRPC API.
type Driver struct {
	client         *qdrant.Client
	collectionName string
	logger         *zap.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Host is the Qdrant host (e.g. "localhost").
	Host string

	// Port is the Qdrant gRPC port (usually 6334).
	Port int

	// CollectionName defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the embedding vector size.
	// Defaults to DefaultDimensions if zero.
	Dimensions uint64
}

// NewDriver creates a new Qdrant vector driver and ensures the collection
// exists with a cosine-distance vector config.
func NewDriver(ctx context.Context, c Config, logger *zap.Logger) (*Driver, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	dims := c.Dimensions
	if dims == 0 {
		dims = DefaultDimensions
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: c.Host,
		Port: c.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}

	d := &Driver{
		client:         client,
		collectionName: collectionName,
		logger:         logger,
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return nil, fmt.Errorf("checking collection %q: %w", collectionName, err)
	}

	if !exists {
		err = client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collectionName,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     dims,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return nil, fmt.Errorf("creating collection %q: %w", collectionName, err)
		}
	}

	logger.Info("connected to Qdrant",
		zap.String("host", c.Host),
		zap.String("collection", collectionName),
		zap.Uint64("dimensions", dims),
	)

	return d, nil
}

// Upsert stores records, replacing any with the same ID.
func (d *Driver) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, rec := range records {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(rec.ID),
			Vectors: qdrant.NewVectors(rec.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"question":   rec.Question,
				"answer":     rec.Answer,
				"topic":      rec.Topic,
				"difficulty": rec.Difficulty,
			}),
		})
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}

	d.logger.Debug("upserted records", zap.Int("count", len(points)))
	return nil
}

// Query finds the topK records most similar to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 5
	}

	limit := uint64(topK)
	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying collection %q: %w", d.collectionName, err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, point := range points {
		results = append(results, vector.QueryResult{
			Record: recordFromPayload(pointID(point.Id), point.Payload),
			Score:  point.Score,
		})
	}
	return results, nil
}

// Sample returns up to limit records matching the filter via a scroll.
func (d *Driver) Sample(ctx context.Context, filter vector.Filter, limit int) ([]vector.Record, error) {
	if limit <= 0 {
		limit = 32
	}

	var must []*qdrant.Condition
	if filter.Topic != "" {
		must = append(must, qdrant.NewMatch("topic", filter.Topic))
	}
	if filter.Difficulty != "" {
		must = append(must, qdrant.NewMatch("difficulty", filter.Difficulty))
	}

	scroll := &qdrant.ScrollPoints{
		CollectionName: d.collectionName,
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if len(must) > 0 {
		scroll.Filter = &qdrant.Filter{Must: must}
	}

	points, err := d.client.Scroll(ctx, scroll)
	if err != nil {
		return nil, fmt.Errorf("scrolling collection %q: %w", d.collectionName, err)
	}

	records := make([]vector.Record, 0, len(points))
	for _, point := range points {
		records = append(records, recordFromPayload(pointID(point.Id), point.Payload))
	}
	return records, nil
}

// Count returns the number of stored records.
func (d *Driver) Count(ctx context.Context) (uint64, error) {
	count, err := d.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: d.collectionName,
	})
	if err != nil {
		return 0, fmt.Errorf("counting collection %q: %w", d.collectionName, err)
	}
	return count, nil
}

// Close closes the underlying gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

func recordFromPayload(id string, payload map[string]*qdrant.Value) vector.Record {
	rec := vector.Record{ID: id}
	if v, ok := payload["question"]; ok {
		rec.Question = v.GetStringValue()
	}
	if v, ok := payload["answer"]; ok {
		rec.Answer = v.GetStringValue()
	}
	if v, ok := payload["topic"]; ok {
		rec.Topic = v.GetStringValue()
	}
	if v, ok := payload["difficulty"]; ok {
		rec.Difficulty = v.GetStringValue()
	}
	return rec
}

func pointID(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return fmt.Sprintf("%d", id.GetNum())
}
