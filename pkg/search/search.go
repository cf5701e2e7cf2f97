// Package search provides the knowledge lookup logic shared by the MCP tool
// server and the in-process tool invoker: semantic search over stored Q/A
// pairs, and random question selection for practice.
package search

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/embeddings"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/vector"
)

// DefaultTopK is the default number of search results.
const DefaultTopK = 5

// sampleLimit bounds how many candidates RandomQuestion draws from.
const sampleLimit = 64

// Match is a single knowledge-search result.
type Match struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float32 `json:"score"`
}

// Question is a practice question record.
type Question struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Topic      string `json:"topic,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// Searcher embeds queries and runs them against the vector store.
type Searcher struct {
	embedder embeddings.Embedder
	driver   vector.Driver
	logger   *zap.Logger
}

// NewSearcher creates a new Searcher.
func NewSearcher(embedder embeddings.Embedder, driver vector.Driver, logger *zap.Logger) *Searcher {
	return &Searcher{
		embedder: embedder,
		driver:   driver,
		logger:   logger,
	}
}

// Search embeds the query text and returns the topK most relevant Q/A pairs,
// most relevant first.
func (s *Searcher) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	s.logger.Debug("search request",
		zap.String("query", query),
		zap.Int("topK", topK),
	)

	queryEmbedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.driver.Query(ctx, queryEmbedding, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, result := range results {
		matches = append(matches, Match{
			Question: result.Question,
			Answer:   result.Answer,
			Score:    result.Score,
		})
	}
	return matches, nil
}

// RandomQuestion picks one stored question at random, optionally filtered by
// difficulty and topic. Empty strings (or "any") mean no filter.
func (s *Searcher) RandomQuestion(ctx context.Context, difficulty, topic string) (*Question, error) {
	filter := vector.Filter{
		Topic:      normalizeFilter(topic),
		Difficulty: normalizeFilter(difficulty),
	}

	records, err := s.driver.Sample(ctx, filter, sampleLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to sample questions: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no questions found for difficulty=%q topic=%q", difficulty, topic)
	}

	rec := records[rand.Intn(len(records))]
	return &Question{
		Question:   rec.Question,
		Answer:     rec.Answer,
		Topic:      rec.Topic,
		Difficulty: rec.Difficulty,
	}, nil
}

func normalizeFilter(v string) string {
	if v == "any" || v == "none" {
		return ""
	}
	return v
}
