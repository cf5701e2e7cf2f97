// Package vector provides interfaces and implementations for storing and
// querying embedded question/answer records.
package vector

import "context"

// Record is a stored question/answer pair with its embedding and metadata.
type Record struct {
	// ID is a unique identifier for the record.
	ID string

	// Question and Answer are the stored Q/A pair.
	Question string
	Answer   string

	// Topic and Difficulty are optional filter fields
	// ("beginner", "intermediate", "advanced").
	Topic      string
	Difficulty string

	// Embedding is the vector representation of the question.
	Embedding []float32
}

// QueryResult is a search hit with its similarity score.
type QueryResult struct {
	Record

	// Score is the similarity score (higher = more similar).
	Score float32
}

// Filter restricts Sample to records matching the set fields.
type Filter struct {
	Topic      string
	Difficulty string
}

// Driver handles storage and retrieval of embedded Q/A records.
type Driver interface {
	// Upsert stores records, replacing any with the same ID.
	Upsert(ctx context.Context, records []Record) error

	// Query finds the topK records most similar to the given embedding.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Sample returns up to limit records matching the filter, for random
	// question selection. Order is backend-defined.
	Sample(ctx context.Context, filter Filter, limit int) ([]Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (uint64, error)

	// Close releases any resources held by the driver.
	Close() error
}
