package testutils

import (
	"context"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/vector"
)

// MockVectorDriver is a test vector driver backed by configurable fixtures.
type MockVectorDriver struct {
	// Records accumulates everything passed to Upsert and is the pool
	// Sample draws from.
	Records []vector.Record

	// Results is returned by Query for any embedding.
	Results []vector.QueryResult

	// FailQuery causes Query to return ErrConnection.
	FailQuery bool

	// FailSample causes Sample to return ErrConnection.
	FailSample bool
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{}
}

func (m *MockVectorDriver) Upsert(_ context.Context, records []vector.Record) error {
	m.Records = append(m.Records, records...)
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int) ([]vector.QueryResult, error) {
	if m.FailQuery {
		return nil, vector.ErrConnection
	}
	if topK < len(m.Results) {
		return m.Results[:topK], nil
	}
	return m.Results, nil
}

func (m *MockVectorDriver) Sample(_ context.Context, filter vector.Filter, limit int) ([]vector.Record, error) {
	if m.FailSample {
		return nil, vector.ErrConnection
	}

	var matched []vector.Record
	for _, rec := range m.Records {
		if filter.Topic != "" && rec.Topic != filter.Topic {
			continue
		}
		if filter.Difficulty != "" && rec.Difficulty != filter.Difficulty {
			continue
		}
		matched = append(matched, rec)
		if len(matched) >= limit {
			break
		}
	}
	return matched, nil
}

func (m *MockVectorDriver) Count(context.Context) (uint64, error) {
	return uint64(len(m.Records)), nil
}

func (m *MockVectorDriver) Close() error {
	return nil
}
