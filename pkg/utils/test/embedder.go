package testutils

import (
	"context"
	"fmt"
)

// MockEmbedder is an in-memory embedder for tests. Known texts map to
// their configured vectors; everything else gets a fixed default.
type MockEmbedder struct {
	Embeddings map[string][]float32

	// FailOn makes Embed fail when the input text matches it exactly.
	FailOn string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings: make(map[string][]float32),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.FailOn != "" && text == m.FailOn {
		return nil, fmt.Errorf("mock embedding failure for: %s", text)
	}

	if emb, ok := m.Embeddings[text]; ok {
		return emb, nil
	}

	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *MockEmbedder) Close() error {
	return nil
}
