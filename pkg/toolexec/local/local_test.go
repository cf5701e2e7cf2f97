package local

import (
	"context"
	"encoding/json"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/search"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/toolexec"
	"github.com/cardea-mcp/ExamPrepAgent/pkg/vector"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

func (f *fakeEmbedder) Close() error { return nil }

type fakeDriver struct {
	queryResults  []vector.QueryResult
	sampleRecords []vector.Record
}

func (f *fakeDriver) Upsert(context.Context, []vector.Record) error { return nil }

func (f *fakeDriver) Query(context.Context, []float32, int) ([]vector.QueryResult, error) {
	return f.queryResults, nil
}

func (f *fakeDriver) Sample(context.Context, vector.Filter, int) ([]vector.Record, error) {
	return f.sampleRecords, nil
}

func (f *fakeDriver) Count(context.Context) (uint64, error) { return 0, nil }
func (f *fakeDriver) Close() error                          { return nil }

var _ = Describe("Invoker", func() {
	var (
		ctx      context.Context
		embedder *fakeEmbedder
		driver   *fakeDriver
		invoker  *Invoker
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = &fakeEmbedder{}
		driver = &fakeDriver{
			queryResults: []vector.QueryResult{
				{Record: vector.Record{Question: "What is etcd?", Answer: "A key-value store."}, Score: 0.9},
			},
			sampleRecords: []vector.Record{
				{Question: "Describe a Deployment.", Answer: "A controller for pods.", Difficulty: "beginner"},
			},
		}
		invoker = NewInvoker(search.NewSearcher(embedder, driver, zap.NewNop()), zap.NewNop())
	})

	It("serves the search tool in process", func() {
		result, err := invoker.Invoke(ctx, toolexec.SearchToolName, map[string]any{"query": "etcd"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.OK()).To(BeTrue())

		var matches []search.Match
		Expect(json.Unmarshal(result.Payload, &matches)).To(Succeed())
		Expect(matches).To(HaveLen(1))
		Expect(matches[0].Question).To(Equal("What is etcd?"))
	})

	It("serves the random question tool in process", func() {
		result, err := invoker.Invoke(ctx, toolexec.RandomQuestionToolName, map[string]any{"difficulty": "beginner"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.OK()).To(BeTrue())

		var q search.Question
		Expect(json.Unmarshal(result.Payload, &q)).To(Succeed())
		Expect(q.Question).To(Equal("Describe a Deployment."))
	})

	It("reports unknown tools as a not-found failure, not an error", func() {
		result, err := invoker.Invoke(ctx, "launch_missiles", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.OK()).To(BeFalse())
		Expect(result.Failure.Kind).To(Equal(toolexec.FailureNotFound))
		Expect(result.Failure.Message).To(ContainSubstring("launch_missiles"))
	})

	It("maps deadline expiry to a timeout failure", func() {
		embedder.err = fmt.Errorf("embedding: %w", context.DeadlineExceeded)

		result, err := invoker.Invoke(ctx, toolexec.SearchToolName, map[string]any{"query": "etcd"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Failure.Kind).To(Equal(toolexec.FailureTimeout))
	})

	It("maps backend errors to a remote failure", func() {
		embedder.err = fmt.Errorf("embedding service returned 500")

		result, err := invoker.Invoke(ctx, toolexec.SearchToolName, map[string]any{"query": "etcd"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Failure.Kind).To(Equal(toolexec.FailureRemote))
		Expect(result.Failure.Message).To(ContainSubstring("500"))
	})
})
