package search

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/cardea-mcp/ExamPrepAgent/pkg/vector"
)

type fakeEmbedder struct {
	vec      []float32
	err      error
	lastText string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.lastText = text
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeEmbedder) Close() error { return nil }

type fakeDriver struct {
	queryResults []vector.QueryResult
	queryErr     error
	lastTopK     int

	sampleRecords []vector.Record
	sampleErr     error
	lastFilter    vector.Filter
}

func (f *fakeDriver) Upsert(context.Context, []vector.Record) error { return nil }

func (f *fakeDriver) Query(_ context.Context, _ []float32, topK int) ([]vector.QueryResult, error) {
	f.lastTopK = topK
	return f.queryResults, f.queryErr
}

func (f *fakeDriver) Sample(_ context.Context, filter vector.Filter, _ int) ([]vector.Record, error) {
	f.lastFilter = filter
	return f.sampleRecords, f.sampleErr
}

func (f *fakeDriver) Count(context.Context) (uint64, error) { return 0, nil }
func (f *fakeDriver) Close() error                          { return nil }

var _ = Describe("Searcher", func() {
	var (
		ctx      context.Context
		embedder *fakeEmbedder
		driver   *fakeDriver
		searcher *Searcher
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = &fakeEmbedder{vec: []float32{0.1, 0.2, 0.3}}
		driver = &fakeDriver{}
		searcher = NewSearcher(embedder, driver, zap.NewNop())
	})

	Describe("Search", func() {
		It("embeds the query and maps results to matches in score order", func() {
			driver.queryResults = []vector.QueryResult{
				{Record: vector.Record{Question: "What is etcd?", Answer: "A key-value store."}, Score: 0.92},
				{Record: vector.Record{Question: "What is raft?", Answer: "A consensus algorithm."}, Score: 0.81},
			}

			matches, err := searcher.Search(ctx, "etcd", 2)
			Expect(err).NotTo(HaveOccurred())

			Expect(embedder.lastText).To(Equal("etcd"))
			Expect(matches).To(HaveLen(2))
			Expect(matches[0].Question).To(Equal("What is etcd?"))
			Expect(matches[0].Score).To(BeNumerically("~", 0.92, 0.001))
			Expect(matches[1].Answer).To(Equal("A consensus algorithm."))
		})

		It("falls back to the default topK for non-positive values", func() {
			_, err := searcher.Search(ctx, "etcd", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.lastTopK).To(Equal(DefaultTopK))
		})

		It("wraps embedder failures", func() {
			embedder.err = errors.New("ollama unreachable")

			_, err := searcher.Search(ctx, "etcd", 3)
			Expect(err).To(MatchError(ContainSubstring("failed to embed query")))
		})

		It("wraps vector store failures", func() {
			driver.queryErr = vector.ErrConnection

			_, err := searcher.Search(ctx, "etcd", 3)
			Expect(errors.Is(err, vector.ErrConnection)).To(BeTrue())
		})
	})

	Describe("RandomQuestion", func() {
		BeforeEach(func() {
			driver.sampleRecords = []vector.Record{
				{Question: "Describe a Deployment.", Answer: "A controller for pods.", Topic: "workloads", Difficulty: "beginner"},
			}
		})

		It("returns a question from the sampled pool", func() {
			q, err := searcher.RandomQuestion(ctx, "beginner", "workloads")
			Expect(err).NotTo(HaveOccurred())
			Expect(q.Question).To(Equal("Describe a Deployment."))
			Expect(q.Difficulty).To(Equal("beginner"))
			Expect(driver.lastFilter).To(Equal(vector.Filter{Topic: "workloads", Difficulty: "beginner"}))
		})

		It("treats any and none as unfiltered", func() {
			_, err := searcher.RandomQuestion(ctx, "any", "none")
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.lastFilter).To(Equal(vector.Filter{}))
		})

		It("errors when the pool is empty", func() {
			driver.sampleRecords = nil

			_, err := searcher.RandomQuestion(ctx, "advanced", "networking")
			Expect(err).To(MatchError(ContainSubstring("no questions found")))
		})

		It("wraps sampling failures", func() {
			driver.sampleErr = vector.ErrConnection

			_, err := searcher.RandomQuestion(ctx, "", "")
			Expect(errors.Is(err, vector.ErrConnection)).To(BeTrue())
		})
	})
})
