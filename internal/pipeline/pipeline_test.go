package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topicmon/internal/core"
	"topicmon/internal/heat"
	"topicmon/internal/persistence"
	"topicmon/internal/report"
	"topicmon/internal/store"
	"topicmon/internal/topics"
)

type fakeSource struct {
	articles []core.Article
	err      error
	window   core.TimeWindow
}

func (f *fakeSource) Fetch(_ context.Context, window core.TimeWindow) (*FetchResult, error) {
	f.window = window
	if f.err != nil {
		return nil, f.err
	}
	return &FetchResult{Articles: f.articles, Sources: 3, Healthy: 2}, nil
}

type fakeAnnotator struct {
	annotations map[string]core.TopicAnnotation
	failures    map[string]error
}

func (f *fakeAnnotator) Annotate(_ context.Context, article core.Article) (core.TopicAnnotation, error) {
	if err := f.failures[article.Link]; err != nil {
		return core.TopicAnnotation{}, err
	}
	return f.annotations[article.Link], nil
}

type fakeGrouper struct {
	groups []core.ProposedGroup
	err    error
	labels []string
}

func (f *fakeGrouper) Group(_ context.Context, labels []string) ([]core.ProposedGroup, error) {
	f.labels = labels
	return f.groups, f.err
}

type fakeReporter struct {
	inputs []report.Input
	err    error
}

func (f *fakeReporter) Generate(_ context.Context, in report.Input) (*report.Result, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &report.Result{Path: "reports/" + in.Date + ".md", TranslationFallbacks: 1}, nil
}

type fakeRecorder struct {
	runs []store.RunRecord
}

func (f *fakeRecorder) RecordRun(run store.RunRecord) error {
	f.runs = append(f.runs, run)
	return nil
}

var runTime = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func scenarioArticles() []core.Article {
	return []core.Article{
		{Title: "vLLM paged attention", Link: "https://a.example/1", Source: "A", Published: runTime.Add(-time.Hour)},
		{Title: "Serving LLMs cheaply", Link: "https://b.example/2", Source: "B", Published: runTime.Add(-2 * time.Hour)},
		{Title: "Async Rust in practice", Link: "https://c.example/3", Source: "C", Published: runTime.Add(-3 * time.Hour)},
	}
}

func scenarioAnnotator() *fakeAnnotator {
	return &fakeAnnotator{annotations: map[string]core.TopicAnnotation{
		"https://a.example/1": {MainTopics: []string{"vLLM"}, Category: "Unlisted", DiscussionDepth: map[string]float64{"vLLM": 0.8}},
		"https://b.example/2": {MainTopics: []string{"LLM serving"}, Category: "Unlisted", DiscussionDepth: map[string]float64{"LLM serving": 0.6}},
		"https://c.example/3": {MainTopics: []string{"Rust async"}, Category: "Unlisted", DiscussionDepth: map[string]float64{"Rust async": 0.2}},
	}}
}

type harness struct {
	source    *fakeSource
	annotator *fakeAnnotator
	grouper   *fakeGrouper
	reporter  *fakeReporter
	recorder  *fakeRecorder
	artifacts *persistence.FileStore
	pipeline  *Pipeline
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		source:    &fakeSource{articles: scenarioArticles()},
		annotator: scenarioAnnotator(),
		grouper: &fakeGrouper{groups: []core.ProposedGroup{
			{CanonicalName: "X", MergedTopics: []string{"vLLM", "LLM serving"}, Category: "Unlisted"},
			{CanonicalName: "Y", MergedTopics: []string{"Rust async"}, Category: "Unlisted"},
		}},
		reporter:  &fakeReporter{},
		recorder:  &fakeRecorder{},
		artifacts: persistence.NewFileStore(t.TempDir()),
	}

	cfg := DefaultConfig()
	cfg.Location = time.UTC
	cfg.MinArticlesThreshold = 2

	scorer := heat.NewScorer(func(string) float64 { return 0.5 })
	h.pipeline = NewPipeline(h.source, h.annotator, h.grouper, scorer, h.artifacts, h.reporter, h.recorder, cfg, zerolog.Nop())
	h.pipeline.now = func() time.Time { return runTime }
	return h
}

func (h *harness) run(t *testing.T, opts RunOptions) *RunResult {
	t.Helper()
	if opts.Slot == "" {
		opts.Slot = core.SlotMorning
	}
	res, err := h.pipeline.Run(context.Background(), opts)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func TestRun_EndToEndScenario(t *testing.T) {
	h := newHarness(t)
	res := h.run(t, RunOptions{})

	assert.Equal(t, StageDone, res.FinalStage)
	assert.Equal(t, "2026-03-01", res.Date)
	assert.Equal(t, "grouped", res.Mode)
	assert.Equal(t, 3, res.Articles)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []string{"vLLM", "LLM serving", "Rust async"}, h.grouper.labels)

	require.Len(t, res.Clusters, 2)
	assert.Equal(t, "X", res.Clusters[0].CanonicalName)
	assert.Equal(t, 38.0, res.Clusters[0].HeatScore)
	assert.Equal(t, 1, res.Clusters[0].Rank)
	assert.Equal(t, "Y", res.Clusters[1].CanonicalName)
	assert.Equal(t, 17.0, res.Clusters[1].HeatScore)
	assert.Equal(t, 2, res.Clusters[1].Rank)

	require.Len(t, h.reporter.inputs, 1)
	in := h.reporter.inputs[0]
	assert.Equal(t, core.SlotMorning, in.Slot)
	assert.Len(t, in.Topics, 2)
	assert.Equal(t, 3, in.Sources)
	assert.Equal(t, "reports/2026-03-01.md", res.ReportPath)

	require.Len(t, res.Degradations, 1)
	assert.Equal(t, StageReporting, res.Degradations[0].Stage)

	scores, err := h.artifacts.LoadHeatScores("2026-03-01", core.SlotMorning)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01 morning", scores.Timestamp)
	assert.Equal(t, 2, scores.TotalTopics)
	assert.Equal(t, 3, scores.TotalArticles)

	saved, err := h.artifacts.LoadTopics("2026-03-01", core.SlotMorning)
	require.NoError(t, err)
	assert.Equal(t, "grouped", saved.Mode)

	raw, err := h.artifacts.LoadRawArticles("2026-03-01", "0930")
	require.NoError(t, err)
	assert.Equal(t, 3, raw.Metadata.TotalArticles)
	assert.Equal(t, 24, raw.Metadata.HoursRange)

	require.Len(t, h.recorder.runs, 1)
	assert.Equal(t, string(StageDone), h.recorder.runs[0].FinalStage)
	assert.Equal(t, 2, h.recorder.runs[0].Clusters)
}

func TestRun_ExclusiveAssignment(t *testing.T) {
	h := newHarness(t)
	h.annotator.annotations["https://a.example/1"] = core.TopicAnnotation{
		MainTopics:      []string{"vLLM", "Rust async"},
		DiscussionDepth: map[string]float64{"vLLM": 0.8, "Rust async": 0.4},
	}

	res := h.run(t, RunOptions{})
	require.Equal(t, StageDone, res.FinalStage)

	seen := map[string]string{}
	for _, c := range res.Clusters {
		for _, link := range c.Links() {
			prev, dup := seen[link]
			assert.False(t, dup, "%s in both %s and %s", link, prev, c.CanonicalName)
			seen[link] = c.CanonicalName
		}
	}
	assert.Equal(t, "X", seen["https://a.example/1"])
}

func TestRun_GroupingFailureFallsBack(t *testing.T) {
	h := newHarness(t)
	h.grouper.err = errors.New("model unavailable")

	res := h.run(t, RunOptions{})
	assert.Equal(t, StageDone, res.FinalStage)
	assert.Equal(t, topics.Degraded.String(), res.Mode)
	require.Len(t, res.Clusters, 3)

	var clustering []Degradation
	for _, d := range res.Degradations {
		if d.Stage == StageClustering {
			clustering = append(clustering, d)
		}
	}
	require.Len(t, clustering, 1)
	assert.Contains(t, clustering[0].Cause, "model unavailable")
}

func TestRun_NoArticlesAborts(t *testing.T) {
	h := newHarness(t)
	h.source.articles = nil

	res := h.run(t, RunOptions{})
	assert.True(t, res.Aborted())
	assert.Contains(t, res.AbortReason, "FETCHING")
	assert.Empty(t, h.reporter.inputs)
	require.Len(t, h.recorder.runs, 1)
	assert.Equal(t, string(StageAborted), h.recorder.runs[0].FinalStage)

	_, err := h.artifacts.LoadTopics("2026-03-01", core.SlotMorning)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestRun_SourceFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.source.err = errors.New("opml missing")

	res := h.run(t, RunOptions{})
	assert.True(t, res.Aborted())
	assert.Contains(t, res.AbortReason, "opml missing")
}

func TestRun_ExtractionFailuresDegrade(t *testing.T) {
	h := newHarness(t)
	h.annotator.failures = map[string]error{"https://c.example/3": errors.New("timeout")}

	res := h.run(t, RunOptions{})
	assert.Equal(t, StageDone, res.FinalStage)
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, "X", res.Clusters[0].CanonicalName)
	assert.Equal(t, StageExtracting, res.Degradations[0].Stage)
	assert.Equal(t, "https://c.example/3", res.Degradations[0].Subject)
}

func TestRun_ReportsExtractionCacheUse(t *testing.T) {
	h := newHarness(t)

	st, err := store.NewStore(t.TempDir(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	h.pipeline.annotator = store.NewCachedAnnotator(h.annotator, st, zerolog.Nop())

	first := h.run(t, RunOptions{})
	assert.Equal(t, 0, first.CacheHits)
	assert.Equal(t, 3, first.CacheMisses)

	second := h.run(t, RunOptions{Slot: core.SlotAfternoon})
	assert.Equal(t, 3, second.CacheHits, "counts cover this run only")
	assert.Equal(t, 0, second.CacheMisses)
	assert.Equal(t, first.Clusters[0].CanonicalName, second.Clusters[0].CanonicalName)
}

func TestRun_NoTopicsAborts(t *testing.T) {
	h := newHarness(t)
	h.annotator.annotations = map[string]core.TopicAnnotation{}

	res := h.run(t, RunOptions{})
	assert.True(t, res.Aborted())
	assert.Contains(t, res.AbortReason, "CLUSTERING")
	assert.Empty(t, h.reporter.inputs)
}

func TestRun_ReportFailureKeepsArtifacts(t *testing.T) {
	h := newHarness(t)
	h.reporter.err = errors.New("disk full")

	res := h.run(t, RunOptions{})
	assert.Equal(t, StageDone, res.FinalStage)
	assert.Empty(t, res.ReportPath)

	_, err := h.artifacts.LoadHeatScores("2026-03-01", core.SlotMorning)
	assert.NoError(t, err)
}

func TestRun_PastDateUsesSlotTime(t *testing.T) {
	h := newHarness(t)

	res := h.run(t, RunOptions{Slot: core.SlotEvening, Date: "2026-02-27"})
	assert.Equal(t, "2026-02-27", res.Date)
	assert.Equal(t, time.Date(2026, 2, 27, 20, 30, 0, 0, time.UTC), h.source.window.End)
	assert.Equal(t, time.Date(2026, 2, 26, 20, 30, 0, 0, time.UTC), h.source.window.Start)
}

func TestRun_InvalidOptions(t *testing.T) {
	h := newHarness(t)

	_, err := h.pipeline.Run(context.Background(), RunOptions{Slot: "midnight"})
	assert.Error(t, err)

	_, err = h.pipeline.Run(context.Background(), RunOptions{Slot: core.SlotMorning, Date: "yesterday"})
	assert.Error(t, err)
}

func TestRun_CancelledContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := h.pipeline.Run(ctx, RunOptions{Slot: core.SlotMorning})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.True(t, res.Aborted())
}

func TestRegenerateReport(t *testing.T) {
	h := newHarness(t)
	h.run(t, RunOptions{})

	_, err := h.pipeline.RegenerateReport(context.Background(), "2026-03-01", core.SlotMorning)
	require.NoError(t, err)
	require.Len(t, h.reporter.inputs, 2)
	assert.Equal(t, h.reporter.inputs[0].Topics, h.reporter.inputs[1].Topics)
	assert.Equal(t, 3, h.reporter.inputs[1].TotalArticles)

	_, err = h.pipeline.RegenerateReport(context.Background(), "2026-03-01", core.SlotEvening)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestGates(t *testing.T) {
	assert.True(t, FetchGate(0, 5).Abort)
	low := FetchGate(3, 5)
	assert.False(t, low.Abort)
	assert.NotEmpty(t, low.Warning)
	assert.Equal(t, GateResult{}, FetchGate(5, 5))

	assert.True(t, ClusterGate(topics.Outcome{}, 0).Abort)
	assert.True(t, ClusterGate(topics.Outcome{Mode: topics.Degraded}, 4).Abort)
	assert.False(t, ClusterGate(topics.Outcome{Clusters: []core.TopicCluster{{CanonicalName: "A"}}}, 1).Abort)
}
