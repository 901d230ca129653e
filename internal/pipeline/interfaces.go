package pipeline

import (
	"context"

	"topicmon/internal/core"
	"topicmon/internal/persistence"
	"topicmon/internal/report"
	"topicmon/internal/store"
)

// FetchResult is what the feed source returns for one window
type FetchResult struct {
	Articles []core.Article
	Sources  int // sources attempted
	Healthy  int // sources that contributed articles
}

// ArticleSource retrieves the articles published inside a window
type ArticleSource interface {
	// Fetch degrades partial source failures internally and only errors when
	// nothing could be attempted
	Fetch(ctx context.Context, window core.TimeWindow) (*FetchResult, error)
}

// TopicAnnotator extracts topics, category, keywords and depth from one article
type TopicAnnotator interface {
	Annotate(ctx context.Context, article core.Article) (core.TopicAnnotation, error)
}

// CacheReporter is implemented by annotators that serve from a cache
type CacheReporter interface {
	Stats() (hits, misses int)
}

// TopicGrouper proposes semantic groups over distinct topic labels
type TopicGrouper interface {
	Group(ctx context.Context, labels []string) ([]core.ProposedGroup, error)
}

// ArtifactStore persists stage outputs keyed by date and slot
type ArtifactStore interface {
	SaveRawArticles(date string, raw persistence.RawArticles) (string, error)
	SaveTopics(date string, slot core.TimeSlot, topics persistence.TopicsFile) (string, error)
	SaveHeatScores(date string, slot core.TimeSlot, scores persistence.HeatScores) (string, error)
	LoadHeatScores(date string, slot core.TimeSlot) (*persistence.HeatScores, error)
}

// ReportGenerator writes the Markdown report for ranked topics
type ReportGenerator interface {
	Generate(ctx context.Context, in report.Input) (*report.Result, error)
}

// RunRecorder keeps the history of runs (optional)
type RunRecorder interface {
	RecordRun(run store.RunRecord) error
}
