// Package persistence stores the dated, slot-keyed JSON artifacts of each run
package persistence

import (
	"errors"
	"time"

	"topicmon/internal/core"
)

// ErrNotFound is returned when no artifact exists for the requested date and slot
var ErrNotFound = errors.New("artifact not found")

// RawArticles is the snapshot of one fetch
type RawArticles struct {
	Metadata RawMetadata    `json:"metadata"`
	Articles []core.Article `json:"articles"`
}

// RawMetadata describes the fetch window of a raw snapshot
type RawMetadata struct {
	FetchTime       time.Time `json:"fetch_time"`
	TimeWindowStart time.Time `json:"time_window_start"`
	TimeWindowEnd   time.Time `json:"time_window_end"`
	HoursRange      int       `json:"hours_range"`
	TotalArticles   int       `json:"total_articles"`
}

// TopicsFile is the clustering output of one run, before scoring
type TopicsFile struct {
	Mode     string              `json:"mode"` // grouped or degraded
	Clusters []core.TopicCluster `json:"clusters"`
}

// HeatScores is the ranked, scored output of one run
type HeatScores struct {
	Timestamp     string              `json:"timestamp"`
	GeneratedAt   time.Time           `json:"generated_at"`
	TotalTopics   int                 `json:"total_topics"`
	TotalArticles int                 `json:"total_articles"`
	Sources       int                 `json:"sources"`
	Topics        []core.TopicCluster `json:"topics"`
}

// ArtifactRepository handles run artifact persistence
type ArtifactRepository interface {
	// SaveRawArticles stores the fetched articles keyed by the fetch time
	SaveRawArticles(date string, raw RawArticles) (string, error)

	// LoadRawArticles loads the snapshot taken at hhmm, or the latest one when hhmm is empty
	LoadRawArticles(date, hhmm string) (*RawArticles, error)

	// SaveTopics stores the clusters of a run
	SaveTopics(date string, slot core.TimeSlot, topics TopicsFile) (string, error)

	// LoadTopics loads the clusters of a run
	LoadTopics(date string, slot core.TimeSlot) (*TopicsFile, error)

	// SaveHeatScores stores the ranked clusters of a run
	SaveHeatScores(date string, slot core.TimeSlot, scores HeatScores) (string, error)

	// LoadHeatScores loads the ranked clusters of a run
	LoadHeatScores(date string, slot core.TimeSlot) (*HeatScores, error)
}
