package core

import (
	"fmt"
	"time"
)

// Article represents one entry fetched from an RSS/Atom source.
// The link is the identity key; nothing downstream of fetching mutates it.
type Article struct {
	Title     string    `json:"title"`                // Entry title
	Link      string    `json:"link"`                 // Canonical entry URL (identity key)
	Source    string    `json:"source"`               // Feed title from the OPML list
	SourceURL string    `json:"source_url,omitempty"` // Site URL reported by the feed
	Summary   string    `json:"summary"`              // Plain-text summary
	Content   string    `json:"content"`              // Plain-text content, truncated
	Published time.Time `json:"published"`            // Publication time
	WordCount int       `json:"word_count"`           // Length of the untruncated content
	Category  string    `json:"category,omitempty"`   // Category assigned during extraction
}

// TopicAnnotation is what the extraction service reports for a single article.
type TopicAnnotation struct {
	MainTopics      []string           `json:"main_topics"`
	Category        string             `json:"category"`
	Keywords        []string           `json:"keywords"`
	DiscussionDepth map[string]float64 `json:"discussion_depth"`
}

// AnnotatedArticle pairs an article with its extraction result.
type AnnotatedArticle struct {
	Article
	Annotation TopicAnnotation `json:"annotation"`
}

// ProposedGroup is one grouping suggestion returned by the clustering service.
type ProposedGroup struct {
	CanonicalName string   `json:"canonical_name"`
	MergedTopics  []string `json:"merged_topics"`
	Category      string   `json:"category"`
}

// ClusterArticle is the snapshot of an article stored inside a cluster.
type ClusterArticle struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Source    string    `json:"source"`
	Summary   string    `json:"summary"`
	Content   string    `json:"content"`
	Depth     float64   `json:"depth"`
	Published time.Time `json:"published"`
	Category  string    `json:"category"`
}

// TopicCluster is a group of articles that share one canonical topic.
// HeatScore and Rank stay zero until the cluster has been scored.
type TopicCluster struct {
	CanonicalName string           `json:"canonical_name"`
	Category      string           `json:"category"`
	Articles      []ClusterArticle `json:"articles"`
	TotalMentions int              `json:"total_mentions"`
	AvgDepth      float64          `json:"avg_depth"`
	HeatScore     float64          `json:"heat_score"`
	Rank          int              `json:"rank,omitempty"`
}

// Links returns the article links of the cluster in order.
func (c TopicCluster) Links() []string {
	links := make([]string, len(c.Articles))
	for i, a := range c.Articles {
		links[i] = a.Link
	}
	return links
}

// TimeSlot names one of the scheduled runs of a day.
type TimeSlot string

const (
	SlotMorning   TimeSlot = "morning"
	SlotAfternoon TimeSlot = "afternoon"
	SlotEvening   TimeSlot = "evening"
)

// Slots lists the time slots in the order they run during a day.
func Slots() []TimeSlot {
	return []TimeSlot{SlotMorning, SlotAfternoon, SlotEvening}
}

// ParseTimeSlot validates a slot name.
func ParseTimeSlot(s string) (TimeSlot, error) {
	for _, slot := range Slots() {
		if string(slot) == s {
			return slot, nil
		}
	}
	return "", fmt.Errorf("unknown time slot %q (expected morning, afternoon or evening)", s)
}

// Label returns the human-readable heading used in reports.
func (s TimeSlot) Label() string {
	switch s {
	case SlotMorning:
		return "Morning"
	case SlotAfternoon:
		return "Afternoon"
	case SlotEvening:
		return "Evening"
	default:
		return string(s)
	}
}

// TimeWindow bounds the publication times accepted by a fetch.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, bounds included.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// DateLayout is the layout used for dated artifact directories and reports.
const DateLayout = "2006-01-02"
