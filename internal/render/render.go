package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"topicmon/internal/core"
)

const (
	// DeepDiveDepth marks articles whose discussion depth earns the 🔬 tag
	DeepDiveDepth = 0.7
	// SummaryChars caps the summary shown under each article
	SummaryChars = 300

	overviewMarker = "<!-- overview -->"
	publishedTime  = "2006-01-02 15:04"
)

// ArticleData is one article line under a topic.
type ArticleData struct {
	Title     string    // Title, translated when a translation was available
	URL       string    // Original article URL
	Source    string    // Feed title
	Published time.Time // Zero when unknown
	Summary   string    // Summary, translated when a translation was available
	Depth     float64   // Discussion depth of the article within the topic
}

// TopicData combines what is needed to render one ranked topic.
type TopicData struct {
	Rank           int
	Name           string
	Category       string
	HeatScore      float64
	Mentions       int
	AvgDepth       float64
	Recommendation string
	Articles       []ArticleData
}

// SlotSection is the report block produced by one scheduled run.
type SlotSection struct {
	Slot          core.TimeSlot
	GeneratedAt   time.Time
	TotalArticles int
	Topics        []TopicData
}

// Overview is the daily summary kept at the end of the report file.
type Overview struct {
	Sources     int
	Articles    int
	Topics      int
	Slot        core.TimeSlot
	GeneratedAt time.Time
}

// DepthStars renders a depth in [0,1] as five stars.
func DepthStars(depth float64) string {
	n := int(depth * 5)
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

// RenderSection creates the markdown block of one slot, wrapped in markers so
// a later run of the same slot can replace it.
func RenderSection(section SlotSection) string {
	var b strings.Builder
	clock := section.GeneratedAt.Format("15:04")

	b.WriteString(startMarker(section.Slot) + "\n")
	b.WriteString(fmt.Sprintf("## 📊 %s Picks (updated %s)\n\n", section.Slot.Label(), clock))
	b.WriteString(fmt.Sprintf("> Based on today's articles, **%d** new articles were monitored as of %s\n\n", section.TotalArticles, clock))

	if len(section.Topics) == 0 {
		b.WriteString("No topics were identified for this run.\n\n")
	}

	for _, topic := range section.Topics {
		writeTopic(&b, topic)
	}

	b.WriteString("---\n\n")
	b.WriteString(endMarker(section.Slot) + "\n")
	return b.String()
}

func writeTopic(b *strings.Builder, topic TopicData) {
	b.WriteString(fmt.Sprintf("### 🔥 Topic %d: %s [Heat: %.1f/100]\n\n", topic.Rank, topic.Name, topic.HeatScore))
	b.WriteString(fmt.Sprintf("**Category**: %s | **Mentions**: %d | **Depth**: %s\n\n", topic.Category, topic.Mentions, DepthStars(topic.AvgDepth)))
	b.WriteString("**Why it matters**:\n\n")
	b.WriteString(strings.TrimSpace(topic.Recommendation) + "\n\n")
	b.WriteString("**Related articles**:\n\n")

	for i, a := range topic.Articles {
		tag := ""
		if a.Depth > DeepDiveDepth {
			tag = "🔬 "
		}
		b.WriteString(fmt.Sprintf("%d. %s**[%s](%s)**  \n", i+1, tag, a.Title, a.URL))
		b.WriteString(fmt.Sprintf("   📰 Source: %s | 📅 Published: %s  \n", a.Source, formatPublished(a.Published)))
		b.WriteString(fmt.Sprintf("   📝 %s\n\n", clipRunes(a.Summary, SummaryChars)))
	}
}

// RenderOverview creates the daily overview that closes the report file.
func RenderOverview(o Overview) string {
	var b strings.Builder
	b.WriteString(overviewMarker + "\n")
	b.WriteString("## 📈 Daily Overview\n\n")
	b.WriteString(fmt.Sprintf("- **Sources monitored**: %d\n", o.Sources))
	b.WriteString(fmt.Sprintf("- **Articles fetched**: %d\n", o.Articles))
	b.WriteString(fmt.Sprintf("- **Topics identified**: %d\n", o.Topics))
	b.WriteString(fmt.Sprintf("- **Last report**: %s %s\n\n", o.Slot.Label(), o.GeneratedAt.Format("15:04")))
	b.WriteString("---\n\n")
	b.WriteString(fmt.Sprintf("*Generated at %s from %d RSS sources by topicmon*\n", o.GeneratedAt.Format(publishedTime), o.Sources))
	return b.String()
}

// WriteDailyReport merges a slot section into reports/{date}.md. The file is
// created with a title when missing, an earlier section of the same slot is
// replaced in place, and the overview is rewritten at the end.
func WriteDailyReport(reportsDir, date string, section SlotSection, overview Overview) (string, error) {
	if reportsDir == "" {
		reportsDir = "reports"
	}
	filePath := filepath.Join(reportsDir, date+".md")

	existing, err := os.ReadFile(filePath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to read report file %s: %w", filePath, err)
	}

	var body string
	if len(existing) == 0 {
		body = fmt.Sprintf("# Tech Blog Topic Monitor - %s\n\n---\n\n", date)
	} else {
		body = stripOverview(string(existing))
	}

	body = mergeSection(body, section.Slot, RenderSection(section))
	return WriteReportFile(body+"\n"+RenderOverview(overview), reportsDir, date+".md")
}

// WriteReportFile writes the provided content to a file in the specified directory
func WriteReportFile(content, outputDir, filename string) (string, error) {
	if outputDir == "" {
		outputDir = "reports"
	}

	err := os.MkdirAll(outputDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	filePath := filepath.Join(outputDir, filename)

	err = os.WriteFile(filePath, []byte(content), 0644)
	if err != nil {
		return "", fmt.Errorf("failed to write report file %s: %w", filePath, err)
	}

	return filePath, nil
}

func stripOverview(content string) string {
	if i := strings.Index(content, overviewMarker); i >= 0 {
		content = content[:i]
	}
	return strings.TrimRight(content, "\n") + "\n\n"
}

// mergeSection replaces the marked block of slot, or appends rendered when the
// slot has no block yet.
func mergeSection(body string, slot core.TimeSlot, rendered string) string {
	start := strings.Index(body, startMarker(slot))
	if start < 0 {
		return body + rendered
	}
	end := strings.Index(body[start:], endMarker(slot))
	if end < 0 {
		return body[:start] + rendered
	}
	end += start + len(endMarker(slot))
	rest := strings.TrimPrefix(body[end:], "\n")
	return body[:start] + rendered + rest
}

func startMarker(slot core.TimeSlot) string { return fmt.Sprintf("<!-- slot:%s -->", slot) }
func endMarker(slot core.TimeSlot) string   { return fmt.Sprintf("<!-- /slot:%s -->", slot) }

func formatPublished(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format(publishedTime)
}

func clipRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
