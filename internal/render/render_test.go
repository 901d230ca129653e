package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"topicmon/internal/core"
)

func sampleSection(slot core.TimeSlot, at time.Time, topicName string) SlotSection {
	return SlotSection{
		Slot:          slot,
		GeneratedAt:   at,
		TotalArticles: 12,
		Topics: []TopicData{
			{
				Rank:           1,
				Name:           topicName,
				Category:       "AI Infrastructure",
				HeatScore:      38,
				Mentions:       2,
				AvgDepth:       0.7,
				Recommendation: "  Serving costs keep falling.  ",
				Articles: []ArticleData{
					{
						Title:     "Deep dive into vLLM",
						URL:       "https://a.example/1",
						Source:    "Alpha",
						Published: time.Date(2026, 3, 1, 7, 5, 0, 0, time.UTC),
						Summary:   "Paged attention explained.",
						Depth:     0.8,
					},
					{
						Title:   "Quick note",
						URL:     "https://b.example/2",
						Source:  "Beta",
						Summary: strings.Repeat("x", 400),
						Depth:   0.6,
					},
				},
			},
		},
	}
}

func TestDepthStars(t *testing.T) {
	tests := []struct {
		depth float64
		want  string
	}{
		{0, "☆☆☆☆☆"},
		{0.2, "★☆☆☆☆"},
		{0.7, "★★★☆☆"},
		{1, "★★★★★"},
		{1.4, "★★★★★"},
		{-0.3, "☆☆☆☆☆"},
	}

	for _, tt := range tests {
		if got := DepthStars(tt.depth); got != tt.want {
			t.Errorf("DepthStars(%v) = %q, want %q", tt.depth, got, tt.want)
		}
	}
}

func TestRenderSection(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	out := RenderSection(sampleSection(core.SlotMorning, at, "LLM Inference"))

	expected := []string{
		"<!-- slot:morning -->",
		"## 📊 Morning Picks (updated 09:30)",
		"**12** new articles",
		"### 🔥 Topic 1: LLM Inference [Heat: 38.0/100]",
		"**Category**: AI Infrastructure | **Mentions**: 2 | **Depth**: ★★★☆☆",
		"Serving costs keep falling.\n",
		"1. 🔬 **[Deep dive into vLLM](https://a.example/1)**",
		"📅 Published: 2026-03-01 07:05",
		"2. **[Quick note](https://b.example/2)**",
		"📅 Published: unknown",
		"<!-- /slot:morning -->",
	}
	for _, s := range expected {
		if !strings.Contains(out, s) {
			t.Errorf("section should contain %q\n%s", s, out)
		}
	}

	if strings.Contains(out, strings.Repeat("x", SummaryChars+1)) {
		t.Error("summary should be clipped")
	}
	if !strings.Contains(out, strings.Repeat("x", SummaryChars)) {
		t.Error("summary should keep the first characters")
	}
}

func TestRenderSection_NoTopics(t *testing.T) {
	out := RenderSection(SlotSection{Slot: core.SlotEvening, GeneratedAt: time.Now()})
	if !strings.Contains(out, "No topics were identified") {
		t.Errorf("expected empty notice, got:\n%s", out)
	}
}

func TestWriteDailyReport_CreateAppendReplace(t *testing.T) {
	tmpDir := t.TempDir()
	date := "2026-03-01"

	morning := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	path, err := WriteDailyReport(tmpDir, date, sampleSection(core.SlotMorning, morning, "First Topic"),
		Overview{Sources: 7, Articles: 12, Topics: 1, Slot: core.SlotMorning, GeneratedAt: morning})
	if err != nil {
		t.Fatalf("WriteDailyReport failed: %v", err)
	}
	if path != filepath.Join(tmpDir, date+".md") {
		t.Errorf("unexpected path %s", path)
	}

	afternoon := morning.Add(6 * time.Hour)
	if _, err := WriteDailyReport(tmpDir, date, sampleSection(core.SlotAfternoon, afternoon, "Second Topic"),
		Overview{Sources: 7, Articles: 20, Topics: 1, Slot: core.SlotAfternoon, GeneratedAt: afternoon}); err != nil {
		t.Fatalf("WriteDailyReport failed: %v", err)
	}

	// Re-run of the morning slot replaces its section.
	if _, err := WriteDailyReport(tmpDir, date, sampleSection(core.SlotMorning, morning.Add(time.Minute), "Rerun Topic"),
		Overview{Sources: 7, Articles: 21, Topics: 1, Slot: core.SlotMorning, GeneratedAt: afternoon.Add(time.Minute)}); err != nil {
		t.Fatalf("WriteDailyReport failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read report file: %v", err)
	}
	content := string(data)

	if strings.Count(content, "# Tech Blog Topic Monitor - 2026-03-01") != 1 {
		t.Error("title should appear exactly once")
	}
	if strings.Contains(content, "First Topic") {
		t.Error("morning section should have been replaced")
	}
	if strings.Count(content, "<!-- slot:morning -->") != 1 {
		t.Error("morning section should appear exactly once")
	}

	rerun := strings.Index(content, "Rerun Topic")
	second := strings.Index(content, "Second Topic")
	if rerun < 0 || second < 0 || rerun > second {
		t.Error("morning section should stay ahead of the afternoon section")
	}

	if strings.Count(content, "## 📈 Daily Overview") != 1 {
		t.Error("overview should appear exactly once")
	}
	if !strings.Contains(content, "- **Articles fetched**: 21") {
		t.Error("overview should carry the latest article count")
	}
	if strings.Index(content, overviewMarker) < second {
		t.Error("overview should close the file")
	}
}

func TestWriteReportFile(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "nested")

	filePath, err := WriteReportFile("hello", tmpDir, "x.md")
	if err != nil {
		t.Fatalf("WriteReportFile failed: %v", err)
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(content) != "hello" {
		t.Errorf("unexpected content %q", content)
	}
}
