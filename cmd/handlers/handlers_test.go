package handlers

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topicmon/internal/config"
	"topicmon/internal/core"
	"topicmon/internal/persistence"
	"topicmon/internal/store"
)

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "daemon", "report", "show", "history", "cache"} {
		assert.True(t, names[want], "missing %s command", want)
	}

	run, _, err := root.Find([]string{"run"})
	require.NoError(t, err)
	assert.NotNil(t, run.Flags().Lookup("slot"))
	assert.NotNil(t, run.Flags().Lookup("date"))
	assert.NotNil(t, run.Flags().Lookup("no-cache"))
}

func TestSlotAndDate(t *testing.T) {
	cmd := NewShowCmd()
	require.NoError(t, cmd.Flags().Set("slot", "evening"))
	require.NoError(t, cmd.Flags().Set("date", "2026-03-01"))

	slot, date, err := slotAndDate(cmd)
	require.NoError(t, err)
	assert.Equal(t, core.SlotEvening, slot)
	assert.Equal(t, "2026-03-01", date)

	require.NoError(t, cmd.Flags().Set("slot", "noon"))
	_, _, err = slotAndDate(cmd)
	assert.Error(t, err)
}

func TestRenderScores(t *testing.T) {
	scores := &persistence.HeatScores{
		Timestamp:     "2026-03-01 morning",
		TotalTopics:   2,
		TotalArticles: 3,
		Topics: []core.TopicCluster{
			{CanonicalName: "LLM Inference", Category: "AI Infrastructure", HeatScore: 38, TotalMentions: 2, AvgDepth: 0.7, Rank: 1},
			{CanonicalName: "Rust Async", Category: "Programming", HeatScore: 17, TotalMentions: 1, AvgDepth: 0.2, Rank: 2},
		},
	}

	out := renderScores(scores, core.SlotMorning, 0)
	assert.Contains(t, out, "LLM Inference")
	assert.Contains(t, out, "38.0")
	assert.Contains(t, out, "★★★☆☆")
	assert.Contains(t, out, "Rust Async")
	assert.Contains(t, out, "2 topics from 3 articles")

	top := renderScores(scores, core.SlotMorning, 1)
	assert.Contains(t, top, "LLM Inference")
	assert.False(t, strings.Contains(top, "Rust Async"))
}

func TestRenderRuns(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	out := renderRuns([]store.RunRecord{
		{Date: "2026-03-01", Slot: "morning", FinalStage: "DONE", Mode: "grouped", Articles: 42, Clusters: 9, StartedAt: start, FinishedAt: start.Add(90 * time.Second)},
		{Date: "2026-02-28", Slot: "evening", FinalStage: "ABORTED", AbortReason: "FETCHING: no articles", StartedAt: start, FinishedAt: start},
	})

	assert.Contains(t, out, "grouped")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "FETCHING: no articles")
}

func TestPipelineSettingsOnlyRequiredByPipelineCommands(t *testing.T) {
	config.Reset()
	t.Cleanup(config.Reset)
	t.Setenv("ZHIPU_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "topicmon.yaml")
	body := "app:\n  data_dir: " + filepath.Join(dir, "data") + "\n" +
		"feeds:\n  opml_file: " + filepath.Join(dir, "missing.opml") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--config", path, "history"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "No runs recorded yet")

	root = NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--config", path, "run", "--slot", "morning"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
	assert.Contains(t, err.Error(), "feeds.opml_file")
}
