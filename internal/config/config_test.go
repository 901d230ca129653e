package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topicmon/internal/core"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "topicmon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("ZHIPU_API_KEY", "zhipu-test-key")

	cfg, err := Load(writeConfig(t, "app:\n  data_dir: data\n"))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "zhipu-test-key", cfg.AI.OpenAI.APIKey)
	assert.Equal(t, "glm-4-flash", cfg.AI.OpenAI.Model)
	assert.Equal(t, "Asia/Shanghai", cfg.App.Timezone)
	assert.Equal(t, 24, cfg.Feeds.WindowHours)
	assert.Equal(t, 2, cfg.Feeds.Retries)
	assert.Equal(t, 2000, cfg.Feeds.MaxContentChars)
	assert.Equal(t, 10, cfg.Output.TopicsPerReport)
	assert.Equal(t, 5, cfg.Output.ArticlesPerTopic)
	assert.Equal(t, 300, cfg.Output.RecommendationMaxChars)
	assert.Equal(t, "09:30", cfg.Schedule.Morning)
	assert.Equal(t, "15:30", cfg.Schedule.Afternoon)
	assert.Equal(t, "20:30", cfg.Schedule.Evening)
	assert.True(t, cfg.Cache.Enabled)

	assert.Same(t, cfg, Get())
}

func TestLoad_FileOverrides(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("GEMINI_API_KEY", "gemini-test-key")

	path := writeConfig(t, `
app:
  timezone: UTC
ai:
  provider: Gemini
schedule:
  morning: "07:30"
output:
  topics_per_report: 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, "gemini-test-key", cfg.AI.Gemini.APIKey)
	assert.Equal(t, "07:30", cfg.Schedule.TimeFor(core.SlotMorning))
	assert.Equal(t, 3, cfg.Output.TopicsPerReport)
	assert.Equal(t, time.UTC.String(), cfg.App.Location().String())
}

func TestLoad_ValidationErrorsAreAggregated(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("ZHIPU_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	path := writeConfig(t, `
app:
  timezone: Mars/Olympus
schedule:
  evening: "25:99"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration errors:")
	assert.Contains(t, err.Error(), "Invalid timezone")
	assert.Contains(t, err.Error(), "schedule.evening")
}

func TestLoad_MissingAPIKeyOnlyFailsPipeline(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("ZHIPU_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	opml := filepath.Join(t.TempDir(), "feeds.opml")
	require.NoError(t, os.WriteFile(opml, []byte("<opml/>"), 0644))

	cfg, err := Load(writeConfig(t, "feeds:\n  opml_file: "+opml+"\n"))
	require.NoError(t, err, "commands that never call a model still load")

	err = cfg.ValidatePipeline(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
	assert.NotContains(t, err.Error(), "feeds.opml_file")
}

func TestValidatePipeline_OPMLFile(t *testing.T) {
	dir := t.TempDir()
	opml := filepath.Join(dir, "feeds.opml")
	require.NoError(t, os.WriteFile(opml, []byte("<opml/>"), 0644))

	cfg := &Config{AI: AI{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "k", Model: "glm-4-flash"}}}

	cfg.Feeds.OPMLFile = opml
	assert.NoError(t, cfg.ValidatePipeline(true))

	cfg.Feeds.OPMLFile = filepath.Join(dir, "missing.opml")
	err := cfg.ValidatePipeline(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feeds.opml_file")
	assert.NoError(t, cfg.ValidatePipeline(false), "report regeneration does not read feeds")

	cfg.Feeds.OPMLFile = dir
	err = cfg.ValidatePipeline(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is a directory")
}

func TestLoad_UnknownProvider(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	_, err := Load(writeConfig(t, "ai:\n  provider: llamafile\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown AI provider: llamafile")
}

func TestLoad_InvalidDuration(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("ZHIPU_API_KEY", "k")

	_, err := Load(writeConfig(t, "feeds:\n  timeout: soon\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration for feeds.timeout")
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("08:05")
	require.NoError(t, err)
	assert.Equal(t, 8, h)
	assert.Equal(t, 5, m)

	for _, bad := range []string{"", "8", "24:00", "noon"} {
		_, _, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 15*time.Second, Duration("15s", time.Minute))
	assert.Equal(t, time.Minute, Duration("", time.Minute))
	assert.Equal(t, time.Minute, Duration("bogus", time.Minute))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "reports"), expandPath("~/reports"))
	t.Setenv("TOPICMON_TEST_DIR", "/srv/topicmon")
	assert.Equal(t, "/srv/topicmon/data", expandPath("$TOPICMON_TEST_DIR/data"))
	assert.Equal(t, "", expandPath(""))
}
