package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"topicmon/internal/core"
)

// Config holds all application configuration
type Config struct {
	App      App      `mapstructure:"app"`
	AI       AI       `mapstructure:"ai"`
	Feeds    Feeds    `mapstructure:"feeds"`
	Analysis Analysis `mapstructure:"analysis"`
	Output   Output   `mapstructure:"output"`
	Schedule Schedule `mapstructure:"schedule"`
	Cache    Cache    `mapstructure:"cache"`
	Logging  Logging  `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	DataDir    string `mapstructure:"data_dir"`
	ReportsDir string `mapstructure:"reports_dir"`
	Timezone   string `mapstructure:"timezone"`
}

// AI holds language model configuration
type AI struct {
	Provider          string       `mapstructure:"provider"`
	Timeout           string       `mapstructure:"timeout"`
	RequestsPerMinute int          `mapstructure:"requests_per_minute"`
	Temperature       float64      `mapstructure:"temperature"`
	MaxTokens         int          `mapstructure:"max_tokens"`
	OpenAI            OpenAIConfig `mapstructure:"openai"`
	Gemini            GeminiConfig `mapstructure:"gemini"`
}

// OpenAIConfig holds configuration for any OpenAI-compatible endpoint
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Feeds holds RSS fetching configuration
type Feeds struct {
	OPMLFile        string `mapstructure:"opml_file"`
	WindowHours     int    `mapstructure:"window_hours"`
	Timeout         string `mapstructure:"timeout"`
	Retries         int    `mapstructure:"retries"`
	RetryDelay      string `mapstructure:"retry_delay"`
	UserAgent       string `mapstructure:"user_agent"`
	MaxContentChars int    `mapstructure:"max_content_chars"`
}

// Analysis holds topic extraction and scoring configuration
type Analysis struct {
	CategoriesFile       string `mapstructure:"categories_file"`
	DefaultCategory      string `mapstructure:"default_category"`
	MinArticlesThreshold int    `mapstructure:"min_articles_threshold"`
}

// Output holds report configuration
type Output struct {
	TopicsPerReport        int    `mapstructure:"topics_per_report"`
	ArticlesPerTopic       int    `mapstructure:"articles_per_topic"`
	Translate              bool   `mapstructure:"translate"`
	Language               string `mapstructure:"language"`
	RecommendationMaxChars int    `mapstructure:"recommendation_max_chars"`
}

// Schedule holds the HH:MM trigger time of each slot
type Schedule struct {
	Morning   string `mapstructure:"morning"`
	Afternoon string `mapstructure:"afternoon"`
	Evening   string `mapstructure:"evening"`
}

// Cache holds extraction cache configuration
type Cache struct {
	Enabled bool   `mapstructure:"enabled"`
	TTL     string `mapstructure:"ttl"`
}

// Logging holds logging configuration
type Logging struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	FilePath string `mapstructure:"file_path"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".topicmon")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.data_dir", "data")
	viper.SetDefault("app.reports_dir", "reports")
	viper.SetDefault("app.timezone", "Asia/Shanghai")

	viper.SetDefault("ai.provider", "openai")
	viper.SetDefault("ai.timeout", "60s")
	viper.SetDefault("ai.requests_per_minute", 30)
	viper.SetDefault("ai.temperature", 0.3)
	viper.SetDefault("ai.max_tokens", 2000)
	viper.SetDefault("ai.openai.base_url", "https://open.bigmodel.cn/api/paas/v4/")
	viper.SetDefault("ai.openai.model", "glm-4-flash")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")

	viper.SetDefault("feeds.opml_file", "feeds.opml")
	viper.SetDefault("feeds.window_hours", 24)
	viper.SetDefault("feeds.timeout", "15s")
	viper.SetDefault("feeds.retries", 2)
	viper.SetDefault("feeds.retry_delay", "2s")
	viper.SetDefault("feeds.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	viper.SetDefault("feeds.max_content_chars", 2000)

	viper.SetDefault("analysis.categories_file", "")
	viper.SetDefault("analysis.default_category", "Industry News")
	viper.SetDefault("analysis.min_articles_threshold", 5)

	viper.SetDefault("output.topics_per_report", 10)
	viper.SetDefault("output.articles_per_topic", 5)
	viper.SetDefault("output.translate", true)
	viper.SetDefault("output.language", "Chinese")
	viper.SetDefault("output.recommendation_max_chars", 300)

	viper.SetDefault("schedule.morning", "09:30")
	viper.SetDefault("schedule.afternoon", "15:30")
	viper.SetDefault("schedule.evening", "20:30")

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.ttl", "72h")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("logging.file_path", "")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	// OpenAI-compatible key; the default endpoint is Zhipu GLM
	bindEnvKeys("ai.openai.api_key", []string{
		"ZHIPU_API_KEY",
		"OPENAI_API_KEY",
	})

	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("ai.provider", []string{
		"TOPICMON_AI_PROVIDER",
	})

	bindEnvKeys("app.timezone", []string{
		"TOPICMON_TIMEZONE",
	})

	bindEnvKeys("logging.level", []string{
		"TOPICMON_LOG_LEVEL",
		"LOG_LEVEL",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	config.App.DataDir = expandPath(config.App.DataDir)
	config.App.ReportsDir = expandPath(config.App.ReportsDir)
	config.Feeds.OPMLFile = expandPath(config.Feeds.OPMLFile)
	config.Analysis.CategoriesFile = expandPath(config.Analysis.CategoriesFile)
	config.Logging.FilePath = expandPath(config.Logging.FilePath)
	config.AI.Provider = strings.ToLower(strings.TrimSpace(config.AI.Provider))

	durations := map[string]string{
		"ai.timeout":        config.AI.Timeout,
		"feeds.timeout":     config.Feeds.Timeout,
		"feeds.retry_delay": config.Feeds.RetryDelay,
		"cache.ttl":         config.Cache.TTL,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures the configuration is well formed. Settings only
// needed to run the pipeline are checked by ValidatePipeline.
func validateConfig(config *Config) error {
	var errors []string

	switch config.AI.Provider {
	case "openai":
		if config.AI.OpenAI.Model == "" {
			errors = append(errors, "ai.openai.model must not be empty")
		}
	case "gemini":
	default:
		errors = append(errors, fmt.Sprintf("Unknown AI provider: %s. Supported: openai, gemini", config.AI.Provider))
	}

	if _, err := time.LoadLocation(config.App.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("Invalid timezone %q: %v", config.App.Timezone, err))
	}

	for _, slot := range core.Slots() {
		if _, _, err := ParseClock(config.Schedule.TimeFor(slot)); err != nil {
			errors = append(errors, fmt.Sprintf("Invalid schedule.%s: %v", slot, err))
		}
	}

	if config.Feeds.WindowHours <= 0 {
		errors = append(errors, "feeds.window_hours must be positive")
	}
	if config.Feeds.Retries < 1 {
		errors = append(errors, "feeds.retries must be at least 1")
	}
	if config.Output.TopicsPerReport < 1 {
		errors = append(errors, "output.topics_per_report must be at least 1")
	}
	if config.AI.RequestsPerMinute < 0 {
		errors = append(errors, "ai.requests_per_minute must not be negative")
	}

	return configErrors(errors)
}

// ValidatePipeline checks the settings required by commands that call the
// language model. withSources also requires a readable OPML file.
func (c *Config) ValidatePipeline(withSources bool) error {
	var errors []string

	switch c.AI.Provider {
	case "openai":
		if c.AI.OpenAI.APIKey == "" {
			errors = append(errors, "OpenAI-compatible API key is required. Set ZHIPU_API_KEY or OPENAI_API_KEY environment variable or ai.openai.api_key in config file")
		}
	case "gemini":
		if c.AI.Gemini.APIKey == "" {
			errors = append(errors, "Gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file")
		}
	}

	if withSources {
		if err := checkReadableFile(c.Feeds.OPMLFile); err != nil {
			errors = append(errors, fmt.Sprintf("feeds.opml_file: %v", err))
		}
	}

	return configErrors(errors)
}

func checkReadableFile(path string) error {
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

func configErrors(errors []string) error {
	if len(errors) == 0 {
		return nil
	}
	return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
}

// ParseClock parses an HH:MM time of day.
func ParseClock(value string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	return t.Hour(), t.Minute(), nil
}

// TimeFor returns the configured HH:MM for a slot.
func (s Schedule) TimeFor(slot core.TimeSlot) string {
	switch slot {
	case core.SlotMorning:
		return s.Morning
	case core.SlotAfternoon:
		return s.Afternoon
	case core.SlotEvening:
		return s.Evening
	default:
		return ""
	}
}

// Location returns the configured timezone. Validation guarantees it loads.
func (a App) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Duration parses a validated duration string, returning fallback when empty.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
