package conf

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/schedulebridge/schedule-bridge/internal/biz/usecase"
)

// Config represents application configuration
type Config struct {
	Slack        SlackConfig
	Feishu       FeishuConfig
	LLM          LLMConfig
	Calendar     CalendarConfig
	Ledger       LedgerConfig
	Converter    ConverterConfig
	Fetcher      FetcherConfig
	Server       ServerConfig
	Housekeeping HousekeepingConfig

	// Prompts configuration (loaded from YAML)
	Prompts *PromptsConfig

	Debug bool
}

// SlackConfig contains Slack configuration; the channel is off without a bot token
type SlackConfig struct {
	BotToken      string
	SigningSecret string
	BotUserID     string
}

// Enabled reports whether the Slack channel should start
func (c SlackConfig) Enabled() bool { return c.BotToken != "" }

// FeishuConfig contains Feishu configuration; the channel is off without an app id
type FeishuConfig struct {
	AppID     string
	AppSecret string
}

// Enabled reports whether the Feishu channel should start
func (c FeishuConfig) Enabled() bool { return c.AppID != "" }

// LLMConfig contains the OpenAI-compatible endpoint and the ordered model list
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Provider    string
	Models      []string
	MaxAttempts int
	Backoff     time.Duration
	Timeout     time.Duration
}

// CalendarConfig contains the local calendar store settings
type CalendarConfig struct {
	DBPath   string
	Timezone string
	LinkFmt  string // e.g. https://cal.example.com/events/%s
}

// LedgerConfig contains idempotency ledger settings
type LedgerConfig struct {
	DBPath   string
	Window   time.Duration
	Capacity int
}

// ConverterConfig contains document conversion service settings
type ConverterConfig struct {
	Endpoint     string
	PollInterval time.Duration
	MaxWait      time.Duration
}

// FetcherConfig contains web page fetching settings
type FetcherConfig struct {
	Enabled  bool
	Timeout  time.Duration
	MaxChars int
}

// ServerConfig contains the HTTP listener settings
type ServerConfig struct {
	Addr string
}

// HousekeepingConfig contains the cron schedule for maintenance jobs
type HousekeepingConfig struct {
	Spec string
}

// envBindings maps config keys to their environment variables
var envBindings = map[string]string{
	"slack.bot_token":         "SLACK_BOT_TOKEN",
	"slack.signing_secret":    "SLACK_SIGNING_SECRET",
	"slack.bot_user_id":       "SLACK_BOT_USER_ID",
	"feishu.app_id":           "FEISHU_APP_ID",
	"feishu.app_secret":       "FEISHU_APP_SECRET",
	"llm.api_key":             "LLM_API_KEY",
	"llm.base_url":            "LLM_BASE_URL",
	"llm.provider":            "LLM_PROVIDER",
	"llm.models":              "LLM_MODELS",
	"llm.max_attempts":        "LLM_MAX_ATTEMPTS",
	"llm.backoff_seconds":     "LLM_BACKOFF_SECONDS",
	"llm.timeout_seconds":     "LLM_TIMEOUT_SECONDS",
	"calendar.db_path":        "CALENDAR_DB_PATH",
	"calendar.timezone":       "CALENDAR_TIMEZONE",
	"calendar.link_format":    "CALENDAR_LINK_FORMAT",
	"ledger.db_path":          "LEDGER_DB_PATH",
	"ledger.window_minutes":   "LEDGER_WINDOW_MINUTES",
	"ledger.capacity":         "LEDGER_CAPACITY",
	"converter.endpoint":      "CONVERTER_ENDPOINT",
	"converter.poll_seconds":  "CONVERTER_POLL_SECONDS",
	"converter.max_wait":      "CONVERTER_MAX_WAIT_SECONDS",
	"fetcher.enabled":         "FETCHER_ENABLED",
	"fetcher.timeout_seconds": "FETCHER_TIMEOUT_SECONDS",
	"fetcher.max_chars":       "FETCHER_MAX_CHARS",
	"server.addr":             "SERVER_ADDR",
	"housekeeping.spec":       "HOUSEKEEPING_SPEC",
	"prompts.path":            "PROMPTS_CONFIG_PATH",
	"debug":                   "DEBUG",
}

// LoadFromEnv loads configuration from environment variables.
// Callers load .env with godotenv first.
func LoadFromEnv() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".schedule-bridge")

	v := viper.New()
	v.AutomaticEnv()
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	v.SetDefault("llm.models", "gemini-2.5-flash,gemini-2.0-flash")
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.backoff_seconds", 2)
	v.SetDefault("llm.timeout_seconds", 60)
	v.SetDefault("calendar.db_path", filepath.Join(dataDir, "calendar.db"))
	v.SetDefault("calendar.timezone", "Asia/Tokyo")
	v.SetDefault("ledger.db_path", filepath.Join(dataDir, "ledger.db"))
	v.SetDefault("ledger.window_minutes", 10)
	v.SetDefault("ledger.capacity", 100)
	v.SetDefault("converter.poll_seconds", 2)
	v.SetDefault("converter.max_wait", 120)
	v.SetDefault("fetcher.enabled", true)
	v.SetDefault("fetcher.timeout_seconds", 20)
	v.SetDefault("fetcher.max_chars", 20000)
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("housekeeping.spec", "@every 10m")

	promptsConfig, err := LoadPromptsConfig(v.GetString("prompts.path"))
	if err != nil {
		// A broken prompts file should not take the bot down
		promptsConfig = DefaultPromptsConfig()
	}

	return &Config{
		Slack: SlackConfig{
			BotToken:      v.GetString("slack.bot_token"),
			SigningSecret: v.GetString("slack.signing_secret"),
			BotUserID:     v.GetString("slack.bot_user_id"),
		},
		Feishu: FeishuConfig{
			AppID:     v.GetString("feishu.app_id"),
			AppSecret: v.GetString("feishu.app_secret"),
		},
		LLM: LLMConfig{
			APIKey:      v.GetString("llm.api_key"),
			BaseURL:     v.GetString("llm.base_url"),
			Provider:    v.GetString("llm.provider"),
			Models:      splitList(v.GetString("llm.models")),
			MaxAttempts: v.GetInt("llm.max_attempts"),
			Backoff:     seconds(v.GetInt("llm.backoff_seconds")),
			Timeout:     seconds(v.GetInt("llm.timeout_seconds")),
		},
		Calendar: CalendarConfig{
			DBPath:   v.GetString("calendar.db_path"),
			Timezone: v.GetString("calendar.timezone"),
			LinkFmt:  v.GetString("calendar.link_format"),
		},
		Ledger: LedgerConfig{
			DBPath:   v.GetString("ledger.db_path"),
			Window:   time.Duration(v.GetInt("ledger.window_minutes")) * time.Minute,
			Capacity: v.GetInt("ledger.capacity"),
		},
		Converter: ConverterConfig{
			Endpoint:     v.GetString("converter.endpoint"),
			PollInterval: seconds(v.GetInt("converter.poll_seconds")),
			MaxWait:      seconds(v.GetInt("converter.max_wait")),
		},
		Fetcher: FetcherConfig{
			Enabled:  v.GetBool("fetcher.enabled"),
			Timeout:  seconds(v.GetInt("fetcher.timeout_seconds")),
			MaxChars: v.GetInt("fetcher.max_chars"),
		},
		Server: ServerConfig{
			Addr: v.GetString("server.addr"),
		},
		Housekeeping: HousekeepingConfig{
			Spec: v.GetString("housekeeping.spec"),
		},
		Prompts: promptsConfig,
		Debug:   v.GetBool("debug"),
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Location resolves the configured timezone
func (c *CalendarConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// ToExtractionConfig converts to extraction usecase configuration
func (c *Config) ToExtractionConfig(loc *time.Location) usecase.ExtractionConfig {
	policy := usecase.DefaultRetryPolicy
	if c.LLM.MaxAttempts > 0 {
		policy.MaxAttempts = c.LLM.MaxAttempts
	}
	if c.LLM.Backoff > 0 {
		policy.Backoff = c.LLM.Backoff
	}

	cfg := usecase.ExtractionConfig{
		Models:   c.LLM.Models,
		Policy:   policy,
		Location: loc,
	}
	if c.Prompts != nil {
		cfg.Prompts = c.Prompts.ToExtractionPrompts()
	}
	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !c.Slack.Enabled() && !c.Feishu.Enabled() {
		return &ConfigError{Field: "SLACK_BOT_TOKEN/FEISHU_APP_ID", Message: "at least one chat channel is required"}
	}
	if c.Slack.Enabled() && c.Slack.SigningSecret == "" {
		return &ConfigError{Field: "SLACK_SIGNING_SECRET", Message: "required when Slack is enabled"}
	}
	if c.Feishu.Enabled() && c.Feishu.AppSecret == "" {
		return &ConfigError{Field: "FEISHU_APP_SECRET", Message: "required when Feishu is enabled"}
	}
	return c.ValidateCore()
}

// ValidateCore validates the settings shared by the server and the CLI
func (c *Config) ValidateCore() error {
	if c.LLM.APIKey == "" {
		return &ConfigError{Field: "LLM_API_KEY", Message: "required"}
	}
	if len(c.LLM.Models) == 0 {
		return &ConfigError{Field: "LLM_MODELS", Message: "at least one model is required"}
	}
	if _, err := c.Calendar.Location(); err != nil {
		return &ConfigError{Field: "CALENDAR_TIMEZONE", Message: err.Error()}
	}
	if c.Ledger.Window <= 0 {
		return &ConfigError{Field: "LEDGER_WINDOW_MINUTES", Message: "must be positive"}
	}
	if c.Ledger.Capacity <= 0 {
		return &ConfigError{Field: "LEDGER_CAPACITY", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
