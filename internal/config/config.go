// Package config loads and validates report configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Source modes.
const (
	SourceModeHeadless = "headless"
	SourceModeStatic   = "static"
)

// Config captures all knobs loaded via Viper.
type Config struct {
	Source     SourceConfig     `mapstructure:"source"`
	Population PopulationConfig `mapstructure:"population"`
	Sheets     SheetsConfig     `mapstructure:"sheets"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	DryRun     bool             `mapstructure:"dry_run"`
}

// SourceConfig controls how the Kubestronaut page is loaded.
type SourceConfig struct {
	Mode               string `mapstructure:"mode"`
	URL                string `mapstructure:"url"`
	SelectClass        string `mapstructure:"select_class"`
	UserAgent          string `mapstructure:"user_agent"`
	NavTimeoutSeconds  int    `mapstructure:"nav_timeout_seconds"`
	WaitTimeoutSeconds int    `mapstructure:"wait_timeout_seconds"`
	SettleDelayMs      int    `mapstructure:"settle_delay_ms"`
	RespectRobots      bool   `mapstructure:"respect_robots"`
}

// PopulationConfig configures the REST Countries lookups.
type PopulationConfig struct {
	BaseURL               string   `mapstructure:"base_url"`
	TimeoutSeconds        int      `mapstructure:"timeout_seconds"`
	RequestTimeoutSeconds int      `mapstructure:"request_timeout_seconds"`
	Concurrency           int      `mapstructure:"concurrency"`
	RatePerSecond         float64  `mapstructure:"rate_per_second"`
	FailFast              bool     `mapstructure:"fail_fast"`
	SecondMatch           []string `mapstructure:"second_match"`
}

// SheetsConfig points at the destination spreadsheet.
type SheetsConfig struct {
	CredentialsFile string       `mapstructure:"credentials_file"`
	SpreadsheetID   string       `mapstructure:"spreadsheet_id"`
	Worksheet       string       `mapstructure:"worksheet"`
	Layout          SheetsLayout `mapstructure:"layout"`
}

// SheetsLayout places the report blocks on the worksheet, in A1 notation.
type SheetsLayout struct {
	RegionHeader       string `mapstructure:"region_header"`
	RegionCountHeader  string `mapstructure:"region_count_header"`
	CountryHeader      string `mapstructure:"country_header"`
	CountryCountHeader string `mapstructure:"country_count_header"`
	PopulationHeader   string `mapstructure:"population_header"`
	TotalLabel         string `mapstructure:"total_label"`
	TotalValue         string `mapstructure:"total_value"`
	RegionStart        string `mapstructure:"region_start"`
	CountryStart       string `mapstructure:"country_start"`
}

// NotifyConfig holds metadata for the run notification.
type NotifyConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig configures the optional pushgateway export.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("KUBESTRONAUTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.mode", SourceModeHeadless)
	v.SetDefault("source.url", "https://www.cncf.io/training/kubestronaut/")
	v.SetDefault("source.select_class", "sf-input-select")
	v.SetDefault("source.user_agent", "")
	v.SetDefault("source.nav_timeout_seconds", 45)
	v.SetDefault("source.wait_timeout_seconds", 10)
	v.SetDefault("source.settle_delay_ms", 3000)
	v.SetDefault("source.respect_robots", false)
	v.SetDefault("population.base_url", "https://restcountries.com/v3.1")
	v.SetDefault("population.timeout_seconds", 30)
	v.SetDefault("population.request_timeout_seconds", 0)
	v.SetDefault("population.concurrency", 16)
	v.SetDefault("population.rate_per_second", 0)
	v.SetDefault("population.fail_fast", true)
	v.SetDefault("population.second_match", []string{"united states", "georgia"})
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.worksheet", "kubestronauts")
	v.SetDefault("sheets.layout.region_header", "A1")
	v.SetDefault("sheets.layout.region_count_header", "B1")
	v.SetDefault("sheets.layout.country_header", "D1")
	v.SetDefault("sheets.layout.country_count_header", "E1")
	v.SetDefault("sheets.layout.population_header", "F1")
	v.SetDefault("sheets.layout.total_label", "A10")
	v.SetDefault("sheets.layout.total_value", "B10")
	v.SetDefault("sheets.layout.region_start", "A2")
	v.SetDefault("sheets.layout.country_start", "D2")
	v.SetDefault("notify.project_id", "")
	v.SetDefault("notify.topic", "")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "kubestronauts")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("dry_run", false)
}

// bindLegacyEnv keeps the GSHEET_CREDS/GSHEET_KEY variables working next to the prefixed names.
func bindLegacyEnv(v *viper.Viper) error {
	if err := v.BindEnv("sheets.credentials_file", "KUBESTRONAUTS_SHEETS_CREDENTIALS_FILE", "GSHEET_CREDS"); err != nil {
		return fmt.Errorf("bind sheets.credentials_file: %w", err)
	}
	if err := v.BindEnv("sheets.spreadsheet_id", "KUBESTRONAUTS_SHEETS_SPREADSHEET_ID", "GSHEET_KEY"); err != nil {
		return fmt.Errorf("bind sheets.spreadsheet_id: %w", err)
	}
	return nil
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Source.Mode {
	case SourceModeHeadless, SourceModeStatic:
	default:
		return fmt.Errorf("source.mode must be %q or %q, got %q", SourceModeHeadless, SourceModeStatic, c.Source.Mode)
	}
	if strings.TrimSpace(c.Source.URL) == "" {
		return fmt.Errorf("source.url is required")
	}
	if strings.TrimSpace(c.Source.SelectClass) == "" {
		return fmt.Errorf("source.select_class is required")
	}
	if c.Source.WaitTimeoutSeconds <= 0 {
		return fmt.Errorf("source.wait_timeout_seconds must be > 0")
	}
	if c.Source.SettleDelayMs < 0 {
		return fmt.Errorf("source.settle_delay_ms must be >= 0")
	}
	if strings.TrimSpace(c.Population.BaseURL) == "" {
		return fmt.Errorf("population.base_url is required")
	}
	if c.Population.TimeoutSeconds <= 0 {
		return fmt.Errorf("population.timeout_seconds must be > 0")
	}
	if c.Population.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("population.request_timeout_seconds must be >= 0")
	}
	if c.Population.Concurrency <= 0 {
		return fmt.Errorf("population.concurrency must be > 0")
	}
	if c.Population.RatePerSecond < 0 {
		return fmt.Errorf("population.rate_per_second must be >= 0")
	}
	if c.Notify.Topic != "" && c.Notify.ProjectID == "" {
		return fmt.Errorf("notify.project_id must be set when notify.topic is set")
	}
	return nil
}

// RequireSheets reports whether the spreadsheet destination is fully configured.
// Commands that only scrape never call it.
func (c Config) RequireSheets() error {
	if c.Sheets.CredentialsFile == "" {
		return fmt.Errorf("sheets.credentials_file (or GSHEET_CREDS) must be set")
	}
	if c.Sheets.SpreadsheetID == "" {
		return fmt.Errorf("sheets.spreadsheet_id (or GSHEET_KEY) must be set")
	}
	if c.Sheets.Worksheet == "" {
		return fmt.Errorf("sheets.worksheet must be set")
	}
	return nil
}

// NavTimeout returns the page navigation bound.
func (s SourceConfig) NavTimeout() time.Duration {
	return time.Duration(s.NavTimeoutSeconds) * time.Second
}

// WaitTimeout returns how long to wait for the select control to render.
func (s SourceConfig) WaitTimeout() time.Duration {
	return time.Duration(s.WaitTimeoutSeconds) * time.Second
}

// SettleDelay returns the pause taken after the control renders.
func (s SourceConfig) SettleDelay() time.Duration {
	return time.Duration(s.SettleDelayMs) * time.Millisecond
}

// Timeout returns the HTTP client timeout for population lookups.
func (p PopulationConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// RequestTimeout returns the per-lookup bound, or zero when disabled.
func (p PopulationConfig) RequestTimeout() time.Duration {
	return time.Duration(p.RequestTimeoutSeconds) * time.Second
}
