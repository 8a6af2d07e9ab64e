// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config is the full application configuration. Values come from defaults,
// an optional YAML file, PAGECHECK_* environment variables and CLI flags,
// in ascending order of precedence.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Harness   HarnessConfig   `mapstructure:"harness" yaml:"harness"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts" yaml:"artifacts"`
	Report    ReportConfig    `mapstructure:"report" yaml:"report"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Watch     WatchConfig     `mapstructure:"watch" yaml:"watch"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the headless browser.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	NoSandbox         bool          `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	OperationTimeout  time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
	Debug             bool          `mapstructure:"debug" yaml:"debug"`
}

// HarnessConfig tunes how the runner waits on page conditions.
type HarnessConfig struct {
	// WaitTimeout bounds condition waits that carry no explicit timeout.
	WaitTimeout time.Duration `mapstructure:"wait_timeout" yaml:"wait_timeout"`
	// PollInterval paces condition polls. It also bounds how late a
	// satisfied condition can be detected, so it must stay at 500ms or
	// below.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// ArtifactsConfig controls where run evidence lands on disk.
type ArtifactsConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
	// ScreenshotQuality of 100 produces PNG; anything lower switches the
	// capture to JPEG, which clashes with the .png artifact names.
	ScreenshotQuality int `mapstructure:"screenshot_quality" yaml:"screenshot_quality"`
}

// ReportConfig selects an optional machine readable report next to the
// always printed console summary.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// StoreConfig enables the PostgreSQL run history.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN     string `mapstructure:"dsn" yaml:"-"`
}

// WatchConfig tunes the re-run-on-change mode.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
	All      bool          `mapstructure:"all" yaml:"all"`
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pagecheck")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 720)
	v.SetDefault("browser.navigation_timeout", "45s")
	v.SetDefault("browser.operation_timeout", "30s")
	v.SetDefault("browser.debug", false)

	// -- Harness --
	v.SetDefault("harness.wait_timeout", "5s")
	v.SetDefault("harness.poll_interval", "200ms")

	// -- Artifacts --
	v.SetDefault("artifacts.dir", "verification")
	v.SetDefault("artifacts.screenshot_quality", 100)

	// -- Report --
	v.SetDefault("report.format", "text")
	v.SetDefault("report.path", "")

	// -- Store --
	v.SetDefault("store.enabled", false)

	// -- Watch --
	v.SetDefault("watch.debounce", "400ms")
	v.SetDefault("watch.all", false)
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The DSN usually carries credentials, so it is taken from the
	// environment rather than the config file.
	v.BindEnv("store.dsn", "PAGECHECK_STORE_DSN")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	var err error
	if cfg.Artifacts.Dir, err = expandPath(cfg.Artifacts.Dir); err != nil {
		return nil, fmt.Errorf("artifacts.dir: %w", err)
	}
	if cfg.Logger.LogFile, err = expandPath(cfg.Logger.LogFile); err != nil {
		return nil, fmt.Errorf("logger.log_file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPath resolves a leading ~ to the user's home directory.
func expandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	return homedir.Expand(p)
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Logger.Validate(); err != nil {
		return fmt.Errorf("logger configuration invalid: %w", err)
	}
	if err := c.Browser.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	if err := c.Harness.Validate(); err != nil {
		return fmt.Errorf("harness configuration invalid: %w", err)
	}
	if err := c.Artifacts.Validate(); err != nil {
		return fmt.Errorf("artifacts configuration invalid: %w", err)
	}
	if err := c.Report.Validate(); err != nil {
		return fmt.Errorf("report configuration invalid: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store configuration invalid: %w", err)
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("watch configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the logger settings.
func (l *LoggerConfig) Validate() error {
	switch l.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("format must be 'console' or 'json', got %q", l.Format)
	}
}

// Validate checks the browser settings.
func (b *BrowserConfig) Validate() error {
	if b.WindowWidth <= 0 || b.WindowHeight <= 0 {
		return fmt.Errorf("window dimensions must be positive, got %dx%d", b.WindowWidth, b.WindowHeight)
	}
	if b.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation_timeout must be a positive duration")
	}
	if b.OperationTimeout <= 0 {
		return fmt.Errorf("operation_timeout must be a positive duration")
	}
	return nil
}

// Validate checks the harness wait settings.
func (h *HarnessConfig) Validate() error {
	if h.WaitTimeout <= 0 {
		return fmt.Errorf("wait_timeout must be a positive duration")
	}
	if h.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be a positive duration")
	}
	if h.PollInterval > 500*time.Millisecond {
		return fmt.Errorf("poll_interval must be 500ms or less, got %v", h.PollInterval)
	}
	return nil
}

// Validate checks the artifact settings.
func (a *ArtifactsConfig) Validate() error {
	if a.Dir == "" {
		return fmt.Errorf("dir must not be empty")
	}
	if a.ScreenshotQuality < 1 || a.ScreenshotQuality > 100 {
		return fmt.Errorf("screenshot_quality must be between 1 and 100, got %d", a.ScreenshotQuality)
	}
	return nil
}

// Validate checks the report settings.
func (r *ReportConfig) Validate() error {
	switch r.Format {
	case "text", "json", "junit":
		return nil
	default:
		return fmt.Errorf("format must be 'text', 'json' or 'junit', got %q", r.Format)
	}
}

// Validate checks the store settings.
func (s *StoreConfig) Validate() error {
	if s.Enabled && s.DSN == "" {
		return fmt.Errorf("dsn is required when the store is enabled (set PAGECHECK_STORE_DSN)")
	}
	return nil
}

// Validate checks the watch settings.
func (w *WatchConfig) Validate() error {
	if w.Debounce <= 0 {
		return fmt.Errorf("debounce must be a positive duration")
	}
	return nil
}
