package config

import (
	"os/exec"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/czedu/internal/resilience"
)

// Config holds the full application configuration.
type Config struct {
	Registry     RegistryConfig     `yaml:"registry" mapstructure:"registry"`
	Universities UniversitiesConfig `yaml:"universities" mapstructure:"universities"`
	Browser      BrowserConfig      `yaml:"browser" mapstructure:"browser"`
	Geocode      GeocodeConfig      `yaml:"geocode" mapstructure:"geocode"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	Retry        RetryConfig        `yaml:"retry" mapstructure:"retry"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// RegistryConfig configures the school registry scraper.
type RegistryConfig struct {
	URL          string `yaml:"url" mapstructure:"url"`
	Backend      string `yaml:"backend" mapstructure:"backend"`
	Processes    int    `yaml:"processes" mapstructure:"processes"`
	FrameName    string `yaml:"frame_name" mapstructure:"frame_name"`
	TypeField    string `yaml:"type_field" mapstructure:"type_field"`
	RegionField  string `yaml:"region_field" mapstructure:"region_field"`
	RowsField    string `yaml:"rows_field" mapstructure:"rows_field"`
	SubmitField  string `yaml:"submit_field" mapstructure:"submit_field"`
	MaxRows      int    `yaml:"max_rows" mapstructure:"max_rows"`
	DetailPath   string `yaml:"detail_path" mapstructure:"detail_path"`
	NoResult     string `yaml:"no_result" mapstructure:"no_result"`
	Shuffle      bool   `yaml:"shuffle" mapstructure:"shuffle"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerS int    `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
}

// UniversitiesConfig configures the university student-count workbook source.
type UniversitiesConfig struct {
	URL        string `yaml:"url" mapstructure:"url"`
	SheetIndex int    `yaml:"sheet_index" mapstructure:"sheet_index"`
	TempDir    string `yaml:"temp_dir" mapstructure:"temp_dir"`
}

// BrowserConfig configures the headless browser backend.
type BrowserConfig struct {
	ExecPath      string `yaml:"exec_path" mapstructure:"exec_path"`
	Headless      bool   `yaml:"headless" mapstructure:"headless"`
	SettleMillis  int    `yaml:"settle_millis" mapstructure:"settle_millis"`
	RecycleOnFail bool   `yaml:"recycle_on_fail" mapstructure:"recycle_on_fail"`
}

// GeocodeConfig configures address geocoding.
type GeocodeConfig struct {
	NominatimURL string  `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	CountryCodes string  `yaml:"country_codes" mapstructure:"country_codes"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	GoogleKey    string  `yaml:"google_key" mapstructure:"google_key"`
	CachePath    string  `yaml:"cache_path" mapstructure:"cache_path"`
	CacheTTLDays int     `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
	Concurrency  int     `yaml:"concurrency" mapstructure:"concurrency"`
	FallbackLat  float64 `yaml:"fallback_lat" mapstructure:"fallback_lat"`
	FallbackLon  float64 `yaml:"fallback_lon" mapstructure:"fallback_lon"`
}

// OutputConfig configures written artifacts.
type OutputConfig struct {
	CRS          string `yaml:"crs" mapstructure:"crs"`
	CSVDelimiter string `yaml:"csv_delimiter" mapstructure:"csv_delimiter"`
}

// RetryConfig configures per-entity retries.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// Policy returns the retry policy. Unset or non-positive values keep the
// defaults; a zero jitter fraction disables jitter.
func (r RetryConfig) Policy() resilience.RetryConfig {
	p := resilience.DefaultRetryConfig()
	if r.MaxAttempts > 0 {
		p.MaxAttempts = r.MaxAttempts
	}
	if r.InitialBackoffMs > 0 {
		p.InitialBackoff = time.Duration(r.InitialBackoffMs) * time.Millisecond
	}
	if r.MaxBackoffMs > 0 {
		p.MaxBackoff = time.Duration(r.MaxBackoffMs) * time.Millisecond
	}
	if r.Multiplier > 0 {
		p.Multiplier = r.Multiplier
	}
	if r.JitterFraction >= 0 {
		p.JitterFraction = r.JitterFraction
	}
	return p
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from ./config.yaml (if present) and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from the given file, falling back to
// ./config.yaml when path is empty.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CZEDU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("registry.url", "https://rejstriky.msmt.cz/rejskol/default.aspx")
	v.SetDefault("registry.backend", "http")
	v.SetDefault("registry.processes", 0)
	v.SetDefault("registry.frame_name", "mainFrame")
	v.SetDefault("registry.type_field", "ctl38")
	v.SetDefault("registry.region_field", "ctl39")
	v.SetDefault("registry.rows_field", "txtPocetZaznamu")
	v.SetDefault("registry.submit_field", "btnVybrat")
	v.SetDefault("registry.max_rows", 9999)
	v.SetDefault("registry.detail_path", "VREJVerejne/PravOsoba.aspx")
	v.SetDefault("registry.no_result", "Zadaným podmínkám nevyhovuje žádný záznam")
	v.SetDefault("registry.shuffle", true)
	v.SetDefault("registry.timeout_secs", 120)
	v.SetDefault("registry.requests_per_sec", 10)
	v.SetDefault("registry.user_agent", "Mozilla/5.0 (X11; Linux x86_64) czedu/1.0")
	v.SetDefault("universities.url", "https://dsia.msmt.cz/vystupy/f2/f21.xlsx")
	v.SetDefault("universities.sheet_index", -1)
	v.SetDefault("universities.temp_dir", "")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.settle_millis", 1000)
	v.SetDefault("browser.recycle_on_fail", true)
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocode.user_agent", "schools_placing")
	v.SetDefault("geocode.country_codes", "cz")
	v.SetDefault("geocode.rate_limit", 1.0)
	v.SetDefault("geocode.google_key", "")
	v.SetDefault("geocode.cache_path", "")
	v.SetDefault("geocode.cache_ttl_days", 0)
	v.SetDefault("geocode.concurrency", 4)
	v.SetDefault("geocode.fallback_lat", 49.7437572)
	v.SetDefault("geocode.fallback_lon", 15.3386383)
	v.SetDefault("output.crs", "epsg:4326")
	v.SetDefault("output.csv_delimiter", ";")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 1000)
	v.SetDefault("retry.max_backoff_ms", 30000)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the configuration for the given command scope
// ("schools", "universities" or "run").
func (c *Config) Validate(scope string) error {
	if c.Geocode.RateLimit <= 0 {
		return eris.New("config: geocode.rate_limit must be positive")
	}
	if len(c.Output.CSVDelimiter) != 1 {
		return eris.Errorf("config: output.csv_delimiter must be a single character, got %q", c.Output.CSVDelimiter)
	}

	if scope == "universities" || scope == "run" {
		if c.Universities.URL == "" {
			return eris.New("config: universities.url is required")
		}
	}
	if scope == "universities" {
		return nil
	}

	if c.Registry.URL == "" {
		return eris.New("config: registry.url is required")
	}
	if c.Registry.Processes < 0 {
		return eris.Errorf("config: registry.processes must not be negative, got %d", c.Registry.Processes)
	}
	switch c.Registry.Backend {
	case "http":
	case "browser":
		if _, err := c.BrowserPath(); err != nil {
			return err
		}
	default:
		return eris.Errorf("config: unknown registry.backend %q (valid: http, browser)", c.Registry.Backend)
	}
	return nil
}

// browserCandidates are the executable names searched on PATH when
// browser.exec_path is not set.
var browserCandidates = []string{
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
	"chrome",
	"headless-shell",
}

// BrowserPath resolves the browser executable used by the browser backend.
func (c *Config) BrowserPath() (string, error) {
	if c.Browser.ExecPath != "" {
		p, err := exec.LookPath(c.Browser.ExecPath)
		if err != nil {
			return "", eris.Wrapf(err, "config: browser %q not found", c.Browser.ExecPath)
		}
		return p, nil
	}
	for _, name := range browserCandidates {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", eris.Errorf("config: no browser found on PATH (tried %s)", strings.Join(browserCandidates, ", "))
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
