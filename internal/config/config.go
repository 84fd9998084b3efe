package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/envoverlay/internal/document"
	"github.com/eugenenazirov/envoverlay/internal/overlay"
)

const (
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50

	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "ENVOVERLAY_"
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Sources              []string
	Output               string
	Format               string
	Rules                []overlay.Rule
	NullForUnset         bool
	RequireExisting      bool
	LogLevel             string
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Sources              []string      `yaml:"sources"`
	Output               string        `yaml:"output"`
	Format               string        `yaml:"format"`
	Rules                []string      `yaml:"rules"`
	NullForUnset         *bool         `yaml:"null_for_unset"`
	RequireExisting      *bool         `yaml:"require_existing"`
	LogLevel             string        `yaml:"log_level"`
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// envConfig is populated from ENVOVERLAY_* variables. Negative defaults mark
// numeric values that were not set.
type envConfig struct {
	Sources             []string      `env:"SOURCES" envSeparator:","`
	Output              string        `env:"OUTPUT"`
	Format              string        `env:"FORMAT"`
	Rules               []string      `env:"RULES" envSeparator:","`
	NullForUnset        bool          `env:"NULL_FOR_UNSET"`
	RequireExisting     bool          `env:"REQUIRE_EXISTING"`
	LogLevel            string        `env:"LOG_LEVEL"`
	Port                string        `env:"PORT"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD"`
	RateLimitRPS        float64       `env:"RATE_LIMIT_RPS" envDefault:"-1"`
	RateLimitBurst      int           `env:"RATE_LIMIT_BURST" envDefault:"-1"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile      string
	Sources         []string
	Output          *string
	Format          *string
	Rules           []string
	NullForUnset    *bool
	RequireExisting *bool
	LogLevel        *string
	Port            *string
	RateLimitRPS    *float64
	RateLimitBurst  *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("load environment config: %w", err)
	}

	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	if len(cfg.Rules) == 0 {
		cfg.Rules = overlay.DefaultRules()
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		LogLevel:             defaultLogLevel,
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	if len(yamlCfg.Sources) > 0 {
		cfg.Sources = yamlCfg.Sources
	}
	if yamlCfg.Output != "" {
		cfg.Output = yamlCfg.Output
	}
	if yamlCfg.Format != "" {
		cfg.Format = yamlCfg.Format
	}

	if len(yamlCfg.Rules) > 0 {
		rules, err := overlay.ParseRules(yamlCfg.Rules)
		if err != nil {
			return fmt.Errorf("parse rules: %w", err)
		}
		cfg.Rules = rules
	}

	if yamlCfg.NullForUnset != nil {
		cfg.NullForUnset = *yamlCfg.NullForUnset
	}
	if yamlCfg.RequireExisting != nil {
		cfg.RequireExisting = *yamlCfg.RequireExisting
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	durations := []struct {
		raw    string
		target *time.Duration
	}{
		{yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{yamlCfg.WriteTimeout, &cfg.WriteTimeout},
		{yamlCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", d.raw, err)
		}
		*d.target = parsed
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}

	return nil
}

// applyEnvConfig applies ENVOVERLAY_* environment variables.
func applyEnvConfig(cfg *Config) error {
	var envCfg envConfig
	if err := env.ParseWithOptions(&envCfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return err
	}

	if sources := trimAll(envCfg.Sources); len(sources) > 0 {
		cfg.Sources = sources
	}
	if output := strings.TrimSpace(envCfg.Output); output != "" {
		cfg.Output = output
	}
	if format := strings.TrimSpace(envCfg.Format); format != "" {
		cfg.Format = format
	}

	if raw := trimAll(envCfg.Rules); len(raw) > 0 {
		rules, err := overlay.ParseRules(raw)
		if err != nil {
			return fmt.Errorf("parse %sRULES: %w", EnvPrefix, err)
		}
		cfg.Rules = rules
	}

	if envCfg.NullForUnset {
		cfg.NullForUnset = true
	}
	if envCfg.RequireExisting {
		cfg.RequireExisting = true
	}
	if level := strings.TrimSpace(envCfg.LogLevel); level != "" {
		cfg.LogLevel = level
	}
	if port := strings.TrimSpace(envCfg.Port); port != "" {
		cfg.Port = port
	}
	if envCfg.ShutdownGracePeriod > 0 {
		cfg.ShutdownGracePeriod = envCfg.ShutdownGracePeriod
	}
	if envCfg.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = envCfg.RateLimitRPS
	}
	if envCfg.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = envCfg.RateLimitBurst
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	if len(overrides.Sources) > 0 {
		cfg.Sources = overrides.Sources
	}

	if overrides.Output != nil && *overrides.Output != "" {
		cfg.Output = *overrides.Output
	}

	if overrides.Format != nil && *overrides.Format != "" {
		cfg.Format = *overrides.Format
	}

	if len(overrides.Rules) > 0 {
		rules, err := overlay.ParseRules(overrides.Rules)
		if err != nil {
			return fmt.Errorf("parse rules: %w", err)
		}
		cfg.Rules = rules
	}

	if overrides.NullForUnset != nil {
		cfg.NullForUnset = *overrides.NullForUnset
	}

	if overrides.RequireExisting != nil {
		cfg.RequireExisting = *overrides.RequireExisting
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("at least one configuration source is required")
	}
	if cfg.Format != "" {
		if _, err := document.ParseFormat(cfg.Format); err != nil {
			return err
		}
	}
	for _, rule := range cfg.Rules {
		if err := rule.Validate(); err != nil {
			return err
		}
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	return nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
