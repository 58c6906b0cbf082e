package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the fusegate API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Fusion    FusionConfig    `yaml:"fusion"`
	Cache     CacheConfig     `yaml:"cache"`
	Rate      RateConfig      `yaml:"rate"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig maps API keys to tenants.
type AuthConfig struct {
	APIKeys []APIKeyConfig `yaml:"api_keys"`
}

// APIKeyConfig binds one API key to a tenant identity.
type APIKeyConfig struct {
	Key     string `yaml:"key"`
	Tenant  string `yaml:"tenant"`
	OpClass string `yaml:"op_class"` // default: search
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds search backend connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	AdapterTimeoutMS int      `yaml:"adapter_timeout_ms"`
}

// FusionConfig holds rank fusion settings.
type FusionConfig struct {
	K0            int `yaml:"k0"`             // RRF damping constant (default 60)
	CandidatePool int `yaml:"candidate_pool"` // per-source candidate count floor (default 100)
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
	MaxEntries int `yaml:"max_entries"`
}

// RateConfig holds admission gate settings.
type RateConfig struct {
	Strategy      string                 `yaml:"strategy"` // fixed_window, sliding_window, token_bucket, leaky_bucket
	MaxDeferMS    int                    `yaml:"max_defer_ms"`
	DefaultLimits LimitsConfig           `yaml:"default_limits"`
	Tenants       map[string]TenantsRate `yaml:"tenants"`
}

// TenantsRate overrides strategy and limits for one tenant.
type TenantsRate struct {
	Strategy string       `yaml:"strategy"` // empty: inherit rate.strategy
	Limits   LimitsConfig `yaml:"limits"`
}

// LimitsConfig holds per-window request budgets. Zero disables a window.
type LimitsConfig struct {
	PerMinute int `yaml:"per_minute"`
	PerHour   int `yaml:"per_hour"`
	PerDay    int `yaml:"per_day"`
	Burst     int `yaml:"burst"`
}

// EmbeddingConfig holds the optional query embedder settings.
// When unset, text-only requests skip the vector side.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.AdapterTimeoutMS <= 0 {
		c.Database.AdapterTimeoutMS = 2000
	}
	if c.Fusion.K0 <= 0 {
		c.Fusion.K0 = 60
	}
	if c.Fusion.CandidatePool <= 0 {
		c.Fusion.CandidatePool = 100
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 60
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 4096
	}
	if c.Rate.Strategy == "" {
		c.Rate.Strategy = "token_bucket"
	}
	if c.Rate.MaxDeferMS <= 0 {
		c.Rate.MaxDeferMS = 500
	}
	if c.Rate.DefaultLimits == (LimitsConfig{}) {
		c.Rate.DefaultLimits = LimitsConfig{PerMinute: 120, PerHour: 3000, Burst: 20}
	}
	if c.Rate.DefaultLimits.Burst <= 0 {
		c.Rate.DefaultLimits.Burst = 1
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if !validStrategy(c.Rate.Strategy) {
		return fmt.Errorf("rate.strategy must be one of fixed_window, sliding_window, token_bucket, leaky_bucket, got %q", c.Rate.Strategy)
	}
	for name, t := range c.Rate.Tenants {
		if t.Strategy != "" && !validStrategy(t.Strategy) {
			return fmt.Errorf("rate.tenants.%s.strategy is invalid: %q", name, t.Strategy)
		}
	}
	for i, k := range c.Auth.APIKeys {
		if k.Key != "" && k.Tenant == "" {
			return fmt.Errorf("auth.api_keys[%d]: tenant is required", i)
		}
	}
	return nil
}

func validStrategy(s string) bool {
	switch s {
	case "fixed_window", "sliding_window", "token_bucket", "leaky_bucket":
		return true
	}
	return false
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
