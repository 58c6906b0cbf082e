package config

import (
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.HTTP.Port = 0 },
			wantErr: "http.port must be between 1 and 65535, got 0",
		},
		{
			name:    "port too large",
			mutate:  func(c *Config) { c.HTTP.Port = 70000 },
			wantErr: "http.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "missing backend addrs",
			mutate:  func(c *Config) { c.Database.Addrs = nil },
			wantErr: "database.addrs is required",
		},
		{
			name:    "unknown strategy",
			mutate:  func(c *Config) { c.Rate.Strategy = "round_robin" },
			wantErr: `rate.strategy must be one of fixed_window, sliding_window, token_bucket, leaky_bucket, got "round_robin"`,
		},
		{
			name: "unknown tenant strategy",
			mutate: func(c *Config) {
				c.Rate.Tenants = map[string]TenantsRate{
					"batch": {Strategy: "adaptive"},
				}
			},
			wantErr: `rate.tenants.batch.strategy is invalid: "adaptive"`,
		},
		{
			name: "tenant strategy may be empty",
			mutate: func(c *Config) {
				c.Rate.Tenants = map[string]TenantsRate{
					"batch": {Limits: LimitsConfig{PerMinute: 600}},
				}
			},
		},
		{
			name: "api key without tenant",
			mutate: func(c *Config) {
				c.Auth.APIKeys = []APIKeyConfig{{Key: "sk-123"}}
			},
			wantErr: "auth.api_keys[0]: tenant is required",
		},
		{
			name: "api key with tenant",
			mutate: func(c *Config) {
				c.Auth.APIKeys = []APIKeyConfig{{Key: "sk-123", Tenant: "acme"}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.wantErr)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("expected error %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Fusion.K0 != 60 {
		t.Errorf("expected default k0=60, got %d", cfg.Fusion.K0)
	}
	if cfg.Fusion.CandidatePool != 100 {
		t.Errorf("expected default candidate_pool=100, got %d", cfg.Fusion.CandidatePool)
	}
	if cfg.Cache.TTLSeconds != 60 {
		t.Errorf("expected default ttl_seconds=60, got %d", cfg.Cache.TTLSeconds)
	}
	if cfg.Cache.MaxEntries != 4096 {
		t.Errorf("expected default max_entries=4096, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Rate.Strategy != "token_bucket" {
		t.Errorf("expected default strategy token_bucket, got %q", cfg.Rate.Strategy)
	}
	if cfg.Rate.MaxDeferMS != 500 {
		t.Errorf("expected default max_defer_ms=500, got %d", cfg.Rate.MaxDeferMS)
	}
	if cfg.Rate.DefaultLimits.PerMinute != 120 || cfg.Rate.DefaultLimits.Burst != 20 {
		t.Errorf("unexpected default limits: %+v", cfg.Rate.DefaultLimits)
	}
	if cfg.Database.AdapterTimeoutMS != 2000 {
		t.Errorf("expected default adapter_timeout_ms=2000, got %d", cfg.Database.AdapterTimeoutMS)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Fusion: FusionConfig{K0: 30},
		Cache:  CacheConfig{TTLSeconds: 5},
		Rate:   RateConfig{Strategy: "leaky_bucket", DefaultLimits: LimitsConfig{PerMinute: 10, Burst: 2}},
	}
	cfg.ApplyDefaults()

	if cfg.Fusion.K0 != 30 {
		t.Errorf("expected k0=30 kept, got %d", cfg.Fusion.K0)
	}
	if cfg.Cache.TTLSeconds != 5 {
		t.Errorf("expected ttl=5 kept, got %d", cfg.Cache.TTLSeconds)
	}
	if cfg.Rate.Strategy != "leaky_bucket" {
		t.Errorf("expected strategy kept, got %q", cfg.Rate.Strategy)
	}
	if cfg.Rate.DefaultLimits.PerMinute != 10 {
		t.Errorf("expected limits kept, got %+v", cfg.Rate.DefaultLimits)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FUSEGATE_TEST_PASSWORD", "hunter2")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"set variable", "password: ${FUSEGATE_TEST_PASSWORD}", "password: hunter2"},
		{"unset variable", "password: ${FUSEGATE_TEST_UNSET}", "password: "},
		{"unset with default", "addr: ${FUSEGATE_TEST_UNSET:-localhost:6379}", "addr: localhost:6379"},
		{"set beats default", "password: ${FUSEGATE_TEST_PASSWORD:-fallback}", "password: hunter2"},
		{"no variables", "port: 8080", "port: 8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(expandEnvVars([]byte(tt.in))); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
