package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("TABLE_PREFIX", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/blockdocs")
	t.Setenv("TX_TIMEOUT", "")
	t.Setenv("TX_MAX_RETRIES", "")
	t.Setenv("DB_MAX_CONNS", "")
	t.Setenv("DB_MIN_CONNS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Environment != "dev" {
		t.Errorf("Environment = %q, want dev", cfg.Environment)
	}
	if cfg.TablePrefix != "dev_" {
		t.Errorf("TablePrefix = %q, want dev_", cfg.TablePrefix)
	}
	if cfg.TxTimeout != DefaultTxTimeout {
		t.Errorf("TxTimeout = %v, want %v", cfg.TxTimeout, DefaultTxTimeout)
	}
	if cfg.TxMaxRetries != DefaultTxMaxRetries {
		t.Errorf("TxMaxRetries = %d, want %d", cfg.TxMaxRetries, DefaultTxMaxRetries)
	}
	if !cfg.Debug {
		t.Error("Debug should default to true outside prod")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("TABLE_PREFIX", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/blockdocs")
	t.Setenv("TX_TIMEOUT", "2s")
	t.Setenv("TX_MAX_RETRIES", "0")
	t.Setenv("DB_MAX_CONNS", "")
	t.Setenv("DB_MIN_CONNS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TablePrefix != "test_" {
		t.Errorf("TablePrefix = %q, want test_", cfg.TablePrefix)
	}
	if cfg.TxTimeout != 2*time.Second {
		t.Errorf("TxTimeout = %v, want 2s", cfg.TxTimeout)
	}
	if cfg.TxMaxRetries != 0 {
		t.Errorf("TxMaxRetries = %d, want 0", cfg.TxMaxRetries)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing database url",
			env:  map[string]string{"DATABASE_URL": ""},
		},
		{
			name: "bad timeout",
			env:  map[string]string{"TX_TIMEOUT": "soon"},
		},
		{
			name: "bad retries",
			env:  map[string]string{"TX_MAX_RETRIES": "three"},
		},
		{
			name: "negative retries",
			env:  map[string]string{"TX_MAX_RETRIES": "-1"},
		},
		{
			name: "min conns above max",
			env:  map[string]string{"DB_MAX_CONNS": "2", "DB_MIN_CONNS": "5"},
		},
		{
			name: "prod without jwks",
			env:  map[string]string{"ENVIRONMENT": "prod", "JWKS_URL": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := map[string]string{
				"ENVIRONMENT":    "dev",
				"DATABASE_URL":   "postgres://localhost/blockdocs",
				"TX_TIMEOUT":     "",
				"TX_MAX_RETRIES": "",
				"DB_MAX_CONNS":   "",
				"DB_MIN_CONNS":   "",
				"JWKS_URL":       "",
			}
			for k, v := range tt.env {
				base[k] = v
			}
			for k, v := range base {
				t.Setenv(k, v)
			}

			if _, err := Load(); err == nil {
				t.Fatal("Load() error = nil, want error")
			}
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	cfg := &Config{CORSOrigins: "http://localhost:3000, https://app.example.com,,"}
	want := []string{"http://localhost:3000", "https://app.example.com"}
	if got := cfg.AllowedOrigins(); !reflect.DeepEqual(got, want) {
		t.Errorf("AllowedOrigins() = %v, want %v", got, want)
	}
}

func TestGetTablePrefix(t *testing.T) {
	tests := []struct {
		env      string
		override string
		want     string
	}{
		{env: "prod", want: "prod_"},
		{env: "test", want: "test_"},
		{env: "dev", want: "dev_"},
		{env: "staging", want: "dev_"},
		{env: "prod", override: "custom_", want: "custom_"},
	}

	for _, tt := range tests {
		t.Run(tt.env+tt.override, func(t *testing.T) {
			t.Setenv("TABLE_PREFIX", tt.override)
			if got := getTablePrefix(tt.env); got != tt.want {
				t.Errorf("getTablePrefix(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}
