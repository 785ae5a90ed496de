package config

import (
	"errors"
	"flag"
	"io"
	"runtime"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil, io.Discard)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Port)
	}
	if cfg.ReadTimeout != 15*time.Second || cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("timeouts = %s/%s, want 15s/5s", cfg.ReadTimeout, cfg.ShutdownTimeout)
	}
	if cfg.Workers != runtime.NumCPU() {
		t.Errorf("Workers = %d, want %d", cfg.Workers, runtime.NumCPU())
	}
	if cfg.RetryLimit != 0 || cfg.UniformRange {
		t.Errorf("generator = %+v, want unbounded retries and modulo ranges", cfg.Generator())
	}
	if !cfg.Admin || !cfg.Metrics {
		t.Error("admin and metrics should default on")
	}
	if cfg.LogFormat != "human" || cfg.LogLevel != "info" {
		t.Errorf("log = %s/%s, want human/info", cfg.LogFormat, cfg.LogLevel)
	}
	if cfg.Mode() != ModeServe {
		t.Errorf("Mode() = %s, want serve", cfg.Mode())
	}
}

func TestLoad_EnvThenFlags(t *testing.T) {
	t.Setenv("GOHWRNG_PORT", "9000")
	t.Setenv("GOHWRNG_WORKERS", "3")
	t.Setenv("GOHWRNG_UNIFORM_RANGE", "true")
	t.Setenv("GOHWRNG_RATE_LIMIT", "2.5")
	t.Setenv("GOHWRNG_LOG_LEVEL", "debug")

	cfg, err := Load([]string{"-p", "9100", "-retry-limit", "16", "-w", "words.txt"}, io.Discard)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 9100 {
		t.Errorf("Port = %d, want flag value 9100", cfg.Port)
	}
	if cfg.Workers != 3 {
		t.Errorf("Workers = %d, want env value 3", cfg.Workers)
	}
	if !cfg.UniformRange || cfg.RetryLimit != 16 {
		t.Errorf("Generator() = %+v", cfg.Generator())
	}
	if cfg.RateLimit != 2.5 {
		t.Errorf("RateLimit = %g, want 2.5", cfg.RateLimit)
	}
	if cfg.LogLevel != "debug" || cfg.Wordlist != "words.txt" {
		t.Errorf("LogLevel/Wordlist = %s/%s", cfg.LogLevel, cfg.Wordlist)
	}
	if got := cfg.Server().Addr(); got != ":9100" {
		t.Errorf("Server().Addr() = %q, want :9100", got)
	}
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("GOHWRNG_PORT", "not-a-port")
	if _, err := Load(nil, io.Discard); err == nil {
		t.Fatal("Load() error = nil, want parse error")
	}
}

func TestLoad_Help(t *testing.T) {
	if _, err := Load([]string{"-h"}, io.Discard); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("Load(-h) error = %v, want flag.ErrHelp", err)
	}
}

func TestLoad_Modes(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    Mode
		wantErr bool
	}{
		{"serve", nil, ModeServe, false},
		{"stream", []string{"-stream"}, ModeStream, false},
		{"stream with count", []string{"-stream", "-count", "100"}, ModeStream, false},
		{"demo", []string{"-demo"}, ModeDemo, false},
		{"both", []string{"-stream", "-demo"}, 0, true},
		{"count without stream", []string{"-count", "5"}, 0, true},
		{"stray argument", []string{"extra"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.args, io.Discard)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("Load() error = %v, want ErrInvalid", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Mode() != tt.want {
				t.Errorf("Mode() = %s, want %s", cfg.Mode(), tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(nil, io.Discard)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"port zero", func(c *Config) { c.Port = 0 }},
		{"port too high", func(c *Config) { c.Port = 65536 }},
		{"negative timeout", func(c *Config) { c.WriteTimeout = -time.Second }},
		{"negative retry limit", func(c *Config) { c.RetryLimit = -1 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative rate", func(c *Config) { c.RateLimit = -1 }},
		{"zero burst", func(c *Config) { c.RateBurst = 0 }},
		{"zero max bytes", func(c *Config) { c.MaxBytes = 0 }},
		{"negative body limit", func(c *Config) { c.BodyLimit = -1 }},
		{"short admin token", func(c *Config) { c.AdminToken = "short" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error = %v, want ErrInvalid", err)
			}
		})
	}

	t.Run("rate disabled allows zero burst", func(t *testing.T) {
		cfg := valid()
		cfg.RateLimit = 0
		cfg.RateBurst = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}
