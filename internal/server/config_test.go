package server

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				Port:            8080,
				ReadTimeout:     10 * time.Second,
				WriteTimeout:    10 * time.Second,
				IdleTimeout:     60 * time.Second,
				ShutdownTimeout: 5 * time.Second,
				MaxHeaderBytes:  1 << 20,
			},
			wantErr: false,
		},
		{"valid low port", &Config{Port: 1}, false},
		{"valid high port", &Config{Port: 65535}, false},
		{"invalid - port too low", &Config{Port: 0}, true},
		{"invalid - port too high", &Config{Port: 65536}, true},
		{"invalid - negative port", &Config{Port: -1}, true},
		{"invalid - negative read timeout", &Config{Port: 80, ReadTimeout: -time.Second}, true},
		{"invalid - negative shutdown timeout", &Config{Port: 80, ShutdownTimeout: -time.Second}, true},
		{"invalid - negative header bytes", &Config{Port: 80, MaxHeaderBytes: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"", 8000, ":8000"},
		{"127.0.0.1", 9000, "127.0.0.1:9000"},
		{"::1", 443, "[::1]:443"},
	}
	for _, tt := range tests {
		c := &Config{Host: tt.host, Port: tt.port}
		if got := c.Addr(); got != tt.want {
			t.Errorf("Addr() = %q, want %q", got, tt.want)
		}
	}
}
