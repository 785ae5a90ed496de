package server

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds HTTP server configuration parameters.
type Config struct {
	Host            string        // Interface to bind; empty means all
	Port            int           // Port number to listen on
	ReadTimeout     time.Duration // Maximum duration for reading the entire request
	WriteTimeout    time.Duration // Maximum duration for writing the response
	IdleTimeout     time.Duration // Maximum duration to wait for next request with keep-alives
	ShutdownTimeout time.Duration // Grace period for in-flight requests on shutdown
	MaxHeaderBytes  int           // Maximum size of request headers
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate validates that the server configuration is valid.
//
// The port must be within the TCP port range (1-65535) and no timeout may be
// negative.
//
// Returns an error describing the validation failure, or nil if valid.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", c.Port)
	}
	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"read", c.ReadTimeout},
		{"write", c.WriteTimeout},
		{"idle", c.IdleTimeout},
		{"shutdown", c.ShutdownTimeout},
	}
	for _, t := range timeouts {
		if t.d < 0 {
			return fmt.Errorf("invalid %s timeout: %s (must not be negative)", t.name, t.d)
		}
	}
	if c.MaxHeaderBytes < 0 {
		return fmt.Errorf("invalid max header bytes: %d", c.MaxHeaderBytes)
	}
	return nil
}
