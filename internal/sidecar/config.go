// Package sidecar implements the workshop pod sidecar: a TCP proxy in
// front of the workshop container that tracks connection activity and
// reports idle time over HTTP for the hub's garbage collector.
package sidecar

import (
	"errors"
	"os"
)

// Config holds the sidecar settings, loaded from SIDECAR_-prefixed
// environment variables.
type Config struct {
	// HTTPListen is the health server address, e.g. "0.0.0.0:8080".
	HTTPListen string

	// TCPListen is the proxy listen address, e.g. "0.0.0.0:8888".
	TCPListen string

	// TargetTCP is the upstream TCP address, e.g. "127.0.0.1:9000".
	TargetTCP string

	// TargetUDS is the upstream unix socket path, e.g. "/var/run/app.sock".
	TargetUDS string
}

// ErrNoTarget means neither proxy target is configured.
var ErrNoTarget = errors.New("no proxy target specified, set SIDECAR_TARGET_TCP or SIDECAR_TARGET_UDS")

// ErrAmbiguousTarget means both proxy targets are configured.
var ErrAmbiguousTarget = errors.New("both SIDECAR_TARGET_TCP and SIDECAR_TARGET_UDS are set, specify only one")

// ConfigFromEnv loads the sidecar configuration from the environment.
func ConfigFromEnv() (*Config, error) {
	cfg := &Config{
		HTTPListen: envDefault("SIDECAR_HTTP_LISTEN", "0.0.0.0:8080"),
		TCPListen:  envDefault("SIDECAR_TCP_LISTEN", "0.0.0.0:8888"),
		TargetTCP:  os.Getenv("SIDECAR_TARGET_TCP"),
		TargetUDS:  os.Getenv("SIDECAR_TARGET_UDS"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that exactly one proxy target is specified.
func (c *Config) Validate() error {
	switch {
	case c.TargetTCP != "" && c.TargetUDS != "":
		return ErrAmbiguousTarget
	case c.TargetTCP == "" && c.TargetUDS == "":
		return ErrNoTarget
	}
	return nil
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
