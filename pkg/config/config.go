package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full runtime configuration
type Config struct {
	// Domains is the static (boot-time) monitoring list
	Domains []string `yaml:"domains"`

	// CheckIntervalSeconds is the scan period. Kept in seconds so the
	// YAML stays plain integers.
	CheckIntervalSeconds int `yaml:"check_interval_seconds"`

	// Concurrency bounds the per-tick fan-out
	Concurrency int `yaml:"concurrency"`

	// ResolverEndpoint is the DoH JSON endpoint
	ResolverEndpoint string `yaml:"resolver_endpoint"`

	// WebhookURL receives notifications; empty means log-only
	WebhookURL string `yaml:"webhook_url"`

	// DataDir holds the BoltDB file
	DataDir string `yaml:"data_dir"`

	// ListenAddr serves the command API and metrics
	ListenAddr string `yaml:"listen_addr"`

	// VersionID identifies the deployment; generated when empty
	VersionID string `yaml:"version_id"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		CheckIntervalSeconds: 60,
		Concurrency:          16,
		ResolverEndpoint: "https://1.1.1.1/dns-query",
		DataDir:          "./data",
		ListenAddr:       ":8080",
		LogLevel:         "info",
	}
}

// Load reads a YAML config file over the defaults, then applies environment
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.CheckIntervalSeconds <= 0 {
		cfg.CheckIntervalSeconds = 60
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	return cfg, nil
}

// CheckInterval returns the scan period as a duration
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalSeconds) * time.Second
}

// applyEnv layers DRIFTWATCH_* environment variables over the file values
func (c *Config) applyEnv() {
	if v := os.Getenv("DRIFTWATCH_DOMAINS"); v != "" {
		c.Domains = splitList(v)
	}
	if v := os.Getenv("DRIFTWATCH_CHECK_INTERVAL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.CheckIntervalSeconds = secs
		}
	}
	if v := os.Getenv("DRIFTWATCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Concurrency = n
		}
	}
	if v := os.Getenv("DRIFTWATCH_RESOLVER_ENDPOINT"); v != "" {
		c.ResolverEndpoint = v
	}
	if v := os.Getenv("DRIFTWATCH_WEBHOOK_URL"); v != "" {
		c.WebhookURL = v
	}
	if v := os.Getenv("DRIFTWATCH_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("DRIFTWATCH_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("DRIFTWATCH_VERSION_ID"); v != "" {
		c.VersionID = v
	}
	if v := os.Getenv("DRIFTWATCH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DRIFTWATCH_LOG_JSON"); v != "" {
		c.LogJSON = v == "1" || strings.EqualFold(v, "true")
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
