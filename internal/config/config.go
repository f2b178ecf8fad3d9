// Package config assembles the single startup configuration struct.
//
// Precedence, lowest to highest: built-in defaults, optional YAML config
// file, environment variables, CLI flags (applied by the cmd layer on top of
// the loaded struct). Components receive the struct by value and never read
// ambient environment state themselves.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the complete server configuration.
type Config struct {
	Sentry  SentryConfig `koanf:"sentry"`
	Jira    JiraConfig   `koanf:"jira"`
	Server  ServerConfig `koanf:"server"`
	Log     LogConfig    `koanf:"log"`
	Tools   ToolsConfig  `koanf:"tools"`
	DevMode bool         `koanf:"dev_mode"`
}

// SentryConfig holds default Sentry credentials. Per-request headers take
// precedence over these values.
type SentryConfig struct {
	Host         string `koanf:"host"`
	Organization string `koanf:"organization"`
	Token        string `koanf:"token"`
}

// JiraConfig holds default JIRA credentials.
type JiraConfig struct {
	Domain string `koanf:"domain"`
	Token  string `koanf:"token"`
	Email  string `koanf:"email"`
}

// ServerConfig holds HTTP transport settings.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	LogRequests     bool          `koanf:"log_requests"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ToolsConfig allows deployments to hide tools from the catalog. Disabled
// tools are absent from tools/list and rejected on tools/call.
type ToolsConfig struct {
	Disabled []string `koanf:"disabled"`
}

// envMapping routes known environment variables to config paths. Anything
// not listed is ignored so unrelated environment noise never leaks in.
var envMapping = map[string]string{
	"SENTRY_HOST":         "sentry.host",
	"SENTRY_ORGANIZATION": "sentry.organization",
	"SENTRY_TOKEN":        "sentry.token",
	"ATLASSIAN_DOMAIN":    "jira.domain",
	"JIRA_TOKEN":          "jira.token",
	"JIRA_EMAIL":          "jira.email",
	"MCP_ADDR":            "server.addr",
	"MCP_LOG_LEVEL":       "log.level",
	"MCP_LOG_FORMAT":      "log.format",
	"MCP_DEV":             "dev_mode",
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8123",
			ShutdownTimeout: 5 * time.Second,
			LogRequests:     true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from the optional file at path plus the
// environment. An empty path skips the file layer; a missing file at an
// explicit path is an error.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(key string) string {
		return envMapping[strings.ToUpper(key)]
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// ToolDisabled reports whether a tool name is disabled by configuration.
func (c Config) ToolDisabled(name string) bool {
	for _, disabled := range c.Tools.Disabled {
		if strings.EqualFold(strings.TrimSpace(disabled), name) {
			return true
		}
	}
	return false
}
