// Package config handles configuration loading, saving, and schema
// definition.
package config

// Config is the top-level agentbus configuration.
// Uses json tags in camelCase to match the JSON config file format.
type Config struct {
	Gateway GatewayConfig `json:"gateway"`
	Runtime RuntimeConfig `json:"runtime"`
	Redis   RedisConfig   `json:"redis"`
	Log     LogConfig     `json:"log"`
	Agents  AgentsConfig  `json:"agents"`
}

// GatewayConfig holds the HTTP/WebSocket front-end settings.
type GatewayConfig struct {
	Port   int    `json:"port"`
	APIKey string `json:"apiKey,omitempty"`
}

// RuntimeConfig holds core runtime tuning.
type RuntimeConfig struct {
	QueueSize int `json:"queueSize,omitempty"` // per-agent lane capacity
}

// RedisConfig holds optional Redis settings for the notification store.
// An empty URL keeps notifications in memory.
type RedisConfig struct {
	URL      string `json:"url,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
}

// LogConfig holds diagnostics output settings.
type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text or json
}

// AgentsConfig points at the agents manifest.
type AgentsConfig struct {
	Manifest string `json:"manifest,omitempty"` // path to agents.yaml
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return Config{
		Gateway: GatewayConfig{Port: 18890},
		Runtime: RuntimeConfig{QueueSize: 64},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}
