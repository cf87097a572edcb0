package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AgentSpec describes one agent to register at startup.
type AgentSpec struct {
	Type      string   `yaml:"type"`
	SessionID string   `yaml:"session_id"`
	Interval  *float64 `yaml:"interval,omitempty"` // seconds; nil means the agent's default
}

// AgentManifest is the YAML document listing agents to start with the runtime.
type AgentManifest struct {
	Agents []AgentSpec `yaml:"agents"`
}

// LoadManifest reads an agents manifest from a YAML file.
// A missing file is not an error; it returns nil so callers can skip registration.
func LoadManifest(path string) (*AgentManifest, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var m AgentManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	for i, spec := range m.Agents {
		if spec.Type == "" {
			return nil, fmt.Errorf("manifest %s: agent %d has no type", path, i)
		}
		if spec.SessionID == "" {
			return nil, fmt.Errorf("manifest %s: agent %d (%s) has no session_id", path, i, spec.Type)
		}
	}
	return &m, nil
}
