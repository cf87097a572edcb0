// Package utils provides shared helper functions.
package utils

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// EnsureDir ensures a directory exists, creating it if necessary.
func EnsureDir(path string) (string, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", err
	}
	return path, nil
}

// GetDataPath returns the agentbus data directory (~/.agentbus).
func GetDataPath() string {
	home, _ := os.UserHomeDir()
	p := filepath.Join(home, ".agentbus")
	os.MkdirAll(p, 0755)
	return p
}

// Timestamp returns the current time as an ISO 8601 string.
func Timestamp() string {
	return time.Now().Format(time.RFC3339)
}

// TruncateString truncates a string to maxLen, adding suffix if truncated.
func TruncateString(s string, maxLen int, suffix string) string {
	if len(s) <= maxLen {
		return s
	}
	if suffix == "" {
		suffix = "..."
	}
	cutoff := maxLen - len(suffix)
	if cutoff < 0 {
		cutoff = 0
	}
	return s[:cutoff] + suffix
}

// ParseAgentKey splits an agent key "session_id:agent_type" into its parts.
func ParseAgentKey(key string) (sessionID, agentType string, err error) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &InvalidAgentKeyError{Key: key}
	}
	return parts[0], parts[1], nil
}

// InvalidAgentKeyError is returned when an agent key cannot be parsed.
type InvalidAgentKeyError struct {
	Key string
}

func (e *InvalidAgentKeyError) Error() string {
	return "invalid agent key: " + e.Key
}
