package cmd

import (
	"fmt"
	"os"

	"github.com/dayuer/agentbus-go/internal/config"
)

// resolveGatewayURL finds the gateway base URL for client commands.
// Resolution order: --url flag → config.json port → AGENTBUS_URL env.
func resolveGatewayURL(flagURL string) string {
	if flagURL != "" {
		return flagURL
	}
	if v := os.Getenv("AGENTBUS_URL"); v != "" {
		return v
	}
	cfg, err := config.Load("")
	if err == nil && cfg.Gateway.Port != 0 {
		return fmt.Sprintf("http://127.0.0.1:%d", cfg.Gateway.Port)
	}
	return "http://127.0.0.1:18890"
}

// resolveAPIKey finds the API key for client commands.
func resolveAPIKey(flagKey string) string {
	if flagKey != "" {
		return flagKey
	}
	if v := os.Getenv("AGENTBUS_API_KEY"); v != "" {
		return v
	}
	cfg, err := config.Load("")
	if err == nil {
		return cfg.Gateway.APIKey
	}
	return ""
}
