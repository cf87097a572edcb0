package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dayuer/agentbus-go/internal/config"
)

var (
	statusURL    string
	statusAPIKey string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running agentbus server",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusURL, "url", "", "Gateway base URL (default: config/AGENTBUS_URL)")
	statusCmd.Flags().StringVar(&statusAPIKey, "api-key", "", "API key for auth")
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("🤖 agentbus Status")
	fmt.Println()
	fmt.Printf("Config: %s\n", config.GetConfigPath())

	url := resolveGatewayURL(statusURL)
	fmt.Printf("Gateway: %s\n", url)

	req, err := http.NewRequest(http.MethodGet, url+"/api/status", nil)
	if err != nil {
		return err
	}
	if key := resolveAPIKey(statusAPIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Println("\n⚫ Server not reachable")
		return nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	var status map[string]any
	if err := json.Unmarshal(body, &status); err != nil {
		return fmt.Errorf("decoding status: %w", err)
	}

	fmt.Println("\n✅ Server running")
	pretty, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(pretty))
	return nil
}
