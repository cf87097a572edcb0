package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dayuer/agentbus-go/internal/message"
)

var (
	sendURL    string
	sendAPIKey string
	sendData   string
	sendPreset string
)

var sendCmd = &cobra.Command{
	Use:   "send [message_type]",
	Short: "Publish a message to a running agentbus server",
	Long: `Publish a message to a running agentbus server.

Examples:
  agentbus send system.status.request
  agentbus send system.resource.request -d '{"resource_type":"cpu"}'
  agentbus send notification.create -d '{"user_id":"user123","title":"Hi","message":"Hello"}'
  agentbus send --preset session-start`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendURL, "url", "", "Gateway base URL (default: config/AGENTBUS_URL)")
	sendCmd.Flags().StringVar(&sendAPIKey, "api-key", "", "API key for auth")
	sendCmd.Flags().StringVarP(&sendData, "data", "d", "", "Message payload as JSON")
	sendCmd.Flags().StringVar(&sendPreset, "preset", "", "Named example message (status, resource, notification, session-start)")
}

// presets are ready-made example messages for trying out the bundled agents.
var presets = map[string]*message.Message{
	"status": message.New("system.status.request", nil),
	"resource": message.New("system.resource.request", map[string]any{
		"resource_type": "cpu",
	}),
	"notification": message.New("notification.create", map[string]any{
		"user_id": "user123",
		"title":   "New Message",
		"message": "You have a new message from Alice",
		"type":    "info",
	}),
	"session-start": message.New("user.session.start", map[string]any{
		"user_id": "user123",
	}),
}

func runSend(cmd *cobra.Command, args []string) error {
	var msg *message.Message

	switch {
	case sendPreset != "":
		preset, ok := presets[sendPreset]
		if !ok {
			return fmt.Errorf("unknown preset %q", sendPreset)
		}
		msg = preset
	case len(args) == 1:
		var data map[string]any
		if sendData != "" {
			if err := json.Unmarshal([]byte(sendData), &data); err != nil {
				return fmt.Errorf("invalid --data JSON: %w", err)
			}
		}
		msg = message.New(args[0], data)
	default:
		return fmt.Errorf("provide a message_type argument or --preset")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	url := resolveGatewayURL(sendURL) + "/api/background/message"
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if key := resolveAPIKey(sendAPIKey); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	fmt.Printf("✅ Published %s\n", msg.Type)
	fmt.Println(string(respBody))
	return nil
}
