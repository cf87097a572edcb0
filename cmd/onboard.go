package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dayuer/agentbus-go/internal/config"
	"github.com/dayuer/agentbus-go/internal/utils"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize agentbus configuration",
	RunE:  runOnboard,
}

func init() {
	rootCmd.AddCommand(onboardCmd)
}

const sampleManifest = `# agentbus agents manifest
# Agents listed here are registered when the server starts.
agents:
  - type: system_monitor
    session_id: system
    interval: 60
  - type: notification_manager
    session_id: system
`

func runOnboard(cmd *cobra.Command, args []string) error {
	configPath := config.GetConfigPath()
	dataDir := utils.GetDataPath()

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists at %s\n", configPath)
	} else {
		cfg := config.DefaultConfig()
		cfg.Agents.Manifest = filepath.Join(dataDir, "agents.yaml")
		if err := config.Save(cfg, ""); err != nil {
			return fmt.Errorf("creating config: %w", err)
		}
		fmt.Printf("✓ Created config at %s\n", configPath)
	}

	manifestPath := filepath.Join(dataDir, "agents.yaml")
	if _, err := os.Stat(manifestPath); os.IsNotExist(err) {
		if err := os.WriteFile(manifestPath, []byte(sampleManifest), 0644); err != nil {
			return fmt.Errorf("creating manifest: %w", err)
		}
		fmt.Printf("✓ Created agents manifest at %s\n", manifestPath)
	} else {
		fmt.Printf("Manifest already exists at %s\n", manifestPath)
	}

	fmt.Println("\n🤖 agentbus is ready!")
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Review ~/.agentbus/config.json and agents.yaml")
	fmt.Println("  2. Start the server: agentbus serve")
	fmt.Println("  3. Send a message: agentbus send --preset status")
	return nil
}
