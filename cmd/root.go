package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "agentbus",
	Short: "agentbus — background agent runtime with topic-based messaging",
	Long:  "agentbus-go runs background agents on a shared in-process message bus with per-agent serialized execution and periodic scheduling.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
}
