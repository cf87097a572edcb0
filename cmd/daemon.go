// daemon.go — nginx-style daemon management for the agentbus server.
//
// Usage:
//
//	agentbus serve start    — start as background daemon
//	agentbus serve stop     — send SIGTERM
//	agentbus serve restart  — stop + start
//	agentbus serve status   — check the running process
//	agentbus serve          — run single foreground process
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dayuer/agentbus-go/internal/utils"
)

const pidFileName = "agentbus.pid"

func init() {
	serveCmd.AddCommand(startCmd)
	serveCmd.AddCommand(stopCmd)
	serveCmd.AddCommand(restartCmd)
	serveCmd.AddCommand(serveStatusCmd)
}

// --- PID file helpers ---

func pidFilePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".agentbus", pidFileName)
}

func writePID(pid int) error {
	dir := filepath.Dir(pidFilePath())
	if _, err := utils.EnsureDir(dir); err != nil {
		return err
	}
	return os.WriteFile(pidFilePath(), []byte(strconv.Itoa(pid)), 0644)
}

func readPID() (int, error) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePID() {
	os.Remove(pidFilePath())
}

// isRunning checks if a process with the given PID is alive.
func isRunning(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// getRunningPID returns the daemon PID if it is alive.
func getRunningPID() (int, bool) {
	pid, err := readPID()
	if err != nil {
		return 0, false
	}
	if !isRunning(pid) {
		removePID()
		return 0, false
	}
	return pid, true
}

// spawnServer starts a detached serve process logging to ~/.agentbus/agentbus.log.
func spawnServer(exe string) (*os.Process, string, error) {
	serveArgs := []string{"serve", "--port", strconv.Itoa(servePort)}
	if serveAPIKey != "" {
		serveArgs = append(serveArgs, "--api-key", serveAPIKey)
	}
	if serveManifest != "" {
		serveArgs = append(serveArgs, "--agents", serveManifest)
	}
	if serveRedisURL != "" {
		serveArgs = append(serveArgs, "--redis", serveRedisURL)
	}

	logDir, err := utils.EnsureDir(utils.GetDataPath())
	if err != nil {
		return nil, "", fmt.Errorf("cannot create data dir: %w", err)
	}
	logFile := filepath.Join(logDir, "agentbus.log")

	outFile, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, "", fmt.Errorf("cannot open log file: %w", err)
	}

	proc := exec.Command(exe, serveArgs...)
	proc.Stdout = outFile
	proc.Stderr = outFile
	proc.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
	proc.Env = os.Environ()

	if err := proc.Start(); err != nil {
		outFile.Close()
		return nil, "", fmt.Errorf("failed to start server: %w", err)
	}
	outFile.Close()

	return proc.Process, logFile, nil
}

// stopServer sends SIGTERM and waits, escalating to SIGKILL after timeout.
func stopServer(pid int, timeout time.Duration) {
	if proc, err := os.FindProcess(pid); err == nil {
		proc.Signal(syscall.SIGTERM)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !isRunning(pid) {
			removePID()
			return
		}
		time.Sleep(500 * time.Millisecond)
	}

	if isRunning(pid) {
		if proc, err := os.FindProcess(pid); err == nil {
			proc.Signal(syscall.SIGKILL)
		}
	}
	time.Sleep(500 * time.Millisecond)
	removePID()
}

// --- Subcommands ---

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start agentbus server as a background daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		if pid, running := getRunningPID(); running {
			return fmt.Errorf("agentbus server is already running (PID %d)", pid)
		}

		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("cannot find executable: %w", err)
		}

		proc, logFile, err := spawnServer(exe)
		if err != nil {
			return err
		}

		pid := proc.Pid
		proc.Release()
		writePID(pid)

		fmt.Printf("✅ agentbus server started (PID %d)\n", pid)
		fmt.Printf("   PID file: %s\n", pidFilePath())
		fmt.Printf("   Log: %s\n", logFile)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running agentbus server",
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, running := getRunningPID()
		if !running {
			fmt.Println("ℹ️ agentbus server is not running")
			return nil
		}

		fmt.Printf("🛑 Stopping agentbus server (PID %d)...\n", pid)
		stopServer(pid, 10*time.Second)
		fmt.Println("✅ Server stopped")
		return nil
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the agentbus server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if pid, running := getRunningPID(); running {
			fmt.Printf("🔄 Restarting agentbus server (PID %d)...\n", pid)
			stopServer(pid, 10*time.Second)
			fmt.Println("   Old server stopped")
		}
		return startCmd.RunE(cmd, args)
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check agentbus server daemon status",
	Run: func(cmd *cobra.Command, args []string) {
		pid, running := getRunningPID()
		if !running {
			fmt.Println("⚫ agentbus server is not running")
			return
		}

		fmt.Printf("✅ agentbus server running (PID %d)\n", pid)
		fmt.Printf("   PID file: %s\n", pidFilePath())

		home, _ := os.UserHomeDir()
		logFile := filepath.Join(home, ".agentbus", "agentbus.log")
		if data, err := os.ReadFile(logFile); err == nil {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			start := len(lines) - 5
			if start < 0 {
				start = 0
			}
			fmt.Println("   Last log lines:")
			for _, l := range lines[start:] {
				fmt.Printf("     %s\n", l)
			}
		}
	},
}
