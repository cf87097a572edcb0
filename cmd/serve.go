package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dayuer/agentbus-go/internal/agents"
	"github.com/dayuer/agentbus-go/internal/config"
	"github.com/dayuer/agentbus-go/internal/diag"
	"github.com/dayuer/agentbus-go/internal/gateway"
	"github.com/dayuer/agentbus-go/internal/runtime"
	"github.com/dayuer/agentbus-go/internal/store"
	"github.com/dayuer/agentbus-go/internal/utils"
)

var (
	servePort     int
	serveAPIKey   string
	serveManifest string
	serveRedisURL string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agentbus runtime and gateway",
	Long: `Start the agentbus runtime with:
  - In-process message bus with topic wildcard routing
  - Per-agent serialized execution and periodic scheduling
  - HTTP API endpoints (/api/background/message, /api/agents, /api/status)
  - WebSocket message stream (/ws)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 18890, "HTTP API port")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", "", "API key for auth (or AGENTBUS_API_KEY env)")
	serveCmd.Flags().StringVar(&serveManifest, "agents", "", "Path to agents.yaml (default: ~/.agentbus/agents.yaml)")
	serveCmd.Flags().StringVar(&serveRedisURL, "redis", "", "Redis URL for notification storage (or config)")
}

// makeLogger builds the slog-backed diagnostics sink from the log config.
func makeLogger(cfg config.LogConfig) diag.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return diag.Slog(slog.New(handler))
}

// resolveManifestPath finds the agents manifest: --agents flag → config →
// ~/.agentbus/agents.yaml. LoadManifest tolerates the default path not
// existing.
func resolveManifestPath(flagPath string, cfg config.Config) string {
	if flagPath != "" {
		return flagPath
	}
	if cfg.Agents.Manifest != "" {
		return cfg.Agents.Manifest
	}
	return filepath.Join(utils.GetDataPath(), "agents.yaml")
}

// makeStore picks the notification store: redis when configured, otherwise
// in-memory. A redis connection failure falls back to memory with a warning.
func makeStore(cfg config.Config, logger diag.Logger) store.Store {
	url := serveRedisURL
	if url == "" {
		url = cfg.Redis.URL
	}
	if url == "" {
		return store.NewMemoryStore()
	}

	rs, err := store.NewRedisStore(store.RedisConfig{
		URL:      url,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory notification store", "error", err)
		return store.NewMemoryStore()
	}
	return rs
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Resolve settings: CLI flag → config.json → env var
	port := servePort
	if cfg.Gateway.Port != 0 && !cmd.Flags().Changed("port") {
		port = cfg.Gateway.Port
	}

	apiKey := serveAPIKey
	if apiKey == "" {
		apiKey = cfg.Gateway.APIKey
	}
	if apiKey == "" {
		apiKey = os.Getenv("AGENTBUS_API_KEY")
	}

	logger := makeLogger(cfg.Log)
	st := makeStore(cfg, logger)
	deps := agents.Deps{Logger: logger, Store: st}

	rt := runtime.New(runtime.Config{
		Logger:    logger,
		QueueSize: cfg.Runtime.QueueSize,
	})

	fmt.Println("🚀 Starting agentbus runtime...")

	// Register agents from the manifest
	manifestPath := resolveManifestPath(serveManifest, cfg)
	manifest, err := config.LoadManifest(manifestPath)
	if err != nil {
		logger.Warn("could not load agents manifest", "path", manifestPath, "error", err)
	}
	if manifest != nil {
		for _, spec := range manifest.Agents {
			var interval time.Duration
			if spec.Interval != nil {
				interval = time.Duration(*spec.Interval * float64(time.Second))
			}
			a, err := agents.Build(spec.Type, spec.SessionID, interval, deps)
			if err != nil {
				logger.Warn("skipping manifest agent", "type", spec.Type, "error", err)
				continue
			}
			if err := rt.RegisterAgent(a); err != nil {
				logger.Warn("failed to register agent", "type", spec.Type, "session", spec.SessionID, "error", err)
			}
		}
		fmt.Printf("   ✅ %d agents registered\n", rt.Registry().Len())
	} else {
		fmt.Println("   📋 No agents manifest; register agents via the API")
	}

	srv := gateway.NewServer(gateway.ServerConfig{
		Port:      port,
		APIKey:    apiKey,
		Runtime:   rt,
		AgentDeps: deps,
		Logger:    logger,
	})

	fmt.Printf("   ✅ HTTP API → http://0.0.0.0:%d\n", port)
	fmt.Printf("   ✅ WebSocket → ws://0.0.0.0:%d/ws\n", port)
	fmt.Println("────────────────────────────────────────")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Write PID file only in direct foreground mode (not when spawned by
	// the daemon, which manages the PID file itself).
	isForeground := false
	if _, err := os.Stat(pidFilePath()); os.IsNotExist(err) {
		writePID(os.Getpid())
		isForeground = true
	}
	defer func() {
		if isForeground {
			removePID()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\n🛑 Shutting down...")
		srv.Stop()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := rt.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
		cancel()
	}()

	return srv.Start(ctx)
}
