package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"relaybot/internal/config"
	"relaybot/internal/ratelimit"
	"relaybot/internal/relay"
	"relaybot/internal/server"
	"relaybot/internal/stats"
	"relaybot/internal/telegram"
	"relaybot/internal/upload"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "relaybot",
		Short: "RelayBot: Telegram file-to-link relay",
		Long:  "RelayBot receives Telegram webhook updates, relays file attachments to an upload backend (image bed or WebDAV), and replies with a public link.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ~/.relaybot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from the --config flag, the
// RELAYBOT_CONFIG environment variable, or the default, in that order.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("RELAYBOT_CONFIG"); env != "" {
		return env
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists at %s", cfgPath)
			}
			if err := os.MkdirAll(config.DefaultConfigDir(), 0o755); err != nil {
				return err
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			logger.Info("fill in botToken and the upload backend, then run: relaybot serve")
			return nil
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger.Info("config ok", "path", cfgPath, "method", cfg.Upload.Method)
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("relaybot " + version)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server",
		Long:  "Starts the HTTP server that receives Telegram webhook updates and relays attachments. Press Ctrl+C to stop.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tg, err := telegram.New(cfg.BotToken, logger)
	if err != nil {
		return err
	}

	var gate relay.Gate
	switch cfg.RateLimit.Store {
	case "redis":
		store := ratelimit.NewRedisStore(cfg.RateLimit.RedisAddr, cfg.RateLimit.RedisPassword, cfg.RateLimit.RedisDB)
		defer store.Close()
		gate = ratelimit.New(store, logger)
		logger.Info("rate limiting enabled", "store", "redis", "addr", cfg.RateLimit.RedisAddr)
	case "memory":
		gate = ratelimit.New(ratelimit.NewMemoryStore(), logger)
		logger.Info("rate limiting enabled", "store", "memory")
	case "":
		logger.Info("rate limiting disabled")
	default:
		return fmt.Errorf("unknown rate limit store %q", cfg.RateLimit.Store)
	}

	var recorder relay.Recorder
	var statsProvider relay.StatsProvider
	if cfg.Stats.DBPath != "" {
		store, err := stats.NewStore(cfg.Stats.DBPath, logger)
		if err != nil {
			return fmt.Errorf("stats store: %w", err)
		}
		defer store.Close()
		recorder = store
		statsProvider = store
		logger.Info("stats enabled", "db", cfg.Stats.DBPath)
	}

	uploader := upload.NewClient(cfg.Upload, logger)
	pipeline := relay.NewPipeline(tg, tg, uploader, recorder, cfg.MaxFileSize, logger)
	commands := relay.NewCommands(cfg.MaxFileSize, statsProvider, version)
	dispatcher := relay.NewDispatcher(ctx, cfg, tg, pipeline, gate, commands, logger)

	logger.Info("relaybot starting",
		"version", version,
		"bot", tg.Username(),
		"method", cfg.Upload.Method,
		"max_file_size", cfg.MaxFileSize)

	srv := server.New(cfg, dispatcher, logger)
	err = srv.Run(ctx)

	// Let in-flight relays deliver their terminal notification.
	logger.Info("draining background tasks")
	dispatcher.Wait()
	return err
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
