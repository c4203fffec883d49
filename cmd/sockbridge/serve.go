package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sockbridge/sockbridge/internal/auth"
	"github.com/sockbridge/sockbridge/internal/config"
	"github.com/sockbridge/sockbridge/internal/server"
)

func newServeCmd() *cobra.Command {
	var validateOnly bool

	cmd := &cobra.Command{
		Use:   "serve CONFIG",
		Short: "Serve the bridge until a termination signal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(args[0], validateOnly)
		},
	}
	cmd.Flags().BoolVar(&validateOnly, "validate", false, "validate the config and exit without binding the socket")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate CONFIG",
		Short: "Validate a config file and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(args[0], true)
		},
	}
}

func newExampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "example",
		Short: "Print an example configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(config.Example(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func runServe(configPath string, validateOnly bool) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	settings, err := auth.SettingsFromEnv(cfg)
	if err != nil {
		return err
	}

	if validateOnly {
		printSummary(os.Stdout, cfg, settings)
		return nil
	}

	logger := newLogger(cfg.LogLevel)
	srv := server.New(server.Options{
		Config: cfg,
		Auth:   settings,
		Logger: logger,
	})
	if err := srv.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("shutting down", "signal", sig.String())
	srv.Stop()
	return nil
}

func printSummary(w io.Writer, cfg *config.ServerConfig, settings auth.Settings) {
	names := make([]string, 0, len(cfg.Commands))
	for name := range cfg.Commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "Configuration is valid")
	fmt.Fprintf(w, "Server: %s\n", cfg.Name)
	fmt.Fprintf(w, "Socket: %s\n", cfg.SocketPath)
	fmt.Fprintf(w, "Commands: %s\n", strings.Join(names, ", "))
	fmt.Fprintf(w, "Rate limiting: %s\n", enabledWord(cfg.RateLimitEnabled()))
	fmt.Fprintf(w, "Threading: %s\n", enabledWord(cfg.EnableThreading))
	fmt.Fprintf(w, "Authentication: %s\n", enabledWord(settings.Enabled))
}

func enabledWord(on bool) string {
	if on {
		return "Enabled"
	}
	return "Disabled"
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN", "WARNING":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
