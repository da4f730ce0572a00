package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/BearBump/ShipSync/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd(f syncFactories) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "shipsync",
		Short: "Sync shipment statuses from AfterShip into a Notion database",
		Long: `ShipSync reads tracking numbers from a Notion database, asks AfterShip
for their current status and writes status, ETA, tracking URL and the
check time back to each row.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("configPath"), "path to YAML config (optional)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug | info | warn | error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "text | json")

	cmd.AddCommand(newRunCmd(opts, f))
	cmd.AddCommand(newServeCmd(opts, f))
	return cmd
}

// loadConfig reads .env, the YAML file and env overrides, then sets up logging.
func loadConfig(opts *rootOptions, stderr io.Writer) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("load .env", "error", err.Error())
	}

	cfg, err := config.Load(opts.configPath, os.Getenv)
	if err != nil {
		return nil, err
	}

	level := opts.logLevel
	if level == "" {
		level = cfg.ShipSync.LogLevel
	}
	format := opts.logFormat
	if format == "" {
		format = cfg.ShipSync.LogFormat
	}
	logger, err := newLogger(level, format, stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	hopts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, hopts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
