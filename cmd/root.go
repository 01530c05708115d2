package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/output"
	"github.com/keyforge/keyforge/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "keyforge",
	Short: "Record and replay keyboard and mouse input",
	Long: `KeyForge records system-wide keyboard and mouse input into timed scripts
and replays them with timing fidelity. Scripts are stored locally and can be
driven from the CLI, global hotkeys, or an MCP server.`,
}

// cfg is the loaded configuration, available to all subcommands after
// PersistentPreRunE.
var cfg *config.Config

// logger is the process-wide structured logger.
var logger *slog.Logger

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().String("format", "yaml", "Output format: yaml, json")
	rootCmd.PersistentFlags().Bool("pretty", false, "Pretty-print JSON output")
	rootCmd.PersistentFlags().String("config", "", "Config file path (default ~/.keyforge/config.yaml)")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		format, _ := rootCmd.PersistentFlags().GetString("format")
		switch format {
		case "yaml":
			output.OutputFormat = output.FormatYAML
		case "json":
			output.OutputFormat = output.FormatJSON
		default:
			return fmt.Errorf("unsupported format: %s (use yaml or json)", format)
		}
		if pretty, err := rootCmd.PersistentFlags().GetBool("pretty"); err == nil && pretty {
			output.PrettyOutput = true
		}

		path, _ := rootCmd.PersistentFlags().GetString("config")
		if path == "" {
			path = config.DefaultPath()
		}
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = newLogger(cfg.LogLevel)
		return nil
	}
}

// newLogger builds the text logger at the configured level. Logs go to
// stderr so command output on stdout stays parseable.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// configPath returns the effective config file path for watchers.
func configPath() string {
	path, _ := rootCmd.PersistentFlags().GetString("config")
	if path == "" {
		return config.DefaultPath()
	}
	return path
}
