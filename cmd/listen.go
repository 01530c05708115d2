package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/keyforge/keyforge/internal/config"
	"github.com/spf13/cobra"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run the hotkey daemon",
	Long: `Install the global input hook and wait for the configured hotkeys:

  start_recording  begin recording a new script (default ctrl+f6)
  stop_recording   stop and save the recording   (default ctrl+f7)
  toggle_playback  play latest / pause / resume  (default ctrl+f8)
  stop_playback    stop the active playback      (default ctrl+f9)

Hotkey bindings reload live when the config file changes. The daemon runs
until SIGINT/SIGTERM.`,
	RunE: runListen,
}

func init() {
	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	eng, st, err := newEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	watcher, err := config.Watch(configPath(), logger, eng.ApplyConfig)
	if err != nil {
		// A missing config directory is not fatal; the daemon just runs
		// without live reload.
		logger.Warn("config watch disabled", "err", err)
	} else {
		defer watcher.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return eng.Run(ctx)
}
