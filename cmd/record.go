package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/keyforge/keyforge/internal/output"
	"github.com/spf13/cobra"
)

// RecordResult is the output of the record command.
type RecordResult struct {
	OK      bool       `yaml:"ok"              json:"ok"`
	Action  string     `yaml:"action"          json:"action"`
	Script  ScriptInfo `yaml:"script"          json:"script"`
	Stopped string     `yaml:"stopped"         json:"stopped"`
	Error   string     `yaml:"error,omitempty" json:"error,omitempty"`
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record keyboard and mouse input into a new script",
	Long: `Record system-wide input into a new script. Recording runs until the
stop hotkey fires (default ctrl+f7) or the process receives SIGINT/SIGTERM.
The stop hotkey itself is excluded from the recording.

Example:
  keyforge record --name "login sequence"`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().String("name", "", "Script name (default: timestamped)")
	recordCmd.Flags().String("description", "", "Script description")
}

func runRecord(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	description, _ := cmd.Flags().GetString("description")

	eng, st, err := newEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	// The stop hotkey must be live during a one-shot recording too; it is
	// the only chord registered here.
	done := make(chan struct{})
	if spec := cfg.Hotkeys.StopRecording; spec != "" {
		if err := eng.Hotkeys().Register(spec, func() { close(done) }); err != nil {
			return err
		}
	}

	s, err := eng.StartRecording(name)
	if err != nil {
		return err
	}
	s.Description = description
	logger.Info("recording, stop with hotkey or Ctrl-C", "stop_hotkey", cfg.Hotkeys.StopRecording)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	stopped := "hotkey"
	select {
	case <-done:
	case <-sig:
		stopped = "signal"
	}

	saved, err := eng.StopRecording()
	if err != nil {
		return err
	}

	return output.Print(RecordResult{
		OK:      true,
		Action:  "record",
		Script:  scriptInfo(saved),
		Stopped: stopped,
	})
}
