package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/keyforge/keyforge/internal/output"
	"github.com/keyforge/keyforge/internal/player"
	"github.com/spf13/cobra"
)

// PlayResult is the output of the play command.
type PlayResult struct {
	OK         bool                 `yaml:"ok"               json:"ok"`
	Action     string               `yaml:"action"           json:"action"`
	Script     ScriptInfo           `yaml:"script"           json:"script"`
	State      string               `yaml:"state"            json:"state"`
	Iterations int                  `yaml:"iterations"       json:"iterations"`
	Errors     []player.ActionError `yaml:"errors,omitempty" json:"errors,omitempty"`
}

var playCmd = &cobra.Command{
	Use:   "play <script>",
	Short: "Replay a recorded script",
	Long: `Replay a script by ID or exact name through the synthetic input
injector. Timing follows the recorded inter-action delays divided by the
speed multiplier. Ctrl-C stops playback promptly, including mid-wait.

Examples:
  keyforge play "login sequence"
  keyforge play 6b1e... --speed 2.0 --repeat 3
  keyforge play "login sequence" --stop-on-error`,
	Args: cobra.ExactArgs(1),
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().Float64("speed", 0, "Speed multiplier (default from config, normally 1.0)")
	playCmd.Flags().Int("repeat", 0, "Override the script's repeat count")
	playCmd.Flags().Bool("stop-on-error", false, "Stop playback on the first failed action")
}

func runPlay(cmd *cobra.Command, args []string) error {
	speed, _ := cmd.Flags().GetFloat64("speed")
	repeat, _ := cmd.Flags().GetInt("repeat")

	var stopOnError *bool
	if cmd.Flags().Changed("stop-on-error") {
		v, _ := cmd.Flags().GetBool("stop-on-error")
		stopOnError = &v
	}

	eng, st, err := newEngine()
	if err != nil {
		return err
	}
	defer st.Close()

	s, err := eng.Resolve(args[0])
	if err != nil {
		return err
	}

	opts := eng.PlayOpts(speed, repeat, stopOnError)
	if err := eng.Player().Play(context.Background(), s, opts); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case <-eng.Player().Wait():
	case <-sig:
		if err := eng.Player().Stop(); err == nil {
			<-eng.Player().Wait()
		}
	}

	status := eng.Player().Status()
	return output.Print(PlayResult{
		OK:         status.State == player.StateStopped && len(status.Errors) == 0,
		Action:     "play",
		Script:     scriptInfo(s),
		State:      status.State.String(),
		Iterations: status.Iterations,
		Errors:     status.Errors,
	})
}
