package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/beaconops/crashkit"
)

var errCheck = crashkit.Define("crashkit_check", 500)

func newCheckCmd() *cobra.Command {
	var send bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the sink configured in the environment",
		Long: `Load CRASHKIT_* configuration, resolve the configured sink and report
whether this environment delivers events. With --send, a test event goes
through the full pipeline.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := crashkit.FromEnv()
			if err != nil {
				return err
			}
			n, err := crashkit.NewNotifier(cfg)
			if err != nil {
				return err
			}

			fmt.Printf("sink:        %s\n", cfg.SinkName())
			fmt.Printf("environment: %s\n", cfg.Environment)
			if n.Enabled() {
				fmt.Printf("reporting:   %s\n", color.GreenString("enabled"))
			} else {
				fmt.Printf("reporting:   %s\n", color.YellowString("disabled (environment not in CRASHKIT_ENABLED_ENVS)"))
			}

			if !send {
				return nil
			}

			id, err := n.Notify(cmd.Context(), errCheck.New("crashkit check event"),
				map[string]any{"source": "crashkit check"})
			if err != nil {
				return fmt.Errorf("test event failed: %w", err)
			}
			if !n.Flush(2 * time.Second) {
				fmt.Println("flush timed out; the event may not have left the process")
			}
			if id == "" {
				fmt.Println("test event accepted (sink reported no id)")
			} else {
				fmt.Printf("test event delivered: %s\n", id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&send, "send", false, "Send a test event through the configured sink")

	return cmd
}
