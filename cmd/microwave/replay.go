package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sweeney/microwave/internal/hw"
	"github.com/sweeney/microwave/internal/oven"
	"github.com/sweeney/microwave/internal/scenario"
)

func newReplayCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Play a scripted session and print the output records",
		Example: `  # Replay at ten times speed
  microwave replay scenarios/quick.yaml --tick 100ms`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := scenario.LoadFile(args[0])
			if err != nil {
				return err
			}
			tick := a.cfg.TickInterval
			if cmd.Flags().Changed("tick") {
				tick, _ = cmd.Flags().GetDuration("tick")
			}
			if tick <= 0 {
				return fmt.Errorf("tick must be positive, got %v", tick)
			}

			w := cmd.OutOrStdout()
			ov := oven.New(hw.OutputFunc(func(line string) { fmt.Fprintln(w, line) }),
				oven.WithInterval(tick),
				oven.WithSettings(a.cfg.Settings()),
				oven.WithLogger(a.log.Named("oven")),
			)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			done := make(chan error, 1)
			go func() { done <- ov.Run(ctx) }()

			log := a.log.Named("replay")
			err = scenario.Run(ctx, ov, sc, func(i int, st scenario.Step) {
				log.Debugw("step", "n", i+1, "step", st.String())
			})
			cancel()
			if runErr := <-done; err == nil && runErr != nil {
				err = runErr
			}
			if err != nil {
				return fmt.Errorf("replay %s: %w", args[0], err)
			}
			return nil
		},
	}
	cmd.Flags().Duration("tick", 0, "countdown step (overrides tick_interval)")
	return cmd
}
