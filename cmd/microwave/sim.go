package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/sweeney/microwave/internal/logger"
	"github.com/sweeney/microwave/internal/oven"
	"github.com/sweeney/microwave/internal/tui"
)

func newSimCommand(a *app) *cobra.Command {
	var inline bool
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Operate a simulated oven from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			feed := tui.NewFeed()
			// Console logging would draw over the panel.
			ov := oven.New(feed,
				oven.WithInterval(a.cfg.TickInterval),
				oven.WithSettings(a.cfg.Settings()),
				oven.WithLogger(logger.Nop()),
				oven.WithListener(feed.Listener()),
			)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			done := make(chan error, 1)
			go func() { done <- ov.Run(ctx) }()

			opts := []tea.ProgramOption{tea.WithContext(ctx)}
			if !inline {
				opts = append(opts, tea.WithAltScreen())
			}
			_, err := tea.NewProgram(tui.New(ov, feed, tui.WithInitialState(ov.State())), opts...).Run()

			cancel()
			if runErr := <-done; err == nil {
				err = runErr
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&inline, "inline", false, "render inline instead of the alternate screen")
	return cmd
}
