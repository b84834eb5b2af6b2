package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/sweeney/microwave/internal/history"
	"github.com/sweeney/microwave/internal/web"
)

func newHistoryCommand(a *app) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded cooking sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.History.Path == "" {
				return errors.New("history is disabled (history.path is empty)")
			}
			db, err := history.Open(a.cfg.History.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := history.NewStore(db).List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(web.FormatHistory(entries))
			}
			if len(entries) == 0 {
				fmt.Fprintln(w, "no sessions recorded")
				return nil
			}
			fmt.Fprintln(w, historyTable(entries))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "maximum sessions to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	return cmd
}

func historyTable(entries []history.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.EndedAt.Local().Format(time.DateTime),
			strconv.Itoa(e.Power) + " W",
			formatSeconds(e.Duration),
			e.Elapsed().Truncate(time.Second).String(),
			string(e.Outcome),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444444"))).
		Headers("ENDED", "POWER", "SET", "COOKED", "OUTCOME").
		Rows(rows...).
		String()
}

func formatSeconds(s int) string {
	return fmt.Sprintf("%02d:%02d", s/60, s%60)
}
