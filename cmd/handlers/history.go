package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"topicmon/internal/config"
	"topicmon/internal/logger"
	"topicmon/internal/store"
)

// NewHistoryCmd creates the command listing recent runs
func NewHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent pipeline runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			cacheStore, err := openStore()
			if err != nil {
				return err
			}
			defer func() {
				if err := cacheStore.Close(); err != nil {
					logger.Error("Failed to close cache store", err)
				}
			}()

			runs, err := cacheStore.RecentRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRuns(runs))
			return nil
		},
	}

	historyCmd.Flags().Int("limit", 10, "Number of runs to show")
	return historyCmd
}

func renderRuns(runs []store.RunRecord) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.Date,
			r.Slot,
			r.FinalStage,
			r.Mode,
			strconv.Itoa(r.Articles),
			strconv.Itoa(r.Clusters),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			r.AbortReason,
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers("Date", "Slot", "Stage", "Mode", "Articles", "Topics", "Took", "Abort reason").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Render()
}

func openStore() (*store.Store, error) {
	cfg := config.Get()
	cacheStore, err := store.NewStore(cfg.App.DataDir, config.Duration(cfg.Cache.TTL, 72*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache store: %w", err)
	}
	return cacheStore, nil
}
