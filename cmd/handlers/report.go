package handlers

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"topicmon/internal/config"
	"topicmon/internal/core"
	"topicmon/internal/logger"
	"topicmon/internal/pipeline"
)

// NewReportCmd creates the report regeneration command
func NewReportCmd() *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Regenerate a slot's report section from saved heat scores",
		Long: `Load the heat scores saved by an earlier run and rewrite that slot's section
of the daily report. Nothing is fetched and no topics are extracted again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, date, err := slotAndDate(cmd)
			if err != nil {
				return err
			}
			return runReport(cmd, slot, resolveDate(date))
		},
	}

	addSlotFlags(reportCmd, "report date YYYY-MM-DD (default today)")
	return reportCmd
}

func runReport(cmd *cobra.Command, slot core.TimeSlot, date string) error {
	cfg, err := pipelineConfig(false)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	builder := pipeline.NewBuilder(cfg, logger.Get()).WithoutCache()
	p, err := builder.Build(ctx)
	if err != nil {
		return err
	}

	result, err := p.RegenerateReport(ctx, date, slot)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Report regenerated: %s\n", result.Path)
	return nil
}

// resolveDate defaults an empty date to today in the configured timezone.
func resolveDate(date string) string {
	if date != "" {
		return date
	}
	return time.Now().In(config.Get().App.Location()).Format(core.DateLayout)
}
