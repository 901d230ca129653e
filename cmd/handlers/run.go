package handlers

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"topicmon/internal/core"
	"topicmon/internal/logger"
	"topicmon/internal/pipeline"
)

// NewRunCmd creates the single-run command
func NewRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once for a time slot",
		Long: `Fetch the last window of articles, extract and cluster topics, score them
and append the slot's section to the daily report.`,
		Example: `  topicmon run --slot morning
  topicmon run --slot evening --date 2026-03-01 --no-cache`,
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, date, err := slotAndDate(cmd)
			if err != nil {
				return err
			}
			noCache, _ := cmd.Flags().GetBool("no-cache")
			return runOnce(cmd, slot, date, noCache)
		},
	}

	addSlotFlags(runCmd, "report date YYYY-MM-DD (default today)")
	runCmd.Flags().Bool("no-cache", false, "Bypass the extraction cache")
	return runCmd
}

func runOnce(cmd *cobra.Command, slot core.TimeSlot, date string, noCache bool) error {
	cfg, err := pipelineConfig(true)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	builder := pipeline.NewBuilder(cfg, logger.Get())
	if noCache {
		builder.WithoutCache()
	}
	defer func() {
		if err := builder.Close(); err != nil {
			logger.Error("Failed to close cache store", err)
		}
	}()

	p, err := builder.Build(ctx)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx, pipeline.RunOptions{Slot: slot, Date: date})
	if res != nil {
		printRunResult(cmd, res)
	}
	if err != nil {
		return err
	}
	if res.Aborted() {
		return fmt.Errorf("run aborted: %s", res.AbortReason)
	}
	return nil
}

func printRunResult(cmd *cobra.Command, res *pipeline.RunResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "\n📋 Run %s (%s %s)\n", res.RunID, res.Date, res.Slot)
	fmt.Fprintf(out, "   • Final stage: %s\n", res.FinalStage)
	if res.AbortReason != "" {
		fmt.Fprintf(out, "   • Abort reason: %s\n", res.AbortReason)
	}
	fmt.Fprintf(out, "   • Articles: %d from %d sources\n", res.Articles, res.Sources)
	if res.CacheHits+res.CacheMisses > 0 {
		fmt.Fprintf(out, "   • Extraction cache: %d hits, %d misses\n", res.CacheHits, res.CacheMisses)
	}
	if res.Mode != "" {
		fmt.Fprintf(out, "   • Clustering: %s, %d topics\n", res.Mode, len(res.Clusters))
	}
	for _, d := range res.Degradations {
		fmt.Fprintf(out, "   ⚠️  %s %s → %s\n", d.Stage, d.Subject, d.Fallback)
	}
	if res.ReportPath != "" {
		fmt.Fprintf(out, "   ✓ Report: %s\n", res.ReportPath)
	}
	fmt.Fprintf(out, "   • Took %s\n", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
}
