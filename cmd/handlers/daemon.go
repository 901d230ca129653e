package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"topicmon/internal/logger"
	"topicmon/internal/pipeline"
	"topicmon/internal/scheduler"
)

// NewDaemonCmd creates the recurring-trigger command
func NewDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run the pipeline at the three scheduled times every day",
		Long: `Stay in the foreground and trigger the morning, afternoon and evening runs
at the times configured under schedule, in the configured timezone. A trigger
that fires while a run is still active is skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd)
		},
	}
}

func runDaemon(cmd *cobra.Command) error {
	cfg, err := pipelineConfig(true)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	builder := pipeline.NewBuilder(cfg, logger.Get())
	defer func() {
		if err := builder.Close(); err != nil {
			logger.Error("Failed to close cache store", err)
		}
	}()

	p, err := builder.Build(ctx)
	if err != nil {
		return err
	}

	s, err := scheduler.New(p, cfg.Schedule, cfg.App.Location(), logger.For("scheduler"))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "⏰ topicmon daemon started (%s): morning %s, afternoon %s, evening %s\n",
		cfg.App.Timezone, cfg.Schedule.Morning, cfg.Schedule.Afternoon, cfg.Schedule.Evening)
	return s.Run(ctx)
}
