// Package scheduler triggers pipeline runs at the configured slot times.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"topicmon/internal/config"
	"topicmon/internal/core"
	"topicmon/internal/pipeline"
)

// Runner executes one run
type Runner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) (*pipeline.RunResult, error)
}

// Job is a scheduled slot and its next trigger time.
type Job struct {
	Slot core.TimeSlot
	Spec string
	Next time.Time
}

// Scheduler runs the pipeline once per slot per day. Runs never overlap: a
// trigger that fires while another run is active is skipped.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	log     zerolog.Logger
	running sync.Mutex
	entries map[core.TimeSlot]cron.EntryID
	specs   map[core.TimeSlot]string
	ctx     context.Context
}

// New registers one cron job per slot in loc.
func New(runner Runner, schedule config.Schedule, loc *time.Location, log zerolog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}

	s := &Scheduler{
		runner:  runner,
		log:     log,
		entries: make(map[core.TimeSlot]cron.EntryID, 3),
		specs:   make(map[core.TimeSlot]string, 3),
		ctx:     context.Background(),
	}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{log: log}),
	)

	for _, slot := range core.Slots() {
		spec, err := Spec(schedule.TimeFor(slot))
		if err != nil {
			return nil, fmt.Errorf("schedule.%s: %w", slot, err)
		}

		slot := slot
		id, err := s.cron.AddFunc(spec, func() { s.Trigger(s.ctx, slot) })
		if err != nil {
			return nil, fmt.Errorf("failed to schedule %s run: %w", slot, err)
		}
		s.entries[slot] = id
		s.specs[slot] = spec
	}
	return s, nil
}

// Spec converts an HH:MM clock time to a daily cron expression.
func Spec(clock string) (string, error) {
	hour, minute, err := config.ParseClock(clock)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// Trigger runs slot now unless another run is active. The boolean reports
// whether the run happened.
func (s *Scheduler) Trigger(ctx context.Context, slot core.TimeSlot) (*pipeline.RunResult, bool) {
	if !s.running.TryLock() {
		s.log.Warn().Str("slot", string(slot)).Msg("Previous run still active, skipping trigger")
		return nil, false
	}
	defer s.running.Unlock()

	s.log.Info().Str("slot", string(slot)).Msg("Scheduled run triggered")
	res, err := s.runner.Run(ctx, pipeline.RunOptions{Slot: slot})
	if err != nil {
		s.log.Error().Err(err).Str("slot", string(slot)).Msg("Scheduled run failed")
	}
	return res, true
}

// Jobs lists the scheduled slots with their next trigger time. Next is zero
// until the scheduler has started.
func (s *Scheduler) Jobs() []Job {
	jobs := make([]Job, 0, len(s.entries))
	for _, slot := range core.Slots() {
		id, ok := s.entries[slot]
		if !ok {
			continue
		}
		jobs = append(jobs, Job{
			Slot: slot,
			Spec: s.specs[slot],
			Next: s.cron.Entry(id).Next,
		})
	}
	return jobs
}

// Run starts the scheduler and blocks until ctx is cancelled, then waits for
// an active run to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()

	for _, job := range s.Jobs() {
		s.log.Info().
			Str("slot", string(job.Slot)).
			Str("spec", job.Spec).
			Time("next", job.Next).
			Msg("Scheduled")
	}

	<-ctx.Done()
	s.log.Info().Msg("Stopping scheduler")
	<-s.cron.Stop().Done()
	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
