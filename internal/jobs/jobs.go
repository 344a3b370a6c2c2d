// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/huddle-bot/huddle/internal/domain/entitlements"
	"github.com/huddle-bot/huddle/internal/domain/wizard"
	"github.com/huddle-bot/huddle/internal/metrics"
	"github.com/robfig/cron/v3"
)

// Job is one unit of scheduled work.
type Job struct {
	Name string
	// Spec is a five field cron expression or a descriptor such as "@every 5m".
	Spec string
	Run  func(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler creates a scheduler whose job runs are bounded by timeout.
func NewScheduler(timeout time.Duration) *Scheduler {
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger{}),
			cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
		),
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (s *Scheduler) Add(job Job) error {
	if _, err := s.cron.AddFunc(job.Spec, func() { s.run(job) }); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", job.Name, err)
	}
	slog.Info("Job scheduled",
		slog.String("type", "sys"),
		slog.String("name", job.Name),
		slog.String("spec", job.Spec),
	)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) run(job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx)
	took := time.Since(start)

	if err != nil {
		metrics.JobRuns.WithLabelValues(job.Name, "failed").Inc()
		slog.Error("Job failed",
			slog.String("type", "error"),
			slog.String("name", job.Name),
			slog.Duration("took", took),
			slog.Any("error", err),
		)
		return
	}
	metrics.JobRuns.WithLabelValues(job.Name, "success").Inc()
	slog.Debug("Job finished",
		slog.String("type", "sys"),
		slog.String("name", job.Name),
		slog.Duration("took", took),
	)
}

// ExpireSubscriptions downgrades guilds whose paid period ended.
func ExpireSubscriptions(spec string, service *entitlements.Service) Job {
	return Job{
		Name: "expire_subscriptions",
		Spec: spec,
		Run: func(ctx context.Context) error {
			n, err := service.ExpireLapsed(ctx)
			if n > 0 {
				slog.Info("Subscriptions expired",
					slog.String("type", "sys"),
					slog.Int("count", n),
				)
			}
			return err
		},
	}
}

// SweepWizard drops expired event drafts.
func SweepWizard(spec string, manager *wizard.Manager) Job {
	return Job{
		Name: "sweep_wizard",
		Spec: spec,
		Run: func(context.Context) error {
			if n := manager.Cleanup(); n > 0 {
				slog.Debug("Expired event drafts removed",
					slog.String("type", "sys"),
					slog.Int("count", n),
				)
			}
			return nil
		},
	}
}

// cronLogger routes the cron library's logging to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, append([]any{slog.String("type", "sys")}, keysAndValues...)...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append([]any{slog.String("type", "error"), slog.Any("error", err)}, keysAndValues...)...)
}
