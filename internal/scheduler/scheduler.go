// Package scheduler runs periodic scans on cron specs with a seconds field.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is one scheduled unit of work
type Job func(ctx context.Context) error

// Runner wraps a cron scheduler whose jobs share a base context
type Runner struct {
	cron    *cron.Cron
	log     *logrus.Logger
	baseCtx context.Context
}

// New creates a runner. Jobs still running when their next tick arrives are
// skipped for that tick, and a panicking job is recovered and logged.
func New(baseCtx context.Context, log *logrus.Logger) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	cronLog := cron.PrintfLogger(log)
	return &Runner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		log:     log,
		baseCtx: baseCtx,
	}
}

// Add schedules a named job
func (r *Runner) Add(name, spec string, job Job) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		r.RunNow(name, job)
	})
}

// RunNow runs a job immediately on the caller's goroutine
func (r *Runner) RunNow(name string, job Job) {
	if r.baseCtx.Err() != nil {
		return
	}
	start := time.Now()
	err := job(r.baseCtx)
	logger := r.log.WithFields(logrus.Fields{
		"job":      name,
		"duration": time.Since(start).String(),
	})
	if err != nil {
		logger.WithError(err).Error("Scheduled job failed")
		return
	}
	logger.Debug("Scheduled job finished")
}

// Len returns the number of scheduled jobs
func (r *Runner) Len() int {
	return len(r.cron.Entries())
}

// Start starts the scheduler in its own goroutine
func (r *Runner) Start() {
	r.log.Info("Scheduler started")
	r.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
	r.log.Info("Scheduler stopped")
}
