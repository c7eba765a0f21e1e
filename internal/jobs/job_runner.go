package jobs

import (
	"context"
	"sync"

	"vcar-client/internal/config"
	"vcar-client/internal/logger"
	"vcar-client/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	notifications service.NotificationService
	sink          Sink
	config        *config.Config

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(notifications service.NotificationService, sink Sink, cfg *config.Config) *JobRunner {
	return &JobRunner{
		notifications: notifications,
		sink:          sink,
		config:        cfg,
		seen:          make(map[string]struct{}),
	}
}

// Config returns the configuration jobs are scheduled from
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Debug("Starting job", "job", jobName)
	jobFunc()
	logger.Debug("Job completed", "job", jobName)
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll(ctx context.Context) {
	jr.PollNotificationsContext(ctx)
}
