package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tableflow/order-service/internal/repository"
)

// CleanupJob prunes stale push subscriptions and spent reset tokens.
type CleanupJob struct {
	subs       repository.PushSubscriptionRepository
	resets     repository.PasswordResetRepository
	staleAfter time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewCleanupJob builds the job.
func NewCleanupJob(subs repository.PushSubscriptionRepository, resets repository.PasswordResetRepository, staleAfter time.Duration, logger *zap.Logger) *CleanupJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CleanupJob{subs: subs, resets: resets, staleAfter: staleAfter, logger: logger, now: time.Now}
}

// Run performs one cleanup pass.
func (j *CleanupJob) Run(ctx context.Context) {
	now := j.now()
	if j.subs != nil && j.staleAfter > 0 {
		removed, err := j.subs.DeleteStale(ctx, now.Add(-j.staleAfter))
		if err != nil {
			j.logger.Warn("prune push subscriptions failed", zap.Error(err))
		} else {
			j.logger.Info("pruned push subscriptions", zap.Int64("removed", removed))
		}
	}
	if j.resets != nil {
		removed, err := j.resets.DeleteExpired(ctx, now)
		if err != nil {
			j.logger.Warn("prune reset tokens failed", zap.Error(err))
		} else {
			j.logger.Info("pruned reset tokens", zap.Int64("removed", removed))
		}
	}
}

// StartCleanupScheduler runs job on schedule until ctx ends. The returned
// func stops the scheduler and waits for a running pass.
func StartCleanupScheduler(ctx context.Context, schedule string, job *CleanupJob, logger *zap.Logger) (func(), error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		job.Run(runCtx)
	}); err != nil {
		return nil, err
	}
	c.Start()
	logger.Info("cleanup scheduler started", zap.String("schedule", schedule))

	return func() {
		<-c.Stop().Done()
	}, nil
}
