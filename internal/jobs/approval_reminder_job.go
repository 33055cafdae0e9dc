package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const ApprovalReminderJobName = "approval_reminder"

// ApprovalReminderService sends reminders for work orders left awaiting approval
type ApprovalReminderService interface {
	SendApprovalReminders(ctx context.Context, after time.Duration) (int, error)
}

// ApprovalReminderJob reminds managers about work orders that have sat in
// pending-approval longer than the configured threshold.
type ApprovalReminderJob struct {
	service ApprovalReminderService
	after   time.Duration
	timeout time.Duration
	logger  *zap.Logger
}

func NewApprovalReminderJob(service ApprovalReminderService, after, timeout time.Duration, logger *zap.Logger) *ApprovalReminderJob {
	return &ApprovalReminderJob{
		service: service,
		after:   after,
		timeout: timeout,
		logger:  logger,
	}
}

// Run is invoked by the scheduler
func (j *ApprovalReminderJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	j.RunWithContext(ctx)
}

func (j *ApprovalReminderJob) RunWithContext(ctx context.Context) {
	start := time.Now()
	sent, err := j.service.SendApprovalReminders(ctx, j.after)
	if err != nil {
		j.logger.Error("approval reminder job failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}
	j.logger.Info("approval reminder job completed",
		zap.Int("reminders_sent", sent),
		zap.Duration("waiting_over", j.after),
		zap.Duration("duration", time.Since(start)))
}

// RegisterApprovalReminderJob schedules the reminder job on cronExpr
func RegisterApprovalReminderJob(scheduler *Scheduler, service ApprovalReminderService, logger *zap.Logger, cronExpr string, after, timeout time.Duration) error {
	job := NewApprovalReminderJob(service, after, timeout, logger)
	return scheduler.AddJob(ApprovalReminderJobName, cronExpr, job.Run)
}
