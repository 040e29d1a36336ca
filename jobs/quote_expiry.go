package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/alvarodevdoo/erp/internal/jobs"
)

// QuoteExpirer expires SENT quotes whose validity has passed.
type QuoteExpirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}

// QuoteExpiryJob runs the expiry sweep.
type QuoteExpiryJob struct {
	Service QuoteExpirer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewQuoteExpiryJob constructs the job handler.
func NewQuoteExpiryJob(service QuoteExpirer, logger *slog.Logger, metrics *jobmetrics.Metrics) *QuoteExpiryJob {
	return &QuoteExpiryJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the sweep.
func (j *QuoteExpiryJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.Service == nil {
		return errors.New("quote expiry: dependencies not configured")
	}
	tracker := j.Metrics.Track(TaskQuoteExpiry)
	defer func() { err = tracker.End(err) }()

	n, err := j.Service.ExpireOverdue(ctx, j.clock())
	if err != nil {
		logger(j.Logger).Error("expire quotes", slog.Any("error", err))
		return err
	}
	j.Metrics.AddProcessed(TaskQuoteExpiry, n)
	if n > 0 {
		logger(j.Logger).Info("quotes expired", slog.Int("count", n))
	}
	return nil
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
