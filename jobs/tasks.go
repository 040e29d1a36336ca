package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskQuoteExpiry moves SENT quotes past their validity to EXPIRED.
	TaskQuoteExpiry = "quotes:expire"
	// TaskIdempotencyCleanup purges old idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
	// TaskLowStockScan reports products under their minimum stock.
	TaskLowStockScan = "inventory:low-stock"
)

// DefaultIdempotencyRetention is how long conversion keys are kept.
const DefaultIdempotencyRetention = 24 * time.Hour

// CleanupPayload configures the idempotency cleanup.
type CleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// LowStockPayload configures the low-stock scan.
type LowStockPayload struct {
	Limit int `json:"limit"`
}

// NewQuoteExpiryTask builds the quote expiry task.
func NewQuoteExpiryTask() *asynq.Task {
	return asynq.NewTask(TaskQuoteExpiry, nil, asynq.Queue(QueueDefault))
}

// NewIdempotencyCleanupTask builds the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	if retention <= 0 {
		retention = DefaultIdempotencyRetention
	}
	body, err := json.Marshal(CleanupPayload{RetentionHours: int(retention / time.Hour)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}

// NewLowStockScanTask builds the low-stock scan task.
func NewLowStockScanTask(limit int) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockPayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// NewTask builds a task by name with its default payload.
func NewTask(name string, lowStockLimit int) (*asynq.Task, error) {
	switch name {
	case TaskQuoteExpiry:
		return NewQuoteExpiryTask(), nil
	case TaskIdempotencyCleanup:
		return NewIdempotencyCleanupTask(DefaultIdempotencyRetention)
	case TaskLowStockScan:
		return NewLowStockScanTask(lowStockLimit)
	default:
		return nil, ErrUnknownTask
	}
}
