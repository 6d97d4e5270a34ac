// Package jobs holds the background task definitions and the asynq worker
// that runs them.
package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the only queue the worker consumes.
	QueueDefault = "default"

	// TypeStockReconcile recomputes ledger sums against product counters.
	TypeStockReconcile = "stock:reconcile"
	// TypeKeyCleanup expires old idempotency keys.
	TypeKeyCleanup = "maintenance:key_cleanup"
)

// NewStockReconcileTask builds the reconciliation task.
func NewStockReconcileTask() *asynq.Task {
	return asynq.NewTask(TypeStockReconcile, nil, asynq.Queue(QueueDefault))
}

// NewKeyCleanupTask builds the idempotency key cleanup task.
func NewKeyCleanupTask() *asynq.Task {
	return asynq.NewTask(TypeKeyCleanup, nil, asynq.Queue(QueueDefault))
}
