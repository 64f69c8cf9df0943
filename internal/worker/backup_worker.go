// Package worker runs the queued backup consumer.
package worker

import (
	"context"
	"fmt"
	"time"

	"smartexpense/internal/amqp"
	"smartexpense/internal/log"
)

type (
	Consumer interface {
		ConsumeBackupRequests(ctx context.Context, handler amqp.BackupHandler) error
	}

	Handler interface {
		HandleRequest(ctx context.Context, msg *amqp.BackupRequestMessage) error
	}
)

// DefaultHandleTimeout bounds the work done for a single request.
const DefaultHandleTimeout = 30 * time.Second

// BackupWorker writes a snapshot for every backup request taken off the queue.
type BackupWorker struct {
	consumer Consumer
	handler  Handler
	timeout  time.Duration
	logger   *log.Logger
}

func NewBackupWorker(consumer Consumer, handler Handler, timeout time.Duration, logger *log.Logger) *BackupWorker {
	if timeout <= 0 {
		timeout = DefaultHandleTimeout
	}
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentWorker)
	}
	return &BackupWorker{
		consumer: consumer,
		handler:  handler,
		timeout:  timeout,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Run blocks until ctx is cancelled or the consumer gives up.
func (w *BackupWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Backup worker started")
	defer w.logger.InfoContext(ctx, "Backup worker stopped")
	if err := w.consumer.ConsumeBackupRequests(ctx, w.Handle); err != nil {
		return fmt.Errorf("consume backup requests: %w", err)
	}
	return nil
}

// Handle processes one request within the worker's timeout.
func (w *BackupWorker) Handle(ctx context.Context, msg *amqp.BackupRequestMessage) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	if err := w.handler.HandleRequest(ctx, msg); err != nil {
		w.logger.ErrorContext(ctx, "Backup request failed",
			"id", msg.ID,
			log.FieldError, err,
			"duration_ms", time.Since(start).Milliseconds())
		return err
	}
	w.logger.InfoContext(ctx, "Backup request done",
		"id", msg.ID,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
