package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// EventRecorder appends ledger events to the audit table.
type EventRecorder interface {
	RecordLedgerEvent(ctx context.Context, e storage.LedgerEvent) (bool, error)
}

// EventSource delivers ledger events until ctx is done or the subscription fails.
type EventSource interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
}

// AuditWorker copies ledger events from the broker into the store.
type AuditWorker struct {
	recorder     EventRecorder
	logger       *applog.Logger
	now          func() time.Time
	restartDelay time.Duration
}

func NewAuditWorker(recorder EventRecorder, logger *applog.Logger) *AuditWorker {
	return &AuditWorker{
		recorder:     recorder,
		logger:       logger.WithComponent(applog.ComponentWorker),
		now:          time.Now,
		restartDelay: 5 * time.Second,
	}
}

// HandleLedgerEvent stores one event. Redeliveries are acknowledged without a
// second row.
func (w *AuditWorker) HandleLedgerEvent(ctx context.Context, e *amqp.LedgerEvent) error {
	inserted, err := w.recorder.RecordLedgerEvent(ctx, storage.LedgerEvent{
		ID:         e.ID,
		Type:       e.Type,
		Action:     e.Action,
		OwnerID:    e.OwnerID,
		RecordID:   e.RecordID,
		Name:       e.Name,
		OccurredAt: e.OccurredAt.UTC().UnixMicro(),
		ReceivedAt: w.now().UTC().UnixMicro(),
	})
	if err != nil {
		return fmt.Errorf("record event %s: %w", e.ID, err)
	}

	if !inserted {
		w.logger.DebugContext(ctx, "Duplicate ledger event ignored", applog.FieldEventID, e.ID)
		return nil
	}
	w.logger.InfoContext(ctx, "Ledger event recorded",
		applog.FieldEventID, e.ID,
		applog.FieldKind, e.Type,
		applog.FieldOperation, e.Action,
		applog.FieldOwnerID, e.OwnerID)
	return nil
}

// Run consumes from source until ctx is cancelled, resubscribing after a
// failed subscription.
func (w *AuditWorker) Run(ctx context.Context, source EventSource) error {
	for {
		err := source.ConsumeLedgerEvents(ctx, w.HandleLedgerEvent)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errors.New("consumer stopped")
		}

		w.logger.ErrorContext(ctx, "Consumption failed, restarting",
			applog.FieldOperation, applog.OpConsume,
			applog.FieldError, err,
			"delay", w.restartDelay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.restartDelay):
		}
	}
}
