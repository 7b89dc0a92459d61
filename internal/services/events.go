package services

import (
	"context"
	"sync"

	"fintrack/internal/amqp"
	applog "fintrack/internal/log"
)

// EventPublisher delivers ledger events to the broker.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
}

type pendingEvent struct {
	ctx   context.Context
	event *amqp.LedgerEvent
}

// EventDispatcher publishes ledger events off the request path. A nil
// *EventDispatcher is valid and drops every event, which is how the server
// runs without a broker.
type EventDispatcher struct {
	publisher EventPublisher
	logger    *applog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan pendingEvent
	done   chan struct{}
}

func NewEventDispatcher(publisher EventPublisher, logger *applog.Logger, buffer int) *EventDispatcher {
	if buffer < 1 {
		buffer = 1
	}
	d := &EventDispatcher{
		publisher: publisher,
		logger:    logger.WithComponent(applog.ComponentAMQP),
		queue:     make(chan pendingEvent, buffer),
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *EventDispatcher) run() {
	defer close(d.done)
	for p := range d.queue {
		if err := d.publisher.PublishLedgerEvent(p.ctx, p.event); err != nil {
			// The store already holds the change; the audit trail misses it.
			d.logger.ErrorContext(p.ctx, "Failed to publish ledger event",
				applog.FieldEventID, p.event.ID,
				applog.FieldKind, p.event.Type,
				applog.FieldOperation, applog.OpPublish,
				applog.FieldError, err)
		}
	}
}

// Emit queues event without blocking. Events are dropped when the buffer is
// full or the dispatcher is closed.
func (d *EventDispatcher) Emit(ctx context.Context, event *amqp.LedgerEvent) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	select {
	case d.queue <- pendingEvent{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		d.logger.WarnContext(ctx, "Event buffer full, dropping ledger event",
			applog.FieldEventID, event.ID,
			applog.FieldKind, event.Type)
	}
}

// Close stops accepting events and waits for queued ones to be published.
func (d *EventDispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	<-d.done
}
