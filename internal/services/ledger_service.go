package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

type TransactionStore interface {
	ListTransactions(ctx context.Context, kind core.TransactionKind, owner core.UserID) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, kind core.TransactionKind, owner core.UserID, id string) (core.Transaction, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, kind core.TransactionKind, owner core.UserID, id string, p core.TransactionPatch, at time.Time) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, kind core.TransactionKind, owner core.UserID, id string) error
}

// TransactionLedger serves one kind of transaction. Incomes and expenses only
// differ in the name of their descriptor.
type TransactionLedger struct {
	kind   core.TransactionKind
	store  TransactionStore
	events *EventDispatcher
	logger *applog.Logger
	now    func() time.Time
}

func NewTransactionLedger(kind core.TransactionKind, store TransactionStore, events *EventDispatcher, logger *applog.Logger) *TransactionLedger {
	if !kind.Valid() {
		panic("services: invalid transaction kind " + string(kind))
	}
	return &TransactionLedger{
		kind:   kind,
		store:  store,
		events: events,
		logger: logger.WithComponent(applog.ComponentLedger).With(applog.FieldKind, string(kind)),
		now:    time.Now,
	}
}

func (l *TransactionLedger) Kind() core.TransactionKind { return l.kind }

// List returns the owner's records, newest date first.
func (l *TransactionLedger) List(ctx context.Context, owner core.UserID) ([]core.Transaction, error) {
	return l.store.ListTransactions(ctx, l.kind, owner)
}

func (l *TransactionLedger) Add(ctx context.Context, owner core.UserID, amount core.Money, descriptor string, date core.Date) (core.Transaction, error) {
	now := l.now().UTC()
	t := core.Transaction{
		ID:         uuid.NewString(),
		OwnerID:    owner,
		Kind:       l.kind,
		Amount:     amount,
		Descriptor: descriptor,
		Date:       date,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, l.validation(err)
	}
	t.Descriptor, _ = core.NormalizeDescriptor(descriptor)

	created, err := l.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}

	l.logger.InfoContext(ctx, "Transaction added",
		applog.FieldOwnerID, owner,
		applog.FieldRecordID, created.ID)
	l.emit(ctx, amqp.ActionCreated, created)
	return created, nil
}

// Update replaces the supplied fields of the owner's record id. Records of
// other owners are reported as missing.
func (l *TransactionLedger) Update(ctx context.Context, owner core.UserID, id string, patch core.TransactionPatch) (core.Transaction, error) {
	if err := patch.Validate(); err != nil {
		return core.Transaction{}, l.validation(err)
	}
	if patch.Descriptor != nil {
		d, _ := core.NormalizeDescriptor(*patch.Descriptor)
		patch.Descriptor = &d
	}

	var (
		t   core.Transaction
		err error
	)
	if patch.Empty() {
		t, err = l.store.GetTransaction(ctx, l.kind, owner, id)
	} else {
		t, err = l.store.UpdateTransaction(ctx, l.kind, owner, id, patch, l.now().UTC())
	}
	if storage.IsNotFound(err) {
		return core.Transaction{}, l.notFound()
	}
	if err != nil {
		return core.Transaction{}, err
	}

	if !patch.Empty() {
		l.emit(ctx, amqp.ActionUpdated, t)
	}
	return t, nil
}

func (l *TransactionLedger) Remove(ctx context.Context, owner core.UserID, id string) error {
	err := l.store.DeleteTransaction(ctx, l.kind, owner, id)
	if storage.IsNotFound(err) {
		return l.notFound()
	}
	if err != nil {
		return err
	}

	l.events.Emit(ctx, amqp.NewLedgerEvent(l.eventType(), amqp.ActionDeleted, string(owner), id, ""))
	return nil
}

func (l *TransactionLedger) emit(ctx context.Context, action string, t core.Transaction) {
	l.events.Emit(ctx, amqp.NewLedgerEvent(l.eventType(), action, string(t.OwnerID), t.ID, t.Descriptor))
}

func (l *TransactionLedger) eventType() string {
	if l.kind == core.Income {
		return amqp.EventTypeIncome
	}
	return amqp.EventTypeExpense
}

func (l *TransactionLedger) notFound() error {
	if l.kind == core.Income {
		return core.NotFound("Income not found")
	}
	return core.NotFound("Expense not found")
}

func (l *TransactionLedger) validation(err error) error {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return core.Validation("Amount must be greater than zero", err)
	case errors.Is(err, core.ErrEmptyDescriptor):
		return core.Validation(capitalize(l.kind.DescriptorField())+" is required", err)
	case errors.Is(err, core.ErrInvalidDate):
		return core.Validation("Date is required (YYYY-MM-DD)", err)
	}
	return core.Validation(capitalize(err.Error()), err)
}
