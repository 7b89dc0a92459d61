package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

const (
	categoryExists   = "Category name already exists for this user."
	categoryNotFound = "Category not found."
)

type CategoryStore interface {
	ListCategoryNames(ctx context.Context, owner core.UserID) ([]string, error)
	CategoryExists(ctx context.Context, owner core.UserID, name string) (bool, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	RenameCategory(ctx context.Context, owner core.UserID, oldName, newName string) (core.Category, error)
	DeleteCategory(ctx context.Context, owner core.UserID, name string) error
}

// CategoryLedger manages per-owner category names. Renames and removals never
// touch transactions that mention the old name.
type CategoryLedger struct {
	store  CategoryStore
	events *EventDispatcher
	logger *applog.Logger
	now    func() time.Time
}

func NewCategoryLedger(store CategoryStore, events *EventDispatcher, logger *applog.Logger) *CategoryLedger {
	return &CategoryLedger{
		store:  store,
		events: events,
		logger: logger.WithComponent(applog.ComponentCategory),
		now:    time.Now,
	}
}

func (l *CategoryLedger) List(ctx context.Context, owner core.UserID) ([]string, error) {
	names, err := l.store.ListCategoryNames(ctx, owner)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (l *CategoryLedger) Add(ctx context.Context, owner core.UserID, name string) (core.Category, error) {
	name, err := normalizeCategory(name)
	if err != nil {
		return core.Category{}, err
	}

	// Early exit only; the unique index settles concurrent adds.
	exists, err := l.store.CategoryExists(ctx, owner, name)
	if err != nil {
		return core.Category{}, err
	}
	if exists {
		return core.Category{}, core.Duplicate(categoryExists)
	}

	c, err := l.store.CreateCategory(ctx, core.Category{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		Name:      name,
		CreatedAt: l.now().UTC(),
	})
	if storage.IsDuplicateKey(err) {
		return core.Category{}, core.Duplicate(categoryExists)
	}
	if err != nil {
		return core.Category{}, err
	}

	l.logger.InfoContext(ctx, "Category added",
		applog.FieldOwnerID, owner,
		applog.FieldRecordID, c.ID)
	l.events.Emit(ctx, amqp.NewLedgerEvent(amqp.EventTypeCategory, amqp.ActionCreated, string(owner), c.ID, c.Name))
	return c, nil
}

// Rename changes the name of the owner's category oldName in place.
func (l *CategoryLedger) Rename(ctx context.Context, owner core.UserID, oldName, newName string) (core.Category, error) {
	oldName = strings.TrimSpace(oldName)
	if oldName == "" {
		return core.Category{}, core.NotFound(categoryNotFound)
	}
	newName, err := normalizeCategory(newName)
	if err != nil {
		return core.Category{}, err
	}

	// A taken name is reported before a missing source.
	if newName != oldName {
		exists, err := l.store.CategoryExists(ctx, owner, newName)
		if err != nil {
			return core.Category{}, err
		}
		if exists {
			return core.Category{}, core.Duplicate(categoryExists)
		}
	}

	c, err := l.store.RenameCategory(ctx, owner, oldName, newName)
	switch {
	case storage.IsNotFound(err):
		return core.Category{}, core.NotFound(categoryNotFound)
	case storage.IsDuplicateKey(err):
		return core.Category{}, core.Duplicate(categoryExists)
	case err != nil:
		return core.Category{}, err
	}

	l.logger.InfoContext(ctx, "Category renamed",
		applog.FieldOwnerID, owner,
		applog.FieldRecordID, c.ID)
	l.events.Emit(ctx, amqp.NewLedgerEvent(amqp.EventTypeCategory, amqp.ActionRenamed, string(owner), c.ID, c.Name))
	return c, nil
}

func (l *CategoryLedger) Remove(ctx context.Context, owner core.UserID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.NotFound(categoryNotFound)
	}

	err := l.store.DeleteCategory(ctx, owner, name)
	if storage.IsNotFound(err) {
		return core.NotFound(categoryNotFound)
	}
	if err != nil {
		return err
	}

	l.events.Emit(ctx, amqp.NewLedgerEvent(amqp.EventTypeCategory, amqp.ActionDeleted, string(owner), "", name))
	return nil
}

func normalizeCategory(name string) (string, error) {
	n, err := core.NormalizeName(name)
	if errors.Is(err, core.ErrEmptyName) {
		return "", core.Validation("Category name is required.", err)
	}
	if err != nil {
		return "", core.Validation(capitalize(err.Error()), err)
	}
	return n, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

