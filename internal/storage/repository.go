package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// dsn enables WAL, foreign keys and a busy timeout so concurrent writers wait for
// the lock instead of failing immediately.
func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Migrations first: they open and close their own connection.
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the store is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func toMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

func fromMicros(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

func userFromRow(u User) core.User {
	return core.User{
		ID:           core.UserID(u.ID),
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    fromMicros(u.CreatedAt),
	}
}

func categoryFromRow(c Category) core.Category {
	return core.Category{
		ID:        c.ID,
		OwnerID:   core.UserID(c.OwnerID),
		Name:      c.Name,
		CreatedAt: fromMicros(c.CreatedAt),
	}
}

func transactionFromRow(kind core.TransactionKind, t Transaction) (core.Transaction, error) {
	date, err := core.ParseDate(t.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored %s %s has invalid date %q: %w", kind, t.ID, t.Date, err)
	}
	return core.Transaction{
		ID:         t.ID,
		OwnerID:    core.UserID(t.OwnerID),
		Kind:       kind,
		Amount:     core.Money{Cents: t.AmountCents},
		Descriptor: t.Descriptor,
		Date:       date,
		CreatedAt:  fromMicros(t.CreatedAt),
		UpdatedAt:  fromMicros(t.UpdatedAt),
	}, nil
}

// CreateUser inserts a user. A taken email fails with ErrDuplicateKey from the
// unique index.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	row, err := r.queries.CreateUser(ctx, CreateUserParams{
		ID:           string(u.ID),
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    toMicros(u.CreatedAt),
	})
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", mapError(err))
	}

	slog.InfoContext(ctx, "User saved to SQLite", "user_id", row.ID)
	return userFromRow(row), nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row, err := r.queries.GetUserByEmail(ctx, email)
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", mapError(err))
	}
	return userFromRow(row), nil
}

// ListCategoryNames returns the owner's category names in insertion order.
func (r *SQLiteRepository) ListCategoryNames(ctx context.Context, owner core.UserID) ([]string, error) {
	names, err := r.queries.ListCategoryNames(ctx, string(owner))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", mapError(err))
	}
	return names, nil
}

func (r *SQLiteRepository) CategoryExists(ctx context.Context, owner core.UserID, name string) (bool, error) {
	exists, err := r.queries.CategoryExists(ctx, string(owner), name)
	if err != nil {
		return false, fmt.Errorf("check category: %w", mapError(err))
	}
	return exists, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	row, err := r.queries.CreateCategory(ctx, CreateCategoryParams{
		ID:        c.ID,
		OwnerID:   string(c.OwnerID),
		Name:      c.Name,
		CreatedAt: toMicros(c.CreatedAt),
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", mapError(err))
	}
	return categoryFromRow(row), nil
}

// RenameCategory renames the row matching (owner, oldName) in a single statement.
// It fails with ErrNotFound when no row matches and ErrDuplicateKey when newName
// is taken by another row.
func (r *SQLiteRepository) RenameCategory(ctx context.Context, owner core.UserID, oldName, newName string) (core.Category, error) {
	row, err := r.queries.RenameCategory(ctx, RenameCategoryParams{
		OwnerID: string(owner),
		OldName: oldName,
		NewName: newName,
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("rename category: %w", mapError(err))
	}
	return categoryFromRow(row), nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, owner core.UserID, name string) error {
	n, err := r.queries.DeleteCategory(ctx, string(owner), name)
	if err != nil {
		return fmt.Errorf("delete category: %w", mapError(err))
	}
	if n == 0 {
		return fmt.Errorf("delete category: %w", ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, kind core.TransactionKind, owner core.UserID) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, kind, string(owner))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, mapError(err))
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := transactionFromRow(kind, row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, kind core.TransactionKind, owner core.UserID, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, kind, id, string(owner))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get %s: %w", kind, mapError(err))
	}
	return transactionFromRow(kind, row)
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	row, err := r.queries.CreateTransaction(ctx, t.Kind, Transaction{
		ID:          t.ID,
		OwnerID:     string(t.OwnerID),
		AmountCents: t.Amount.Cents,
		Descriptor:  t.Descriptor,
		Date:        t.Date.String(),
		CreatedAt:   toMicros(t.CreatedAt),
		UpdatedAt:   toMicros(t.UpdatedAt),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create %s: %w", t.Kind, mapError(err))
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"kind", t.Kind,
		"id", row.ID,
		"amount_cents", row.AmountCents,
		"date", row.Date)

	return transactionFromRow(t.Kind, row)
}

// UpdateTransaction applies the non-nil patch fields to the row matching
// (id, owner) in a single statement.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, kind core.TransactionKind, owner core.UserID, id string, p core.TransactionPatch, at time.Time) (core.Transaction, error) {
	arg := UpdateTransactionParams{
		ID:        id,
		OwnerID:   string(owner),
		UpdatedAt: toMicros(at),
	}
	if p.Amount != nil {
		arg.AmountCents = sql.NullInt64{Int64: p.Amount.Cents, Valid: true}
	}
	if p.Descriptor != nil {
		arg.Descriptor = sql.NullString{String: *p.Descriptor, Valid: true}
	}
	if p.Date != nil {
		arg.Date = sql.NullString{String: p.Date.String(), Valid: true}
	}

	row, err := r.queries.UpdateTransaction(ctx, kind, arg)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update %s: %w", kind, mapError(err))
	}
	return transactionFromRow(kind, row)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, kind core.TransactionKind, owner core.UserID, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, kind, id, string(owner))
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, mapError(err))
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", kind, ErrNotFound)
	}
	return nil
}

// LedgerTotals aggregates one ledger for the owner.
func (r *SQLiteRepository) LedgerTotals(ctx context.Context, kind core.TransactionKind, owner core.UserID) (core.LedgerTotals, error) {
	var totals core.LedgerTotals

	count, total, err := r.queries.SumTransactions(ctx, kind, string(owner))
	if err != nil {
		return totals, fmt.Errorf("sum %s: %w", kind, mapError(err))
	}
	totals.Count = count
	totals.Total = core.Money{Cents: total}

	sums, err := r.queries.SumTransactionsByDescriptor(ctx, kind, string(owner))
	if err != nil {
		return totals, fmt.Errorf("sum %s by descriptor: %w", kind, mapError(err))
	}
	totals.ByName = make([]core.NamedAmount, 0, len(sums))
	for _, s := range sums {
		totals.ByName = append(totals.ByName, core.NamedAmount{
			Name:   s.Descriptor,
			Amount: core.Money{Cents: s.TotalAmount},
		})
	}

	return totals, nil
}

// RecordLedgerEvent appends an event to the audit table. Redelivered events are
// ignored; the returned bool reports whether a row was written.
func (r *SQLiteRepository) RecordLedgerEvent(ctx context.Context, e LedgerEvent) (bool, error) {
	n, err := r.queries.InsertLedgerEvent(ctx, e)
	if err != nil {
		return false, fmt.Errorf("record ledger event: %w", mapError(err))
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListLedgerEvents(ctx context.Context, owner core.UserID, limit int) ([]LedgerEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	events, err := r.queries.ListLedgerEvents(ctx, string(owner), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list ledger events: %w", mapError(err))
	}
	return events, nil
}

// IsNotFound reports whether err is a storage miss.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsDuplicateKey reports whether err is a unique constraint violation.
func IsDuplicateKey(err error) bool { return errors.Is(err, ErrDuplicateKey) }
