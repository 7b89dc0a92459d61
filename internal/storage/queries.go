package storage

import (
	"context"
	"database/sql"
	"fmt"

	"fintrack/internal/core"
)

// DBTX is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

const createUser = `INSERT INTO users (id, email, password_hash, created_at)
VALUES (?, ?, ?, ?)
RETURNING id, email, password_hash, created_at`

type CreateUserParams struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    int64
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.ID, arg.Email, arg.PasswordHash, arg.CreatedAt)
	var i User
	err := row.Scan(&i.ID, &i.Email, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

const getUserByEmail = `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var i User
	err := row.Scan(&i.ID, &i.Email, &i.PasswordHash, &i.CreatedAt)
	return i, err
}

const listCategoryNames = `SELECT name FROM categories WHERE owner_id = ? ORDER BY created_at, rowid`

func (q *Queries) ListCategoryNames(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listCategoryNames, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		items = append(items, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const categoryExists = `SELECT EXISTS (SELECT 1 FROM categories WHERE owner_id = ? AND name = ?)`

func (q *Queries) CategoryExists(ctx context.Context, ownerID, name string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, categoryExists, ownerID, name).Scan(&exists)
	return exists, err
}

const createCategory = `INSERT INTO categories (id, owner_id, name, created_at)
VALUES (?, ?, ?, ?)
RETURNING id, owner_id, name, created_at`

type CreateCategoryParams struct {
	ID        string
	OwnerID   string
	Name      string
	CreatedAt int64
}

func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (Category, error) {
	row := q.db.QueryRowContext(ctx, createCategory, arg.ID, arg.OwnerID, arg.Name, arg.CreatedAt)
	var i Category
	err := row.Scan(&i.ID, &i.OwnerID, &i.Name, &i.CreatedAt)
	return i, err
}

const renameCategory = `UPDATE categories SET name = ?
WHERE owner_id = ? AND name = ?
RETURNING id, owner_id, name, created_at`

type RenameCategoryParams struct {
	OwnerID string
	OldName string
	NewName string
}

func (q *Queries) RenameCategory(ctx context.Context, arg RenameCategoryParams) (Category, error) {
	row := q.db.QueryRowContext(ctx, renameCategory, arg.NewName, arg.OwnerID, arg.OldName)
	var i Category
	err := row.Scan(&i.ID, &i.OwnerID, &i.Name, &i.CreatedAt)
	return i, err
}

const deleteCategory = `DELETE FROM categories WHERE owner_id = ? AND name = ?`

func (q *Queries) DeleteCategory(ctx context.Context, ownerID, name string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCategory, ownerID, name)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// ledgerQueries holds the statements of one transaction table. Table and column
// names come from the fixed ledgerTables map, never from input.
type ledgerQueries struct {
	list          string
	get           string
	create        string
	update        string
	remove        string
	sum           string
	sumDescriptor string
}

var ledgerTables = map[core.TransactionKind]ledgerQueries{
	core.Income:  buildLedgerQueries("incomes", "source"),
	core.Expense: buildLedgerQueries("expenses", "category"),
}

func buildLedgerQueries(table, descriptor string) ledgerQueries {
	cols := fmt.Sprintf("id, owner_id, amount_cents, %s, date, created_at, updated_at", descriptor)
	return ledgerQueries{
		list: fmt.Sprintf(`SELECT %s FROM %s WHERE owner_id = ?
ORDER BY date DESC, created_at DESC, rowid DESC`, cols, table),
		get: fmt.Sprintf(`SELECT %s FROM %s WHERE id = ? AND owner_id = ?`, cols, table),
		create: fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING %s`, table, cols, cols),
		update: fmt.Sprintf(`UPDATE %s SET
    amount_cents = COALESCE(?, amount_cents),
    %s = COALESCE(?, %s),
    date = COALESCE(?, date),
    updated_at = ?
WHERE id = ? AND owner_id = ?
RETURNING %s`, table, descriptor, descriptor, cols),
		remove: fmt.Sprintf(`DELETE FROM %s WHERE id = ? AND owner_id = ?`, table),
		sum:    fmt.Sprintf(`SELECT COUNT(*), COALESCE(SUM(amount_cents), 0) FROM %s WHERE owner_id = ?`, table),
		sumDescriptor: fmt.Sprintf(`SELECT %s, SUM(amount_cents) AS total FROM %s WHERE owner_id = ?
GROUP BY %s ORDER BY total DESC, %s`, descriptor, table, descriptor, descriptor),
	}
}

func ledgerFor(kind core.TransactionKind) (ledgerQueries, error) {
	q, ok := ledgerTables[kind]
	if !ok {
		return ledgerQueries{}, fmt.Errorf("unknown transaction kind %q", kind)
	}
	return q, nil
}

func scanTransaction(row interface{ Scan(...any) error }) (Transaction, error) {
	var i Transaction
	err := row.Scan(&i.ID, &i.OwnerID, &i.AmountCents, &i.Descriptor, &i.Date, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func (q *Queries) ListTransactions(ctx context.Context, kind core.TransactionKind, ownerID string) ([]Transaction, error) {
	lq, err := ledgerFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, lq.list, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) GetTransaction(ctx context.Context, kind core.TransactionKind, id, ownerID string) (Transaction, error) {
	lq, err := ledgerFor(kind)
	if err != nil {
		return Transaction{}, err
	}
	return scanTransaction(q.db.QueryRowContext(ctx, lq.get, id, ownerID))
}

func (q *Queries) CreateTransaction(ctx context.Context, kind core.TransactionKind, arg Transaction) (Transaction, error) {
	lq, err := ledgerFor(kind)
	if err != nil {
		return Transaction{}, err
	}
	return scanTransaction(q.db.QueryRowContext(ctx, lq.create,
		arg.ID, arg.OwnerID, arg.AmountCents, arg.Descriptor, arg.Date, arg.CreatedAt, arg.UpdatedAt))
}

type UpdateTransactionParams struct {
	ID          string
	OwnerID     string
	AmountCents sql.NullInt64
	Descriptor  sql.NullString
	Date        sql.NullString
	UpdatedAt   int64
}

func (q *Queries) UpdateTransaction(ctx context.Context, kind core.TransactionKind, arg UpdateTransactionParams) (Transaction, error) {
	lq, err := ledgerFor(kind)
	if err != nil {
		return Transaction{}, err
	}
	return scanTransaction(q.db.QueryRowContext(ctx, lq.update,
		arg.AmountCents, arg.Descriptor, arg.Date, arg.UpdatedAt, arg.ID, arg.OwnerID))
}

func (q *Queries) DeleteTransaction(ctx context.Context, kind core.TransactionKind, id, ownerID string) (int64, error) {
	lq, err := ledgerFor(kind)
	if err != nil {
		return 0, err
	}
	result, err := q.db.ExecContext(ctx, lq.remove, id, ownerID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (q *Queries) SumTransactions(ctx context.Context, kind core.TransactionKind, ownerID string) (count int64, total int64, err error) {
	lq, err := ledgerFor(kind)
	if err != nil {
		return 0, 0, err
	}
	err = q.db.QueryRowContext(ctx, lq.sum, ownerID).Scan(&count, &total)
	return count, total, err
}

func (q *Queries) SumTransactionsByDescriptor(ctx context.Context, kind core.TransactionKind, ownerID string) ([]DescriptorSum, error) {
	lq, err := ledgerFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.QueryContext(ctx, lq.sumDescriptor, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []DescriptorSum{}
	for rows.Next() {
		var i DescriptorSum
		if err := rows.Scan(&i.Descriptor, &i.TotalAmount); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertLedgerEvent = `INSERT INTO ledger_events (id, type, action, owner_id, record_id, name, occurred_at, received_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`

func (q *Queries) InsertLedgerEvent(ctx context.Context, arg LedgerEvent) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertLedgerEvent,
		arg.ID, arg.Type, arg.Action, arg.OwnerID, arg.RecordID, arg.Name, arg.OccurredAt, arg.ReceivedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listLedgerEvents = `SELECT id, type, action, owner_id, record_id, name, occurred_at, received_at
FROM ledger_events WHERE owner_id = ? ORDER BY occurred_at, rowid LIMIT ?`

func (q *Queries) ListLedgerEvents(ctx context.Context, ownerID string, limit int64) ([]LedgerEvent, error) {
	rows, err := q.db.QueryContext(ctx, listLedgerEvents, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LedgerEvent{}
	for rows.Next() {
		var i LedgerEvent
		if err := rows.Scan(&i.ID, &i.Type, &i.Action, &i.OwnerID, &i.RecordID, &i.Name, &i.OccurredAt, &i.ReceivedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
