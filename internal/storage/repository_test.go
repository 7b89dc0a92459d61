package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newCategory(owner core.UserID, name string) core.Category {
	return core.Category{ID: uuid.NewString(), OwnerID: owner, Name: name, CreatedAt: time.Now()}
}

func newExpense(owner core.UserID, cents int64, category, date string) core.Transaction {
	d, _ := core.ParseDate(date)
	now := time.Now()
	return core.Transaction{
		ID:         uuid.NewString(),
		OwnerID:    owner,
		Kind:       core.Expense,
		Amount:     core.Money{Cents: cents},
		Descriptor: category,
		Date:       d,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))
}

func TestUserEmailUnique(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u := core.User{ID: core.UserID(uuid.NewString()), Email: "a@example.com", PasswordHash: "h", CreatedAt: time.Now()}
	_, err := repo.CreateUser(ctx, u)
	require.NoError(t, err)

	u.ID = core.UserID(uuid.NewString())
	_, err = repo.CreateUser(ctx, u)
	assert.True(t, IsDuplicateKey(err), "expected duplicate key, got %v", err)

	// Exact match: a different case is a different email.
	u.Email = "A@example.com"
	_, err = repo.CreateUser(ctx, u)
	require.NoError(t, err)

	got, err := repo.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", got.Email)

	_, err = repo.GetUserByEmail(ctx, "missing@example.com")
	assert.True(t, IsNotFound(err))
}

func TestCategoryUniquePerOwner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.CreateCategory(ctx, newCategory("alice", "Food"))
	require.NoError(t, err)
	_, err = repo.CreateCategory(ctx, newCategory("alice", "Food"))
	assert.True(t, IsDuplicateKey(err), "expected duplicate key, got %v", err)
	_, err = repo.CreateCategory(ctx, newCategory("bob", "Food"))
	require.NoError(t, err)

	names, err := repo.ListCategoryNames(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"Food"}, names)
}

func TestCategoryConcurrentAddsHaveOneWinner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		ok, dupes  int
		unexpected []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateCategory(ctx, newCategory("alice", "Rent"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case IsDuplicateKey(err):
				dupes++
			default:
				unexpected = append(unexpected, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, unexpected)
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, dupes)
}

func TestRenameCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	food, err := repo.CreateCategory(ctx, newCategory("alice", "Food"))
	require.NoError(t, err)
	_, err = repo.CreateCategory(ctx, newCategory("alice", "Rent"))
	require.NoError(t, err)

	renamed, err := repo.RenameCategory(ctx, "alice", "Food", "Groceries")
	require.NoError(t, err)
	assert.Equal(t, food.ID, renamed.ID)
	assert.Equal(t, "Groceries", renamed.Name)

	_, err = repo.RenameCategory(ctx, "alice", "Groceries", "Rent")
	assert.True(t, IsDuplicateKey(err), "expected duplicate key, got %v", err)

	_, err = repo.RenameCategory(ctx, "alice", "Food", "Anything")
	assert.True(t, IsNotFound(err), "expected not found, got %v", err)

	_, err = repo.RenameCategory(ctx, "bob", "Groceries", "Mine")
	assert.True(t, IsNotFound(err), "other owners must not match")

	require.NoError(t, repo.DeleteCategory(ctx, "alice", "Rent"))
	assert.True(t, IsNotFound(repo.DeleteCategory(ctx, "alice", "Rent")))
}

func TestTransactionsScopedByOwner(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	older, err := repo.CreateTransaction(ctx, newExpense("alice", 1000, "Food", "2024-01-01"))
	require.NoError(t, err)
	newer, err := repo.CreateTransaction(ctx, newExpense("alice", 2500, "Travel", "2024-02-01"))
	require.NoError(t, err)
	bobs, err := repo.CreateTransaction(ctx, newExpense("bob", 700, "Food", "2024-01-05"))
	require.NoError(t, err)

	list, err := repo.ListTransactions(ctx, core.Expense, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID, "newest date first")
	assert.Equal(t, older.ID, list[1].ID)

	_, err = repo.GetTransaction(ctx, core.Expense, "alice", bobs.ID)
	assert.True(t, IsNotFound(err))

	amount := core.Money{Cents: 1}
	_, err = repo.UpdateTransaction(ctx, core.Expense, "alice", bobs.ID, core.TransactionPatch{Amount: &amount}, time.Now())
	assert.True(t, IsNotFound(err))

	assert.True(t, IsNotFound(repo.DeleteTransaction(ctx, core.Expense, "alice", bobs.ID)))
	still, err := repo.GetTransaction(ctx, core.Expense, "bob", bobs.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), still.Amount.Cents)

	// Income and expense tables are separate.
	_, err = repo.GetTransaction(ctx, core.Income, "alice", older.ID)
	assert.True(t, IsNotFound(err))
}

func TestUpdateTransactionPartial(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateTransaction(ctx, newExpense("alice", 1000, "Food", "2024-01-01"))
	require.NoError(t, err)

	desc := "Groceries"
	updated, err := repo.UpdateTransaction(ctx, core.Expense, "alice", created.ID, core.TransactionPatch{Descriptor: &desc}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Groceries", updated.Descriptor)
	assert.Equal(t, int64(1000), updated.Amount.Cents)
	assert.Equal(t, "2024-01-01", updated.Date.String())
}

func TestAmountCheckConstraint(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.CreateTransaction(context.Background(), newExpense("alice", 0, "Food", "2024-01-01"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCheckViolation)
}

func TestLedgerTotals(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, e := range []core.Transaction{
		newExpense("alice", 1000, "Food", "2024-01-01"),
		newExpense("alice", 500, "Food", "2024-01-02"),
		newExpense("alice", 3000, "Rent", "2024-01-03"),
		newExpense("bob", 9999, "Food", "2024-01-03"),
	} {
		_, err := repo.CreateTransaction(ctx, e)
		require.NoError(t, err)
	}

	totals, err := repo.LedgerTotals(ctx, core.Expense, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), totals.Count)
	assert.Equal(t, int64(4500), totals.Total.Cents)
	assert.Equal(t, []core.NamedAmount{
		{Name: "Rent", Amount: core.Money{Cents: 3000}},
		{Name: "Food", Amount: core.Money{Cents: 1500}},
	}, totals.ByName)

	empty, err := repo.LedgerTotals(ctx, core.Income, "alice")
	require.NoError(t, err)
	assert.Zero(t, empty.Count)
	assert.Zero(t, empty.Total.Cents)
	assert.Empty(t, empty.ByName)
}

func TestRecordLedgerEventIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	e := LedgerEvent{ID: uuid.NewString(), Type: "category", Action: "created", OwnerID: "alice", Name: "Food", OccurredAt: 1, ReceivedAt: 2}
	inserted, err := repo.RecordLedgerEvent(ctx, e)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.RecordLedgerEvent(ctx, e)
	require.NoError(t, err)
	assert.False(t, inserted)

	events, err := repo.ListLedgerEvents(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Food", events[0].Name)
}
