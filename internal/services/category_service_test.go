package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
)

func TestCategoryLedger_AddTrimsAndRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.categories.Add(ctx, "alice", "  Food  ")
	require.NoError(t, err)
	assert.Equal(t, "Food", c.Name)

	_, err = f.categories.Add(ctx, "alice", "Food")
	assert.ErrorIs(t, err, core.ErrDuplicate)

	_, err = f.categories.Add(ctx, "bob", "Food")
	assert.NoError(t, err, "names are unique per owner only")

	_, err = f.categories.Add(ctx, "alice", "   ")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCategoryLedger_ConcurrentAddsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wins, dups atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.categories.Add(ctx, "alice", "Travel")
			if err == nil {
				wins.Add(1)
			} else if errors.Is(err, core.ErrDuplicate) {
				dups.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(7), dups.Load())
}

func TestCategoryLedger_ListInsertionOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	names, err := f.categories.List(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)

	for _, n := range []string{"Rent", "Food", "Travel"} {
		_, err := f.categories.Add(ctx, "alice", n)
		require.NoError(t, err)
	}
	names, err = f.categories.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rent", "Food", "Travel"}, names)
}

func TestCategoryLedger_RenameKeepsIDAndLeavesExpenses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	food, err := f.categories.Add(ctx, "alice", "Food")
	require.NoError(t, err)
	_, err = f.expenses.Add(ctx, "alice", core.Money{Cents: 1200}, "Food", core.NewDate(2024, 2, 1))
	require.NoError(t, err)

	renamed, err := f.categories.Rename(ctx, "alice", "Food", " Groceries ")
	require.NoError(t, err)
	assert.Equal(t, food.ID, renamed.ID)
	assert.Equal(t, "Groceries", renamed.Name)

	names, err := f.categories.List(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"Groceries"}, names)

	expenses, err := f.expenses.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "Food", expenses[0].Descriptor)
}

func TestCategoryLedger_RenameErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, n := range []string{"Food", "Rent"} {
		_, err := f.categories.Add(ctx, "alice", n)
		require.NoError(t, err)
	}

	_, err := f.categories.Rename(ctx, "alice", "Food", "Rent")
	assert.ErrorIs(t, err, core.ErrDuplicate)

	_, err = f.categories.Rename(ctx, "alice", "Missing", "Other")
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = f.categories.Rename(ctx, "alice", "Missing", "Rent")
	assert.ErrorIs(t, err, core.ErrDuplicate, "a taken name wins over a missing source")

	_, err = f.categories.Rename(ctx, "bob", "Food", "Other")
	assert.ErrorIs(t, err, core.ErrNotFound, "other owners cannot rename")

	_, err = f.categories.Rename(ctx, "alice", "Food", "  ")
	assert.ErrorIs(t, err, core.ErrValidation)

	c, err := f.categories.Rename(ctx, "alice", "Food", "Food")
	require.NoError(t, err, "renaming to the same name is a no-op")
	assert.Equal(t, "Food", c.Name)
}

func TestCategoryLedger_Remove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.categories.Add(ctx, "alice", "Food")
	require.NoError(t, err)

	assert.ErrorIs(t, f.categories.Remove(ctx, "bob", "Food"), core.ErrNotFound)
	require.NoError(t, f.categories.Remove(ctx, "alice", "Food"))
	assert.ErrorIs(t, f.categories.Remove(ctx, "alice", "Food"), core.ErrNotFound)
}

func TestCategoryLedger_EmitsEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.categories.Add(ctx, "alice", "Food")
	require.NoError(t, err)
	_, err = f.categories.Rename(ctx, "alice", "Food", "Groceries")
	require.NoError(t, err)
	require.NoError(t, f.categories.Remove(ctx, "alice", "Groceries"))
	_, _ = f.categories.Add(ctx, "alice", "  ")
	f.events.Close()

	var actions []string
	for _, e := range f.publisher.snapshot() {
		assert.Equal(t, amqp.EventTypeCategory, e.Type)
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{amqp.ActionCreated, amqp.ActionRenamed, amqp.ActionDeleted}, actions)
}
