package services

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/cache"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

const testSecret = "services-test-secret-0123456789abcdef"

func testLogger() *applog.Logger {
	return applog.New(applog.Config{Output: io.Discard})
}

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// recordingPublisher keeps every published event in memory.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, e *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) snapshot() []*amqp.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*amqp.LedgerEvent(nil), p.events...)
}

type fixture struct {
	repo       *storage.SQLiteRepository
	auth       *AuthService
	categories *CategoryLedger
	incomes    *TransactionLedger
	expenses   *TransactionLedger
	dashboard  *DashboardService
	tokens     *auth.TokenService
	publisher  *recordingPublisher
	events     *EventDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newTestRepo(t)
	logger := testLogger()

	tokens, err := auth.NewTokenService([]byte(testSecret), time.Hour)
	require.NoError(t, err)

	pub := &recordingPublisher{}
	events := NewEventDispatcher(pub, logger, 64)
	t.Cleanup(events.Close)

	throttle := NewLoginThrottle(cache.NewLRUCache[int](100, time.Minute), 3)

	return &fixture{
		repo:       repo,
		auth:       NewAuthService(repo, auth.NewBcryptHasher(auth.MinBcryptCost), tokens, throttle, events, logger),
		categories: NewCategoryLedger(repo, events, logger),
		incomes:    NewTransactionLedger("income", repo, events, logger),
		expenses:   NewTransactionLedger("expense", repo, events, logger),
		dashboard:  NewDashboardService(repo),
		tokens:     tokens,
		publisher:  pub,
		events:     events,
	}
}
