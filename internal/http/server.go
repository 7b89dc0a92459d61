package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/cors"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// DefaultMaxBodyBytes caps request bodies when Options leaves it unset.
const DefaultMaxBodyBytes = 1 << 20

// UserService registers and authenticates users.
type UserService interface {
	Register(ctx context.Context, email, password string) (core.User, error)
	Login(ctx context.Context, email, password string) (services.LoginResult, error)
}

// CategoryService manages the caller's category names.
type CategoryService interface {
	List(ctx context.Context, owner core.UserID) ([]string, error)
	Add(ctx context.Context, owner core.UserID, name string) (core.Category, error)
	Rename(ctx context.Context, owner core.UserID, oldName, newName string) (core.Category, error)
	Remove(ctx context.Context, owner core.UserID, name string) error
}

// LedgerService manages one kind of transaction for the caller.
type LedgerService interface {
	Kind() core.TransactionKind
	List(ctx context.Context, owner core.UserID) ([]core.Transaction, error)
	Add(ctx context.Context, owner core.UserID, amount core.Money, descriptor string, date core.Date) (core.Transaction, error)
	Update(ctx context.Context, owner core.UserID, id string, patch core.TransactionPatch) (core.Transaction, error)
	Remove(ctx context.Context, owner core.UserID, id string) error
}

// DashboardReader summarises both ledgers for the caller.
type DashboardReader interface {
	Summary(ctx context.Context, owner core.UserID) (core.Dashboard, error)
}

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators the handlers call into.
type Dependencies struct {
	Users      UserService
	Categories CategoryService
	Incomes    LedgerService
	Expenses   LedgerService
	Dashboard  DashboardReader
	Store      Pinger
	Tokens     auth.Verifier
	Logger     *applog.Logger
}

// Options configure the middleware chain.
type Options struct {
	Addr              string
	AuthMode          auth.Mode
	DevUserID         core.UserID
	AllowedOrigins    []string
	TrustedProxies    []string
	RequestsPerMinute int
	MaxBodyBytes      int64
}

// Server is the JSON API server.
type Server struct {
	http.Server
	deps        Dependencies
	logger      *applog.Logger
	gate        *auth.Gate
	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware
	startedAt   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, deps Dependencies) (*Server, error) {
	if deps.Users == nil || deps.Categories == nil || deps.Incomes == nil || deps.Expenses == nil || deps.Dashboard == nil || deps.Tokens == nil {
		return nil, errors.New("http server: missing service dependency")
	}
	if deps.Incomes.Kind() != core.Income || deps.Expenses.Kind() != core.Expense {
		return nil, errors.New("http server: ledger kinds do not match their routes")
	}
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig())
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	logger := deps.Logger.WithComponent(applog.ComponentHTTP)

	detector, err := security.NewDetector(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}
	gate, err := auth.NewGate(deps.Tokens, opts.AuthMode, opts.DevUserID, writeAuthFailure)
	if err != nil {
		return nil, err
	}

	s := &Server{
		deps:      deps,
		logger:    logger,
		gate:      gate,
		detector:  detector,
		tracer:    trace.NewMiddleware(deps.Logger, detector.ExtractClientIP),
		startedAt: time.Now(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RequestsPerMinute,
		}),
	}

	api := http.NewServeMux()
	s.routes(api)

	// Resources are served at the root and under /api.
	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", api))
	mux.Handle("/api", http.RedirectHandler("/api/", http.StatusMovedPermanently))
	mux.Handle("/", api)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.chain(mux, opts),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.logger.Info("HTTP server configured",
		"addr", opts.Addr,
		"auth_mode", string(gate.Mode()),
		"rate_limit_rpm", opts.RequestsPerMinute)
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleWelcome)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /users/register", s.handleRegister)
	mux.HandleFunc("POST /users/login", s.handleLogin)

	mux.HandleFunc("GET /categories", s.gate.Protect(s.handleListCategories))
	mux.HandleFunc("POST /categories", s.gate.Protect(s.handleAddCategory))
	mux.HandleFunc("PATCH /categories/{name}", s.gate.Protect(s.handleRenameCategory))
	mux.HandleFunc("DELETE /categories/{name}", s.gate.Protect(s.handleRemoveCategory))

	s.ledgerRoutes(mux, "/incomes", s.deps.Incomes)
	s.ledgerRoutes(mux, "/expenses", s.deps.Expenses)

	mux.HandleFunc("GET /dashboard", s.gate.Protect(s.handleDashboard))

	mux.HandleFunc("/", handleNotFound)
}

func (s *Server) ledgerRoutes(mux *http.ServeMux, prefix string, ledger LedgerService) {
	h := transactionHandlers{ledger: ledger}
	mux.HandleFunc("GET "+prefix, s.gate.Protect(h.list))
	mux.HandleFunc("POST "+prefix, s.gate.Protect(h.add))
	mux.HandleFunc("PATCH "+prefix+"/{id}", s.gate.Protect(h.update))
	mux.HandleFunc("DELETE "+prefix+"/{id}", s.gate.Protect(h.remove))
}

// chain wraps next with the middleware stack, outermost first: tracing,
// security headers, CORS, suspicious request detection, rate limiting and
// the body size cap.
func (s *Server) chain(next http.Handler, opts Options) http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	limit := s.rateLimiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly, s.writeRateLimited)

	h := security.BodyLimit(opts.MaxBodyBytes)(next)
	h = limit(h)
	h = s.detector.Middleware(h)
	h = corsHandler(h)
	h = headers.Middleware(h)
	return s.tracer.Middleware(h)
}

func (s *Server) writeRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	writeMessage(w, http.StatusTooManyRequests, msgTooManyRequests)
}

// writeAuthFailure is the gate's rejection response.
func writeAuthFailure(w http.ResponseWriter, _ *http.Request, err error) {
	msg := core.PublicMessage(err)
	if msg == "" {
		msg = "Unauthorized"
	}
	writeMessage(w, http.StatusUnauthorized, msg)
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
