package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

const (
	invalidCredentials  = "Invalid credentials."
	credentialsRequired = "Email and password are required."
)

type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
	CompareDummy(password string) bool
}

type TokenIssuer interface {
	Issue(userID core.UserID) (string, error)
}

// AuthService registers users and exchanges credentials for bearer tokens.
type AuthService struct {
	users    UserStore
	hasher   PasswordHasher
	tokens   TokenIssuer
	throttle *LoginThrottle
	events   *EventDispatcher
	logger   *applog.Logger
	now      func() time.Time
}

// NewAuthService wires the credential store. throttle and events may be nil.
func NewAuthService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, throttle *LoginThrottle, events *EventDispatcher, logger *applog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		throttle: throttle,
		events:   events,
		logger:   logger.WithComponent(applog.ComponentAuth),
		now:      time.Now,
	}
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User  core.User
	Token string
}

// Register creates a user. Emails are compared exactly as stored, after
// trimming surrounding whitespace.
func (s *AuthService) Register(ctx context.Context, email, password string) (core.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return core.User{}, core.Validation(credentialsRequired, nil)
	}

	hash, err := s.hasher.Hash(password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return core.User{}, core.Validation("Password must be at most 72 bytes.", err)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("register: %w", err)
	}

	user, err := s.users.CreateUser(ctx, core.User{
		ID:           core.UserID(uuid.NewString()),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
	if storage.IsDuplicateKey(err) {
		return core.User{}, core.Duplicate("User with this email already exists.")
	}
	if err != nil {
		return core.User{}, fmt.Errorf("register: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered",
		applog.FieldOperation, applog.OpRegister,
		applog.FieldOwnerID, user.ID)
	s.events.Emit(ctx, amqp.NewLedgerEvent(amqp.EventTypeUser, amqp.ActionRegistered, string(user.ID), string(user.ID), ""))
	return user, nil
}

// Verify checks credentials. Unknown emails and wrong passwords fail the same
// way and take the same time.
func (s *AuthService) Verify(ctx context.Context, email, password string) (core.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return core.User{}, core.AuthFailed(invalidCredentials)
	}
	key := throttleKey(ctx, email)
	if s.throttle.Locked(key) {
		return core.User{}, core.Throttled("Too many failed login attempts. Please try again later.")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case storage.IsNotFound(err):
		s.hasher.CompareDummy(password)
		return core.User{}, s.fail(ctx, key)
	case err != nil:
		return core.User{}, fmt.Errorf("verify: %w", err)
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		return core.User{}, s.fail(ctx, key)
	}

	s.throttle.Reset(key)
	return user, nil
}

func (s *AuthService) fail(ctx context.Context, key string) error {
	if n := s.throttle.Fail(key); n > 0 {
		s.logger.WarnContext(ctx, "Failed login attempt",
			applog.FieldOperation, applog.OpLogin,
			applog.FieldErrorType, applog.ErrorTypeAuth,
			"failures", n)
	}
	return core.AuthFailed(invalidCredentials)
}

// Login verifies credentials and issues a token for the user.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return LoginResult{}, core.Validation(credentialsRequired, nil)
	}
	user, err := s.Verify(ctx, email, password)
	if err != nil {
		return LoginResult{}, err
	}
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}
	return LoginResult{User: user, Token: token}, nil
}
