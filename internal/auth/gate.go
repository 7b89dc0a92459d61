package auth

import (
	"fmt"
	"net/http"
	"strings"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// Mode selects how the gate treats requests without credentials.
type Mode string

const (
	// ModeStrict rejects requests without a bearer token.
	ModeStrict Mode = "strict"
	// ModeOpen resolves requests without a bearer token to a fixed development
	// identity. It is not a security boundary.
	ModeOpen Mode = "open"
)

func (m Mode) Valid() bool {
	return m == ModeStrict || m == ModeOpen
}

// Verifier turns a bearer token into a user id.
type Verifier interface {
	Verify(token string) (core.UserID, error)
}

// Handler is an HTTP handler that receives the resolved caller explicitly.
type Handler func(w http.ResponseWriter, r *http.Request, owner core.UserID)

// FailureFunc writes the response for a request the gate rejected.
type FailureFunc func(w http.ResponseWriter, r *http.Request, err error)

// Gate resolves the caller identity once per request and hands it to the
// protected handler as an argument.
type Gate struct {
	verifier Verifier
	mode     Mode
	devUser  core.UserID
	onFail   FailureFunc
}

func NewGate(v Verifier, mode Mode, devUser core.UserID, onFail FailureFunc) (*Gate, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("invalid auth mode %q", mode)
	}
	if mode == ModeOpen && devUser == "" {
		return nil, fmt.Errorf("open auth mode requires a development user id")
	}
	if onFail == nil {
		onFail = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		}
	}
	return &Gate{verifier: v, mode: mode, devUser: devUser, onFail: onFail}, nil
}

// Mode returns the configured mode.
func (g *Gate) Mode() Mode { return g.mode }

// Resolve returns the caller of r. A present but invalid Authorization header is
// always rejected, it never falls through to the development identity.
func (g *Gate) Resolve(r *http.Request) (core.UserID, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		if g.mode == ModeOpen {
			return g.devUser, nil
		}
		return "", core.AuthFailed("Authentication required")
	}

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", core.AuthFailed("Invalid authorization header")
	}
	return g.verifier.Verify(token)
}

// Protect wraps h so it only runs for a resolved caller.
func (g *Gate) Protect(h Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := g.Resolve(r)
		if err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Request rejected by auth gate",
				applog.FieldPath, r.URL.Path,
				applog.FieldErrorType, applog.ErrorTypeAuth,
				applog.FieldError, err.Error())
			g.onFail(w, r, err)
			return
		}
		h(w, r, owner)
	}
}
