package http

import (
	"errors"
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

const (
	msgRegistered = "User registered successfully!"
	msgLoggedIn   = "Logged in successfully!"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, applog.OpRegister)
		return
	}

	if _, err := s.deps.Users.Register(r.Context(), req.Email, req.Password); err != nil {
		writeError(w, r, err, applog.OpRegister)
		return
	}
	writeMessage(w, http.StatusCreated, msgRegistered)
}

// handleLogin answers bad credentials with 400 rather than 401; the token is
// the only thing a client can be unauthorized for.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req Credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err, applog.OpLogin)
		return
	}

	ctx := services.WithClientIP(r.Context(), s.detector.ExtractClientIP(r))
	res, err := s.deps.Users.Login(ctx, req.Email, req.Password)
	if errors.Is(err, core.ErrAuth) {
		writeMessage(w, http.StatusBadRequest, core.PublicMessage(err))
		return
	}
	if err != nil {
		writeError(w, r, err, applog.OpLogin)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message: msgLoggedIn,
		User:    userView{Email: res.User.Email, ID: res.User.ID},
		Token:   res.Token,
	})
}
