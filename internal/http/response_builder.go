// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and the mapping from typed service errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

const (
	msgInternalError   = "Internal Server Error"
	msgNotFound        = "Resource not found"
	msgBodyTooLarge    = "Request body too large"
	msgTooManyRequests = "Too many requests. Please try again later."
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Message sets a {"message": msg} body.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	return b.Body(messageResponse{Message: msg})
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	body, err := json.Marshal(b.payload)
	if err != nil {
		b.statusCode = http.StatusInternalServerError
		body, _ = json.Marshal(messageResponse{Message: msgInternalError})
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(body, '\n'))
}

type messageResponse struct {
	Message string `json:"message"`
}

// writeJSON is shorthand for a builder with a status and body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}

// writeMessage writes a {"message"} body with the given status.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	NewJSONResponse().Status(status).Message(msg).Write(w)
}

// statusFor maps an error to its HTTP status and the message the caller may
// see. Errors without a kind are internal and keep their detail server side.
func statusFor(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, msgBodyTooLarge
	}

	msg := core.PublicMessage(err)
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrDuplicate):
		return http.StatusBadRequest, msg
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, msg
	case errors.Is(err, core.ErrAuth):
		return http.StatusUnauthorized, msg
	case errors.Is(err, core.ErrThrottled):
		return http.StatusTooManyRequests, msg
	}
	return http.StatusInternalServerError, msgInternalError
}

// writeError maps err to a response and logs it. Internal errors are logged
// at error level with the full chain.
func writeError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	status, msg := statusFor(err)
	if msg == "" {
		msg = http.StatusText(status)
	}

	logger := applog.FromContext(r.Context())
	if status == http.StatusInternalServerError {
		logger.LogError(r.Context(), "Request failed", err, operation,
			applog.NewFields().WithErrorType(applog.ErrorTypeInternal))
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			applog.FieldOperation, operation,
			applog.FieldStatusCode, status,
			applog.FieldError, msg)
	}
	writeMessage(w, status, msg)
}
