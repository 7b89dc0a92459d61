package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"fintrack/internal/core"
)

func TestJSONResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "value").
		Body(map[string]string{"name": "Food"}).
		Write(rr)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "value", rr.Header().Get("X-Custom"))
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"name":"Food"}`, rr.Body.String())
}

func TestJSONResponseBuilder_Message(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNotFound).Message("Resource not found").Write(rr)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"message":"Resource not found"}`, rr.Body.String())
}

func TestJSONResponseBuilder_UnencodableBody(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().Body(make(chan int)).Write(rr)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"message":"Internal Server Error"}`, rr.Body.String())
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"validation", core.Validation("Name is required", nil), http.StatusBadRequest, "Name is required"},
		{"duplicate", core.Duplicate("Already exists"), http.StatusBadRequest, "Already exists"},
		{"not found", core.NotFound("Income not found"), http.StatusNotFound, "Income not found"},
		{"auth", core.AuthFailed("Invalid token"), http.StatusUnauthorized, "Invalid token"},
		{"throttled", core.Throttled("Slow down"), http.StatusTooManyRequests, "Slow down"},
		{"wrapped", fmt.Errorf("handler: %w", core.NotFound("Gone")), http.StatusNotFound, "Gone"},
		{"store failure", errors.New("database is locked: /var/lib/fintrack.db"), http.StatusInternalServerError, msgInternalError},
		{"body too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, msgBodyTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := statusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.msg, msg)
		})
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/incomes", nil)

	writeError(rr, r, errors.New("sql: connection refused at 10.0.0.5"), "list")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"message":"Internal Server Error"}`, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "10.0.0.5")
}
