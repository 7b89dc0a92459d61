// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for decoding and validating JSON request
// bodies.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"fintrack/internal/core"
)

const (
	msgInvalidJSON   = "Request body must be a single JSON object"
	msgInvalidAmount = "Amount must be a positive number with at most two decimals"
)

// Credentials is the body of register and login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CategoryRequest is the body of category add and rename.
type CategoryRequest struct {
	Name string `json:"name"`
}

// TransactionRequest is the body of income and expense create and update.
// Source and Category are aliases; the ledger kind decides which one is read.
type TransactionRequest struct {
	Amount   *core.Money `json:"amount"`
	Source   *string     `json:"source"`
	Category *string     `json:"category"`
	Date     *string     `json:"date"`
}

// decodeJSON reads exactly one JSON value from the body into v. An empty body
// decodes to the zero value. Trailing data is rejected.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("trailing data after JSON value")
		}
		return decodeError(err)
	}
	return nil
}

func decodeError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return err
	case errors.Is(err, core.ErrInvalidAmount):
		return core.Validation(msgInvalidAmount, err)
	}
	return core.Validation(msgInvalidJSON, err)
}

// descriptor returns the descriptor field that belongs to kind.
func (req TransactionRequest) descriptor(kind core.TransactionKind) *string {
	if kind == core.Income {
		return req.Source
	}
	return req.Category
}

// date parses the optional date field. A present but unparseable value
// becomes the zero date so the ledger reports it with its own message.
func (req TransactionRequest) date() *core.Date {
	if req.Date == nil {
		return nil
	}
	d, err := core.ParseDate(*req.Date)
	if err != nil {
		return &core.Date{}
	}
	return &d
}

// Patch converts the request into a partial update for kind.
func (req TransactionRequest) Patch(kind core.TransactionKind) core.TransactionPatch {
	return core.TransactionPatch{
		Amount:     req.Amount,
		Descriptor: req.descriptor(kind),
		Date:       req.date(),
	}
}

// pathValue returns the trimmed wildcard value of name.
func pathValue(r *http.Request, name string) string {
	return strings.TrimSpace(r.PathValue(name))
}
