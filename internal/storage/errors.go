package storage

import (
	"database/sql"
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a query matches no row.
	ErrNotFound = errors.New("storage: record not found")

	// ErrDuplicateKey is returned on unique constraint violations.
	ErrDuplicateKey = errors.New("storage: duplicate key")

	// ErrCheckViolation is returned when a CHECK constraint rejects a row.
	ErrCheckViolation = errors.New("storage: check constraint violation")
)

// StoreError wraps a sentinel with the original driver error, so callers can use
// errors.Is for the sentinel and still log the cause.
type StoreError struct {
	Sentinel error
	Cause    error
}

func (e *StoreError) Error() string        { return e.Sentinel.Error() + ": " + e.Cause.Error() }
func (e *StoreError) Is(target error) bool { return errors.Is(e.Sentinel, target) }
func (e *StoreError) Unwrap() error        { return e.Cause }

// mapError translates driver errors into the package sentinels. Unknown errors
// are returned unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &StoreError{Sentinel: ErrNotFound, Cause: err}
	}

	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return &StoreError{Sentinel: ErrDuplicateKey, Cause: err}
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return &StoreError{Sentinel: ErrCheckViolation, Cause: err}
		}
	}

	// Extended result codes are not always enabled; fall back to the message.
	s := err.Error()
	switch {
	case strings.Contains(s, "UNIQUE constraint failed"):
		return &StoreError{Sentinel: ErrDuplicateKey, Cause: err}
	case strings.Contains(s, "CHECK constraint failed"):
		return &StoreError{Sentinel: ErrCheckViolation, Cause: err}
	}
	return err
}
