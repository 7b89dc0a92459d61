package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

// DateLayout is the calendar date format used on the wire and in the store.
const DateLayout = "2006-01-02"

const (
	maxNameLength       = 100
	maxDescriptorLength = 200
)

type (
	// UserID is the opaque identifier that owns every ledger row.
	UserID string

	TransactionKind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           UserID
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	Category struct {
		ID        string
		OwnerID   UserID
		Name      string
		CreatedAt time.Time
	}

	// Transaction is an income or an expense. Descriptor holds the source name for
	// incomes and the category name for expenses; it is free text and never checked
	// against the category ledger.
	Transaction struct {
		ID         string
		OwnerID    UserID
		Kind       TransactionKind
		Amount     Money
		Descriptor string
		Date       Date
		CreatedAt  time.Time
		UpdatedAt  time.Time
	}

	// TransactionPatch carries the fields of a partial update. Nil fields are kept.
	TransactionPatch struct {
		Amount     *Money
		Descriptor *string
		Date       *Date
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescriptor  = errors.New("empty descriptor")
	ErrEmptyName        = errors.New("empty category name")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	errDescriptorLength = errors.New("descriptor too long (max 200 characters)")
	errNameLength       = errors.New("category name too long (max 100 characters)")
)

func (k TransactionKind) Valid() bool {
	return k == Income || k == Expense
}

// DescriptorField is the JSON field name that carries the descriptor for the kind.
func (k TransactionKind) DescriptorField() string {
	if k == Income {
		return "source"
	}
	return "category"
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts a calendar date (2006-01-02) or a full RFC 3339 timestamp,
// which is truncated to its UTC calendar day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NormalizeName trims a category name and checks it is usable.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if len(name) > maxNameLength {
		return "", errNameLength
	}
	return name, nil
}

// NormalizeDescriptor trims a source or category descriptor and checks it is usable.
func NormalizeDescriptor(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptyDescriptor
	}
	if len(s) > maxDescriptorLength {
		return "", errDescriptorLength
	}
	return s, nil
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if _, err := NormalizeDescriptor(t.Descriptor); err != nil {
		return err
	}
	return t.Date.Validate()
}

// Empty reports whether the patch changes nothing.
func (p TransactionPatch) Empty() bool {
	return p.Amount == nil && p.Descriptor == nil && p.Date == nil
}

func (p TransactionPatch) Validate() error {
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}
	if p.Descriptor != nil {
		if _, err := NormalizeDescriptor(*p.Descriptor); err != nil {
			return err
		}
	}
	if p.Date != nil {
		if err := p.Date.Validate(); err != nil {
			return err
		}
	}
	return nil
}
