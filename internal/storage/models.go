package storage

// Row types mirror the tables in migrations/. Timestamps are unix microseconds.

type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    int64
}

type Category struct {
	ID        string
	OwnerID   string
	Name      string
	CreatedAt int64
}

// Transaction is a row of either the incomes or the expenses table. Descriptor is
// the source column for incomes and the category column for expenses.
type Transaction struct {
	ID          string
	OwnerID     string
	AmountCents int64
	Descriptor  string
	Date        string
	CreatedAt   int64
	UpdatedAt   int64
}

type DescriptorSum struct {
	Descriptor  string
	TotalAmount int64
}

type LedgerEvent struct {
	ID         string
	Type       string
	Action     string
	OwnerID    string
	RecordID   string
	Name       string
	OccurredAt int64
	ReceivedAt int64
}
