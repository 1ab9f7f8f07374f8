// Package store defines the persistence contract for table metadata,
// seated-stack snapshots, buy-in/cash-out sessions, closing reports, hand
// history, and wallet balances. Two concrete implementations satisfy the
// same Store interface: postgres.go (github.com/lib/pq) and sqlite.go
// (modernc.org/sqlite), selected by NewFromEnv the way the teacher's
// ledger.NewServiceFromEnv dispatches on an env-supplied mode.
package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("store: not found")

// TableStatus is TableMeta's mutable field.
type TableStatus string

const (
	StatusActive TableStatus = "active"
	StatusClosed TableStatus = "closed"
)

// GameKind mirrors engine.GameKind without importing it, so store stays
// leaf-level and engine never needs to know about persistence.
type GameKind string

const (
	GameHoldem GameKind = "holdem"
	GameOmaha  GameKind = "omaha"
)

// TableMeta is the immutable-except-status row describing a table.
type TableMeta struct {
	ID            string
	ClubID        string
	CreatorID     string
	MaxSeats      int
	SmallBlind    int64
	BigBlind      int64
	GameKind      GameKind
	BombPotEveryN int
	BombPotAmount int64
	Status        TableStatus
	CreatedAt     time.Time
}

// Expired reports whether a table has aged out of the 24h auto-close
// window (spec §5 resource bounds).
func (m TableMeta) Expired(now time.Time) bool {
	return now.Sub(m.CreatedAt) > 24*time.Hour
}

// TableStack is one seated user's recoverable position, the source of
// truth an engine.Table rehydrates from on first access after restart.
type TableStack struct {
	TableID   string
	UserID    string
	Seat      int
	Stack     int64
	Name      string
	Avatar    string
	UpdatedAt time.Time
}

// TableSession is an open or closed buy-in/cash-out ledger entry. At most
// one may be open per (table, user).
type TableSession struct {
	ID         int64
	TableID    string
	UserID     string
	BuyIn      int64
	CashOut    *int64
	ProfitLoss *int64
	OpenedAt   time.Time
	ClosedAt   *time.Time
}

// ReportEntry is one user's line in a table's closing report.
type ReportEntry struct {
	UserID     string
	BuyIn      int64
	CashOut    int64
	ProfitLoss int64
}

// HandResult labels a hand-history row from the user's point of view.
type HandResult string

const (
	ResultWin  HandResult = "win"
	ResultLoss HandResult = "loss"
	ResultEven HandResult = "even"
)

// HandHistory is one per-user per-hand record.
type HandHistory struct {
	UserID     string
	TableName  string
	Result     HandResult
	NetChange  int64
	Summary    string
	RecordedAt time.Time
}

// Store is the full persistence contract. Every method is atomic; callers
// needing several operations to commit together (e.g. close_session +
// adjust_wallet) call them in sequence under the table's own lock, which
// already serializes the caller side (spec §5 shared-resources note).
type Store interface {
	Close() error

	LoadTableMeta(ctx context.Context, tableID string) (TableMeta, error)
	CreateTableMeta(ctx context.Context, meta TableMeta) error
	UpdateTableStatus(ctx context.Context, tableID string, status TableStatus) error

	ListStacks(ctx context.Context, tableID string) ([]TableStack, error)
	UpsertStack(ctx context.Context, stack TableStack) error
	DeleteStack(ctx context.Context, tableID, userID string) error

	OpenSession(ctx context.Context, tableID, userID string, buyIn int64) (TableSession, error)
	CloseSession(ctx context.Context, tableID, userID string, cashOut int64) (TableSession, error)
	FindOpenSession(ctx context.Context, tableID, userID string) (TableSession, error)
	ListOpenSessions(ctx context.Context, tableID string) ([]TableSession, error)

	CreateReport(ctx context.Context, tableID, clubID string, closedAt time.Time) (int64, error)
	AppendEntries(ctx context.Context, reportID int64, rows []ReportEntry) error

	AppendHandHistory(ctx context.Context, row HandHistory) error

	ReadWallet(ctx context.Context, userID string) (int64, error)
	AdjustWallet(ctx context.Context, userID string, delta int64) (int64, error)
}
