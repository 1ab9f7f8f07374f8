package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultSQLiteFile = "holdem_lite.db"

// SQLiteStore is the single-binary-friendly Store, a mirror of
// PostgresStore over modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

func sqlitePathFromEnv() string {
	if path := strings.TrimSpace(os.Getenv("SQLITE_PATH")); path != "" {
		return path
	}
	return defaultSQLiteFile
}

func NewSQLiteStoreFromEnv() (*SQLiteStore, error) {
	return NewSQLiteStore(sqlitePathFromEnv())
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("store: empty sqlite database path")
	}
	if dbPath != ":memory:" {
		if parent := filepath.Dir(dbPath); parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) LoadTableMeta(ctx context.Context, tableID string) (TableMeta, error) {
	var m TableMeta
	row := s.db.QueryRowContext(ctx, `
SELECT id, club_id, creator_id, max_seats, small_blind, big_blind, game_kind,
       bomb_pot_every_n, bomb_pot_amount, status, created_at
FROM table_meta WHERE id = ?`, tableID)
	if err := row.Scan(&m.ID, &m.ClubID, &m.CreatorID, &m.MaxSeats, &m.SmallBlind, &m.BigBlind,
		&m.GameKind, &m.BombPotEveryN, &m.BombPotAmount, &m.Status, &m.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TableMeta{}, ErrNotFound
		}
		return TableMeta{}, err
	}
	return m, nil
}

func (s *SQLiteStore) CreateTableMeta(ctx context.Context, meta TableMeta) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO table_meta (
    id, club_id, creator_id, max_seats, small_blind, big_blind, game_kind,
    bomb_pot_every_n, bomb_pot_amount, status, created_at
) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		meta.ID, meta.ClubID, meta.CreatorID, meta.MaxSeats, meta.SmallBlind, meta.BigBlind,
		meta.GameKind, meta.BombPotEveryN, meta.BombPotAmount, meta.Status, meta.CreatedAt)
	return err
}

func (s *SQLiteStore) UpdateTableStatus(ctx context.Context, tableID string, status TableStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE table_meta SET status = ? WHERE id = ?`, status, tableID)
	if err != nil {
		return err
	}
	return requireRowsAffected(res)
}

func (s *SQLiteStore) ListStacks(ctx context.Context, tableID string) ([]TableStack, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT table_id, user_id, seat, stack, name, avatar, updated_at
FROM table_stack WHERE table_id = ? ORDER BY seat`, tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TableStack
	for rows.Next() {
		var ts TableStack
		if err := rows.Scan(&ts.TableID, &ts.UserID, &ts.Seat, &ts.Stack, &ts.Name, &ts.Avatar, &ts.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpsertStack(ctx context.Context, stack TableStack) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO table_stack (table_id, user_id, seat, stack, name, avatar, updated_at)
VALUES (?,?,?,?,?,?,?)
ON CONFLICT (table_id, user_id) DO UPDATE SET
    seat = excluded.seat, stack = excluded.stack, name = excluded.name,
    avatar = excluded.avatar, updated_at = excluded.updated_at`,
		stack.TableID, stack.UserID, stack.Seat, stack.Stack, stack.Name, stack.Avatar, stack.UpdatedAt)
	return err
}

func (s *SQLiteStore) DeleteStack(ctx context.Context, tableID, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM table_stack WHERE table_id = ? AND user_id = ?`, tableID, userID)
	return err
}

func (s *SQLiteStore) OpenSession(ctx context.Context, tableID, userID string, buyIn int64) (TableSession, error) {
	if _, err := s.FindOpenSession(ctx, tableID, userID); err == nil {
		return TableSession{}, fmt.Errorf("store: open session already exists for table=%s user=%s", tableID, userID)
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
INSERT INTO table_session (table_id, user_id, buy_in, opened_at) VALUES (?,?,?,?)`,
		tableID, userID, buyIn, now)
	if err != nil {
		return TableSession{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return TableSession{}, err
	}
	return TableSession{ID: id, TableID: tableID, UserID: userID, BuyIn: buyIn, OpenedAt: now}, nil
}

func (s *SQLiteStore) CloseSession(ctx context.Context, tableID, userID string, cashOut int64) (TableSession, error) {
	open, err := s.FindOpenSession(ctx, tableID, userID)
	if err != nil {
		return TableSession{}, err
	}
	profitLoss := cashOut - open.BuyIn
	closedAt := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, `
UPDATE table_session SET cash_out = ?, profit_loss = ?, closed_at = ? WHERE id = ?`,
		cashOut, profitLoss, closedAt, open.ID); err != nil {
		return TableSession{}, err
	}
	open.CashOut = &cashOut
	open.ProfitLoss = &profitLoss
	open.ClosedAt = &closedAt
	return open, nil
}

func (s *SQLiteStore) FindOpenSession(ctx context.Context, tableID, userID string) (TableSession, error) {
	var sess TableSession
	row := s.db.QueryRowContext(ctx, `
SELECT id, table_id, user_id, buy_in, cash_out, profit_loss, opened_at, closed_at
FROM table_session WHERE table_id = ? AND user_id = ? AND closed_at IS NULL`, tableID, userID)
	if err := row.Scan(&sess.ID, &sess.TableID, &sess.UserID, &sess.BuyIn, &sess.CashOut, &sess.ProfitLoss,
		&sess.OpenedAt, &sess.ClosedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TableSession{}, ErrNotFound
		}
		return TableSession{}, err
	}
	return sess, nil
}

func (s *SQLiteStore) ListOpenSessions(ctx context.Context, tableID string) ([]TableSession, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, table_id, user_id, buy_in, cash_out, profit_loss, opened_at, closed_at
FROM table_session WHERE table_id = ? AND closed_at IS NULL`, tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TableSession
	for rows.Next() {
		var sess TableSession
		if err := rows.Scan(&sess.ID, &sess.TableID, &sess.UserID, &sess.BuyIn, &sess.CashOut, &sess.ProfitLoss,
			&sess.OpenedAt, &sess.ClosedAt); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CreateReport(ctx context.Context, tableID, clubID string, closedAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO table_report (table_id, club_id, closed_at) VALUES (?,?,?)`, tableID, clubID, closedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) AppendEntries(ctx context.Context, reportID int64, rows []ReportEntry) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO report_entry (report_id, user_id, buy_in, cash_out, profit_loss)
VALUES (?,?,?,?,?)`, reportID, r.UserID, r.BuyIn, r.CashOut, r.ProfitLoss); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) AppendHandHistory(ctx context.Context, row HandHistory) error {
	recordedAt := row.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO hand_history (user_id, table_name, result, net_change, summary, recorded_at)
VALUES (?,?,?,?,?,?)`, row.UserID, row.TableName, row.Result, row.NetChange, row.Summary, recordedAt)
	return err
}

func (s *SQLiteStore) ReadWallet(ctx context.Context, userID string) (int64, error) {
	var balance int64
	row := s.db.QueryRowContext(ctx, `SELECT balance FROM wallet WHERE user_id = ?`, userID)
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}

func (s *SQLiteStore) AdjustWallet(ctx context.Context, userID string, delta int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO wallet (user_id, balance) VALUES (?, ?)
ON CONFLICT (user_id) DO UPDATE SET balance = wallet.balance + excluded.balance`, userID, delta); err != nil {
		return 0, err
	}
	var balance int64
	if err := tx.QueryRowContext(ctx, `SELECT balance FROM wallet WHERE user_id = ?`, userID).Scan(&balance); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return balance, nil
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS table_meta (
    id TEXT PRIMARY KEY,
    club_id TEXT NOT NULL,
    creator_id TEXT NOT NULL,
    max_seats INTEGER NOT NULL,
    small_blind INTEGER NOT NULL,
    big_blind INTEGER NOT NULL,
    game_kind TEXT NOT NULL,
    bomb_pot_every_n INTEGER NOT NULL DEFAULT 0,
    bomb_pot_amount INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    created_at DATETIME NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS table_stack (
    table_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    seat INTEGER NOT NULL,
    stack INTEGER NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    avatar TEXT NOT NULL DEFAULT '',
    updated_at DATETIME NOT NULL,
    PRIMARY KEY (table_id, user_id)
)`,
		`CREATE TABLE IF NOT EXISTS table_session (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    table_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    buy_in INTEGER NOT NULL,
    cash_out INTEGER,
    profit_loss INTEGER,
    opened_at DATETIME NOT NULL,
    closed_at DATETIME
)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_table_session_open
    ON table_session (table_id, user_id) WHERE closed_at IS NULL`,
		`CREATE TABLE IF NOT EXISTS table_report (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    table_id TEXT NOT NULL,
    club_id TEXT NOT NULL,
    closed_at DATETIME NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS report_entry (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    report_id INTEGER NOT NULL REFERENCES table_report(id),
    user_id TEXT NOT NULL,
    buy_in INTEGER NOT NULL,
    cash_out INTEGER NOT NULL,
    profit_loss INTEGER NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS hand_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    table_name TEXT NOT NULL,
    result TEXT NOT NULL,
    net_change INTEGER NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    recorded_at DATETIME NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_hand_history_user ON hand_history (user_id, recorded_at DESC)`,
		`CREATE TABLE IF NOT EXISTS wallet (
    user_id TEXT PRIMARY KEY,
    balance INTEGER NOT NULL DEFAULT 0
)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
