package session

import (
	"context"
	"testing"

	"holdem-lite/internal/engine"
	"holdem-lite/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, store.Store) {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	r := NewRegistry(db, func(tableID, channel string, frame []byte) {})
	t.Cleanup(r.Stop)
	return r, db
}

func TestRegistry_CreateThenGetTableReturnsSameActor(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	created, err := r.CreateTable(ctx, NewTableParams{
		ClubID: "club-1", CreatorID: "user-1", Name: "Main", MaxSeats: 6,
		SmallBlind: 1, BigBlind: 2, GameKind: engine.NLH,
	})
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}

	got, err := r.GetTable(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTable: %v", err)
	}
	if got != created {
		t.Fatalf("expected GetTable to return the same live actor CreateTable returned")
	}
}

func TestRegistry_GetTableUnknownIDErrors(t *testing.T) {
	r, _ := newTestRegistry(t)
	if _, err := r.GetTable(context.Background(), "no-such-table"); err == nil {
		t.Fatalf("expected an error for an unknown table id")
	}
}

func TestRegistry_CloseTableSettlesAndWritesReport(t *testing.T) {
	r, db := newTestRegistry(t)
	ctx := context.Background()

	if _, err := db.AdjustWallet(ctx, "user-1", 1000); err != nil {
		t.Fatalf("fund wallet: %v", err)
	}

	tb, err := r.CreateTable(ctx, NewTableParams{
		ClubID: "club-1", CreatorID: "user-1", Name: "Main", MaxSeats: 6,
		SmallBlind: 1, BigBlind: 2, GameKind: engine.NLH,
	})
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if err := tb.Submit(Command{Kind: CmdSit, UserID: "user-1", Seat: 0, BuyIn: 400, Name: "alice"}); err != nil {
		t.Fatalf("sit: %v", err)
	}

	reportID, err := r.CloseTable(ctx, tb.ID)
	if err != nil {
		t.Fatalf("CloseTable: %v", err)
	}
	if reportID == 0 {
		t.Fatalf("expected a nonzero report id")
	}

	balance, err := db.ReadWallet(ctx, "user-1")
	if err != nil {
		t.Fatalf("ReadWallet: %v", err)
	}
	if balance != 1000 {
		t.Fatalf("expected full 1000 back after table close, got %d", balance)
	}

	if _, err := r.GetTable(ctx, tb.ID); err == nil {
		t.Fatalf("expected a closed table to no longer be gettable")
	}
}
