package session

import (
	"context"
	"testing"

	"holdem-lite/internal/engine"
	"holdem-lite/internal/store"
)

func newTestTable(t *testing.T) (*Table, store.Store) {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	eng := engine.NewTable(engine.Config{MaxSeats: 6, SmallBlind: 1, BigBlind: 2, GameKind: engine.NLH})
	tb := New("table-1", "club-1", "Test Table", eng, db, func(channel string, frame []byte) {})
	t.Cleanup(tb.Stop)
	return tb, db
}

func fundWallet(t *testing.T, db store.Store, userID string, amount int64) {
	t.Helper()
	if _, err := db.AdjustWallet(context.Background(), userID, amount); err != nil {
		t.Fatalf("AdjustWallet: %v", err)
	}
}

func TestSit_DeductsWalletAndOpensSession(t *testing.T) {
	tb, db := newTestTable(t)
	fundWallet(t, db, "user-1", 1000)

	err := tb.Submit(Command{Kind: CmdSit, UserID: "user-1", Seat: 0, BuyIn: 500, Name: "alice"})
	if err != nil {
		t.Fatalf("Submit sit: %v", err)
	}

	balance, err := db.ReadWallet(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ReadWallet: %v", err)
	}
	if balance != 500 {
		t.Fatalf("expected remaining balance 500, got %d", balance)
	}

	sess, err := db.FindOpenSession(context.Background(), "table-1", "user-1")
	if err != nil {
		t.Fatalf("FindOpenSession: %v", err)
	}
	if sess.BuyIn != 500 {
		t.Fatalf("expected open session buy-in 500, got %d", sess.BuyIn)
	}
}

func TestSit_RejectsBuyInExceedingWallet(t *testing.T) {
	tb, db := newTestTable(t)
	fundWallet(t, db, "user-1", 100)

	err := tb.Submit(Command{Kind: CmdSit, UserID: "user-1", Seat: 0, BuyIn: 500, Name: "alice"})
	if err == nil {
		t.Fatalf("expected an error buying in for more than wallet balance")
	}
}

func TestSit_RejectsReSittingWithOpenSession(t *testing.T) {
	tb, db := newTestTable(t)
	fundWallet(t, db, "user-1", 1000)

	if err := tb.Submit(Command{Kind: CmdSit, UserID: "user-1", Seat: 0, BuyIn: 300, Name: "alice"}); err != nil {
		t.Fatalf("first sit: %v", err)
	}
	if err := tb.Submit(Command{Kind: CmdSit, UserID: "user-1", Seat: 1, BuyIn: 300, Name: "alice"}); err == nil {
		t.Fatalf("expected re-sitting with an already-open session to be rejected")
	}
}

func TestLeave_ImmediatelyCashesOutBetweenHands(t *testing.T) {
	tb, db := newTestTable(t)
	fundWallet(t, db, "user-1", 1000)

	if err := tb.Submit(Command{Kind: CmdSit, UserID: "user-1", Seat: 0, BuyIn: 500, Name: "alice"}); err != nil {
		t.Fatalf("sit: %v", err)
	}
	if err := tb.Submit(Command{Kind: CmdLeave, UserID: "user-1"}); err != nil {
		t.Fatalf("leave: %v", err)
	}

	balance, err := db.ReadWallet(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ReadWallet: %v", err)
	}
	if balance != 1000 {
		t.Fatalf("expected full 1000 back after leaving with no hand played, got %d", balance)
	}

	if _, err := db.FindOpenSession(context.Background(), "table-1", "user-1"); err != store.ErrNotFound {
		t.Fatalf("expected no open session after leaving, got %v", err)
	}
}

func TestClose_SettlesEverySeatedPlayer(t *testing.T) {
	tb, db := newTestTable(t)
	fundWallet(t, db, "user-1", 1000)
	fundWallet(t, db, "user-2", 1000)

	if err := tb.Submit(Command{Kind: CmdSit, UserID: "user-1", Seat: 0, BuyIn: 500, Name: "alice"}); err != nil {
		t.Fatalf("sit user-1: %v", err)
	}
	if err := tb.Submit(Command{Kind: CmdSit, UserID: "user-2", Seat: 1, BuyIn: 400, Name: "bob"}); err != nil {
		t.Fatalf("sit user-2: %v", err)
	}

	closed, err := tb.Close()
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(closed) != 2 {
		t.Fatalf("expected 2 closed sessions, got %d", len(closed))
	}

	for _, userID := range []string{"user-1", "user-2"} {
		balance, err := db.ReadWallet(context.Background(), userID)
		if err != nil {
			t.Fatalf("ReadWallet(%s): %v", userID, err)
		}
		if balance != 1000 {
			t.Fatalf("expected %s to be made whole at 1000, got %d", userID, balance)
		}
	}
}

func TestOnlineCount_CountsUniqueSubscribers(t *testing.T) {
	tb, _ := newTestTable(t)

	if err := tb.Submit(Command{Kind: CmdSubscribe, Channel: "conn-1", UserID: "user-1"}); err != nil {
		t.Fatalf("subscribe conn-1: %v", err)
	}
	if err := tb.Submit(Command{Kind: CmdSubscribe, Channel: "conn-2", UserID: "user-1"}); err != nil {
		t.Fatalf("subscribe conn-2: %v", err)
	}
	if err := tb.Submit(Command{Kind: CmdSubscribe, Channel: "conn-3", UserID: "user-2"}); err != nil {
		t.Fatalf("subscribe conn-3: %v", err)
	}

	if got := tb.OnlineCount(""); got != 2 {
		t.Fatalf("expected 2 unique online users across 3 connections, got %d", got)
	}
}

func TestChatMessage_RejectsEmptyText(t *testing.T) {
	tb, _ := newTestTable(t)
	err := tb.Submit(Command{Kind: CmdChatMessage, UserID: "user-1", Name: "alice", ChatText: "   "})
	if err == nil {
		t.Fatalf("expected an error submitting an empty chat message")
	}
}
