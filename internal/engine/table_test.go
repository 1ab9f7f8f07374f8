package engine

import (
	"testing"
	"time"

	"holdem-lite/card"
	"holdem-lite/internal/apperr"
)

func mustSeat(t *testing.T, tb *Table, name string, stack int64, seat int) *Seat {
	t.Helper()
	s, err := tb.AddPlayer(name, stack, "user-"+name, "", seat)
	if err != nil {
		t.Fatalf("seat %s: %v", name, err)
	}
	return s
}

func newThreeHanded(t *testing.T, sb, bb int64, stacks [3]int64) (tb *Table, alice, bob, charlie *Seat) {
	t.Helper()
	button := 2
	cfg := Config{MaxSeats: 6, SmallBlind: sb, BigBlind: bb, GameKind: NLH, ForcedButtonSeat: &button}
	tb = NewTable(cfg)
	alice = mustSeat(t, tb, "alice", stacks[0], 0)
	bob = mustSeat(t, tb, "bob", stacks[1], 1)
	charlie = mustSeat(t, tb, "charlie", stacks[2], 2)
	if err := tb.StartNewHand(); err != nil {
		t.Fatalf("StartNewHand: %v", err)
	}
	return tb, alice, bob, charlie
}

// S1: raiser does not receive extra action after two calls.
func TestAct_RaiserGetsNoExtraActionAfterCalls(t *testing.T) {
	tb, alice, bob, charlie := newThreeHanded(t, 1, 2, [3]int64{200, 200, 200})

	if got := *tb.NextToActSeat; got != charlie.Index {
		t.Fatalf("expected charlie to act first, got seat %d", got)
	}
	if err := tb.Act(charlie.PlayerID, RaiseTo, 6); err != nil {
		t.Fatalf("charlie raise_to 6: %v", err)
	}
	if err := tb.Act(alice.PlayerID, Call, 0); err != nil {
		t.Fatalf("alice call: %v", err)
	}
	if err := tb.Act(bob.PlayerID, Call, 0); err != nil {
		t.Fatalf("bob call: %v", err)
	}
	if tb.NextToActSeat != nil {
		t.Fatalf("expected next_to_act=none, got seat %d", *tb.NextToActSeat)
	}
	if tb.Street != Preflop {
		t.Fatalf("expected street still preflop (closed, not yet dealt), got %v", tb.Street)
	}
}

// S2: minimum raise enforcement.
func TestAct_MinimumRaiseEnforced(t *testing.T) {
	tb, _, _, charlie := newThreeHanded(t, 1, 2, [3]int64{200, 200, 200})

	err := tb.Act(charlie.PlayerID, RaiseTo, 3)
	if !apperr.Is(err, apperr.InvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

// S3: short all-in does not reopen action.
func TestAct_ShortAllInDoesNotReopenAction(t *testing.T) {
	tb, alice, _, charlie := newThreeHanded(t, 1, 2, [3]int64{8, 100, 100})

	if err := tb.Act(charlie.PlayerID, RaiseTo, 6); err != nil {
		t.Fatalf("charlie raise_to 6: %v", err)
	}
	if tb.LastRaiseIncrement != 4 {
		t.Fatalf("expected last_raise_increment=4, got %d", tb.LastRaiseIncrement)
	}
	if tb.ActionClosingSeat == nil || *tb.ActionClosingSeat != charlie.Index {
		t.Fatalf("expected closing seat = charlie")
	}

	if err := tb.Act(alice.PlayerID, RaiseTo, 8); err != nil {
		t.Fatalf("alice all-in raise_to 8: %v", err)
	}
	if !alice.AllIn {
		t.Fatalf("expected alice all-in")
	}
	if tb.ActionClosingSeat == nil || *tb.ActionClosingSeat != charlie.Index {
		t.Fatalf("expected closing seat unchanged (charlie), got %v", tb.ActionClosingSeat)
	}
	if tb.LastRaiseIncrement != 4 {
		t.Fatalf("expected last_raise_increment unchanged at 4, got %d", tb.LastRaiseIncrement)
	}
	if tb.CurrentBet != 8 {
		t.Fatalf("expected current_bet=8 (alice's all-in total is the new high), got %d", tb.CurrentBet)
	}
}

// S4: no-bet street requires a full orbit before closing.
func TestDealFlop_NoBetStreetRequiresFullOrbit(t *testing.T) {
	button := 0
	cfg := Config{MaxSeats: 2, SmallBlind: 1, BigBlind: 2, GameKind: NLH, ForcedButtonSeat: &button}
	tb := NewTable(cfg)
	alice := mustSeat(t, tb, "alice", 200, 0)
	bob := mustSeat(t, tb, "bob", 200, 1)
	if err := tb.StartNewHand(); err != nil {
		t.Fatalf("StartNewHand: %v", err)
	}

	if got := *tb.NextToActSeat; got != alice.Index {
		t.Fatalf("expected alice (button/SB) to act first heads-up, got seat %d", got)
	}
	if err := tb.Act(alice.PlayerID, Call, 0); err != nil {
		t.Fatalf("alice call: %v", err)
	}
	if err := tb.Act(bob.PlayerID, Check, 0); err != nil {
		t.Fatalf("bob check: %v", err)
	}
	if tb.NextToActSeat != nil {
		t.Fatalf("expected preflop closed before dealing flop")
	}

	if err := tb.DealFlop(); err != nil {
		t.Fatalf("DealFlop: %v", err)
	}
	if len(tb.Board) != 3 {
		t.Fatalf("expected 3 board cards, got %d", len(tb.Board))
	}
	if got := *tb.NextToActSeat; got != bob.Index {
		t.Fatalf("expected bob (out of position) to act first on flop, got seat %d", got)
	}

	if err := tb.Act(bob.PlayerID, Check, 0); err != nil {
		t.Fatalf("bob check: %v", err)
	}
	if tb.NextToActSeat == nil || *tb.NextToActSeat != alice.Index {
		t.Fatalf("expected next_to_act=alice (street not yet closed), got %v", tb.NextToActSeat)
	}

	if err := tb.Act(alice.PlayerID, Check, 0); err != nil {
		t.Fatalf("alice check: %v", err)
	}
	if tb.NextToActSeat != nil {
		t.Fatalf("expected street closed after alice's check, got next_to_act=%v", tb.NextToActSeat)
	}
}

// S7: run-outs are rejected outright on a non-NLH (Omaha) table, even
// with no hand in progress.
func TestRequestRunouts_RejectedForNonNLH(t *testing.T) {
	tb := NewTable(Config{MaxSeats: 6, SmallBlind: 1, BigBlind: 2, GameKind: PLO})
	err := tb.RequestRunouts(1, 2)
	if !apperr.Is(err, apperr.InvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}

	err = tb.RespondRunouts(1, true)
	if !apperr.Is(err, apperr.InvalidArgument) {
		t.Fatalf("expected InvalidArgument for respond, got %v", err)
	}
}

// S7b: an agreed 3-way run-it-twice on a pot that doesn't divide evenly
// by 3 must still credit every chip back out — no remainder silently
// vanishes across the independent boards.
func TestRunItTwice_ConservesChipsOnUnevenSplit(t *testing.T) {
	button := 0
	cfg := Config{MaxSeats: 2, SmallBlind: 1, BigBlind: 2, GameKind: NLH, ForcedButtonSeat: &button}
	tb := NewTable(cfg)
	alice := mustSeat(t, tb, "alice", 100, 0)
	bob := mustSeat(t, tb, "bob", 100, 1)
	before := alice.Stack + bob.Stack // 200, not evenly divisible by 3

	if err := tb.StartNewHand(); err != nil {
		t.Fatalf("StartNewHand: %v", err)
	}

	if got := *tb.NextToActSeat; got != alice.Index {
		t.Fatalf("expected alice (button, heads-up) to act first, got seat %d", got)
	}
	if err := tb.Act(alice.PlayerID, RaiseTo, 100000); err != nil {
		t.Fatalf("alice shove: %v", err)
	}
	if err := tb.Act(bob.PlayerID, Call, 0); err != nil {
		t.Fatalf("bob call: %v", err)
	}
	if tb.NextToActSeat != nil {
		t.Fatalf("expected betting closed after both all-in, got next_to_act=%v", tb.NextToActSeat)
	}
	if alice.Stack != 0 || bob.Stack != 0 {
		t.Fatalf("expected both players fully committed, got alice=%d bob=%d", alice.Stack, bob.Stack)
	}

	if err := tb.RequestRunouts(alice.PlayerID, 3); err != nil {
		t.Fatalf("RequestRunouts: %v", err)
	}
	if err := tb.RespondRunouts(bob.PlayerID, true); err != nil {
		t.Fatalf("RespondRunouts: %v", err)
	}

	result, err := tb.CompleteAllInRunout()
	if err != nil {
		t.Fatalf("CompleteAllInRunout: %v", err)
	}
	if len(result.Pots) != 3 {
		t.Fatalf("expected one pot result per board (3), got %d", len(result.Pots))
	}

	var totalCredited int64
	for _, p := range result.Pots {
		totalCredited += p.Amount
	}
	if totalCredited != before {
		t.Fatalf("chip conservation violated across run-it-twice boards: credited=%d, pot was=%d", totalCredited, before)
	}

	after := alice.Stack + bob.Stack
	if after != before {
		t.Fatalf("chip conservation violated: before=%d after=%d", before, after)
	}
	if tb.Pot != 0 {
		t.Fatalf("expected pot to be fully distributed, got %d", tb.Pot)
	}
}

// S8: leave during a hand is deferred; settled after the hand finalizes.
func TestRequestLeave_DeferredDuringHand(t *testing.T) {
	tb, _, bob, _ := newThreeHanded(t, 1, 2, [3]int64{200, 200, 200})

	pending, err := tb.RequestLeave(bob.UserID)
	if err != nil {
		t.Fatalf("RequestLeave: %v", err)
	}
	if !pending {
		t.Fatalf("expected leave to be deferred mid-hand")
	}
	if _, idx := tb.seatByUserID(bob.UserID); idx < 0 {
		t.Fatalf("expected bob to remain seated while hand is in progress")
	}

	// Everyone folds to end the hand so FlushPendingLeaves can run.
	for tb.NextToActSeat != nil {
		idx := *tb.NextToActSeat
		s := tb.seats[idx]
		if err := tb.Act(s.PlayerID, Fold, 0); err != nil {
			t.Fatalf("fold seat %d: %v", idx, err)
		}
	}
	if tb.Street != Showdown {
		t.Fatalf("expected hand to finalize via all-fold, got street=%v", tb.Street)
	}

	removed := tb.FlushPendingLeaves()
	if len(removed) != 1 || removed[0].UserID != bob.UserID {
		t.Fatalf("expected bob to be flushed after the hand finalized, got %+v", removed)
	}
	if _, idx := tb.seatByUserID(bob.UserID); idx >= 0 {
		t.Fatalf("expected bob's seat to be vacated after flush")
	}
}

// S9: NLH seat/blind validation.
func TestValidateConfig_RejectsBadRuleSets(t *testing.T) {
	cases := []Config{
		{MaxSeats: 1, SmallBlind: 1, BigBlind: 2},
		{MaxSeats: 6, SmallBlind: 0, BigBlind: 2},
		{MaxSeats: 6, SmallBlind: 2, BigBlind: 2},
		{MaxSeats: 6, SmallBlind: 3, BigBlind: 2},
	}
	for _, cfg := range cases {
		if err := ValidateConfig(cfg); !apperr.Is(err, apperr.InvalidArgument) {
			t.Fatalf("expected InvalidArgument for %+v, got %v", cfg, err)
		}
	}
	if err := ValidateConfig(Config{MaxSeats: 6, SmallBlind: 1, BigBlind: 2}); err != nil {
		t.Fatalf("expected valid config to pass, got %v", err)
	}
}

// S6: chip conservation through a full hand to showdown.
func TestShowdown_ConservesChips(t *testing.T) {
	button := 2
	deck := fixedDeckFor(t, []string{
		// hole cards dealt round-robin, 2 each: alice, bob, charlie, alice, bob, charlie
		"Ah", "2c", "7d", "As", "2d", "7c",
		// flop, turn, river
		"Kh", "Qs", "3c", "9d", "9h",
	})
	cfg := Config{MaxSeats: 6, SmallBlind: 1, BigBlind: 2, GameKind: NLH, ForcedButtonSeat: &button, DeckOverride: deck}
	tb := NewTable(cfg)
	alice := mustSeat(t, tb, "alice", 200, 0)
	bob := mustSeat(t, tb, "bob", 200, 1)
	charlie := mustSeat(t, tb, "charlie", 200, 2)

	before := alice.Stack + bob.Stack + charlie.Stack
	if err := tb.StartNewHand(); err != nil {
		t.Fatalf("StartNewHand: %v", err)
	}

	for tb.NextToActSeat != nil {
		idx := *tb.NextToActSeat
		s := tb.seats[idx]
		if err := tb.Act(s.PlayerID, Call, 0); err != nil {
			t.Fatalf("call seat %d: %v", idx, err)
		}
	}
	if err := tb.DealFlop(); err != nil {
		t.Fatalf("DealFlop: %v", err)
	}
	for tb.NextToActSeat != nil {
		s := tb.seats[*tb.NextToActSeat]
		if err := tb.Act(s.PlayerID, Check, 0); err != nil {
			t.Fatalf("check: %v", err)
		}
	}
	if err := tb.DealTurn(); err != nil {
		t.Fatalf("DealTurn: %v", err)
	}
	for tb.NextToActSeat != nil {
		s := tb.seats[*tb.NextToActSeat]
		if err := tb.Act(s.PlayerID, Check, 0); err != nil {
			t.Fatalf("check: %v", err)
		}
	}
	if err := tb.DealRiver(); err != nil {
		t.Fatalf("DealRiver: %v", err)
	}
	for tb.NextToActSeat != nil {
		s := tb.seats[*tb.NextToActSeat]
		if err := tb.Act(s.PlayerID, Check, 0); err != nil {
			t.Fatalf("check: %v", err)
		}
	}

	wantBoard := []string{"Kh", "Qs", "3c", "9d", "9h"}
	if len(tb.Board) != len(wantBoard) {
		t.Fatalf("expected a %d-card board, got %v", len(wantBoard), tb.Board)
	}
	for i, w := range wantBoard {
		c, _ := card.ParseWire(w)
		if tb.Board[i] != c {
			t.Fatalf("board[%d]: expected %s, got %s", i, w, tb.Board[i])
		}
	}

	result, err := tb.Showdown()
	if err != nil {
		t.Fatalf("Showdown: %v", err)
	}
	if len(result.Players) != 3 {
		t.Fatalf("expected 3 showdown players, got %d", len(result.Players))
	}

	// Alice's pocket aces pair with the board's nines for two pair
	// aces-and-nines, beating bob's and charlie's two pair nines-and-X.
	if len(result.Pots) != 1 || len(result.Pots[0].Winners) != 1 || result.Pots[0].Winners[0] != alice.Index {
		t.Fatalf("expected alice (seat %d) to be the sole winner, got %+v", alice.Index, result.Pots)
	}

	after := alice.Stack + bob.Stack + charlie.Stack
	if after != before {
		t.Fatalf("chip conservation violated: before=%d after=%d", before, after)
	}
	if tb.Pot != 0 {
		t.Fatalf("expected pot to be fully distributed, got %d", tb.Pot)
	}
}

func fixedDeckFor(t *testing.T, wire []string) []card.Card {
	t.Helper()
	seen := map[card.Card]bool{}
	for _, w := range wire {
		c, err := card.ParseWire(w)
		if err != nil {
			t.Fatalf("ParseWire(%s): %v", w, err)
		}
		seen[c] = true
	}
	// DeckOverride is dealt front-to-back, so the intended deal order
	// goes first, followed by the rest of the deck in arbitrary order.
	deck := make([]card.Card, len(wire))
	for i, w := range wire {
		c, _ := card.ParseWire(w)
		deck[i] = c
	}
	for _, c := range card.FullDeck {
		if !seen[c] {
			deck = append(deck, c)
		}
	}
	return deck
}

// EnforceActionTimeout auto-folds the player on the clock once the
// deadline has passed, repeatedly, until the round either closes or a
// fresh deadline is in the future.
func TestEnforceActionTimeout_AutoFoldsOnExpiry(t *testing.T) {
	tb, alice, _, charlie := newThreeHanded(t, 1, 2, [3]int64{200, 200, 200})
	tb.ActionDeadline = time.Now().Add(-time.Second)

	applied := tb.EnforceActionTimeout(time.Now())
	if !applied {
		t.Fatalf("expected timeout to apply an auto-fold")
	}
	if !charlie.Folded {
		t.Fatalf("expected charlie (on the clock) to be auto-folded")
	}
	// Charlie is the button/UTG seat in this 3-handed layout; after his
	// fold, action passes to Alice (SB), next in the circular order.
	if tb.NextToActSeat == nil || *tb.NextToActSeat != alice.Index {
		t.Fatalf("expected action to pass to alice, got %v", tb.NextToActSeat)
	}
}
