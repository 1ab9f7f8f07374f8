package engine

import (
	"time"

	"holdem-lite/card"
	"holdem-lite/internal/apperr"
)

// handOrderLocked returns the sorted seat indices of this hand's eligible
// participants as of the most recent StartNewHand call.
func (t *Table) handOrderLocked() []int {
	var order []int
	for i, s := range t.seats {
		if s != nil && s.InHand {
			order = append(order, i)
		}
	}
	return order
}

// nextInOrderAfter walks the hand's participant order circularly,
// starting just after `after` (or from the front if after<0), and
// returns the first seat index satisfying pred, or -1 if none do.
func nextInOrderAfter(order []int, after int, pred func(int) bool) int {
	n := len(order)
	if n == 0 {
		return -1
	}
	start := 0
	for i, v := range order {
		if v == after {
			start = i + 1
			break
		}
	}
	for i := 0; i < n; i++ {
		idx := order[(start+i)%n]
		if pred(idx) {
			return idx
		}
	}
	return -1
}

func eligibleOccupied(seats []*Seat) []int {
	var order []int
	for i, s := range seats {
		if s.eligibleToStart() {
			order = append(order, i)
		}
	}
	return order
}

// StartNewHand begins a new hand. Requires at least 2 eligible players.
func (t *Table) StartNewHand() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Street != PreHand && t.Street != Showdown {
		return apperr.New(apperr.IllegalState, "hand already in progress")
	}

	eligible := eligibleOccupied(t.seats)
	if len(eligible) < 2 {
		return apperr.New(apperr.InvalidArgument, "not enough eligible players")
	}

	t.HandNumber++
	t.Board = nil
	t.Pot = 0
	t.CurrentBet = 0
	t.LastRaiseIncrement = t.cfg.BigBlind
	t.startingStacks = map[int]int64{}
	t.handCommitted = map[int]int64{}
	t.runoutRequestedBy = nil
	t.runoutRequestedCount = 0
	t.runoutAccepted = nil
	t.runoutPending = nil

	for i, s := range t.seats {
		if s == nil {
			continue
		}
		in := s.eligibleToStart()
		s.InHand = in
		s.Folded = false
		s.AllIn = false
		s.Committed = 0
		s.Hole = nil
		if in {
			t.startingStacks[i] = s.Stack
		}
	}

	t.deck = card.CardList{}
	if len(t.cfg.DeckOverride) > 0 {
		t.deck.Init(t.cfg.DeckOverride)
	} else {
		t.deck.Reset(card.FullDeck)
	}

	t.advanceButtonLocked(eligible)

	order := t.handOrderLocked()
	sbIdx, bbIdx := t.selectBlindsLocked(order)

	t.dealHoleCardsLocked(order)

	if t.cfg.BombPotEveryN > 0 && t.cfg.BombPotAmount > 0 && t.HandNumber%t.cfg.BombPotEveryN == 0 {
		t.applyBombPotLocked(order)
	}

	t.postBlindLocked(sbIdx, t.cfg.SmallBlind)
	t.postBlindLocked(bbIdx, t.cfg.BigBlind)
	if t.CurrentBet < t.cfg.BigBlind {
		t.CurrentBet = t.cfg.BigBlind
	}

	t.Street = Preflop
	t.setActionClosingLocked(bbIdx)
	t.resetPendingToActLocked(order)
	canActCount := 0
	for _, idx := range order {
		if t.seats[idx].canAct() {
			canActCount++
		}
	}
	if canActCount == 0 {
		t.setNextToActLocked(-1)
		return nil
	}
	firstToAct := nextInOrderAfter(order, bbIdx, func(i int) bool { return t.seats[i].canAct() })
	t.setNextToActLocked(firstToAct)
	return nil
}

// resetPendingToActLocked marks every seat that can still act this
// street as owing an action. A street closes once this set is empty.
func (t *Table) resetPendingToActLocked(seats []int) {
	t.pendingToAct = map[int]bool{}
	for _, idx := range seats {
		if t.seats[idx].canAct() {
			t.pendingToAct[idx] = true
		}
	}
}

func (t *Table) advanceButtonLocked(eligible []int) {
	if t.ButtonSeat == nil {
		if t.cfg.ForcedButtonSeat != nil {
			b := *t.cfg.ForcedButtonSeat
			t.ButtonSeat = &b
			return
		}
		b := eligible[0]
		t.ButtonSeat = &b
		return
	}
	next := nextInOrderAfter(eligible, *t.ButtonSeat, func(int) bool { return true })
	if next < 0 {
		next = eligible[0]
	}
	t.ButtonSeat = &next
}

// selectBlindsLocked picks SB/BB relative to the button. Heads-up is a
// special case: the button itself posts the small blind and acts first
// preflop (standard heads-up rule); with 3+ players the small blind is
// the next seat clockwise from the button.
func (t *Table) selectBlindsLocked(order []int) (sb, bb int) {
	button := *t.ButtonSeat
	if len(order) == 2 {
		sb = button
	} else {
		sb = nextInOrderAfter(order, button, func(int) bool { return true })
	}
	bb = nextInOrderAfter(order, sb, func(int) bool { return true })
	t.SBSeat = &sb
	t.BBSeat = &bb
	return sb, bb
}

func (t *Table) dealHoleCardsLocked(order []int) {
	perPlayer := 2
	if t.cfg.GameKind == PLO {
		perPlayer = 4
	}
	for round := 0; round < perPlayer; round++ {
		for _, idx := range order {
			t.seats[idx].Hole = append(t.seats[idx].Hole, t.deck.PopCards(1)[0])
		}
	}
}

func (t *Table) applyBombPotLocked(order []int) {
	for _, idx := range order {
		s := t.seats[idx]
		contrib := t.cfg.BombPotAmount
		if contrib > s.Stack {
			contrib = s.Stack
		}
		s.Stack -= contrib
		s.Committed += contrib
		t.Pot += contrib
		t.handCommitted[idx] += contrib
		if s.Stack == 0 {
			s.AllIn = true
		}
	}
	if t.cfg.BombPotAmount > t.CurrentBet {
		t.CurrentBet = t.cfg.BombPotAmount
	}
}

func (t *Table) postBlindLocked(idx int, amt int64) {
	s := t.seats[idx]
	contrib := amt
	if contrib > s.Stack {
		contrib = s.Stack
	}
	s.Stack -= contrib
	s.Committed += contrib
	t.Pot += contrib
	t.handCommitted[idx] += contrib
	if s.Stack == 0 {
		s.AllIn = true
	}
	if s.Committed > t.CurrentBet {
		t.CurrentBet = s.Committed
	}
}

func (t *Table) setNextToActLocked(idx int) {
	if idx < 0 {
		t.NextToActSeat = nil
		return
	}
	v := idx
	t.NextToActSeat = &v
	deadline := time.Now().Add(t.cfg.actionTimeout())
	t.ActionDeadline = deadline
}

func (t *Table) setActionClosingLocked(idx int) {
	if idx < 0 {
		t.ActionClosingSeat = nil
		return
	}
	v := idx
	t.ActionClosingSeat = &v
}

// Act applies a betting action on behalf of playerID.
func (t *Table) Act(playerID uint64, kind ActionKind, amount int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Street == PreHand || t.Street == Showdown {
		return apperr.New(apperr.IllegalState, "no hand in progress")
	}
	s, idx := t.seatByPlayerID(playerID)
	if idx < 0 {
		return apperr.New(apperr.NotFound, "unknown player")
	}
	if t.NextToActSeat == nil || *t.NextToActSeat != idx {
		return apperr.New(apperr.InvalidArgument, "not your turn")
	}
	if !s.canAct() {
		return apperr.New(apperr.IllegalState, "cannot act")
	}

	switch kind {
	case Fold:
		t.applyActionLocked(idx, Fold, 0, false)
	case Check:
		if s.Committed != t.CurrentBet {
			return apperr.New(apperr.InvalidArgument, "cannot check facing a bet")
		}
		t.applyActionLocked(idx, Check, 0, false)
	case Call:
		t.applyActionLocked(idx, Call, 0, false)
	case RaiseTo:
		if amount <= t.CurrentBet {
			return apperr.New(apperr.InvalidArgument, "raise must exceed current bet")
		}
		delta := amount - s.Committed
		isAllIn := delta >= s.Stack
		fullRaiseSize := amount - t.CurrentBet
		if !isAllIn && fullRaiseSize < t.LastRaiseIncrement {
			return apperr.New(apperr.InvalidArgument, "minimum raise not met")
		}
		previousCurrentBet := t.CurrentBet
		t.applyActionLocked(idx, RaiseTo, amount, false)
		if isAllIn && fullRaiseSize < t.LastRaiseIncrement {
			// Short all-in: does not reopen action. current-bet still
			// rises to the all-in total if it's the new high, but the
			// closing seat, raise increment, and other players' pending
			// obligation to act again are all left untouched.
			if s.Committed > t.CurrentBet {
				t.CurrentBet = s.Committed
			}
		} else {
			t.setActionClosingLocked(idx)
			t.LastRaiseIncrement = amount - previousCurrentBet
			t.CurrentBet = amount
			// A full raise reopens action: everyone else still active
			// owes a new decision against the higher bet.
			for _, other := range t.handOrderLocked() {
				if other != idx && t.seats[other].canAct() {
					t.pendingToAct[other] = true
				}
			}
		}
	default:
		return apperr.New(apperr.InvalidArgument, "unknown action")
	}

	t.advanceAfterActionLocked(idx)
	t.settleStreetIfClosedLocked()
	return nil
}

func (t *Table) applyActionLocked(idx int, kind ActionKind, amount int64, auto bool) {
	s := t.seats[idx]
	delete(t.pendingToAct, idx)
	switch kind {
	case Fold:
		// InHand stays true: the seat remains part of this hand's
		// participant order for turn-walking purposes. Folded is the
		// flag that excludes it from acting and from winning the pot.
		s.Folded = true
	case Check:
		// no-op commitment change
	case Call:
		delta := t.CurrentBet - s.Committed
		if delta < 0 {
			delta = 0
		}
		if delta > s.Stack {
			delta = s.Stack
		}
		s.Stack -= delta
		s.Committed += delta
		t.Pot += delta
		t.handCommitted[idx] += delta
		if s.Stack == 0 {
			s.AllIn = true
		}
	case RaiseTo:
		delta := amount - s.Committed
		if delta > s.Stack {
			delta = s.Stack
		}
		s.Stack -= delta
		s.Committed += delta
		t.Pot += delta
		t.handCommitted[idx] += delta
		if s.Stack == 0 {
			s.AllIn = true
		}
	}
}

// advanceAfterActionLocked moves the action-closing marker forward if
// the acting seat folded/went all-in while holding that marker.
func (t *Table) advanceAfterActionLocked(actedIdx int) {
	if t.ActionClosingSeat != nil && *t.ActionClosingSeat == actedIdx {
		s := t.seats[actedIdx]
		if s.Folded || s.AllIn {
			order := t.handOrderLocked()
			prev := nextInOrderAfterReverse(order, actedIdx, func(i int) bool {
				return t.seats[i].activeInHand()
			})
			t.setActionClosingLocked(prev)
		}
	}
}

func nextInOrderAfterReverse(order []int, before int, pred func(int) bool) int {
	n := len(order)
	if n == 0 {
		return -1
	}
	start := 0
	for i, v := range order {
		if v == before {
			start = i
			break
		}
	}
	for i := 1; i <= n; i++ {
		idx := order[((start-i)%n+n)%n]
		if pred(idx) {
			return idx
		}
	}
	return -1
}

// settleStreetIfClosedLocked implements turn advancement and the all-fold
// short circuit. When every remaining player is all-in it only clears
// next-to-act; the run-out itself happens in CompleteAllInRunout. Called
// after every mutating action.
func (t *Table) settleStreetIfClosedLocked() {
	if t.Street == PreHand || t.Street == Showdown {
		return
	}

	order := t.handOrderLocked()
	var remaining []int
	for _, idx := range order {
		if t.seats[idx].activeInHand() {
			remaining = append(remaining, idx)
		}
	}

	if len(remaining) <= 1 {
		t.awardAllFoldLocked(remaining)
		return
	}

	canActCount := 0
	for _, idx := range remaining {
		if t.seats[idx].canAct() {
			canActCount++
		}
	}

	if canActCount == 0 {
		// Everyone remaining is all-in: betting is settled with nothing
		// left to decide. The session layer drives the actual
		// fast-forward-to-showdown (and any run-it-twice negotiation
		// window) by calling CompleteAllInRunout once ready.
		t.setNextToActLocked(-1)
		return
	}

	prevActor := -1
	if t.NextToActSeat != nil {
		prevActor = *t.NextToActSeat
	}
	nextActor := nextInOrderAfter(order, prevActor, func(i int) bool {
		return t.seats[i].canAct() && t.pendingToAct[i]
	})

	if nextActor < 0 {
		t.setNextToActLocked(-1)
		return
	}

	t.setNextToActLocked(nextActor)
}

func (t *Table) awardAllFoldLocked(remaining []int) {
	if len(remaining) == 1 {
		winner := t.seats[remaining[0]]
		winner.Stack += t.Pot
	}
	t.Pot = 0
	t.Street = Showdown
	t.setNextToActLocked(-1)
	t.recordHandSummaryLocked(nil)
}

// DealFlop deals the flop. Legal only from Preflop with betting closed.
func (t *Table) DealFlop() error { return t.dealStreet(Flop, 3) }

// DealTurn deals the turn card.
func (t *Table) DealTurn() error { return t.dealStreet(Turn, 1) }

// DealRiver deals the river card.
func (t *Table) DealRiver() error { return t.dealStreet(River, 1) }

func (t *Table) dealStreet(target Street, n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	expected := map[Street]Street{Flop: Preflop, Turn: Flop, River: Turn}[target]
	if t.Street != expected {
		return apperr.New(apperr.InvalidArgument, "wrong street")
	}
	if t.NextToActSeat != nil {
		return apperr.New(apperr.IllegalState, "betting not closed")
	}
	t.dealStreetLocked(target, n)
	return nil
}

func (t *Table) dealStreetLocked(target Street, n int) {
	t.Board = append(t.Board, t.deck.PopCards(n)...)
	t.Street = target
	for _, s := range t.seats {
		if s != nil {
			s.Committed = 0
		}
	}
	t.CurrentBet = 0
	t.LastRaiseIncrement = t.cfg.BigBlind

	order := t.handOrderLocked()
	var active []int
	for _, idx := range order {
		if t.seats[idx].activeInHand() {
			active = append(active, idx)
		}
	}
	if len(active) <= 1 {
		t.awardAllFoldLocked(active)
		return
	}

	// No-bet street orbit rule: first-to-act is the first eligible seat
	// after the button; the closing seat is the seat just before that,
	// so a full orbit of checks/calls is required to close the street.
	firstToAct := nextInOrderAfter(order, buttonOr(t.ButtonSeat), func(i int) bool { return t.seats[i].canAct() })
	closing := nextInOrderAfterReverse(order, firstToAct, func(i int) bool { return t.seats[i].activeInHand() })
	t.setActionClosingLocked(closing)
	t.resetPendingToActLocked(active)

	canActCount := 0
	for _, idx := range active {
		if t.seats[idx].canAct() {
			canActCount++
		}
	}
	if canActCount == 0 {
		t.setNextToActLocked(-1)
		return
	}
	t.setNextToActLocked(firstToAct)
}

func buttonOr(b *int) int {
	if b == nil {
		return -1
	}
	return *b
}

// AllInRunoutPending reports whether betting is closed before the river
// with at least two non-folded players, at most one of whom can still
// act (everyone else all-in) — the condition under which the session
// layer's auto-progression fast-forwards the remaining streets. When
// none of them can act, an NLH run-it-twice negotiation is possible too.
func (t *Table) AllInRunoutPending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Street == PreHand || t.Street == Showdown || t.Street == River {
		return false
	}
	if t.NextToActSeat != nil {
		return false
	}
	remaining, canAct := 0, 0
	for _, s := range t.seats {
		if s.activeInHand() {
			remaining++
			if s.canAct() {
				canAct++
			}
		}
	}
	return remaining >= 2 && canAct <= 1
}

// CompleteAllInRunout deals any remaining streets immediately and
// resolves the hand, honoring an agreed run-it-twice negotiation (NLH
// only — see RequestRunouts/RespondRunouts).
func (t *Table) CompleteAllInRunout() (*SettlementResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Street == PreHand || t.Street == Showdown {
		return nil, apperr.New(apperr.IllegalState, "no hand in progress")
	}
	if t.NextToActSeat != nil {
		return nil, apperr.New(apperr.IllegalState, "betting not closed")
	}

	if t.runoutAgreedLocked() {
		baseBoard := append([]card.Card{}, t.Board...)
		return t.resolveRunItTwiceLocked(baseBoard), nil
	}

	for t.Street != River {
		switch t.Street {
		case Preflop:
			t.Board = append(t.Board, t.deck.PopCards(3)...)
			t.Street = Flop
		case Flop:
			t.Board = append(t.Board, t.deck.PopCards(1)...)
			t.Street = Turn
		case Turn:
			t.Board = append(t.Board, t.deck.PopCards(1)...)
			t.Street = River
		default:
			t.Street = River
		}
	}

	return t.resolveShowdownLocked(), nil
}

// RunoutNegotiationOpen reports whether a run-it-twice request is
// outstanding (made, but not yet fully accepted or rejected). The session
// layer's auto-progression must not fast-forward an all-in hand while
// this holds, so players get a chance to respond.
func (t *Table) RunoutNegotiationOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.runoutRequestedBy != nil && !t.runoutAgreedLocked()
}

func (t *Table) runoutAgreedLocked() bool {
	if t.runoutRequestedBy == nil || t.runoutRequestedCount < 2 {
		return false
	}
	for seat := range t.runoutPending {
		if !t.runoutAccepted[seat] {
			return false
		}
	}
	return true
}

// RequestRunouts proposes a run-it-twice negotiation. Only valid when
// all remaining players are all-in before the river and the table is
// NLH.
func (t *Table) RequestRunouts(playerID uint64, count int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cfg.GameKind != NLH {
		return apperr.New(apperr.InvalidArgument, "Run-outs are only supported for NLH")
	}
	if count != 2 && count != 3 {
		return apperr.New(apperr.InvalidArgument, "runout count must be 2 or 3")
	}
	s, idx := t.seatByPlayerID(playerID)
	if idx < 0 {
		return apperr.New(apperr.NotFound, "unknown player")
	}
	if !t.allInSpotLocked() {
		return apperr.New(apperr.IllegalState, "not an all-in spot")
	}
	requester := idx
	t.runoutRequestedBy = &requester
	t.runoutRequestedCount = count
	t.runoutAccepted = map[int]bool{idx: true}
	t.runoutPending = map[int]bool{}
	for _, other := range t.handOrderLocked() {
		if other != idx && t.seats[other].activeInHand() {
			t.runoutPending[other] = true
		}
	}
	_ = s
	return nil
}

// RespondRunouts accepts or rejects a pending run-it-twice request. Any
// rejection cancels the negotiation outright.
func (t *Table) RespondRunouts(playerID uint64, accept bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cfg.GameKind != NLH {
		return apperr.New(apperr.InvalidArgument, "Run-outs are only supported for NLH")
	}
	_, idx := t.seatByPlayerID(playerID)
	if idx < 0 {
		return apperr.New(apperr.NotFound, "unknown player")
	}
	if t.runoutRequestedBy == nil {
		return apperr.New(apperr.IllegalState, "no pending runout request")
	}
	if !accept {
		t.runoutRequestedBy = nil
		t.runoutRequestedCount = 0
		t.runoutAccepted = nil
		t.runoutPending = nil
		return nil
	}
	if t.runoutAccepted == nil {
		t.runoutAccepted = map[int]bool{}
	}
	t.runoutAccepted[idx] = true
	return nil
}

func (t *Table) allInSpotLocked() bool {
	if t.Street == PreHand || t.Street == Showdown || t.Street == River {
		return false
	}
	if t.NextToActSeat != nil {
		return false
	}
	remaining := 0
	for _, s := range t.seats {
		if s.activeInHand() {
			if s.canAct() {
				return false
			}
			remaining++
		}
	}
	return remaining >= 2
}

// Showdown is the explicit op for computing winners from the river.
func (t *Table) Showdown() (*SettlementResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Street != River {
		return nil, apperr.New(apperr.InvalidArgument, "wrong street")
	}
	if t.NextToActSeat != nil {
		return nil, apperr.New(apperr.IllegalState, "betting not closed")
	}
	return t.resolveShowdownLocked(), nil
}

// EnforceActionTimeout is idempotent and re-entrant: while the deadline
// has passed and a seat is on the clock, it applies an automatic fold.
func (t *Table) EnforceActionTimeout(now time.Time) (applied bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for t.NextToActSeat != nil && !now.Before(t.ActionDeadline) {
		idx := *t.NextToActSeat
		t.applyActionLocked(idx, Fold, 0, true)
		t.advanceAfterActionLocked(idx)
		t.settleStreetIfClosedLocked()
		applied = true
	}
	return applied
}
