package session

import (
	"log"
	"time"

	"holdem-lite/internal/engine"
)

// runCycle is the broadcast-invocation sequence spec §4.3 requires: sweep
// turn timeouts, auto-remove long-sat-out players, auto-progress the
// hand, auto-start the next one, then compute and dispatch masked frames
// and persist stacks. Called after every mutating command and once per
// background tick.
func (t *Table) runCycle() {
	t.sweepActionTimeouts()
	t.sweepSatOut()
	t.autoProgress()
	t.autoStart()
	t.dispatchAll()
	t.persistStacks()
}

func (t *Table) sweepActionTimeouts() {
	t.engine.EnforceActionTimeout(time.Now())
}

func (t *Table) sweepSatOut() {
	removed := t.engine.SweepSatOut(time.Now())
	for _, s := range removed {
		if s.UserID == "" {
			continue
		}
		if _, err := t.cashOut(s.UserID, s.Stack); err != nil {
			log.Printf("[session %s] sat-out cash-out failed for %s: %v", t.ID, s.UserID, err)
		}
	}
}

// autoProgress implements spec §4.3's auto-progression rule. The engine
// already resolves the all-fold short circuit internally (inside
// settleStreetIfClosedLocked); this only drives the no-next-to-act cases
// the engine leaves to the caller: fast-forwarding all-in hands and
// dealing the next street.
func (t *Table) autoProgress() {
	for {
		street, nextToAct := t.handState()
		if street == engine.PreHand || street == engine.Showdown {
			return
		}
		if nextToAct != nil {
			return
		}

		if t.engine.AllInRunoutPending() {
			if t.engine.RunoutNegotiationOpen() {
				return // give players their response window
			}
			result, err := t.engine.CompleteAllInRunout()
			if err != nil {
				log.Printf("[session %s] complete all-in runout failed: %v", t.ID, err)
				return
			}
			t.finalizeHand(result)
			return
		}

		var err error
		switch street {
		case engine.Preflop:
			err = t.engine.DealFlop()
		case engine.Flop:
			err = t.engine.DealTurn()
		case engine.Turn:
			err = t.engine.DealRiver()
		case engine.River:
			result, sErr := t.engine.Showdown()
			if sErr != nil {
				log.Printf("[session %s] auto showdown failed: %v", t.ID, sErr)
				return
			}
			t.finalizeHand(result)
			return
		default:
			return
		}
		if err != nil {
			log.Printf("[session %s] auto street deal failed: %v", t.ID, err)
			return
		}
		// Loop: the freshly dealt street may itself already be settled
		// (e.g. everyone else is all-in), so re-check before returning.
	}
}

func (t *Table) handState() (engine.Street, *int) {
	t.engine.Lock()
	defer t.engine.Unlock()
	return t.engine.Street, t.engine.NextToActSeat
}

// autoStart begins the next hand once the table is between hands and at
// least two eligible players remain.
func (t *Table) autoStart() {
	t.engine.Lock()
	street := t.engine.Street
	t.engine.Unlock()
	if street != engine.PreHand && street != engine.Showdown {
		return
	}
	if t.engine.EligibleCount() < 2 {
		return
	}
	if err := t.snapshotStartStacks(); err != nil {
		return
	}
	if err := t.engine.StartNewHand(); err != nil {
		log.Printf("[session %s] auto start hand failed: %v", t.ID, err)
	}
}

// finalizeHand records hand history for every seated, user-backed player
// and flushes any leaves deferred during the hand that just ended.
func (t *Table) finalizeHand(result *engine.SettlementResult) {
	ctx, cancel := t.ctx()
	defer cancel()

	t.engine.Lock()
	seats := append([]*engine.Seat{}, t.engine.Seats()...)
	handNumber := t.engine.HandNumber
	board := append([]string{}, wireBoard(t.engine.Board)...)
	t.engine.Unlock()

	for _, s := range seats {
		if s == nil || s.UserID == "" {
			continue
		}
		before, ok := t.handStartStacks[s.Index]
		if !ok {
			continue
		}
		row := netHandHistoryRow(s.UserID, t.Name, s.Stack-before, handNumber, board)
		if err := t.db.AppendHandHistory(ctx, row); err != nil {
			log.Printf("[session %s] append hand history failed for %s: %v", t.ID, s.UserID, err)
		}
	}
	_ = result

	t.flushPendingLeaves()
}

func (t *Table) flushPendingLeaves() {
	removed := t.engine.FlushPendingLeaves()
	for _, s := range removed {
		if s.UserID == "" {
			continue
		}
		if _, err := t.cashOut(s.UserID, s.Stack); err != nil {
			log.Printf("[session %s] deferred-leave cash-out failed for %s: %v", t.ID, s.UserID, err)
		}
	}
}
