package engine

import (
	"sync"
	"time"

	"holdem-lite/card"
	"holdem-lite/internal/apperr"
)

const sitOutGrace = 6 * time.Minute

// Table is the authoritative per-table state machine. All exported
// mutators acquire the table's mutex; none of them block on I/O.
type Table struct {
	mu sync.Mutex

	cfg Config

	deck card.CardList

	seats        []*Seat // index == seat index, nil if unoccupied
	nextPlayerID uint64

	HandNumber int
	Street     Street
	Board      []card.Card
	Pot        int64

	CurrentBet          int64
	LastRaiseIncrement  int64
	NextToActSeat       *int
	ActionClosingSeat   *int
	ActionDeadline      time.Time

	ButtonSeat *int
	SBSeat     *int
	BBSeat     *int

	startingStacks map[int]int64
	handCommitted  map[int]int64 // seat -> total chips committed across the whole hand, folded or not
	pendingToAct   map[int]bool  // seats that still need to act before the current street can close

	PendingLeaveUserIDs map[string]bool

	RecentHands []HandSummary

	runoutRequestedBy    *int
	runoutRequestedCount int
	runoutAccepted       map[int]bool
	runoutPending        map[int]bool // seats that must respond

	CreatedAt time.Time
}

// ValidateConfig rejects rule sets that can never produce a legal table:
// fewer than 2 seats, a non-positive small blind, or a big blind no
// larger than the small blind.
func ValidateConfig(cfg Config) error {
	if cfg.MaxSeats < 2 {
		return apperr.New(apperr.InvalidArgument, "max_seats must be at least 2")
	}
	if cfg.SmallBlind <= 0 {
		return apperr.New(apperr.InvalidArgument, "small blind must be positive")
	}
	if cfg.BigBlind <= cfg.SmallBlind {
		return apperr.New(apperr.InvalidArgument, "big blind must exceed small blind")
	}
	return nil
}

// NewTable constructs an empty table ready to seat players. Callers that
// accept rule sets from untrusted input should call ValidateConfig first;
// NewTable itself does not validate, so tests may still build tables with
// defaulted seat counts.
func NewTable(cfg Config) *Table {
	if cfg.MaxSeats <= 0 {
		cfg.MaxSeats = 9
	}
	return &Table{
		cfg:                 cfg,
		seats:               make([]*Seat, cfg.MaxSeats),
		nextPlayerID:        1,
		Street:              PreHand,
		startingStacks:      map[int]int64{},
		PendingLeaveUserIDs: map[string]bool{},
		CreatedAt:           time.Now(),
	}
}

// Lock/Unlock expose the table's mutex so the session-layer actor can
// wrap a mutation + broadcast-compute + persistence-upsert sequence in
// one critical section, per the concurrency model.
func (t *Table) Lock()   { t.mu.Lock() }
func (t *Table) Unlock() { t.mu.Unlock() }

// Config returns the table's ruleset.
func (t *Table) Config() Config { return t.cfg }

// Seats returns the table's seat slots (index == seat index, nil if
// unoccupied). Callers outside the engine package reach this only while
// holding the table's lock via Lock/Unlock.
func (t *Table) Seats() []*Seat { return t.seats }

// PlayerIDForUser resolves a seated user's table-local player id.
func (t *Table) PlayerIDForUser(userID string) (uint64, bool) {
	s, idx := t.seatByUserID(userID)
	if idx < 0 {
		return 0, false
	}
	return s.PlayerID, true
}

func (t *Table) seatByIndex(idx int) *Seat {
	if idx < 0 || idx >= len(t.seats) {
		return nil
	}
	return t.seats[idx]
}

func (t *Table) seatByPlayerID(playerID uint64) (*Seat, int) {
	for i, s := range t.seats {
		if s != nil && s.PlayerID == playerID {
			return s, i
		}
	}
	return nil, -1
}

func (t *Table) seatByUserID(userID string) (*Seat, int) {
	if userID == "" {
		return nil, -1
	}
	for i, s := range t.seats {
		if s != nil && s.UserID == userID {
			return s, i
		}
	}
	return nil, -1
}

// AddPlayer seats a player. seat<0 requests auto-seating at the lowest
// free index.
func (t *Table) AddPlayer(name string, stack int64, userID, avatar string, seat int) (*Seat, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if userID != "" {
		if _, idx := t.seatByUserID(userID); idx >= 0 {
			return nil, apperr.New(apperr.Conflict, "already seated")
		}
	}

	if seat < 0 {
		free := -1
		for i, s := range t.seats {
			if s == nil {
				free = i
				break
			}
		}
		if free < 0 {
			return nil, apperr.New(apperr.Conflict, "table full")
		}
		seat = free
	} else {
		if seat >= len(t.seats) {
			return nil, apperr.New(apperr.InvalidArgument, "invalid seat")
		}
		if t.seats[seat] != nil {
			return nil, apperr.New(apperr.Conflict, "seat taken")
		}
	}

	s := &Seat{
		Index:    seat,
		PlayerID: t.nextPlayerID,
		UserID:   userID,
		Name:     name,
		Avatar:   avatar,
		Stack:    stack,
	}
	t.nextPlayerID++
	t.seats[seat] = s
	return s, nil
}

// MoveToSeat reseats an existing player. Only legal between hands.
func (t *Table) MoveToSeat(userID string, seat int) (*Seat, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Street != PreHand && t.Street != Showdown {
		return nil, apperr.New(apperr.IllegalState, "hand in progress")
	}
	s, idx := t.seatByUserID(userID)
	if idx < 0 {
		return nil, apperr.New(apperr.NotFound, "not seated")
	}
	if seat < 0 || seat >= len(t.seats) {
		return nil, apperr.New(apperr.InvalidArgument, "invalid seat")
	}
	if t.seats[seat] != nil {
		return nil, apperr.New(apperr.Conflict, "seat taken")
	}
	t.seats[idx] = nil
	s.Index = seat
	t.seats[seat] = s
	return s, nil
}

// RemoveByUser removes a seat unconditionally and clears any position
// markers referencing it. Callers are responsible for the "leave during
// a hand is deferred" rule (spec §4.2): if a hand is in progress for
// this user, use RequestLeave instead.
func (t *Table) RemoveByUser(userID string) (*Seat, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, idx := t.seatByUserID(userID)
	if idx < 0 {
		return nil, apperr.New(apperr.NotFound, "not seated")
	}
	t.clearSeatReferencesLocked(idx)
	t.seats[idx] = nil
	delete(t.PendingLeaveUserIDs, userID)
	return s, nil
}

// RequestLeave defers removal until the current hand finalizes if the
// user is presently in_hand; otherwise it removes immediately.
func (t *Table) RequestLeave(userID string) (pending bool, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, idx := t.seatByUserID(userID)
	if idx < 0 {
		return false, apperr.New(apperr.NotFound, "not seated")
	}
	if s.InHand && t.Street != PreHand && t.Street != Showdown {
		t.PendingLeaveUserIDs[userID] = true
		return true, nil
	}
	t.clearSeatReferencesLocked(idx)
	t.seats[idx] = nil
	return false, nil
}

// FlushPendingLeaves removes and returns the seats of every user whose
// leave was deferred during the hand that just finalized. Called by the
// session layer after a hand ends, so it can credit wallets.
func (t *Table) FlushPendingLeaves() []*Seat {
	t.mu.Lock()
	defer t.mu.Unlock()
	var removed []*Seat
	for userID := range t.PendingLeaveUserIDs {
		if s, idx := t.seatByUserID(userID); idx >= 0 {
			t.clearSeatReferencesLocked(idx)
			t.seats[idx] = nil
			removed = append(removed, s)
		}
	}
	t.PendingLeaveUserIDs = map[string]bool{}
	return removed
}

func (t *Table) clearSeatReferencesLocked(idx int) {
	if t.ButtonSeat != nil && *t.ButtonSeat == idx {
		t.ButtonSeat = nil
	}
	if t.SBSeat != nil && *t.SBSeat == idx {
		t.SBSeat = nil
	}
	if t.BBSeat != nil && *t.BBSeat == idx {
		t.BBSeat = nil
	}
	if t.NextToActSeat != nil && *t.NextToActSeat == idx {
		t.NextToActSeat = nil
	}
	if t.ActionClosingSeat != nil && *t.ActionClosingSeat == idx {
		t.ActionClosingSeat = nil
	}
}

// SitOut marks a seat as sitting out. If it is currently their turn,
// they are auto-folded and action advances.
func (t *Table) SitOut(userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, idx := t.seatByUserID(userID)
	if idx < 0 {
		return apperr.New(apperr.NotFound, "not seated")
	}
	s.SittingOut = true
	s.SatOutSince = time.Now()
	if t.NextToActSeat != nil && *t.NextToActSeat == idx && s.canAct() {
		t.applyActionLocked(idx, Fold, 0, true)
		t.advanceAfterActionLocked(idx)
		t.settleStreetIfClosedLocked()
	}
	return nil
}

// ReturnToPlay clears sitting-out; the player resumes from the next hand.
func (t *Table) ReturnToPlay(userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, idx := t.seatByUserID(userID)
	if idx < 0 {
		return apperr.New(apperr.NotFound, "not seated")
	}
	s.SittingOut = false
	s.SatOutSince = time.Time{}
	return nil
}

// SweepSatOut auto-removes players whose sit-out grace period elapsed,
// returning their seats so the caller can credit wallets and close
// sessions. The session layer calls it on every cycle, mid-hand
// included; a sat-out player who is still in the hand in progress stays
// seated until a later sweep.
func (t *Table) SweepSatOut(now time.Time) []*Seat {
	t.mu.Lock()
	defer t.mu.Unlock()
	var removed []*Seat
	for idx, s := range t.seats {
		if s == nil || !s.SittingOut || s.SatOutSince.IsZero() {
			continue
		}
		if now.Sub(s.SatOutSince) < sitOutGrace {
			continue
		}
		if s.InHand && t.Street != PreHand && t.Street != Showdown {
			continue
		}
		t.clearSeatReferencesLocked(idx)
		removed = append(removed, s)
		t.seats[idx] = nil
	}
	return removed
}

// EligibleCount returns the number of seated, non-sitting-out players
// with a positive stack.
func (t *Table) EligibleCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.eligibleCountLocked()
}

func (t *Table) eligibleCountLocked() int {
	n := 0
	for _, s := range t.seats {
		if s.eligibleToStart() {
			n++
		}
	}
	return n
}
