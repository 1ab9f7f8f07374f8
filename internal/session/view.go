package session

import (
	"time"

	"holdem-lite/card"
	"holdem-lite/internal/engine"
)

const maskedHoleCard = card.MaskedWire

// SeatView is one seat's viewer-masked projection.
type SeatView struct {
	Seat       int      `json:"seat"`
	PlayerID   uint64   `json:"player_id"`
	UserID     string   `json:"user_id,omitempty"`
	Name       string   `json:"name"`
	Avatar     string   `json:"avatar,omitempty"`
	Stack      int64    `json:"stack"`
	Committed  int64    `json:"committed"`
	Hole       []string `json:"hole,omitempty"`
	InHand     bool     `json:"in_hand"`
	Folded     bool     `json:"folded"`
	AllIn      bool     `json:"all_in"`
	SittingOut bool     `json:"sitting_out"`
}

// PotResultView mirrors engine.PotResult in wire form.
type PotResultView struct {
	Amount         int64  `json:"amount"`
	EligibleSeats  []int  `json:"eligible_seats"`
	Winners        []int  `json:"winners"`
	SharePerWinner int64  `json:"share_per_winner"`
	Remainder      int64  `json:"remainder"`
	RemainderSeat  int    `json:"remainder_seat"`
}

// HandSummaryView mirrors engine.HandSummary in wire form.
type HandSummaryView struct {
	HandNumber int             `json:"hand_number"`
	Board      []string        `json:"board"`
	Pots       []PotResultView `json:"pots"`
	EndedAt    time.Time       `json:"ended_at"`
}

// TableStateFrame is the `TableState` server frame (spec §6): masked per
// viewer, sent after every engine mutation.
type TableStateFrame struct {
	Type string `json:"type"`

	TableID    string `json:"table_id"`
	HandNumber int    `json:"hand_number"`
	Street     string `json:"street"`
	GameKind   string `json:"game_kind"`
	Board      []string `json:"board"`
	Pot        int64  `json:"pot"`
	CurrentBet int64  `json:"current_bet"`

	NextToActSeat     *int       `json:"next_to_act_seat,omitempty"`
	ActionClosingSeat *int       `json:"action_closing_seat,omitempty"`
	ActionDeadline    *time.Time `json:"action_deadline,omitempty"`

	ButtonSeat *int `json:"button_seat,omitempty"`
	SBSeat     *int `json:"sb_seat,omitempty"`
	BBSeat     *int `json:"bb_seat,omitempty"`

	SmallBlind int64 `json:"small_blind"`
	BigBlind   int64 `json:"big_blind"`

	Players     []SeatView        `json:"players"`
	RecentHands []HandSummaryView `json:"recent_hands"`
}

func wireBoard(board []card.Card) []string {
	out := make([]string, len(board))
	for i, c := range board {
		out[i] = c.Wire()
	}
	return out
}

func wireHole(hole []card.Card, reveal bool) []string {
	if len(hole) == 0 {
		return nil
	}
	out := make([]string, len(hole))
	for i, c := range hole {
		if reveal {
			out[i] = c.Wire()
		} else {
			out[i] = maskedHoleCard
		}
	}
	return out
}

func seatView(s *engine.Seat, viewerUserID string) SeatView {
	reveal := s.UserID == "" || s.UserID == viewerUserID
	return SeatView{
		Seat:       s.Index,
		PlayerID:   s.PlayerID,
		UserID:     s.UserID,
		Name:       s.Name,
		Avatar:     s.Avatar,
		Stack:      s.Stack,
		Committed:  s.Committed,
		Hole:       wireHole(s.Hole, reveal),
		InHand:     s.InHand,
		Folded:     s.Folded,
		AllIn:      s.AllIn,
		SittingOut: s.SittingOut,
	}
}

func handSummaryView(h engine.HandSummary) HandSummaryView {
	pots := make([]PotResultView, len(h.Pots))
	for i, p := range h.Pots {
		pots[i] = PotResultView{
			Amount:         p.Amount,
			EligibleSeats:  p.EligibleSeats,
			Winners:        p.Winners,
			SharePerWinner: p.SharePerWinner,
			Remainder:      p.Remainder,
			RemainderSeat:  p.RemainderSeat,
		}
	}
	return HandSummaryView{HandNumber: h.HandNumber, Board: wireBoard(h.Board), Pots: pots, EndedAt: h.EndedAt}
}

func gameKindWire(k engine.GameKind) string {
	if k == engine.PLO {
		return "omaha"
	}
	return "holdem"
}

// StateFor computes the current viewer-masked TableState frame, for
// handlers that need to return the post-mutation state synchronously
// (spec §6: mutating calls return the updated TableState or an error).
func (t *Table) StateFor(viewerUserID string) TableStateFrame {
	t.engine.Lock()
	defer t.engine.Unlock()
	return t.buildTableStateLocked(viewerUserID)
}

// buildTableStateLocked computes the viewer-masked TableState frame for
// viewerUserID ("" = spectator). Caller must hold t.engine's lock.
func (t *Table) buildTableStateLocked(viewerUserID string) TableStateFrame {
	e := t.engine
	cfg := e.Config()

	var players []SeatView
	for _, s := range e.Seats() {
		if s == nil {
			continue
		}
		players = append(players, seatView(s, viewerUserID))
	}

	var recent []HandSummaryView
	for _, h := range e.RecentHands {
		recent = append(recent, handSummaryView(h))
	}

	var deadline *time.Time
	if e.NextToActSeat != nil && !e.ActionDeadline.IsZero() {
		d := e.ActionDeadline
		deadline = &d
	}

	return TableStateFrame{
		Type:              "table_state",
		TableID:           t.ID,
		HandNumber:        e.HandNumber,
		Street:            e.Street.String(),
		GameKind:          gameKindWire(cfg.GameKind),
		Board:             wireBoard(e.Board),
		Pot:               e.Pot,
		CurrentBet:        e.CurrentBet,
		NextToActSeat:     e.NextToActSeat,
		ActionClosingSeat: e.ActionClosingSeat,
		ActionDeadline:    deadline,
		ButtonSeat:        e.ButtonSeat,
		SBSeat:            e.SBSeat,
		BBSeat:            e.BBSeat,
		SmallBlind:        cfg.SmallBlind,
		BigBlind:          cfg.BigBlind,
		Players:           players,
		RecentHands:       recent,
	}
}
