package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"holdem-lite/internal/apperr"
	"holdem-lite/internal/engine"
	"holdem-lite/internal/store"
)

var ErrTableClosed = errors.New("session: table closed")

const (
	tickInterval    = time.Second // 1Hz background sweep, spec §5
	sitOutGrace     = 6 * time.Minute
	eventQueueDepth = 256
)

// Table is the per-table actor: one goroutine owns engine.Table mutation,
// broadcast computation, and persistence dispatch, serialized through a
// single event channel exactly as the teacher's table.Table.run() does.
type Table struct {
	ID     string
	ClubID string
	Name   string

	engine *engine.Table
	db     store.Store

	commands chan Command
	done     chan struct{}
	stopOnce sync.Once
	closed   bool

	mu                   sync.Mutex
	subscribersByChannel map[string]string          // channel -> viewer user id ("" = spectator)
	subscribersByUser    map[string]map[string]bool  // user id -> set of channels
	chat                 []ChatMessage
	nextChatID           uint64

	handStartStacks map[int]int64
	createdAt       time.Time
	lastActivity    time.Time

	broadcast func(channel string, frame []byte)
}

// New constructs a table actor around a freshly built (or rehydrated)
// engine.Table and starts its run loop.
func New(id, clubID, name string, eng *engine.Table, db store.Store, broadcastFn func(channel string, frame []byte)) *Table {
	t := &Table{
		ID:                   id,
		ClubID:               clubID,
		Name:                 name,
		engine:               eng,
		db:                   db,
		commands:             make(chan Command, eventQueueDepth),
		done:                 make(chan struct{}),
		subscribersByChannel: make(map[string]string),
		subscribersByUser:    make(map[string]map[string]bool),
		createdAt:            time.Now(),
		lastActivity:         time.Now(),
		broadcast:            broadcastFn,
	}
	go t.run()
	return t
}

func (t *Table) run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case cmd := <-t.commands:
			err := t.dispatch(cmd)
			if cmd.Response != nil {
				cmd.Response <- err
			}
		case <-ticker.C:
			t.tick()
		case <-t.done:
			return
		}
	}
}

// Submit sends a command to the actor and blocks for its result.
func (t *Table) Submit(cmd Command) error {
	if cmd.Response == nil {
		cmd.Response = make(chan error, 1)
	}
	select {
	case t.commands <- cmd:
	case <-t.done:
		return ErrTableClosed
	}
	select {
	case err := <-cmd.Response:
		return err
	case <-t.done:
		return ErrTableClosed
	}
}

// Stop shuts the actor down.
func (t *Table) Stop() {
	t.stopOnce.Do(func() { close(t.done) })
}

func (t *Table) IsClosed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// IsIdleFor reports whether the table has had no commands and no seated
// players for at least d.
func (t *Table) IsIdleFor(d time.Duration) bool {
	t.mu.Lock()
	idleSince := t.lastActivity
	t.mu.Unlock()
	if time.Since(idleSince) < d {
		return false
	}
	t.engine.Lock()
	defer t.engine.Unlock()
	for _, s := range t.engine.Seats() {
		if s != nil {
			return false
		}
	}
	return true
}

func (t *Table) touch() {
	t.mu.Lock()
	t.lastActivity = time.Now()
	t.mu.Unlock()
}

func (t *Table) tick() {
	if t.closed {
		return
	}
	t.runCycle()
}

func (t *Table) dispatch(cmd Command) error {
	if t.closed && cmd.Kind != CmdClose {
		return ErrTableClosed
	}
	t.touch()

	switch cmd.Kind {
	case CmdSit:
		return t.handleSit(cmd)
	case CmdChangeSeat:
		return t.handleChangeSeat(cmd)
	case CmdLeave:
		return t.handleLeave(cmd)
	case CmdSitOut:
		return t.handleSitOut(cmd)
	case CmdReturn:
		return t.handleReturn(cmd)
	case CmdStartHand:
		return t.handleStartHand(cmd)
	case CmdDealFlop:
		return t.handleDealStreet(cmd, t.engine.DealFlop)
	case CmdDealTurn:
		return t.handleDealStreet(cmd, t.engine.DealTurn)
	case CmdDealRiver:
		return t.handleDealStreet(cmd, t.engine.DealRiver)
	case CmdShowdown:
		return t.handleShowdown(cmd)
	case CmdAct:
		return t.handleAct(cmd)
	case CmdRequestRunouts:
		return t.handleRequestRunouts(cmd)
	case CmdRespondRunouts:
		return t.handleRespondRunouts(cmd)
	case CmdSubscribe:
		return t.handleSubscribe(cmd)
	case CmdUnsubscribe:
		return t.handleUnsubscribe(cmd)
	case CmdChatMessage:
		return t.handleChatMessage(cmd)
	case CmdRebroadcast:
		t.broadcastTo(cmd.Channel, cmd.UserID)
		return nil
	case CmdClose:
		t.closed = true
		return nil
	default:
		return apperr.New(apperr.InvalidArgument, "unknown command")
	}
}

func (t *Table) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 3*time.Second)
}

func (t *Table) marshalFrame(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[session %s] marshal frame failed: %v", t.ID, err)
		return nil
	}
	return data
}
