package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"holdem-lite/internal/apperr"
	"holdem-lite/internal/engine"
	"holdem-lite/internal/store"
)

const (
	idleTableTTL        = 10 * time.Minute
	cleanupSweepInterval = 30 * time.Second
)

// NewTableParams describes a table a caller wants created.
type NewTableParams struct {
	ClubID        string
	CreatorID     string
	Name          string
	MaxSeats      int
	SmallBlind    int64
	BigBlind      int64
	GameKind      engine.GameKind
	BombPotEveryN int
	BombPotAmount int64
}

// Registry owns every live table actor, grounded on the teacher's
// lobby.Lobby: a map keyed by table id, a background idle-sweep loop, and
// on-demand hydration from the persistence layer on first access after a
// process restart.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Table
	nextID uint64

	db          store.Store
	broadcastFn func(tableID, channel string, frame []byte)

	done     chan struct{}
	stopOnce sync.Once
}

// NewRegistry constructs a registry and starts its idle-cleanup loop.
func NewRegistry(db store.Store, broadcastFn func(tableID, channel string, frame []byte)) *Registry {
	r := &Registry{
		tables:      make(map[string]*Table),
		db:          db,
		broadcastFn: broadcastFn,
		done:        make(chan struct{}),
	}
	go r.cleanupLoop()
	return r
}

// CreateTable persists a new table's metadata and spins up its actor.
func (r *Registry) CreateTable(ctx context.Context, p NewTableParams) (*Table, error) {
	cfg := engine.Config{
		MaxSeats:      p.MaxSeats,
		SmallBlind:    p.SmallBlind,
		BigBlind:      p.BigBlind,
		GameKind:      p.GameKind,
		BombPotEveryN: p.BombPotEveryN,
		BombPotAmount: p.BombPotAmount,
	}
	if err := engine.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.nextID++
	tableID := fmt.Sprintf("table_%d", r.nextID)
	r.mu.Unlock()

	meta := store.TableMeta{
		ID:            tableID,
		ClubID:        p.ClubID,
		CreatorID:     p.CreatorID,
		MaxSeats:      p.MaxSeats,
		SmallBlind:    p.SmallBlind,
		BigBlind:      p.BigBlind,
		GameKind:      storeGameKind(p.GameKind),
		BombPotEveryN: p.BombPotEveryN,
		BombPotAmount: p.BombPotAmount,
		Status:        store.StatusActive,
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.db.CreateTableMeta(ctx, meta); err != nil {
		return nil, err
	}

	eng := engine.NewTable(cfg)
	t := New(tableID, p.ClubID, p.Name, eng, r.db, r.broadcastFor(tableID))

	r.mu.Lock()
	r.tables[tableID] = t
	r.mu.Unlock()

	return t, nil
}

// CloseTable settles every seated player's stack back to their wallet,
// writes a closing TableReport with one ReportEntry per settled session,
// marks the table Closed, and stops its actor — spec §4.4's owner-only
// close command and §4.5's create_report/append_entries.
func (r *Registry) CloseTable(ctx context.Context, tableID string) (int64, error) {
	t, err := r.GetTable(ctx, tableID)
	if err != nil {
		return 0, err
	}

	closedSessions, err := t.Close()
	if err != nil {
		return 0, err
	}

	reportID, err := r.db.CreateReport(ctx, tableID, t.ClubID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if len(closedSessions) > 0 {
		entries := make([]store.ReportEntry, len(closedSessions))
		for i, s := range closedSessions {
			var cashOut int64
			if s.CashOut != nil {
				cashOut = *s.CashOut
			}
			var profitLoss int64
			if s.ProfitLoss != nil {
				profitLoss = *s.ProfitLoss
			}
			entries[i] = store.ReportEntry{UserID: s.UserID, BuyIn: s.BuyIn, CashOut: cashOut, ProfitLoss: profitLoss}
		}
		if err := r.db.AppendEntries(ctx, reportID, entries); err != nil {
			return reportID, err
		}
	}

	if err := r.db.UpdateTableStatus(ctx, tableID, store.StatusClosed); err != nil {
		return reportID, err
	}

	r.mu.Lock()
	delete(r.tables, tableID)
	r.mu.Unlock()
	t.Stop()

	return reportID, nil
}

// GetTable returns a live table actor, hydrating it from persisted
// metadata and seated stacks if this process hasn't seen it yet — the
// recovery path the teacher's QuickStart resume branch covers by keeping
// tables in memory for the whole process lifetime; here a table can also
// be rebuilt after a restart since its source of truth is the store.
func (r *Registry) GetTable(ctx context.Context, tableID string) (*Table, error) {
	r.mu.RLock()
	t, ok := r.tables[tableID]
	r.mu.RUnlock()
	if ok && !t.IsClosed() {
		return t, nil
	}

	meta, err := r.db.LoadTableMeta(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if meta.Status == store.StatusClosed {
		return nil, apperr.New(apperr.NotFound, "table closed")
	}
	if meta.Expired(time.Now()) {
		_ = r.db.UpdateTableStatus(ctx, tableID, store.StatusClosed)
		return nil, apperr.New(apperr.NotFound, "table expired")
	}

	return r.hydrate(ctx, meta)
}

func (r *Registry) hydrate(ctx context.Context, meta store.TableMeta) (*Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.tables[meta.ID]; ok && !t.IsClosed() {
		return t, nil
	}

	cfg := engine.Config{
		MaxSeats:      meta.MaxSeats,
		SmallBlind:    meta.SmallBlind,
		BigBlind:      meta.BigBlind,
		GameKind:      engineGameKind(meta.GameKind),
		BombPotEveryN: meta.BombPotEveryN,
		BombPotAmount: meta.BombPotAmount,
	}
	eng := engine.NewTable(cfg)

	stacks, err := r.db.ListStacks(ctx, meta.ID)
	if err != nil {
		return nil, err
	}
	for _, s := range stacks {
		if _, err := eng.AddPlayer(s.Name, s.Stack, s.UserID, s.Avatar, s.Seat); err != nil {
			log.Printf("[registry] rehydrate: reseating %s at table %s failed (%v), falling back to auto-seat", s.UserID, meta.ID, err)
			if _, err := eng.AddPlayer(s.Name, s.Stack, s.UserID, s.Avatar, -1); err != nil {
				log.Printf("[registry] rehydrate: auto-seat also failed for %s at table %s: %v", s.UserID, meta.ID, err)
			}
		}
	}

	t := New(meta.ID, meta.ClubID, meta.ID, eng, r.db, r.broadcastFor(meta.ID))
	r.tables[meta.ID] = t
	log.Printf("[registry] rehydrated table %s with %d seated stacks", meta.ID, len(stacks))
	return t, nil
}

// ListTables returns the ids of every table currently live in this process.
func (r *Registry) ListTables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.tables))
	for id := range r.tables {
		ids = append(ids, id)
	}
	return ids
}

// OnlineCount sums unique-viewer presence across every live table.
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	tables := make([]*Table, 0, len(r.tables))
	for _, t := range r.tables {
		tables = append(tables, t)
	}
	r.mu.RUnlock()

	total := 0
	for _, t := range tables {
		total += t.OnlineCount("")
	}
	return total
}

func (r *Registry) broadcastFor(tableID string) func(channel string, frame []byte) {
	return func(channel string, frame []byte) {
		r.broadcastFn(tableID, channel, frame)
	}
}

func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(cleanupSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.sweepIdle()
		case <-r.done:
			return
		}
	}
}

// sweepIdle removes and stops tables that have sat empty past idleTableTTL,
// mirroring the teacher's CleanupIdleTables.
func (r *Registry) sweepIdle() int {
	r.mu.Lock()
	idle := make([]*Table, 0)
	for id, t := range r.tables {
		if t.IsClosed() || t.IsIdleFor(idleTableTTL) {
			delete(r.tables, id)
			idle = append(idle, t)
		}
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, t := range idle {
		t.Stop()
		if err := r.db.UpdateTableStatus(ctx, t.ID, store.StatusClosed); err != nil {
			log.Printf("[registry] marking idle table %s closed failed: %v", t.ID, err)
		}
		log.Printf("[registry] removed idle/closed table %s", t.ID)
	}
	return len(idle)
}

// Stop shuts down the registry's housekeeping loop and every live table.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)

		r.mu.Lock()
		tables := make([]*Table, 0, len(r.tables))
		for _, t := range r.tables {
			tables = append(tables, t)
		}
		r.tables = make(map[string]*Table)
		r.mu.Unlock()

		for _, t := range tables {
			t.Stop()
		}
	})
}

func storeGameKind(k engine.GameKind) store.GameKind {
	if k == engine.PLO {
		return store.GameOmaha
	}
	return store.GameHoldem
}

func engineGameKind(k store.GameKind) engine.GameKind {
	if k == store.GameOmaha {
		return engine.PLO
	}
	return engine.NLH
}
