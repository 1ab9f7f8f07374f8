package gateway

import (
	"net/http"
	"sync"

	"holdem-lite/internal/identity"
	"holdem-lite/internal/session"
	"holdem-lite/internal/store"
)

// Gateway wires the identity, membership, session registry, and
// persistence collaborators behind the HTTP + websocket edge protocol. It
// also owns the process-wide connection map (channel id -> connection)
// that the session registry's broadcast callback delivers through,
// mirroring the teacher's Gateway.connections/userConns maps.
type Gateway struct {
	accounts   *identity.Manager
	membership *identity.Membership
	registry   *session.Registry
	db         store.Store

	mu    sync.RWMutex
	conns map[string]*connection
}

// New constructs a Gateway and the table registry it drives. accounts
// resolves bearer tokens to user ids; membership authorizes table
// commands by club role; db is the persistence adapter every table actor
// rehydrates from and persists stacks/sessions/history to.
func New(accounts *identity.Manager, membership *identity.Membership, db store.Store) *Gateway {
	g := &Gateway{accounts: accounts, membership: membership, db: db, conns: make(map[string]*connection)}
	g.registry = session.NewRegistry(db, g.deliver)
	return g
}

// deliver routes one table's broadcast frame to the connection
// subscribed under channel, dropping it if that connection has since
// disconnected (best-effort per spec §4.3).
func (g *Gateway) deliver(tableID, channel string, frame []byte) {
	g.mu.RLock()
	c := g.conns[channel]
	g.mu.RUnlock()
	if c == nil {
		return
	}
	select {
	case c.send <- frame:
	default:
		// Slow consumer: drop rather than block the table actor.
	}
}

// Stop shuts down the table registry and every live table actor.
func (g *Gateway) Stop() {
	g.registry.Stop()
}

// RegisterRoutes wires every HTTP command handler and the websocket
// upgrade endpoint onto mux, mirroring the teacher's main.go route
// registration (auth routes + gateway.HandleWebSocket).
func (g *Gateway) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", g.handleRegister)
	mux.HandleFunc("POST /api/auth/login", g.handleLogin)

	mux.HandleFunc("POST /api/tables", g.handleCreateTable)
	mux.HandleFunc("POST /api/tables/{id}/close", g.handleCloseTable)
	mux.HandleFunc("POST /api/tables/{id}/sit", g.handleSit)
	mux.HandleFunc("POST /api/tables/{id}/change-seat", g.handleChangeSeat)
	mux.HandleFunc("POST /api/tables/{id}/leave", g.handleLeave)
	mux.HandleFunc("POST /api/tables/{id}/sit-out", g.handleSitOut)
	mux.HandleFunc("POST /api/tables/{id}/return", g.handleReturn)
	mux.HandleFunc("POST /api/tables/{id}/start-hand", g.handleStartHand)
	mux.HandleFunc("POST /api/tables/{id}/deal-flop", g.handleDealFlop)
	mux.HandleFunc("POST /api/tables/{id}/deal-turn", g.handleDealTurn)
	mux.HandleFunc("POST /api/tables/{id}/deal-river", g.handleDealRiver)
	mux.HandleFunc("POST /api/tables/{id}/showdown", g.handleShowdown)
	mux.HandleFunc("POST /api/tables/{id}/act", g.handleAct)
	mux.HandleFunc("POST /api/tables/{id}/runouts/request", g.handleRequestRunouts)
	mux.HandleFunc("POST /api/tables/{id}/runouts/respond", g.handleRespondRunouts)
	mux.HandleFunc("GET /api/online-count", g.handleOnlineCount)

	mux.HandleFunc("/ws", g.handleWebSocket)
}

// authenticate resolves the bearer token on r, if any. An empty or
// invalid token resolves to ("", false) rather than an HTTP error —
// callers that require authentication check ok themselves; §4.4 only
// forbids unauthenticated *mutating* commands, not channel subscription.
func (g *Gateway) authenticate(r *http.Request) (userID string, ok bool) {
	token := bearerToken(r.Header.Get("Authorization"))
	return g.accounts.ResolveToken(token)
}
