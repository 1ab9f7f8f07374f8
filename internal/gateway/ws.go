package gateway

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"holdem-lite/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

var nextConnID uint64

// clientMessage is the one client→server frame shape spec §6 allows:
// a chat message, or any other payload (type left unrecognized) which
// just triggers a state re-broadcast.
type clientMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// connection is one websocket subscriber. Grounded on the teacher's
// gateway.Connection (read/write pumps, buffered send channel, ping
// ticker), reworked from a protobuf binary frame to JSON text frames and
// bound to a session.Table subscription channel instead of a lobby
// connection map.
type connection struct {
	id       string
	userID   string // "" for an unauthenticated spectator
	username string
	tableID  string
	table    *session.Table

	conn *websocket.Conn
	send chan []byte
}

func (g *Gateway) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	tableID := r.URL.Query().Get("table")
	if tableID == "" {
		http.Error(w, "missing table query parameter", http.StatusBadRequest)
		return
	}
	t, err := g.registry.GetTable(r.Context(), tableID)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	userID, _ := g.accounts.ResolveToken(r.URL.Query().Get("token"))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] websocket upgrade failed: %v", err)
		return
	}

	username, _ := g.accounts.Username(userID)

	id := fmt.Sprintf("conn_%d", atomic.AddUint64(&nextConnID, 1))
	c := &connection{
		id:       id,
		userID:   userID,
		username: username,
		tableID:  tableID,
		table:    t,
		conn:     conn,
		send:     make(chan []byte, 256),
	}

	g.mu.Lock()
	g.conns[c.id] = c
	g.mu.Unlock()

	if err := t.Submit(session.Command{Kind: session.CmdSubscribe, Channel: c.id, UserID: userID}); err != nil {
		log.Printf("[gateway] subscribe failed for %s: %v", c.id, err)
	}

	go c.writePump()
	go g.readPump(c)
}

func (g *Gateway) readPump(c *connection) {
	defer func() {
		_ = c.table.Submit(session.Command{Kind: session.CmdUnsubscribe, Channel: c.id})
		g.mu.Lock()
		delete(g.conns, c.id)
		g.mu.Unlock()
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[gateway] read error on %s: %v", c.id, err)
			}
			return
		}
		c.handleMessage(data)
	}
}

func (c *connection) handleMessage(data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		// Malformed frame: treat as a rebroadcast trigger rather than
		// dropping the connection, same leniency spec §4.4 gives any
		// unrecognized payload.
		_ = c.table.Submit(session.Command{Kind: session.CmdRebroadcast, Channel: c.id, UserID: c.userID})
		return
	}

	switch msg.Type {
	case "chat_message":
		_ = c.table.Submit(session.Command{
			Kind: session.CmdChatMessage, UserID: c.userID, Name: c.username, ChatText: msg.Message,
		})
	default:
		_ = c.table.Submit(session.Command{Kind: session.CmdRebroadcast, Channel: c.id, UserID: c.userID})
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
