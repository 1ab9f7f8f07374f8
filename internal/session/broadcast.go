package session

import (
	"encoding/json"
	"log"
	"time"

	"holdem-lite/internal/store"
)

func netHandHistoryRow(userID, tableName string, net int64, handNumber int, board []string) store.HandHistory {
	result := store.ResultEven
	switch {
	case net > 0:
		result = store.ResultWin
	case net < 0:
		result = store.ResultLoss
	}
	summary := handSummaryJSON(handNumber, board)
	return store.HandHistory{
		UserID:     userID,
		TableName:  tableName,
		Result:     result,
		NetChange:  net,
		Summary:    summary,
		RecordedAt: time.Now().UTC(),
	}
}

func handSummaryJSON(handNumber int, board []string) string {
	data, err := json.Marshal(map[string]any{"hand_number": handNumber, "board": board})
	if err != nil {
		return "{}"
	}
	return string(data)
}

type chatHistoryFrame struct {
	Type     string        `json:"type"`
	Messages []ChatMessage `json:"messages"`
}

type chatMessageFrame struct {
	Type string `json:"type"`
	ChatMessage
}

func (t *Table) sendChatHistory(channel string) {
	t.mu.Lock()
	backlog := append([]ChatMessage{}, t.chat...)
	t.mu.Unlock()

	frame := t.marshalFrame(chatHistoryFrame{Type: "chat_history", Messages: backlog})
	if frame != nil {
		t.broadcast(channel, frame)
	}
}

func (t *Table) broadcastChatMessage(msg ChatMessage) {
	frame := t.marshalFrame(chatMessageFrame{Type: "chat_message", ChatMessage: msg})
	if frame == nil {
		return
	}
	t.mu.Lock()
	channels := make([]string, 0, len(t.subscribersByChannel))
	for ch := range t.subscribersByChannel {
		channels = append(channels, ch)
	}
	t.mu.Unlock()
	for _, ch := range channels {
		t.broadcast(ch, frame)
	}
}

// broadcastTo sends a single TableState frame to one channel, masked for
// viewerUserID. Used on initial subscribe so a new viewer doesn't wait
// for the next table-wide mutation.
func (t *Table) broadcastTo(channel, viewerUserID string) {
	t.engine.Lock()
	frame := t.buildTableStateLocked(viewerUserID)
	t.engine.Unlock()

	data := t.marshalFrame(frame)
	if data == nil {
		return
	}
	t.broadcast(channel, data)
}

// dispatchAll computes a masked TableState frame per subscribed channel
// and sends it best-effort; a send that errors just drops that
// subscription's delivery for this cycle (spec §4.3).
func (t *Table) dispatchAll() {
	t.mu.Lock()
	subs := make(map[string]string, len(t.subscribersByChannel))
	for ch, uid := range t.subscribersByChannel {
		subs[ch] = uid
	}
	t.mu.Unlock()
	if len(subs) == 0 {
		return
	}

	t.engine.Lock()
	framesByViewer := map[string][]byte{}
	for _, viewerUserID := range subs {
		if _, ok := framesByViewer[viewerUserID]; ok {
			continue
		}
		frame := t.buildTableStateLocked(viewerUserID)
		framesByViewer[viewerUserID] = t.marshalFrame(frame)
	}
	t.engine.Unlock()

	for ch, viewerUserID := range subs {
		data := framesByViewer[viewerUserID]
		if data == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[session %s] broadcast to channel %s panicked: %v", t.ID, ch, r)
				}
			}()
			t.broadcast(ch, data)
		}()
	}
}

// persistStacks upserts TableStack rows from the current engine state and
// deletes rows for users no longer seated, per spec §4.3.
func (t *Table) persistStacks() {
	ctx, cancel := t.ctx()
	defer cancel()

	t.engine.Lock()
	var rows []store.TableStack
	seatedUsers := map[string]bool{}
	for _, s := range t.engine.Seats() {
		if s == nil || s.UserID == "" {
			continue
		}
		seatedUsers[s.UserID] = true
		rows = append(rows, store.TableStack{
			TableID:   t.ID,
			UserID:    s.UserID,
			Seat:      s.Index,
			Stack:     s.Stack,
			Name:      s.Name,
			Avatar:    s.Avatar,
			UpdatedAt: time.Now().UTC(),
		})
	}
	t.engine.Unlock()

	for _, row := range rows {
		if err := t.db.UpsertStack(ctx, row); err != nil {
			log.Printf("[session %s] upsert stack failed for %s: %v", t.ID, row.UserID, err)
		}
	}

	existing, err := t.db.ListStacks(ctx, t.ID)
	if err != nil {
		log.Printf("[session %s] list stacks failed: %v", t.ID, err)
		return
	}
	for _, row := range existing {
		if !seatedUsers[row.UserID] {
			if err := t.db.DeleteStack(ctx, t.ID, row.UserID); err != nil {
				log.Printf("[session %s] delete stale stack failed for %s: %v", t.ID, row.UserID, err)
			}
		}
	}
}
