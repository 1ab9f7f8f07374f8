package session

import (
	"strings"
	"time"

	"holdem-lite/internal/apperr"
	"holdem-lite/internal/engine"
	"holdem-lite/internal/store"
)

func (t *Table) handleSit(cmd Command) error {
	ctx, cancel := t.ctx()
	defer cancel()

	if _, err := t.db.FindOpenSession(ctx, t.ID, cmd.UserID); err == nil {
		return apperr.New(apperr.Conflict, "re-sitting requires no open session on this table")
	}

	balance, err := t.db.ReadWallet(ctx, cmd.UserID)
	if err != nil && err != store.ErrNotFound {
		return err
	}
	if cmd.BuyIn <= 0 || cmd.BuyIn > balance {
		return apperr.New(apperr.InvalidArgument, "invalid buy-in")
	}

	if _, err := t.engine.AddPlayer(cmd.Name, cmd.BuyIn, cmd.UserID, cmd.Avatar, cmd.Seat); err != nil {
		return err
	}
	if _, err := t.db.AdjustWallet(ctx, cmd.UserID, -cmd.BuyIn); err != nil {
		return err
	}
	if _, err := t.db.OpenSession(ctx, t.ID, cmd.UserID, cmd.BuyIn); err != nil {
		return err
	}

	t.runCycle()
	return nil
}

func (t *Table) handleChangeSeat(cmd Command) error {
	if _, err := t.engine.MoveToSeat(cmd.UserID, cmd.Seat); err != nil {
		return err
	}
	t.runCycle()
	return nil
}

func (t *Table) handleLeave(cmd Command) error {
	stack, seated := t.stackOf(cmd.UserID)
	if !seated {
		return apperr.New(apperr.NotFound, "not seated")
	}

	pending, err := t.engine.RequestLeave(cmd.UserID)
	if err != nil {
		return err
	}
	if !pending {
		if _, err := t.cashOut(cmd.UserID, stack); err != nil {
			return err
		}
	}
	t.runCycle()
	return nil
}

func (t *Table) stackOf(userID string) (stack int64, seated bool) {
	t.engine.Lock()
	defer t.engine.Unlock()
	for _, s := range t.engine.Seats() {
		if s != nil && s.UserID == userID {
			return s.Stack, true
		}
	}
	return 0, false
}

// cashOut settles a departing user's open session and credits their
// final table stack back to the wallet. Called after an immediate leave,
// a sat-out sweep, or a deferred leave flushed after hand finalization
// has cleared the seat from the engine, and by Close for players who are
// still seated (their seats are left in the engine). Returns the closed
// session (zero value, no error, if the user had no open session to
// settle — e.g. a spectator who never bought in).
func (t *Table) cashOut(userID string, stack int64) (store.TableSession, error) {
	ctx, cancel := t.ctx()
	defer cancel()

	if _, err := t.db.FindOpenSession(ctx, t.ID, userID); err != nil {
		return store.TableSession{}, nil
	}

	sess, err := t.db.CloseSession(ctx, t.ID, userID, stack)
	if err != nil {
		return store.TableSession{}, err
	}
	if _, err := t.db.AdjustWallet(ctx, userID, stack); err != nil {
		return store.TableSession{}, err
	}
	if err := t.db.DeleteStack(ctx, t.ID, userID); err != nil {
		return store.TableSession{}, err
	}
	return sess, nil
}

// Close settles every seated, user-backed player's open session (crediting
// their current stack to the wallet) and returns the closed sessions for
// the caller to fold into a closing report (spec §4.5 create_report /
// append_entries). It does not stop the actor or persist the table's
// Closed status — the registry does both after this returns.
func (t *Table) Close() ([]store.TableSession, error) {
	t.engine.Lock()
	seats := append([]*engine.Seat{}, t.engine.Seats()...)
	t.engine.Unlock()

	var closed []store.TableSession
	for _, s := range seats {
		if s == nil || s.UserID == "" {
			continue
		}
		sess, err := t.cashOut(s.UserID, s.Stack)
		if err != nil {
			return closed, err
		}
		if sess.ID != 0 {
			closed = append(closed, sess)
		}
	}
	return closed, nil
}

func (t *Table) handleSitOut(cmd Command) error {
	if err := t.engine.SitOut(cmd.UserID); err != nil {
		return err
	}
	t.runCycle()
	return nil
}

func (t *Table) handleReturn(cmd Command) error {
	if err := t.engine.ReturnToPlay(cmd.UserID); err != nil {
		return err
	}
	t.runCycle()
	return nil
}

func (t *Table) handleStartHand(cmd Command) error {
	if t.engine.EligibleCount() < 2 {
		return apperr.New(apperr.IllegalState, "need at least two eligible players")
	}
	if err := t.snapshotStartStacks(); err != nil {
		return err
	}
	if err := t.engine.StartNewHand(); err != nil {
		return err
	}
	t.runCycle()
	return nil
}

func (t *Table) snapshotStartStacks() error {
	t.engine.Lock()
	defer t.engine.Unlock()
	t.handStartStacks = map[int]int64{}
	for _, s := range t.engine.Seats() {
		if s != nil {
			t.handStartStacks[s.Index] = s.Stack
		}
	}
	return nil
}

func (t *Table) handleDealStreet(cmd Command, op func() error) error {
	if err := op(); err != nil {
		return err
	}
	t.runCycle()
	return nil
}

func (t *Table) handleShowdown(cmd Command) error {
	result, err := t.engine.Showdown()
	if err != nil {
		return err
	}
	t.finalizeHand(result)
	t.runCycle()
	return nil
}

func (t *Table) handleAct(cmd Command) error {
	playerID, ok := t.playerIDFor(cmd.UserID)
	if !ok {
		return apperr.New(apperr.NotFound, "not seated")
	}
	if err := t.engine.Act(playerID, cmd.ActionKind, cmd.Amount); err != nil {
		return err
	}
	t.runCycle()
	return nil
}

func (t *Table) handleRequestRunouts(cmd Command) error {
	playerID, ok := t.playerIDFor(cmd.UserID)
	if !ok {
		return apperr.New(apperr.NotFound, "not seated")
	}
	if err := t.engine.RequestRunouts(playerID, cmd.RunoutCount); err != nil {
		return err
	}
	t.runCycle()
	return nil
}

func (t *Table) handleRespondRunouts(cmd Command) error {
	playerID, ok := t.playerIDFor(cmd.UserID)
	if !ok {
		return apperr.New(apperr.NotFound, "not seated")
	}
	if err := t.engine.RespondRunouts(playerID, cmd.RunoutAccept); err != nil {
		return err
	}
	t.runCycle()
	return nil
}

func (t *Table) playerIDFor(userID string) (uint64, bool) {
	t.engine.Lock()
	defer t.engine.Unlock()
	return t.engine.PlayerIDForUser(userID)
}

func (t *Table) handleSubscribe(cmd Command) error {
	t.mu.Lock()
	t.subscribersByChannel[cmd.Channel] = cmd.UserID
	if cmd.UserID != "" {
		if t.subscribersByUser[cmd.UserID] == nil {
			t.subscribersByUser[cmd.UserID] = map[string]bool{}
		}
		t.subscribersByUser[cmd.UserID][cmd.Channel] = true
	}
	t.mu.Unlock()

	t.sendChatHistory(cmd.Channel)
	t.broadcastTo(cmd.Channel, cmd.UserID)
	return nil
}

func (t *Table) handleUnsubscribe(cmd Command) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	userID := t.subscribersByChannel[cmd.Channel]
	delete(t.subscribersByChannel, cmd.Channel)
	if userID != "" {
		delete(t.subscribersByUser[userID], cmd.Channel)
		if len(t.subscribersByUser[userID]) == 0 {
			delete(t.subscribersByUser, userID)
		}
	}
	return nil
}

func (t *Table) handleChatMessage(cmd Command) error {
	text := strings.TrimSpace(cmd.ChatText)
	if text == "" {
		return apperr.New(apperr.InvalidArgument, "empty chat message")
	}

	t.mu.Lock()
	t.nextChatID++
	msg := ChatMessage{ID: t.nextChatID, UserID: cmd.UserID, Username: cmd.Name, Message: text, Timestamp: time.Now().UTC()}
	t.chat = append(t.chat, msg)
	if len(t.chat) > chatRingLimit {
		t.chat = t.chat[len(t.chat)-chatRingLimit:]
	}
	t.mu.Unlock()

	t.broadcastChatMessage(msg)
	return nil
}

// OnlineCount returns the number of unique user ids currently present in
// the per-user subscriber map, plus requestingUserID if not already
// counted (spec §4.3 online presence).
func (t *Table) OnlineCount(requestingUserID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	seen := map[string]bool{}
	for uid := range t.subscribersByUser {
		seen[uid] = true
	}
	if requestingUserID != "" {
		seen[requestingUserID] = true
	}
	return len(seen)
}
