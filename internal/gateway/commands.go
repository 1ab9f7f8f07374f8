package gateway

import (
	"net/http"

	"holdem-lite/internal/apperr"
	"holdem-lite/internal/engine"
	"holdem-lite/internal/session"
)

type createTableRequest struct {
	ClubID        string `json:"club_id"`
	Name          string `json:"name"`
	MaxSeats      int    `json:"max_seats"`
	SmallBlind    int64  `json:"small_blind"`
	BigBlind      int64  `json:"big_blind"`
	GameKind      string `json:"game_kind"` // "NLH" | "PLO"
	BombPotEveryN int    `json:"bomb_pot_every_n,omitempty"`
	BombPotAmount int64  `json:"bomb_pot_amount,omitempty"`
}

type createTableResponse struct {
	TableID string `json:"table_id"`
}

func (g *Gateway) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}

	var req createTableRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !g.membership.IsOwner(req.ClubID, userID) {
		writeAppErr(w, apperr.New(apperr.Forbidden, "only the club owner may create a table"))
		return
	}

	kind := engine.NLH
	if req.GameKind == "PLO" {
		kind = engine.PLO
	}

	t, err := g.registry.CreateTable(r.Context(), session.NewTableParams{
		ClubID:        req.ClubID,
		CreatorID:     userID,
		Name:          req.Name,
		MaxSeats:      req.MaxSeats,
		SmallBlind:    req.SmallBlind,
		BigBlind:      req.BigBlind,
		GameKind:      kind,
		BombPotEveryN: req.BombPotEveryN,
		BombPotAmount: req.BombPotAmount,
	})
	if err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, createTableResponse{TableID: t.ID})
}

// authorizedTable resolves the table and checks that userID is an
// approved member (or owner) of its club, per spec §4.4. Writes the
// HTTP response itself on any failure and returns ok=false.
func (g *Gateway) authorizedTable(w http.ResponseWriter, r *http.Request, userID string) (*session.Table, bool) {
	tableID := r.PathValue("id")
	t, err := g.registry.GetTable(r.Context(), tableID)
	if err != nil {
		writeAppErr(w, err)
		return nil, false
	}
	if !g.membership.IsApprovedMember(t.ClubID, userID) {
		writeAppErr(w, apperr.New(apperr.Forbidden, "not an approved club member"))
		return nil, false
	}
	return t, true
}

// authorizedOwnerTable resolves the table and checks that userID owns its
// club, for the owner-only commands spec §4.4 names (create table, close
// table, ...).
func (g *Gateway) authorizedOwnerTable(w http.ResponseWriter, r *http.Request, userID string) (*session.Table, bool) {
	tableID := r.PathValue("id")
	t, err := g.registry.GetTable(r.Context(), tableID)
	if err != nil {
		writeAppErr(w, err)
		return nil, false
	}
	if !g.membership.IsOwner(t.ClubID, userID) {
		writeAppErr(w, apperr.New(apperr.Forbidden, "only the club owner may do this"))
		return nil, false
	}
	return t, true
}

func (g *Gateway) requireAuth(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := g.authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing or invalid token")
		return "", false
	}
	return userID, true
}

// submitAndReply submits cmd, and on success writes the resulting
// viewer-masked TableState (spec §6: mutating calls return the updated
// TableState or a categorized error).
func submitAndReply(w http.ResponseWriter, t *session.Table, cmd session.Command, viewerUserID string) {
	if err := t.Submit(cmd); err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t.StateFor(viewerUserID))
}

type sitRequest struct {
	Seat   int    `json:"seat"`
	BuyIn  int64  `json:"buy_in"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

func (g *Gateway) handleSit(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireAuth(w, r)
	if !ok {
		return
	}
	t, ok := g.authorizedTable(w, r, userID)
	if !ok {
		return
	}

	var req sitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	submitAndReply(w, t, session.Command{
		Kind: session.CmdSit, UserID: userID,
		Seat: req.Seat, BuyIn: req.BuyIn, Name: req.Name, Avatar: req.Avatar,
	}, userID)
}

type changeSeatRequest struct {
	Seat int `json:"seat"`
}

func (g *Gateway) handleChangeSeat(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireAuth(w, r)
	if !ok {
		return
	}
	t, ok := g.authorizedTable(w, r, userID)
	if !ok {
		return
	}

	var req changeSeatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	submitAndReply(w, t, session.Command{Kind: session.CmdChangeSeat, UserID: userID, Seat: req.Seat}, userID)
}

func (g *Gateway) handleLeave(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireAuth(w, r)
	if !ok {
		return
	}
	t, ok := g.authorizedTable(w, r, userID)
	if !ok {
		return
	}
	submitAndReply(w, t, session.Command{Kind: session.CmdLeave, UserID: userID}, userID)
}

func (g *Gateway) handleSitOut(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireAuth(w, r)
	if !ok {
		return
	}
	t, ok := g.authorizedTable(w, r, userID)
	if !ok {
		return
	}
	submitAndReply(w, t, session.Command{Kind: session.CmdSitOut, UserID: userID}, userID)
}

func (g *Gateway) handleReturn(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireAuth(w, r)
	if !ok {
		return
	}
	t, ok := g.authorizedTable(w, r, userID)
	if !ok {
		return
	}
	submitAndReply(w, t, session.Command{Kind: session.CmdReturn, UserID: userID}, userID)
}

func (g *Gateway) handleStartHand(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireAuth(w, r)
	if !ok {
		return
	}
	t, ok := g.authorizedTable(w, r, userID)
	if !ok {
		return
	}
	submitAndReply(w, t, session.Command{Kind: session.CmdStartHand, UserID: userID}, userID)
}

func (g *Gateway) handleDealFlop(w http.ResponseWriter, r *http.Request) {
	g.handleDealStreet(w, r, session.CmdDealFlop)
}

func (g *Gateway) handleDealTurn(w http.ResponseWriter, r *http.Request) {
	g.handleDealStreet(w, r, session.CmdDealTurn)
}

func (g *Gateway) handleDealRiver(w http.ResponseWriter, r *http.Request) {
	g.handleDealStreet(w, r, session.CmdDealRiver)
}

func (g *Gateway) handleDealStreet(w http.ResponseWriter, r *http.Request, kind session.CommandKind) {
	userID, ok := g.requireAuth(w, r)
	if !ok {
		return
	}
	t, ok := g.authorizedTable(w, r, userID)
	if !ok {
		return
	}
	submitAndReply(w, t, session.Command{Kind: kind, UserID: userID}, userID)
}

func (g *Gateway) handleShowdown(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireAuth(w, r)
	if !ok {
		return
	}
	t, ok := g.authorizedTable(w, r, userID)
	if !ok {
		return
	}
	submitAndReply(w, t, session.Command{Kind: session.CmdShowdown, UserID: userID}, userID)
}

type actRequest struct {
	Action string `json:"action"` // "fold" | "check" | "call" | "raise_to"
	Amount int64  `json:"amount,omitempty"`
}

func (g *Gateway) handleAct(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireAuth(w, r)
	if !ok {
		return
	}
	t, ok := g.authorizedTable(w, r, userID)
	if !ok {
		return
	}

	var req actRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, ok := parseActionKind(req.Action)
	if !ok {
		writeAppErr(w, apperr.New(apperr.InvalidArgument, "unknown action"))
		return
	}

	submitAndReply(w, t, session.Command{
		Kind: session.CmdAct, UserID: userID, ActionKind: kind, Amount: req.Amount,
	}, userID)
}

func parseActionKind(s string) (engine.ActionKind, bool) {
	switch s {
	case "fold":
		return engine.Fold, true
	case "check":
		return engine.Check, true
	case "call":
		return engine.Call, true
	case "raise_to":
		return engine.RaiseTo, true
	default:
		return 0, false
	}
}

type requestRunoutsRequest struct {
	Count int `json:"count"`
}

func (g *Gateway) handleRequestRunouts(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireAuth(w, r)
	if !ok {
		return
	}
	t, ok := g.authorizedTable(w, r, userID)
	if !ok {
		return
	}

	var req requestRunoutsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	submitAndReply(w, t, session.Command{Kind: session.CmdRequestRunouts, UserID: userID, RunoutCount: req.Count}, userID)
}

type respondRunoutsRequest struct {
	Accept bool `json:"accept"`
}

func (g *Gateway) handleRespondRunouts(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireAuth(w, r)
	if !ok {
		return
	}
	t, ok := g.authorizedTable(w, r, userID)
	if !ok {
		return
	}

	var req respondRunoutsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	submitAndReply(w, t, session.Command{Kind: session.CmdRespondRunouts, UserID: userID, RunoutAccept: req.Accept}, userID)
}

type onlineCountResponse struct {
	N int `json:"n"`
}

func (g *Gateway) handleOnlineCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, onlineCountResponse{N: g.registry.OnlineCount()})
}

type closeTableResponse struct {
	ReportID int64 `json:"report_id"`
}

// handleCloseTable settles every seated player's stack back to their
// wallet and writes a closing report (spec §4.5 create_report/append_entries).
func (g *Gateway) handleCloseTable(w http.ResponseWriter, r *http.Request) {
	userID, ok := g.requireAuth(w, r)
	if !ok {
		return
	}
	if _, ok := g.authorizedOwnerTable(w, r, userID); !ok {
		return
	}

	reportID, err := g.registry.CloseTable(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, closeTableResponse{ReportID: reportID})
}
