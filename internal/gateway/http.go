// Package gateway is the edge protocol: HTTP command handlers that
// translate external requests into session.Table commands under
// authorization checks, plus a websocket channel for masked state and
// chat fan-out. Grounded on moonhole-HoldemIJ's
// apps/server/internal/gateway/gateway.go (connection lifecycle,
// read/write pumps) and apps/server/internal/auth/http.go (JSON request
// handler conventions), reworked from a protobuf envelope to JSON (see
// DESIGN.md: no generated gen/pb package exists in the retrieval pack).
package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"holdem-lite/internal/apperr"
)

type errorResponse struct {
	Error string `json:"error"`
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeAppErr maps an apperr.Kind to the HTTP status spec §7 implies.
func writeAppErr(w http.ResponseWriter, err error) {
	appErr, ok := err.(*apperr.Error)
	if !ok {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusInternalServerError
	switch appErr.Kind {
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Forbidden:
		status = http.StatusForbidden
	case apperr.Conflict:
		status = http.StatusConflict
	case apperr.InvalidArgument:
		status = http.StatusBadRequest
	case apperr.IllegalState:
		status = http.StatusUnprocessableEntity
	}
	writeError(w, status, appErr.Msg)
}

func bearerToken(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
}
