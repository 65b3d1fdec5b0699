package handler

import (
	"errors"
	"net/http"

	"squadup/backend/internal/engine"

	"github.com/gin-gonic/gin"
)

var (
	partyMgr    *engine.PartyManager
	lobbyMgr    *engine.LobbyManager
	coordinator *engine.Coordinator
	broadcaster engine.Broadcaster
)

// Setup wires the engine components the handlers delegate to. Must be
// called once before any route is served.
func Setup(party *engine.PartyManager, lobby *engine.LobbyManager, co *engine.Coordinator, events engine.Broadcaster) {
	partyMgr = party
	lobbyMgr = lobby
	coordinator = co
	broadcaster = events
	if broadcaster == nil {
		broadcaster = engine.NopBroadcaster{}
	}
}

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error  string `json:"error" example:"party_full"`
	Reason string `json:"reason,omitempty"`
}

// respondEngineError translates a domain reason code into an HTTP
// status. Errors without a code are unexpected and become a 500.
func respondEngineError(c *gin.Context, err error) {
	code := engine.Code(err)
	if code == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	status := http.StatusConflict
	switch code {
	case "not_leader", "not_host", "not_admin", "invalid_password", "hook_rejected":
		status = http.StatusForbidden
	case "party_not_found", "invalid_lobby", "not_found", "not_in_party", "not_in_lobby", "not_member":
		status = http.StatusNotFound
	case "too_small", "lobby_too_small_for_party", "cannot_kick_self", "cannot_promote_self":
		status = http.StatusBadRequest
	case "password_required":
		status = http.StatusUnauthorized
	}

	body := ErrorResponse{Error: code}
	var rejected *engine.HookRejectedError
	if errors.As(err, &rejected) {
		body.Reason = rejected.Reason
	}
	c.JSON(status, body)
}
