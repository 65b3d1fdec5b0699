package engine

import "squadup/backend/internal/models"

// HookContext carries the facts a plugin needs to decide on a join. It
// always includes at least "source", "acting_user_id", "user_id" and the
// target lobby's identifying fields.
type HookContext map[string]interface{}

// Join sources passed as the "source" context value.
const (
	SourcePublicJoin       = "public_join"
	SourceQuickJoin        = "quick_join"
	SourcePartyLobbyCreate = "party_lobby_create"
	SourcePartyLobbyJoin   = "party_lobby_join"
)

// HookDecision is the transient outcome of one gateway call, scoped to a
// single (user, operation, context) triple. It is never persisted.
type HookDecision struct {
	Allow  bool
	Reason string
}

// Allow returns a decision that lets the join proceed.
func Allow() HookDecision { return HookDecision{Allow: true} }

// Reject returns a veto carrying a plugin-supplied reason.
func Reject(reason string) HookDecision { return HookDecision{Reason: reason} }

// HookGateway is the pluggable veto point consulted before a user is
// admitted to a lobby. It is called synchronously inside the operation's
// transaction, before any write is finalized, so a rejection can still
// roll back the whole unit.
type HookGateway interface {
	BeforeGroupJoin(user models.User, lobby models.Lobby, hctx HookContext) HookDecision
}

// NopGateway is the default gateway when no plugin is installed: every
// join is allowed.
type NopGateway struct{}

func (NopGateway) BeforeGroupJoin(models.User, models.Lobby, HookContext) HookDecision {
	return Allow()
}

func joinContext(source string, actingUserID uint, user models.User, lobby models.Lobby) HookContext {
	return HookContext{
		"source":         source,
		"acting_user_id": actingUserID,
		"user_id":        user.ID,
		"lobby_id":       lobby.ID,
		"lobby_title":    lobby.Title,
		"lobby_metadata": lobby.Metadata,
	}
}
