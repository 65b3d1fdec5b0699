package engine

import "errors"

// Error is a domain outcome reported to the caller as a stable reason
// code. These are expected results of an operation, never retried and
// never left behind as partial state.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// Authorization
	ErrNotLeader Error = "not_leader"
	ErrNotHost   Error = "not_host"
	ErrNotAdmin  Error = "not_admin"

	// State conflicts
	ErrAlreadyInParty Error = "already_in_party"
	ErrAlreadyMember  Error = "already_member"
	ErrPartyFull      Error = "party_full"
	ErrLobbyFull      Error = "full"
	ErrNotEnoughSpace Error = "not_enough_space"
	ErrMemberInLobby  Error = "member_in_lobby"
	ErrLocked         Error = "locked"

	// Not found
	ErrPartyNotFound Error = "party_not_found"
	ErrInvalidLobby  Error = "invalid_lobby"
	ErrNotFound      Error = "not_found"
	ErrNotInParty    Error = "not_in_party"
	ErrNotInLobby    Error = "not_in_lobby"
	ErrNotMember     Error = "not_member"

	// Input
	ErrTooSmall              Error = "too_small"
	ErrLobbyTooSmallForParty Error = "lobby_too_small_for_party"
	ErrCannotKickSelf        Error = "cannot_kick_self"
	ErrCannotPromoteSelf     Error = "cannot_promote_self"

	// Credentials
	ErrPasswordRequired Error = "password_required"
	ErrInvalidPassword  Error = "invalid_password"
)

// HookRejectedError reports a veto from the hook gateway. The wrapped
// reason comes from the installed plugin, not from this engine.
type HookRejectedError struct {
	Reason string
}

func (e *HookRejectedError) Error() string {
	if e.Reason == "" {
		return "hook_rejected"
	}
	return "hook_rejected: " + e.Reason
}

// Code extracts the stable reason code from a domain error, or "" when
// the error is not a domain outcome (storage failures and the like).
func Code(err error) string {
	var de Error
	if errors.As(err, &de) {
		return string(de)
	}
	var hr *HookRejectedError
	if errors.As(err, &hr) {
		return "hook_rejected"
	}
	return ""
}
