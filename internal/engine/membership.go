package engine

import (
	"errors"

	"squadup/backend/internal/directory"
	"squadup/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate locks the selected rows for the rest of the transaction.
// Concurrent writers against the same aggregate serialize on this lock,
// which is what makes the capacity re-checks race-free. SQLite has a
// single writer and rejects FOR UPDATE syntax, so the clause is skipped
// there.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func lockParty(tx *gorm.DB, id uint) (*models.Party, error) {
	var party models.Party
	if err := forUpdate(tx).First(&party, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPartyNotFound
		}
		return nil, err
	}
	return &party, nil
}

func lockLobby(tx *gorm.DB, id uint) (*models.Lobby, error) {
	var lobby models.Lobby
	if err := forUpdate(tx).First(&lobby, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidLobby
		}
		return nil, err
	}
	return &lobby, nil
}

// partyMembers returns the party's member set in succession order,
// earliest joined first.
func partyMembers(tx *gorm.DB, partyID uint) ([]models.User, error) {
	var members []models.User
	err := tx.Where("party_id = ?", partyID).
		Order("party_joined_seq asc, id asc").
		Find(&members).Error
	return members, err
}

func partyMemberCount(tx *gorm.DB, partyID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.User{}).Where("party_id = ?", partyID).Count(&n).Error
	return n, err
}

func lobbyMemberCount(tx *gorm.DB, lobbyID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.User{}).Where("current_lobby_id = ?", lobbyID).Count(&n).Error
	return n, err
}

func loadUser(tx *gorm.DB, id uint) (*models.User, error) {
	user, err := directory.GetUser(tx, id)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, ErrNotFound
	}
	return user, err
}

// leavePartyTx removes user from their party, transferring leadership to
// the earliest-joined remaining member, or disbanding the party when the
// last member leaves. It must run inside the caller's transaction; the
// returned events are published only after that transaction commits.
func leavePartyTx(tx *gorm.DB, user *models.User) ([]outbound, error) {
	if user.PartyID == nil {
		return nil, ErrNotInParty
	}
	partyID := *user.PartyID

	party, err := lockParty(tx, partyID)
	if err != nil {
		return nil, err
	}
	members, err := partyMembers(tx, partyID)
	if err != nil {
		return nil, err
	}

	if err := directory.SetPartyRef(tx, user.ID, user.PartyID, nil); err != nil {
		if errors.Is(err, directory.ErrConflict) {
			// Ref changed since we loaded the user: they already left.
			return nil, ErrNotInParty
		}
		return nil, err
	}

	var remaining []models.User
	for _, m := range members {
		if m.ID != user.ID {
			remaining = append(remaining, m)
		}
	}

	if len(remaining) == 0 {
		if err := tx.Where("party_id = ?", partyID).Delete(&models.PartyInvite{}).Error; err != nil {
			return nil, err
		}
		if err := tx.Delete(party).Error; err != nil {
			return nil, err
		}
		return []outbound{{PartyTopic(partyID), Event{Type: EventDisbanded, AggregateID: partyID}}}, nil
	}

	if party.LeaderID == user.ID {
		// remaining is still in succession order.
		if err := tx.Model(party).Update("leader_id", remaining[0].ID).Error; err != nil {
			return nil, err
		}
	}
	return []outbound{{PartyTopic(partyID), Event{Type: EventMemberLeft, AggregateID: partyID, UserID: user.ID}}}, nil
}

// leaveLobbyTx removes user from their lobby, migrating the host role to
// the lowest-id remaining member (hostless lobbies have no host to
// migrate) and deleting the lobby when it empties.
func leaveLobbyTx(tx *gorm.DB, user *models.User) ([]outbound, error) {
	if user.CurrentLobbyID == nil {
		return nil, ErrNotInLobby
	}
	lobbyID := *user.CurrentLobbyID

	lobby, err := lockLobby(tx, lobbyID)
	if err != nil {
		return nil, err
	}

	if err := directory.SetLobbyRef(tx, user.ID, user.CurrentLobbyID, nil); err != nil {
		if errors.Is(err, directory.ErrConflict) {
			return nil, ErrNotInLobby
		}
		return nil, err
	}

	count, err := lobbyMemberCount(tx, lobbyID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		if err := tx.Where("lobby_id = ?", lobbyID).Delete(&models.Message{}).Error; err != nil {
			return nil, err
		}
		if err := tx.Delete(lobby).Error; err != nil {
			return nil, err
		}
		return []outbound{{LobbyTopic(lobbyID), Event{Type: EventDisbanded, AggregateID: lobbyID}}}, nil
	}

	if lobby.HostID != nil && *lobby.HostID == user.ID {
		var nextHost models.User
		if err := tx.Where("current_lobby_id = ?", lobbyID).Order("id asc").First(&nextHost).Error; err != nil {
			return nil, err
		}
		if err := tx.Model(lobby).Update("host_id", nextHost.ID).Error; err != nil {
			return nil, err
		}
	}
	return []outbound{{LobbyTopic(lobbyID), Event{Type: EventMemberLeft, AggregateID: lobbyID, UserID: user.ID}}}, nil
}
