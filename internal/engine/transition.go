package engine

import (
	"errors"

	"squadup/backend/internal/directory"
	"squadup/backend/internal/models"

	"gorm.io/gorm"
)

// Coordinator performs the composite cross-aggregate transitions that
// move an entire party into a lobby as one atomic unit. Each invocation
// validates completely, then applies all writes inside one transaction;
// there is no observable intermediate state. Any precondition failure,
// hook veto or write error while applying rolls the whole unit back,
// leaving every member's back-references exactly as they were.
type Coordinator struct {
	db     *gorm.DB
	hooks  HookGateway
	events Broadcaster
}

func NewCoordinator(db *gorm.DB, hooks HookGateway, events Broadcaster) *Coordinator {
	if hooks == nil {
		hooks = NopGateway{}
	}
	return &Coordinator{db: db, hooks: hooks, events: events}
}

// partySnapshot loads the caller's party under its row lock and the
// member set in succession order, enforcing that the caller is the
// current leader. The lock pins the member set for the rest of the
// transaction.
func (co *Coordinator) partySnapshot(tx *gorm.DB, leaderID uint) (*models.Party, []models.User, error) {
	leader, err := loadUser(tx, leaderID)
	if err != nil {
		return nil, nil, err
	}
	if leader.PartyID == nil {
		return nil, nil, ErrNotLeader
	}
	party, err := lockParty(tx, *leader.PartyID)
	if err != nil {
		return nil, nil, err
	}
	if party.LeaderID != leaderID {
		return nil, nil, ErrNotLeader
	}
	members, err := partyMembers(tx, party.ID)
	if err != nil {
		return nil, nil, err
	}
	return party, members, nil
}

// moveMembers runs the per-member hook veto and then repoints every
// member's lobby back-reference at the target lobby. A veto or a
// conflicting write aborts the whole transaction; the caller's deferred
// rollback undoes any members already moved.
func (co *Coordinator) moveMembers(tx *gorm.DB, leaderID uint, members []models.User, lobby *models.Lobby, source string) ([]outbound, error) {
	for _, member := range members {
		decision := co.hooks.BeforeGroupJoin(member, *lobby, joinContext(source, leaderID, member, *lobby))
		if !decision.Allow {
			return nil, &HookRejectedError{Reason: decision.Reason}
		}
	}

	out := make([]outbound, 0, len(members))
	for _, member := range members {
		if err := directory.SetLobbyRef(tx, member.ID, nil, &lobby.ID); err != nil {
			if errors.Is(err, directory.ErrConflict) {
				return nil, ErrMemberInLobby
			}
			return nil, err
		}
		out = append(out, outbound{LobbyTopic(lobby.ID), Event{Type: EventMemberJoined, AggregateID: lobby.ID, UserID: member.ID}})
	}
	return out, nil
}

// CreateLobbyWithParty creates a new lobby and moves every member of the
// leader's party into it as one unit. The leader becomes host unless
// attrs.Hostless is set. The party itself is untouched; it keeps its
// leader and members, only lobby back-references change.
func (co *Coordinator) CreateLobbyWithParty(leaderID uint, attrs LobbyAttrs) (*models.Lobby, error) {
	size, err := normalizeLobbySize(attrs.MaxUsers)
	if err != nil {
		return nil, err
	}
	passwordHash, err := hashLobbyPassword(attrs.Password)
	if err != nil {
		return nil, err
	}

	var lobby models.Lobby
	var out []outbound
	err = co.db.Transaction(func(tx *gorm.DB) error {
		_, members, err := co.partySnapshot(tx, leaderID)
		if err != nil {
			return err
		}
		for _, member := range members {
			if member.CurrentLobbyID != nil {
				return ErrMemberInLobby
			}
		}
		if size < len(members) {
			return ErrLobbyTooSmallForParty
		}

		lobby = models.Lobby{
			Title:        attrs.Title,
			MaxUsers:     size,
			IsHidden:     attrs.IsHidden,
			IsLocked:     attrs.IsLocked,
			PasswordHash: passwordHash,
			Metadata:     attrs.Metadata,
		}
		if !attrs.Hostless {
			lobby.HostID = &leaderID
		}
		if err := tx.Create(&lobby).Error; err != nil {
			return err
		}

		out, err = co.moveMembers(tx, leaderID, members, &lobby, SourcePartyLobbyCreate)
		return err
	})
	if err != nil {
		return nil, err
	}

	out = append([]outbound{{LobbyTopic(lobby.ID), Event{Type: EventLobbyCreated, AggregateID: lobby.ID}}}, out...)
	publishAll(co.events, out)
	return &lobby, nil
}

// JoinLobbyWithParty moves every member of the leader's party into an
// existing lobby as one unit. The lock flag and password are checked
// once for the whole group; capacity must fit the entire party.
func (co *Coordinator) JoinLobbyWithParty(leaderID, lobbyID uint, password string) error {
	var out []outbound
	err := co.db.Transaction(func(tx *gorm.DB) error {
		// Lock order is always party before lobby, matching the other
		// cross-aggregate paths.
		_, members, err := co.partySnapshot(tx, leaderID)
		if err != nil {
			return err
		}
		lobby, err := lockLobby(tx, lobbyID)
		if err != nil {
			return err
		}

		if lobby.IsLocked {
			return ErrLocked
		}
		if err := checkLobbyPassword(lobby, password); err != nil {
			return err
		}
		for _, member := range members {
			if member.CurrentLobbyID != nil {
				return ErrMemberInLobby
			}
		}
		count, err := lobbyMemberCount(tx, lobbyID)
		if err != nil {
			return err
		}
		if count+int64(len(members)) > int64(lobby.MaxUsers) {
			return ErrNotEnoughSpace
		}

		out, err = co.moveMembers(tx, leaderID, members, lobby, SourcePartyLobbyJoin)
		return err
	})
	if err != nil {
		return err
	}
	publishAll(co.events, out)
	return nil
}

// DeleteAccount removes a user from their party and lobby through the
// regular leave paths, so leader succession, host migration and
// auto-disband all apply, then deletes the account record. Open invites
// and relations to the user go with it. Everything commits as one unit.
func (co *Coordinator) DeleteAccount(userID uint) error {
	var out []outbound
	err := co.db.Transaction(func(tx *gorm.DB) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}

		if user.PartyID != nil {
			events, err := leavePartyTx(tx, user)
			if err != nil {
				return err
			}
			out = append(out, events...)
		}
		if user.CurrentLobbyID != nil {
			events, err := leaveLobbyTx(tx, user)
			if err != nil {
				return err
			}
			out = append(out, events...)
		}

		if err := tx.Where("from_id = ? OR to_id = ?", userID, userID).Delete(&models.PartyInvite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("from_user_id = ? OR to_user_id = ?", userID, userID).Delete(&models.UserRelation{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		return err
	}
	publishAll(co.events, out)
	return nil
}
