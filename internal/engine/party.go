package engine

import (
	"errors"

	"squadup/backend/internal/directory"
	"squadup/backend/internal/models"

	"gorm.io/gorm"
)

// Upper bound on configurable party size.
const maxPartySize = 16

// PartyManager owns the lifecycle and membership of the Party aggregate.
// Every mutating operation runs in a single transaction; capacity and
// exclusivity are re-checked under the party row lock at write time, not
// just at request entry.
type PartyManager struct {
	db     *gorm.DB
	events Broadcaster
}

func NewPartyManager(db *gorm.DB, events Broadcaster) *PartyManager {
	return &PartyManager{db: db, events: events}
}

// PartyAttrs carries the caller-settable party fields. A zero MaxSize
// means "use the default".
type PartyAttrs struct {
	MaxSize int
}

func normalizePartySize(n int) (int, error) {
	switch {
	case n == 0:
		return models.DefaultPartyMaxSize, nil
	case n < 1:
		return 0, ErrTooSmall
	case n > maxPartySize:
		return maxPartySize, nil
	}
	return n, nil
}

// CreateParty creates a new party with the caller as sole member and
// leader. Fails with already_in_party when the caller has any party.
func (m *PartyManager) CreateParty(leaderID uint, attrs PartyAttrs) (*models.Party, error) {
	size, err := normalizePartySize(attrs.MaxSize)
	if err != nil {
		return nil, err
	}

	var party models.Party
	err = m.db.Transaction(func(tx *gorm.DB) error {
		user, err := loadUser(tx, leaderID)
		if err != nil {
			return err
		}
		if user.PartyID != nil {
			return ErrAlreadyInParty
		}

		party = models.Party{LeaderID: leaderID, MaxSize: size}
		if err := tx.Create(&party).Error; err != nil {
			return err
		}
		if err := directory.SetPartyRef(tx, leaderID, nil, &party.ID); err != nil {
			if errors.Is(err, directory.ErrConflict) {
				return ErrAlreadyInParty
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &party, nil
}

// JoinParty adds the user to an existing party. The member count is
// re-checked under the party row lock so two concurrent joiners cannot
// both take the last free slot.
func (m *PartyManager) JoinParty(userID, partyID uint) error {
	var out []outbound
	err := m.db.Transaction(func(tx *gorm.DB) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		if user.PartyID != nil {
			return ErrAlreadyInParty
		}

		party, err := lockParty(tx, partyID)
		if err != nil {
			return err
		}
		count, err := partyMemberCount(tx, partyID)
		if err != nil {
			return err
		}
		if count >= int64(party.MaxSize) {
			return ErrPartyFull
		}

		if err := directory.SetPartyRef(tx, userID, nil, &partyID); err != nil {
			if errors.Is(err, directory.ErrConflict) {
				return ErrAlreadyInParty
			}
			return err
		}
		out = append(out, outbound{PartyTopic(partyID), Event{Type: EventMemberJoined, AggregateID: partyID, UserID: userID}})
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(m.events, out)
	return nil
}

// LeaveParty removes the user from their party. A leaving leader hands
// leadership to the earliest-joined remaining member; the last member
// leaving disbands the party.
func (m *PartyManager) LeaveParty(userID uint) error {
	var out []outbound
	err := m.db.Transaction(func(tx *gorm.DB) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		out, err = leavePartyTx(tx, user)
		return err
	})
	if err != nil {
		return err
	}
	publishAll(m.events, out)
	return nil
}

// KickMember removes another member from the leader's party. The leader
// can never be the kick target, so kicking is never a path to
// disbandment or succession.
func (m *PartyManager) KickMember(leaderID, targetID uint) error {
	var out []outbound
	err := m.db.Transaction(func(tx *gorm.DB) error {
		leader, err := loadUser(tx, leaderID)
		if err != nil {
			return err
		}
		if leader.PartyID == nil {
			return ErrNotLeader
		}
		party, err := lockParty(tx, *leader.PartyID)
		if err != nil {
			return err
		}
		if party.LeaderID != leaderID {
			return ErrNotLeader
		}
		if targetID == leaderID {
			return ErrCannotKickSelf
		}

		target, err := loadUser(tx, targetID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrNotMember
			}
			return err
		}
		if target.PartyID == nil || *target.PartyID != party.ID {
			return ErrNotMember
		}

		if err := directory.SetPartyRef(tx, targetID, target.PartyID, nil); err != nil {
			if errors.Is(err, directory.ErrConflict) {
				return ErrNotMember
			}
			return err
		}
		out = append(out, outbound{PartyTopic(party.ID), Event{Type: EventMemberLeft, AggregateID: party.ID, UserID: targetID}})
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(m.events, out)
	return nil
}

// PromoteLeader hands leadership to another current member.
func (m *PartyManager) PromoteLeader(leaderID, targetID uint) error {
	var out []outbound
	err := m.db.Transaction(func(tx *gorm.DB) error {
		leader, err := loadUser(tx, leaderID)
		if err != nil {
			return err
		}
		if leader.PartyID == nil {
			return ErrNotLeader
		}
		party, err := lockParty(tx, *leader.PartyID)
		if err != nil {
			return err
		}
		if party.LeaderID != leaderID {
			return ErrNotLeader
		}
		if targetID == leaderID {
			return ErrCannotPromoteSelf
		}

		target, err := loadUser(tx, targetID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrNotMember
			}
			return err
		}
		if target.PartyID == nil || *target.PartyID != party.ID {
			return ErrNotMember
		}

		if err := tx.Model(party).Update("leader_id", targetID).Error; err != nil {
			return err
		}
		out = append(out, outbound{PartyTopic(party.ID), Event{
			Type:        EventUpdated,
			AggregateID: party.ID,
			State:       map[string]interface{}{"leader_id": targetID},
		}})
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(m.events, out)
	return nil
}

// UpdateParty changes party attributes. Shrinking max_size below the
// live member count is rejected.
func (m *PartyManager) UpdateParty(leaderID uint, attrs PartyAttrs) (*models.Party, error) {
	size, err := normalizePartySize(attrs.MaxSize)
	if err != nil {
		return nil, err
	}

	var party *models.Party
	var out []outbound
	err = m.db.Transaction(func(tx *gorm.DB) error {
		leader, err := loadUser(tx, leaderID)
		if err != nil {
			return err
		}
		if leader.PartyID == nil {
			return ErrNotLeader
		}
		party, err = lockParty(tx, *leader.PartyID)
		if err != nil {
			return err
		}
		if party.LeaderID != leaderID {
			return ErrNotLeader
		}

		count, err := partyMemberCount(tx, party.ID)
		if err != nil {
			return err
		}
		if int64(size) < count {
			return ErrTooSmall
		}

		if err := tx.Model(party).Update("max_size", size).Error; err != nil {
			return err
		}
		out = append(out, outbound{PartyTopic(party.ID), Event{
			Type:        EventUpdated,
			AggregateID: party.ID,
			State:       map[string]interface{}{"max_size": size},
		}})
		return nil
	})
	if err != nil {
		return nil, err
	}
	publishAll(m.events, out)
	return party, nil
}
