package engine

import (
	"errors"

	"squadup/backend/internal/directory"
	"squadup/backend/internal/models"

	"gorm.io/gorm"
)

// Invite creates a pending party invite addressed to another user. Any
// current member may invite. Nothing about the target is validated here
// beyond existence; the real checks happen at accept time, since the
// world may have changed by then.
func (m *PartyManager) Invite(fromID, toID uint) (*models.PartyInvite, error) {
	var invite models.PartyInvite
	err := m.db.Transaction(func(tx *gorm.DB) error {
		from, err := loadUser(tx, fromID)
		if err != nil {
			return err
		}
		if from.PartyID == nil {
			return ErrNotInParty
		}
		if toID == fromID {
			return ErrAlreadyMember
		}
		to, err := loadUser(tx, toID)
		if err != nil {
			return err
		}
		if to.PartyID != nil && *to.PartyID == *from.PartyID {
			return ErrAlreadyMember
		}

		// Reuse an open invite instead of stacking duplicates.
		err = tx.Where("party_id = ? AND to_id = ? AND status = ?", *from.PartyID, toID, models.InvitePending).
			First(&invite).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		invite = models.PartyInvite{
			PartyID: *from.PartyID,
			FromID:  fromID,
			ToID:    toID,
			Status:  models.InvitePending,
		}
		return tx.Create(&invite).Error
	})
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

// AcceptInvite joins the invitee to the inviting party, re-validating
// that the party still exists, has room, and that the invitee is still
// party-less. The invite row and the membership change commit together.
func (m *PartyManager) AcceptInvite(userID, inviteID uint) error {
	var out []outbound
	err := m.db.Transaction(func(tx *gorm.DB) error {
		invite, err := pendingInvite(tx, inviteID)
		if err != nil {
			return err
		}
		if invite.ToID != userID {
			return ErrNotFound
		}

		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		if user.PartyID != nil {
			return ErrAlreadyInParty
		}

		party, err := lockParty(tx, invite.PartyID)
		if err != nil {
			return err
		}
		count, err := partyMemberCount(tx, party.ID)
		if err != nil {
			return err
		}
		if count >= int64(party.MaxSize) {
			return ErrPartyFull
		}

		if err := directory.SetPartyRef(tx, userID, nil, &party.ID); err != nil {
			if errors.Is(err, directory.ErrConflict) {
				return ErrAlreadyInParty
			}
			return err
		}
		if err := tx.Model(invite).Update("status", models.InviteAccepted).Error; err != nil {
			return err
		}
		out = append(out, outbound{PartyTopic(party.ID), Event{Type: EventMemberJoined, AggregateID: party.ID, UserID: userID}})
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(m.events, out)
	return nil
}

// DeclineInvite marks a pending invite declined. Only the invitee may
// decline.
func (m *PartyManager) DeclineInvite(userID, inviteID uint) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		invite, err := pendingInvite(tx, inviteID)
		if err != nil {
			return err
		}
		if invite.ToID != userID {
			return ErrNotFound
		}
		return tx.Model(invite).Update("status", models.InviteDeclined).Error
	})
}

// CancelInvite withdraws a pending invite. The sender or the party's
// current leader may cancel.
func (m *PartyManager) CancelInvite(userID, inviteID uint) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		invite, err := pendingInvite(tx, inviteID)
		if err != nil {
			return err
		}
		if invite.FromID != userID {
			party, err := lockParty(tx, invite.PartyID)
			if err != nil {
				return err
			}
			if party.LeaderID != userID {
				return ErrNotLeader
			}
		}
		return tx.Model(invite).Update("status", models.InviteCanceled).Error
	})
}

func pendingInvite(tx *gorm.DB, inviteID uint) (*models.PartyInvite, error) {
	var invite models.PartyInvite
	err := tx.Where("id = ? AND status = ?", inviteID, models.InvitePending).First(&invite).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &invite, nil
}
