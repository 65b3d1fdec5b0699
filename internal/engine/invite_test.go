package engine_test

import (
	"testing"

	"squadup/backend/internal/engine"
	"squadup/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvite(t *testing.T) {
	db := testDB(t)
	mgr := engine.NewPartyManager(db, engine.NopBroadcaster{})
	leader := createUser(t, db, "leader")
	member := createUser(t, db, "member")
	outsider := createUser(t, db, "outsider")
	party, err := mgr.CreateParty(leader.ID, engine.PartyAttrs{})
	require.NoError(t, err)
	require.NoError(t, mgr.JoinParty(member.ID, party.ID))

	t.Run("any member may invite", func(t *testing.T) {
		invite, err := mgr.Invite(member.ID, outsider.ID)
		require.NoError(t, err)
		assert.Equal(t, party.ID, invite.PartyID)
		assert.Equal(t, models.InvitePending, invite.Status)
	})

	t.Run("duplicate invites collapse onto the open one", func(t *testing.T) {
		first, err := mgr.Invite(member.ID, outsider.ID)
		require.NoError(t, err)
		second, err := mgr.Invite(leader.ID, outsider.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		var count int64
		db.Model(&models.PartyInvite{}).Where("party_id = ? AND to_id = ?", party.ID, outsider.ID).Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("non-members cannot invite", func(t *testing.T) {
		_, err := mgr.Invite(outsider.ID, leader.ID)
		assert.ErrorIs(t, err, engine.ErrNotInParty)
	})

	t.Run("cannot invite a current member", func(t *testing.T) {
		_, err := mgr.Invite(leader.ID, member.ID)
		assert.ErrorIs(t, err, engine.ErrAlreadyMember)
		_, err = mgr.Invite(leader.ID, leader.ID)
		assert.ErrorIs(t, err, engine.ErrAlreadyMember)
	})
}

func TestAcceptInvite(t *testing.T) {
	t.Run("accept joins the party and settles the invite", func(t *testing.T) {
		db := testDB(t)
		mgr := engine.NewPartyManager(db, engine.NopBroadcaster{})
		leader := createUser(t, db, "leader")
		guest := createUser(t, db, "guest")
		party, err := mgr.CreateParty(leader.ID, engine.PartyAttrs{})
		require.NoError(t, err)
		invite, err := mgr.Invite(leader.ID, guest.ID)
		require.NoError(t, err)

		require.NoError(t, mgr.AcceptInvite(guest.ID, invite.ID))

		reloaded := reloadUser(t, db, guest.ID)
		require.NotNil(t, reloaded.PartyID)
		assert.Equal(t, party.ID, *reloaded.PartyID)

		var settled models.PartyInvite
		require.NoError(t, db.First(&settled, invite.ID).Error)
		assert.Equal(t, models.InviteAccepted, settled.Status)

		// A settled invite cannot be accepted twice.
		assert.ErrorIs(t, mgr.AcceptInvite(guest.ID, invite.ID), engine.ErrNotFound)
	})

	t.Run("only the invitee may accept", func(t *testing.T) {
		db := testDB(t)
		mgr := engine.NewPartyManager(db, engine.NopBroadcaster{})
		leader := createUser(t, db, "leader")
		guest := createUser(t, db, "guest")
		bystander := createUser(t, db, "bystander")
		_, err := mgr.CreateParty(leader.ID, engine.PartyAttrs{})
		require.NoError(t, err)
		invite, err := mgr.Invite(leader.ID, guest.ID)
		require.NoError(t, err)

		assert.ErrorIs(t, mgr.AcceptInvite(bystander.ID, invite.ID), engine.ErrNotFound)
	})

	t.Run("capacity is re-validated at accept time", func(t *testing.T) {
		db := testDB(t)
		mgr := engine.NewPartyManager(db, engine.NopBroadcaster{})
		leader := createUser(t, db, "leader")
		guest := createUser(t, db, "guest")
		filler := createUser(t, db, "filler")
		party, err := mgr.CreateParty(leader.ID, engine.PartyAttrs{MaxSize: 2})
		require.NoError(t, err)
		invite, err := mgr.Invite(leader.ID, guest.ID)
		require.NoError(t, err)

		// The last slot is taken between invite and accept.
		require.NoError(t, mgr.JoinParty(filler.ID, party.ID))

		assert.ErrorIs(t, mgr.AcceptInvite(guest.ID, invite.ID), engine.ErrPartyFull)
		assert.Nil(t, reloadUser(t, db, guest.ID).PartyID)
	})

	t.Run("invitee who joined elsewhere cannot accept", func(t *testing.T) {
		db := testDB(t)
		mgr := engine.NewPartyManager(db, engine.NopBroadcaster{})
		leader := createUser(t, db, "leader")
		guest := createUser(t, db, "guest")
		_, err := mgr.CreateParty(leader.ID, engine.PartyAttrs{})
		require.NoError(t, err)
		invite, err := mgr.Invite(leader.ID, guest.ID)
		require.NoError(t, err)

		_, err = mgr.CreateParty(guest.ID, engine.PartyAttrs{})
		require.NoError(t, err)

		assert.ErrorIs(t, mgr.AcceptInvite(guest.ID, invite.ID), engine.ErrAlreadyInParty)
	})

	t.Run("accepting for a disbanded party fails cleanly", func(t *testing.T) {
		db := testDB(t)
		mgr := engine.NewPartyManager(db, engine.NopBroadcaster{})
		leader := createUser(t, db, "leader")
		guest := createUser(t, db, "guest")
		_, err := mgr.CreateParty(leader.ID, engine.PartyAttrs{})
		require.NoError(t, err)
		invite, err := mgr.Invite(leader.ID, guest.ID)
		require.NoError(t, err)

		// Sole member leaving disbands the party and voids its invites.
		require.NoError(t, mgr.LeaveParty(leader.ID))

		assert.ErrorIs(t, mgr.AcceptInvite(guest.ID, invite.ID), engine.ErrNotFound)
	})
}

func TestDeclineInvite(t *testing.T) {
	db := testDB(t)
	mgr := engine.NewPartyManager(db, engine.NopBroadcaster{})
	leader := createUser(t, db, "leader")
	guest := createUser(t, db, "guest")
	_, err := mgr.CreateParty(leader.ID, engine.PartyAttrs{})
	require.NoError(t, err)
	invite, err := mgr.Invite(leader.ID, guest.ID)
	require.NoError(t, err)

	t.Run("only the invitee may decline", func(t *testing.T) {
		assert.ErrorIs(t, mgr.DeclineInvite(leader.ID, invite.ID), engine.ErrNotFound)
	})

	t.Run("decline settles the invite", func(t *testing.T) {
		require.NoError(t, mgr.DeclineInvite(guest.ID, invite.ID))

		var settled models.PartyInvite
		require.NoError(t, db.First(&settled, invite.ID).Error)
		assert.Equal(t, models.InviteDeclined, settled.Status)
		assert.Nil(t, reloadUser(t, db, guest.ID).PartyID)
	})
}

func TestCancelInvite(t *testing.T) {
	db := testDB(t)
	mgr := engine.NewPartyManager(db, engine.NopBroadcaster{})
	leader := createUser(t, db, "leader")
	member := createUser(t, db, "member")
	guest := createUser(t, db, "guest")
	party, err := mgr.CreateParty(leader.ID, engine.PartyAttrs{})
	require.NoError(t, err)
	require.NoError(t, mgr.JoinParty(member.ID, party.ID))

	t.Run("sender may cancel", func(t *testing.T) {
		invite, err := mgr.Invite(member.ID, guest.ID)
		require.NoError(t, err)
		require.NoError(t, mgr.CancelInvite(member.ID, invite.ID))

		var settled models.PartyInvite
		require.NoError(t, db.First(&settled, invite.ID).Error)
		assert.Equal(t, models.InviteCanceled, settled.Status)
	})

	t.Run("leader may cancel another member's invite", func(t *testing.T) {
		invite, err := mgr.Invite(member.ID, guest.ID)
		require.NoError(t, err)
		require.NoError(t, mgr.CancelInvite(leader.ID, invite.ID))
	})

	t.Run("other members may not cancel", func(t *testing.T) {
		invite, err := mgr.Invite(leader.ID, guest.ID)
		require.NoError(t, err)
		assert.ErrorIs(t, mgr.CancelInvite(member.ID, invite.ID), engine.ErrNotLeader)
	})
}
