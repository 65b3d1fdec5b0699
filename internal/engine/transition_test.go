package engine_test

import (
	"testing"

	"squadup/backend/internal/engine"
	"squadup/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// buildParty creates a leader plus n-1 members in one party and returns
// them in succession order, leader first.
func buildParty(t *testing.T, db *gorm.DB, n int) (*models.Party, []*models.User) {
	t.Helper()
	parties := engine.NewPartyManager(db, engine.NopBroadcaster{})

	users := make([]*models.User, 0, n)
	leader := createUser(t, db, "leader")
	users = append(users, leader)
	party, err := parties.CreateParty(leader.ID, engine.PartyAttrs{MaxSize: n})
	require.NoError(t, err)
	for i := 1; i < n; i++ {
		member := createUser(t, db, "member"+string(rune('a'+i)))
		require.NoError(t, parties.JoinParty(member.ID, party.ID))
		users = append(users, member)
	}
	return party, users
}

func TestCreateLobbyWithParty(t *testing.T) {
	t.Run("moves the whole party, party untouched", func(t *testing.T) {
		db := testDB(t)
		events := &recorder{}
		co := engine.NewCoordinator(db, nil, events)
		party, users := buildParty(t, db, 3)

		lobby, err := co.CreateLobbyWithParty(users[0].ID, engine.LobbyAttrs{Title: "ranked"})
		require.NoError(t, err)
		require.NotNil(t, lobby.HostID)
		assert.Equal(t, users[0].ID, *lobby.HostID)

		for _, u := range users {
			reloaded := reloadUser(t, db, u.ID)
			require.NotNil(t, reloaded.CurrentLobbyID)
			assert.Equal(t, lobby.ID, *reloaded.CurrentLobbyID)
			require.NotNil(t, reloaded.PartyID)
			assert.Equal(t, party.ID, *reloaded.PartyID)
		}

		var reloadedParty models.Party
		require.NoError(t, db.First(&reloadedParty, party.ID).Error)
		assert.Equal(t, users[0].ID, reloadedParty.LeaderID)

		assert.Len(t, events.byType(engine.EventLobbyCreated), 1)
		assert.Len(t, events.byType(engine.EventMemberJoined), 3)
	})

	t.Run("hostless flag produces a lobby without a host", func(t *testing.T) {
		db := testDB(t)
		co := engine.NewCoordinator(db, nil, engine.NopBroadcaster{})
		_, users := buildParty(t, db, 2)

		lobby, err := co.CreateLobbyWithParty(users[0].ID, engine.LobbyAttrs{Hostless: true})
		require.NoError(t, err)
		assert.Nil(t, lobby.HostID)

		for _, u := range users {
			reloaded := reloadUser(t, db, u.ID)
			require.NotNil(t, reloaded.CurrentLobbyID)
			assert.Equal(t, lobby.ID, *reloaded.CurrentLobbyID)
		}
	})

	t.Run("only the leader may trigger it", func(t *testing.T) {
		db := testDB(t)
		co := engine.NewCoordinator(db, nil, engine.NopBroadcaster{})
		_, users := buildParty(t, db, 2)

		_, err := co.CreateLobbyWithParty(users[1].ID, engine.LobbyAttrs{})
		assert.ErrorIs(t, err, engine.ErrNotLeader)
	})

	t.Run("lobby smaller than the party leaves no trace", func(t *testing.T) {
		db := testDB(t)
		co := engine.NewCoordinator(db, nil, engine.NopBroadcaster{})
		_, users := buildParty(t, db, 3)

		_, err := co.CreateLobbyWithParty(users[0].ID, engine.LobbyAttrs{MaxUsers: 2})
		assert.ErrorIs(t, err, engine.ErrLobbyTooSmallForParty)

		for _, u := range users {
			assert.Nil(t, reloadUser(t, db, u.ID).CurrentLobbyID)
		}
		var count int64
		db.Model(&models.Lobby{}).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("a member already in a lobby blocks the whole unit", func(t *testing.T) {
		db := testDB(t)
		lobbies := engine.NewLobbyManager(db, nil, engine.NopBroadcaster{})
		co := engine.NewCoordinator(db, nil, engine.NopBroadcaster{})
		_, users := buildParty(t, db, 3)

		stray, err := lobbies.CreateLobby(users[2].ID, engine.LobbyAttrs{})
		require.NoError(t, err)

		_, err = co.CreateLobbyWithParty(users[0].ID, engine.LobbyAttrs{})
		assert.ErrorIs(t, err, engine.ErrMemberInLobby)

		assert.Nil(t, reloadUser(t, db, users[0].ID).CurrentLobbyID)
		assert.Nil(t, reloadUser(t, db, users[1].ID).CurrentLobbyID)
		require.NotNil(t, reloadUser(t, db, users[2].ID).CurrentLobbyID)
		assert.Equal(t, stray.ID, *reloadUser(t, db, users[2].ID).CurrentLobbyID)
	})

	t.Run("hook veto on one member rolls back all moves", func(t *testing.T) {
		db := testDB(t)
		_, users := buildParty(t, db, 3)
		gateway := &vetoGateway{rejected: map[uint]string{users[2].ID: "region_mismatch"}}
		co := engine.NewCoordinator(db, gateway, engine.NopBroadcaster{})

		_, err := co.CreateLobbyWithParty(users[0].ID, engine.LobbyAttrs{})
		var rejected *engine.HookRejectedError
		require.ErrorAs(t, err, &rejected)
		assert.Equal(t, "region_mismatch", rejected.Reason)

		for _, u := range users {
			assert.Nil(t, reloadUser(t, db, u.ID).CurrentLobbyID)
		}
		var count int64
		db.Model(&models.Lobby{}).Count(&count)
		assert.Zero(t, count)
	})
}

func TestJoinLobbyWithParty(t *testing.T) {
	t.Run("whole party lands in the lobby", func(t *testing.T) {
		db := testDB(t)
		lobbies := engine.NewLobbyManager(db, nil, engine.NopBroadcaster{})
		events := &recorder{}
		co := engine.NewCoordinator(db, nil, events)
		_, users := buildParty(t, db, 3)

		host := createUser(t, db, "host")
		lobby, err := lobbies.CreateLobby(host.ID, engine.LobbyAttrs{MaxUsers: 8})
		require.NoError(t, err)

		require.NoError(t, co.JoinLobbyWithParty(users[0].ID, lobby.ID, ""))

		var count int64
		db.Model(&models.User{}).Where("current_lobby_id = ?", lobby.ID).Count(&count)
		assert.EqualValues(t, 4, count)
		assert.Len(t, events.byType(engine.EventMemberJoined), 3)
	})

	t.Run("wrong password leaves every member untouched", func(t *testing.T) {
		db := testDB(t)
		lobbies := engine.NewLobbyManager(db, nil, engine.NopBroadcaster{})
		co := engine.NewCoordinator(db, nil, engine.NopBroadcaster{})
		_, users := buildParty(t, db, 2)

		host := createUser(t, db, "host")
		lobby, err := lobbies.CreateLobby(host.ID, engine.LobbyAttrs{Password: "sesame"})
		require.NoError(t, err)

		assert.ErrorIs(t, co.JoinLobbyWithParty(users[0].ID, lobby.ID, ""), engine.ErrPasswordRequired)
		assert.ErrorIs(t, co.JoinLobbyWithParty(users[0].ID, lobby.ID, "nope"), engine.ErrInvalidPassword)
		for _, u := range users {
			assert.Nil(t, reloadUser(t, db, u.ID).CurrentLobbyID)
		}

		// The password is checked once for the whole group.
		require.NoError(t, co.JoinLobbyWithParty(users[0].ID, lobby.ID, "sesame"))
		for _, u := range users {
			require.NotNil(t, reloadUser(t, db, u.ID).CurrentLobbyID)
		}
	})

	t.Run("party does not fit the remaining capacity", func(t *testing.T) {
		db := testDB(t)
		lobbies := engine.NewLobbyManager(db, nil, engine.NopBroadcaster{})
		co := engine.NewCoordinator(db, nil, engine.NopBroadcaster{})
		_, users := buildParty(t, db, 3)

		host := createUser(t, db, "host")
		lobby, err := lobbies.CreateLobby(host.ID, engine.LobbyAttrs{MaxUsers: 3})
		require.NoError(t, err)

		assert.ErrorIs(t, co.JoinLobbyWithParty(users[0].ID, lobby.ID, ""), engine.ErrNotEnoughSpace)

		var count int64
		db.Model(&models.User{}).Where("current_lobby_id = ?", lobby.ID).Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("locked lobby rejects the group", func(t *testing.T) {
		db := testDB(t)
		lobbies := engine.NewLobbyManager(db, nil, engine.NopBroadcaster{})
		co := engine.NewCoordinator(db, nil, engine.NopBroadcaster{})
		_, users := buildParty(t, db, 2)

		host := createUser(t, db, "host")
		lobby, err := lobbies.CreateLobby(host.ID, engine.LobbyAttrs{IsLocked: true})
		require.NoError(t, err)

		assert.ErrorIs(t, co.JoinLobbyWithParty(users[0].ID, lobby.ID, ""), engine.ErrLocked)
	})

	t.Run("hooks see the party join source", func(t *testing.T) {
		db := testDB(t)
		lobbies := engine.NewLobbyManager(db, nil, engine.NopBroadcaster{})
		gateway := &vetoGateway{}
		co := engine.NewCoordinator(db, gateway, engine.NopBroadcaster{})
		_, users := buildParty(t, db, 2)

		host := createUser(t, db, "host")
		lobby, err := lobbies.CreateLobby(host.ID, engine.LobbyAttrs{})
		require.NoError(t, err)

		require.NoError(t, co.JoinLobbyWithParty(users[0].ID, lobby.ID, ""))
		require.Len(t, gateway.seen, 2)
		for _, hctx := range gateway.seen {
			assert.Equal(t, engine.SourcePartyLobbyJoin, hctx["source"])
			assert.Equal(t, users[0].ID, hctx["acting_user_id"])
		}
	})
}

func TestDeleteAccount(t *testing.T) {
	t.Run("leader deletion promotes the earliest joined member", func(t *testing.T) {
		db := testDB(t)
		co := engine.NewCoordinator(db, nil, engine.NopBroadcaster{})
		party, users := buildParty(t, db, 3)

		require.NoError(t, co.DeleteAccount(users[0].ID))

		var reloaded models.Party
		require.NoError(t, db.First(&reloaded, party.ID).Error)
		assert.Equal(t, users[1].ID, reloaded.LeaderID)

		var gone models.User
		assert.ErrorIs(t, db.First(&gone, users[0].ID).Error, gorm.ErrRecordNotFound)
	})

	t.Run("sole member deletion disbands the party and lobby", func(t *testing.T) {
		db := testDB(t)
		parties := engine.NewPartyManager(db, engine.NopBroadcaster{})
		co := engine.NewCoordinator(db, nil, engine.NopBroadcaster{})

		user := createUser(t, db, "loner")
		party, err := parties.CreateParty(user.ID, engine.PartyAttrs{})
		require.NoError(t, err)
		lobby, err := co.CreateLobbyWithParty(user.ID, engine.LobbyAttrs{})
		require.NoError(t, err)

		require.NoError(t, co.DeleteAccount(user.ID))

		var count int64
		db.Model(&models.Party{}).Where("id = ?", party.ID).Count(&count)
		assert.Zero(t, count)
		db.Model(&models.Lobby{}).Where("id = ?", lobby.ID).Count(&count)
		assert.Zero(t, count)
	})

	t.Run("open invites and relations go with the account", func(t *testing.T) {
		db := testDB(t)
		parties := engine.NewPartyManager(db, engine.NopBroadcaster{})
		co := engine.NewCoordinator(db, nil, engine.NopBroadcaster{})

		leader := createUser(t, db, "leader")
		friend := createUser(t, db, "friend")
		_, err := parties.CreateParty(leader.ID, engine.PartyAttrs{})
		require.NoError(t, err)
		_, err = parties.Invite(leader.ID, friend.ID)
		require.NoError(t, err)
		require.NoError(t, db.Create(&models.UserRelation{FromUserID: leader.ID, ToUserID: friend.ID, Status: models.StatusAccepted}).Error)

		require.NoError(t, co.DeleteAccount(leader.ID))

		var count int64
		db.Model(&models.PartyInvite{}).Where("from_id = ? OR to_id = ?", leader.ID, leader.ID).Count(&count)
		assert.Zero(t, count)
		db.Model(&models.UserRelation{}).Where("from_user_id = ? OR to_user_id = ?", leader.ID, leader.ID).Count(&count)
		assert.Zero(t, count)
	})
}
