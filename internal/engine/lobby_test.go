package engine_test

import (
	"testing"

	"squadup/backend/internal/engine"
	"squadup/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateLobby(t *testing.T) {
	db := testDB(t)
	mgr := engine.NewLobbyManager(db, nil, engine.NopBroadcaster{})

	t.Run("host becomes sole member", func(t *testing.T) {
		host := createUser(t, db, "host")
		lobby, err := mgr.CreateLobby(host.ID, engine.LobbyAttrs{Title: "casual"})
		require.NoError(t, err)
		require.NotNil(t, lobby.HostID)
		assert.Equal(t, host.ID, *lobby.HostID)
		assert.Equal(t, models.DefaultLobbyMaxUsers, lobby.MaxUsers)

		reloaded := reloadUser(t, db, host.ID)
		require.NotNil(t, reloaded.CurrentLobbyID)
		assert.Equal(t, lobby.ID, *reloaded.CurrentLobbyID)
	})

	t.Run("hostless lobby starts empty", func(t *testing.T) {
		creator := createUser(t, db, "operator")
		lobby, err := mgr.CreateLobby(creator.ID, engine.LobbyAttrs{Hostless: true})
		require.NoError(t, err)
		assert.Nil(t, lobby.HostID)
		assert.Nil(t, reloadUser(t, db, creator.ID).CurrentLobbyID)
	})

	t.Run("member of a lobby cannot host another", func(t *testing.T) {
		host := createUser(t, db, "busy")
		_, err := mgr.CreateLobby(host.ID, engine.LobbyAttrs{})
		require.NoError(t, err)
		_, err = mgr.CreateLobby(host.ID, engine.LobbyAttrs{})
		assert.ErrorIs(t, err, engine.ErrAlreadyMember)
	})
}

func TestJoinLobby(t *testing.T) {
	db := testDB(t)
	mgr := engine.NewLobbyManager(db, nil, engine.NopBroadcaster{})

	t.Run("missing lobby", func(t *testing.T) {
		user := createUser(t, db, "wanderer")
		assert.ErrorIs(t, mgr.JoinLobby(user.ID, 9999, ""), engine.ErrInvalidLobby)
	})

	t.Run("locked lobby rejects new members", func(t *testing.T) {
		host := createUser(t, db, "lockhost")
		lobby, err := mgr.CreateLobby(host.ID, engine.LobbyAttrs{IsLocked: true})
		require.NoError(t, err)

		user := createUser(t, db, "lockout")
		assert.ErrorIs(t, mgr.JoinLobby(user.ID, lobby.ID, ""), engine.ErrLocked)
	})

	t.Run("password protected lobby", func(t *testing.T) {
		host := createUser(t, db, "pwhost")
		lobby, err := mgr.CreateLobby(host.ID, engine.LobbyAttrs{Password: "hunter2"})
		require.NoError(t, err)

		user := createUser(t, db, "guest")
		assert.ErrorIs(t, mgr.JoinLobby(user.ID, lobby.ID, ""), engine.ErrPasswordRequired)
		assert.ErrorIs(t, mgr.JoinLobby(user.ID, lobby.ID, "wrong"), engine.ErrInvalidPassword)
		assert.Nil(t, reloadUser(t, db, user.ID).CurrentLobbyID)

		require.NoError(t, mgr.JoinLobby(user.ID, lobby.ID, "hunter2"))
		require.NotNil(t, reloadUser(t, db, user.ID).CurrentLobbyID)
	})

	t.Run("capacity is re-checked at write time", func(t *testing.T) {
		host := createUser(t, db, "tinyhost")
		lobby, err := mgr.CreateLobby(host.ID, engine.LobbyAttrs{MaxUsers: 1})
		require.NoError(t, err)

		user := createUser(t, db, "turnedaway")
		assert.ErrorIs(t, mgr.JoinLobby(user.ID, lobby.ID, ""), engine.ErrLobbyFull)

		var count int64
		db.Model(&models.User{}).Where("current_lobby_id = ?", lobby.ID).Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("hook veto rolls the join back", func(t *testing.T) {
		blocked := createUser(t, db, "blocked")
		gateway := &vetoGateway{rejected: map[uint]string{blocked.ID: "banned"}}
		vetoed := engine.NewLobbyManager(db, gateway, engine.NopBroadcaster{})

		host := createUser(t, db, "vetohost")
		lobby, err := vetoed.CreateLobby(host.ID, engine.LobbyAttrs{})
		require.NoError(t, err)

		err = vetoed.JoinLobby(blocked.ID, lobby.ID, "")
		var rejected *engine.HookRejectedError
		require.ErrorAs(t, err, &rejected)
		assert.Equal(t, "banned", rejected.Reason)
		assert.Nil(t, reloadUser(t, db, blocked.ID).CurrentLobbyID)

		// The gateway saw the public join source.
		require.NotEmpty(t, gateway.seen)
		assert.Equal(t, engine.SourcePublicJoin, gateway.seen[len(gateway.seen)-1]["source"])
	})
}

func TestLeaveLobby(t *testing.T) {
	t.Run("host leaving migrates the host role", func(t *testing.T) {
		db := testDB(t)
		mgr := engine.NewLobbyManager(db, nil, engine.NopBroadcaster{})
		host := createUser(t, db, "host")
		member := createUser(t, db, "member")
		lobby, err := mgr.CreateLobby(host.ID, engine.LobbyAttrs{})
		require.NoError(t, err)
		require.NoError(t, mgr.JoinLobby(member.ID, lobby.ID, ""))

		require.NoError(t, mgr.LeaveLobby(host.ID))

		var reloaded models.Lobby
		require.NoError(t, db.First(&reloaded, lobby.ID).Error)
		require.NotNil(t, reloaded.HostID)
		assert.Equal(t, member.ID, *reloaded.HostID)
	})

	t.Run("last member leaving deletes the lobby", func(t *testing.T) {
		db := testDB(t)
		events := &recorder{}
		mgr := engine.NewLobbyManager(db, nil, events)
		host := createUser(t, db, "solo")
		lobby, err := mgr.CreateLobby(host.ID, engine.LobbyAttrs{})
		require.NoError(t, err)

		require.NoError(t, mgr.LeaveLobby(host.ID))

		var count int64
		db.Model(&models.Lobby{}).Where("id = ?", lobby.ID).Count(&count)
		assert.Zero(t, count)
		require.Len(t, events.byType(engine.EventDisbanded), 1)
	})

	t.Run("leaving without a lobby", func(t *testing.T) {
		db := testDB(t)
		mgr := engine.NewLobbyManager(db, nil, engine.NopBroadcaster{})
		user := createUser(t, db, "outside")
		assert.ErrorIs(t, mgr.LeaveLobby(user.ID), engine.ErrNotInLobby)
	})
}

func TestKickLobbyMember(t *testing.T) {
	db := testDB(t)
	mgr := engine.NewLobbyManager(db, nil, engine.NopBroadcaster{})
	host := createUser(t, db, "host")
	member := createUser(t, db, "member")
	lobby, err := mgr.CreateLobby(host.ID, engine.LobbyAttrs{})
	require.NoError(t, err)
	require.NoError(t, mgr.JoinLobby(member.ID, lobby.ID, ""))

	t.Run("only the host can kick", func(t *testing.T) {
		assert.ErrorIs(t, mgr.KickMember(member.ID, host.ID), engine.ErrNotHost)
	})

	t.Run("host cannot kick themselves", func(t *testing.T) {
		assert.ErrorIs(t, mgr.KickMember(host.ID, host.ID), engine.ErrCannotKickSelf)
	})

	t.Run("kick clears the membership", func(t *testing.T) {
		require.NoError(t, mgr.KickMember(host.ID, member.ID))
		assert.Nil(t, reloadUser(t, db, member.ID).CurrentLobbyID)
	})
}

func TestUpdateLobby(t *testing.T) {
	db := testDB(t)
	mgr := engine.NewLobbyManager(db, nil, engine.NopBroadcaster{})
	host := createUser(t, db, "host")
	member := createUser(t, db, "member")
	lobby, err := mgr.CreateLobby(host.ID, engine.LobbyAttrs{})
	require.NoError(t, err)
	require.NoError(t, mgr.JoinLobby(member.ID, lobby.ID, ""))

	t.Run("non-host cannot update", func(t *testing.T) {
		locked := true
		_, err := mgr.UpdateLobby(member.ID, lobby.ID, engine.LobbyUpdate{IsLocked: &locked})
		assert.ErrorIs(t, err, engine.ErrNotHost)
	})

	t.Run("cannot shrink below the live member count", func(t *testing.T) {
		one := 1
		_, err := mgr.UpdateLobby(host.ID, lobby.ID, engine.LobbyUpdate{MaxUsers: &one})
		assert.ErrorIs(t, err, engine.ErrTooSmall)
	})

	t.Run("locking keeps existing members", func(t *testing.T) {
		locked := true
		updated, err := mgr.UpdateLobby(host.ID, lobby.ID, engine.LobbyUpdate{IsLocked: &locked})
		require.NoError(t, err)
		assert.True(t, updated.IsLocked)

		var reloaded models.Lobby
		require.NoError(t, db.First(&reloaded, lobby.ID).Error)
		assert.True(t, reloaded.IsLocked)
		require.NotNil(t, reloadUser(t, db, member.ID).CurrentLobbyID)

		// New members are turned away.
		outsider := createUser(t, db, "outsider")
		assert.ErrorIs(t, mgr.JoinLobby(outsider.ID, lobby.ID, ""), engine.ErrLocked)
	})

	t.Run("update with no fields publishes nothing", func(t *testing.T) {
		events := &recorder{}
		quiet := engine.NewLobbyManager(db, nil, events)
		_, err := quiet.UpdateLobby(host.ID, lobby.ID, engine.LobbyUpdate{})
		require.NoError(t, err)
		assert.Empty(t, events.byType(engine.EventUpdated))
	})
}

func TestQuickJoin(t *testing.T) {
	db := testDB(t)
	mgr := engine.NewLobbyManager(db, nil, engine.NopBroadcaster{})

	t.Run("creates a lobby when none is joinable", func(t *testing.T) {
		user := createUser(t, db, "pioneer")
		lobby, err := mgr.QuickJoin(user.ID)
		require.NoError(t, err)
		require.NotNil(t, reloadUser(t, db, user.ID).CurrentLobbyID)
		assert.Equal(t, lobby.ID, *reloadUser(t, db, user.ID).CurrentLobbyID)
	})

	t.Run("joins an existing open lobby", func(t *testing.T) {
		user := createUser(t, db, "follower")
		lobby, err := mgr.QuickJoin(user.ID)
		require.NoError(t, err)

		reloaded := reloadUser(t, db, user.ID)
		require.NotNil(t, reloaded.CurrentLobbyID)
		assert.Equal(t, lobby.ID, *reloaded.CurrentLobbyID)

		var count int64
		db.Model(&models.User{}).Where("current_lobby_id = ?", lobby.ID).Count(&count)
		assert.EqualValues(t, 2, count)
	})

	t.Run("skips hidden, locked and password lobbies", func(t *testing.T) {
		db := testDB(t)
		mgr := engine.NewLobbyManager(db, nil, engine.NopBroadcaster{})
		for i, attrs := range []engine.LobbyAttrs{
			{IsHidden: true},
			{IsLocked: true},
			{Password: "secret"},
		} {
			host := createUser(t, db, "host"+string(rune('a'+i)))
			_, err := mgr.CreateLobby(host.ID, attrs)
			require.NoError(t, err)
		}

		user := createUser(t, db, "picky")
		lobby, err := mgr.QuickJoin(user.ID)
		require.NoError(t, err)

		var reloaded models.Lobby
		require.NoError(t, db.First(&reloaded, lobby.ID).Error)
		assert.False(t, reloaded.IsHidden)
		assert.False(t, reloaded.IsLocked)
		assert.Nil(t, reloaded.PasswordHash)
		assert.EqualValues(t, 1, func() int64 {
			var n int64
			db.Model(&models.User{}).Where("current_lobby_id = ?", lobby.ID).Count(&n)
			return n
		}())
	})
}
