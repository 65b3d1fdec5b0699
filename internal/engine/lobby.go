package engine

import (
	"errors"

	"squadup/backend/internal/directory"
	"squadup/backend/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Upper bound on configurable lobby size.
const maxLobbyUsers = 64

// LobbyManager owns the lifecycle and membership of the Lobby aggregate.
// Joins pass through the hook gateway inside the same transaction that
// performs the write, so a veto rolls the whole join back.
type LobbyManager struct {
	db     *gorm.DB
	hooks  HookGateway
	events Broadcaster
}

func NewLobbyManager(db *gorm.DB, hooks HookGateway, events Broadcaster) *LobbyManager {
	if hooks == nil {
		hooks = NopGateway{}
	}
	return &LobbyManager{db: db, hooks: hooks, events: events}
}

// LobbyAttrs carries the caller-settable lobby fields at creation time.
type LobbyAttrs struct {
	Title    string
	MaxUsers int
	IsHidden bool
	IsLocked bool
	Password string
	Hostless bool
	Metadata map[string]string
}

// LobbyUpdate carries a partial update; nil fields are left unchanged.
// An empty-string Password clears the password.
type LobbyUpdate struct {
	Title    *string
	MaxUsers *int
	IsHidden *bool
	IsLocked *bool
	Password *string
	Metadata map[string]string
}

func normalizeLobbySize(n int) (int, error) {
	switch {
	case n == 0:
		return models.DefaultLobbyMaxUsers, nil
	case n < 1:
		return 0, ErrTooSmall
	case n > maxLobbyUsers:
		return maxLobbyUsers, nil
	}
	return n, nil
}

func hashLobbyPassword(plaintext string) (*string, error) {
	if plaintext == "" {
		return nil, nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	s := string(hashed)
	return &s, nil
}

// checkLobbyPassword enforces the lobby's password once per join
// attempt. Existing members never re-authenticate.
func checkLobbyPassword(lobby *models.Lobby, plaintext string) error {
	if !lobby.HasPassword() {
		return nil
	}
	if plaintext == "" {
		return ErrPasswordRequired
	}
	if bcrypt.CompareHashAndPassword([]byte(*lobby.PasswordHash), []byte(plaintext)) != nil {
		return ErrInvalidPassword
	}
	return nil
}

// CreateLobby creates a lobby with the caller as host and sole member,
// or an empty hostless lobby when attrs.Hostless is set.
func (m *LobbyManager) CreateLobby(hostID uint, attrs LobbyAttrs) (*models.Lobby, error) {
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
	err = m.db.Transaction(func(tx *gorm.DB) error {
		lobby = models.Lobby{
			Title:        attrs.Title,
			MaxUsers:     size,
			IsHidden:     attrs.IsHidden,
			IsLocked:     attrs.IsLocked,
			PasswordHash: passwordHash,
			Metadata:     attrs.Metadata,
		}

		if attrs.Hostless {
			return tx.Create(&lobby).Error
		}

		user, err := loadUser(tx, hostID)
		if err != nil {
			return err
		}
		if user.CurrentLobbyID != nil {
			return ErrAlreadyMember
		}
		lobby.HostID = &hostID
		if err := tx.Create(&lobby).Error; err != nil {
			return err
		}
		if err := directory.SetLobbyRef(tx, hostID, nil, &lobby.ID); err != nil {
			if errors.Is(err, directory.ErrConflict) {
				return ErrAlreadyMember
			}
			return err
		}
		out = append(out, outbound{LobbyTopic(lobby.ID), Event{Type: EventMemberJoined, AggregateID: lobby.ID, UserID: hostID}})
		return nil
	})
	if err != nil {
		return nil, err
	}
	out = append([]outbound{{LobbyTopic(lobby.ID), Event{Type: EventLobbyCreated, AggregateID: lobby.ID}}}, out...)
	publishAll(m.events, out)
	return &lobby, nil
}

// JoinLobby adds the user to an existing lobby, checking the lock flag,
// the password, the hook gateway and capacity under the lobby row lock.
func (m *LobbyManager) JoinLobby(userID, lobbyID uint, password string) error {
	return m.join(userID, lobbyID, password, SourcePublicJoin)
}

func (m *LobbyManager) join(userID, lobbyID uint, password, source string) error {
	var out []outbound
	err := m.db.Transaction(func(tx *gorm.DB) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		if user.CurrentLobbyID != nil {
			return ErrAlreadyMember
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
		count, err := lobbyMemberCount(tx, lobbyID)
		if err != nil {
			return err
		}
		if count >= int64(lobby.MaxUsers) {
			return ErrLobbyFull
		}

		decision := m.hooks.BeforeGroupJoin(*user, *lobby, joinContext(source, userID, *user, *lobby))
		if !decision.Allow {
			return &HookRejectedError{Reason: decision.Reason}
		}

		if err := directory.SetLobbyRef(tx, userID, nil, &lobbyID); err != nil {
			if errors.Is(err, directory.ErrConflict) {
				return ErrAlreadyMember
			}
			return err
		}
		out = append(out, outbound{LobbyTopic(lobbyID), Event{Type: EventMemberJoined, AggregateID: lobbyID, UserID: userID}})
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(m.events, out)
	return nil
}

// LeaveLobby removes the user from their lobby, migrating the host role
// or deleting the lobby when it empties.
func (m *LobbyManager) LeaveLobby(userID uint) error {
	var out []outbound
	err := m.db.Transaction(func(tx *gorm.DB) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		out, err = leaveLobbyTx(tx, user)
		return err
	})
	if err != nil {
		return err
	}
	publishAll(m.events, out)
	return nil
}

// KickMember removes another member from the host's lobby. The host can
// never kick themselves.
func (m *LobbyManager) KickMember(hostID, targetID uint) error {
	var out []outbound
	err := m.db.Transaction(func(tx *gorm.DB) error {
		host, err := loadUser(tx, hostID)
		if err != nil {
			return err
		}
		if host.CurrentLobbyID == nil {
			return ErrNotHost
		}
		lobby, err := lockLobby(tx, *host.CurrentLobbyID)
		if err != nil {
			return err
		}
		if lobby.HostID == nil || *lobby.HostID != hostID {
			return ErrNotHost
		}
		if targetID == hostID {
			return ErrCannotKickSelf
		}

		target, err := loadUser(tx, targetID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrNotMember
			}
			return err
		}
		if target.CurrentLobbyID == nil || *target.CurrentLobbyID != lobby.ID {
			return ErrNotMember
		}

		if err := directory.SetLobbyRef(tx, targetID, target.CurrentLobbyID, nil); err != nil {
			if errors.Is(err, directory.ErrConflict) {
				return ErrNotMember
			}
			return err
		}
		out = append(out, outbound{LobbyTopic(lobby.ID), Event{Type: EventMemberLeft, AggregateID: lobby.ID, UserID: targetID}})
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(m.events, out)
	return nil
}

// UpdateLobby applies a partial update to the host's lobby. Shrinking
// max_users below the live member count is rejected.
func (m *LobbyManager) UpdateLobby(hostID, lobbyID uint, update LobbyUpdate) (*models.Lobby, error) {
	var lobby *models.Lobby
	var out []outbound
	err := m.db.Transaction(func(tx *gorm.DB) error {
		var err error
		lobby, err = lockLobby(tx, lobbyID)
		if err != nil {
			return err
		}
		if lobby.HostID == nil || *lobby.HostID != hostID {
			return ErrNotHost
		}

		values := map[string]interface{}{}
		if update.Title != nil {
			values["title"] = *update.Title
		}
		if update.MaxUsers != nil {
			size, err := normalizeLobbySize(*update.MaxUsers)
			if err != nil {
				return err
			}
			count, err := lobbyMemberCount(tx, lobbyID)
			if err != nil {
				return err
			}
			if int64(size) < count {
				return ErrTooSmall
			}
			values["max_users"] = size
		}
		if update.IsHidden != nil {
			values["is_hidden"] = *update.IsHidden
		}
		if update.IsLocked != nil {
			values["is_locked"] = *update.IsLocked
		}
		if update.Password != nil {
			hash, err := hashLobbyPassword(*update.Password)
			if err != nil {
				return err
			}
			values["password_hash"] = hash
		}
		if update.Metadata != nil {
			lobby.Metadata = update.Metadata
			if err := tx.Model(lobby).Update("metadata", lobby.Metadata).Error; err != nil {
				return err
			}
		}
		if len(values) > 0 {
			if err := tx.Model(lobby).Updates(values).Error; err != nil {
				return err
			}
		}
		if len(values) == 0 && update.Metadata == nil {
			// Nothing changed, nothing to announce.
			return nil
		}
		out = append(out, outbound{LobbyTopic(lobbyID), Event{
			Type:        EventUpdated,
			AggregateID: lobbyID,
			State: map[string]interface{}{
				"title":     lobby.Title,
				"max_users": lobby.MaxUsers,
				"is_hidden": lobby.IsHidden,
				"is_locked": lobby.IsLocked,
			},
		}})
		return nil
	})
	if err != nil {
		return nil, err
	}
	publishAll(m.events, out)
	return lobby, nil
}

// QuickJoin puts the user in the first open public lobby with a free
// slot, creating a fresh one when nothing suitable exists.
func (m *LobbyManager) QuickJoin(userID uint) (*models.Lobby, error) {
	var candidate models.Lobby
	found := true
	err := m.db.Model(&models.Lobby{}).
		Joins("LEFT JOIN users ON users.current_lobby_id = lobbies.id AND users.deleted_at IS NULL").
		Where("lobbies.is_locked = ? AND lobbies.is_hidden = ? AND lobbies.password_hash IS NULL", false, false).
		Group("lobbies.id").
		Having("COUNT(users.id) < lobbies.max_users").
		Order("lobbies.id asc").
		First(&candidate).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		found = false
	}

	if found {
		// The slot may be gone by the time we take the row lock; fall
		// back to creating a lobby rather than failing the caller.
		err := m.join(userID, candidate.ID, "", SourceQuickJoin)
		if err == nil {
			return &candidate, nil
		}
		if !errors.Is(err, ErrLobbyFull) && !errors.Is(err, ErrLocked) && !errors.Is(err, ErrInvalidLobby) {
			return nil, err
		}
	}
	return m.CreateLobby(userID, LobbyAttrs{})
}
