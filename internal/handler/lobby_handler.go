package handler

import (
	"net/http"
	"strconv"

	"squadup/backend/internal/database"
	"squadup/backend/internal/engine"
	"squadup/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type LobbyInput struct {
	Title    string            `json:"title"`
	MaxUsers int               `json:"max_users" binding:"omitempty,min=1,max=64"`
	IsHidden bool              `json:"is_hidden"`
	IsLocked bool              `json:"is_locked"`
	Password string            `json:"password"`
	Hostless bool              `json:"hostless"`
	Metadata map[string]string `json:"metadata"`
}

type LobbyUpdateInput struct {
	Title    *string           `json:"title"`
	MaxUsers *int              `json:"max_users" binding:"omitempty,min=1,max=64"`
	IsHidden *bool             `json:"is_hidden"`
	IsLocked *bool             `json:"is_locked"`
	Password *string           `json:"password"`
	Metadata map[string]string `json:"metadata"`
}

type JoinLobbyInput struct {
	Password string `json:"password"`
}

type LobbyResponse struct {
	ID          uint                 `json:"id"`
	Title       string               `json:"title"`
	MaxUsers    int                  `json:"max_users"`
	IsHidden    bool                 `json:"is_hidden"`
	IsLocked    bool                 `json:"is_locked"`
	HasPassword bool                 `json:"has_password"`
	Metadata    map[string]string    `json:"metadata,omitempty"`
	Host        *PublicUserResponse  `json:"host,omitempty"`
	Members     []PublicUserResponse `json:"members"`
}

func newLobbyResponse(lobby models.Lobby) LobbyResponse {
	memberResponses := make([]PublicUserResponse, 0, len(lobby.Members))
	for _, member := range lobby.Members {
		memberResponses = append(memberResponses, buildPublicUserResponse(member))
	}

	var hostResponse *PublicUserResponse
	if lobby.Host != nil {
		h := buildPublicUserResponse(*lobby.Host)
		hostResponse = &h
	}

	return LobbyResponse{
		ID:          lobby.ID,
		Title:       lobby.Title,
		MaxUsers:    lobby.MaxUsers,
		IsHidden:    lobby.IsHidden,
		IsLocked:    lobby.IsLocked,
		HasPassword: lobby.HasPassword(),
		Metadata:    lobby.Metadata,
		Host:        hostResponse,
		Members:     memberResponses,
	}
}

func engineLobbyAttrs(input LobbyInput) engine.LobbyAttrs {
	return engine.LobbyAttrs{
		Title:    input.Title,
		MaxUsers: input.MaxUsers,
		IsHidden: input.IsHidden,
		IsLocked: input.IsLocked,
		Password: input.Password,
		Hostless: input.Hostless,
		Metadata: input.Metadata,
	}
}

func respondLobby(c *gin.Context, status int, lobbyID uint) {
	var lobby models.Lobby
	if err := database.DB.Preload("Host").Preload("Members").First(&lobby, lobbyID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Lobby not found"})
		return
	}
	c.JSON(status, newLobbyResponse(lobby))
}

// endregion

// CreateLobby godoc
// @Summary      Create a new lobby
// @Description  Creates a new lobby, making the creator the host unless hostless is set.
// @Tags         lobbies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body LobbyInput true "Lobby Info"
// @Success      201  {object}  LobbyResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse "already_member"
// @Router       /lobbies [post]
func CreateLobby(c *gin.Context) {
	userID, _ := c.Get("userID")

	var input LobbyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lobby, err := lobbyMgr.CreateLobby(userID.(uint), engineLobbyAttrs(input))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondLobby(c, http.StatusCreated, lobby.ID)
}

// SearchLobbies godoc
// @Summary      Search for lobbies
// @Description  Gets a paginated list of joinable lobbies. Hidden and full lobbies are excluded. No authentication required.
// @Tags         lobbies
// @Produce      json
// @Param        page  query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(10)
// @Success      200 {array} LobbyResponse
// @Router       /lobbies [get]
func SearchLobbies(c *gin.Context) {
	page, limit := pageParams(c)
	offset := (page - 1) * limit

	var lobbies []models.Lobby
	database.DB.Model(&models.Lobby{}).
		Preload("Host").
		Preload("Members").
		Joins("LEFT JOIN users ON users.current_lobby_id = lobbies.id AND users.deleted_at IS NULL").
		Where("lobbies.is_hidden = ?", false).
		Group("lobbies.id").
		Having("COUNT(users.id) < lobbies.max_users"). // Filter out full lobbies
		Offset(offset).Limit(limit).
		Find(&lobbies)

	responses := make([]LobbyResponse, 0, len(lobbies))
	for _, lobby := range lobbies {
		responses = append(responses, newLobbyResponse(lobby))
	}
	c.JSON(http.StatusOK, responses)
}

// GetLobbyByID godoc
// @Summary      Get a lobby by ID
// @Tags         lobbies
// @Produce      json
// @Param        id path int true "Lobby ID"
// @Success      200 {object} LobbyResponse
// @Failure      404 {object} ErrorResponse "Lobby not found"
// @Router       /lobbies/{id} [get]
func GetLobbyByID(c *gin.Context) {
	lobbyID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lobby ID"})
		return
	}
	respondLobby(c, http.StatusOK, uint(lobbyID))
}

// JoinLobby godoc
// @Summary      Join a lobby
// @Description  Joins a lobby, presenting its password when one is set.
// @Tags         lobbies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int            true  "Lobby ID"
// @Param        input body JoinLobbyInput false "Join options"
// @Success      200 {object} map[string]string "{"message": "Joined lobby successfully"}"
// @Failure      401 {object} ErrorResponse "password_required"
// @Failure      403 {object} ErrorResponse "invalid_password or hook_rejected"
// @Failure      404 {object} ErrorResponse "invalid_lobby"
// @Failure      409 {object} ErrorResponse "full, locked or already_member"
// @Router       /lobbies/{id}/join [post]
func JoinLobby(c *gin.Context) {
	userID, _ := c.Get("userID")
	lobbyID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lobby ID"})
		return
	}

	var input JoinLobbyInput
	_ = c.ShouldBindJSON(&input) // body is optional

	if err := lobbyMgr.JoinLobby(userID.(uint), uint(lobbyID), input.Password); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Joined lobby successfully"})
}

// QuickJoinLobby godoc
// @Summary      Quick join
// @Description  Joins the first open public lobby with a free slot, creating one when none exists.
// @Tags         lobbies
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} LobbyResponse
// @Failure      409 {object} ErrorResponse "already_member"
// @Router       /lobbies/quickjoin [post]
func QuickJoinLobby(c *gin.Context) {
	userID, _ := c.Get("userID")

	lobby, err := lobbyMgr.QuickJoin(userID.(uint))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondLobby(c, http.StatusOK, lobby.ID)
}

// LeaveLobby godoc
// @Summary      Leave the current lobby
// @Description  Leaves the lobby the user is currently in. Handles host migration and lobby deletion.
// @Tags         lobbies
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]string "{"message": "Left lobby successfully"}"
// @Failure      404 {object} ErrorResponse "not_in_lobby"
// @Router       /lobbies/leave [post]
func LeaveLobby(c *gin.Context) {
	userID, _ := c.Get("userID")

	if err := lobbyMgr.LeaveLobby(userID.(uint)); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Left lobby successfully"})
}

// UpdateLobby godoc
// @Summary      Update a lobby (Host only)
// @Description  Applies a partial update. Shrinking max_users below the current member count is rejected.
// @Tags         lobbies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int              true "Lobby ID"
// @Param        input body LobbyUpdateInput true "Changed fields"
// @Success      200 {object} LobbyResponse
// @Failure      400 {object} ErrorResponse "too_small"
// @Failure      403 {object} ErrorResponse "not_host"
// @Failure      404 {object} ErrorResponse "invalid_lobby"
// @Router       /lobbies/{id} [put]
func UpdateLobby(c *gin.Context) {
	userID, _ := c.Get("userID")
	lobbyID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lobby ID"})
		return
	}

	var input LobbyUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lobby, err := lobbyMgr.UpdateLobby(userID.(uint), uint(lobbyID), engine.LobbyUpdate{
		Title:    input.Title,
		MaxUsers: input.MaxUsers,
		IsHidden: input.IsHidden,
		IsLocked: input.IsLocked,
		Password: input.Password,
		Metadata: input.Metadata,
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondLobby(c, http.StatusOK, lobby.ID)
}

// KickLobbyMember godoc
// @Summary      Kick a member from the lobby (Host only)
// @Tags         lobbies
// @Produce      json
// @Security     BearerAuth
// @Param        userID path int true "User ID of member to kick"
// @Success      200 {object} map[string]string "{"message": "Member kicked successfully"}"
// @Failure      400 {object} ErrorResponse "cannot_kick_self"
// @Failure      403 {object} ErrorResponse "not_host"
// @Failure      404 {object} ErrorResponse "not_member"
// @Router       /lobbies/members/{userID} [delete]
func KickLobbyMember(c *gin.Context) {
	hostID, _ := c.Get("userID")
	targetID, err := strconv.Atoi(c.Param("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	if err := lobbyMgr.KickMember(hostID.(uint), uint(targetID)); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member kicked successfully"})
}

// region --- Party transitions ---

// CreateLobbyWithParty godoc
// @Summary      Create a lobby and move the whole party in (Leader only)
// @Description  Creates a new lobby and moves every party member into it as one atomic unit. Any per-member rejection aborts the whole operation.
// @Tags         lobbies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body LobbyInput true "Lobby Info"
// @Success      201 {object} LobbyResponse
// @Failure      400 {object} ErrorResponse "lobby_too_small_for_party"
// @Failure      403 {object} ErrorResponse "not_leader or hook_rejected"
// @Failure      409 {object} ErrorResponse "member_in_lobby"
// @Router       /lobbies/party [post]
func CreateLobbyWithParty(c *gin.Context) {
	userID, _ := c.Get("userID")

	var input LobbyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lobby, err := coordinator.CreateLobbyWithParty(userID.(uint), engineLobbyAttrs(input))
	if err != nil {
		respondEngineError(c, err)
		return
	}
	respondLobby(c, http.StatusCreated, lobby.ID)
}

// JoinLobbyWithParty godoc
// @Summary      Move the whole party into an existing lobby (Leader only)
// @Description  Moves every party member into the lobby as one atomic unit. The password is checked once for the whole group; capacity must fit the entire party.
// @Tags         lobbies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int            true  "Lobby ID"
// @Param        input body JoinLobbyInput false "Join options"
// @Success      200 {object} map[string]string "{"message": "Party joined lobby successfully"}"
// @Failure      401 {object} ErrorResponse "password_required"
// @Failure      403 {object} ErrorResponse "not_leader, invalid_password or hook_rejected"
// @Failure      404 {object} ErrorResponse "invalid_lobby"
// @Failure      409 {object} ErrorResponse "locked, not_enough_space or member_in_lobby"
// @Router       /lobbies/{id}/party-join [post]
func JoinLobbyWithParty(c *gin.Context) {
	userID, _ := c.Get("userID")
	lobbyID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lobby ID"})
		return
	}

	var input JoinLobbyInput
	_ = c.ShouldBindJSON(&input) // body is optional

	if err := coordinator.JoinLobbyWithParty(userID.(uint), uint(lobbyID), input.Password); err != nil {
		respondEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Party joined lobby successfully"})
}

// endregion
