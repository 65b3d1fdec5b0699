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

type MessageInput struct {
	Content string `json:"content" binding:"required,max=2000"`
}

type MessageResponse struct {
	ID      uint                `json:"id"`
	Type    models.MessageType  `json:"type"`
	Content string              `json:"content"`
	User    *PublicUserResponse `json:"user,omitempty"`
}

func newMessageResponse(message models.Message) MessageResponse {
	response := MessageResponse{
		ID:      message.ID,
		Type:    message.Type,
		Content: message.Content,
	}
	if message.UserID != nil {
		u := buildPublicUserResponse(message.User)
		response.User = &u
	}
	return response
}

// endregion

// currentLobbyID resolves the caller's lobby or writes a 404.
func currentLobbyID(c *gin.Context) (uint, uint, bool) {
	userID, _ := c.Get("userID")

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil || user.CurrentLobbyID == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: string(engine.ErrNotInLobby)})
		return 0, 0, false
	}
	return userID.(uint), *user.CurrentLobbyID, true
}

// PostLobbyMessage godoc
// @Summary      Post a chat message to the current lobby
// @Tags         lobbies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body MessageInput true "Message"
// @Success      201 {object} MessageResponse
// @Failure      404 {object} ErrorResponse "not_in_lobby"
// @Router       /lobbies/messages [post]
func PostLobbyMessage(c *gin.Context) {
	userID, lobbyID, ok := currentLobbyID(c)
	if !ok {
		return
	}

	var input MessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message := models.Message{
		LobbyID: lobbyID,
		UserID:  &userID,
		Type:    models.MessageTypeText,
		Content: input.Content,
	}
	if err := database.DB.Create(&message).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to post message"})
		return
	}

	broadcaster.Publish(engine.LobbyTopic(lobbyID), engine.Event{
		Type:        engine.EventUpdated,
		AggregateID: lobbyID,
		UserID:      userID,
		State:       map[string]interface{}{"message": input.Content},
	})

	database.DB.Preload("User").First(&message, message.ID)
	c.JSON(http.StatusCreated, newMessageResponse(message))
}

// ListLobbyMessages godoc
// @Summary      List recent chat messages in the current lobby
// @Tags         lobbies
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Messages to return" default(50)
// @Success      200 {array} MessageResponse
// @Failure      404 {object} ErrorResponse "not_in_lobby"
// @Router       /lobbies/messages [get]
func ListLobbyMessages(c *gin.Context) {
	_, lobbyID, ok := currentLobbyID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	var messages []models.Message
	database.DB.Preload("User").
		Where("lobby_id = ?", lobbyID).
		Order("id desc").
		Limit(limit).
		Find(&messages)

	// Oldest first for display.
	responses := make([]MessageResponse, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		responses = append(responses, newMessageResponse(messages[i]))
	}
	c.JSON(http.StatusOK, responses)
}
