package handler

import (
	"errors"
	"net/http"
	"strconv"

	"squadup/backend/internal/database"
	"squadup/backend/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// region --- DTOs ---

// RelationResponse pairs a user with the state of the relationship.
type RelationResponse struct {
	User   PublicUserResponse      `json:"user"`
	Status models.RelationStatus `json:"status"`
}

// endregion

// GetRelations godoc
// @Summary      Get own relations
// @Description  Fetches the authenticated user's relations filtered by status and direction.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        status    query string false "Filter by status (pending, accepted)"
// @Param        direction query string true  "Direction (incoming, outgoing)"
// @Success      200 {array} RelationResponse
// @Failure      400 {object} ErrorResponse
// @Router       /users/me/relations [get]
func GetRelations(c *gin.Context) {
	userID, _ := c.Get("userID")
	listRelations(c, userID.(uint))
}

// GetUserRelationsByID godoc
// @Summary      Get a specific user's relations
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id        path  int    true  "Target User ID"
// @Param        status    query string false "Filter by status (pending, accepted)"
// @Param        direction query string true  "Direction (incoming, outgoing)"
// @Success      200 {array} RelationResponse
// @Failure      400 {object} ErrorResponse
// @Router       /users/{id}/relations [get]
func GetUserRelationsByID(c *gin.Context) {
	targetUserID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target user ID"})
		return
	}
	listRelations(c, uint(targetUserID))
}

func listRelations(c *gin.Context, userID uint) {
	statusFilter := c.Query("status")
	directionFilter := c.Query("direction")

	query := database.DB
	switch directionFilter {
	case "incoming":
		query = query.Where("to_user_id = ?", userID).Preload("FromUser")
	case "outgoing":
		query = query.Where("from_user_id = ?", userID).Preload("ToUser")
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "A 'direction' query parameter (incoming or outgoing) is required for this endpoint."})
		return
	}
	if statusFilter != "" {
		query = query.Where("status = ?", statusFilter)
	}

	var relations []models.UserRelation
	if err := query.Find(&relations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch relations"})
		return
	}

	responses := make([]RelationResponse, 0, len(relations))
	for _, r := range relations {
		user := r.ToUser
		if directionFilter == "incoming" {
			user = r.FromUser
		}
		if user.ID == 0 {
			continue
		}
		responses = append(responses, RelationResponse{
			User:   buildPublicUserResponse(user),
			Status: r.Status,
		})
	}
	c.JSON(http.StatusOK, responses)
}

// SendRequest godoc
// @Summary      Send a friend request
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Target User ID"
// @Success      201 {object} map[string]string "{"message": "Request sent"}"
// @Failure      404 {object} ErrorResponse "User not found"
// @Failure      409 {object} ErrorResponse "Relation already exists"
// @Router       /users/{id}/request [post]
func SendRequest(c *gin.Context) {
	fromID, _ := c.Get("userID")
	toID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || uint(toID) == fromID.(uint) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target user ID"})
		return
	}

	var target models.User
	if err := database.DB.First(&target, toID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var existing models.UserRelation
	err = database.DB.Where(
		"(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
		fromID, toID, toID, fromID,
	).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Relation already exists"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check relations"})
		return
	}

	relation := models.UserRelation{
		FromUserID: fromID.(uint),
		ToUserID:   uint(toID),
		Status:     models.StatusPending,
	}
	if err := database.DB.Create(&relation).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create request"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Request sent"})
}

// AcceptRequest godoc
// @Summary      Accept a friend request
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Requesting User ID"
// @Success      200 {object} map[string]string "{"message": "Request accepted"}"
// @Failure      404 {object} ErrorResponse "No pending request"
// @Router       /users/{id}/accept [post]
func AcceptRequest(c *gin.Context) {
	userID, _ := c.Get("userID")
	fromID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	res := database.DB.Model(&models.UserRelation{}).
		Where("from_user_id = ? AND to_user_id = ? AND status = ?", fromID, userID, models.StatusPending).
		Update("status", models.StatusAccepted)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept request"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No pending request from this user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Request accepted"})
}

// DeclineRequest godoc
// @Summary      Decline a friend request
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Requesting User ID"
// @Success      200 {object} map[string]string "{"message": "Request declined"}"
// @Failure      404 {object} ErrorResponse "No pending request"
// @Router       /users/{id}/decline [post]
func DeclineRequest(c *gin.Context) {
	userID, _ := c.Get("userID")
	fromID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	res := database.DB.Where(
		"from_user_id = ? AND to_user_id = ? AND status = ?",
		fromID, userID, models.StatusPending,
	).Delete(&models.UserRelation{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decline request"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No pending request from this user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Request declined"})
}

// RemoveRelation godoc
// @Summary      Remove a relation
// @Description  Removes any relation (friendship or pending request) between the caller and the target user.
// @Tags         friendship
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Target User ID"
// @Success      200 {object} map[string]string "{"message": "Relation removed"}"
// @Failure      404 {object} ErrorResponse "No relation"
// @Router       /users/{id}/remove [post]
func RemoveRelation(c *gin.Context) {
	userID, _ := c.Get("userID")
	targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	res := database.DB.Where(
		"(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
		userID, targetID, targetID, userID,
	).Delete(&models.UserRelation{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove relation"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No relation with this user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Relation removed"})
}
