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

type LeaderboardInput struct {
	Slug        string `json:"slug" binding:"required,max=100"`
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
}

type ScoreInput struct {
	Score int64 `json:"score" binding:"required"`
}

type LeaderboardEntryResponse struct {
	Rank  int                `json:"rank"`
	User  PublicUserResponse `json:"user"`
	Score int64              `json:"score"`
}

// endregion

func findLeaderboard(c *gin.Context) (*models.Leaderboard, bool) {
	var board models.Leaderboard
	if err := database.DB.Where("slug = ?", c.Param("slug")).First(&board).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Leaderboard not found"})
		return nil, false
	}
	return &board, true
}

// CreateLeaderboard godoc
// @Summary      Create a leaderboard (Admin only)
// @Tags         leaderboards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body LeaderboardInput true "Leaderboard Info"
// @Success      201 {object} models.Leaderboard
// @Failure      409 {object} ErrorResponse "Slug already exists"
// @Router       /admin/leaderboards [post]
func CreateLeaderboard(c *gin.Context) {
	var input LeaderboardInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	board := models.Leaderboard{
		Slug:        input.Slug,
		Name:        input.Name,
		Description: input.Description,
	}
	if err := database.DB.Create(&board).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Leaderboard slug already exists"})
		return
	}
	c.JSON(http.StatusCreated, board)
}

// ListLeaderboards godoc
// @Summary      List leaderboards
// @Tags         leaderboards
// @Produce      json
// @Security     BearerAuth
// @Param        page  query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(10)
// @Success      200 {object} PaginatedResponse[models.Leaderboard]
// @Router       /leaderboards [get]
func ListLeaderboards(c *gin.Context) {
	page, limit := pageParams(c)

	result, err := Paginate[models.Leaderboard](database.DB, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list leaderboards"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// SubmitScore godoc
// @Summary      Submit a score
// @Description  Records the score when it beats the caller's previous best on the board.
// @Tags         leaderboards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        slug  path string     true "Leaderboard slug"
// @Param        input body ScoreInput true "Score"
// @Success      200 {object} map[string]string "{"message": "Score recorded"}"
// @Failure      404 {object} ErrorResponse "Leaderboard not found"
// @Router       /leaderboards/{slug}/scores [post]
func SubmitScore(c *gin.Context) {
	userID, _ := c.Get("userID")

	board, ok := findLeaderboard(c)
	if !ok {
		return
	}

	var input ScoreInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Keep the best score per (board, user).
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var entry models.LeaderboardEntry
		err := tx.Where("leaderboard_id = ? AND user_id = ?", board.ID, userID).First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&models.LeaderboardEntry{
				LeaderboardID: board.ID,
				UserID:        userID.(uint),
				Score:         input.Score,
			}).Error
		}
		if err != nil {
			return err
		}
		if input.Score > entry.Score {
			return tx.Model(&entry).Update("score", input.Score).Error
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record score"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Score recorded"})
}

// GetLeaderboardTop godoc
// @Summary      Get the top of a leaderboard
// @Tags         leaderboards
// @Produce      json
// @Security     BearerAuth
// @Param        slug  path  string true  "Leaderboard slug"
// @Param        limit query int    false "Entries to return" default(10)
// @Success      200 {array} LeaderboardEntryResponse
// @Failure      404 {object} ErrorResponse "Leaderboard not found"
// @Router       /leaderboards/{slug} [get]
func GetLeaderboardTop(c *gin.Context) {
	board, ok := findLeaderboard(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	var entries []models.LeaderboardEntry
	database.DB.Preload("User").
		Where("leaderboard_id = ?", board.ID).
		Order("score desc, id asc").
		Limit(limit).
		Find(&entries)

	responses := make([]LeaderboardEntryResponse, 0, len(entries))
	for i, entry := range entries {
		responses = append(responses, LeaderboardEntryResponse{
			Rank:  i + 1,
			User:  buildPublicUserResponse(entry.User),
			Score: entry.Score,
		})
	}
	c.JSON(http.StatusOK, responses)
}

// GetMyRank godoc
// @Summary      Get own rank on a leaderboard
// @Tags         leaderboards
// @Produce      json
// @Security     BearerAuth
// @Param        slug path string true "Leaderboard slug"
// @Success      200 {object} LeaderboardEntryResponse
// @Failure      404 {object} ErrorResponse "No score on this board"
// @Router       /leaderboards/{slug}/me [get]
func GetMyRank(c *gin.Context) {
	userID, _ := c.Get("userID")

	board, ok := findLeaderboard(c)
	if !ok {
		return
	}

	var entry models.LeaderboardEntry
	if err := database.DB.Preload("User").
		Where("leaderboard_id = ? AND user_id = ?", board.ID, userID).
		First(&entry).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No score on this board"})
		return
	}

	var better int64
	database.DB.Model(&models.LeaderboardEntry{}).
		Where("leaderboard_id = ? AND (score > ? OR (score = ? AND id < ?))", board.ID, entry.Score, entry.Score, entry.ID).
		Count(&better)

	c.JSON(http.StatusOK, LeaderboardEntryResponse{
		Rank:  int(better) + 1,
		User:  buildPublicUserResponse(entry.User),
		Score: entry.Score,
	})
}

// ResetLeaderboard godoc
// @Summary      Reset a leaderboard (Admin only)
// @Tags         leaderboards
// @Produce      json
// @Security     BearerAuth
// @Param        slug path string true "Leaderboard slug"
// @Success      200 {object} map[string]string "{"message": "Leaderboard reset"}"
// @Failure      404 {object} ErrorResponse "Leaderboard not found"
// @Router       /admin/leaderboards/{slug}/scores [delete]
func ResetLeaderboard(c *gin.Context) {
	board, ok := findLeaderboard(c)
	if !ok {
		return
	}

	if err := database.DB.Where("leaderboard_id = ?", board.ID).Delete(&models.LeaderboardEntry{}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset leaderboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Leaderboard reset"})
}
