package handler

import (
	"errors"
	"net/http"

	"squadup/backend/internal/database"
	"squadup/backend/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// region --- DTOs ---

type StoreObjectInput struct {
	Value string `json:"value" binding:"required"`
}

type StoreObjectResponse struct {
	Collection string `json:"collection"`
	Key        string `json:"key"`
	Value      string `json:"value"`
}

// endregion

// GetStoreObject godoc
// @Summary      Read a stored object
// @Tags         storage
// @Produce      json
// @Security     BearerAuth
// @Param        collection path string true "Collection"
// @Param        key        path string true "Key"
// @Success      200 {object} StoreObjectResponse
// @Failure      404 {object} ErrorResponse "Object not found"
// @Router       /storage/{collection}/{key} [get]
func GetStoreObject(c *gin.Context) {
	userID, _ := c.Get("userID")

	var object models.StoreObject
	err := database.DB.Where(
		"user_id = ? AND collection = ? AND key = ?",
		userID, c.Param("collection"), c.Param("key"),
	).First(&object).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Object not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read object"})
		return
	}

	c.JSON(http.StatusOK, StoreObjectResponse{
		Collection: object.Collection,
		Key:        object.Key,
		Value:      object.Value,
	})
}

// ListStoreObjects godoc
// @Summary      List stored objects in a collection
// @Tags         storage
// @Produce      json
// @Security     BearerAuth
// @Param        collection path string true "Collection"
// @Success      200 {array} StoreObjectResponse
// @Router       /storage/{collection} [get]
func ListStoreObjects(c *gin.Context) {
	userID, _ := c.Get("userID")

	var objects []models.StoreObject
	if err := database.DB.Where(
		"user_id = ? AND collection = ?",
		userID, c.Param("collection"),
	).Order("key asc").Find(&objects).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list objects"})
		return
	}

	responses := make([]StoreObjectResponse, 0, len(objects))
	for _, object := range objects {
		responses = append(responses, StoreObjectResponse{
			Collection: object.Collection,
			Key:        object.Key,
			Value:      object.Value,
		})
	}
	c.JSON(http.StatusOK, responses)
}

// PutStoreObject godoc
// @Summary      Write a stored object
// @Description  Creates or overwrites the object at (collection, key).
// @Tags         storage
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        collection path string           true "Collection"
// @Param        key        path string           true "Key"
// @Param        input      body StoreObjectInput true "Value"
// @Success      200 {object} StoreObjectResponse
// @Router       /storage/{collection}/{key} [put]
func PutStoreObject(c *gin.Context) {
	userID, _ := c.Get("userID")

	var input StoreObjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	object := models.StoreObject{
		UserID:     userID.(uint),
		Collection: c.Param("collection"),
		Key:        c.Param("key"),
		Value:      input.Value,
	}
	err := database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "collection"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&object).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write object"})
		return
	}

	c.JSON(http.StatusOK, StoreObjectResponse{
		Collection: object.Collection,
		Key:        object.Key,
		Value:      object.Value,
	})
}

// DeleteStoreObject godoc
// @Summary      Delete a stored object
// @Tags         storage
// @Produce      json
// @Security     BearerAuth
// @Param        collection path string true "Collection"
// @Param        key        path string true "Key"
// @Success      200 {object} map[string]string "{"message": "Object deleted"}"
// @Failure      404 {object} ErrorResponse "Object not found"
// @Router       /storage/{collection}/{key} [delete]
func DeleteStoreObject(c *gin.Context) {
	userID, _ := c.Get("userID")

	// Hard delete: a soft-deleted row would keep holding the unique
	// (user, collection, key) slot against future writes.
	res := database.DB.Unscoped().Where(
		"user_id = ? AND collection = ? AND key = ?",
		userID, c.Param("collection"), c.Param("key"),
	).Delete(&models.StoreObject{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete object"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Object not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Object deleted"})
}
