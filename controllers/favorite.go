package controllers

import (
	"errors"
	"net/http"

	"envie2sortir-backend/config"
	"envie2sortir-backend/models"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetFavorites lists the consumer's saved establishments
func GetFavorites(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}

	var favorites []models.UserFavorite
	if err := config.DB.Preload("Establishment").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favorites).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve favorites")
		return
	}

	c.JSON(http.StatusOK, favorites)
}

// AddFavorite saves an establishment; adding twice is a no-op
func AddFavorite(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}
	establishmentID, ok := uuidParam(c, "establishmentId", "establishment")
	if !ok {
		return
	}

	var est models.Establishment
	if err := config.DB.Select("id").
		Where("id = ? AND status = ?", establishmentID, models.StatusApproved).
		First(&est).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Establishment not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	favorite := models.UserFavorite{UserID: userID, EstablishmentID: establishmentID}
	if err := config.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "establishment_id"}},
		DoNothing: true,
	}).Create(&favorite).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to add favorite")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Added to favorites", "establishmentId": establishmentID})
}

// RemoveFavorite deletes a saved establishment
func RemoveFavorite(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}
	establishmentID, ok := uuidParam(c, "establishmentId", "establishment")
	if !ok {
		return
	}

	result := config.DB.Where("user_id = ? AND establishment_id = ?", userID, establishmentID).
		Delete(&models.UserFavorite{})
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to remove favorite")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Favorite not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Removed from favorites"})
}
