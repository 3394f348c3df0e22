package controllers

import (
	"errors"
	"net/http"

	"envie2sortir-backend/config"
	"envie2sortir-backend/models"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// principalID reads the authenticated id, answering 401 when absent.
func principalID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := utils.CurrentUserID(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	return id, true
}

// uuidParam parses a path parameter, answering 400 when malformed.
func uuidParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+label+" ID format")
		return uuid.Nil, false
	}
	return id, true
}

// ownedEstablishment loads the establishment of the authenticated professional.
func ownedEstablishment(c *gin.Context) (*models.Establishment, bool) {
	proID, ok := principalID(c)
	if !ok {
		return nil, false
	}

	var est models.Establishment
	if err := config.DB.Where("owner_id = ?", proID).First(&est).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Establishment not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	return &est, true
}

// approvedBySlug loads a publicly visible establishment.
func approvedBySlug(c *gin.Context) (*models.Establishment, bool) {
	var est models.Establishment
	if err := config.DB.Where("slug = ? AND status = ?", c.Param("slug"), models.StatusApproved).
		First(&est).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Establishment not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	return &est, true
}

func paginated(data interface{}, total int64, page, limit int) gin.H {
	pages := int((total + int64(limit) - 1) / int64(limit))
	return gin.H{
		"data": data,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": pages,
		},
	}
}
