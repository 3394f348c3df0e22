package controllers

import (
	"errors"
	"net/http"
	"strings"

	"envie2sortir-backend/config"
	"envie2sortir-backend/models"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateTariffInput defines the expected JSON structure for creating a tariff
type CreateTariffInput struct {
	Label        string  `json:"label" binding:"required"`
	Description  string  `json:"description"`
	Price        float64 `json:"price" binding:"min=0"`
	Category     string  `json:"category"`
	DisplayOrder int     `json:"displayOrder"`
}

// UpdateTariffInput defines the expected JSON structure for updating a tariff
type UpdateTariffInput struct {
	Label        *string  `json:"label"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price"`
	Category     *string  `json:"category"`
	DisplayOrder *int     `json:"displayOrder"`
}

type CreateMenuInput struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	FileURL      string `json:"fileUrl" binding:"required"`
	DisplayOrder int    `json:"displayOrder"`
}

type UpdateMenuInput struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	FileURL      *string `json:"fileUrl"`
	DisplayOrder *int    `json:"displayOrder"`
}

// CreateTariff adds a price line to the owner's establishment
func CreateTariff(c *gin.Context) {
	est, ok := ownedEstablishment(c)
	if !ok {
		return
	}

	var input CreateTariffInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	tariff := models.Tariff{
		EstablishmentID: est.ID,
		Label:           strings.TrimSpace(input.Label),
		Description:     input.Description,
		Price:           input.Price,
		Category:        input.Category,
		DisplayOrder:    input.DisplayOrder,
	}

	if err := config.DB.Create(&tariff).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create tariff")
		return
	}

	c.JSON(http.StatusCreated, tariff)
}

// GetTariffs lists the owner's tariffs
func GetTariffs(c *gin.Context) {
	est, ok := ownedEstablishment(c)
	if !ok {
		return
	}

	var tariffs []models.Tariff
	if err := config.DB.Where("establishment_id = ?", est.ID).
		Order("display_order ASC, created_at ASC").Find(&tariffs).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve tariffs")
		return
	}

	c.JSON(http.StatusOK, tariffs)
}

func findOwnedTariff(c *gin.Context, est *models.Establishment) (*models.Tariff, bool) {
	id, ok := uuidParam(c, "id", "tariff")
	if !ok {
		return nil, false
	}

	var tariff models.Tariff
	if err := config.DB.Where("establishment_id = ? AND id = ?", est.ID, id).
		First(&tariff).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Tariff not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	return &tariff, true
}

// UpdateTariff updates an existing tariff
func UpdateTariff(c *gin.Context) {
	est, ok := ownedEstablishment(c)
	if !ok {
		return
	}

	var input UpdateTariffInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	tariff, ok := findOwnedTariff(c, est)
	if !ok {
		return
	}

	// Update fields if provided
	if input.Label != nil {
		if strings.TrimSpace(*input.Label) == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "Label cannot be empty")
			return
		}
		tariff.Label = strings.TrimSpace(*input.Label)
	}
	if input.Description != nil {
		tariff.Description = *input.Description
	}
	if input.Price != nil {
		if *input.Price < 0 {
			utils.RespondWithError(c, http.StatusBadRequest, "Price cannot be negative")
			return
		}
		tariff.Price = *input.Price
	}
	if input.Category != nil {
		tariff.Category = *input.Category
	}
	if input.DisplayOrder != nil {
		tariff.DisplayOrder = *input.DisplayOrder
	}

	if err := config.DB.Save(tariff).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update tariff")
		return
	}

	c.JSON(http.StatusOK, tariff)
}

// DeleteTariff removes a tariff
func DeleteTariff(c *gin.Context) {
	est, ok := ownedEstablishment(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "tariff")
	if !ok {
		return
	}

	result := config.DB.Where("establishment_id = ? AND id = ?", est.ID, id).
		Delete(&models.Tariff{})

	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete tariff")
		return
	}

	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Tariff not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tariff deleted successfully"})
}

// CreateMenu attaches a menu document to the owner's establishment
func CreateMenu(c *gin.Context) {
	est, ok := ownedEstablishment(c)
	if !ok {
		return
	}

	var input CreateMenuInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	menu := models.Menu{
		EstablishmentID: est.ID,
		Name:            strings.TrimSpace(input.Name),
		Description:     input.Description,
		FileURL:         input.FileURL,
		DisplayOrder:    input.DisplayOrder,
	}

	if err := config.DB.Create(&menu).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create menu")
		return
	}

	c.JSON(http.StatusCreated, menu)
}

func GetMenus(c *gin.Context) {
	est, ok := ownedEstablishment(c)
	if !ok {
		return
	}

	var menus []models.Menu
	if err := config.DB.Where("establishment_id = ?", est.ID).
		Order("display_order ASC, created_at ASC").Find(&menus).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve menus")
		return
	}

	c.JSON(http.StatusOK, menus)
}

func UpdateMenu(c *gin.Context) {
	est, ok := ownedEstablishment(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "menu")
	if !ok {
		return
	}

	var input UpdateMenuInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var menu models.Menu
	if err := config.DB.Where("establishment_id = ? AND id = ?", est.ID, id).
		First(&menu).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Menu not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	// Update fields if provided
	if input.Name != nil {
		menu.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		menu.Description = *input.Description
	}
	if input.FileURL != nil {
		menu.FileURL = *input.FileURL
	}
	if input.DisplayOrder != nil {
		menu.DisplayOrder = *input.DisplayOrder
	}
	if menu.Name == "" || menu.FileURL == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Name and file URL are required")
		return
	}

	if err := config.DB.Save(&menu).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update menu")
		return
	}

	c.JSON(http.StatusOK, menu)
}

func DeleteMenu(c *gin.Context) {
	est, ok := ownedEstablishment(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id", "menu")
	if !ok {
		return
	}

	result := config.DB.Where("establishment_id = ? AND id = ?", est.ID, id).
		Delete(&models.Menu{})
	if result.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete menu")
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Menu not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Menu deleted successfully"})
}
