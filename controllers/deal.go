package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"envie2sortir-backend/config"
	"envie2sortir-backend/models"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateDealInput defines the expected JSON structure for creating a deal
type CreateDealInput struct {
	Title             string   `json:"title" binding:"required,max=200"`
	Description       string   `json:"description"`
	OriginalPrice     *float64 `json:"originalPrice"`
	DiscountedPrice   *float64 `json:"discountedPrice"`
	ImageURL          string   `json:"imageUrl"`
	DateDebut         string   `json:"dateDebut" binding:"required"`
	DateFin           string   `json:"dateFin"`
	HeureDebut        string   `json:"heureDebut"`
	HeureFin          string   `json:"heureFin"`
	IsRecurring       bool     `json:"isRecurring"`
	RecurrenceDays    []int    `json:"recurrenceDays"`
	RecurrenceEndDate string   `json:"recurrenceEndDate"`
}

// UpdateDealInput defines the expected JSON structure for updating a deal
type UpdateDealInput struct {
	Title             *string  `json:"title"`
	Description       *string  `json:"description"`
	OriginalPrice     *float64 `json:"originalPrice"`
	DiscountedPrice   *float64 `json:"discountedPrice"`
	ImageURL          *string  `json:"imageUrl"`
	DateDebut         *string  `json:"dateDebut"`
	DateFin           *string  `json:"dateFin"`
	HeureDebut        *string  `json:"heureDebut"`
	HeureFin          *string  `json:"heureFin"`
	IsActive          *bool    `json:"isActive"`
	IsRecurring       *bool    `json:"isRecurring"`
	RecurrenceDays    *[]int   `json:"recurrenceDays"`
	RecurrenceEndDate *string  `json:"recurrenceEndDate"`
}

// validateDeal checks the date, hour and recurrence rules of a deal.
func validateDeal(d *models.DailyDeal) string {
	if d.DateFin.Before(d.DateDebut) {
		return "dateFin must not be before dateDebut"
	}
	if (d.HeureDebut == "") != (d.HeureFin == "") {
		return "heureDebut and heureFin must be provided together"
	}
	if d.HeureDebut != "" && (!utils.ValidateClock(d.HeureDebut) || !utils.ValidateClock(d.HeureFin)) {
		return "Hours must use the HH:MM format"
	}
	if d.OriginalPrice != nil && *d.OriginalPrice < 0 || d.DiscountedPrice != nil && *d.DiscountedPrice < 0 {
		return "Prices must be positive"
	}
	if d.OriginalPrice != nil && d.DiscountedPrice != nil && *d.DiscountedPrice > *d.OriginalPrice {
		return "discountedPrice must not exceed originalPrice"
	}
	if d.IsRecurring {
		if len(d.RecurrenceDays) == 0 {
			return "recurrenceDays is required for a recurring deal"
		}
		for _, day := range d.RecurrenceDays {
			if day < 1 || day > 7 {
				return "recurrenceDays must be between 1 (Monday) and 7 (Sunday)"
			}
		}
		if d.RecurrenceEndDate != nil && d.RecurrenceEndDate.Before(d.DateDebut) {
			return "recurrenceEndDate must not be before dateDebut"
		}
	}
	return ""
}

func parseOptionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := utils.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateDeal adds a deal to the professional's establishment
func CreateDeal(c *gin.Context) {
	est, ok := ownedEstablishment(c)
	if !ok {
		return
	}

	var input CreateDealInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	start, err := utils.ParseDate(input.DateDebut)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid dateDebut")
		return
	}
	end := start
	if input.DateFin != "" {
		if end, err = utils.ParseDate(input.DateFin); err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid dateFin")
			return
		}
	}
	recurrenceEnd, err := parseOptionalDate(input.RecurrenceEndDate)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid recurrenceEndDate")
		return
	}

	deal := models.DailyDeal{
		EstablishmentID:   est.ID,
		Title:             strings.TrimSpace(input.Title),
		Description:       input.Description,
		OriginalPrice:     input.OriginalPrice,
		DiscountedPrice:   input.DiscountedPrice,
		ImageURL:          input.ImageURL,
		DateDebut:         start,
		DateFin:           end,
		HeureDebut:        input.HeureDebut,
		HeureFin:          input.HeureFin,
		IsActive:          true,
		IsRecurring:       input.IsRecurring,
		RecurrenceDays:    input.RecurrenceDays,
		RecurrenceEndDate: recurrenceEnd,
	}
	if deal.RecurrenceDays == nil {
		deal.RecurrenceDays = []int{}
	}
	if msg := validateDeal(&deal); msg != "" {
		utils.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}

	if err := config.DB.Create(&deal).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create deal")
		return
	}

	c.JSON(http.StatusCreated, deal)
}

// GetMyDeals lists every deal of the professional's establishment
func GetMyDeals(c *gin.Context) {
	est, ok := ownedEstablishment(c)
	if !ok {
		return
	}

	var deals []models.DailyDeal
	if err := config.DB.Where("establishment_id = ?", est.ID).
		Order("date_debut DESC").Find(&deals).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve deals")
		return
	}

	c.JSON(http.StatusOK, deals)
}

func findOwnedDeal(c *gin.Context) (*models.DailyDeal, bool) {
	est, ok := ownedEstablishment(c)
	if !ok {
		return nil, false
	}
	dealID, ok := uuidParam(c, "id", "deal")
	if !ok {
		return nil, false
	}

	var deal models.DailyDeal
	if err := config.DB.Where("establishment_id = ? AND id = ?", est.ID, dealID).
		First(&deal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Deal not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	return &deal, true
}

// UpdateDeal updates an existing deal
func UpdateDeal(c *gin.Context) {
	deal, ok := findOwnedDeal(c)
	if !ok {
		return
	}

	var input UpdateDealInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	// Update fields if provided
	if input.Title != nil {
		deal.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		deal.Description = *input.Description
	}
	if input.OriginalPrice != nil {
		deal.OriginalPrice = input.OriginalPrice
	}
	if input.DiscountedPrice != nil {
		deal.DiscountedPrice = input.DiscountedPrice
	}
	if input.ImageURL != nil {
		deal.ImageURL = *input.ImageURL
	}
	if input.DateDebut != nil {
		t, err := utils.ParseDate(*input.DateDebut)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid dateDebut")
			return
		}
		deal.DateDebut = t
	}
	if input.DateFin != nil {
		t, err := utils.ParseDate(*input.DateFin)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid dateFin")
			return
		}
		deal.DateFin = t
	}
	if input.HeureDebut != nil {
		deal.HeureDebut = *input.HeureDebut
	}
	if input.HeureFin != nil {
		deal.HeureFin = *input.HeureFin
	}
	if input.IsActive != nil {
		deal.IsActive = *input.IsActive
	}
	if input.IsRecurring != nil {
		deal.IsRecurring = *input.IsRecurring
	}
	if input.RecurrenceDays != nil {
		deal.RecurrenceDays = *input.RecurrenceDays
	}
	if input.RecurrenceEndDate != nil {
		t, err := parseOptionalDate(*input.RecurrenceEndDate)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid recurrenceEndDate")
			return
		}
		deal.RecurrenceEndDate = t
	}
	if deal.Title == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Title cannot be empty")
		return
	}
	if deal.IsRecurring && deal.RecurrenceType == "" {
		deal.RecurrenceType = models.RecurrenceWeekly
	}
	if msg := validateDeal(deal); msg != "" {
		utils.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}

	if err := config.DB.Save(deal).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update deal")
		return
	}

	c.JSON(http.StatusOK, deal)
}

// DeleteDeal removes a deal
func DeleteDeal(c *gin.Context) {
	deal, ok := findOwnedDeal(c)
	if !ok {
		return
	}

	if err := config.DB.Delete(deal).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete deal")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deal deleted successfully"})
}

// activeDealsFor loads flagged deals from query and keeps those active at t.
func activeDealsFor(query *gorm.DB, t time.Time) ([]models.DailyDeal, error) {
	var deals []models.DailyDeal
	if err := query.Where("daily_deals.is_active = ?", true).
		Order("daily_deals.date_debut ASC").Find(&deals).Error; err != nil {
		return nil, err
	}

	active := make([]models.DailyDeal, 0, len(deals))
	for _, d := range deals {
		if d.IsActiveAt(t) {
			active = append(active, d)
		}
	}
	return active, nil
}

// GetActiveDeals lists deals active right now on approved establishments
func GetActiveDeals(c *gin.Context) {
	query := config.DB.Model(&models.DailyDeal{}).
		Joins("JOIN establishments ON establishments.id = daily_deals.establishment_id").
		Where("establishments.status = ?", models.StatusApproved).
		Preload("Establishment")
	if city := strings.TrimSpace(c.Query("city")); city != "" {
		query = query.Where("LOWER(establishments.city) = ?", strings.ToLower(city))
	}

	deals, err := activeDealsFor(query, now())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve deals")
		return
	}

	c.JSON(http.StatusOK, deals)
}

// GetEstablishmentDeals lists the active deals of one public establishment
func GetEstablishmentDeals(c *gin.Context) {
	est, ok := approvedBySlug(c)
	if !ok {
		return
	}

	deals, err := activeDealsFor(config.DB.Where("establishment_id = ?", est.ID), now())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve deals")
		return
	}

	c.JSON(http.StatusOK, deals)
}
