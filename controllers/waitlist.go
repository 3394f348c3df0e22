package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"envie2sortir-backend/apperr"
	"envie2sortir-backend/config"
	"envie2sortir-backend/models"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// InviteSender emails waitlist invitations.
type InviteSender interface {
	SendWaitlistInvite(ctx context.Context, entry *models.WaitlistEntry, signupURL string) error
}

type WaitlistController struct {
	Invites InviteSender
	BaseURL string
}

type JoinWaitlistInput struct {
	Email             string `json:"email" binding:"required,email"`
	FirstName         string `json:"firstName" binding:"required"`
	LastName          string `json:"lastName"`
	Phone             string `json:"phone"`
	EstablishmentName string `json:"establishmentName" binding:"required"`
	City              string `json:"city"`
	Siret             string `json:"siret"`
}

// JoinWaitlist pre-registers a professional
func (wc *WaitlistController) JoinWaitlist(c *gin.Context) {
	var input JoinWaitlistInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.Phone != "" && !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number")
		return
	}
	siret := utils.NormalizeSiret(input.Siret)
	if siret != "" && !utils.ValidateSiret(siret) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid SIRET number")
		return
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var count int64
	if err := config.DB.Model(&models.WaitlistEntry{}).Where("email = ?", email).Count(&count).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}
	if count > 0 {
		utils.RespondWithAppError(c, apperr.NewConflict("Email already on the waitlist"))
		return
	}

	entry := models.WaitlistEntry{
		Email:             email,
		FirstName:         input.FirstName,
		LastName:          input.LastName,
		Phone:             input.Phone,
		EstablishmentName: strings.TrimSpace(input.EstablishmentName),
		City:              strings.TrimSpace(input.City),
		Siret:             siret,
		Status:            models.WaitlistWaiting,
	}
	if err := config.DB.Create(&entry).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to join waitlist")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// ListWaitlist returns waitlist entries for admins
func (wc *WaitlistController) ListWaitlist(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)
	query := config.DB.Model(&models.WaitlistEntry{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count entries")
		return
	}

	var entries []models.WaitlistEntry
	if err := query.Order("created_at ASC").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve entries")
		return
	}

	c.JSON(http.StatusOK, paginated(entries, total, page, limit))
}

// InviteFromWaitlist emails a signup invitation; re-inviting resends it
func (wc *WaitlistController) InviteFromWaitlist(c *gin.Context) {
	id, ok := uuidParam(c, "id", "waitlist entry")
	if !ok {
		return
	}

	var entry models.WaitlistEntry
	if err := config.DB.First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Waitlist entry not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	signupURL := strings.TrimRight(wc.BaseURL, "/") + "/pro/inscription?email=" + url.QueryEscape(entry.Email)
	if err := wc.Invites.SendWaitlistInvite(c.Request.Context(), &entry, signupURL); err != nil {
		utils.RespondWithError(c, http.StatusBadGateway, "Failed to send invitation")
		return
	}

	invitedAt := now()
	entry.Status = models.WaitlistInvited
	entry.InvitedAt = &invitedAt
	if err := config.DB.Model(&entry).Updates(map[string]interface{}{
		"status":     entry.Status,
		"invited_at": invitedAt,
	}).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update entry")
		return
	}

	c.JSON(http.StatusOK, entry)
}
