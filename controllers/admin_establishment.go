package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"envie2sortir-backend/apperr"
	"envie2sortir-backend/config"
	"envie2sortir-backend/logger"
	"envie2sortir-backend/models"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RejectEstablishmentInput struct {
	Reason string `json:"reason" binding:"required,min=3"`
}

// AdminListEstablishments lists establishments, optionally by status.
func (ec *EstablishmentController) AdminListEstablishments(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)

	query := config.DB.Model(&models.Establishment{})
	if status := c.Query("status"); status != "" {
		switch status {
		case models.StatusPending, models.StatusApproved, models.StatusRejected:
			query = query.Where("status = ?", status)
		default:
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid status filter")
			return
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count establishments")
		return
	}

	var establishments []models.Establishment
	if err := query.Preload("Owner").Order("created_at DESC").
		Limit(limit).Offset(offset).Find(&establishments).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve establishments")
		return
	}

	c.JSON(http.StatusOK, paginated(establishments, total, page, limit))
}

// ApproveEstablishment publishes a pending or rejected listing.
func (ec *EstablishmentController) ApproveEstablishment(c *gin.Context) {
	ec.review(c, models.StatusApproved, "")
}

// RejectEstablishment refuses a listing with a reason shown to the owner.
func (ec *EstablishmentController) RejectEstablishment(c *gin.Context) {
	var input RejectEstablishmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "A rejection reason is required")
		return
	}
	ec.review(c, models.StatusRejected, input.Reason)
}

func (ec *EstablishmentController) review(c *gin.Context, status, reason string) {
	id, ok := uuidParam(c, "id", "establishment")
	if !ok {
		return
	}

	var est models.Establishment
	if err := config.DB.Preload("Owner").First(&est, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Establishment not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if err := checkTransition(est.Status, status); err != nil {
		utils.RespondWithAppError(c, err)
		return
	}

	reviewedAt := now()
	est.Status = status
	est.RejectionReason = reason
	est.ReviewedAt = &reviewedAt

	if err := config.DB.Model(&est).Updates(map[string]interface{}{
		"status":           est.Status,
		"rejection_reason": est.RejectionReason,
		"reviewed_at":      est.ReviewedAt,
	}).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update establishment")
		return
	}

	ctx := c.Request.Context()
	ec.syncSearch(ctx, &est)
	if ec.Notifier != nil && est.Owner != nil {
		ec.Notifier.NotifyEstablishmentReviewed(ctx, est.Owner, &est)
	}

	c.JSON(http.StatusOK, est)
}

// checkTransition allows pending to approved or rejected, and re-review of a decided listing.
func checkTransition(from, to string) error {
	if from == to {
		return apperr.NewConflict(fmt.Sprintf("Establishment is already %s", from))
	}
	switch to {
	case models.StatusApproved, models.StatusRejected:
		return nil
	}
	return apperr.NewValidation(fmt.Sprintf("Cannot move establishment to %s", to))
}

// AdminDeleteEstablishment removes any listing with its dependents.
func (ec *EstablishmentController) AdminDeleteEstablishment(c *gin.Context) {
	id, ok := uuidParam(c, "id", "establishment")
	if !ok {
		return
	}

	if err := deleteEstablishmentCascade(config.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Establishment not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete establishment")
		}
		return
	}
	if ec.Search != nil {
		if err := ec.Search.Remove(c.Request.Context(), id); err != nil {
			logger.L().Warn("search index removal failed", map[string]interface{}{"establishmentId": id.String(), "error": err})
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "Establishment deleted successfully"})
}

// ExportEstablishmentsCSV streams every establishment as CSV.
func (ec *EstablishmentController) ExportEstablishmentsCSV(c *gin.Context) {
	var establishments []models.Establishment
	query := config.DB.Preload("Owner").Order("created_at ASC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&establishments).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve establishments")
		return
	}

	rows := make([][]string, 0, len(establishments))
	for _, e := range establishments {
		ownerEmail, siret := "", ""
		if e.Owner != nil {
			ownerEmail, siret = e.Owner.Email, e.Owner.Siret
		}
		rows = append(rows, []string{
			e.ID.String(), e.Name, e.Slug, e.Status, e.Category, e.Address, e.PostalCode, e.City,
			ownerEmail, siret,
			strconv.FormatFloat(e.AvgRating, 'f', 2, 64),
			strconv.Itoa(e.TotalComments),
			strconv.Itoa(e.ViewsCount),
			strconv.Itoa(e.ClicksCount),
			e.CreatedAt.Format(time.RFC3339),
		})
	}
	writeCSV(c, fmt.Sprintf("establishments-%s.csv", now().Format("2006-01-02")), []string{
		"id", "name", "slug", "status", "category", "address", "postal_code", "city",
		"owner_email", "siret", "avg_rating", "total_comments", "views", "clicks", "created_at",
	}, rows)
}
