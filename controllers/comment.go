package controllers

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"envie2sortir-backend/apperr"
	"envie2sortir-backend/config"
	"envie2sortir-backend/models"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateCommentInput struct {
	Content string `json:"content" binding:"required"`
	Rating  *int   `json:"rating"`
}

type UpdateCommentInput struct {
	Content *string `json:"content"`
	Rating  *int    `json:"rating"`
}

type ReplyInput struct {
	Reply string `json:"reply" binding:"required"`
}

type ReportInput struct {
	Reason string `json:"reason" binding:"required"`
}

func validateComment(content string, rating *int) string {
	if strings.TrimSpace(content) == "" {
		return "Content is required"
	}
	if utf8.RuneCountInString(content) > models.MaxCommentLength {
		return "Content must not exceed 2000 characters"
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return "Rating must be between 1 and 5"
	}
	return ""
}

// recomputeRating refreshes avg_rating and total_comments from live comments.
func recomputeRating(tx *gorm.DB, establishmentID uuid.UUID) error {
	var agg struct {
		Total int64
		Avg   *float64
	}
	if err := tx.Model(&models.UserComment{}).
		Select("COUNT(*) AS total, AVG(rating) AS avg").
		Where("establishment_id = ?", establishmentID).
		Scan(&agg).Error; err != nil {
		return err
	}

	avg := 0.0
	if agg.Avg != nil {
		avg = float64(int(*agg.Avg*10+0.5)) / 10
	}
	return tx.Model(&models.Establishment{}).Where("id = ?", establishmentID).
		UpdateColumns(map[string]interface{}{
			"avg_rating":     avg,
			"total_comments": agg.Total,
		}).Error
}

// GetComments lists an establishment's comments, newest first
func GetComments(c *gin.Context) {
	est, ok := approvedBySlug(c)
	if !ok {
		return
	}
	page, limit, offset := utils.Pagination(c)

	query := config.DB.Model(&models.UserComment{}).Where("establishment_id = ?", est.ID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count comments")
		return
	}

	var comments []models.UserComment
	if err := query.Preload("User").Order("created_at DESC").
		Limit(limit).Offset(offset).Find(&comments).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve comments")
		return
	}

	c.JSON(http.StatusOK, paginated(comments, total, page, limit))
}

// CreateComment posts a consumer review
func CreateComment(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}
	est, ok := approvedBySlug(c)
	if !ok {
		return
	}

	var input CreateCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if msg := validateComment(input.Content, input.Rating); msg != "" {
		utils.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}

	comment := models.UserComment{
		UserID:          userID,
		EstablishmentID: est.ID,
		Content:         strings.TrimSpace(input.Content),
		Rating:          input.Rating,
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return recomputeRating(tx, est.ID)
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create comment")
		return
	}

	c.JSON(http.StatusCreated, comment)
}

func findComment(c *gin.Context) (*models.UserComment, bool) {
	commentID, ok := uuidParam(c, "id", "comment")
	if !ok {
		return nil, false
	}

	var comment models.UserComment
	if err := config.DB.First(&comment, "id = ?", commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Comment not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	return &comment, true
}

// UpdateComment lets the author edit their comment
func UpdateComment(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}
	comment, ok := findComment(c)
	if !ok {
		return
	}
	if comment.UserID != userID {
		utils.RespondWithAppError(c, apperr.NewForbidden("You can only edit your own comments"))
		return
	}

	var input UpdateCommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	// Update fields if provided
	if input.Content != nil {
		comment.Content = strings.TrimSpace(*input.Content)
	}
	if input.Rating != nil {
		comment.Rating = input.Rating
	}
	if msg := validateComment(comment.Content, comment.Rating); msg != "" {
		utils.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(comment).Error; err != nil {
			return err
		}
		return recomputeRating(tx, comment.EstablishmentID)
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update comment")
		return
	}

	c.JSON(http.StatusOK, comment)
}

// DeleteComment removes a comment; authors and admins only
func DeleteComment(c *gin.Context) {
	userID, ok := principalID(c)
	if !ok {
		return
	}
	comment, ok := findComment(c)
	if !ok {
		return
	}
	if comment.UserID != userID && utils.CurrentRole(c) != models.RoleAdmin {
		utils.RespondWithAppError(c, apperr.NewForbidden("You can only delete your own comments"))
		return
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(comment).Error; err != nil {
			return err
		}
		return recomputeRating(tx, comment.EstablishmentID)
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete comment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

// ReplyToComment lets the establishment owner answer a review
func ReplyToComment(c *gin.Context) {
	est, ok := ownedEstablishment(c)
	if !ok {
		return
	}
	comment, ok := findComment(c)
	if !ok {
		return
	}
	if comment.EstablishmentID != est.ID {
		utils.RespondWithAppError(c, apperr.NewForbidden("You can only reply to comments on your establishment"))
		return
	}

	var input ReplyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	reply := strings.TrimSpace(input.Reply)
	if reply == "" || utf8.RuneCountInString(reply) > models.MaxCommentLength {
		utils.RespondWithError(c, http.StatusBadRequest, "Reply must be between 1 and 2000 characters")
		return
	}

	repliedAt := now()
	comment.EstablishmentReply = &reply
	comment.RepliedAt = &repliedAt
	if err := config.DB.Model(comment).Updates(map[string]interface{}{
		"establishment_reply": reply,
		"replied_at":          repliedAt,
	}).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to save reply")
		return
	}

	c.JSON(http.StatusOK, comment)
}

// ReportComment flags a comment for moderation
func ReportComment(c *gin.Context) {
	if _, ok := principalID(c); !ok {
		return
	}
	comment, ok := findComment(c)
	if !ok {
		return
	}

	var input ReportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "A report reason is required")
		return
	}

	reportedAt := now()
	if err := config.DB.Model(comment).Updates(map[string]interface{}{
		"is_reported":   true,
		"report_reason": strings.TrimSpace(input.Reason),
		"reported_at":   reportedAt,
	}).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to report comment")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment reported"})
}

// GetReportedComments lists flagged comments for admins
func GetReportedComments(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)
	query := config.DB.Model(&models.UserComment{}).Where("is_reported = ?", true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count comments")
		return
	}

	var comments []models.UserComment
	if err := query.Preload("User").Preload("Establishment").
		Order("reported_at DESC").Limit(limit).Offset(offset).Find(&comments).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve comments")
		return
	}

	c.JSON(http.StatusOK, paginated(comments, total, page, limit))
}
