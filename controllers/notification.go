package controllers

import (
	"net/http"

	"envie2sortir-backend/config"
	"envie2sortir-backend/models"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
)

// GetNotificationLogs lists outbound emails and SMS for admins
func GetNotificationLogs(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)
	query := config.DB.Model(&models.NotificationLog{})
	if channel := c.Query("channel"); channel != "" {
		query = query.Where("channel = ?", channel)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if kind := c.Query("type"); kind != "" {
		query = query.Where("type = ?", kind)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count notifications")
		return
	}

	var logs []models.NotificationLog
	if err := query.Order("sent_at DESC").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve notifications")
		return
	}

	c.JSON(http.StatusOK, paginated(logs, total, page, limit))
}
