package controllers

import (
	"errors"
	"net/http"
	"strings"

	"envie2sortir-backend/apperr"
	"envie2sortir-backend/config"
	"envie2sortir-backend/models"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxMessageLength = 5000

type CreateConversationInput struct {
	Subject string `json:"subject" binding:"required,max=200"`
	Message string `json:"message" binding:"required"`
}

type MessageInput struct {
	Content string `json:"content" binding:"required"`
}

func validMessage(c *gin.Context, content string) (string, bool) {
	content = strings.TrimSpace(content)
	if content == "" || len(content) > maxMessageLength {
		utils.RespondWithError(c, http.StatusBadRequest, "Message must be between 1 and 5000 characters")
		return "", false
	}
	return content, true
}

// loadConversation fetches a thread; ownerID restricts it to one professional.
func loadConversation(c *gin.Context, ownerID *uuid.UUID) (*models.Conversation, bool) {
	id, ok := uuidParam(c, "id", "conversation")
	if !ok {
		return nil, false
	}

	query := config.DB.Where("id = ?", id)
	if ownerID != nil {
		query = query.Where("professional_id = ?", *ownerID)
	}

	var conv models.Conversation
	if err := query.First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "Conversation not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	return &conv, true
}

// appendMessage stores a message and bumps the thread; closed threads are read-only.
func appendMessage(c *gin.Context, conv *models.Conversation, senderType string, senderID uuid.UUID, content string) {
	if conv.IsClosed() {
		utils.RespondWithAppError(c, apperr.NewConflict("Conversation is closed"))
		return
	}

	msg := models.Message{
		ConversationID: conv.ID,
		SenderType:     senderType,
		SenderID:       senderID,
		Content:        content,
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{"last_message_at": msg.CreatedAt}
		if senderType == models.SenderAdmin && conv.AdminID == nil {
			updates["admin_id"] = senderID
		}
		return tx.Model(conv).Updates(updates).Error
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to send message")
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// threadMessages returns the thread and marks the other party's messages read.
func threadMessages(c *gin.Context, conv *models.Conversation, readerType string) {
	otherType := models.SenderAdmin
	if readerType == models.SenderAdmin {
		otherType = models.SenderProfessional
	}

	var messages []models.Message
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_type = ? AND is_read = ?", conv.ID, otherType, false).
			Update("is_read", true).Error; err != nil {
			return err
		}
		return tx.Where("conversation_id = ?", conv.ID).Order("created_at ASC").Find(&messages).Error
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation": conv, "messages": messages})
}

// GetProConversations lists the professional's threads
func GetProConversations(c *gin.Context) {
	proID, ok := principalID(c)
	if !ok {
		return
	}

	var conversations []models.Conversation
	if err := config.DB.Where("professional_id = ?", proID).
		Order("last_message_at DESC").Find(&conversations).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve conversations")
		return
	}

	c.JSON(http.StatusOK, conversations)
}

// CreateConversation opens a thread with its first message
func CreateConversation(c *gin.Context) {
	proID, ok := principalID(c)
	if !ok {
		return
	}

	var input CreateConversationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	content, ok := validMessage(c, input.Message)
	if !ok {
		return
	}

	conv := models.Conversation{
		ProfessionalID: proID,
		Subject:        strings.TrimSpace(input.Subject),
		Status:         models.ConversationOpen,
		LastMessageAt:  now(),
	}
	msg := models.Message{
		SenderType: models.SenderProfessional,
		SenderID:   proID,
		Content:    content,
	}

	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		msg.ConversationID = conv.ID
		return tx.Create(&msg).Error
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create conversation")
		return
	}

	conv.Messages = []models.Message{msg}
	c.JSON(http.StatusCreated, conv)
}

// GetProMessages returns a thread of the professional
func GetProMessages(c *gin.Context) {
	proID, ok := principalID(c)
	if !ok {
		return
	}
	conv, ok := loadConversation(c, &proID)
	if !ok {
		return
	}
	threadMessages(c, conv, models.SenderProfessional)
}

// PostProMessage answers in one of the professional's threads
func PostProMessage(c *gin.Context) {
	proID, ok := principalID(c)
	if !ok {
		return
	}
	conv, ok := loadConversation(c, &proID)
	if !ok {
		return
	}

	var input MessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	content, ok := validMessage(c, input.Content)
	if !ok {
		return
	}
	appendMessage(c, conv, models.SenderProfessional, proID, content)
}

// GetAdminConversations lists every thread, optionally by status
func GetAdminConversations(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)
	query := config.DB.Model(&models.Conversation{})
	if status := c.Query("status"); status != "" {
		if status != models.ConversationOpen && status != models.ConversationClosed {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid status filter")
			return
		}
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count conversations")
		return
	}

	var conversations []models.Conversation
	if err := query.Preload("Professional").Order("last_message_at DESC").
		Limit(limit).Offset(offset).Find(&conversations).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve conversations")
		return
	}

	c.JSON(http.StatusOK, paginated(conversations, total, page, limit))
}

// GetAdminMessages returns any thread for admins
func GetAdminMessages(c *gin.Context) {
	conv, ok := loadConversation(c, nil)
	if !ok {
		return
	}
	threadMessages(c, conv, models.SenderAdmin)
}

// PostAdminMessage answers a thread as admin
func PostAdminMessage(c *gin.Context) {
	adminID, ok := principalID(c)
	if !ok {
		return
	}
	conv, ok := loadConversation(c, nil)
	if !ok {
		return
	}

	var input MessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	content, ok := validMessage(c, input.Content)
	if !ok {
		return
	}
	appendMessage(c, conv, models.SenderAdmin, adminID, content)
}

// CloseConversation makes a thread read-only
func CloseConversation(c *gin.Context) {
	conv, ok := loadConversation(c, nil)
	if !ok {
		return
	}
	if conv.IsClosed() {
		utils.RespondWithAppError(c, apperr.NewConflict("Conversation is already closed"))
		return
	}

	if err := config.DB.Model(conv).Update("status", models.ConversationClosed).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to close conversation")
		return
	}
	conv.Status = models.ConversationClosed

	c.JSON(http.StatusOK, conv)
}

// GetUnreadCount counts messages the caller has not read yet
func GetUnreadCount(c *gin.Context) {
	id, ok := principalID(c)
	if !ok {
		return
	}

	query := config.DB.Model(&models.Message{}).Where("messages.is_read = ?", false)
	switch utils.CurrentRole(c) {
	case models.RolePro:
		query = query.
			Joins("JOIN conversations ON conversations.id = messages.conversation_id").
			Where("conversations.professional_id = ? AND messages.sender_type = ?", id, models.SenderAdmin)
	case models.RoleAdmin:
		query = query.Where("messages.sender_type = ?", models.SenderProfessional)
	default:
		utils.RespondWithError(c, http.StatusForbidden, "Insufficient permissions")
		return
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{"unreadCount": count})
}
