package controllers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"envie2sortir-backend/config"
	"envie2sortir-backend/models"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const newsletterSendConcurrency = 5

// Mailer sends one HTML email.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, htmlBody, kind string) error
}

type NewsletterController struct {
	Mailer  Mailer
	BaseURL string
}

type SubscribeInput struct {
	Email       string       `json:"email" binding:"required,email"`
	Preferences models.JSONB `json:"preferences"`
}

type SendNewsletterInput struct {
	Subject string `json:"subject" binding:"required,max=200"`
	HTML    string `json:"html" binding:"required"`
}

type NewsletterStats struct {
	Total      int64 `json:"total"`
	Active     int64 `json:"active"`
	Inactive   int64 `json:"inactive"`
	Verified   int64 `json:"verified"`
	NewLast30d int64 `json:"newLast30Days"`
}

// Subscribe adds an email to the newsletter or reactivates it
func (nc *NewsletterController) Subscribe(c *gin.Context) {
	var input SubscribeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "A valid email is required")
		return
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var sub models.NewsletterSubscriber
	err := config.DB.Where("email = ?", email).First(&sub).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{"is_active": true, "unsubscribed_at": nil}
		if input.Preferences != nil {
			updates["preferences"] = input.Preferences
		}
		if err := config.DB.Model(&sub).Updates(updates).Error; err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update subscription")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Subscription active"})

	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = models.NewsletterSubscriber{
			Email:            email,
			IsActive:         true,
			UnsubscribeToken: utils.RandomToken(24),
			Preferences:      input.Preferences,
		}
		if sub.Preferences == nil {
			sub.Preferences = models.JSONB{}
		}
		if err := config.DB.Create(&sub).Error; err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to subscribe")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Subscribed"})

	default:
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
	}
}

// Unsubscribe deactivates the subscription matching the token
func (nc *NewsletterController) Unsubscribe(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Token is required")
		return
	}

	res := config.DB.Model(&models.NewsletterSubscriber{}).
		Where("unsubscribe_token = ?", token).
		Updates(map[string]interface{}{"is_active": false, "unsubscribed_at": now()})
	if res.Error != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to unsubscribe")
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Subscription not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed"})
}

func subscriberQuery(c *gin.Context) *gorm.DB {
	query := config.DB.Model(&models.NewsletterSubscriber{})
	switch c.Query("active") {
	case "true":
		query = query.Where("is_active = ?", true)
	case "false":
		query = query.Where("is_active = ?", false)
	}
	return query
}

// ListSubscribers returns subscribers for admins
func (nc *NewsletterController) ListSubscribers(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)
	query := subscriberQuery(c)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to count subscribers")
		return
	}

	var subs []models.NewsletterSubscriber
	if err := query.Order("subscribed_at DESC").Limit(limit).Offset(offset).Find(&subs).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve subscribers")
		return
	}

	c.JSON(http.StatusOK, paginated(subs, total, page, limit))
}

// GetNewsletterStats summarises the subscriber base
func (nc *NewsletterController) GetNewsletterStats(c *gin.Context) {
	var stats NewsletterStats
	counts := []struct {
		dest  *int64
		where string
		args  []interface{}
	}{
		{&stats.Total, "", nil},
		{&stats.Active, "is_active = ?", []interface{}{true}},
		{&stats.Verified, "is_verified = ?", []interface{}{true}},
		{&stats.NewLast30d, "subscribed_at >= ?", []interface{}{now().AddDate(0, 0, -30)}},
	}
	for _, q := range counts {
		db := config.DB.Model(&models.NewsletterSubscriber{})
		if q.where != "" {
			db = db.Where(q.where, q.args...)
		}
		if err := db.Count(q.dest).Error; err != nil {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to compute stats")
			return
		}
	}
	stats.Inactive = stats.Total - stats.Active

	c.JSON(http.StatusOK, stats)
}

// ExportSubscribersCSV downloads subscribers as CSV
func (nc *NewsletterController) ExportSubscribersCSV(c *gin.Context) {
	var subs []models.NewsletterSubscriber
	if err := subscriberQuery(c).Order("subscribed_at ASC").Find(&subs).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve subscribers")
		return
	}

	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		unsubscribed := ""
		if s.UnsubscribedAt != nil {
			unsubscribed = s.UnsubscribedAt.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			s.Email,
			fmt.Sprint(s.IsActive),
			fmt.Sprint(s.IsVerified),
			s.SubscribedAt.Format(time.RFC3339),
			unsubscribed,
		})
	}
	writeCSV(c, fmt.Sprintf("newsletter-%s.csv", now().Format("2006-01-02")),
		[]string{"email", "active", "verified", "subscribed_at", "unsubscribed_at"}, rows)
}

// SendNewsletter mails the campaign to every active subscriber
func (nc *NewsletterController) SendNewsletter(c *gin.Context) {
	var input SendNewsletterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Subject and html are required")
		return
	}

	var subs []models.NewsletterSubscriber
	if err := config.DB.Where("is_active = ?", true).Find(&subs).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve subscribers")
		return
	}

	var sent, failed int64
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.SetLimit(newsletterSendConcurrency)
	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			body := input.HTML + nc.unsubscribeFooter(sub.UnsubscribeToken)
			if err := nc.Mailer.SendEmail(ctx, sub.Email, input.Subject, body, "newsletter"); err != nil {
				atomic.AddInt64(&failed, 1)
				return nil
			}
			atomic.AddInt64(&sent, 1)
			return nil
		})
	}
	_ = g.Wait()

	c.JSON(http.StatusOK, gin.H{
		"recipients": len(subs),
		"sent":       sent,
		"failed":     failed,
	})
}

func (nc *NewsletterController) unsubscribeFooter(token string) string {
	link := fmt.Sprintf("%s/api/newsletter/unsubscribe?token=%s", strings.TrimRight(nc.BaseURL, "/"), token)
	return fmt.Sprintf(`<hr><p style="font-size:12px">Pour ne plus recevoir cette newsletter : <a href="%s">se désinscrire</a></p>`, html.EscapeString(link))
}
