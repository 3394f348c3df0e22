package controllers

import (
	"context"
	"net/http"
	"time"

	"envie2sortir-backend/config"
	"envie2sortir-backend/logger"
	"envie2sortir-backend/models"
	"envie2sortir-backend/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type AdminStats struct {
	Establishments      EstablishmentCounts  `json:"establishments"`
	Professionals       int64                `json:"professionals"`
	PremiumProfessional int64                `json:"premiumProfessionals"`
	Users               int64                `json:"users"`
	Comments            int64                `json:"comments"`
	ReportedComments    int64                `json:"reportedComments"`
	ActiveDeals         int64                `json:"activeDeals"`
	Subscribers         int64                `json:"activeSubscribers"`
	OpenConversations   int64                `json:"openConversations"`
	WaitlistWaiting     int64                `json:"waitlistWaiting"`
	NewThisMonth        int64                `json:"newEstablishmentsThisMonth"`
	MonthlyGrowth       float64              `json:"monthlyGrowth"`
	TopEstablishments   []EstablishmentViews `json:"topEstablishments"`
}

type EstablishmentCounts struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

type EstablishmentViews struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	ViewsCount  int     `json:"viewsCount"`
	ClicksCount int     `json:"clicksCount"`
	AvgRating   float64 `json:"avgRating"`
}

// GetAdminStats computes the admin dashboard counters concurrently
func GetAdminStats(c *gin.Context) {
	stats, err := collectAdminStats(c.Request.Context(), config.DB, now())
	if err != nil {
		logger.L().Error("admin stats failed", map[string]interface{}{"error": err})
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func collectAdminStats(ctx context.Context, db *gorm.DB, t time.Time) (*AdminStats, error) {
	stats := &AdminStats{}
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	firstOfPrevMonth := firstOfMonth.AddDate(0, -1, 0)
	var prevMonth int64

	g, ctx := errgroup.WithContext(ctx)
	count := func(dst *int64, model interface{}, where string, args ...interface{}) {
		g.Go(func() error {
			q := db.WithContext(ctx).Model(model)
			if where != "" {
				q = q.Where(where, args...)
			}
			return q.Count(dst).Error
		})
	}

	count(&stats.Establishments.Total, &models.Establishment{}, "")
	count(&stats.Establishments.Pending, &models.Establishment{}, "status = ?", models.StatusPending)
	count(&stats.Establishments.Approved, &models.Establishment{}, "status = ?", models.StatusApproved)
	count(&stats.Establishments.Rejected, &models.Establishment{}, "status = ?", models.StatusRejected)
	count(&stats.Professionals, &models.Professional{}, "")
	count(&stats.PremiumProfessional, &models.Professional{}, "subscription_plan = ?", models.PlanPremium)
	count(&stats.Users, &models.User{}, "role = ?", models.RoleUser)
	count(&stats.Comments, &models.UserComment{}, "")
	count(&stats.ReportedComments, &models.UserComment{}, "is_reported = ?", true)
	count(&stats.Subscribers, &models.NewsletterSubscriber{}, "is_active = ?", true)
	count(&stats.OpenConversations, &models.Conversation{}, "status = ?", models.ConversationOpen)
	count(&stats.WaitlistWaiting, &models.WaitlistEntry{}, "status = ?", models.WaitlistWaiting)
	count(&stats.NewThisMonth, &models.Establishment{}, "created_at >= ?", firstOfMonth)
	count(&prevMonth, &models.Establishment{}, "created_at >= ? AND created_at < ?", firstOfPrevMonth, firstOfMonth)

	g.Go(func() error {
		query := db.WithContext(ctx).Model(&models.DailyDeal{}).
			Joins("JOIN establishments ON establishments.id = daily_deals.establishment_id").
			Where("establishments.status = ?", models.StatusApproved)
		deals, err := activeDealsFor(query, t)
		if err != nil {
			return err
		}
		stats.ActiveDeals = int64(len(deals))
		return nil
	})

	g.Go(func() error {
		return db.WithContext(ctx).Model(&models.Establishment{}).
			Select("name, slug, views_count, clicks_count, avg_rating").
			Where("status = ?", models.StatusApproved).
			Order("views_count DESC").
			Limit(5).
			Scan(&stats.TopEstablishments).Error
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.MonthlyGrowth = growthPercentage(float64(stats.NewThisMonth), float64(prevMonth))
	if stats.TopEstablishments == nil {
		stats.TopEstablishments = []EstablishmentViews{}
	}
	return stats, nil
}

func growthPercentage(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return ((current - previous) / previous) * 100
}
