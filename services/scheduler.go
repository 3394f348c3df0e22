package services

import (
	"context"
	"time"

	"envie2sortir-backend/logger"
	"envie2sortir-backend/metrics"
	"envie2sortir-backend/models"
	"envie2sortir-backend/utils"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Scheduler runs periodic maintenance jobs.
type Scheduler struct {
	db   *gorm.DB
	cron *cron.Cron
	now  func() time.Time
}

func NewScheduler(db *gorm.DB) *Scheduler {
	return &Scheduler{
		db:   db,
		cron: cron.New(),
		now:  time.Now,
	}
}

// Start registers the deal expiry job on spec and starts the cron loop.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.ExpireDeals(context.Background()); err != nil {
			logger.L().Error("deal expiry job failed", map[string]interface{}{"error": err})
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	logger.L().Info("scheduler started", map[string]interface{}{"dealExpiry": spec})
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// ExpireDeals deactivates deals that can no longer become active.
func (s *Scheduler) ExpireDeals(ctx context.Context) (int64, error) {
	at := s.now()
	tomorrow := utils.BeginningOfDay(at).AddDate(0, 0, 1)

	var candidates []models.DailyDeal
	err := s.db.WithContext(ctx).
		Select("id", "date_fin", "is_recurring", "recurrence_end_date").
		Where("is_active = ?", true).
		Where(
			s.db.Where("is_recurring = ? AND date_fin < ?", false, tomorrow).
				Or("is_recurring = ? AND recurrence_end_date IS NOT NULL", true),
		).
		Find(&candidates).Error
	if err != nil {
		metrics.ScheduledJobRuns.WithLabelValues("deal_expiry", "error").Inc()
		return 0, err
	}

	var expired []uuid.UUID
	for i := range candidates {
		if candidates[i].IsExpiredAt(at) {
			expired = append(expired, candidates[i].ID)
		}
	}
	if len(expired) == 0 {
		metrics.ScheduledJobRuns.WithLabelValues("deal_expiry", "ok").Inc()
		return 0, nil
	}

	res := s.db.WithContext(ctx).Model(&models.DailyDeal{}).
		Where("id IN ?", expired).
		Update("is_active", false)
	if res.Error != nil {
		metrics.ScheduledJobRuns.WithLabelValues("deal_expiry", "error").Inc()
		return 0, res.Error
	}

	metrics.ScheduledJobRuns.WithLabelValues("deal_expiry", "ok").Inc()
	logger.L().Info("expired deals deactivated", map[string]interface{}{"count": res.RowsAffected})
	return res.RowsAffected, nil
}
