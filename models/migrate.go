package models

import "gorm.io/gorm"

// All lists every persisted model in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Professional{},
		&Establishment{},
		&UserFavorite{},
		&DailyDeal{},
		&UserComment{},
		&Conversation{},
		&Message{},
		&EstablishmentLearningPattern{},
		&Tariff{},
		&Menu{},
		&NewsletterSubscriber{},
		&WaitlistEntry{},
		&NotificationLog{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
