package repository

import (
	"configas/internal/models"

	"gorm.io/gorm"
)

type ReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// AlreadySent reports whether a reminder was recorded for the charge.
func (r *ReminderRepository) AlreadySent(chargeID uint) bool {
	var count int64
	r.db.Model(&models.SmsReminder{}).Where("charge_id = ?", chargeID).Count(&count)
	return count > 0
}

func (r *ReminderRepository) Create(rem *models.SmsReminder) error {
	return r.db.Create(rem).Error
}
