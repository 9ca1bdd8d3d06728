package models

import "time"

// SmsReminder records the one unpaid-order reminder sent per charge.
type SmsReminder struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ChargeID   uint      `gorm:"not null;uniqueIndex" json:"charge_id"`
	Phone      string    `gorm:"size:20;not null" json:"phone"`
	ProviderID string    `gorm:"size:64" json:"provider_id"`
	SentAt     time.Time `json:"sent_at"`
}

func (SmsReminder) TableName() string {
	return "sms_reminders"
}
