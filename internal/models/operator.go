package models

import "time"

// Operator is a back-office user of the gateway admin API.
type Operator struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:160;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Operator) TableName() string {
	return "operators"
}
