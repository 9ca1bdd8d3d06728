package models

import (
	"time"

	"gorm.io/gorm"
)

// PixCharge is one PIX transaction against a gateway. A split order owns two:
// the main leg and the tax leg, each with its own provider reference.
type PixCharge struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OrderID     uint   `gorm:"not null;index" json:"order_id"`
	SessionID   string `gorm:"size:64;not null;index" json:"session_id"`
	Gateway     string `gorm:"size:20;not null" json:"-"`
	ProviderRef string `gorm:"size:255;uniqueIndex" json:"provider_ref"`
	Leg         string `gorm:"size:10;not null;default:'main'" json:"leg"`
	AmountCents int64  `gorm:"not null" json:"amount_cents"`
	QRCode      string `gorm:"type:text" json:"qr_code"`
	Status      string `gorm:"size:20;not null;index" json:"status"`

	PixExpiresAt *time.Time     `json:"pix_expires_at"`
	PaidAt       *time.Time     `json:"paid_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Order Order `gorm:"foreignKey:OrderID" json:"-"`
}

func (PixCharge) TableName() string {
	return "pix_charges"
}
