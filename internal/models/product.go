package models

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"size:120;not null;uniqueIndex" json:"name"`
	PriceCents int64  `gorm:"not null" json:"price_cents"`
	Category   string `gorm:"size:20;not null;index" json:"category"` // gas, water, combo
	ImageURL   string `gorm:"size:512" json:"image_url"`
	// Gas products are collected in two legs (70/30); water and accessories
	// are charged in full.
	SplitPayment bool `json:"split_payment"`
	Active       bool `gorm:"default:true;index" json:"active"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Product) TableName() string {
	return "products"
}
