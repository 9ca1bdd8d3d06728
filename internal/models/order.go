package models

import (
	"time"

	"gorm.io/gorm"
)

type Order struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	SessionID string `gorm:"size:64;not null;index" json:"session_id"`

	CustomerName     string `gorm:"size:120" json:"customer_name"`
	CustomerEmail    string `gorm:"size:160" json:"customer_email"`
	CustomerPhone    string `gorm:"size:20" json:"customer_phone"`
	CustomerDocument string `gorm:"size:14" json:"-"`

	Street       string `gorm:"size:160" json:"street"`
	StreetNumber string `gorm:"size:20" json:"street_number"`
	Complement   string `gorm:"size:120" json:"complement"`
	Neighborhood string `gorm:"size:120" json:"neighborhood"`
	City         string `gorm:"size:120" json:"city"`
	State        string `gorm:"size:2" json:"state"`
	ZipCode      string `gorm:"size:9" json:"zip_code"`

	Items         string `gorm:"type:text" json:"items"` // JSON []OrderItem
	TotalCents    int64  `gorm:"not null" json:"total_cents"`
	DiscountCents int64  `json:"discount_cents"`
	Split         bool   `json:"split"` // gas orders: 70% main leg + 30% tax leg
	Gateway       string `gorm:"size:20" json:"-"`
	ConversionTag string `gorm:"size:64" json:"conversion_tag"`
	Status        string `gorm:"size:20;not null;index" json:"status"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is the JSON element stored in Order.Items.
type OrderItem struct {
	Title          string `json:"title"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}
