package models

import "time"

// UtmifyDelivery tracks at-most-once delivery of a conversion event for a
// charge. The composite unique index is the backstop behind the in-store
// sent flags: a duplicate dispatch attempt fails the insert instead of
// reaching UTMify twice.
type UtmifyDelivery struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ChargeID  uint   `gorm:"not null;uniqueIndex:idx_charge_kind" json:"charge_id"`
	Kind      string `gorm:"size:10;not null;uniqueIndex:idx_charge_kind" json:"kind"`
	Attempts  int    `json:"attempts"`
	Delivered bool   `gorm:"index" json:"delivered"`
	Payload   string `gorm:"type:text" json:"-"`
	LastError string `gorm:"size:512" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UtmifyDelivery) TableName() string {
	return "utmify_deliveries"
}
