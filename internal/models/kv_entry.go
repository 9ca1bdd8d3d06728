package models

import "time"

// KVEntry is one row of the string-keyed JSON store the checkout state
// machine runs on (gateway session, pending charge snapshots, UTM params,
// analytics flags).
type KVEntry struct {
	Key       string    `gorm:"primaryKey;size:191" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
