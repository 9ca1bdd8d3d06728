package store

import (
	"errors"
	"log"

	"configas/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore persists entries in the kv_entries table.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(key string) ([]byte, bool) {
	var entry models.KVEntry
	err := s.db.First(&entry, "`key` = ?", key).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			// Storage failures degrade to "absent"; callers fall back to
			// fresh state instead of erroring the checkout.
			log.Printf("[Store] get %s: %v", key, err)
		}
		return nil, false
	}
	return []byte(entry.Value), true
}

func (s *GormStore) Set(key string, value []byte) error {
	entry := models.KVEntry{Key: key, Value: string(value)}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (s *GormStore) Delete(key string) {
	if err := s.db.Delete(&models.KVEntry{}, "`key` = ?", key).Error; err != nil {
		log.Printf("[Store] delete %s: %v", key, err)
	}
}
