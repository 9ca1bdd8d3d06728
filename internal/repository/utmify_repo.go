package repository

import (
	"errors"

	"configas/internal/models"

	"gorm.io/gorm"
)

type UtmifyRepository struct {
	db *gorm.DB
}

func NewUtmifyRepository(db *gorm.DB) *UtmifyRepository {
	return &UtmifyRepository{db: db}
}

// Claim inserts the (charge, kind) delivery row. A second claim for the same
// pair reports claimed=false without error, which is how concurrent webhook
// and poller paths settle on a single sender.
func (r *UtmifyRepository) Claim(chargeID uint, kind string) (*models.UtmifyDelivery, bool, error) {
	d := models.UtmifyDelivery{ChargeID: chargeID, Kind: kind}
	err := r.db.Create(&d).Error
	if err == nil {
		return &d, true, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, nil
	}
	var existing models.UtmifyDelivery
	if lookupErr := r.db.Where("charge_id = ? AND kind = ?", chargeID, kind).
		First(&existing).Error; lookupErr == nil {
		return nil, false, nil
	}
	return nil, false, err
}

func (r *UtmifyRepository) Update(d *models.UtmifyDelivery) error {
	return r.db.Save(d).Error
}
