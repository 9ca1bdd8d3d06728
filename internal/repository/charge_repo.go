package repository

import (
	"time"

	"configas/internal/domain"
	"configas/internal/models"

	"gorm.io/gorm"
)

type ChargeRepository struct {
	db *gorm.DB
}

func NewChargeRepository(db *gorm.DB) *ChargeRepository {
	return &ChargeRepository{db: db}
}

func (r *ChargeRepository) Create(c *models.PixCharge) error {
	return r.db.Create(c).Error
}

func (r *ChargeRepository) GetByID(id uint) (*models.PixCharge, error) {
	var c models.PixCharge
	if err := r.db.First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ChargeRepository) GetByProviderRef(ref string) (*models.PixCharge, error) {
	var c models.PixCharge
	if err := r.db.Where("provider_ref = ?", ref).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// PendingForSession returns the live (non-terminal) charge of the given leg,
// if any. The checkout invariant is at most one per session and leg.
func (r *ChargeRepository) PendingForSession(sessionID, leg string) (*models.PixCharge, error) {
	var c models.PixCharge
	err := r.db.Where("session_id = ? AND leg = ? AND status = ?",
		sessionID, leg, domain.StatusWaitingPayment).
		Order("id DESC").First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListResumable returns non-terminal charges created after cutoff, for
// restarting watchers after a process restart.
func (r *ChargeRepository) ListResumable(cutoff time.Time) ([]models.PixCharge, error) {
	var charges []models.PixCharge
	err := r.db.Where("status = ? AND created_at > ?",
		domain.StatusWaitingPayment, cutoff).Find(&charges).Error
	return charges, err
}

// ExpireOlderThan marks stale non-terminal charges expired and returns how
// many rows changed.
func (r *ChargeRepository) ExpireOlderThan(cutoff time.Time) (int64, error) {
	res := r.db.Model(&models.PixCharge{}).
		Where("status = ? AND created_at <= ?", domain.StatusWaitingPayment, cutoff).
		Update("status", domain.StatusExpired)
	return res.RowsAffected, res.Error
}

func (r *ChargeRepository) Update(c *models.PixCharge) error {
	return r.db.Save(c).Error
}
