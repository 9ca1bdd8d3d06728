package repository

import (
	"configas/internal/models"

	"gorm.io/gorm"
)

type OperatorRepository struct {
	db *gorm.DB
}

func NewOperatorRepository(db *gorm.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

func (r *OperatorRepository) GetByEmail(email string) (*models.Operator, error) {
	var op models.Operator
	if err := r.db.Where("email = ?", email).First(&op).Error; err != nil {
		return nil, err
	}
	return &op, nil
}
