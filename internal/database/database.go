package database

import (
	"log"
	"os"

	"configas/config"
	"configas/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error), // Only log errors, not every SQL query
		// Duplicate-key inserts must surface as gorm.ErrDuplicatedKey; the
		// delivery claim path branches on it.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Order{},
		&models.PixCharge{},
		&models.KVEntry{},
		&models.UtmifyDelivery{},
		&models.Product{},
		&models.Operator{},
		&models.SmsReminder{},
	)
}

// SeedOperator creates the initial back-office operator if none exists.
// Credentials come from OPERATOR_EMAIL / OPERATOR_PASSWORD.
func SeedOperator(db *gorm.DB) {
	var count int64
	db.Model(&models.Operator{}).Count(&count)
	if count > 0 {
		return
	}
	email := os.Getenv("OPERATOR_EMAIL")
	password := os.Getenv("OPERATOR_PASSWORD")
	if email == "" || password == "" {
		log.Printf("[Seed] no operator seeded: set OPERATOR_EMAIL and OPERATOR_PASSWORD")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[Seed] bcrypt: %v", err)
		return
	}
	if err := db.Create(&models.Operator{Email: email, PasswordHash: string(hash)}).Error; err != nil {
		log.Printf("[Seed] create operator: %v", err)
		return
	}
	log.Printf("[Seed] operator %s created", email)
}

// SeedProducts loads the storefront catalog on an empty products table.
func SeedProducts(db *gorm.DB) {
	var count int64
	db.Model(&models.Product{}).Count(&count)
	if count > 0 {
		return
	}
	catalog := []models.Product{
		{Name: "Gás de cozinha 13 kg (P13)", PriceCents: 8870, Category: "gas", SplitPayment: true},
		{Name: "Botijão de Gás 8kg P8", PriceCents: 7553, Category: "gas", SplitPayment: true},
		{Name: "Combo 2 Botijões de Gás 13kg", PriceCents: 13990, Category: "combo", SplitPayment: true},
		{Name: "Combo 3 Gás 13kg", PriceCents: 20900, Category: "combo", SplitPayment: true},
		{Name: "Combo Gás + Garrafão", PriceCents: 10320, Category: "combo", SplitPayment: true},
		{Name: "Combo 2 Gás + 1 Água", PriceCents: 15760, Category: "combo", SplitPayment: true},
		{Name: "Combo 2 Gás + 2 Água", PriceCents: 18680, Category: "combo", SplitPayment: true},
		{Name: "Água Mineral Indaiá 20L", PriceCents: 1283, Category: "water"},
		{Name: "Água Mineral Serragrande 20L", PriceCents: 2783, Category: "water"},
		{Name: "Garrafão de água Mineral 20L", PriceCents: 2920, Category: "water"},
		{Name: "3 Garrafões de Água 20L", PriceCents: 5840, Category: "water"},
	}
	for i := range catalog {
		catalog[i].Active = true
	}
	if err := db.Create(&catalog).Error; err != nil {
		log.Printf("[Seed] products: %v", err)
	}
}
