package models

import (
	"log"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates the schema for all platform models
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	if err := db.AutoMigrate(
		&User{},
		&HostingPlan{},
		&Purchase{},
		&HostingAccount{},
		&Wallet{},
		&WalletLog{},
		&ScalingLog{},
		&PromoCode{},
		&AuditLog{},
		&SystemSetting{},
	); err != nil {
		return err
	}

	log.Println("Database migrations completed successfully")
	return nil
}
