package database

import (
	"log"

	"erp-backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.Customer{},
		&model.Product{},
		&model.RawMaterial{},
		&model.MaterialRequirement{},
		&model.StockMovement{},
		&model.Order{},
		&model.OrderItem{},
		&model.ProductionLog{},
		&model.Invoice{},
		&model.AuditLog{},
		&model.Setting{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
