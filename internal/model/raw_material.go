package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RawMaterial represents stock of an input material consumed by production
type RawMaterial struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	CurrentStock  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"current_stock"`
	Unit          string          `gorm:"type:varchar(20);not null" json:"unit"`
	MinStockLevel decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"min_stock_level"` // Reorder threshold, informational only
	CostPerUnit   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"cost_per_unit"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (m *RawMaterial) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// MaterialRequirement declares how much of a raw material one unit of a
// product consumes. Many-to-many: a product may require several materials
// and a material may serve several products.
type MaterialRequirement struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_product_material" json:"product_id"`
	Product          *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	RawMaterialID    uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_product_material" json:"raw_material_id"`
	RawMaterial      *RawMaterial    `gorm:"foreignKey:RawMaterialID" json:"raw_material,omitempty"`
	QuantityRequired decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity_required"` // per one unit of product
	Unit             string          `gorm:"type:varchar(20);not null" json:"unit"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (r *MaterialRequirement) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// StockMovementType enum constants
const (
	MovementTypeIn  = "IN"
	MovementTypeOut = "OUT"
)

// StockMovementReason enum constants
const (
	MovementReasonRestock    = "RESTOCK"
	MovementReasonAdjustment = "ADJUSTMENT"
	MovementReasonProduction = "PRODUCTION"
)

// StockMovement records every raw-material stock change strictly
type StockMovement struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RawMaterialID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"raw_material_id"`
	ProductionLogID *uuid.UUID      `gorm:"type:uuid;index" json:"production_log_id"` // Nullable for manual adjustments
	MovementType    string          `gorm:"type:varchar(10);not null" json:"movement_type"` // IN, OUT
	Reason          string          `gorm:"type:varchar(20);not null" json:"reason"`
	QuantityChanged decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity_changed"`
	StockAfter      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"stock_after"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (s *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
