package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductionLog records units actually produced against an order.
// A log row only exists if the availability check approved the run;
// stock decrements happen in the same transaction that inserts it.
type ProductionLog struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"order_id"`
	Order       *Order     `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	ProducedQty int        `gorm:"type:int;not null" json:"produced_qty"`
	Notes       string     `gorm:"type:text" json:"notes"`
	CreatedBy   *uuid.UUID `gorm:"type:uuid;index" json:"created_by"`
	Creator     *User      `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
}

func (p *ProductionLog) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
