package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateCustomer      = "CREATE_CUSTOMER"
	ActionUpdateCustomer      = "UPDATE_CUSTOMER"
	ActionDeleteCustomer      = "DELETE_CUSTOMER"
	ActionCreateProduct       = "CREATE_PRODUCT"
	ActionUpdateProduct       = "UPDATE_PRODUCT"
	ActionDeleteProduct       = "DELETE_PRODUCT"
	ActionSetRequirements     = "SET_MATERIAL_REQUIREMENTS"
	ActionCreateRawMaterial   = "CREATE_RAW_MATERIAL"
	ActionUpdateRawMaterial   = "UPDATE_RAW_MATERIAL"
	ActionDeleteRawMaterial   = "DELETE_RAW_MATERIAL"
	ActionAdjustStock         = "ADJUST_STOCK"
	ActionCreateOrder         = "CREATE_ORDER"
	ActionUpdateOrderStatus   = "UPDATE_ORDER_STATUS"
	ActionCreateProductionLog = "CREATE_PRODUCTION_LOG"
	ActionCreateInvoice       = "CREATE_INVOICE"
	ActionMarkInvoicePaid     = "MARK_INVOICE_PAID"
	ActionCancelInvoice       = "CANCEL_INVOICE"
	ActionUpdateSetting       = "UPDATE_SETTING"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated bot
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
