package models

import (
	"time"

	"github.com/refinehaus/clinic_backend/utils"
	"gorm.io/gorm"
)

// StockMovement is an append-only inventory ledger row. Qty is signed: outgoing types are negative.
type StockMovement struct {
	ID            int          `gorm:"column:stock_movement_id;primaryKey" json:"stock_movement_id"`
	ItemId        int          `gorm:"index;not null" json:"item_id"`
	Qty           int          `gorm:"not null" json:"qty"`
	MovementType  MovementType `gorm:"size:32;index;not null" json:"movement_type"`
	SellInvoiceId *int         `gorm:"index" json:"sell_invoice_id"`
	RedemptionId  *int         `gorm:"index" json:"redemption_id"`
	Note          *string      `gorm:"type:text" json:"note"`
	CreatedAt     time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func (StockMovement) TableName() string { return "stock_movement" }

// BeforeCreate enforces ledger invariants:
// - movement_type is one of the known types
// - qty is non-zero and its sign matches the movement direction
func (sm *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if sm == nil {
		return nil
	}
	if !sm.MovementType.IsValid() {
		return utils.NewValidationError("StockMovement.BeforeCreate", "invalid movement type %q", sm.MovementType)
	}
	if sm.Qty == 0 {
		return utils.NewValidationError("StockMovement.BeforeCreate", "qty must not be zero")
	}
	if sm.MovementType.IsOutgoing() != (sm.Qty < 0) {
		return utils.NewValidationError("StockMovement.BeforeCreate", "qty %d does not match movement type %s", sm.Qty, sm.MovementType)
	}
	return nil
}
