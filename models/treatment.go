package models

import (
	"github.com/shopspring/decimal"
)

type Treatment struct {
	ID            int                 `gorm:"column:treatment_id;primaryKey" json:"treatment_id"`
	Name          string              `gorm:"size:200;not null" json:"name"`
	Category      string              `gorm:"size:100" json:"category"`
	Price         decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	QtyMultiplier decimal.NullDecimal `gorm:"type:decimal(12,4)" json:"qty_multiplier"`
	IsActive      *bool               `gorm:"not null;default:true" json:"is_active"`
}

func (Treatment) TableName() string { return "treatment" }

// Multiplier is the number of base units consumed per sold unit; 1 when unset or not positive.
func (t Treatment) Multiplier() decimal.Decimal {
	if !t.QtyMultiplier.Valid || !t.QtyMultiplier.Decimal.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return t.QtyMultiplier.Decimal
}
