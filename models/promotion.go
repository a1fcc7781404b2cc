package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Promotion and its groups, rules and benefits are authored outside the booking flow
// (back office or the bundle-discovery job) and are read-only here.
type Promotion struct {
	ID              int                       `gorm:"column:promotion_id;primaryKey" json:"promotion_id"`
	Code            string                    `gorm:"size:64;index" json:"code"`
	Name            string                    `gorm:"size:200;not null" json:"name"`
	Description     string                    `gorm:"type:text" json:"description"`
	IsStackable     bool                      `gorm:"not null;default:false" json:"is_stackable"`
	StartAt         *time.Time                `json:"start_at"`
	EndAt           *time.Time                `json:"end_at"`
	IsActive        *bool                     `gorm:"not null;default:true" json:"is_active"`
	ConditionGroups []PromotionConditionGroup `gorm:"foreignKey:PromotionId;references:ID" json:"condition_groups"`
	Benefits        []PromotionBenefit        `gorm:"foreignKey:PromotionId;references:ID" json:"benefits"`
}

func (Promotion) TableName() string { return "promotion" }

// IsAvailableAt reports whether the promotion is active and now falls inside [start_at, end_at].
// A nil bound is open.
func (p Promotion) IsAvailableAt(now time.Time) bool {
	if p.IsActive != nil && !*p.IsActive {
		return false
	}
	if p.StartAt != nil && now.Before(*p.StartAt) {
		return false
	}
	if p.EndAt != nil && now.After(*p.EndAt) {
		return false
	}
	return true
}

type PromotionConditionGroup struct {
	ID          int                      `gorm:"column:condition_group_id;primaryKey" json:"condition_group_id"`
	PromotionId int                      `gorm:"index;not null" json:"promotion_id"`
	SortOrder   int                      `gorm:"not null;default:0" json:"sort_order"`
	Rules       []PromotionConditionRule `gorm:"foreignKey:ConditionGroupId;references:ID" json:"rules"`
}

func (PromotionConditionGroup) TableName() string { return "promotion_condition_group" }

type PromotionConditionRule struct {
	ID               int                 `gorm:"column:condition_rule_id;primaryKey" json:"condition_rule_id"`
	ConditionGroupId int                 `gorm:"index;not null" json:"condition_group_id"`
	SortOrder        int                 `gorm:"not null;default:0" json:"sort_order"`
	RuleType         RuleType            `gorm:"size:32;not null" json:"rule_type"`
	Op               *Operator           `gorm:"size:8" json:"op"`
	ItemId           *int                `json:"item_id"`
	QtyBaseUnit      decimal.NullDecimal `gorm:"type:decimal(12,4)" json:"qty_base_unit"`
	Amount           decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"amount"`
}

func (PromotionConditionRule) TableName() string { return "promotion_condition_rule" }

type PromotionBenefit struct {
	ID           int                 `gorm:"column:promotion_benefit_id;primaryKey" json:"promotion_benefit_id"`
	PromotionId  int                 `gorm:"index;not null" json:"promotion_id"`
	SortOrder    int                 `gorm:"not null;default:0" json:"sort_order"`
	BenefitType  BenefitType         `gorm:"size:32;not null" json:"benefit_type"`
	TargetScope  TargetScope         `gorm:"size:16;not null;default:'INVOICE_TOTAL'" json:"target_scope"`
	TargetItemId *int                `json:"target_item_id"`
	ValuePercent decimal.NullDecimal `gorm:"type:decimal(5,2)" json:"value_percent"`
	ValueAmount  decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"value_amount"`
	FreeItemId   *int                `json:"free_item_id"`
	FreeQty      *int                `json:"free_qty"`
}

func (PromotionBenefit) TableName() string { return "promotion_benefit" }

// PromotionRedemption is unique per (promotion, invoice).
type PromotionRedemption struct {
	ID            int       `gorm:"column:redemption_id;primaryKey" json:"redemption_id"`
	PromotionId   int       `gorm:"not null;uniqueIndex:uniq_redemption_promotion_invoice,priority:1" json:"promotion_id"`
	SellInvoiceId int       `gorm:"not null;uniqueIndex:uniq_redemption_promotion_invoice,priority:2" json:"sell_invoice_id"`
	CustomerId    int       `gorm:"index;not null" json:"customer_id"`
	RedeemedAt    time.Time `gorm:"not null" json:"redeemed_at"`
}

func (PromotionRedemption) TableName() string { return "promotion_redemption" }

// PromotionLine records one applied benefit. Discounts are negative; wallet credits positive;
// free items carry item and qty with a zero amount.
type PromotionLine struct {
	ID                 int               `gorm:"column:promotion_line_id;primaryKey" json:"promotion_line_id"`
	RedemptionId       int               `gorm:"index;not null" json:"redemption_id"`
	SellInvoiceId      int               `gorm:"index;not null" json:"sell_invoice_id"`
	PromotionId        int               `gorm:"index;not null" json:"promotion_id"`
	PromotionBenefitId int               `gorm:"not null" json:"promotion_benefit_id"`
	LineType           PromotionLineType `gorm:"size:20;not null" json:"line_type"`
	ItemId             *int              `json:"item_id"`
	Qty                *int              `json:"qty"`
	Amount             decimal.Decimal   `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
}

func (PromotionLine) TableName() string { return "promotion_line" }
