package promotion

import (
	"sort"

	"github.com/refinehaus/clinic_backend/models"
	"github.com/shopspring/decimal"
)

// Target is where a benefit's value is measured: the whole invoice, or the lines of one item.
type Target struct {
	Scope  models.TargetScope
	ItemId *int
}

// Benefit is one effect of an eligible promotion. The set of variants is closed.
type Benefit interface {
	isBenefit()
}

type PercentDiscount struct {
	BenefitId int
	Target    Target
	Percent   decimal.NullDecimal
}

type AmountDiscount struct {
	BenefitId int
	Target    Target
	Amount    decimal.NullDecimal
}

// FreeItem gives Qty units of ItemId. ItemId falls back to the target item when unset.
type FreeItem struct {
	BenefitId int
	Target    Target
	ItemId    *int
	Qty       *int
}

// WalletCredit credits Amount, or Percent of the target total when Amount is unset.
type WalletCredit struct {
	BenefitId int
	Target    Target
	Amount    decimal.NullDecimal
	Percent   decimal.NullDecimal
}

// UnknownBenefit is any benefit_type this build does not know. Applying it is a no-op.
type UnknownBenefit struct {
	BenefitId   int
	BenefitType models.BenefitType
}

func (PercentDiscount) isBenefit() {}
func (AmountDiscount) isBenefit()  {}
func (FreeItem) isBenefit()        {}
func (WalletCredit) isBenefit()    {}
func (UnknownBenefit) isBenefit()  {}

func DecodeBenefit(row models.PromotionBenefit) Benefit {
	target := Target{Scope: row.TargetScope, ItemId: row.TargetItemId}
	switch row.BenefitType {
	case models.BenefitTypePercentDiscount:
		return PercentDiscount{BenefitId: row.ID, Target: target, Percent: row.ValuePercent}
	case models.BenefitTypeAmountDiscount:
		return AmountDiscount{BenefitId: row.ID, Target: target, Amount: row.ValueAmount}
	case models.BenefitTypeFreeItem:
		return FreeItem{BenefitId: row.ID, Target: target, ItemId: row.FreeItemId, Qty: row.FreeQty}
	case models.BenefitTypeWalletCredit:
		return WalletCredit{BenefitId: row.ID, Target: target, Amount: row.ValueAmount, Percent: row.ValuePercent}
	default:
		return UnknownBenefit{BenefitId: row.ID, BenefitType: row.BenefitType}
	}
}

// total is the invoice line sum for invoice scope, otherwise the sum of the target item's lines.
// An item-scoped target without an item measures zero.
func (t Target) total(items []models.SellInvoiceItem) decimal.Decimal {
	if t.Scope.IsInvoice() {
		return lineTotal(items, nil)
	}
	if t.ItemId == nil {
		return decimal.Zero
	}
	return lineTotal(items, t.ItemId)
}

// OrderedBenefits returns promo's benefits by sort_order, then id.
func OrderedBenefits(promo *models.Promotion) []models.PromotionBenefit {
	out := append([]models.PromotionBenefit(nil), promo.Benefits...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}
