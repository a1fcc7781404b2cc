package promotion

import (
	"context"
	"fmt"

	"github.com/refinehaus/clinic_backend/models"
	"github.com/refinehaus/clinic_backend/utils"
	"github.com/shopspring/decimal"
)

// Ledger receives the rows a benefit produces.
type Ledger interface {
	ListInvoiceItems(ctx context.Context, invoiceId int) ([]models.SellInvoiceItem, error)
	CreatePromotionLine(ctx context.Context, line *models.PromotionLine) error
	CreateStockMovement(ctx context.Context, movement *models.StockMovement) error
}

type Applier struct {
	Ledger Ledger
}

func NewApplier(ledger Ledger) *Applier {
	return &Applier{Ledger: ledger}
}

// Apply records the effect of one benefit of promo against invoice under redemption.
// It reports whether anything was written. A benefit that resolves to nothing (missing value,
// empty target, zero amount, unknown type) is skipped without error.
func (a *Applier) Apply(ctx context.Context, promo *models.Promotion, row models.PromotionBenefit, invoice *models.SellInvoice, redemption *models.PromotionRedemption) (bool, error) {
	newLine := func(lineType models.PromotionLineType) *models.PromotionLine {
		return &models.PromotionLine{
			RedemptionId:       redemption.ID,
			SellInvoiceId:      invoice.ID,
			PromotionId:        promo.ID,
			PromotionBenefitId: row.ID,
			LineType:           lineType,
			Amount:             decimal.Zero,
		}
	}

	switch b := DecodeBenefit(row).(type) {
	case PercentDiscount:
		if !b.Percent.Valid {
			return false, nil
		}
		targetTotal, err := a.targetTotal(ctx, invoice.ID, b.Target)
		if err != nil {
			return false, err
		}
		if !targetTotal.IsPositive() {
			return false, nil
		}
		discount := decimal.Min(utils.PercentOf(targetTotal, b.Percent.Decimal), targetTotal)
		if !discount.IsPositive() {
			return false, nil
		}
		line := newLine(models.PromotionLineTypeDiscount)
		line.Amount = discount.Neg()
		return true, a.Ledger.CreatePromotionLine(ctx, line)

	case AmountDiscount:
		if !b.Amount.Valid {
			return false, nil
		}
		targetTotal, err := a.targetTotal(ctx, invoice.ID, b.Target)
		if err != nil {
			return false, err
		}
		if !targetTotal.IsPositive() {
			return false, nil
		}
		discount := utils.RoundMoney(decimal.Min(b.Amount.Decimal, targetTotal))
		if !discount.IsPositive() {
			return false, nil
		}
		line := newLine(models.PromotionLineTypeDiscount)
		line.Amount = discount.Neg()
		return true, a.Ledger.CreatePromotionLine(ctx, line)

	case FreeItem:
		itemId := b.ItemId
		if itemId == nil {
			itemId = b.Target.ItemId
		}
		if itemId == nil || b.Qty == nil || *b.Qty <= 0 {
			return false, nil
		}
		qty := *b.Qty
		line := newLine(models.PromotionLineTypeFreeItem)
		line.ItemId = itemId
		line.Qty = &qty
		if err := a.Ledger.CreatePromotionLine(ctx, line); err != nil {
			return false, err
		}
		note := fmt.Sprintf("promotion %d on invoice %s", promo.ID, invoice.InvoiceNo)
		movement := &models.StockMovement{
			ItemId:        *itemId,
			Qty:           -qty,
			MovementType:  models.MovementTypeUseForPromotion,
			SellInvoiceId: &invoice.ID,
			RedemptionId:  &redemption.ID,
			Note:          &note,
		}
		return true, a.Ledger.CreateStockMovement(ctx, movement)

	case WalletCredit:
		var credit decimal.Decimal
		switch {
		case b.Amount.Valid:
			credit = utils.RoundMoney(b.Amount.Decimal)
		case b.Percent.Valid:
			targetTotal, err := a.targetTotal(ctx, invoice.ID, b.Target)
			if err != nil {
				return false, err
			}
			credit = utils.PercentOf(targetTotal, b.Percent.Decimal)
		default:
			return false, nil
		}
		if !credit.IsPositive() {
			return false, nil
		}
		// Only the credit event is recorded; the wallet ledger owner moves the balance.
		line := newLine(models.PromotionLineTypeWalletCredit)
		line.Amount = credit
		return true, a.Ledger.CreatePromotionLine(ctx, line)

	case UnknownBenefit:
		return false, nil

	default:
		return false, nil
	}
}

func (a *Applier) targetTotal(ctx context.Context, invoiceId int, target Target) (decimal.Decimal, error) {
	items, err := a.Ledger.ListInvoiceItems(ctx, invoiceId)
	if err != nil {
		return decimal.Zero, err
	}
	return target.total(items), nil
}
