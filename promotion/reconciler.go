package promotion

import (
	"context"

	"github.com/refinehaus/clinic_backend/models"
	"github.com/refinehaus/clinic_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type TotalsStore interface {
	ListInvoiceItems(ctx context.Context, invoiceId int) ([]models.SellInvoiceItem, error)
	ListPromotionLines(ctx context.Context, invoiceId int) ([]models.PromotionLine, error)
	UpdateInvoiceTotals(ctx context.Context, invoiceId int, totals models.InvoiceTotals) error
}

type Reconciler struct {
	Store TotalsStore
	// Logger receives a warning when stacked discounts exceed the invoice total. Optional.
	Logger *logrus.Logger
}

func NewReconciler(store TotalsStore) *Reconciler {
	return &Reconciler{Store: store}
}

// Reconcile recomputes the invoice header from the persisted lines and writes it back.
// Totals are never accumulated while promotions run; this is the only place they are set.
func (r *Reconciler) Reconcile(ctx context.Context, invoiceId int) (models.InvoiceTotals, error) {
	items, err := r.Store.ListInvoiceItems(ctx, invoiceId)
	if err != nil {
		return models.InvoiceTotals{}, err
	}
	lines, err := r.Store.ListPromotionLines(ctx, invoiceId)
	if err != nil {
		return models.InvoiceTotals{}, err
	}
	totals := ComputeTotals(items, lines)
	if lineDiscount := LineDiscount(lines); r.Logger != nil && lineDiscount.GreaterThan(totals.DiscountAmount) {
		r.Logger.WithFields(logrus.Fields{
			"field":           "Reconciler",
			"sell_invoice_id": invoiceId,
			"line_discount":   lineDiscount.StringFixed(2),
			"discount_amount": totals.DiscountAmount.StringFixed(2),
		}).Warn("promotion lines exceed invoice total; discount capped")
	}
	if err := r.Store.UpdateInvoiceTotals(ctx, invoiceId, totals); err != nil {
		return models.InvoiceTotals{}, err
	}
	return totals, nil
}

// ComputeTotals is total = Σ total_price, discount = LineDiscount(lines), final = total - discount.
// Discount is capped at total so final never goes below zero; the lines themselves keep their
// full amounts, so DiscountAmount can be less than LineDiscount.
func ComputeTotals(items []models.SellInvoiceItem, lines []models.PromotionLine) models.InvoiceTotals {
	total := utils.RoundMoney(lineTotal(items, nil))
	discount := utils.RoundMoney(decimal.Min(LineDiscount(lines), total))

	return models.InvoiceTotals{
		TotalAmount:    total,
		DiscountAmount: discount,
		FinalAmount:    total.Sub(discount),
	}
}

// LineDiscount is Σ |amount| over negative promotion lines, before any cap.
func LineDiscount(lines []models.PromotionLine) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		if line.Amount.IsNegative() {
			sum = sum.Add(line.Amount.Abs())
		}
	}
	return sum
}
