package promotion

import (
	"context"
	"errors"

	"github.com/refinehaus/clinic_backend/models"
	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory Facts, Ledger and TotalsStore for one invoice.
type fakeStore struct {
	items         []models.SellInvoiceItem
	otherInvoices int64
	topups        decimal.Decimal
	lines         []models.PromotionLine
	movements     []models.StockMovement
	totals        *models.InvoiceTotals

	itemLoads int
	failItems bool
}

var errFakeRead = errors.New("read failed")

func (s *fakeStore) ListInvoiceItems(ctx context.Context, invoiceId int) ([]models.SellInvoiceItem, error) {
	s.itemLoads++
	if s.failItems {
		return nil, errFakeRead
	}
	return s.items, nil
}

func (s *fakeStore) CountOtherInvoices(ctx context.Context, customerId int, excludeInvoiceId int) (int64, error) {
	return s.otherInvoices, nil
}

func (s *fakeStore) SumWalletTopups(ctx context.Context, customerId int) (decimal.Decimal, error) {
	return s.topups, nil
}

func (s *fakeStore) CreatePromotionLine(ctx context.Context, line *models.PromotionLine) error {
	line.ID = len(s.lines) + 1
	s.lines = append(s.lines, *line)
	return nil
}

func (s *fakeStore) CreateStockMovement(ctx context.Context, movement *models.StockMovement) error {
	movement.ID = len(s.movements) + 1
	s.movements = append(s.movements, *movement)
	return nil
}

func (s *fakeStore) ListPromotionLines(ctx context.Context, invoiceId int) ([]models.PromotionLine, error) {
	return s.lines, nil
}

func (s *fakeStore) UpdateInvoiceTotals(ctx context.Context, invoiceId int, totals models.InvoiceTotals) error {
	s.totals = &totals
	return nil
}

func item(itemId int, total int64, qty int) models.SellInvoiceItem {
	return models.SellInvoiceItem{
		SellInvoiceId: 1,
		ItemId:        itemId,
		UnitPrice:     decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(qty))),
		SoldQty:       qty,
		Qty:           qty,
		TotalPrice:    decimal.NewFromInt(total),
	}
}

func dec(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

func opPtr(op models.Operator) *models.Operator { return &op }

func intPtr(i int) *int { return &i }

func group(sortOrder int, rules ...models.PromotionConditionRule) models.PromotionConditionGroup {
	return models.PromotionConditionGroup{SortOrder: sortOrder, Rules: rules}
}
