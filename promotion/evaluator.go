package promotion

import (
	"context"
	"sort"

	"github.com/refinehaus/clinic_backend/models"
	"github.com/shopspring/decimal"
)

// Facts are the reads the evaluator needs. Implementations must read inside the booking transaction
// so line items written earlier in the same booking are visible.
type Facts interface {
	ListInvoiceItems(ctx context.Context, invoiceId int) ([]models.SellInvoiceItem, error)
	CountOtherInvoices(ctx context.Context, customerId int, excludeInvoiceId int) (int64, error)
	SumWalletTopups(ctx context.Context, customerId int) (decimal.Decimal, error)
}

type Evaluator struct {
	Facts Facts
}

func NewEvaluator(facts Facts) *Evaluator {
	return &Evaluator{Facts: facts}
}

// Evaluate reports whether promo's conditions hold for invoice and customer.
// Groups are OR-ed in sort order, rules within a group AND-ed; both short-circuit.
// A promotion without groups always holds. The error is only ever a read failure.
func (e *Evaluator) Evaluate(ctx context.Context, promo *models.Promotion, invoice *models.SellInvoice, customer *models.Customer) (bool, error) {
	if len(promo.ConditionGroups) == 0 {
		return true, nil
	}

	facts := &invoiceFacts{facts: e.Facts, invoiceId: invoice.ID, customerId: customer.ID}
	for _, group := range sortedGroups(promo.ConditionGroups) {
		ok, err := e.groupHolds(ctx, group, facts)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (e *Evaluator) groupHolds(ctx context.Context, group models.PromotionConditionGroup, facts *invoiceFacts) (bool, error) {
	for _, row := range sortedRules(group.Rules) {
		ok, err := e.ruleHolds(ctx, DecodeRule(row), facts)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (e *Evaluator) ruleHolds(ctx context.Context, rule Rule, facts *invoiceFacts) (bool, error) {
	switch r := rule.(type) {
	case MinSpend:
		if !r.Amount.Valid {
			return false, nil
		}
		items, err := facts.items(ctx)
		if err != nil {
			return false, err
		}
		return compare(r.Op, lineTotal(items, nil), r.Amount), nil

	case HasItem:
		if r.ItemId == nil {
			return false, nil
		}
		items, err := facts.items(ctx)
		if err != nil {
			return false, err
		}
		for _, item := range items {
			if item.ItemId == *r.ItemId {
				return true, nil
			}
		}
		return false, nil

	case MinQtyItem:
		if r.ItemId == nil || !r.Qty.Valid {
			return false, nil
		}
		items, err := facts.items(ctx)
		if err != nil {
			return false, err
		}
		var qty int64
		for _, item := range items {
			if item.ItemId == *r.ItemId {
				qty += int64(item.Qty)
			}
		}
		return compare(r.Op, decimal.NewFromInt(qty), r.Qty), nil

	case NewCustomerOnly:
		count, err := e.Facts.CountOtherInvoices(ctx, facts.customerId, facts.invoiceId)
		if err != nil {
			return false, err
		}
		return count == 0, nil

	case MinWalletTopup:
		if !r.Amount.Valid {
			return false, nil
		}
		topups, err := e.Facts.SumWalletTopups(ctx, facts.customerId)
		if err != nil {
			return false, err
		}
		return compare(r.Op, topups, r.Amount), nil

	case UnknownRule:
		return false, nil

	default:
		return false, nil
	}
}

// invoiceFacts loads the invoice's line items at most once per Evaluate call.
type invoiceFacts struct {
	facts      Facts
	invoiceId  int
	customerId int

	loaded    bool
	lineItems []models.SellInvoiceItem
}

func (f *invoiceFacts) items(ctx context.Context) ([]models.SellInvoiceItem, error) {
	if f.loaded {
		return f.lineItems, nil
	}
	items, err := f.facts.ListInvoiceItems(ctx, f.invoiceId)
	if err != nil {
		return nil, err
	}
	f.lineItems = items
	f.loaded = true
	return items, nil
}

// lineTotal sums total_price, restricted to itemId when non-nil.
func lineTotal(items []models.SellInvoiceItem, itemId *int) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if itemId != nil && item.ItemId != *itemId {
			continue
		}
		total = total.Add(item.TotalPrice)
	}
	return total
}

func sortedGroups(groups []models.PromotionConditionGroup) []models.PromotionConditionGroup {
	out := append([]models.PromotionConditionGroup(nil), groups...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sortedRules(rules []models.PromotionConditionRule) []models.PromotionConditionRule {
	out := append([]models.PromotionConditionRule(nil), rules...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}
