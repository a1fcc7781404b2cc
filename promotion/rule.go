package promotion

import (
	"github.com/refinehaus/clinic_backend/models"
	"github.com/shopspring/decimal"
)

// Rule is one eligibility condition. The set of variants is closed; Evaluate switches over all of them.
type Rule interface {
	isRule()
}

// MinSpend compares the invoice line total against Amount.
type MinSpend struct {
	Op     models.Operator
	Amount decimal.NullDecimal
}

// HasItem holds when at least one line sells ItemId.
type HasItem struct {
	ItemId *int
}

// MinQtyItem compares the summed physical qty of ItemId lines against Qty.
type MinQtyItem struct {
	ItemId *int
	Op     models.Operator
	Qty    decimal.NullDecimal
}

// NewCustomerOnly holds when the customer has no invoice other than the current one.
type NewCustomerOnly struct{}

// MinWalletTopup compares the sum of positive wallet entries against Amount.
type MinWalletTopup struct {
	Op     models.Operator
	Amount decimal.NullDecimal
}

// UnknownRule is any rule_type this build does not know. It never holds.
type UnknownRule struct {
	RuleType models.RuleType
}

func (MinSpend) isRule()        {}
func (HasItem) isRule()         {}
func (MinQtyItem) isRule()      {}
func (NewCustomerOnly) isRule() {}
func (MinWalletTopup) isRule()  {}
func (UnknownRule) isRule()     {}

func DecodeRule(row models.PromotionConditionRule) Rule {
	var op models.Operator
	if row.Op != nil {
		op = *row.Op
	}
	switch row.RuleType {
	case models.RuleTypeMinSpend:
		return MinSpend{Op: op, Amount: row.Amount}
	case models.RuleTypeHasItem:
		return HasItem{ItemId: row.ItemId}
	case models.RuleTypeMinQtyItem:
		return MinQtyItem{ItemId: row.ItemId, Op: op, Qty: row.QtyBaseUnit}
	case models.RuleTypeNewCustomerOnly:
		return NewCustomerOnly{}
	case models.RuleTypeMinWalletTopup:
		return MinWalletTopup{Op: op, Amount: row.Amount}
	default:
		return UnknownRule{RuleType: row.RuleType}
	}
}

// compare applies op to lhs and rhs. An absent operand or unknown operator is false.
func compare(op models.Operator, lhs decimal.Decimal, rhs decimal.NullDecimal) bool {
	if !rhs.Valid {
		return false
	}
	switch op {
	case models.OperatorEQ:
		return lhs.Equal(rhs.Decimal)
	case models.OperatorGTE:
		return lhs.GreaterThanOrEqual(rhs.Decimal)
	case models.OperatorLTE:
		return lhs.LessThanOrEqual(rhs.Decimal)
	default:
		return false
	}
}
