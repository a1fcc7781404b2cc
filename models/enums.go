package models

type InvoiceStatus string

const (
	InvoiceStatusDraft  InvoiceStatus = "DRAFT"
	InvoiceStatusPaid   InvoiceStatus = "PAID"
	InvoiceStatusVoided InvoiceStatus = "VOID"
)

// RuleType is the discriminator stored in promotion_condition_rule.rule_type.
type RuleType string

const (
	RuleTypeMinSpend        RuleType = "MIN_SPEND"
	RuleTypeHasItem         RuleType = "HAS_ITEM"
	RuleTypeMinQtyItem      RuleType = "MIN_QTY_ITEM"
	RuleTypeNewCustomerOnly RuleType = "NEW_CUSTOMER_ONLY"
	RuleTypeMinWalletTopup  RuleType = "MIN_WALLET_TOPUP"
)

type Operator string

const (
	OperatorEQ  Operator = "EQ"
	OperatorGTE Operator = "GTE"
	OperatorLTE Operator = "LTE"
)

// BenefitType is the discriminator stored in promotion_benefit.benefit_type.
type BenefitType string

const (
	BenefitTypePercentDiscount BenefitType = "PERCENT_DISCOUNT"
	BenefitTypeAmountDiscount  BenefitType = "AMOUNT_DISCOUNT"
	BenefitTypeFreeItem        BenefitType = "FREE_ITEM"
	BenefitTypeWalletCredit    BenefitType = "WALLET_CREDIT"
)

type TargetScope string

const (
	TargetScopeInvoice TargetScope = "INVOICE_TOTAL"
	TargetScopeItem    TargetScope = "ITEM"

	// targetScopeInvoiceLegacy was the column default before bundle promotions shared the table.
	targetScopeInvoiceLegacy TargetScope = "INVOICE"
)

// IsInvoice reports whether s targets the whole invoice line sum.
func (s TargetScope) IsInvoice() bool {
	return s == TargetScopeInvoice || s == targetScopeInvoiceLegacy
}

type PromotionLineType string

const (
	PromotionLineTypeDiscount     PromotionLineType = "DISCOUNT"
	PromotionLineTypeFreeItem     PromotionLineType = "FREE_ITEM"
	PromotionLineTypeWalletCredit PromotionLineType = "WALLET_CREDIT"
)

type MovementType string

const (
	MovementTypePurchaseIn      MovementType = "PURCHASE_IN"
	MovementTypeImport          MovementType = "IMPORT"
	MovementTypeWaste           MovementType = "WASTE"
	MovementTypeUseForTreatment MovementType = "USE_FOR_TREATMENT"
	MovementTypeUseForPromotion MovementType = "USE_FOR_PROMOTION"
)

func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypePurchaseIn, MovementTypeImport, MovementTypeWaste,
		MovementTypeUseForTreatment, MovementTypeUseForPromotion:
		return true
	}
	return false
}

// IsOutgoing reports whether rows of this type must carry a negative qty.
func (t MovementType) IsOutgoing() bool {
	switch t {
	case MovementTypeWaste, MovementTypeUseForTreatment, MovementTypeUseForPromotion:
		return true
	}
	return false
}

type OutboxReferenceType string

const (
	OutboxReferenceTypeBooking OutboxReferenceType = "BOOKING"
)

type OutboxAction string

const (
	OutboxActionCreate OutboxAction = "C"
)
