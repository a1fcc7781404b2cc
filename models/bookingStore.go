package models

import (
	"context"
	"errors"

	"github.com/refinehaus/clinic_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BookingTx is the transaction-scoped store behind one booking. Every method runs on tx, so rows
// written earlier in the booking are visible to later reads. Errors come back as utils.StorageError
// unless a hook already returned a typed error.
type BookingTx struct {
	tx *gorm.DB
}

func NewBookingTx(tx *gorm.DB) *BookingTx {
	return &BookingTx{tx: tx}
}

func (s *BookingTx) db(ctx context.Context) *gorm.DB {
	return s.tx.WithContext(ctx)
}

func (s *BookingTx) FindCustomerByCode(ctx context.Context, code string) (*Customer, error) {
	var customer Customer
	err := s.db(ctx).Where("customer_code = ?", code).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.WrapStorage("FindCustomerByCode", err)
	}
	return &customer, nil
}

func (s *BookingTx) NextCustomerSequence(ctx context.Context) (int64, error) {
	seqNo, err := utils.GetSequence(ctx, s.tx, Customer{}.TableName())
	return seqNo, utils.WrapStorage("NextCustomerSequence", err)
}

func (s *BookingTx) CreateCustomer(ctx context.Context, customer *Customer) error {
	return wrapWrite("CreateCustomer", s.db(ctx).Create(customer).Error)
}

func (s *BookingTx) NextInvoiceSequence(ctx context.Context) (int64, error) {
	seqNo, err := utils.GetSequence(ctx, s.tx, SellInvoice{}.TableName())
	return seqNo, utils.WrapStorage("NextInvoiceSequence", err)
}

func (s *BookingTx) CreateInvoice(ctx context.Context, invoice *SellInvoice) error {
	return wrapWrite("CreateInvoice", s.db(ctx).Create(invoice).Error)
}

func (s *BookingTx) FindTreatment(ctx context.Context, treatmentId int) (*Treatment, error) {
	var treatment Treatment
	err := s.db(ctx).Where("treatment_id = ?", treatmentId).First(&treatment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.WrapStorage("FindTreatment", err)
	}
	return &treatment, nil
}

func (s *BookingTx) CreateInvoiceItem(ctx context.Context, item *SellInvoiceItem) error {
	return wrapWrite("CreateInvoiceItem", s.db(ctx).Create(item).Error)
}

func (s *BookingTx) CreateTreatmentSession(ctx context.Context, session *TreatmentSession) error {
	return wrapWrite("CreateTreatmentSession", s.db(ctx).Create(session).Error)
}

func (s *BookingTx) ListInvoiceItems(ctx context.Context, invoiceId int) ([]SellInvoiceItem, error) {
	var items []SellInvoiceItem
	err := s.db(ctx).Where("sell_invoice_id = ?", invoiceId).Order("sell_invoice_item_id ASC").Find(&items).Error
	return items, utils.WrapStorage("ListInvoiceItems", err)
}

func (s *BookingTx) CountOtherInvoices(ctx context.Context, customerId int, excludeInvoiceId int) (int64, error) {
	var count int64
	err := s.db(ctx).Model(&SellInvoice{}).
		Where("customer_id = ? AND sell_invoice_id <> ?", customerId, excludeInvoiceId).
		Count(&count).Error
	return count, utils.WrapStorage("CountOtherInvoices", err)
}

func (s *BookingTx) SumWalletTopups(ctx context.Context, customerId int) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	row := s.db(ctx).Model(&MemberWalletTransaction{}).
		Select("SUM(amount)").
		Where("customer_id = ? AND amount > 0", customerId).
		Row()
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, utils.WrapStorage("SumWalletTopups", err)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

func (s *BookingTx) FindPromotion(ctx context.Context, promotionId int) (*Promotion, error) {
	var promo Promotion
	err := s.db(ctx).
		Preload("ConditionGroups.Rules").
		Preload("Benefits").
		Where("promotion_id = ?", promotionId).
		First(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.WrapStorage("FindPromotion", err)
	}
	return &promo, nil
}

func (s *BookingTx) HasNonStackableRedemption(ctx context.Context, invoiceId int, excludePromotionId int) (bool, error) {
	var count int64
	err := s.db(ctx).Table("promotion_redemption AS r").
		Joins("JOIN promotion p ON p.promotion_id = r.promotion_id").
		Where("r.sell_invoice_id = ? AND r.promotion_id <> ? AND p.is_stackable = ?", invoiceId, excludePromotionId, false).
		Count(&count).Error
	return count > 0, utils.WrapStorage("HasNonStackableRedemption", err)
}

func (s *BookingTx) CreateRedemption(ctx context.Context, redemption *PromotionRedemption) error {
	return wrapWrite("CreateRedemption", s.db(ctx).Create(redemption).Error)
}

func (s *BookingTx) CreatePromotionLine(ctx context.Context, line *PromotionLine) error {
	return wrapWrite("CreatePromotionLine", s.db(ctx).Create(line).Error)
}

func (s *BookingTx) CreateStockMovement(ctx context.Context, movement *StockMovement) error {
	return utils.WrapStorage("CreateStockMovement", s.db(ctx).Create(movement).Error)
}

func (s *BookingTx) ListPromotionLines(ctx context.Context, invoiceId int) ([]PromotionLine, error) {
	var lines []PromotionLine
	err := s.db(ctx).Where("sell_invoice_id = ?", invoiceId).Order("promotion_line_id ASC").Find(&lines).Error
	return lines, utils.WrapStorage("ListPromotionLines", err)
}

func (s *BookingTx) UpdateInvoiceTotals(ctx context.Context, invoiceId int, totals InvoiceTotals) error {
	err := s.db(ctx).Model(&SellInvoice{}).
		Where("sell_invoice_id = ?", invoiceId).
		Updates(map[string]interface{}{
			"total_amount":    totals.TotalAmount,
			"discount_amount": totals.DiscountAmount,
			"final_amount":    totals.FinalAmount,
		}).Error
	return utils.WrapStorage("UpdateInvoiceTotals", err)
}

func (s *BookingTx) CreateOutboxRecord(ctx context.Context, record *OutboxRecord) error {
	return wrapWrite("CreateOutboxRecord", s.db(ctx).Create(record).Error)
}
