package booking

import (
	"encoding/json"
	"time"

	"github.com/refinehaus/clinic_backend/models"
	"github.com/shopspring/decimal"
)

// BookingCommitted is the outbox payload published for every committed booking.
type BookingCommitted struct {
	SellInvoiceId  int             `json:"sell_invoice_id"`
	InvoiceNo      string          `json:"invoice_no"`
	CustomerId     int             `json:"customer_id"`
	CustomerCode   string          `json:"customer_code"`
	IssueAt        time.Time       `json:"issue_at"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	PromotionIds   []int           `json:"promotion_ids"`
}

func newOutboxRecord(invoice *models.SellInvoice, customer *models.Customer, redemptions []models.PromotionRedemption, correlationId string, now time.Time) (*models.OutboxRecord, error) {
	promotionIds := make([]int, 0, len(redemptions))
	for _, r := range redemptions {
		promotionIds = append(promotionIds, r.PromotionId)
	}
	payload, err := json.Marshal(BookingCommitted{
		SellInvoiceId:  invoice.ID,
		InvoiceNo:      invoice.InvoiceNo,
		CustomerId:     customer.ID,
		CustomerCode:   customer.CustomerCode,
		IssueAt:        invoice.IssueAt,
		TotalAmount:    invoice.TotalAmount,
		DiscountAmount: invoice.DiscountAmount,
		FinalAmount:    invoice.FinalAmount,
		PromotionIds:   promotionIds,
	})
	if err != nil {
		return nil, err
	}
	return &models.OutboxRecord{
		TransactionDateTime: now,
		ReferenceId:         invoice.ID,
		ReferenceType:       models.OutboxReferenceTypeBooking,
		Action:              models.OutboxActionCreate,
		Payload:             payload,
		PublishStatus:       models.OutboxPublishStatusPending,
		CorrelationId:       correlationId,
	}, nil
}
