package booking

import (
	"context"
	"strings"
	"time"

	"github.com/refinehaus/clinic_backend/models"
	"github.com/refinehaus/clinic_backend/utils"
	"github.com/shopspring/decimal"
)

const (
	sessionDateLayout = "2006-01-02"
	sessionTimeLayout = "15:04"
)

type LineStore interface {
	NextInvoiceSequence(ctx context.Context) (int64, error)
	CreateInvoice(ctx context.Context, invoice *models.SellInvoice) error
	// FindTreatment returns nil, nil when the treatment does not exist.
	FindTreatment(ctx context.Context, treatmentId int) (*models.Treatment, error)
	CreateInvoiceItem(ctx context.Context, item *models.SellInvoiceItem) error
	CreateTreatmentSession(ctx context.Context, session *models.TreatmentSession) error
}

type LineBuilder struct {
	Store         LineStore
	InvoicePrefix string
}

// CreateInvoice inserts the header with zero totals. The Totals Reconciler sets them at the end.
func (b *LineBuilder) CreateInvoice(ctx context.Context, customer *models.Customer, requestedTotal decimal.Decimal, issuedBy *int, now time.Time) (*models.SellInvoice, error) {
	seqNo, err := b.Store.NextInvoiceSequence(ctx)
	if err != nil {
		return nil, utils.WrapStorage("LineBuilder.NextInvoiceSequence", err)
	}
	invoice := &models.SellInvoice{
		InvoiceNo:            utils.FormatSequence(b.InvoicePrefix, seqNo),
		SequenceNo:           seqNo,
		CustomerId:           customer.ID,
		IssueAt:              now,
		TotalAmount:          decimal.Zero,
		DiscountAmount:       decimal.Zero,
		FinalAmount:          decimal.Zero,
		RequestedTotalAmount: utils.RoundMoney(requestedTotal),
		Status:               models.InvoiceStatusPaid,
		IssuedBy:             issuedBy,
	}
	if err := b.Store.CreateInvoice(ctx, invoice); err != nil {
		return nil, utils.WrapStorage("LineBuilder.CreateInvoice", err)
	}
	return invoice, nil
}

// SessionSchedule is the parsed session date/time shared by every session of a booking.
type SessionSchedule struct {
	Date time.Time
	Time string
	Note *string
}

// ParseSchedule parses "YYYY-MM-DD" and "HH:MM". Each part that does not parse falls back to now,
// with the time truncated to the minute.
func ParseSchedule(date string, clock string, note *string, now time.Time) SessionSchedule {
	s := SessionSchedule{Note: note}

	if d, err := time.ParseInLocation(sessionDateLayout, strings.TrimSpace(date), now.Location()); err == nil {
		s.Date = d
	} else {
		s.Date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}

	if t, err := time.Parse(sessionTimeLayout, strings.TrimSpace(clock)); err == nil {
		s.Time = t.Format(sessionTimeLayout)
	} else {
		s.Time = now.Truncate(time.Minute).Format(sessionTimeLayout)
	}
	return s
}

// BuildLines writes one line item and one treatment session per requested treatment, in order.
func (b *LineBuilder) BuildLines(ctx context.Context, invoice *models.SellInvoice, customer *models.Customer, treatments []TreatmentRequest, schedule SessionSchedule) ([]models.SellInvoiceItem, error) {
	items := make([]models.SellInvoiceItem, 0, len(treatments))
	for i, req := range treatments {
		if req.Quantity <= 0 {
			return nil, utils.NewValidationError("LineBuilder.BuildLines", "treatments[%d].quantity must be positive", i)
		}
		treatment, err := b.Store.FindTreatment(ctx, req.TreatmentId)
		if err != nil {
			return nil, utils.NewResolutionError("LineBuilder.FindTreatment", err)
		}
		if treatment == nil {
			return nil, utils.NewValidationError("LineBuilder.BuildLines", "treatment %d not found", req.TreatmentId)
		}

		sold := decimal.NewFromInt(int64(req.Quantity))
		// physical quantity follows consumption, price follows the commercial unit
		qty := int(sold.Mul(treatment.Multiplier()).Round(0).IntPart())
		item := models.SellInvoiceItem{
			SellInvoiceId: invoice.ID,
			ItemId:        treatment.ID,
			Description:   utils.NilIfEmpty(treatment.Name),
			UnitPrice:     utils.RoundMoney(req.Price),
			SoldQty:       req.Quantity,
			Qty:           qty,
			TotalPrice:    utils.RoundMoney(req.Price.Mul(sold)),
		}
		if err := b.Store.CreateInvoiceItem(ctx, &item); err != nil {
			return nil, utils.WrapStorage("LineBuilder.CreateInvoiceItem", err)
		}

		session := &models.TreatmentSession{
			TreatmentId:       treatment.ID,
			SellInvoiceId:     invoice.ID,
			SellInvoiceItemId: item.ID,
			CustomerId:        customer.ID,
			SessionDate:       schedule.Date,
			SessionTime:       schedule.Time,
			Note:              schedule.Note,
		}
		if err := b.Store.CreateTreatmentSession(ctx, session); err != nil {
			return nil, utils.WrapStorage("LineBuilder.CreateTreatmentSession", err)
		}
		items = append(items, item)
	}
	return items, nil
}
