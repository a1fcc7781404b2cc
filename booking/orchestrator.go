package booking

import (
	"context"
	"time"

	"github.com/refinehaus/clinic_backend/config"
	"github.com/refinehaus/clinic_backend/metrics"
	"github.com/refinehaus/clinic_backend/models"
	"github.com/refinehaus/clinic_backend/promotion"
	"github.com/refinehaus/clinic_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("clinic-booking")

// Tx is everything one booking reads and writes. All calls run on one database transaction.
type Tx interface {
	CustomerStore
	LineStore
	promotion.Facts
	promotion.Ledger
	promotion.TotalsStore

	// FindPromotion returns nil, nil when not found. Groups, rules and benefits are loaded.
	FindPromotion(ctx context.Context, promotionId int) (*models.Promotion, error)
	// HasNonStackableRedemption reports whether a non-stackable promotion other than
	// excludePromotionId is already redeemed on the invoice.
	HasNonStackableRedemption(ctx context.Context, invoiceId int, excludePromotionId int) (bool, error)
	CreateRedemption(ctx context.Context, redemption *models.PromotionRedemption) error
	CreateOutboxRecord(ctx context.Context, record *models.OutboxRecord) error
}

// Store runs fn in a transaction: commit when fn returns nil, roll back otherwise.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Tx) error) error
}

type SkipReason string

const (
	SkipNotFound         SkipReason = "not_found"
	SkipUnavailable      SkipReason = "unavailable"
	SkipStackingConflict SkipReason = "stacking_conflict"
	SkipNotEligible      SkipReason = "not_eligible"
)

type Skip struct {
	PromotionId int
	Reason      SkipReason
}

// Result describes a booking attempt. On failure only State is meaningful.
type Result struct {
	State       State
	Customer    *models.Customer
	Invoice     *models.SellInvoice
	Items       []models.SellInvoiceItem
	Totals      models.InvoiceTotals
	Redemptions []models.PromotionRedemption
	Skipped     []Skip
}

type Service struct {
	Store  Store
	Logger *logrus.Logger
	Now    func() time.Time

	InvoicePrefix  string
	CustomerPrefix string
	PhoneRegion    string
}

func NewService(store Store, logger *logrus.Logger) *Service {
	return &Service{
		Store:          store,
		Logger:         logger,
		Now:            time.Now,
		InvoicePrefix:  config.InvoicePrefix(),
		CustomerPrefix: config.CustomerPrefix(),
		PhoneRegion:    config.PhoneRegion(),
	}
}

// CreateBooking runs Book and folds the outcome into the wire response.
func (s *Service) CreateBooking(ctx context.Context, req Request) Response {
	result, err := s.Book(ctx, req)
	if err != nil {
		return Response{Success: false, Message: err.Error()}
	}
	return Response{
		Success:       true,
		InvoiceNo:     result.Invoice.InvoiceNo,
		SellInvoiceId: result.Invoice.ID,
	}
}

// Book resolves the customer, builds the invoice lines, processes the requested promotions and
// reconciles totals in one transaction. Any error rolls everything back.
func (s *Service) Book(ctx context.Context, req Request) (*Result, error) {
	ctx, span := tracer.Start(ctx, "booking.Book")
	defer span.End()

	started := time.Now()
	m := &machine{state: StateDraft}
	result := &Result{State: StateDraft}

	if err := s.book(ctx, req, m, result); err != nil {
		m.fail()
		failed := &Result{State: StateFailed}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.BookingFailed(time.Since(started))
		config.LogError(s.Logger, "Booking", "Book", "booking rolled back at "+result.State.String(), req, err)
		return failed, err
	}

	span.SetAttributes(
		attribute.String("invoice.no", result.Invoice.InvoiceNo),
		attribute.Int("promotions.applied", len(result.Redemptions)),
	)
	metrics.BookingCommitted(time.Since(started))
	return result, nil
}

func (s *Service) book(ctx context.Context, req Request, m *machine, result *Result) error {
	if err := req.Validate(); err != nil {
		return err
	}

	now := s.now()
	var issuedBy *int
	if staffId, ok := utils.GetStaffIdFromContext(ctx); ok && staffId > 0 {
		issuedBy = &staffId
	}
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	err := s.Store.Transaction(ctx, func(tx Tx) error {
		resolver := &CustomerResolver{Store: tx, CodePrefix: s.CustomerPrefix, PhoneRegion: s.PhoneRegion}
		customer, err := resolver.Resolve(ctx, req.CustomerCode, req.CustomerName, req.CustomerPhone)
		if err != nil {
			return err
		}
		if err := s.advance(m, result, StateCustomerResolved); err != nil {
			return err
		}

		builder := &LineBuilder{Store: tx, InvoicePrefix: s.InvoicePrefix}
		invoice, err := builder.CreateInvoice(ctx, customer, req.TotalAmount, issuedBy, now)
		if err != nil {
			return err
		}
		items, err := builder.BuildLines(ctx, invoice, customer, req.Treatments, ParseSchedule(req.SessionDate, req.SessionTime, req.Note, now))
		if err != nil {
			return err
		}
		if err := s.advance(m, result, StateLinesBuilt); err != nil {
			return err
		}

		redemptions, skipped, err := s.processPromotions(ctx, tx, utils.UniqueSlice(req.Promotions), invoice, customer, now)
		if err != nil {
			return err
		}
		if err := s.advance(m, result, StatePromotionsProcessed); err != nil {
			return err
		}

		reconciler := promotion.NewReconciler(tx)
		reconciler.Logger = s.Logger
		totals, err := reconciler.Reconcile(ctx, invoice.ID)
		if err != nil {
			return utils.WrapStorage("Reconciler.Reconcile", err)
		}
		invoice.TotalAmount = totals.TotalAmount
		invoice.DiscountAmount = totals.DiscountAmount
		invoice.FinalAmount = totals.FinalAmount
		if err := s.advance(m, result, StateTotalsReconciled); err != nil {
			return err
		}
		if !invoice.RequestedTotalAmount.Equal(totals.TotalAmount) {
			s.Logger.WithFields(logrus.Fields{
				"field":           "Booking",
				"invoice_no":      invoice.InvoiceNo,
				"requested_total": invoice.RequestedTotalAmount.String(),
				"total_amount":    totals.TotalAmount.String(),
			}).Warn("requested total differs from reconciled total")
		}

		record, err := newOutboxRecord(invoice, customer, redemptions, correlationId, now)
		if err != nil {
			return utils.WrapStorage("Booking.newOutboxRecord", err)
		}
		if err := tx.CreateOutboxRecord(ctx, record); err != nil {
			return utils.WrapStorage("Tx.CreateOutboxRecord", err)
		}

		result.Customer = customer
		result.Invoice = invoice
		result.Items = items
		result.Totals = totals
		result.Redemptions = redemptions
		result.Skipped = skipped
		return nil
	})
	if err != nil {
		return utils.WrapStorage("Store.Transaction", err)
	}
	return s.advance(m, result, StateCommitted)
}

func (s *Service) advance(m *machine, result *Result, to State) error {
	if err := m.advance(to); err != nil {
		return err
	}
	result.State = to
	return nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// processPromotions handles the deduplicated promotion ids in request order. Stacking conflicts are
// first-wins: once a non-stackable promotion is redeemed, later non-stackable ones are skipped.
func (s *Service) processPromotions(ctx context.Context, tx Tx, promotionIds []int, invoice *models.SellInvoice, customer *models.Customer, now time.Time) ([]models.PromotionRedemption, []Skip, error) {
	evaluator := promotion.NewEvaluator(tx)
	applier := promotion.NewApplier(tx)

	var redemptions []models.PromotionRedemption
	var skipped []Skip
	for _, promotionId := range promotionIds {
		redemption, reason, err := s.processPromotion(ctx, tx, evaluator, applier, promotionId, invoice, customer, now)
		if err != nil {
			return nil, nil, err
		}
		if redemption == nil {
			metrics.PromotionEvaluated(string(reason))
			skipped = append(skipped, Skip{PromotionId: promotionId, Reason: reason})
			s.Logger.WithFields(logrus.Fields{
				"field":        "Booking",
				"invoice_no":   invoice.InvoiceNo,
				"promotion_id": promotionId,
				"reason":       string(reason),
			}).Info("promotion skipped")
			continue
		}
		metrics.PromotionEvaluated("applied")
		redemptions = append(redemptions, *redemption)
	}
	return redemptions, skipped, nil
}

func (s *Service) processPromotion(ctx context.Context, tx Tx, evaluator *promotion.Evaluator, applier *promotion.Applier, promotionId int, invoice *models.SellInvoice, customer *models.Customer, now time.Time) (*models.PromotionRedemption, SkipReason, error) {
	ctx, span := tracer.Start(ctx, "booking.Promotion", trace.WithAttributes(attribute.Int("promotion.id", promotionId)))
	defer span.End()

	promo, err := tx.FindPromotion(ctx, promotionId)
	if err != nil {
		return nil, "", utils.WrapStorage("Tx.FindPromotion", err)
	}
	if promo == nil {
		return nil, SkipNotFound, nil
	}
	if !promo.IsAvailableAt(now) {
		return nil, SkipUnavailable, nil
	}

	if !promo.IsStackable {
		conflict, err := tx.HasNonStackableRedemption(ctx, invoice.ID, promo.ID)
		if err != nil {
			return nil, "", utils.WrapStorage("Tx.HasNonStackableRedemption", err)
		}
		if conflict {
			return nil, SkipStackingConflict, nil
		}
	}

	eligible, err := evaluator.Evaluate(ctx, promo, invoice, customer)
	if err != nil {
		return nil, "", utils.WrapStorage("Evaluator.Evaluate", err)
	}
	if !eligible {
		return nil, SkipNotEligible, nil
	}

	redemption := &models.PromotionRedemption{
		PromotionId:   promo.ID,
		SellInvoiceId: invoice.ID,
		CustomerId:    customer.ID,
		RedeemedAt:    now,
	}
	if err := tx.CreateRedemption(ctx, redemption); err != nil {
		return nil, "", utils.WrapStorage("Tx.CreateRedemption", err)
	}

	for _, benefit := range promotion.OrderedBenefits(promo) {
		applied, err := applier.Apply(ctx, promo, benefit, invoice, redemption)
		if err != nil {
			return nil, "", utils.WrapStorage("Applier.Apply", err)
		}
		if applied {
			metrics.BenefitApplied(string(benefit.BenefitType))
		}
	}
	span.SetAttributes(attribute.Bool("promotion.applied", true))
	return redemption, "", nil
}
