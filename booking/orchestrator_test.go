package booking

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/refinehaus/clinic_backend/models"
	"github.com/refinehaus/clinic_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	facialId = 10
	laserId  = 20
	maskId   = 30
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestService(store *memStore) *Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &Service{
		Store:          store,
		Logger:         logger,
		Now:            func() time.Time { return fixedNow },
		InvoicePrefix:  "INV",
		CustomerPrefix: "CUS",
		PhoneRegion:    "TH",
	}
}

func seededStore() *memStore {
	store := newMemStore()
	store.treatments[facialId] = models.Treatment{ID: facialId, Name: "Facial", Price: decimal.NewFromInt(12000)}
	store.treatments[laserId] = models.Treatment{ID: laserId, Name: "Laser", Price: decimal.NewFromInt(8000), QtyMultiplier: decimal.NewNullDecimal(decimal.NewFromInt(2))}
	store.treatments[maskId] = models.Treatment{ID: maskId, Name: "Mask", Price: decimal.NewFromInt(200)}
	return store
}

func opPtr(op models.Operator) *models.Operator { return &op }

func intPtr(i int) *int { return &i }

func boolPtr(b bool) *bool { return &b }

func dec(v int64) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.NewFromInt(v)) }

func percentOffPromotion(id int, stackable bool, percent int64) models.Promotion {
	return models.Promotion{
		ID: id, Code: "P", IsStackable: stackable, IsActive: boolPtr(true),
		Benefits: []models.PromotionBenefit{
			{ID: id * 100, PromotionId: id, BenefitType: models.BenefitTypePercentDiscount, TargetScope: models.TargetScopeInvoice, ValuePercent: dec(percent)},
		},
	}
}

func twoTreatmentRequest(promotions ...int) Request {
	return Request{
		CustomerName:  "Somchai",
		CustomerPhone: "081 234 5678",
		Treatments: []TreatmentRequest{
			{TreatmentId: facialId, Price: decimal.NewFromInt(12000), Quantity: 1},
			{TreatmentId: laserId, Price: decimal.NewFromInt(8000), Quantity: 1},
		},
		Promotions:  promotions,
		SessionDate: "2026-03-20",
		SessionTime: "14:00",
		TotalAmount: decimal.NewFromInt(20000),
	}
}

func mustBook(t *testing.T, svc *Service, req Request) *Result {
	t.Helper()
	result, err := svc.Book(context.Background(), req)
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}
	if result.State != StateCommitted {
		t.Fatalf("expected Committed, got %s", result.State)
	}
	return result
}

// Scenario A.
func TestBook_PercentDiscountWithAndedRules(t *testing.T) {
	store := seededStore()
	promo := percentOffPromotion(1, true, 10)
	promo.ConditionGroups = []models.PromotionConditionGroup{{Rules: []models.PromotionConditionRule{
		{RuleType: models.RuleTypeHasItem, ItemId: intPtr(facialId)},
		{RuleType: models.RuleTypeMinSpend, Op: opPtr(models.OperatorGTE), Amount: dec(15000)},
	}}}
	store.promotions[1] = promo

	result := mustBook(t, newTestService(store), twoTreatmentRequest(1))

	if !result.Totals.TotalAmount.Equal(decimal.NewFromInt(20000)) ||
		!result.Totals.DiscountAmount.Equal(decimal.NewFromInt(2000)) ||
		!result.Totals.FinalAmount.Equal(decimal.NewFromInt(18000)) {
		t.Fatalf("unexpected totals: %+v", result.Totals)
	}
	stored := store.state.invoices[0]
	if !stored.FinalAmount.Equal(decimal.NewFromInt(18000)) {
		t.Fatalf("expected stored final 18000, got %s", stored.FinalAmount)
	}
	if len(store.state.redemptions) != 1 || len(store.state.lines) != 1 {
		t.Fatalf("expected 1 redemption and 1 line, got %d and %d", len(store.state.redemptions), len(store.state.lines))
	}
}

// Scenario B.
func TestBook_NonStackableFirstWins(t *testing.T) {
	store := seededStore()
	store.promotions[1] = percentOffPromotion(1, false, 10)
	store.promotions[2] = percentOffPromotion(2, false, 20)

	result := mustBook(t, newTestService(store), twoTreatmentRequest(1, 2))

	if len(result.Redemptions) != 1 || result.Redemptions[0].PromotionId != 1 {
		t.Fatalf("expected only promotion 1 redeemed, got %+v", result.Redemptions)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].PromotionId != 2 || result.Skipped[0].Reason != SkipStackingConflict {
		t.Fatalf("expected promotion 2 skipped for stacking, got %+v", result.Skipped)
	}
	for _, line := range store.state.lines {
		if line.PromotionId == 2 {
			t.Fatalf("expected no line for promotion 2")
		}
	}
	if !result.Totals.DiscountAmount.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("expected discount 2000, got %s", result.Totals.DiscountAmount)
	}
}

// bundlePromotion is shaped like the rows the bundle-discovery job inserts: non-stackable, one
// group with a HAS_ITEM GTE 1 rule per treatment, and a percent benefit on INVOICE_TOTAL.
func bundlePromotion(id int, percent int64, treatmentIds ...int) models.Promotion {
	start := fixedNow.AddDate(0, 0, -1)
	end := fixedNow.AddDate(0, 1, 0)
	rules := make([]models.PromotionConditionRule, 0, len(treatmentIds))
	for _, tid := range treatmentIds {
		rules = append(rules, models.PromotionConditionRule{
			RuleType:    models.RuleTypeHasItem,
			Op:          opPtr(models.OperatorGTE),
			ItemId:      intPtr(tid),
			QtyBaseUnit: dec(1),
		})
	}
	return models.Promotion{
		ID: id, Code: "BUNDLE", IsStackable: false, IsActive: boolPtr(true), StartAt: &start, EndAt: &end,
		ConditionGroups: []models.PromotionConditionGroup{{ID: id * 10, PromotionId: id, SortOrder: 1, Rules: rules}},
		Benefits: []models.PromotionBenefit{
			{ID: id * 100, PromotionId: id, BenefitType: models.BenefitTypePercentDiscount, TargetScope: "INVOICE_TOTAL", ValuePercent: dec(percent)},
		},
	}
}

func TestBook_BundlePromotionDiscountsInvoiceTotal(t *testing.T) {
	store := seededStore()
	store.promotions[7] = bundlePromotion(7, 10, facialId, laserId)

	result := mustBook(t, newTestService(store), twoTreatmentRequest(7))

	if len(store.state.redemptions) != 1 || len(store.state.lines) != 1 {
		t.Fatalf("expected 1 redemption and 1 line, got %d and %d", len(store.state.redemptions), len(store.state.lines))
	}
	if !store.state.lines[0].Amount.Equal(decimal.NewFromInt(-2000)) {
		t.Fatalf("expected line -2000, got %s", store.state.lines[0].Amount)
	}
	if !result.Totals.DiscountAmount.Equal(decimal.NewFromInt(2000)) ||
		!result.Totals.FinalAmount.Equal(decimal.NewFromInt(18000)) {
		t.Fatalf("unexpected totals: %+v", result.Totals)
	}
}

func TestBook_BundlePromotionNeedsEveryTreatment(t *testing.T) {
	store := seededStore()
	store.promotions[7] = bundlePromotion(7, 10, facialId, maskId)

	result := mustBook(t, newTestService(store), twoTreatmentRequest(7))

	if len(result.Redemptions) != 0 || len(store.state.lines) != 0 {
		t.Fatalf("expected no redemption, got %d redemptions and %d lines", len(result.Redemptions), len(store.state.lines))
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason != SkipNotEligible {
		t.Fatalf("expected not-eligible skip, got %+v", result.Skipped)
	}
	if !result.Totals.FinalAmount.Equal(decimal.NewFromInt(20000)) {
		t.Fatalf("expected undiscounted 20000, got %s", result.Totals.FinalAmount)
	}
}

func TestBook_BundlePromotionIsNotStackable(t *testing.T) {
	store := seededStore()
	store.promotions[7] = bundlePromotion(7, 10, facialId, laserId)
	store.promotions[8] = bundlePromotion(8, 15, facialId)

	result := mustBook(t, newTestService(store), twoTreatmentRequest(7, 8))

	if len(result.Redemptions) != 1 || result.Redemptions[0].PromotionId != 7 {
		t.Fatalf("expected only promotion 7 redeemed, got %+v", result.Redemptions)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].PromotionId != 8 || result.Skipped[0].Reason != SkipStackingConflict {
		t.Fatalf("expected promotion 8 skipped for stacking, got %+v", result.Skipped)
	}
}

func TestBook_StackablePromotionsCombine(t *testing.T) {
	store := seededStore()
	store.promotions[1] = percentOffPromotion(1, false, 10)
	store.promotions[2] = percentOffPromotion(2, true, 5)

	result := mustBook(t, newTestService(store), twoTreatmentRequest(1, 2))

	if len(result.Redemptions) != 2 {
		t.Fatalf("expected 2 redemptions, got %d", len(result.Redemptions))
	}
	if !result.Totals.DiscountAmount.Equal(decimal.NewFromInt(3000)) {
		t.Fatalf("expected discount 3000, got %s", result.Totals.DiscountAmount)
	}
}

// Scenario C.
func TestBook_FreeItemWritesStockMovement(t *testing.T) {
	store := seededStore()
	store.promotions[1] = models.Promotion{
		ID: 1, IsStackable: true, IsActive: boolPtr(true),
		Benefits: []models.PromotionBenefit{{ID: 11, BenefitType: models.BenefitTypeFreeItem, FreeItemId: intPtr(maskId), FreeQty: intPtr(1)}},
	}

	result := mustBook(t, newTestService(store), twoTreatmentRequest(1))

	if len(store.state.lines) != 1 || store.state.lines[0].LineType != models.PromotionLineTypeFreeItem {
		t.Fatalf("expected one FREE_ITEM line, got %+v", store.state.lines)
	}
	if len(store.state.movements) != 1 {
		t.Fatalf("expected one stock movement, got %d", len(store.state.movements))
	}
	movement := store.state.movements[0]
	if movement.Qty != -1 || movement.MovementType != models.MovementTypeUseForPromotion || movement.ItemId != maskId {
		t.Fatalf("unexpected movement: %+v", movement)
	}
	if !result.Totals.DiscountAmount.IsZero() {
		t.Fatalf("free item must not discount, got %s", result.Totals.DiscountAmount)
	}
}

// Scenario D.
func TestBook_NewCustomerOnlyFirstBooking(t *testing.T) {
	store := seededStore()
	store.promotions[1] = models.Promotion{
		ID: 1, IsStackable: true, IsActive: boolPtr(true),
		ConditionGroups: []models.PromotionConditionGroup{{Rules: []models.PromotionConditionRule{{RuleType: models.RuleTypeNewCustomerOnly}}}},
		Benefits:        []models.PromotionBenefit{{ID: 11, BenefitType: models.BenefitTypeWalletCredit, ValueAmount: dec(500)}},
	}
	svc := newTestService(store)

	first := mustBook(t, svc, twoTreatmentRequest(1))
	if len(first.Redemptions) != 1 {
		t.Fatalf("expected first booking to redeem, got %+v", first.Skipped)
	}

	req := twoTreatmentRequest(1)
	req.CustomerCode = first.Customer.CustomerCode
	second := mustBook(t, svc, req)
	if second.Customer.ID != first.Customer.ID {
		t.Fatalf("expected existing customer reused")
	}
	if len(second.Redemptions) != 0 || len(second.Skipped) != 1 || second.Skipped[0].Reason != SkipNotEligible {
		t.Fatalf("expected second booking to skip as not eligible, got %+v", second.Skipped)
	}
	if len(store.state.customers) != 1 {
		t.Fatalf("expected one customer, got %d", len(store.state.customers))
	}
}

// Scenario E.
func TestBook_MinSpendEqualIsInclusive(t *testing.T) {
	store := seededStore()
	promo := percentOffPromotion(1, true, 10)
	promo.ConditionGroups = []models.PromotionConditionGroup{{Rules: []models.PromotionConditionRule{
		{RuleType: models.RuleTypeMinSpend, Op: opPtr(models.OperatorEQ), Amount: dec(20000)},
	}}}
	store.promotions[1] = promo

	result := mustBook(t, newTestService(store), twoTreatmentRequest(1))
	if len(result.Redemptions) != 1 {
		t.Fatalf("expected EQ 20000 to be satisfied, got %+v", result.Skipped)
	}
}

func TestBook_SkipsMissingAndUnavailablePromotions(t *testing.T) {
	store := seededStore()
	inactive := percentOffPromotion(1, true, 10)
	inactive.IsActive = boolPtr(false)
	store.promotions[1] = inactive
	expired := percentOffPromotion(2, true, 10)
	end := fixedNow.Add(-time.Hour)
	expired.EndAt = &end
	store.promotions[2] = expired

	result := mustBook(t, newTestService(store), twoTreatmentRequest(1, 2, 99))

	want := map[int]SkipReason{1: SkipUnavailable, 2: SkipUnavailable, 99: SkipNotFound}
	if len(result.Skipped) != len(want) {
		t.Fatalf("expected %d skips, got %+v", len(want), result.Skipped)
	}
	for _, s := range result.Skipped {
		if want[s.PromotionId] != s.Reason {
			t.Fatalf("promotion %d: expected %s, got %s", s.PromotionId, want[s.PromotionId], s.Reason)
		}
	}
	if !result.Totals.FinalAmount.Equal(decimal.NewFromInt(20000)) {
		t.Fatalf("expected undiscounted final, got %s", result.Totals.FinalAmount)
	}
}

func TestBook_DuplicatePromotionIdsAppliedOnce(t *testing.T) {
	store := seededStore()
	store.promotions[1] = percentOffPromotion(1, true, 10)

	result := mustBook(t, newTestService(store), twoTreatmentRequest(1, 1, 1))
	if len(result.Redemptions) != 1 || len(store.state.lines) != 1 {
		t.Fatalf("expected single application, got %d redemptions %d lines", len(result.Redemptions), len(store.state.lines))
	}
}

func TestBook_BuildsItemsAndSessions(t *testing.T) {
	store := seededStore()
	req := twoTreatmentRequest()
	req.Treatments[1].Quantity = 2
	ctx := utils.SetStaffIdInContext(context.Background(), 4)
	ctx = utils.SetCorrelationIdInContext(ctx, "corr-1")

	result, err := newTestService(store).Book(ctx, req)
	if err != nil {
		t.Fatalf("Book error: %v", err)
	}

	if result.Invoice.InvoiceNo != "INV-000001" || result.Customer.CustomerCode != "CUS-000001" {
		t.Fatalf("unexpected numbering: %s %s", result.Invoice.InvoiceNo, result.Customer.CustomerCode)
	}
	if result.Customer.Phone != "+66812345678" || !result.Customer.MemberWalletRemain.IsZero() {
		t.Fatalf("unexpected customer: %+v", result.Customer)
	}
	if result.Invoice.IssuedBy == nil || *result.Invoice.IssuedBy != 4 {
		t.Fatalf("expected issued_by 4, got %v", result.Invoice.IssuedBy)
	}
	laser := result.Items[1]
	if laser.SoldQty != 2 || laser.Qty != 4 || !laser.TotalPrice.Equal(decimal.NewFromInt(16000)) {
		t.Fatalf("unexpected laser line: sold=%d qty=%d total=%s", laser.SoldQty, laser.Qty, laser.TotalPrice)
	}
	if len(store.state.sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(store.state.sessions))
	}
	session := store.state.sessions[0]
	if session.SessionTime != "14:00" || session.SessionDate.Format("2006-01-02") != "2026-03-20" || session.SellInvoiceItemId != result.Items[0].ID {
		t.Fatalf("unexpected session: %+v", session)
	}
	if !result.Totals.TotalAmount.Equal(decimal.NewFromInt(28000)) {
		t.Fatalf("expected total 28000, got %s", result.Totals.TotalAmount)
	}

	if len(store.state.outbox) != 1 {
		t.Fatalf("expected 1 outbox record, got %d", len(store.state.outbox))
	}
	record := store.state.outbox[0]
	if record.ReferenceId != result.Invoice.ID || record.CorrelationId != "corr-1" || record.PublishStatus != models.OutboxPublishStatusPending {
		t.Fatalf("unexpected outbox record: %+v", record)
	}
	var payload BookingCommitted
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		t.Fatalf("payload decode: %v", err)
	}
	if payload.InvoiceNo != "INV-000001" || !payload.FinalAmount.Equal(decimal.NewFromInt(28000)) {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestBook_FailureRollsBackEverything(t *testing.T) {
	store := seededStore()
	store.promotions[1] = models.Promotion{
		ID: 1, IsStackable: true, IsActive: boolPtr(true),
		Benefits: []models.PromotionBenefit{{ID: 11, BenefitType: models.BenefitTypeFreeItem, FreeItemId: intPtr(maskId), FreeQty: intPtr(1)}},
	}
	store.failOn = "CreateOutboxRecord"

	result, err := newTestService(store).Book(context.Background(), twoTreatmentRequest(1))

	var storageErr *utils.StorageError
	if !errors.As(err, &storageErr) || !errors.Is(err, errMemFailure) {
		t.Fatalf("expected StorageError wrapping injected failure, got %v", err)
	}
	if result.State != StateFailed {
		t.Fatalf("expected Failed, got %s", result.State)
	}
	s := store.state
	if len(s.customers)+len(s.invoices)+len(s.items)+len(s.sessions)+len(s.redemptions)+len(s.lines)+len(s.movements)+len(s.outbox) != 0 {
		t.Fatalf("expected nothing committed, got %+v", s)
	}
}

func TestBook_ErrorKinds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(store *memStore, req *Request)
		check  func(err error) bool
	}{
		{"no treatments", func(store *memStore, req *Request) { req.Treatments = nil }, isValidation},
		{"zero quantity", func(store *memStore, req *Request) { req.Treatments[0].Quantity = 0 }, isValidation},
		{"negative price", func(store *memStore, req *Request) { req.Treatments[0].Price = decimal.NewFromInt(-1) }, isValidation},
		{"unknown treatment", func(store *memStore, req *Request) { req.Treatments[0].TreatmentId = 999 }, isValidation},
		{"bad phone", func(store *memStore, req *Request) { req.CustomerPhone = "not-a-phone" }, isValidation},
		{"customer lookup fails", func(store *memStore, req *Request) {
			store.failOn = "FindCustomerByCode"
			req.CustomerCode = "CUS-000009"
		}, isResolution},
		{"customer insert fails", func(store *memStore, req *Request) { store.failOn = "CreateCustomer" }, isResolution},
		{"promotion read fails", func(store *memStore, req *Request) {
			store.failOn = "FindPromotion"
			req.Promotions = []int{1}
		}, isStorage},
	}
	for _, tc := range cases {
		store := seededStore()
		req := twoTreatmentRequest()
		tc.mutate(store, &req)
		result, err := newTestService(store).Book(context.Background(), req)
		if err == nil || !tc.check(err) {
			t.Fatalf("%s: unexpected error kind: %v", tc.name, err)
		}
		if result.State != StateFailed {
			t.Fatalf("%s: expected Failed, got %s", tc.name, result.State)
		}
		if len(store.state.invoices) != 0 || len(store.state.customers) != 0 {
			t.Fatalf("%s: expected rollback", tc.name)
		}
	}
}

func TestCreateBooking_Response(t *testing.T) {
	store := seededStore()
	svc := newTestService(store)

	ok := svc.CreateBooking(context.Background(), twoTreatmentRequest())
	if !ok.Success || ok.InvoiceNo != "INV-000001" || ok.SellInvoiceId == 0 || ok.Message != "" {
		t.Fatalf("unexpected success response: %+v", ok)
	}

	bad := twoTreatmentRequest()
	bad.Treatments = nil
	failed := svc.CreateBooking(context.Background(), bad)
	if failed.Success || failed.Message == "" || failed.InvoiceNo != "" {
		t.Fatalf("unexpected failure response: %+v", failed)
	}
}

func isValidation(err error) bool {
	var ve *utils.ValidationError
	return errors.As(err, &ve)
}

func isResolution(err error) bool {
	var re *utils.ResolutionError
	return errors.As(err, &re)
}

func isStorage(err error) bool {
	var se *utils.StorageError
	return errors.As(err, &se)
}
