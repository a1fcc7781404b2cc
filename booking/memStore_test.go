package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/refinehaus/clinic_backend/models"
	"github.com/shopspring/decimal"
)

// memState is the committed content of memStore. Promotions and treatments are catalog data and
// are shared across transactions; everything else is copied so a failed booking leaves no trace.
type memState struct {
	customers   []models.Customer
	invoices    []models.SellInvoice
	items       []models.SellInvoiceItem
	sessions    []models.TreatmentSession
	redemptions []models.PromotionRedemption
	lines       []models.PromotionLine
	movements   []models.StockMovement
	outbox      []models.OutboxRecord
	seq         map[string]int64
	nextId      int
}

func (s memState) clone() memState {
	seq := make(map[string]int64, len(s.seq))
	for k, v := range s.seq {
		seq[k] = v
	}
	return memState{
		customers:   append([]models.Customer(nil), s.customers...),
		invoices:    append([]models.SellInvoice(nil), s.invoices...),
		items:       append([]models.SellInvoiceItem(nil), s.items...),
		sessions:    append([]models.TreatmentSession(nil), s.sessions...),
		redemptions: append([]models.PromotionRedemption(nil), s.redemptions...),
		lines:       append([]models.PromotionLine(nil), s.lines...),
		movements:   append([]models.StockMovement(nil), s.movements...),
		outbox:      append([]models.OutboxRecord(nil), s.outbox...),
		seq:         seq,
		nextId:      s.nextId,
	}
}

type memStore struct {
	state      memState
	treatments map[int]models.Treatment
	promotions map[int]models.Promotion
	topups     map[int]decimal.Decimal

	// failOn makes the named Tx method return errMemFailure.
	failOn string
}

var errMemFailure = errors.New("injected failure")

func newMemStore() *memStore {
	return &memStore{
		state:      memState{seq: map[string]int64{}},
		treatments: map[int]models.Treatment{},
		promotions: map[int]models.Promotion{},
		topups:     map[int]decimal.Decimal{},
	}
}

func (m *memStore) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	tx := &memTx{store: m, memState: m.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.memState
	return nil
}

type memTx struct {
	memState
	store *memStore
}

func (t *memTx) fail(op string) error {
	if t.store.failOn == op {
		return fmt.Errorf("%s: %w", op, errMemFailure)
	}
	return nil
}

func (t *memTx) id() int {
	t.nextId++
	return t.nextId
}

func (t *memTx) FindCustomerByCode(ctx context.Context, code string) (*models.Customer, error) {
	if err := t.fail("FindCustomerByCode"); err != nil {
		return nil, err
	}
	for _, c := range t.customers {
		if c.CustomerCode == code {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (t *memTx) NextCustomerSequence(ctx context.Context) (int64, error) {
	t.seq["customer"]++
	return t.seq["customer"], nil
}

func (t *memTx) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	if err := t.fail("CreateCustomer"); err != nil {
		return err
	}
	customer.ID = t.id()
	t.customers = append(t.customers, *customer)
	return nil
}

func (t *memTx) NextInvoiceSequence(ctx context.Context) (int64, error) {
	t.seq["sell_invoice"]++
	return t.seq["sell_invoice"], nil
}

func (t *memTx) CreateInvoice(ctx context.Context, invoice *models.SellInvoice) error {
	invoice.ID = t.id()
	t.invoices = append(t.invoices, *invoice)
	return nil
}

func (t *memTx) FindTreatment(ctx context.Context, treatmentId int) (*models.Treatment, error) {
	tr, ok := t.store.treatments[treatmentId]
	if !ok {
		return nil, nil
	}
	return &tr, nil
}

func (t *memTx) CreateInvoiceItem(ctx context.Context, item *models.SellInvoiceItem) error {
	item.ID = t.id()
	t.items = append(t.items, *item)
	return nil
}

func (t *memTx) CreateTreatmentSession(ctx context.Context, session *models.TreatmentSession) error {
	session.ID = t.id()
	t.sessions = append(t.sessions, *session)
	return nil
}

func (t *memTx) ListInvoiceItems(ctx context.Context, invoiceId int) ([]models.SellInvoiceItem, error) {
	var out []models.SellInvoiceItem
	for _, item := range t.items {
		if item.SellInvoiceId == invoiceId {
			out = append(out, item)
		}
	}
	return out, nil
}

func (t *memTx) CountOtherInvoices(ctx context.Context, customerId int, excludeInvoiceId int) (int64, error) {
	var n int64
	for _, inv := range t.invoices {
		if inv.CustomerId == customerId && inv.ID != excludeInvoiceId {
			n++
		}
	}
	return n, nil
}

func (t *memTx) SumWalletTopups(ctx context.Context, customerId int) (decimal.Decimal, error) {
	return t.store.topups[customerId], nil
}

func (t *memTx) FindPromotion(ctx context.Context, promotionId int) (*models.Promotion, error) {
	if err := t.fail("FindPromotion"); err != nil {
		return nil, err
	}
	p, ok := t.store.promotions[promotionId]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (t *memTx) HasNonStackableRedemption(ctx context.Context, invoiceId int, excludePromotionId int) (bool, error) {
	for _, r := range t.redemptions {
		if r.SellInvoiceId != invoiceId || r.PromotionId == excludePromotionId {
			continue
		}
		if p, ok := t.store.promotions[r.PromotionId]; ok && !p.IsStackable {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CreateRedemption(ctx context.Context, redemption *models.PromotionRedemption) error {
	for _, r := range t.redemptions {
		if r.PromotionId == redemption.PromotionId && r.SellInvoiceId == redemption.SellInvoiceId {
			return fmt.Errorf("redemption exists: %w", models.ErrDuplicateKey)
		}
	}
	redemption.ID = t.id()
	t.redemptions = append(t.redemptions, *redemption)
	return nil
}

func (t *memTx) CreatePromotionLine(ctx context.Context, line *models.PromotionLine) error {
	line.ID = t.id()
	t.lines = append(t.lines, *line)
	return nil
}

func (t *memTx) CreateStockMovement(ctx context.Context, movement *models.StockMovement) error {
	if err := movement.BeforeCreate(nil); err != nil {
		return err
	}
	movement.ID = t.id()
	t.movements = append(t.movements, *movement)
	return nil
}

func (t *memTx) ListPromotionLines(ctx context.Context, invoiceId int) ([]models.PromotionLine, error) {
	var out []models.PromotionLine
	for _, line := range t.lines {
		if line.SellInvoiceId == invoiceId {
			out = append(out, line)
		}
	}
	return out, nil
}

func (t *memTx) UpdateInvoiceTotals(ctx context.Context, invoiceId int, totals models.InvoiceTotals) error {
	for i := range t.invoices {
		if t.invoices[i].ID == invoiceId {
			t.invoices[i].TotalAmount = totals.TotalAmount
			t.invoices[i].DiscountAmount = totals.DiscountAmount
			t.invoices[i].FinalAmount = totals.FinalAmount
		}
	}
	return nil
}

func (t *memTx) CreateOutboxRecord(ctx context.Context, record *models.OutboxRecord) error {
	if err := t.fail("CreateOutboxRecord"); err != nil {
		return err
	}
	record.ID = t.id()
	t.outbox = append(t.outbox, *record)
	return nil
}
