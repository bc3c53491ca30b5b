package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magnusbcarlsen/webshop-template-sub000/internal/clock"
	"github.com/magnusbcarlsen/webshop-template-sub000/internal/domain"
	"github.com/magnusbcarlsen/webshop-template-sub000/internal/gateway"
)

func completedEvent(sessionID string) gateway.Event {
	return gateway.Event{
		Kind:      gateway.EventKindCompleted,
		Type:      "checkout.session.completed",
		SessionID: sessionID,
	}
}

func sessionDetailFixture(sessionID string) gateway.SessionDetail {
	productID := int64(7)
	return gateway.SessionDetail{
		SessionID:           sessionID,
		Customer:            &gateway.Customer{Name: "Jess Wexler", Email: "jess@example.com"},
		ShippingAddress:     "Nyhavn 12, 1051, Copenhagen, DK",
		BillingAddress:      "Nyhavn 12, 1051, Copenhagen, DK",
		AmountSubtotalMinor: 15000,
		AmountTotalMinor:    15000,
		Lines: []gateway.SessionLine{
			{ProductID: &productID, Description: "Harbor Study II", Quantity: 1, AmountTotalMinor: 15000},
		},
	}
}

func TestWebhookService_HandleWebhook(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	t.Run("materializes order from completed session", func(t *testing.T) {
		gw := &fakeGateway{
			verifyEvent: completedEvent("cs_test_1"),
			detail:      sessionDetailFixture("cs_test_1"),
		}
		ledger := newFakeLedger()
		publisher := &recordingPublisher{}
		svc := NewWebhookService(gw, ledger, publisher, clock.NewFixed(now), nil)

		receipt, err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if receipt.Duplicate || receipt.Ignored {
			t.Fatalf("expected fresh order, got %+v", receipt)
		}

		order := ledger.orders["cs_test_1"]
		if order.Status != domain.OrderStatusPending {
			t.Fatalf("expected pending, got %s", order.Status)
		}
		if order.GuestEmail != "jess@example.com" || order.GuestName != "Jess Wexler" {
			t.Fatalf("unexpected customer snapshot %+v", order)
		}
		if len(order.Items) != 1 {
			t.Fatalf("expected 1 item, got %d", len(order.Items))
		}
		item := order.Items[0]
		if item.ProductID == nil || *item.ProductID != 7 {
			t.Fatalf("expected product id 7, got %v", item.ProductID)
		}
		if !item.UnitPrice.Equal(decimal.RequireFromString("150.00")) {
			t.Fatalf("expected unit price 150.00, got %s", item.UnitPrice)
		}
		if !item.Subtotal.Equal(decimal.RequireFromString("150.00")) {
			t.Fatalf("expected subtotal 150.00, got %s", item.Subtotal)
		}
		if len(order.StatusHistory) != 1 || order.StatusHistory[0].Status != domain.OrderStatusPending {
			t.Fatalf("expected initial pending history entry, got %+v", order.StatusHistory)
		}
		if len(publisher.published) != 1 || publisher.published[0].ID != order.ID {
			t.Fatalf("expected order.created published once")
		}
	})

	t.Run("money identity holds", func(t *testing.T) {
		detail := sessionDetailFixture("cs_test_2")
		detail.AmountSubtotalMinor = 15000
		detail.AmountTaxMinor = 3750
		detail.AmountShippingMinor = 900
		detail.AmountDiscountMinor = 1500
		detail.AmountTotalMinor = 18150
		gw := &fakeGateway{verifyEvent: completedEvent("cs_test_2"), detail: detail}
		ledger := newFakeLedger()
		svc := NewWebhookService(gw, ledger, &recordingPublisher{}, clock.NewFixed(now), nil)

		if _, err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		order := ledger.orders["cs_test_2"]
		identity := order.Subtotal.Add(order.TaxAmount).Add(order.ShippingAmount).Sub(order.DiscountAmount)
		if identity.Sub(order.TotalAmount).Abs().GreaterThan(decimal.RequireFromString("0.01")) {
			t.Fatalf("total identity violated: %s vs %s", identity, order.TotalAmount)
		}
	})

	t.Run("second delivery is a duplicate, not a second order", func(t *testing.T) {
		gw := &fakeGateway{
			verifyEvent: completedEvent("cs_test_3"),
			detail:      sessionDetailFixture("cs_test_3"),
		}
		ledger := newFakeLedger()
		publisher := &recordingPublisher{}
		svc := NewWebhookService(gw, ledger, publisher, clock.NewFixed(now), nil)

		first, err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig")
		if err != nil {
			t.Fatalf("first delivery: %v", err)
		}
		second, err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig")
		if err != nil {
			t.Fatalf("second delivery: %v", err)
		}
		if !second.Duplicate {
			t.Fatalf("expected duplicate receipt")
		}
		if second.Order.ID != first.Order.ID {
			t.Fatalf("expected same order, got %s and %s", first.Order.ID, second.Order.ID)
		}
		if len(ledger.orders) != 1 {
			t.Fatalf("expected exactly one order, got %d", len(ledger.orders))
		}
		if len(publisher.published) != 1 {
			t.Fatalf("expected one published event, got %d", len(publisher.published))
		}
		// Duplicates skip the session retrieval round trip.
		if len(gw.retrieveCalls) != 1 {
			t.Fatalf("expected 1 retrieval, got %d", len(gw.retrieveCalls))
		}
	})

	t.Run("unmapped line item degrades to nil product id", func(t *testing.T) {
		detail := sessionDetailFixture("cs_test_4")
		detail.Lines = []gateway.SessionLine{
			{ProductID: nil, Description: "Archived print", Quantity: 2, AmountTotalMinor: 8000},
		}
		gw := &fakeGateway{verifyEvent: completedEvent("cs_test_4"), detail: detail}
		ledger := newFakeLedger()
		svc := NewWebhookService(gw, ledger, &recordingPublisher{}, clock.NewFixed(now), nil)

		receipt, err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		item := receipt.Order.Items[0]
		if item.ProductID != nil {
			t.Fatalf("expected nil product id, got %d", *item.ProductID)
		}
		if item.ProductName != "Archived print" {
			t.Fatalf("expected fallback name, got %q", item.ProductName)
		}
		if !item.UnitPrice.Equal(decimal.RequireFromString("40.00")) {
			t.Fatalf("expected unit price 40.00, got %s", item.UnitPrice)
		}
	})

	t.Run("zero quantity billed as one", func(t *testing.T) {
		detail := sessionDetailFixture("cs_test_5")
		detail.Lines[0].Quantity = 0
		gw := &fakeGateway{verifyEvent: completedEvent("cs_test_5"), detail: detail}
		ledger := newFakeLedger()
		svc := NewWebhookService(gw, ledger, &recordingPublisher{}, clock.NewFixed(now), nil)

		receipt, err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		item := receipt.Order.Items[0]
		if item.Quantity != 1 || !item.UnitPrice.Equal(decimal.RequireFromString("150.00")) {
			t.Fatalf("unexpected item %+v", item)
		}
	})

	t.Run("invalid signature drops the notification", func(t *testing.T) {
		gw := &fakeGateway{verifyErr: errors.New("bad signature")}
		ledger := newFakeLedger()
		svc := NewWebhookService(gw, ledger, &recordingPublisher{}, clock.NewFixed(now), nil)

		if _, err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig"); err != domain.ErrSignatureInvalid {
			t.Fatalf("expected ErrSignatureInvalid, got %v", err)
		}
		if len(ledger.orders) != 0 {
			t.Fatalf("expected no order")
		}
	})

	t.Run("expired session acknowledged without side effect", func(t *testing.T) {
		gw := &fakeGateway{verifyEvent: gateway.Event{Kind: gateway.EventKindExpired, Type: "checkout.session.expired", SessionID: "cs_test_6"}}
		ledger := newFakeLedger()
		svc := NewWebhookService(gw, ledger, &recordingPublisher{}, clock.NewFixed(now), nil)

		receipt, err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !receipt.Ignored {
			t.Fatalf("expected ignored receipt")
		}
		if len(ledger.orders) != 0 || len(ledger.findCalls) != 0 {
			t.Fatalf("expected no ledger access")
		}
	})

	t.Run("unrelated event type acknowledged", func(t *testing.T) {
		gw := &fakeGateway{verifyEvent: gateway.Event{Kind: gateway.EventKindOther, Type: "payment_intent.succeeded"}}
		svc := NewWebhookService(gw, newFakeLedger(), &recordingPublisher{}, clock.NewFixed(now), nil)

		receipt, err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig")
		if err != nil || !receipt.Ignored {
			t.Fatalf("expected ignored ack, got %+v %v", receipt, err)
		}
	})

	t.Run("session without line items rejected", func(t *testing.T) {
		detail := sessionDetailFixture("cs_test_7")
		detail.Lines = nil
		gw := &fakeGateway{verifyEvent: completedEvent("cs_test_7"), detail: detail}
		ledger := newFakeLedger()
		svc := NewWebhookService(gw, ledger, &recordingPublisher{}, clock.NewFixed(now), nil)

		if _, err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig"); err != domain.ErrIncompleteSessionData {
			t.Fatalf("expected ErrIncompleteSessionData, got %v", err)
		}
		if len(ledger.orders) != 0 {
			t.Fatalf("expected no order")
		}
	})

	t.Run("session without customer details rejected", func(t *testing.T) {
		detail := sessionDetailFixture("cs_test_8")
		detail.Customer = nil
		gw := &fakeGateway{verifyEvent: completedEvent("cs_test_8"), detail: detail}
		ledger := newFakeLedger()
		svc := NewWebhookService(gw, ledger, &recordingPublisher{}, clock.NewFixed(now), nil)

		if _, err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig"); err != domain.ErrIncompleteSessionData {
			t.Fatalf("expected ErrIncompleteSessionData, got %v", err)
		}
	})

	t.Run("retrieval failure is retriable", func(t *testing.T) {
		retrieveErr := errors.New("gateway timeout")
		gw := &fakeGateway{verifyEvent: completedEvent("cs_test_9"), retrieveErr: retrieveErr}
		ledger := newFakeLedger()
		svc := NewWebhookService(gw, ledger, &recordingPublisher{}, clock.NewFixed(now), nil)

		if _, err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig"); err != retrieveErr {
			t.Fatalf("expected retrieval error, got %v", err)
		}
		if len(ledger.orders) != 0 {
			t.Fatalf("expected no partial order")
		}
	})

	t.Run("losing the insert race resolves to the existing order", func(t *testing.T) {
		existing := domain.Order{ID: "order-racer", ExternalSessionID: "cs_test_10"}
		ledger := &raceLedger{existing: existing}
		gw := &fakeGateway{verifyEvent: completedEvent("cs_test_10"), detail: sessionDetailFixture("cs_test_10")}
		publisher := &recordingPublisher{}
		svc := NewWebhookService(gw, ledger, publisher, clock.NewFixed(now), nil)

		receipt, err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !receipt.Duplicate || receipt.Order.ID != "order-racer" {
			t.Fatalf("expected duplicate with existing order, got %+v", receipt)
		}
		if len(publisher.published) != 0 {
			t.Fatalf("race loser must not publish")
		}
	})

	t.Run("publish failure does not fail the ack", func(t *testing.T) {
		gw := &fakeGateway{verifyEvent: completedEvent("cs_test_11"), detail: sessionDetailFixture("cs_test_11")}
		ledger := newFakeLedger()
		publisher := &recordingPublisher{err: errors.New("broker down")}
		svc := NewWebhookService(gw, ledger, publisher, clock.NewFixed(now), nil)

		if _, err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig"); err != nil {
			t.Fatalf("expected ack despite publish failure, got %v", err)
		}
		if len(ledger.orders) != 1 {
			t.Fatalf("expected order persisted")
		}
	})
}

type fakeLedger struct {
	orders    map[string]domain.Order
	findCalls []string
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{orders: make(map[string]domain.Order)}
}

func (f *fakeLedger) FindByExternalSessionID(_ context.Context, sessionID string) (*domain.Order, error) {
	f.findCalls = append(f.findCalls, sessionID)
	order, ok := f.orders[sessionID]
	if !ok {
		return nil, nil
	}
	copied := order
	return &copied, nil
}

func (f *fakeLedger) CreateOrder(_ context.Context, order domain.Order) error {
	if _, exists := f.orders[order.ExternalSessionID]; exists {
		return domain.ErrOrderAlreadyExists
	}
	f.orders[order.ExternalSessionID] = order
	return nil
}

// raceLedger simulates a concurrent delivery winning the insert: the first
// lookup sees nothing, the insert hits the unique constraint, the re-read
// sees the winner's order.
type raceLedger struct {
	existing domain.Order
	looked   bool
}

func (r *raceLedger) FindByExternalSessionID(context.Context, string) (*domain.Order, error) {
	if r.looked {
		copied := r.existing
		return &copied, nil
	}
	r.looked = true
	return nil, nil
}

func (r *raceLedger) CreateOrder(context.Context, domain.Order) error {
	return domain.ErrOrderAlreadyExists
}

type recordingPublisher struct {
	published []domain.Order
	err       error
}

func (p *recordingPublisher) PublishOrderCreated(_ context.Context, order domain.Order) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, order)
	return nil
}
