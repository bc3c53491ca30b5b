package app

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/magnusbcarlsen/webshop-template-sub000/internal/clock"
	"github.com/magnusbcarlsen/webshop-template-sub000/internal/domain"
	"github.com/magnusbcarlsen/webshop-template-sub000/internal/gateway"
)

// OrderLedger is the subset of order storage the reconciler needs.
type OrderLedger interface {
	FindByExternalSessionID(ctx context.Context, sessionID string) (*domain.Order, error)
	CreateOrder(ctx context.Context, order domain.Order) error
}

// EventPublisher emits order lifecycle events. Failures must never fail the
// webhook acknowledgement.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order domain.Order) error
}

type WebhookService struct {
	gateway PaymentGateway
	orders  OrderLedger
	events  EventPublisher
	clock   clock.Clock
	logger  *log.Logger
}

func NewWebhookService(gw PaymentGateway, orders OrderLedger, events EventPublisher, clk clock.Clock, logger *log.Logger) *WebhookService {
	if logger == nil {
		logger = log.Default()
	}
	return &WebhookService{
		gateway: gw,
		orders:  orders,
		events:  events,
		clock:   clk,
		logger:  logger,
	}
}

// Receipt is the outcome of one webhook delivery.
type Receipt struct {
	Order *domain.Order
	// Duplicate marks a redelivery that matched an already-materialized order.
	Duplicate bool
	// Ignored marks an accepted event type this system does not act on.
	Ignored bool
}

// HandleWebhook verifies one gateway notification and, for a completed
// checkout session, materializes the corresponding order exactly once.
func (s *WebhookService) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (Receipt, error) {
	event, err := s.gateway.VerifyWebhook(payload, signatureHeader)
	if err != nil {
		s.logger.Printf("webhook rejected: %v", err)
		return Receipt{}, domain.ErrSignatureInvalid
	}

	switch event.Kind {
	case gateway.EventKindCompleted:
		return s.materializeOrder(ctx, event.SessionID)
	case gateway.EventKindExpired:
		s.logger.Printf("checkout session expired session=%s", event.SessionID)
		return Receipt{Ignored: true}, nil
	default:
		s.logger.Printf("ignoring webhook event type=%s", event.Type)
		return Receipt{Ignored: true}, nil
	}
}

func (s *WebhookService) materializeOrder(ctx context.Context, sessionID string) (Receipt, error) {
	existing, err := s.orders.FindByExternalSessionID(ctx, sessionID)
	if err != nil {
		return Receipt{}, err
	}
	if existing != nil {
		return Receipt{Order: existing, Duplicate: true}, nil
	}

	detail, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return Receipt{}, err
	}
	if len(detail.Lines) == 0 || detail.Customer == nil {
		return Receipt{}, domain.ErrIncompleteSessionData
	}

	order := s.buildOrder(sessionID, detail)
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		// A concurrent delivery of the same session may win the insert race;
		// the unique constraint turns that into the duplicate case.
		if err == domain.ErrOrderAlreadyExists {
			existing, findErr := s.orders.FindByExternalSessionID(ctx, sessionID)
			if findErr != nil {
				return Receipt{}, findErr
			}
			if existing != nil {
				return Receipt{Order: existing, Duplicate: true}, nil
			}
		}
		return Receipt{}, err
	}

	if err := s.events.PublishOrderCreated(ctx, order); err != nil {
		s.logger.Printf("WARN: publish order.created order=%s: %v", order.ID, err)
	}
	return Receipt{Order: &order}, nil
}

func (s *WebhookService) buildOrder(sessionID string, detail gateway.SessionDetail) domain.Order {
	now := s.clock.Now()
	order := domain.Order{
		ID:                uuid.NewString(),
		ExternalSessionID: sessionID,
		GuestName:         detail.Customer.Name,
		GuestEmail:        detail.Customer.Email,
		Subtotal:          fromMinor(detail.AmountSubtotalMinor),
		TaxAmount:         fromMinor(detail.AmountTaxMinor),
		ShippingAmount:    fromMinor(detail.AmountShippingMinor),
		DiscountAmount:    fromMinor(detail.AmountDiscountMinor),
		TotalAmount:       fromMinor(detail.AmountTotalMinor),
		ShippingAddress:   detail.ShippingAddress,
		BillingAddress:    detail.BillingAddress,
		Status:            domain.OrderStatusPending,
		CreatedAt:         now,
		StatusHistory: []domain.StatusChange{{
			Status:    domain.OrderStatusPending,
			Comment:   "order created from completed checkout session",
			CreatedAt: now,
		}},
	}
	for _, line := range detail.Lines {
		quantity := line.Quantity
		if quantity < 1 {
			quantity = 1
		}
		lineTotal := fromMinor(line.AmountTotalMinor)
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:   line.ProductID,
			ProductName: line.Description,
			Quantity:    int(quantity),
			UnitPrice:   lineTotal.Div(decimal.NewFromInt(quantity)).Round(2),
			Subtotal:    lineTotal,
		})
	}
	return order
}

func fromMinor(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
