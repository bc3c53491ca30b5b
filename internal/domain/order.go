package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// ParseOrderStatus validates a raw status value.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	switch OrderStatus(raw) {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return OrderStatus(raw), nil
	}
	return "", ErrInvalidStatus
}

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo enforces forward-only fulfilment progress; cancelled and
// refunded are reachable from any non-terminal state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() || next == s {
		return false
	}
	if next == OrderStatusCancelled || next == OrderStatusRefunded {
		return true
	}
	switch s {
	case OrderStatusPending:
		return next == OrderStatusProcessing
	case OrderStatusProcessing:
		return next == OrderStatusShipped
	case OrderStatusShipped:
		return next == OrderStatusDelivered
	}
	return false
}

// Order is the durable aggregate produced by reconciling a completed checkout
// session. ExternalSessionID is unique and carries the at-most-once guarantee.
type Order struct {
	ID                string
	ExternalSessionID string
	GuestName         string
	GuestEmail        string
	Subtotal          decimal.Decimal
	TaxAmount         decimal.Decimal
	ShippingAmount    decimal.Decimal
	DiscountAmount    decimal.Decimal
	TotalAmount       decimal.Decimal
	ShippingAddress   string
	BillingAddress    string
	Status            OrderStatus
	Items             []OrderItem
	StatusHistory     []StatusChange
	IsDeleted         bool
	DeletedAt         *time.Time
	CreatedAt         time.Time
}

// OrderItem is one billed line. ProductID is nil when the gateway line item
// could not be mapped back to a catalog entry; ProductName keeps the
// gateway-reported display name for that case.
type OrderItem struct {
	ID          int64
	ProductID   *int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// StatusChange is one append-only entry of the order's status log.
type StatusChange struct {
	Status    OrderStatus
	Comment   string
	CreatedBy string
	CreatedAt time.Time
}
