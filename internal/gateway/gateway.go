// Package gateway defines the payment-provider contract consumed by the
// checkout and webhook services, independent of any concrete SDK.
package gateway

// EventKind is the closed set of webhook event variants this system reacts
// to. Anything the storefront does not act on maps to EventKindOther and is
// acknowledged without processing.
type EventKind int

const (
	EventKindOther EventKind = iota
	EventKindCompleted
	EventKindExpired
)

// Event is a verified webhook notification.
type Event struct {
	Kind EventKind
	// Type is the provider's raw event type, kept for logging.
	Type string
	// SessionID is set for checkout-session events.
	SessionID string
}

// CreateSessionInput describes one hosted checkout session to create.
type CreateSessionInput struct {
	Currency   string
	SuccessURL string
	CancelURL  string
	Lines      []SessionLineInput
}

// SessionLineInput is one priced line of a session request. Amounts are in
// the smallest currency unit.
type SessionLineInput struct {
	ProductID       int64
	Name            string
	ImageURL        string
	UnitAmountMinor int64
	Quantity        int64
}

// Customer is the buyer snapshot reported by the provider.
type Customer struct {
	Name  string
	Email string
}

// SessionLine is one line item of a completed session. ProductID is nil when
// the provider's metadata does not identify a catalog product.
type SessionLine struct {
	ProductID        *int64
	Description      string
	Quantity         int64
	AmountTotalMinor int64
}

// SessionDetail is the fully-retrieved state of a completed checkout session.
// All amounts are in the smallest currency unit.
type SessionDetail struct {
	SessionID           string
	Customer            *Customer
	ShippingAddress     string
	BillingAddress      string
	AmountSubtotalMinor int64
	AmountTotalMinor    int64
	AmountTaxMinor      int64
	AmountShippingMinor int64
	AmountDiscountMinor int64
	PaymentMethodTypes  []string
	Lines               []SessionLine
}
