package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/magnusbcarlsen/webshop-template-sub000/internal/domain"
	"github.com/magnusbcarlsen/webshop-template-sub000/internal/gateway"
)

// PaymentGateway is the hosted-payment provider as seen by the checkout and
// webhook services.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, in gateway.CreateSessionInput) (string, error)
	RetrieveSession(ctx context.Context, sessionID string) (gateway.SessionDetail, error)
	VerifyWebhook(payload []byte, signatureHeader string) (gateway.Event, error)
}

// CatalogLookup resolves a product to its current name, price and images.
type CatalogLookup interface {
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
}

// CartLine is one requested line of a guest cart. It carries no price: the
// catalog's current price is authoritative.
type CartLine struct {
	ProductID int64
	Quantity  int64
}

type CheckoutConfig struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

type CheckoutService struct {
	catalog CatalogLookup
	gateway PaymentGateway
	cfg     CheckoutConfig
}

func NewCheckoutService(catalog CatalogLookup, gw PaymentGateway, cfg CheckoutConfig) *CheckoutService {
	return &CheckoutService{
		catalog: catalog,
		gateway: gw,
		cfg:     cfg,
	}
}

var minorUnits = decimal.NewFromInt(100)

// CreateSession validates the cart lines, prices them from the catalog and
// creates one hosted checkout session. Any failure aborts before the gateway
// call with no partial state.
func (s *CheckoutService) CreateSession(ctx context.Context, lines []CartLine) (string, error) {
	if len(lines) == 0 {
		return "", domain.ErrInvalidRequest
	}
	for _, line := range lines {
		if line.ProductID <= 0 || line.Quantity < 1 {
			return "", domain.ErrInvalidRequest
		}
	}

	in := gateway.CreateSessionInput{
		Currency:   s.cfg.Currency,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
		Lines:      make([]gateway.SessionLineInput, 0, len(lines)),
	}
	for _, line := range lines {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return "", err
		}
		sessionLine := gateway.SessionLineInput{
			ProductID:       product.ID,
			Name:            product.Name,
			UnitAmountMinor: product.Price.Mul(minorUnits).Round(0).IntPart(),
			Quantity:        line.Quantity,
		}
		if len(product.Images) > 0 {
			sessionLine.ImageURL = product.Images[0]
		}
		in.Lines = append(in.Lines, sessionLine)
	}

	return s.gateway.CreateCheckoutSession(ctx, in)
}
