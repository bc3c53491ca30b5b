// Package stripe adapts the Stripe hosted-checkout API to the neutral
// gateway contract. The API key and webhook secret live on the constructed
// Gateway value, never in package state.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	stripelib "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/magnusbcarlsen/webshop-template-sub000/internal/gateway"
)

const metadataProductID = "productId"

type Gateway struct {
	api           *client.API
	webhookSecret string
}

func New(apiKey, webhookSecret string) *Gateway {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &Gateway{
		api:           api,
		webhookSecret: webhookSecret,
	}
}

// CreateCheckoutSession creates one payment-mode hosted session and returns
// its id.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, in gateway.CreateSessionInput) (string, error) {
	params := &stripelib.CheckoutSessionParams{
		Mode:       stripelib.String(string(stripelib.CheckoutSessionModePayment)),
		SuccessURL: stripelib.String(in.SuccessURL),
		CancelURL:  stripelib.String(in.CancelURL),
	}
	params.Context = ctx

	for _, line := range in.Lines {
		productData := &stripelib.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripelib.String(line.Name),
			Metadata: map[string]string{
				metadataProductID: strconv.FormatInt(line.ProductID, 10),
			},
		}
		if line.ImageURL != "" {
			productData.Images = stripelib.StringSlice([]string{line.ImageURL})
		}
		params.LineItems = append(params.LineItems, &stripelib.CheckoutSessionLineItemParams{
			Quantity: stripelib.Int64(line.Quantity),
			PriceData: &stripelib.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripelib.String(in.Currency),
				UnitAmount:  stripelib.Int64(line.UnitAmountMinor),
				ProductData: productData,
			},
		})
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.ID, nil
}

// RetrieveSession fetches a session with its line items and the catalog
// product metadata expanded.
func (g *Gateway) RetrieveSession(ctx context.Context, sessionID string) (gateway.SessionDetail, error) {
	params := &stripelib.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items")
	params.AddExpand("line_items.data.price.product")

	sess, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return gateway.SessionDetail{}, fmt.Errorf("retrieve checkout session %s: %w", sessionID, err)
	}
	return mapSession(sess), nil
}

// VerifyWebhook validates the signature header against the raw payload and
// returns the classified event. Any verification failure means the
// notification must not be processed.
func (g *Gateway) VerifyWebhook(payload []byte, signatureHeader string) (gateway.Event, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, g.webhookSecret)
	if err != nil {
		return gateway.Event{}, fmt.Errorf("verify webhook: %w", err)
	}
	return mapEvent(event)
}

func mapEvent(event stripelib.Event) (gateway.Event, error) {
	out := gateway.Event{Type: string(event.Type)}
	switch out.Type {
	case "checkout.session.completed":
		out.Kind = gateway.EventKindCompleted
	case "checkout.session.expired":
		out.Kind = gateway.EventKindExpired
	default:
		out.Kind = gateway.EventKindOther
		return out, nil
	}

	if event.Data == nil {
		return gateway.Event{}, fmt.Errorf("%s event carries no payload", out.Type)
	}
	var sess stripelib.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return gateway.Event{}, fmt.Errorf("decode %s payload: %w", out.Type, err)
	}
	out.SessionID = sess.ID
	return out, nil
}

func mapSession(sess *stripelib.CheckoutSession) gateway.SessionDetail {
	detail := gateway.SessionDetail{
		SessionID:           sess.ID,
		AmountSubtotalMinor: sess.AmountSubtotal,
		AmountTotalMinor:    sess.AmountTotal,
	}
	if sess.TotalDetails != nil {
		detail.AmountTaxMinor = sess.TotalDetails.AmountTax
		detail.AmountShippingMinor = sess.TotalDetails.AmountShipping
		detail.AmountDiscountMinor = sess.TotalDetails.AmountDiscount
	}
	for _, pmt := range sess.PaymentMethodTypes {
		detail.PaymentMethodTypes = append(detail.PaymentMethodTypes, string(pmt))
	}
	if sess.CustomerDetails != nil && (sess.CustomerDetails.Name != "" || sess.CustomerDetails.Email != "") {
		detail.Customer = &gateway.Customer{
			Name:  sess.CustomerDetails.Name,
			Email: sess.CustomerDetails.Email,
		}
		detail.BillingAddress = formatAddress(sess.CustomerDetails.Address)
	}
	if sess.ShippingDetails != nil {
		detail.ShippingAddress = formatAddress(sess.ShippingDetails.Address)
	}
	if detail.ShippingAddress == "" {
		detail.ShippingAddress = detail.BillingAddress
	}
	if sess.LineItems != nil {
		for _, item := range sess.LineItems.Data {
			detail.Lines = append(detail.Lines, gateway.SessionLine{
				ProductID:        extractProductID(item),
				Description:      lineDescription(item),
				Quantity:         item.Quantity,
				AmountTotalMinor: item.AmountTotal,
			})
		}
	}
	return detail
}

func formatAddress(addr *stripelib.Address) string {
	if addr == nil {
		return ""
	}
	parts := make([]string, 0, 6)
	for _, part := range []string{addr.Line1, addr.Line2, addr.PostalCode, addr.City, addr.State, addr.Country} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}
