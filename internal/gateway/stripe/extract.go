package stripe

import (
	"strconv"

	stripelib "github.com/stripe/stripe-go/v76"
)

// productIDExtractor recovers the originating catalog product id from one
// possible location on a line item, or reports that the location has none.
type productIDExtractor func(item *stripelib.LineItem) (int64, bool)

// Ordered: the price record's metadata is the authoritative location (it is
// what CreateCheckoutSession writes); the product record is the fallback for
// sessions created through the Stripe dashboard.
var productIDExtractors = []productIDExtractor{
	priceMetadataProductID,
	productMetadataProductID,
}

func extractProductID(item *stripelib.LineItem) *int64 {
	for _, extract := range productIDExtractors {
		if id, ok := extract(item); ok {
			return &id
		}
	}
	return nil
}

func priceMetadataProductID(item *stripelib.LineItem) (int64, bool) {
	if item.Price == nil {
		return 0, false
	}
	return parseProductID(item.Price.Metadata[metadataProductID])
}

func productMetadataProductID(item *stripelib.LineItem) (int64, bool) {
	if item.Price == nil || item.Price.Product == nil {
		return 0, false
	}
	return parseProductID(item.Price.Product.Metadata[metadataProductID])
}

func parseProductID(raw string) (int64, bool) {
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func lineDescription(item *stripelib.LineItem) string {
	if item.Description != "" {
		return item.Description
	}
	if item.Price != nil && item.Price.Product != nil && item.Price.Product.Name != "" {
		return item.Price.Product.Name
	}
	return "unknown item"
}
