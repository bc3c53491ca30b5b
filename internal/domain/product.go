package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Price is in the storefront's display currency.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Images      []string
	CreatedAt   time.Time
}
