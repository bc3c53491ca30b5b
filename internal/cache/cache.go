package cache

import (
	"context"
	"errors"

	"github.com/magnusbcarlsen/webshop-template-sub000/internal/domain"
)

// ProductCache is a read-through cache in front of the catalog repository.
type ProductCache interface {
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Set(ctx context.Context, product domain.Product) error
}

var ErrCacheMiss = errors.New("cache miss")

// Nop satisfies ProductCache when no cache backend is configured.
type Nop struct{}

func (Nop) Get(context.Context, int64) (*domain.Product, error) {
	return nil, ErrCacheMiss
}

func (Nop) Set(context.Context, domain.Product) error {
	return nil
}
