package app

import (
	"context"
	"log"

	"github.com/magnusbcarlsen/webshop-template-sub000/internal/cache"
	"github.com/magnusbcarlsen/webshop-template-sub000/internal/domain"
)

// ProductRepository is the catalog's durable store.
type ProductRepository interface {
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// CatalogService serves product reads through an optional cache. Cache
// failures fall through to the repository.
type CatalogService struct {
	repo   ProductRepository
	cache  cache.ProductCache
	logger *log.Logger
}

func NewCatalogService(repo ProductRepository, productCache cache.ProductCache, logger *log.Logger) *CatalogService {
	if productCache == nil {
		productCache = cache.Nop{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CatalogService{
		repo:   repo,
		cache:  productCache,
		logger: logger,
	}
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	if id <= 0 {
		return domain.Product{}, domain.ErrProductNotFound
	}

	if cached, err := s.cache.Get(ctx, id); err == nil {
		return *cached, nil
	} else if err != cache.ErrCacheMiss {
		s.logger.Printf("WARN: product cache get id=%d: %v", id, err)
	}

	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.cache.Set(ctx, product); err != nil {
		s.logger.Printf("WARN: product cache set id=%d: %v", id, err)
	}
	return product, nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}
