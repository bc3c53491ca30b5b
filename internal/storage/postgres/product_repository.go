package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/magnusbcarlsen/webshop-template-sub000/internal/domain"
)

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	const query = `
SELECT id, name, description, price, created_at
FROM products
WHERE id = $1`

	var p domain.Product
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}

	const imagesQuery = `
SELECT url
FROM product_images
WHERE product_id = $1
ORDER BY position ASC, id ASC`

	rows, err := r.pool.Query(ctx, imagesQuery, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("load product images: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return domain.Product{}, fmt.Errorf("scan product image: %w", err)
		}
		p.Images = append(p.Images, url)
	}
	if rows.Err() != nil {
		return domain.Product{}, fmt.Errorf("iterate product images: %w", rows.Err())
	}
	return p, nil
}

func (r *ProductRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	const query = `
SELECT id, name, description, price, created_at
FROM products
ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	byID := make(map[int64]int)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		byID[p.ID] = len(products)
		products = append(products, p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate products: %w", rows.Err())
	}
	if len(products) == 0 {
		return products, nil
	}

	const imagesQuery = `
SELECT product_id, url
FROM product_images
ORDER BY position ASC, id ASC`

	imageRows, err := r.pool.Query(ctx, imagesQuery)
	if err != nil {
		return nil, fmt.Errorf("list product images: %w", err)
	}
	defer imageRows.Close()
	for imageRows.Next() {
		var productID int64
		var url string
		if err := imageRows.Scan(&productID, &url); err != nil {
			return nil, fmt.Errorf("scan product image: %w", err)
		}
		if idx, ok := byID[productID]; ok {
			products[idx].Images = append(products[idx].Images, url)
		}
	}
	if imageRows.Err() != nil {
		return nil, fmt.Errorf("iterate product images: %w", imageRows.Err())
	}
	return products, nil
}
