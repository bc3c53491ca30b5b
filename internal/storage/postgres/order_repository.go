package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/magnusbcarlsen/webshop-template-sub000/internal/domain"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const orderColumns = `
id, external_session_id, guest_name, guest_email,
subtotal, tax_amount, shipping_amount, discount_amount, total_amount,
shipping_address, billing_address, status, is_deleted, deleted_at, created_at`

// FindByExternalSessionID returns nil when no order exists for the session.
func (r *OrderRepository) FindByExternalSessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE external_session_id = $1`

	order, err := r.scanOrder(r.queryRow(ctx, query, sessionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find order by session: %w", err)
	}
	if err := r.loadAggregate(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := r.scanOrder(r.queryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	if err := r.loadAggregate(ctx, &order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// CreateOrder inserts the order, its items and its initial history entries in
// one transaction. A session-id collision maps to ErrOrderAlreadyExists.
func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		const stmt = `
INSERT INTO orders (
	id, external_session_id, guest_name, guest_email,
	subtotal, tax_amount, shipping_amount, discount_amount, total_amount,
	shipping_address, billing_address, status, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

		_, err := r.exec(txCtx, stmt,
			order.ID, order.ExternalSessionID, order.GuestName, order.GuestEmail,
			order.Subtotal, order.TaxAmount, order.ShippingAmount, order.DiscountAmount, order.TotalAmount,
			order.ShippingAddress, order.BillingAddress, order.Status, order.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrOrderAlreadyExists
			}
			return fmt.Errorf("create order: %w", err)
		}

		const itemStmt = `
INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, subtotal)
VALUES ($1, $2, $3, $4, $5, $6)`
		for _, item := range order.Items {
			if _, err := r.exec(txCtx, itemStmt,
				order.ID, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.Subtotal,
			); err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
		}

		for _, change := range order.StatusHistory {
			if err := r.insertStatusChange(txCtx, order.ID, change); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateStatus sets the order's status and appends the matching history entry
// in one transaction.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, change domain.StatusChange) error {
	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		const stmt = `UPDATE orders SET status = $2 WHERE id = $1`

		tag, err := r.exec(txCtx, stmt, id, change.Status)
		if err != nil {
			if isInvalidUUID(err) {
				return domain.ErrInvalidID
			}
			return fmt.Errorf("update order status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrOrderNotFound
		}
		return r.insertStatusChange(txCtx, id, change)
	})
}

func (r *OrderRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	const stmt = `UPDATE orders SET is_deleted = TRUE, deleted_at = $2 WHERE id = $1 AND NOT is_deleted`
	return r.execTombstone(ctx, stmt, id, at)
}

func (r *OrderRepository) Restore(ctx context.Context, id string) error {
	const stmt = `UPDATE orders SET is_deleted = FALSE, deleted_at = NULL WHERE id = $1 AND is_deleted`
	return r.execTombstone(ctx, stmt, id)
}

// ListOrders returns order headers newest-first; items and history are loaded
// by GetOrder.
func (r *OrderRepository) ListOrders(ctx context.Context, includeDeleted bool) ([]domain.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders`
	if !includeDeleted {
		query += ` WHERE NOT is_deleted`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate orders: %w", rows.Err())
	}
	return orders, nil
}

func (r *OrderRepository) scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var status string
	err := row.Scan(
		&o.ID, &o.ExternalSessionID, &o.GuestName, &o.GuestEmail,
		&o.Subtotal, &o.TaxAmount, &o.ShippingAmount, &o.DiscountAmount, &o.TotalAmount,
		&o.ShippingAddress, &o.BillingAddress, &status, &o.IsDeleted, &o.DeletedAt, &o.CreatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	return o, nil
}

func (r *OrderRepository) loadAggregate(ctx context.Context, order *domain.Order) error {
	const itemsQuery = `
SELECT id, product_id, product_name, quantity, unit_price, subtotal
FROM order_items
WHERE order_id = $1
ORDER BY id ASC`

	rows, err := r.query(ctx, itemsQuery, order.ID)
	if err != nil {
		return fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if rows.Err() != nil {
		return fmt.Errorf("iterate order items: %w", rows.Err())
	}

	const historyQuery = `
SELECT status, comment, created_by, created_at
FROM order_status_history
WHERE order_id = $1
ORDER BY created_at ASC, id ASC`

	rows, err = r.query(ctx, historyQuery, order.ID)
	if err != nil {
		return fmt.Errorf("load status history: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var change domain.StatusChange
		var status string
		if err := rows.Scan(&status, &change.Comment, &change.CreatedBy, &change.CreatedAt); err != nil {
			return fmt.Errorf("scan status change: %w", err)
		}
		change.Status = domain.OrderStatus(status)
		order.StatusHistory = append(order.StatusHistory, change)
	}
	if rows.Err() != nil {
		return fmt.Errorf("iterate status history: %w", rows.Err())
	}
	return nil
}

func (r *OrderRepository) insertStatusChange(ctx context.Context, orderID string, change domain.StatusChange) error {
	const stmt = `
INSERT INTO order_status_history (order_id, status, comment, created_by, created_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.exec(ctx, stmt, orderID, change.Status, change.Comment, change.CreatedBy, change.CreatedAt); err != nil {
		return fmt.Errorf("insert status change: %w", err)
	}
	return nil
}

func (r *OrderRepository) execTombstone(ctx context.Context, stmt string, args ...any) error {
	tag, err := r.exec(ctx, stmt, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update order tombstone: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *OrderRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *OrderRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
