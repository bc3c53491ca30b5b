package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magnusbcarlsen/webshop-template-sub000/internal/domain"
	"github.com/magnusbcarlsen/webshop-template-sub000/internal/storage/postgres"
	"github.com/magnusbcarlsen/webshop-template-sub000/internal/testutil"
)

func TestOrderRepository_CreateAndFind(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	repo := postgres.NewOrderRepository(pool)
	now := time.Now().UTC().Truncate(time.Millisecond)
	order := testutil.NewOrder("cs_repo_1", now)

	if err := repo.CreateOrder(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	found, err := repo.FindByExternalSessionID(ctx, "cs_repo_1")
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if found == nil {
		t.Fatalf("expected order, got nil")
	}
	if found.ID != order.ID || found.GuestEmail != order.GuestEmail {
		t.Fatalf("unexpected order %+v", found)
	}
	if !found.Subtotal.Equal(order.Subtotal) || !found.TotalAmount.Equal(order.TotalAmount) {
		t.Fatalf("amounts did not round-trip: %+v", found)
	}
	if len(found.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(found.Items))
	}
	item := found.Items[0]
	if item.ProductID == nil || *item.ProductID != 1 {
		t.Fatalf("expected product id 1, got %v", item.ProductID)
	}
	if !item.UnitPrice.Equal(decimal.New(15000, -2)) {
		t.Fatalf("expected unit price 150.00, got %s", item.UnitPrice)
	}
	if len(found.StatusHistory) != 1 || found.StatusHistory[0].Status != domain.OrderStatusPending {
		t.Fatalf("expected initial history entry, got %+v", found.StatusHistory)
	}

	missing, err := repo.FindByExternalSessionID(ctx, "cs_missing")
	if err != nil {
		t.Fatalf("find missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown session, got %+v", missing)
	}
}

func TestOrderRepository_NilProductID(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	repo := postgres.NewOrderRepository(pool)
	order := testutil.NewOrder("cs_repo_nil", time.Now().UTC())
	order.Items[0].ProductID = nil
	order.Items[0].ProductName = "Archived print"

	if err := repo.CreateOrder(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	found, err := repo.FindByExternalSessionID(ctx, "cs_repo_nil")
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if found.Items[0].ProductID != nil {
		t.Fatalf("expected nil product id, got %v", *found.Items[0].ProductID)
	}
	if found.Items[0].ProductName != "Archived print" {
		t.Fatalf("expected fallback name, got %q", found.Items[0].ProductName)
	}
}

func TestOrderRepository_DuplicateSession(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	repo := postgres.NewOrderRepository(pool)
	now := time.Now().UTC()

	if err := repo.CreateOrder(ctx, testutil.NewOrder("cs_repo_dup", now)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := repo.CreateOrder(ctx, testutil.NewOrder("cs_repo_dup", now))
	if err != domain.ErrOrderAlreadyExists {
		t.Fatalf("expected ErrOrderAlreadyExists, got %v", err)
	}

	// The losing insert must leave no partial rows behind.
	var itemCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM order_items`).Scan(&itemCount); err != nil {
		t.Fatalf("count items: %v", err)
	}
	if itemCount != 1 {
		t.Fatalf("expected 1 item row, got %d", itemCount)
	}
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	repo := postgres.NewOrderRepository(pool)
	order := testutil.NewOrder("cs_repo_status", time.Now().UTC())
	if err := repo.CreateOrder(ctx, order); err != nil {
		t.Fatalf("create order: %v", err)
	}

	change := domain.StatusChange{
		Status:    domain.OrderStatusProcessing,
		Comment:   "packed",
		CreatedBy: "admin@example.com",
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.UpdateStatus(ctx, order.ID, change); err != nil {
		t.Fatalf("update status: %v", err)
	}

	got, err := repo.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != domain.OrderStatusProcessing {
		t.Fatalf("expected processing, got %s", got.Status)
	}
	if len(got.StatusHistory) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(got.StatusHistory))
	}
	latest := got.StatusHistory[len(got.StatusHistory)-1]
	if latest.Status != domain.OrderStatusProcessing || latest.Comment != "packed" {
		t.Fatalf("unexpected latest entry %+v", latest)
	}

	if err := repo.UpdateStatus(ctx, order.ID[:8]+"-0000-0000-0000-000000000000", change); err != domain.ErrOrderNotFound {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if err := repo.UpdateStatus(ctx, "not-a-uuid", change); err != domain.ErrInvalidID {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestOrderRepository_SoftDeleteRestoreList(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	repo := postgres.NewOrderRepository(pool)
	base := time.Now().UTC().Add(-time.Hour)
	first := testutil.NewOrder("cs_repo_a", base)
	second := testutil.NewOrder("cs_repo_b", base.Add(time.Minute))
	if err := repo.CreateOrder(ctx, first); err != nil {
		t.Fatalf("create first: %v", err)
	}
	if err := repo.CreateOrder(ctx, second); err != nil {
		t.Fatalf("create second: %v", err)
	}

	if err := repo.SoftDelete(ctx, first.ID, time.Now().UTC()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	visible, err := repo.ListOrders(ctx, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != second.ID {
		t.Fatalf("expected only the newer order, got %+v", visible)
	}

	all, err := repo.ListOrders(ctx, true)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(all))
	}
	// Newest first.
	if all[0].ID != second.ID || all[1].ID != first.ID {
		t.Fatalf("expected newest-first ordering, got %s then %s", all[0].ID, all[1].ID)
	}
	if !all[1].IsDeleted || all[1].DeletedAt == nil {
		t.Fatalf("expected tombstone on deleted order")
	}
	if all[1].Status != domain.OrderStatusPending {
		t.Fatalf("soft delete must not change status")
	}

	if err := repo.Restore(ctx, first.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	visible, err = repo.ListOrders(ctx, false)
	if err != nil {
		t.Fatalf("list after restore: %v", err)
	}
	if len(visible) != 2 {
		t.Fatalf("expected 2 visible orders after restore, got %d", len(visible))
	}
}
