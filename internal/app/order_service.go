package app

import (
	"context"
	"time"

	"github.com/magnusbcarlsen/webshop-template-sub000/internal/clock"
	"github.com/magnusbcarlsen/webshop-template-sub000/internal/domain"
)

// OrderRepository is the full ledger contract used by admin operations.
type OrderRepository interface {
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	ListOrders(ctx context.Context, includeDeleted bool) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, change domain.StatusChange) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	Restore(ctx context.Context, id string) error
}

type OrderService struct {
	repo  OrderRepository
	clock clock.Clock
}

func NewOrderService(repo OrderRepository, clk clock.Clock) *OrderService {
	return &OrderService{
		repo:  repo,
		clock: clk,
	}
}

func (s *OrderService) Get(ctx context.Context, id string) (domain.Order, error) {
	if id == "" {
		return domain.Order{}, domain.ErrInvalidID
	}
	return s.repo.GetOrder(ctx, id)
}

func (s *OrderService) List(ctx context.Context, includeDeleted bool) ([]domain.Order, error) {
	return s.repo.ListOrders(ctx, includeDeleted)
}

type UpdateStatusInput struct {
	OrderID string
	Status  string
	Comment string
	Actor   string
}

// UpdateStatus applies one admin-driven transition and appends the matching
// history entry. Only forward or terminal transitions are permitted.
func (s *OrderService) UpdateStatus(ctx context.Context, in UpdateStatusInput) (domain.Order, error) {
	if in.OrderID == "" {
		return domain.Order{}, domain.ErrInvalidID
	}
	next, err := domain.ParseOrderStatus(in.Status)
	if err != nil {
		return domain.Order{}, err
	}

	order, err := s.repo.GetOrder(ctx, in.OrderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.Status.CanTransitionTo(next) {
		return domain.Order{}, domain.ErrInvalidStatusTransition
	}

	change := domain.StatusChange{
		Status:    next,
		Comment:   in.Comment,
		CreatedBy: in.Actor,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.UpdateStatus(ctx, in.OrderID, change); err != nil {
		return domain.Order{}, err
	}

	order.Status = next
	order.StatusHistory = append(order.StatusHistory, change)
	return order, nil
}

// SoftDelete tombstones an order without touching its status or history.
func (s *OrderService) SoftDelete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidID
	}
	return s.repo.SoftDelete(ctx, id, s.clock.Now())
}

// Restore clears a tombstone.
func (s *OrderService) Restore(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidID
	}
	return s.repo.Restore(ctx, id)
}
