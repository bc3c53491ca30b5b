package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/magnusbcarlsen/webshop-template-sub000/internal/app"
	"github.com/magnusbcarlsen/webshop-template-sub000/internal/domain"
)

// OrderAdminService is the minimal interface needed for the admin order
// endpoints.
type OrderAdminService interface {
	Get(ctx context.Context, id string) (domain.Order, error)
	List(ctx context.Context, includeDeleted bool) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, in app.UpdateStatusInput) (domain.Order, error)
	SoftDelete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
}

// HandleListOrders returns an HTTP handler that lists order headers,
// newest first. Soft-deleted orders are hidden unless include_deleted=true.
func HandleListOrders(svc OrderAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeDeleted := r.URL.Query().Get("include_deleted") == "true"

		orders, err := svc.List(r.Context(), includeDeleted)
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		resp := make([]orderHeaderResponse, 0, len(orders))
		for _, order := range orders {
			resp = append(resp, toOrderHeader(order))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// HandleGetOrder returns an HTTP handler that serves one order with its
// items and status history.
func HandleGetOrder(svc OrderAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeOrderError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toOrderDetail(order))
	}
}

// HandleUpdateOrderStatus returns an HTTP handler for admin-driven status
// transitions.
func HandleUpdateOrderStatus(svc OrderAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateStatusRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.Status == "" {
			writeError(w, http.StatusBadRequest, codeInvalidStatus, "status is required")
			return
		}

		order, err := svc.UpdateStatus(r.Context(), app.UpdateStatusInput{
			OrderID: chi.URLParam(r, "id"),
			Status:  req.Status,
			Comment: req.Comment,
			Actor:   req.CreatedBy,
		})
		if err != nil {
			switch err {
			case domain.ErrInvalidStatus:
				writeError(w, http.StatusBadRequest, codeInvalidStatus, err.Error())
			case domain.ErrInvalidStatusTransition:
				writeError(w, http.StatusConflict, codeInvalidStatusTransition, err.Error())
			default:
				writeOrderError(w, err)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(toOrderDetail(order))
	}
}

// HandleDeleteOrder returns an HTTP handler that soft-deletes an order.
func HandleDeleteOrder(svc OrderAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.SoftDelete(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeOrderError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleRestoreOrder returns an HTTP handler that reverses a soft delete.
func HandleRestoreOrder(svc OrderAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Restore(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeOrderError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeOrderError(w http.ResponseWriter, err error) {
	switch err {
	case domain.ErrInvalidID:
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case domain.ErrOrderNotFound:
		writeError(w, http.StatusNotFound, codeOrderNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}

type updateStatusRequest struct {
	Status    string `json:"status"`
	Comment   string `json:"comment,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
}

type orderHeaderResponse struct {
	ID                string     `json:"id"`
	ExternalSessionID string     `json:"external_session_id"`
	GuestName         string     `json:"guest_name"`
	GuestEmail        string     `json:"guest_email"`
	Subtotal          string     `json:"subtotal"`
	TaxAmount         string     `json:"tax_amount"`
	ShippingAmount    string     `json:"shipping_amount"`
	DiscountAmount    string     `json:"discount_amount"`
	TotalAmount       string     `json:"total_amount"`
	Status            string     `json:"status"`
	IsDeleted         bool       `json:"is_deleted"`
	DeletedAt         *time.Time `json:"deleted_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type orderDetailResponse struct {
	orderHeaderResponse
	ShippingAddress string                 `json:"shipping_address"`
	BillingAddress  string                 `json:"billing_address"`
	Items           []orderItemResponse    `json:"items"`
	StatusHistory   []statusChangeResponse `json:"status_history"`
}

type orderItemResponse struct {
	ProductID   *int64 `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

type statusChangeResponse struct {
	Status    string    `json:"status"`
	Comment   string    `json:"comment,omitempty"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toOrderHeader(order domain.Order) orderHeaderResponse {
	return orderHeaderResponse{
		ID:                order.ID,
		ExternalSessionID: order.ExternalSessionID,
		GuestName:         order.GuestName,
		GuestEmail:        order.GuestEmail,
		Subtotal:          order.Subtotal.StringFixed(2),
		TaxAmount:         order.TaxAmount.StringFixed(2),
		ShippingAmount:    order.ShippingAmount.StringFixed(2),
		DiscountAmount:    order.DiscountAmount.StringFixed(2),
		TotalAmount:       order.TotalAmount.StringFixed(2),
		Status:            string(order.Status),
		IsDeleted:         order.IsDeleted,
		DeletedAt:         order.DeletedAt,
		CreatedAt:         order.CreatedAt,
	}
}

func toOrderDetail(order domain.Order) orderDetailResponse {
	resp := orderDetailResponse{
		orderHeaderResponse: toOrderHeader(order),
		ShippingAddress:     order.ShippingAddress,
		BillingAddress:      order.BillingAddress,
		Items:               make([]orderItemResponse, 0, len(order.Items)),
		StatusHistory:       make([]statusChangeResponse, 0, len(order.StatusHistory)),
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Subtotal:    item.Subtotal.StringFixed(2),
		})
	}
	for _, change := range order.StatusHistory {
		resp.StatusHistory = append(resp.StatusHistory, statusChangeResponse{
			Status:    string(change.Status),
			Comment:   change.Comment,
			CreatedBy: change.CreatedBy,
			CreatedAt: change.CreatedAt,
		})
	}
	return resp
}
