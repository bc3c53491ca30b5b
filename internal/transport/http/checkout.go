package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/magnusbcarlsen/webshop-template-sub000/internal/app"
	"github.com/magnusbcarlsen/webshop-template-sub000/internal/domain"
)

// SessionCreator is the minimal interface needed to start a checkout.
type SessionCreator interface {
	CreateSession(ctx context.Context, lines []app.CartLine) (string, error)
}

// HandleCreateCheckoutSession returns an HTTP handler that starts a hosted
// checkout session for a guest cart.
func HandleCreateCheckoutSession(svc SessionCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if len(req.Items) == 0 {
			writeError(w, http.StatusBadRequest, codeItemsRequired, "at least one item is required")
			return
		}

		lines := make([]app.CartLine, 0, len(req.Items))
		for _, item := range req.Items {
			if item.Quantity <= 0 {
				writeError(w, http.StatusBadRequest, codeInvalidQuantity, "quantity must be positive")
				return
			}
			lines = append(lines, app.CartLine{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
			})
		}

		sessionID, err := svc.CreateSession(r.Context(), lines)
		if err != nil {
			switch err {
			case domain.ErrInvalidRequest:
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
			case domain.ErrProductNotFound:
				writeError(w, http.StatusNotFound, codeProductNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(createSessionResponse{SessionID: sessionID})
	}
}

type createSessionRequest struct {
	Items []cartItemRequest `json:"items"`
}

type cartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}
