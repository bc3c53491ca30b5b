package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/magnusbcarlsen/webshop-template-sub000/internal/app"
	"github.com/magnusbcarlsen/webshop-template-sub000/internal/domain"
)

// Stripe payloads are small; anything past this is not a legitimate event.
const maxWebhookBody = 1 << 20

// WebhookProcessor is the minimal interface needed to process a payment
// provider notification.
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (app.Receipt, error)
}

// HandleStripeWebhook returns an HTTP handler for Stripe event deliveries.
// The raw body is passed through untouched so signature verification sees
// exactly what Stripe signed.
func HandleStripeWebhook(svc WebhookProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "unable to read request body")
			return
		}

		receipt, err := svc.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
		if err != nil {
			switch err {
			case domain.ErrSignatureInvalid:
				writeError(w, http.StatusBadRequest, codeSignatureInvalid, err.Error())
			case domain.ErrIncompleteSessionData:
				writeError(w, http.StatusUnprocessableEntity, codeIncompleteSessionData, err.Error())
			default:
				// Transient failure; a 5xx makes Stripe redeliver.
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		resp := webhookResponse{Received: true}
		if receipt.Duplicate {
			resp.Duplicate = true
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type webhookResponse struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}
