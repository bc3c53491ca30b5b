package http

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouterConfig carries the services and settings the HTTP surface needs.
type RouterConfig struct {
	Checkout SessionCreator
	Webhook  WebhookProcessor
	Orders   OrderAdminService
	Catalog  ProductReader

	AllowedOrigins []string
	Logger         *log.Logger
}

// NewRouter assembles the public and admin routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", HealthHandler)

	r.Get("/products", HandleListProducts(cfg.Catalog))
	r.Get("/products/{id}", HandleGetProduct(cfg.Catalog))

	r.Post("/checkout/sessions", HandleCreateCheckoutSession(cfg.Checkout))
	r.Post("/webhooks/stripe", HandleStripeWebhook(cfg.Webhook))

	r.Route("/admin/orders", func(r chi.Router) {
		r.Get("/", HandleListOrders(cfg.Orders))
		r.Get("/{id}", HandleGetOrder(cfg.Orders))
		r.Post("/{id}/status", HandleUpdateOrderStatus(cfg.Orders))
		r.Delete("/{id}", HandleDeleteOrder(cfg.Orders))
		r.Post("/{id}/restore", HandleRestoreOrder(cfg.Orders))
	})

	r.NotFound(NotFoundHandler().ServeHTTP)
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})

	return RequestLogger(CORS(cfg.AllowedOrigins, r), cfg.Logger)
}
