package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/partsdepot/pricing-engine/internal/domain/catalog"
	"github.com/partsdepot/pricing-engine/internal/domain/discount"
	"github.com/partsdepot/pricing-engine/internal/domain/order"
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string
}

// Handler exposes the pricing engine over a small JSON API, delegating
// business logic to the injected domain services.
type Handler struct {
	products     catalog.Repository
	rules        discount.Repository
	resolver     *discount.Resolver
	orderService *order.Service
	imageBaseURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products catalog.Repository,
	rules discount.Repository,
	resolver *discount.Resolver,
	orderService *order.Service,
) *Handler {
	return &Handler{
		products:     products,
		rules:        rules,
		resolver:     resolver,
		orderService: orderService,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes registers the API routes on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/products", h.ListProducts)
	r.Get("/products/{productID}", h.GetProduct)
	r.Post("/discounts/resolve", h.ResolveDiscount)
	r.Post("/orders", h.PlaceOrder)
}

// errorResponse is the JSON error body shared by all endpoints.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, reason string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message, Reason: reason})
}
