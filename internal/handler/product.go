package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/partsdepot/pricing-engine/internal/domain/catalog"
	"github.com/partsdepot/pricing-engine/internal/domain/discount"
)

// productResponse is the JSON shape for a catalog product with its display
// pricing.
type productResponse struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Brand              string  `json:"brand,omitempty"`
	Category           string  `json:"category"`
	Image              string  `json:"image,omitempty"`
	Price              float64 `json:"price"`
	DisplayPrice       float64 `json:"displayPrice"`
	DiscountPercentage float64 `json:"discountPercentage,omitempty"`
}

// ListProducts returns the catalog enriched with the best automatic discount
// per product. Discount computation is best-effort: if the rule fetch fails,
// products are served at full price rather than failing the listing.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.products.List(ctx)
	if err != nil {
		zctx.From(ctx).Error("list products", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list products", "")
		return
	}

	now := time.Now()
	rules, err := h.rules.FindAutomaticActive(ctx, now)
	if err != nil {
		zctx.From(ctx).Warn("automatic rules unavailable, serving full prices", zap.Error(err))
		rules = nil
	}

	enriched := catalog.Enrich(products, rules, now)
	out := make([]productResponse, len(enriched))
	for i, p := range enriched {
		out[i] = h.toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetProduct returns a single product by ID with its display pricing.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "productID")

	p, err := h.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found", "")
			return
		}
		zctx.From(ctx).Error("get product", zap.Error(err), zap.String("product_id", id))
		writeError(w, http.StatusInternalServerError, "failed to get product", "")
		return
	}

	now := time.Now()
	var rules []discount.Rule
	if rules, err = h.rules.FindAutomaticActive(ctx, now); err != nil {
		zctx.From(ctx).Warn("automatic rules unavailable, serving full price", zap.Error(err))
		rules = nil
	}

	enriched := catalog.Enrich([]catalog.Product{*p}, rules, now)
	writeJSON(w, http.StatusOK, h.toProductResponse(enriched[0]))
}

func (h *Handler) toProductResponse(p catalog.EnrichedProduct) productResponse {
	image := p.Image
	if image != "" && h.imageBaseURL != "" {
		image = h.imageBaseURL + image
	}
	return productResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Brand:              p.Brand,
		Category:           p.Category,
		Image:              image,
		Price:              p.Price.InexactFloat64(),
		DisplayPrice:       p.DisplayPrice.InexactFloat64(),
		DiscountPercentage: p.DiscountPercentage.InexactFloat64(),
	}
}
