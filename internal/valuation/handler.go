package valuation

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veritas/internal/rank"
	"veritas/pkg/platform/httputil"
)

// IdentityLister supplies the population the book is computed over.
type IdentityLister interface {
	List(ctx context.Context) ([]rank.Identity, error)
}

// Handler exposes the asset book to operators.
type Handler struct {
	identities IdentityLister
	logger     *slog.Logger
}

func NewHandler(identities IdentityLister, logger *slog.Logger) *Handler {
	return &Handler{identities: identities, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/aum", h.book)
}

type bookResponse struct {
	TotalUSD float64            `json:"total_usd"`
	Citizens int                `json:"citizens"`
	AvgValue float64            `json:"avg_value"`
	ByTier   map[string]float64 `json:"by_tier"`
}

func (h *Handler) book(w http.ResponseWriter, r *http.Request) {
	identities, err := h.identities.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	book := TotalValue(identities)
	byTier := make(map[string]float64, len(book.ByTier))
	for tier, v := range book.ByTier {
		byTier[tier.String()] = v
	}
	httputil.WriteJSON(w, http.StatusOK, bookResponse{
		TotalUSD: book.TotalUSD,
		Citizens: book.Citizens,
		AvgValue: book.AvgValue,
		ByTier:   byTier,
	})
}
