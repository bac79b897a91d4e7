package audit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veritas/pkg/platform/httputil"
)

// Handler exposes read access to the trail for operators. There is no
// write surface; events only arrive through the publisher.
type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/{entityType}/{entityID}", h.listByEntity)
}

type eventResponse struct {
	Category   string            `json:"category"`
	Timestamp  time.Time         `json:"timestamp"`
	Actor      string            `json:"actor"`
	Action     string            `json:"action"`
	EntityType string            `json:"entity_type"`
	EntityID   string            `json:"entity_id"`
	Reason     string            `json:"reason,omitempty"`
	Detail     map[string]string `json:"detail,omitempty"`
}

func (h *Handler) listByEntity(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityID := chi.URLParam(r, "entityID")

	events, err := h.store.ListByEntity(r.Context(), entityType, entityID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, eventResponse{
			Category:   string(ev.Category),
			Timestamp:  ev.Timestamp,
			Actor:      ev.Actor,
			Action:     string(ev.Action),
			EntityType: ev.EntityType,
			EntityID:   ev.EntityID,
			Reason:     ev.Reason,
			Detail:     ev.Detail,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
