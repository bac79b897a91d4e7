package posture

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veritas/pkg/platform/httputil"
)

// Handler exposes the operator posture routes.
type Handler struct {
	controller *Controller
	logger     *slog.Logger
}

func NewHandler(controller *Controller, logger *slog.Logger) *Handler {
	return &Handler{controller: controller, logger: logger}
}

// Register mounts the posture routes on the operator surface.
func (h *Handler) Register(r chi.Router) {
	r.Get("/posture", h.current)
	r.Put("/posture", h.put)
	r.Post("/posture/evaluate", h.evaluate)
}

type postureResponse struct {
	Posture string `json:"posture"`
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, postureResponse{
		Posture: h.controller.Current(r.Context()).String(),
	})
}

type switchRequest struct {
	Posture string `json:"posture"`
	Reason  string `json:"reason"`
}

type switchResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (h *Handler) put(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[switchRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	to, err := Parse(req.Posture)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	actor := r.Header.Get("X-Operator")
	if actor == "" {
		actor = "operator"
	}

	transition, err := h.controller.Switch(r.Context(), to, actor, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, switchResponse{
		From: transition.From.String(),
		To:   transition.To.String(),
	})
}

type evaluateRequest struct {
	TotalRequests      int `json:"total_requests"`
	SuspiciousRequests int `json:"suspicious_requests"`
}

type evaluateResponse struct {
	Current     string `json:"current"`
	Recommended string `json:"recommended"`
}

// evaluate recommends a posture from observed traffic counts. It commits
// nothing: switching stays a separate deliberate operator action.
func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[evaluateRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, evaluateResponse{
		Current:     h.controller.Current(r.Context()).String(),
		Recommended: h.controller.EvaluateThreat(req.TotalRequests, req.SuspiciousRequests).String(),
	})
}
