package ballot

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

// Handler exposes the vote and score routes.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public routes. The vote route expects an
// authenticated citizen and a classification in context.
func (h *Handler) Register(r chi.Router) {
	r.Post("/votes", h.castVote)
	r.Get("/targets/{targetID}/score", h.score)
}

// RegisterAdmin mounts the operator routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/targets", h.createTarget)
}

type castRequest struct {
	TargetID string  `json:"target_id"`
	Value    float64 `json:"value"`
}

// castResponse is deliberately identical for counted and uncounted
// ballots.
type castResponse struct {
	BallotID string  `json:"ballot_id"`
	TargetID string  `json:"target_id"`
	Updated  bool    `json:"updated"`
	NewScore float64 `json:"new_score"`
}

func (h *Handler) castVote(w http.ResponseWriter, r *http.Request) {
	voterID := requestcontext.CitizenID(r.Context())
	if voterID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, err := httputil.Decode[castRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	targetID, err := domain.ParseTargetID(req.TargetID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	outcome, err := h.service.CastVote(r.Context(), voterID, targetID, req.Value)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, castResponse{
		BallotID: outcome.BallotID.String(),
		TargetID: outcome.TargetID.String(),
		Updated:  outcome.Updated,
		NewScore: outcome.Score.Reputation,
	})
}

type scoreResponse struct {
	TargetID       string  `json:"target_id"`
	Reputation     float64 `json:"reputation"`
	IntegrityIndex float64 `json:"integrity_index"`
	Confidence     float64 `json:"confidence"`
	TotalVotes     int     `json:"total_votes"`
}

func (h *Handler) score(w http.ResponseWriter, r *http.Request) {
	targetID, err := domain.ParseTargetID(chi.URLParam(r, "targetID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	score, err := h.service.Score(r.Context(), targetID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, scoreResponse{
		TargetID:       targetID.String(),
		Reputation:     score.Reputation,
		IntegrityIndex: score.IntegrityIndex,
		Confidence:     score.Confidence,
		TotalVotes:     score.VoteCount,
	})
}

type createTargetRequest struct {
	Type         string `json:"type"`
	Name         string `json:"name"`
	Jurisdiction string `json:"jurisdiction"`
}

type targetResponse struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Name         string `json:"name"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
}

func (h *Handler) createTarget(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[createTargetRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	targetType, err := domain.ParseTargetType(req.Type)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	target, err := h.service.CreateTarget(r.Context(), targetType, req.Name, req.Jurisdiction)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, targetResponse{
		ID:           target.ID.String(),
		Type:         target.Type.String(),
		Name:         target.Name,
		Jurisdiction: target.Jurisdiction,
	})
}
