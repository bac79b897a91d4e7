package identity

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veritas/internal/rank"
	"veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

// Handler exposes the citizen-facing identity routes.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterOpen mounts registration, the one citizen route that cannot
// require a token because the caller does not have an identity yet.
func (h *Handler) RegisterOpen(r chi.Router) {
	r.Post("/identity/register", h.register)
}

// Register mounts the citizen routes that expect an authenticated citizen
// in context.
func (h *Handler) Register(r chi.Router) {
	r.Post("/identity/verify-document", h.verifyDocument)
	r.Patch("/identity/profile", h.updateProfile)
	r.Get("/identity", h.get)
}

// RegisterAdmin mounts the operator routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/citizens/{citizenID}/confirm", h.operatorConfirm)
	r.Post("/citizens/{citizenID}/integrity", h.adjustIntegrity)
	r.Post("/citizens/{citizenID}/deactivate", h.deactivate)
	r.Post("/citizens/review-tenures", h.reviewTenures)
}

// identityResponse is the citizen-facing view. Shadow restriction is
// deliberately absent: a restricted citizen must not learn about it here.
type identityResponse struct {
	ID                string  `json:"id"`
	Tier              string  `json:"tier"`
	VerificationLevel int     `json:"verification_level"`
	IntegrityScore    float64 `json:"integrity_score"`
	Commune           string  `json:"commune,omitempty"`
	Region            string  `json:"region,omitempty"`
	AgeRange          string  `json:"age_range,omitempty"`
}

func toResponse(i rank.Identity) identityResponse {
	return identityResponse{
		ID:                i.ID.String(),
		Tier:              i.Tier.String(),
		VerificationLevel: int(i.VerificationLevel),
		IntegrityScore:    i.IntegrityScore,
		Commune:           i.Commune,
		Region:            i.Region,
		AgeRange:          i.AgeRange,
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	identity, err := h.service.Register(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(identity))
}

type verifyDocumentRequest struct {
	NationalID string `json:"national_id"`
}

func (h *Handler) verifyDocument(w http.ResponseWriter, r *http.Request) {
	citizenID, ok := authenticated(w, r)
	if !ok {
		return
	}
	req, err := httputil.Decode[verifyDocumentRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	identity, err := h.service.VerifyDocument(r.Context(), citizenID, req.NationalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(identity))
}

type profileRequest struct {
	Commune  string `json:"commune"`
	Region   string `json:"region"`
	AgeRange string `json:"age_range"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	citizenID, ok := authenticated(w, r)
	if !ok {
		return
	}
	req, err := httputil.Decode[profileRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	identity, err := h.service.UpdateProfile(r.Context(), citizenID, req.Commune, req.Region, req.AgeRange)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(identity))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	citizenID, ok := authenticated(w, r)
	if !ok {
		return
	}
	identity, err := h.service.Get(r.Context(), citizenID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(identity))
}

// adminIdentityResponse is the operator view, restriction state included.
type adminIdentityResponse struct {
	identityResponse
	Active           bool `json:"active"`
	ShadowRestricted bool `json:"shadow_restricted"`
}

func toAdminResponse(i rank.Identity) adminIdentityResponse {
	return adminIdentityResponse{
		identityResponse: toResponse(i),
		Active:           i.Active,
		ShadowRestricted: i.ShadowRestricted,
	}
}

func (h *Handler) operatorConfirm(w http.ResponseWriter, r *http.Request) {
	citizenID, err := domain.ParseCitizenID(chi.URLParam(r, "citizenID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	identity, err := h.service.OperatorConfirm(r.Context(), citizenID, operatorActor(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAdminResponse(identity))
}

type integrityRequest struct {
	Delta  float64 `json:"delta"`
	Reason string  `json:"reason"`
}

func (h *Handler) adjustIntegrity(w http.ResponseWriter, r *http.Request) {
	citizenID, err := domain.ParseCitizenID(chi.URLParam(r, "citizenID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[integrityRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	identity, err := h.service.AdjustIntegrity(r.Context(), citizenID, req.Delta, operatorActor(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAdminResponse(identity))
}

type deactivateRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	citizenID, err := domain.ParseCitizenID(chi.URLParam(r, "citizenID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[deactivateRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Deactivate(r.Context(), citizenID, operatorActor(r), req.Reason); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reviewTenures(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ReviewTenures(r.Context()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authenticated pulls the citizen from context, answering 401 when absent.
func authenticated(w http.ResponseWriter, r *http.Request) (domain.CitizenID, bool) {
	citizenID := requestcontext.CitizenID(r.Context())
	if citizenID.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return domain.CitizenID{}, false
	}
	return citizenID, true
}

func operatorActor(r *http.Request) string {
	if actor := r.Header.Get("X-Operator"); actor != "" {
		return actor
	}
	return "operator"
}
