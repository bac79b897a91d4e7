package scanner

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"veritas/internal/fingerprint"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

// Handler exposes a diagnostic classification endpoint. It is mounted on
// the operator surface: the full verdict, score and alerts included, is
// never shown to ordinary callers.
type Handler struct {
	extractor *fingerprint.Extractor
	scanner   *Scanner
	postures  PostureReader
	logger    *slog.Logger
}

func NewHandler(extractor *fingerprint.Extractor, scanner *Scanner, postures PostureReader, logger *slog.Logger) *Handler {
	return &Handler{extractor: extractor, scanner: scanner, postures: postures, logger: logger}
}

// Register mounts the scanner routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/classify", h.classify)
}

type classifyRequest struct {
	FillDurationMs int64  `json:"fill_duration_ms"`
	ClientIdentity string `json:"client_identity"`
	ClientIP       string `json:"client_ip"`
	WebDriver      bool   `json:"webdriver"`
}

type classifyResponse struct {
	Score            int      `json:"score"`
	Class            string   `json:"class"`
	Alerts           []string `json:"alerts"`
	RequireChallenge bool     `json:"require_challenge"`
	ChallengeKind    string   `json:"challenge_kind,omitempty"`
}

func (h *Handler) classify(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[classifyRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ctx := r.Context()
	identity := req.ClientIdentity
	if identity == "" {
		identity = requestcontext.UserAgent(ctx)
	}
	ip := req.ClientIP
	if ip == "" {
		ip = requestcontext.ClientIP(ctx)
	}

	fp := h.extractor.Extract(fingerprint.Signals{
		FillDuration:   time.Duration(req.FillDurationMs) * time.Millisecond,
		ClientIdentity: identity,
		ClientIP:       ip,
		WebDriver:      req.WebDriver,
	})
	c := h.scanner.Classify(fp, h.postures.Current(ctx))

	alerts := make([]string, 0, len(c.Alerts))
	for _, a := range c.Alerts {
		alerts = append(alerts, string(a))
	}
	httputil.WriteJSON(w, http.StatusOK, classifyResponse{
		Score:            c.Score,
		Class:            string(c.Class),
		Alerts:           alerts,
		RequireChallenge: c.RequireChallenge,
		ChallengeKind:    string(c.ChallengeKind),
	})
}
