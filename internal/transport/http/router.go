// Package httptransport assembles the HTTP surface. Feature packages own
// their handlers; this package only decides mounting and middleware order.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veritas/internal/audit"
	"veritas/internal/ballot"
	"veritas/internal/identity"
	"veritas/internal/posture"
	"veritas/internal/scanner"
	"veritas/internal/valuation"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/platform/middleware/auth"
	"veritas/pkg/platform/middleware/metadata"
	"veritas/pkg/platform/middleware/requesttime"
)

// Deps carries everything the router mounts.
type Deps struct {
	Logger *slog.Logger

	TokenValidator auth.TokenValidator
	Classifier     *scanner.Middleware

	Scanner   *scanner.Handler
	Identity  *identity.Handler
	Ballot    *ballot.Handler
	Posture   *posture.Handler
	Audit     *audit.Handler
	Valuation *valuation.Handler
}

// NewRouter wires all endpoints. Middleware order matters: metadata and
// request time run first so every downstream layer sees the same request
// identity and clock, auth establishes the citizen, and classification runs
// last so the verdict can use the authenticated context.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(metadata.Middleware)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Registration is open but still classified, so scripted signups face
	// the same challenge wall as any other scripted traffic.
	r.Group(func(r chi.Router) {
		r.Use(d.Classifier.Classify)
		d.Identity.RegisterOpen(r)
	})

	// Citizen surface. Every route is token-guarded and classified; the
	// scanner decides per request whether a challenge interrupts it.
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(d.TokenValidator, d.Logger))
		r.Use(d.Classifier.Classify)

		d.Identity.Register(r)
		d.Ballot.Register(r)
	})

	// Operator surface. Trusted network access is assumed here; these
	// routes bypass classification so a RED posture cannot lock the
	// operators out of the controls that clear it.
	r.Route("/admin", func(r chi.Router) {
		d.Posture.Register(r)
		d.Identity.RegisterAdmin(r)
		d.Ballot.RegisterAdmin(r)
		d.Audit.Register(r)
		d.Valuation.Register(r)
		// Full classification verdicts stay on the operator surface;
		// ordinary callers only ever see the challenge interrupt.
		d.Scanner.Register(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
