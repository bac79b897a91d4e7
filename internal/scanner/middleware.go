package scanner

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"veritas/internal/fingerprint"
	"veritas/internal/posture"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

// Client-declared signal headers. Absent headers read as zero values; the
// scanner treats missing timing as no timing evidence.
const (
	headerFillDuration = "X-Fill-Duration-Ms"
	headerWebDriver    = "X-Client-Webdriver"

	// headerChallengeResponse carries a solved challenge token. Token
	// verification belongs to the challenge provider; here presence lifts
	// the interrupt so the request is processed under its classification.
	headerChallengeResponse = "X-Challenge-Response"
)

// PostureReader is the slice of the posture controller the middleware needs.
type PostureReader interface {
	Current(ctx context.Context) posture.Posture
}

// Middleware classifies every request passing through it and attaches the
// verdict to the context. A challenged caller gets a challenge envelope;
// a DISPLACED caller that is not challenged proceeds normally and downstream
// handlers answer with the same success shape a trusted caller sees.
type Middleware struct {
	extractor *fingerprint.Extractor
	scanner   *Scanner
	postures  PostureReader
	logger    *slog.Logger
}

func NewMiddleware(extractor *fingerprint.Extractor, scanner *Scanner, postures PostureReader, logger *slog.Logger) *Middleware {
	return &Middleware{extractor: extractor, scanner: scanner, postures: postures, logger: logger}
}

// Classify is the chi middleware.
func (m *Middleware) Classify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		fp := m.extractor.Extract(fingerprint.Signals{
			FillDuration:   parseFillDuration(r.Header.Get(headerFillDuration)),
			ClientIdentity: requestcontext.UserAgent(ctx),
			ClientIP:       requestcontext.ClientIP(ctx),
			WebDriver:      r.Header.Get(headerWebDriver) == "true",
		})

		p := m.postures.Current(ctx)
		c := m.scanner.Classify(fp, p)

		m.logger.DebugContext(ctx, "request classified",
			"class", c.Class,
			"score", c.Score,
			"posture", p,
		)

		if c.RequireChallenge && r.Header.Get(headerChallengeResponse) == "" {
			httputil.WriteJSON(w, http.StatusPreconditionRequired, challengeResponse{
				Challenge: string(c.ChallengeKind),
			})
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClassification(ctx, c)))
	})
}

// challengeResponse is the only classification detail a caller ever sees.
type challengeResponse struct {
	Challenge string `json:"challenge"`
}

func parseFillDuration(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms < 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
