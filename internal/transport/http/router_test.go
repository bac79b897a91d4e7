package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"veritas/internal/audit"
	"veritas/internal/ballot"
	"veritas/internal/fingerprint"
	"veritas/internal/identity"
	"veritas/internal/jwttoken"
	"veritas/internal/platform/config"
	"veritas/internal/posture"
	posturemetrics "veritas/internal/posture/metrics"
	"veritas/internal/pulse"
	"veritas/internal/ratelimit"
	"veritas/internal/reputation"
	"veritas/internal/scanner"
	"veritas/internal/valuation"
	"veritas/pkg/domain"
	"veritas/pkg/testutil"
)

const (
	signingKey = "router-test-key"
	issuer     = "veritas"

	browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Registered once per test binary; promauto panics on re-registration.
var postureMetrics = posturemetrics.New()

type RouterSuite struct {
	suite.Suite

	server       *httptest.Server
	postureStore *posture.InMemoryStore
	auditStore   *audit.InMemoryStore
	identities   *identity.Service
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	log := testutil.DiscardLogger()
	tunables := config.NewStore(config.Defaults())

	s.auditStore = audit.NewInMemoryStore()
	auditor := &syncAuditor{store: s.auditStore}

	s.postureStore = posture.NewInMemoryStore()
	postureController := posture.NewController(s.postureStore, log, postureMetrics, auditor)

	extractor := fingerprint.New(tunables)
	dnaScanner := scanner.New(tunables, nil)

	s.identities = identity.NewService(identity.NewInMemoryStore(), tunables, "router-test-salt", log, nil, auditor)

	ballotService := ballot.NewService(
		ballot.NewInMemoryStore(),
		s.identities,
		ratelimit.NewInMemory(time.Hour),
		reputation.NewEngine(tunables),
		tunables,
		pulse.NopPublisher{},
		auditor,
		log,
		nil,
	)

	router := NewRouter(Deps{
		Logger:         log,
		TokenValidator: jwttoken.New(signingKey, issuer),
		Classifier:     scanner.NewMiddleware(extractor, dnaScanner, postureController, log),
		Scanner:        scanner.NewHandler(extractor, dnaScanner, postureController, log),
		Identity:       identity.NewHandler(s.identities, log),
		Ballot:         ballot.NewHandler(ballotService, log),
		Posture:        posture.NewHandler(postureController, log),
		Audit:          audit.NewHandler(s.auditStore, log),
		Valuation:      valuation.NewHandler(s.identities, log),
	})
	s.server = httptest.NewServer(router)
}

func (s *RouterSuite) TearDownTest() {
	s.server.Close()
}

// syncAuditor persists inline so tests need no worker goroutine.
type syncAuditor struct {
	store *audit.InMemoryStore
}

func (a *syncAuditor) Emit(ctx context.Context, event audit.Event) {
	_ = a.store.Append(ctx, event)
}

func (s *RouterSuite) token(citizenID domain.CitizenID) string {
	claims := jwttoken.Claims{
		CitizenID: citizenID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	s.Require().NoError(err)
	return token
}

func (s *RouterSuite) do(method, path, token string, body any, headers map[string]string) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("X-Fill-Duration-Ms", "9500")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *RouterSuite) decode(resp *http.Response, into any) {
	testutil.DecodeJSON(s.T(), resp, into)
}

func (s *RouterSuite) TestHealthz() {
	resp := s.do(http.MethodGet, "/healthz", "", nil, nil)
	s.Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func (s *RouterSuite) TestVotesRequireToken() {
	resp := s.do(http.MethodPost, "/votes", "", map[string]any{}, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func (s *RouterSuite) TestRegistrationIsOpen() {
	resp := s.do(http.MethodPost, "/identity/register", "", nil, nil)
	s.Equal(http.StatusCreated, resp.StatusCode)

	var body struct {
		ID   string `json:"id"`
		Tier string `json:"tier"`
	}
	s.decode(resp, &body)
	s.Equal("BRONZE", body.Tier)
	s.NotEmpty(body.ID)
}

func (s *RouterSuite) TestScriptedRegistrationIsChallenged() {
	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/identity/register", nil)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "python-requests/2.31")
	req.Header.Set("X-Fill-Duration-Ms", "400")
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)

	s.Equal(http.StatusPreconditionRequired, resp.StatusCode)
	var body struct {
		Challenge string `json:"challenge"`
	}
	s.decode(resp, &body)
	s.NotEmpty(body.Challenge)
}

func (s *RouterSuite) TestVoteFlowEndToEnd() {
	ctx := context.Background()
	voter, err := s.identities.Register(ctx)
	s.Require().NoError(err)

	var target struct {
		ID string `json:"id"`
	}
	resp := s.do(http.MethodPost, "/admin/targets", "", map[string]any{
		"type": "COMPANY",
		"name": "Ferretería El Martillo",
	}, nil)
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.decode(resp, &target)

	resp = s.do(http.MethodPost, "/votes", s.token(voter.ID), map[string]any{
		"target_id": target.ID,
		"value":     5,
	}, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var cast struct {
		BallotID string  `json:"ballot_id"`
		NewScore float64 `json:"new_score"`
	}
	s.decode(resp, &cast)
	s.NotEmpty(cast.BallotID)
	s.InDelta(95.0/31.0, cast.NewScore, 1e-9)

	resp = s.do(http.MethodGet, "/targets/"+target.ID+"/score", s.token(voter.ID), nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var score struct {
		TotalVotes int `json:"total_votes"`
	}
	s.decode(resp, &score)
	s.Equal(1, score.TotalVotes)
}

func (s *RouterSuite) TestPostureSwitchChangesChallengeBehavior() {
	// Borderline traffic: browser identity but a fast form fill. Score 80
	// passes in GREEN and YELLOW untouched, RED challenges everyone.
	resp := s.do(http.MethodPost, "/identity/register", "", nil, map[string]string{
		"X-Fill-Duration-Ms": "3000",
	})
	s.Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodPut, "/admin/posture", "", map[string]any{
		"posture": "RED",
		"reason":  "load test",
	}, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(http.MethodPost, "/identity/register", "", nil, map[string]string{
		"X-Fill-Duration-Ms": "3000",
	})
	s.Equal(http.StatusPreconditionRequired, resp.StatusCode)
	resp.Body.Close()

	// A solved challenge lifts the interrupt.
	resp = s.do(http.MethodPost, "/identity/register", "", nil, map[string]string{
		"X-Fill-Duration-Ms":   "3000",
		"X-Challenge-Response": "solved",
	})
	s.Equal(http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func (s *RouterSuite) TestAdminAumAndAudit() {
	ctx := context.Background()
	citizen, err := s.identities.Register(ctx)
	s.Require().NoError(err)

	resp := s.do(http.MethodGet, "/admin/aum", "", nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var book struct {
		Citizens int     `json:"citizens"`
		TotalUSD float64 `json:"total_usd"`
	}
	s.decode(resp, &book)
	s.Equal(1, book.Citizens)
	s.Equal(0.60, book.TotalUSD)

	resp = s.do(http.MethodGet, fmt.Sprintf("/admin/audit/CITIZEN/%s", citizen.ID), "", nil, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var events []struct {
		Action string `json:"action"`
	}
	s.decode(resp, &events)
	s.Require().NotEmpty(events)
	s.Equal("citizen_registered", events[0].Action)
}

func (s *RouterSuite) TestAdminClassifyReturnsFullVerdict() {
	resp := s.do(http.MethodPost, "/admin/classify", "", map[string]any{
		"client_identity":  "curl/8.4.0",
		"fill_duration_ms": 500,
	}, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var verdict struct {
		Class  string   `json:"class"`
		Alerts []string `json:"alerts"`
	}
	s.decode(resp, &verdict)
	s.Equal("DISPLACED", verdict.Class)
	s.NotEmpty(verdict.Alerts)
}
