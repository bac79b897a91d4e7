package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"veritas/internal/audit"
	"veritas/internal/posture"
	posturemetrics "veritas/internal/posture/metrics"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/testutil"
)

// Registered once per test binary; promauto panics on re-registration.
var postureMetrics = posturemetrics.New()

type BootstrapSuite struct {
	suite.Suite
}

func TestBootstrapSuite(t *testing.T) {
	suite.Run(t, new(BootstrapSuite))
}

func (s *BootstrapSuite) controllerFor(store posture.Store) *posture.Controller {
	return posture.NewController(store, testutil.DiscardLogger(), postureMetrics, nopAuditor{})
}

func (s *BootstrapSuite) TestUnconfiguredRedisStartsGreen() {
	store := newPostureStore(nil, false)
	s.Require().NotNil(store)

	c := s.controllerFor(store)
	s.Equal(posture.Green, c.Current(context.Background()))
}

func (s *BootstrapSuite) TestUnreachableRedisDegradesToYellow() {
	store := newPostureStore(nil, true)
	s.Require().Nil(store)

	c := s.controllerFor(store)
	s.Equal(posture.Yellow, c.Current(context.Background()))

	// Switching needs the shared store; degraded mode refuses it rather
	// than committing a posture other instances cannot see.
	_, err := c.Switch(context.Background(), posture.Green, "ops", "")
	s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
}

type nopAuditor struct{}

func (nopAuditor) Emit(context.Context, audit.Event) {}
