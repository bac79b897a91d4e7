package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

const testKey = "test-signing-key"

type ServiceSuite struct {
	suite.Suite

	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.service = New(testKey, "veritas")
}

func (s *ServiceSuite) mint(citizenID, issuer, key string, expiresIn time.Duration) string {
	claims := Claims{
		CitizenID: citizenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	s.Require().NoError(err)
	return token
}

func (s *ServiceSuite) TestRoundTrip() {
	citizenID := domain.NewCitizenID()
	token := s.mint(citizenID.String(), "veritas", testKey, time.Hour)

	got, err := s.service.CitizenFromToken(token)
	s.Require().NoError(err)
	s.Equal(citizenID, got)
}

func (s *ServiceSuite) TestRejectsWrongIssuer() {
	token := s.mint(domain.NewCitizenID().String(), "someone-else", testKey, time.Hour)

	_, err := s.service.CitizenFromToken(token)
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestRejectsWrongKey() {
	token := s.mint(domain.NewCitizenID().String(), "veritas", "other-key", time.Hour)

	_, err := s.service.CitizenFromToken(token)
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestRejectsExpiredToken() {
	token := s.mint(domain.NewCitizenID().String(), "veritas", testKey, -time.Minute)

	_, err := s.service.CitizenFromToken(token)
	s.Require().Error(err)
	s.Contains(err.Error(), "expired")
}

func (s *ServiceSuite) TestRejectsGarbage() {
	_, err := s.service.CitizenFromToken("not-a-token")
	s.Equal(dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func (s *ServiceSuite) TestRejectsMalformedSubject() {
	token := s.mint("not-a-uuid", "veritas", testKey, time.Hour)

	_, err := s.service.CitizenFromToken(token)
	s.Error(err)
}
