// Package jwttoken validates the access tokens issued by the external auth
// collaborator. Token issuance is out of scope; the engine only consumes
// tokens to attribute votes and identity mutations to a citizen.
package jwttoken

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// Claims carries the subject citizen for authenticated requests.
type Claims struct {
	CitizenID string `json:"citizen_id"`
	jwt.RegisteredClaims
}

// Service validates HS256 access tokens against the shared signing key.
type Service struct {
	signingKey []byte
	issuer     string
}

func New(signingKey, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// ValidateToken parses and verifies a token, returning its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// CitizenFromToken validates a token and extracts the subject citizen ID.
func (s *Service) CitizenFromToken(tokenString string) (domain.CitizenID, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return domain.CitizenID{}, err
	}
	return domain.ParseCitizenID(claims.CitizenID)
}
