// Package token issues and validates operator bearer tokens for the institute
// API. These tokens gate access to the HTTP surface only; the on-ledger admin
// check in the credential service is a separate capability and is never
// satisfied by a bearer token alone.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "attest/pkg/domain-errors"
)

// OperatorClaims represents the JWT claims for operator tokens.
type OperatorClaims struct {
	Operator string `json:"operator"`
	Env      string `json:"env,omitempty"`
	jwt.RegisteredClaims
}

// Service handles operator token creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
	tokenTTL   time.Duration
	env        string
}

func NewService(signingKey, issuer, audience string, tokenTTL time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		tokenTTL:   tokenTTL,
	}
}

// WithEnv stamps an environment claim into generated tokens.
func (s *Service) WithEnv(env string) *Service {
	s.env = env
	return s
}

// Generate creates a signed operator token for the named operator.
func (s *Service) Generate(operator string) (string, error) {
	if operator == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "operator name is required")
	}
	now := time.Now()
	claims := OperatorClaims{
		Operator: operator,
		Env:      s.env,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   operator,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign operator token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies an operator token, returning its claims.
func (s *Service) Validate(tokenString string) (*OperatorClaims, error) {
	claims := &OperatorClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid or expired token")
	}
	if !token.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
	}
	return claims, nil
}
