package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/redcross-vn/blood_bank_app/internal/core/domain"
	portssvc "github.com/redcross-vn/blood_bank_app/internal/core/ports/services"
)

// tokenService issues HS256 JWTs for authenticated users.
type tokenService struct {
	secret         string
	expiryDuration time.Duration
}

// NewTokenService creates a new token service.
func NewTokenService(secret string, expiryDuration time.Duration) portssvc.TokenSvc {
	return &tokenService{secret: secret, expiryDuration: expiryDuration}
}

// Ensure tokenService implements the portssvc.TokenSvc interface
var _ portssvc.TokenSvc = (*tokenService)(nil)

// IssueToken creates a signed token with the user ID as subject.
func (s *tokenService) IssueToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiryDuration)),
		Issuer:    "blood_bank_app",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
