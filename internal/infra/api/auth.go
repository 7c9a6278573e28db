package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"custom-billing/internal/domain"
)

// ===== Console bearer tokens =====

type AccountClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager mints and verifies HS256 console tokens whose subject is the account id.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), issuer: "custom-billing", ttl: ttl}
}

func (m *TokenManager) Mint(accountID, email string) (string, error) {
	if accountID == "" {
		return "", domain.ErrInvalidArgument
	}
	now := time.Now()
	claims := AccountClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Authenticate returns the account id carried by the request's bearer token.
func (m *TokenManager) Authenticate(r *http.Request) (string, error) {
	hdr := r.Header.Get("Authorization")
	if len(hdr) < 7 || !strings.EqualFold(hdr[:7], "bearer ") {
		return "", domain.ErrUnauthorized
	}
	claims, err := m.parse(strings.TrimSpace(hdr[7:]))
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (m *TokenManager) parse(tok string) (*AccountClaims, error) {
	claims := &AccountClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(m.issuer))
	if err != nil || !tkn.Valid {
		return nil, errors.Join(domain.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}
