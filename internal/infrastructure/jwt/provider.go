package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/taskminder-api/internal/domain"
)

// Purpose is the signed intent a token carries. A token issued for one
// purpose never validates against another.
type Purpose string

const (
	PurposeVerification Purpose = "verification"
	PurposeSession      Purpose = "session"
)

// Claims holds the JWT payload fields.
type Claims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs with a process-wide secret.
// Rotating the secret invalidates all outstanding tokens, which is
// acceptable: tokens are short-lived and nothing persists them.
type Provider struct {
	secret          []byte
	verificationTTL time.Duration
	sessionTTL      time.Duration
	clock           func() time.Time
}

func NewProvider(secret string, verificationTTL, sessionTTL time.Duration) (*Provider, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must not be empty")
	}
	return &Provider{
		secret:          []byte(secret),
		verificationTTL: verificationTTL,
		sessionTTL:      sessionTTL,
		clock:           time.Now,
	}, nil
}

func (p *Provider) ttl(purpose Purpose) (time.Duration, error) {
	switch purpose {
	case PurposeVerification:
		return p.verificationTTL, nil
	case PurposeSession:
		return p.sessionTTL, nil
	default:
		return 0, fmt.Errorf("unknown token purpose %q", purpose)
	}
}

// Issue signs a token asserting subject's identity for the given purpose.
func (p *Provider) Issue(subject string, purpose Purpose) (string, error) {
	ttl, err := p.ttl(purpose)
	if err != nil {
		return "", err
	}
	now := p.clock()
	claims := Claims{
		Purpose: string(purpose),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

// Validate verifies the signature and expiry, checks the purpose matches,
// and returns the subject. It never returns a subject on a failure path.
func (p *Provider) Validate(tokenStr string, expected Purpose) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return p.clock() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%v: %w", err, domain.ErrTokenExpired)
		}
		return "", fmt.Errorf("%v: %w", err, domain.ErrTokenInvalid)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("malformed claims: %w", domain.ErrTokenInvalid)
	}
	if claims.Purpose != string(expected) {
		return "", fmt.Errorf("purpose mismatch: %w", domain.ErrTokenInvalid)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("missing subject: %w", domain.ErrTokenInvalid)
	}
	return claims.Subject, nil
}
