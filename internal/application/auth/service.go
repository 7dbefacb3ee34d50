package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskminder-api/internal/domain"
	jwtinfra "github.com/taskminder-api/internal/infrastructure/jwt"
)

// RegisterResult reports the two independent outcomes of registration: the
// account row always exists on success, but the verification email may not
// have gone out. Callers surface ResendVerification when it didn't.
type RegisterResult struct {
	User             *domain.User
	VerificationSent bool
}

type LoginResult struct {
	Token    string `json:"token"`
	Verified bool   `json:"verified"`
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*RegisterResult, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	VerifyEmail(ctx context.Context, token string) bool
	ResendVerification(ctx context.Context, username string) error
}

type userStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	SetVerified(ctx context.Context, username string) error
}

type tokenProvider interface {
	Issue(subject string, purpose jwtinfra.Purpose) (string, error)
	Validate(token string, expected jwtinfra.Purpose) (string, error)
}

type passwordHasher interface {
	Hash(secret string) (string, error)
	Compare(secret, hash string) bool
}

type mailSender interface {
	SendEmail(to, subject, text, html string) error
}

type service struct {
	repo    userStore
	tokens  tokenProvider
	hasher  passwordHasher
	mailer  mailSender
	baseURL string
}

type ServiceDeps struct {
	UserRepo  userStore
	TokenProv tokenProvider
	Hasher    passwordHasher
	Mailer    mailSender
	BaseURL   string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:    deps.UserRepo,
		tokens:  deps.TokenProv,
		hasher:  deps.Hasher,
		mailer:  deps.Mailer,
		baseURL: deps.BaseURL,
	}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*RegisterResult, error) {
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("user already exists: %w", domain.ErrConflict)
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		Username:     req.Username,
		PasswordHash: hash,
		Verified:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// The store rejects the insert when a concurrent registration won the
	// race; no in-process locking needed.
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}

	// The account exists from here on. A failed verification email must not
	// roll it back — a retried registration would hit the duplicate check —
	// so the miss is reported on the result and the user can request a resend.
	res := &RegisterResult{User: u, VerificationSent: true}
	if err := s.sendVerificationEmail(u.Username); err != nil {
		slog.Warn("verification email not sent", "username", u.Username, "err", err)
		res.VerificationSent = false
	}
	return res, nil
}

func (s *service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Same failure as a bad password, so callers can't probe which
			// usernames exist.
			return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
		// A store outage is a server-side failure, not a credential problem.
		return nil, err
	}
	if !s.hasher.Compare(password, u.PasswordHash) {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	token, err := s.tokens.Issue(u.Username, jwtinfra.PurposeSession)
	if err != nil {
		return nil, err
	}
	// Login succeeds whether or not the email is verified; gating on the
	// flag is the caller's policy.
	return &LoginResult{Token: token, Verified: u.Verified}, nil
}

// VerifyEmail consumes a verification-purpose token and marks the account
// verified. Stale and forged links are routine, so every failure collapses
// to false instead of propagating. Re-verifying an already-verified account
// is a harmless no-op that still returns true.
func (s *service) VerifyEmail(ctx context.Context, token string) bool {
	username, err := s.tokens.Validate(token, jwtinfra.PurposeVerification)
	if err != nil {
		slog.Debug("verification token rejected", "err", err)
		return false
	}
	if _, err := s.repo.GetByUsername(ctx, username); err != nil {
		slog.Debug("verification for unknown user", "username", username)
		return false
	}
	if err := s.repo.SetVerified(ctx, username); err != nil {
		slog.Warn("could not mark user verified", "username", username, "err", err)
		return false
	}
	return true
}

func (s *service) ResendVerification(ctx context.Context, username string) error {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("user %s: %w", username, domain.ErrNotFound)
		}
		return err
	}
	if u.Verified {
		return nil
	}
	return s.sendVerificationEmail(u.Username)
}

func (s *service) sendVerificationEmail(username string) error {
	token, err := s.tokens.Issue(username, jwtinfra.PurposeVerification)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/verify/%s", s.baseURL, token)
	text := "Please verify your email by clicking: " + link
	html := fmt.Sprintf(`<h2>Email Verification</h2>
<p>Click the link below to verify your email:</p>
<a href=%q>Verify Email</a>`, link)
	return s.mailer.SendEmail(username, "Verify Your Email Address", text, html)
}
