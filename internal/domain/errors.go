package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")

	// Token validation outcomes. Expired stays distinct from invalid so
	// callers can log the difference; the user-facing message is the same
	// generic "link invalid or expired" either way.
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")

	// ErrDeliveryFailed marks a mail transport failure. Registration
	// downgrades it to a warning; the sweep downgrades it to a per-user skip.
	ErrDeliveryFailed = errors.New("delivery failed")
)
