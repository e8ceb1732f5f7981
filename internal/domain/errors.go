package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrMalformedInput  = errors.New("malformed input")
	ErrAccessDenied    = errors.New("access denied")
	ErrDeliveryFailed  = errors.New("delivery failed")
	ErrSigningFailed   = errors.New("signing failed")
	ErrInternal        = errors.New("internal error")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrRateLimited     = errors.New("rate limited")
)
