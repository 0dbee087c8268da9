package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidOrder    = errors.New("invalid order parameters")
	ErrSigningFailed   = errors.New("signing failed")
	ErrWSDisconnect    = errors.New("websocket disconnected")
	ErrRulesNotFound   = errors.New("validation rules not found")
	ErrMalformedNumber = errors.New("malformed number")
	ErrCircuitOpen     = errors.New("circuit breaker open")
	ErrExchange        = errors.New("exchange error")
	ErrOrdersDisabled  = errors.New("order submission disabled")
	ErrLockHeld        = errors.New("lock already held")
)
