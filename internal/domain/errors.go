package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUpstream        = errors.New("upstream request failed")
	ErrInvalidResponse = errors.New("invalid upstream response")
	ErrInconclusive    = errors.New("verification inconclusive")
	ErrLockHeld        = errors.New("lock already held")
	ErrContextDone     = errors.New("context cancelled")
)
