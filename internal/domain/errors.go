// Package domain defines core entities, ports, and domain-specific errors
// for the chatbuddy orchestration fabric.
package domain

import "errors"

// Error taxonomy (sentinels). Components wrap these with
// fmt.Errorf("op=...: %w", Err...) so callers can errors.Is against a
// stable set while still getting an operation trail in logs.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrRateLimited         = errors.New("rate limited")
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrCacheTransport      = errors.New("cache transport error")
	ErrHandlerTimeout      = errors.New("handler timeout")
	ErrHandlerFailure      = errors.New("handler failure")
	ErrJobExecutionFailure = errors.New("job execution failure")
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
)
