package pool

import "errors"

// Sentinel errors for the pool's taxonomy. Compare with errors.Is; callers
// that need caller-facing detail get a github.com/pkg/errors-wrapped value
// around one of these, never a bare fmt.Errorf.
var (
	ErrTargetNotFound    = errors.New("pool: target not found")
	ErrConnectFailure    = errors.New("pool: transport connect failed")
	ErrAuthFailure       = errors.New("pool: authentication failed")
	ErrTimeout           = errors.New("pool: connect/auth timeout")
	ErrCapacityExhausted = errors.New("pool: capacity exhausted")
	ErrConnectionExpired = errors.New("pool: connection expired")
	ErrSessionClosed     = errors.New("pool: session closed")
	ErrPoolClosed        = errors.New("pool: pool closed")
)
