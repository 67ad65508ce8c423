package pool

import "context"

// AuthMethod selects how a TransportFactory authenticates to a Target.
type AuthMethod string

const (
	AuthPassword   AuthMethod = "password"
	AuthPrivateKey AuthMethod = "private-key"
	AuthNone       AuthMethod = "none"
)

// Target carries everything a TransportFactory needs to open one SSH
// transport. It holds secrets in memory only; pkg/store is responsible for
// resolving a persisted record into one of these.
type Target struct {
	ID         int64
	Host       string
	Port       int
	User       string
	Method     AuthMethod
	Password   string
	PrivateKey string
	Passphrase string
	OSHint     string
}

// TargetResolver loads connection parameters for a target id. Implemented by
// pkg/store against the persisted Target record; a pool never talks to
// storage directly.
type TargetResolver interface {
	LoadTarget(ctx context.Context, id int64) (Target, error)
}
