package pool

import (
	"context"
	"sync/atomic"
	"time"
)

// childPolicy supplies the behavior that differs between a connection's two
// possible child resource kinds: how to mint one over a transport, whether
// it can be reused across leases, and how to tear one down. Concrete
// policies: channelPolicy (single-use) and sftpPolicy (reusable) — see
// channel.go and sftpsession.go.
type childPolicy[R any] interface {
	make(ctx context.Context, h *TransportHandle) (R, error)
	reusable() bool
	closeChild(r R)
}

// Connection wraps one TransportHandle plus a bounded pool of one child
// resource kind. A target's Session keeps two independent families of these
// — Connection[Channel] and Connection[SftpSession] — so a host that is busy
// serving terminals never starves a concurrent SFTP browse, and vice versa.
// Grounded on choraleia-choraleia's pkg/service/fs/ssh_pool.go
// sshConnection{conn, pool, expired} struct, generalized with Go generics
// over the child policy instead of hand-writing one struct per resource kind
// the way the teacher does across ssh_pool.go and sftp_pool.go.
type Connection[R any] struct {
	ID        string
	transport *TransportHandle
	children  *resourcePool[R]
	policy    childPolicy[R]

	expired    atomic.Bool
	lastIdleAt atomic.Int64
}

func newConnection[R any](transport *TransportHandle, maxChildren int, policy childPolicy[R]) *Connection[R] {
	c := &Connection[R]{
		ID:        transport.ID,
		transport: transport,
		children:  newResourcePool[R](maxChildren),
		policy:    policy,
	}
	c.lastIdleAt.Store(time.Now().UnixNano())
	return c
}

// Expire marks the connection as no longer eligible to serve new leases. It
// stays enumerable (the "graveyard") until every outstanding lease closes.
func (c *Connection[R]) Expire() {
	c.expired.Store(true)
}

func (c *Connection[R]) Expired() bool {
	return c.expired.Load()
}

func (c *Connection[R]) Disconnected() bool {
	return c.transport.Disconnected()
}

// canServe is an advisory check used while scanning idle connections;
// acquire itself still re-validates under the child pool's own lock so a
// racing caller never gets stuck on a stale positive.
func (c *Connection[R]) canServe() bool {
	if c.Expired() || c.Disconnected() {
		return false
	}
	idle, total, max := c.children.snapshot()
	return idle > 0 || total < max
}

func (c *Connection[R]) acquire(ctx context.Context) (R, error) {
	var zero R
	if c.Expired() {
		return zero, ErrConnectionExpired
	}
	if c.policy.reusable() {
		if r, ok := c.children.takeIdle(); ok {
			return r, nil
		}
	}
	if !c.children.reserve() {
		return zero, ErrCapacityExhausted
	}
	r, err := c.policy.make(ctx, c.transport)
	if err != nil {
		c.children.release()
		return zero, err
	}
	return r, nil
}

// release returns a child to the pool if the policy allows reuse, otherwise
// discards it. Channels always discard (single-use); SFTP sessions are put
// back on the idle list unless the connection has already been expired out
// from under them.
func (c *Connection[R]) release(r R) {
	if !c.policy.reusable() || c.Expired() {
		c.policy.closeChild(r)
		c.children.drop()
		c.touchIdleIfDrained()
		return
	}
	c.children.put(r)
	c.touchIdleIfDrained()
}

// discard permanently removes a child regardless of reusability, used when a
// caller has observed the child to be broken (e.g. SftpLease.MarkBroken).
func (c *Connection[R]) discard(r R) {
	c.policy.closeChild(r)
	c.children.drop()
	c.touchIdleIfDrained()
}

// idle reports whether the connection has zero outstanding children (every
// child it still holds is on the idle list); safe to fully close once this is
// true and the connection is expired.
func (c *Connection[R]) idle() bool {
	idle, total, _ := c.children.snapshot()
	return total == idle
}

// touchIdleIfDrained stamps the idle timestamp whenever the connection has
// just dropped back to zero outstanding children, so a group's idle sweep
// can tell "been idle since T" from "still serving a lease".
func (c *Connection[R]) touchIdleIfDrained() {
	if c.idle() {
		c.lastIdleAt.Store(time.Now().UnixNano())
	}
}

// idleSince returns the time this connection last drained to zero
// outstanding children. Meaningless, and ignored by callers, while the
// connection currently has children checked out.
func (c *Connection[R]) idleSince() time.Time {
	return time.Unix(0, c.lastIdleAt.Load())
}

// Close tears down the transport. Its group calls it on a graveyard
// connection once idle() is true, on a freshly dialed connection it could not
// admit, and on every connection when the session shuts down.
func (c *Connection[R]) Close() error {
	return c.transport.Close()
}
