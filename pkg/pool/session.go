package pool

import (
	"context"
	"sync"
	"time"
)

// ConnectionKind distinguishes the two independent connection families a
// Session keeps: one dedicated to single-use Channels, one dedicated to
// reusable SftpSessions. They never share capacity or compete for the same
// slot in MaxSessionsPerTarget.
type ConnectionKind string

const (
	ConnectionKindChannel ConnectionKind = "channel"
	ConnectionKindSFTP    ConnectionKind = "sftp"
)

// ConnectionInfo is a point-in-time snapshot of one Connection, returned by
// Pool.ListConnections.
type ConnectionInfo struct {
	ID            string
	TargetID      int64
	Kind          ConnectionKind
	Expired       bool
	Disconnected  bool
	IdleChildren  int
	TotalChildren int
}

// connectionGroup is one of a Session's two independent families of
// Connection[R]: a bounded set of live connections plus a graveyard of
// expired-but-still-draining ones, all serving the same child resource kind.
// Keeping channel connections and SFTP connections in separate groups is
// what stops a file-browser workload from starving a terminal workload (or
// the reverse) for the same per-target connection cap — original_source
// enforced the same separation by keeping SshSession and SshSftpSessionPool
// as two distinct pools (server/src/ssh_session_pool.rs) rather than one.
type connectionGroup[R any] struct {
	kind        ConnectionKind
	maxConns    int
	maxChildren int
	policy      childPolicy[R]

	mu        sync.Mutex
	live      []*Connection[R]
	graveyard []*Connection[R]
}

func newConnectionGroup[R any](kind ConnectionKind, maxConns, maxChildren int, policy childPolicy[R]) *connectionGroup[R] {
	return &connectionGroup[R]{kind: kind, maxConns: maxConns, maxChildren: maxChildren, policy: policy}
}

// acquire implements the scan-idle / drop-lock / probe-candidate /
// reacquire-to-commit pattern grounded on the teacher's ssh_pool.go
// getOrCreateConnection: the live list is copied out under the lock, then
// each candidate is probed with the lock dropped so no network-adjacent call
// ever happens while holding the group's mutex.
func (g *connectionGroup[R]) acquire(ctx context.Context, closed func() bool, dial func(context.Context) (*TransportHandle, error)) (R, *Connection[R], error) {
	var zero R
	for {
		if closed() {
			return zero, nil, ErrSessionClosed
		}
		g.mu.Lock()
		candidates := make([]*Connection[R], len(g.live))
		copy(candidates, g.live)
		room := len(g.live) < g.maxConns
		g.mu.Unlock()

		for _, conn := range candidates {
			if !conn.canServe() {
				continue
			}
			r, err := conn.acquire(ctx)
			if err == nil {
				return r, conn, nil
			}
			// Lost the race to another acquirer or the connection expired
			// out from under us; try the next candidate.
		}

		if !room {
			return zero, nil, ErrCapacityExhausted
		}

		handle, err := dial(ctx)
		if err != nil {
			return zero, nil, err
		}
		if closed() {
			_ = handle.Close()
			return zero, nil, ErrSessionClosed
		}
		conn := newConnection(handle, g.maxChildren, g.policy)
		if !g.admit(conn) {
			_ = conn.Close()
			continue
		}
		r, err := conn.acquire(ctx)
		if err != nil {
			return zero, nil, err
		}
		return r, conn, nil
	}
}

// admit appends a freshly dialed connection to live, unless the group filled
// up while the dial was in flight.
func (g *connectionGroup[R]) admit(conn *Connection[R]) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.live) >= g.maxConns {
		return false
	}
	g.live = append(g.live, conn)
	return true
}

// expire moves one connection from live into the graveyard. It stays
// enumerable and any leases already checked out against it continue to
// work; only new acquisitions are refused. Returns false if no live
// connection in this group has that id.
func (g *connectionGroup[R]) expire(connectionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, conn := range g.live {
		if conn.ID == connectionID {
			conn.Expire()
			g.live = append(g.live[:i], g.live[i+1:]...)
			g.graveyard = append(g.graveyard, conn)
			return true
		}
	}
	return false
}

// reap closes and forgets any graveyard connection that has drained to zero
// outstanding children. Called after every lease return.
func (g *connectionGroup[R]) reap() {
	g.mu.Lock()
	var drained []*Connection[R]
	kept := g.graveyard[:0]
	for _, conn := range g.graveyard {
		if conn.idle() {
			drained = append(drained, conn)
			continue
		}
		kept = append(kept, conn)
	}
	g.graveyard = kept
	g.mu.Unlock()
	for _, conn := range drained {
		_ = conn.Close()
	}
}

// expireDisconnected moves any live connection whose transport already
// disconnected into the graveyard, without waiting for a caller to notice.
func (g *connectionGroup[R]) expireDisconnected() {
	g.mu.Lock()
	var toExpire []string
	for _, conn := range g.live {
		if conn.Disconnected() {
			toExpire = append(toExpire, conn.ID)
		}
	}
	g.mu.Unlock()
	for _, id := range toExpire {
		g.expire(id)
	}
}

// expireIdle moves any live connection that has sat with zero outstanding
// children for longer than grace into the graveyard, so a target nobody is
// using stops pinning a slot in MaxSessionsPerTarget. A zero grace disables
// the sweep.
func (g *connectionGroup[R]) expireIdle(grace time.Duration) {
	if grace <= 0 {
		return
	}
	g.mu.Lock()
	var toExpire []string
	for _, conn := range g.live {
		if conn.idle() && time.Since(conn.idleSince()) >= grace {
			toExpire = append(toExpire, conn.ID)
		}
	}
	g.mu.Unlock()
	for _, id := range toExpire {
		g.expire(id)
	}
}

func (g *connectionGroup[R]) listConnections(targetID int64) []ConnectionInfo {
	g.mu.Lock()
	all := make([]*Connection[R], 0, len(g.live)+len(g.graveyard))
	all = append(all, g.live...)
	all = append(all, g.graveyard...)
	g.mu.Unlock()

	out := make([]ConnectionInfo, 0, len(all))
	for _, conn := range all {
		idle, total, _ := conn.children.snapshot()
		out = append(out, ConnectionInfo{
			ID:            conn.ID,
			TargetID:      targetID,
			Kind:          g.kind,
			Expired:       conn.Expired(),
			Disconnected:  conn.Disconnected(),
			IdleChildren:  idle,
			TotalChildren: total,
		})
	}
	return out
}

func (g *connectionGroup[R]) empty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.live) == 0 && len(g.graveyard) == 0
}

func (g *connectionGroup[R]) closeAll() {
	g.mu.Lock()
	all := append(g.live, g.graveyard...)
	g.live = nil
	g.graveyard = nil
	g.mu.Unlock()
	for _, conn := range all {
		_ = conn.Close()
	}
}

// Session is the per-target owner of two independent connection pools — one
// for single-use Channels, one for reusable SftpSessions — so a file manager
// workload and a terminal workload never compete for the same per-target
// connection slot. Grounded on choraleia-choraleia's sshConnectionPool plus
// original_source's separate SshSession / SshSftpSessionPool split
// (server/src/ssh_session_pool.rs), which this keeps per-connection rather
// than flattening channel and SFTP capacity into one shared list.
type Session struct {
	targetID int64
	target   Target
	factory  dialer
	cfg      Config

	mu     sync.Mutex
	closed bool

	channelConns *connectionGroup[Channel]
	sftpConns    *connectionGroup[SftpSession]
}

func newSession(target Target, factory dialer, cfg Config) *Session {
	return &Session{
		targetID:     target.ID,
		target:       target,
		factory:      factory,
		cfg:          cfg,
		channelConns: newConnectionGroup[Channel](ConnectionKindChannel, cfg.MaxSessionsPerTarget, cfg.MaxChannelsPerSession, channelPolicy{}),
		sftpConns:    newConnectionGroup[SftpSession](ConnectionKindSFTP, cfg.MaxSessionsPerTarget, cfg.MaxSftpPerSession, sftpPolicy{}),
	}
}

func (s *Session) dial(ctx context.Context) (*TransportHandle, error) {
	return s.factory.Dial(ctx, s.target)
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) acquireChannel(ctx context.Context) (Channel, *Connection[Channel], error) {
	return s.channelConns.acquire(ctx, s.isClosed, s.dial)
}

func (s *Session) acquireSftp(ctx context.Context) (SftpSession, *Connection[SftpSession], error) {
	return s.sftpConns.acquire(ctx, s.isClosed, s.dial)
}

func (s *Session) expire(connectionID string) bool {
	if s.channelConns.expire(connectionID) {
		return true
	}
	return s.sftpConns.expire(connectionID)
}

func (s *Session) reap() {
	s.channelConns.reap()
	s.sftpConns.reap()
}

// expireDisconnected drops any connection in either group whose transport
// already hung up, then reaps what has fully drained.
func (s *Session) expireDisconnected() {
	s.channelConns.expireDisconnected()
	s.sftpConns.expireDisconnected()
	s.reap()
}

// expireIdle drops any connection in either group that has been idle longer
// than grace, then reaps what has fully drained. Driven by the Pool's
// periodic reaper alongside expireDisconnected.
func (s *Session) expireIdle(grace time.Duration) {
	s.channelConns.expireIdle(grace)
	s.sftpConns.expireIdle(grace)
	s.reap()
}

func (s *Session) listConnections() []ConnectionInfo {
	out := s.channelConns.listConnections(s.targetID)
	out = append(out, s.sftpConns.listConnections(s.targetID)...)
	return out
}

// empty reports whether the session has no connections left at all, in
// either group, live or graveyard.
func (s *Session) empty() bool {
	return s.channelConns.empty() && s.sftpConns.empty()
}

// closeAll tears every connection down unconditionally, used when the Pool
// itself shuts down.
func (s *Session) closeAll() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.channelConns.closeAll()
	s.sftpConns.closeAll()
}
