// Package pool implements a three-tier SSH/SFTP session and channel pool:
// Pool (per-process) owns one Session per target host, and each Session owns
// two independent bounded groups of Connections (live SSH transports) — one
// whose connections mint single-use Channels, one whose connections mint
// reusable SftpSessions — so a terminal workload and a file-browser workload
// never compete for the same per-target connection slot. Callers receive
// RAII-style lease guards (ChannelLease, SftpLease) and must defer Close()
// on them; the pool never retries transparently and never holds a lock
// across network I/O.
package pool

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Pool is the process-wide entry point, matching original_source's
// SshSessionPool{session_pool_map: Mutex<HashMap<i32, Arc<SshSession>>>}
// (server/src/ssh_session_pool.rs), generalized so each target's Session
// owns both the channel-connection group and the sftp-connection group
// rather than keeping SFTP in a separate flat map the way the original did.
type Pool struct {
	resolver TargetResolver
	factory  dialer
	cfg      Config

	mu       sync.Mutex
	sessions map[int64]*Session
	closed   bool
}

// New builds a Pool against the given TargetResolver and tuning Config.
// Zero-valued Config fields fall back to DefaultConfig().
func New(resolver TargetResolver, cfg Config) *Pool {
	cfg = cfg.Merge(DefaultConfig())
	return &Pool{
		resolver: resolver,
		factory:  NewTransportFactory(cfg.ConnectAuthTimeout, nil),
		cfg:      cfg,
		sessions: make(map[int64]*Session),
	}
}

// WithHostKeyCallback overrides the default accept-any-host-key behavior.
// Must be called before the pool's first lease.
func (p *Pool) WithHostKeyCallback(cb HostKeyCallback) *Pool {
	p.factory = NewTransportFactory(p.cfg.ConnectAuthTimeout, cb)
	return p
}

func (p *Pool) sessionFor(ctx context.Context, targetID int64) (*Session, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if s, ok := p.sessions[targetID]; ok {
		p.mu.Unlock()
		return s, nil
	}
	p.mu.Unlock()

	target, err := p.resolver.LoadTarget(ctx, targetID)
	if err != nil {
		return nil, errors.Wrapf(ErrTargetNotFound, "target %d: %v", targetID, err)
	}

	session := newSession(target, p.factory, p.cfg)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPoolClosed
	}
	if existing, ok := p.sessions[targetID]; ok {
		// Another goroutine created it first; discard ours, it owns no
		// connections yet so there's nothing to close.
		return existing, nil
	}
	p.sessions[targetID] = session
	return session, nil
}

// LeaseChannel hands back a single-use Channel lease for targetID, dialing
// a new transport or reusing an idle one as capacity allows.
func (p *Pool) LeaseChannel(ctx context.Context, targetID int64) (*ChannelLease, error) {
	session, err := p.sessionFor(ctx, targetID)
	if err != nil {
		return nil, err
	}
	ch, conn, err := session.acquireChannel(ctx)
	if err != nil {
		return nil, err
	}
	return newChannelLease(ch, session, conn), nil
}

// LeaseSFTP hands back a reusable SftpSession lease for targetID.
func (p *Pool) LeaseSFTP(ctx context.Context, targetID int64) (*SftpLease, error) {
	session, err := p.sessionFor(ctx, targetID)
	if err != nil {
		return nil, err
	}
	s, conn, err := session.acquireSftp(ctx)
	if err != nil {
		return nil, err
	}
	return newSftpLease(s, session, conn), nil
}

// Expire marks one connection within one target's session as expired: it
// stops serving new leases but stays enumerable (and open) until every
// outstanding lease on it closes. Grounded on original_source's
// apis/handlers/ssh_connection/expire.rs HTTP handler shape.
func (p *Pool) Expire(targetID int64, connectionID string) bool {
	p.mu.Lock()
	session, ok := p.sessions[targetID]
	p.mu.Unlock()
	if !ok {
		return false
	}
	ok = session.expire(connectionID)
	session.reap()
	return ok
}

// ListConnections returns a snapshot of every connection across every
// target, or just one target if targetID is non-nil.
func (p *Pool) ListConnections(targetID *int64) []ConnectionInfo {
	p.mu.Lock()
	var sessions []*Session
	if targetID != nil {
		if s, ok := p.sessions[*targetID]; ok {
			sessions = []*Session{s}
		}
	} else {
		sessions = make([]*Session, 0, len(p.sessions))
		for _, s := range p.sessions {
			sessions = append(sessions, s)
		}
	}
	p.mu.Unlock()

	var out []ConnectionInfo
	for _, s := range sessions {
		out = append(out, s.listConnections()...)
	}
	return out
}

// ReapDisconnected sweeps every session for transports that disconnected
// without a caller noticing (server hangup, network partition) and moves
// them into their session's graveyard, then expires any connection that has
// sat idle past cfg.IdleSessionGraceperiod so a target nobody is using stops
// pinning a slot in MaxSessionsPerTarget. Intended to be called periodically
// by a background goroutine the owner of the Pool starts.
func (p *Pool) ReapDisconnected() {
	p.mu.Lock()
	sessions := make([]*Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		sessions = append(sessions, s)
	}
	p.mu.Unlock()

	for _, s := range sessions {
		s.expireDisconnected()
		s.expireIdle(p.cfg.IdleSessionGraceperiod)
	}
}

// Close tears every session and every connection in the pool down. Intended
// for process shutdown; outstanding leases become invalid.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	sessions := p.sessions
	p.sessions = make(map[int64]*Session)
	p.mu.Unlock()

	for _, s := range sessions {
		s.closeAll()
	}
}
