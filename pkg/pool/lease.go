package pool

import "sync"

// ChannelLease and SftpLease are the Go realization of the RAII lease guards
// the design calls for: Go has no destructors, so the release-on-scope-exit
// contract becomes io.Closer plus a caller-side `defer lease.Close()`. Close
// is idempotent and never blocks on network I/O itself — it schedules the
// actual return/close work onto a detached goroutine, mirroring both the
// teacher's `go pool.cleanupLoop()` style and original_source's `impl Drop`
// bodies that `tokio::spawn` their cleanup rather than run it inline
// (server/src/ssh_session_pool.rs).

// ChannelLease wraps a leased, single-use Channel.
type ChannelLease struct {
	Channel
	ConnectionID string

	session   *Session
	conn      *Connection[Channel]
	closeOnce sync.Once
}

func newChannelLease(ch Channel, session *Session, conn *Connection[Channel]) *ChannelLease {
	return &ChannelLease{Channel: ch, ConnectionID: conn.ID, session: session, conn: conn}
}

// Close releases the channel. Idempotent; safe to defer.
func (l *ChannelLease) Close() error {
	l.closeOnce.Do(func() {
		conn, session, ch := l.conn, l.session, l.Channel
		go func() {
			conn.release(ch)
			session.reap()
		}()
	})
	return nil
}

// SftpLease wraps a leased, reusable SftpSession.
type SftpLease struct {
	SftpSession
	ConnectionID string

	session   *Session
	conn      *Connection[SftpSession]
	broken    bool
	closeOnce sync.Once
}

func newSftpLease(s SftpSession, session *Session, conn *Connection[SftpSession]) *SftpLease {
	return &SftpLease{SftpSession: s, ConnectionID: conn.ID, session: session, conn: conn}
}

// MarkBroken flags the session as unfit for reuse; Close will discard it
// instead of returning it to the connection's idle list. Callers should call
// this if an *sftp.Client operation returns an error suggesting the
// underlying pipe is dead (e.g. io.EOF).
func (l *SftpLease) MarkBroken() {
	l.broken = true
}

// Close releases the SFTP session. Idempotent; safe to defer.
func (l *SftpLease) Close() error {
	l.closeOnce.Do(func() {
		conn, session, s, broken := l.conn, l.session, l.SftpSession, l.broken
		go func() {
			if broken {
				conn.discard(s)
			} else {
				conn.release(s)
			}
			session.reap()
		}()
	})
	return nil
}
