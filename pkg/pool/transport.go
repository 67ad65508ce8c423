package pool

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// sshConn is the subset of *ssh.Client a TransportHandle needs. Tests
// substitute an in-memory fake satisfying this interface instead of
// establishing a real network SSH connection.
type sshConn interface {
	OpenChannel(name string, data []byte) (ssh.Channel, <-chan *ssh.Request, error)
	Wait() error
	Close() error
}

// TransportHandle is one live authenticated SSH transport to a Target. Go
// has no destructors, so disconnect is surfaced through a channel rather
// than a Drop impl: OnDisconnect() returns a channel that is closed exactly
// once, fed by a background goroutine blocked on ssh.Client.Wait(), which
// returns whether the session ended by server hangup or local Close.
type TransportHandle struct {
	ID     string
	client sshConn

	disconnectOnce sync.Once
	disconnectCh   chan struct{}
}

func newTransportHandle(client sshConn) *TransportHandle {
	h := &TransportHandle{
		ID:           newID(),
		client:       client,
		disconnectCh: make(chan struct{}),
	}
	go h.watch()
	return h
}

func (h *TransportHandle) watch() {
	_ = h.client.Wait()
	h.disconnectOnce.Do(func() { close(h.disconnectCh) })
}

// OnDisconnect returns a channel closed once the transport has gone away,
// whether due to a remote hangup or a local Close call.
func (h *TransportHandle) OnDisconnect() <-chan struct{} {
	return h.disconnectCh
}

// Disconnected reports whether the transport has already gone away.
func (h *TransportHandle) Disconnected() bool {
	select {
	case <-h.disconnectCh:
		return true
	default:
		return false
	}
}

// Close tears down the underlying SSH client. Safe to call more than once.
func (h *TransportHandle) Close() error {
	return h.client.Close()
}

// openChannel opens a raw SSH channel of the given type, used by the
// channel child policy and by exec-based fs operations (cp -r, rm -rf).
func (h *TransportHandle) openChannel(channelType string, extraData []byte) (ssh.Channel, <-chan *ssh.Request, error) {
	return h.client.OpenChannel(channelType, extraData)
}

// newSFTPClient opens a new SFTP session over this transport, mirroring the
// teacher's pkg/service/fs/sftp_pool.go call to sftp.NewClient(sshClient).
// Each Connection[SftpSession] makes its own SFTP sessions scoped to itself
// rather than sharing one target-wide client, unlike original_source's flat
// SshSftpSessionPool keyed only by target_id. Requires a real *ssh.Client
// underneath; the in-memory fake used by pool tests exercises the channel
// path only, since an SFTP subsystem needs a real SSH server on the other
// end.
func (h *TransportHandle) newSFTPClient() (*sftp.Client, error) {
	real, ok := h.client.(*ssh.Client)
	if !ok {
		return nil, errors.New("pool: transport has no real ssh.Client to build an sftp session over")
	}
	return sftp.NewClient(real)
}
