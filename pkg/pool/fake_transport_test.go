package pool

import (
	"context"
	"io"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// fakeChannel is the minimal ssh.Channel a test needs: enough to be opened,
// read as empty, and closed. No test in this package exercises channel data
// flow, only pool bookkeeping around channel lifetime.
type fakeChannel struct{}

func (fakeChannel) Read([]byte) (int, error)                       { return 0, io.EOF }
func (fakeChannel) Write(data []byte) (int, error)                 { return len(data), nil }
func (fakeChannel) Close() error                                   { return nil }
func (fakeChannel) CloseWrite() error                               { return nil }
func (fakeChannel) SendRequest(string, bool, []byte) (bool, error) { return true, nil }
func (fakeChannel) Stderr() io.Reader                               { return io.LimitReader(nil, 0) }

// fakeSSHConn satisfies sshConn without any real network handshake. It can
// be told to fail channel opens and to simulate a server-initiated
// disconnect by closing its own waitCh.
type fakeSSHConn struct {
	mu         sync.Mutex
	closed     bool
	failOpen   bool
	waitCh     chan struct{}
	waitErr    error
	openCalls  int
}

func newFakeSSHConn() *fakeSSHConn {
	return &fakeSSHConn{waitCh: make(chan struct{})}
}

func (f *fakeSSHConn) OpenChannel(string, []byte) (ssh.Channel, <-chan *ssh.Request, error) {
	f.mu.Lock()
	f.openCalls++
	fail := f.failOpen
	f.mu.Unlock()
	if fail {
		return nil, nil, io.ErrClosedPipe
	}
	return fakeChannel{}, make(chan *ssh.Request), nil
}

func (f *fakeSSHConn) Wait() error {
	<-f.waitCh
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waitErr
}

func (f *fakeSSHConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.waitCh)
	return nil
}

// hangup simulates the remote end dropping the connection. It takes the same
// path as a local Close (closing waitCh), so the TransportHandle's watcher
// goroutine observes it asynchronously; see awaitDisconnect.
func (f *fakeSSHConn) hangup() {
	f.Close()
}

// awaitDisconnect blocks until h's watcher goroutine has seen the transport
// go away, or a second has passed. The watcher runs on its own goroutine, so
// a hangup is not visible through Disconnected() the instant it happens.
func awaitDisconnect(h *TransportHandle) {
	select {
	case <-h.OnDisconnect():
	case <-time.After(time.Second):
	}
}

// fakeDialer satisfies dialer by handing out TransportHandles wrapping
// fakeSSHConns instead of dialing the network. Tests can make it fail, and
// it counts how many dials it was asked for.
type fakeDialer struct {
	mu       sync.Mutex
	fail     error
	handles  []*TransportHandle
	conns    []*fakeSSHConn
	dialsN   int
}

func (d *fakeDialer) Dial(_ context.Context, _ Target) (*TransportHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialsN++
	if d.fail != nil {
		return nil, d.fail
	}
	conn := newFakeSSHConn()
	h := newTransportHandle(conn)
	d.handles = append(d.handles, h)
	d.conns = append(d.conns, conn)
	return h, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dialsN
}

func (d *fakeDialer) lastConn() *fakeSSHConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[len(d.conns)-1]
}
