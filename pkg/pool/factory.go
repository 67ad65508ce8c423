package pool

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// authHandler builds the ssh.AuthMethod list for one Target. Split by auth
// method into concrete handler types, mirroring
// kittipat1413-go-common/framework/sftp/auth.go's AuthenticationHandler /
// PasswordAuthHandler / PrivateKeyAuthHandler split rather than one big
// switch statement.
type authHandler interface {
	methods(t Target) ([]ssh.AuthMethod, error)
}

type passwordAuthHandler struct{}

func (passwordAuthHandler) methods(t Target) ([]ssh.AuthMethod, error) {
	return []ssh.AuthMethod{ssh.Password(t.Password)}, nil
}

type privateKeyAuthHandler struct{}

func (privateKeyAuthHandler) methods(t Target) ([]ssh.AuthMethod, error) {
	signer, err := parsePrivateKey(t.PrivateKey, t.Passphrase)
	if err != nil {
		return nil, errors.Wrap(err, "parse private key")
	}
	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

type noneAuthHandler struct{}

// methods always fails: an SSH handshake offered zero auth methods is
// indistinguishable from a misconfigured target, so "none" is rejected here
// rather than handed to golang.org/x/crypto/ssh to fail later with a vaguer
// error. Dial wraps the returned error as ErrAuthFailure like it does for
// every other handler's failure.
func (noneAuthHandler) methods(Target) ([]ssh.AuthMethod, error) {
	return nil, errors.New(`auth method "none" is not permitted`)
}

func parsePrivateKey(keyData, passphrase string) (ssh.Signer, error) {
	signer, err := ssh.ParsePrivateKey([]byte(keyData))
	if err == nil {
		return signer, nil
	}
	if passphrase == "" {
		return nil, err
	}
	return ssh.ParsePrivateKeyWithPassphrase([]byte(keyData), []byte(passphrase))
}

func createAuthHandler(method AuthMethod) (authHandler, error) {
	switch method {
	case AuthPassword:
		return passwordAuthHandler{}, nil
	case AuthPrivateKey:
		return privateKeyAuthHandler{}, nil
	case AuthNone:
		return noneAuthHandler{}, nil
	default:
		return nil, errors.Errorf("unknown auth method %q", method)
	}
}

// HostKeyCallback is injectable so callers can pin known_hosts verification
// in production; the zero-value default accepts any host key, matching both
// the teacher (ssh.InsecureIgnoreHostKey() in pkg/service/fs/ssh_pool.go) and
// original_source's SshClientHandler.check_server_key, which returns Ok(true)
// unconditionally.
type HostKeyCallback = ssh.HostKeyCallback

// dialer is the seam pkg/pool tests substitute a fake across: a real
// network SSH dial is not exercisable in CI, so tests inject an in-memory
// stub satisfying this interface instead of constructing a *TransportFactory.
type dialer interface {
	Dial(ctx context.Context, t Target) (*TransportHandle, error)
}

// TransportFactory opens one SSH transport: TCP dial, handshake and auth,
// all bounded by a connect+auth timeout.
type TransportFactory struct {
	HostKeyCallback HostKeyCallback
	Timeout         time.Duration
}

func NewTransportFactory(timeout time.Duration, hostKeyCallback HostKeyCallback) *TransportFactory {
	if hostKeyCallback == nil {
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}
	return &TransportFactory{HostKeyCallback: hostKeyCallback, Timeout: timeout}
}

// Dial connects to and authenticates against t, honoring ctx's deadline.
// golang.org/x/crypto/ssh is not context-aware mid-handshake, so the
// handshake runs on its own goroutine and this function selects between it
// finishing and ctx.Done(); a late result from an abandoned handshake is
// simply discarded and its connection closed rather than awaited.
func (f *TransportFactory) Dial(ctx context.Context, t Target) (*TransportHandle, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	handler, err := createAuthHandler(t.Method)
	if err != nil {
		return nil, errors.Wrap(err, "select auth handler")
	}
	auth, err := handler.methods(t)
	if err != nil {
		return nil, errors.Wrap(ErrAuthFailure, err.Error())
	}

	cfg := &ssh.ClientConfig{
		User:            t.User,
		Auth:            auth,
		HostKeyCallback: f.HostKeyCallback,
		Timeout:         f.Timeout,
	}
	addr := net.JoinHostPort(t.Host, fmt.Sprintf("%d", t.Port))

	type result struct {
		client *ssh.Client
		err    error
	}
	resCh := make(chan result, 1)

	go func() {
		dialer := &net.Dialer{Timeout: f.Timeout}
		conn, dialErr := dialer.DialContext(ctx, "tcp", addr)
		if dialErr != nil {
			resCh <- result{err: errors.Wrap(ErrConnectFailure, dialErr.Error())}
			return
		}
		c, chans, reqs, handshakeErr := ssh.NewClientConn(conn, addr, cfg)
		if handshakeErr != nil {
			_ = conn.Close()
			resCh <- result{err: errors.Wrap(ErrAuthFailure, handshakeErr.Error())}
			return
		}
		resCh <- result{client: ssh.NewClient(c, chans, reqs)}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-resCh; r.client != nil {
				_ = r.client.Close()
			}
		}()
		return nil, ErrTimeout
	case r := <-resCh:
		if r.err != nil {
			return nil, r.err
		}
		return newTransportHandle(r.client), nil
	}
}
