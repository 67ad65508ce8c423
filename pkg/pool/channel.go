package pool

import (
	"context"

	"golang.org/x/crypto/ssh"
)

// Channel is a single-use raw SSH channel, used for one-shot command
// execution, PTY-backed terminals, and the exec-based fs operations that
// have no SFTP v3 equivalent (cp -r, rm -rf). Single-use mirrors
// original_source's SshConnectionGuard, which never returns a channel to
// the pool once taken.
type Channel struct {
	ssh.Channel
	Requests <-chan *ssh.Request
}

type channelPolicy struct{}

func (channelPolicy) make(_ context.Context, h *TransportHandle) (Channel, error) {
	ch, reqs, err := h.openChannel("session", nil)
	if err != nil {
		return Channel{}, err
	}
	return Channel{Channel: ch, Requests: reqs}, nil
}

func (channelPolicy) reusable() bool { return false }

func (channelPolicy) closeChild(c Channel) {
	if c.Channel != nil {
		_ = c.Channel.Close()
	}
}
