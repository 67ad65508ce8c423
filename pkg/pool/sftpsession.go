package pool

import (
	"context"

	"github.com/pkg/sftp"
)

// SftpSession is a reusable *sftp.Client, scoped per-connection rather than
// per-target: each Connection[SftpSession] makes its own, unlike
// original_source's flat SshSftpSessionPool keyed only by target_id
// (server/src/ssh_session_pool.rs).
type SftpSession struct {
	*sftp.Client
}

type sftpPolicy struct{}

func (sftpPolicy) make(_ context.Context, h *TransportHandle) (SftpSession, error) {
	cli, err := h.newSFTPClient()
	if err != nil {
		return SftpSession{}, err
	}
	return SftpSession{Client: cli}, nil
}

func (sftpPolicy) reusable() bool { return true }

func (sftpPolicy) closeChild(s SftpSession) {
	if s.Client != nil {
		_ = s.Client.Close()
	}
}
