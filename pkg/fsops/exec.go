package fsops

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// execRequestMsg is RFC 4254 §6.5's exec request payload.
type execRequestMsg struct {
	Command string
}

// exitStatusMsg is RFC 4254 §6.10's exit-status request payload.
type exitStatusMsg struct {
	Status uint32
}

// ExecResult is the outcome of a one-shot remote command, returned verbatim
// regardless of exit status — unlike Copy/RemoveAll's runShell, which turns
// a non-zero status into an error since those two only ever care about
// success or failure.
type ExecResult struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitStatus int    `json:"exit_status"`
}

// Exec runs command on the remote host over a leased single-use channel and
// returns its full output and exit status, first-class alongside the
// directory/file operations rather than a side effect of Copy/RemoveAll.
func (f *FileSystem) Exec(ctx context.Context, command string) (ExecResult, error) {
	return f.runExec(ctx, command)
}

// Copy runs `cp -r` on the remote host over a leased raw channel.
// cp -r has no SFTP v3 equivalent, matching original_source's
// services/handlers/sftp/cp.rs, which shells out rather than using SFTP
// primitives.
func (f *FileSystem) Copy(ctx context.Context, from, to string) error {
	from, err := normalizeRemotePath(from)
	if err != nil {
		return err
	}
	to, err = normalizeRemotePath(to)
	if err != nil {
		return err
	}
	return f.runShell(ctx, fmt.Sprintf("cp -r -- %s %s", shellQuote(from), shellQuote(to)))
}

// RemoveAll runs `rm -rf` on the remote host, mirroring
// original_source's services/handlers/sftp/rm_rf.rs.
func (f *FileSystem) RemoveAll(ctx context.Context, path string) error {
	path, err := normalizeRemotePath(path)
	if err != nil {
		return err
	}
	return f.runShell(ctx, fmt.Sprintf("rm -rf -- %s", shellQuote(path)))
}

// runShell runs command to completion and turns a non-zero exit status into
// an error carrying the captured stderr, for callers that only care whether
// the command succeeded.
func (f *FileSystem) runShell(ctx context.Context, command string) error {
	res, err := f.runExec(ctx, command)
	if err != nil {
		return err
	}
	if res.ExitStatus != 0 {
		return errors.Errorf("fsops: command %q exited %d: %s", command, res.ExitStatus, res.Stderr)
	}
	return nil
}

// runExec leases a single-use channel and runs one command to completion,
// capturing stdout, stderr and the RFC 4254 §6.10 exit-status without
// judging the result.
func (f *FileSystem) runExec(ctx context.Context, command string) (ExecResult, error) {
	lease, err := f.p.LeaseChannel(ctx, f.targetID)
	if err != nil {
		return ExecResult{}, err
	}
	defer lease.Close()

	ok, err := lease.SendRequest("exec", true, ssh.Marshal(execRequestMsg{Command: command}))
	if err != nil {
		return ExecResult{}, errors.Wrap(err, "send exec request")
	}
	if !ok {
		return ExecResult{}, errors.New("fsops: remote refused exec request")
	}

	var stderr bytes.Buffer
	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		_, _ = stderr.ReadFrom(lease.Stderr())
	}()

	var stdout bytes.Buffer
	if _, err := stdout.ReadFrom(lease.Channel); err != nil {
		return ExecResult{}, errors.Wrap(err, "read exec output")
	}
	<-stderrDone

	status := drainExitStatus(lease.Requests)
	return ExecResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitStatus: status}, nil
}

// drainExitStatus reads channel requests until exit-status arrives or the
// channel's request stream closes, replying to anything that wants a reply
// so the remote never blocks waiting on us.
func drainExitStatus(reqs <-chan *ssh.Request) int {
	for req := range reqs {
		if req.Type == "exit-status" {
			var msg exitStatusMsg
			_ = ssh.Unmarshal(req.Payload, &msg)
			if req.WantReply {
				_ = req.Reply(true, nil)
			}
			return int(msg.Status)
		}
		if req.WantReply {
			_ = req.Reply(false, nil)
		}
	}
	return 0
}

// shellQuote wraps p in single quotes, escaping any embedded single quote,
// so paths containing spaces or shell metacharacters pass through safely to
// the remote `cp -r`/`rm -rf` invocation.
func shellQuote(p string) string {
	return "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
}
