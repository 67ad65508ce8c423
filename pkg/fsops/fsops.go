// Package fsops adapts the teacher's pkg/service/fs FileSystem abstraction
// (interface.go, sftp_filesystem.go) to lease-backed SFTP sessions instead
// of a flat client cache: every SFTP-backed call leases a pool.SftpLease and
// returns it when the call ends (OpenRead/OpenWrite: when the returned stream
// is closed), while Copy, RemoveAll and Exec lease a raw channel instead, so
// caps and expiry are enforced by pkg/pool rather than by this package.
package fsops

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"

	"github.com/webssh/sshgate/pkg/pool"
)

// FileEntry describes one file or directory, same shape as the teacher's
// pkg/service/fs.FileEntry.
type FileEntry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	IsDir   bool      `json:"is_dir"`
	Size    int64     `json:"size"`
	Mode    string    `json:"mode"`
	ModTime time.Time `json:"mod_time"`
}

type ListDirResponse struct {
	Path    string      `json:"path"`
	Entries []FileEntry `json:"entries"`
}

type ListDirOptions struct {
	IncludeHidden bool
}

type OpenWriteOptions struct {
	Overwrite bool
}

// FileSystem is the per-target SFTP-backed operations surface. list/stat/
// mkdir/rename/remove/upload/download go through SFTP v3; cp and rm -rf have
// no SFTP v3 equivalent and run as remote shell commands instead, mirroring
// original_source's services/handlers/sftp/cp.rs and rm_rf.rs.
type FileSystem struct {
	p        *pool.Pool
	targetID int64
}

func New(p *pool.Pool, targetID int64) *FileSystem {
	return &FileSystem{p: p, targetID: targetID}
}

func (f *FileSystem) withSFTP(ctx context.Context, fn func(*sftp.Client) error) error {
	lease, err := f.p.LeaseSFTP(ctx, f.targetID)
	if err != nil {
		return err
	}
	defer lease.Close()
	if err := fn(lease.Client); err != nil {
		lease.MarkBroken()
		return err
	}
	return nil
}

func (f *FileSystem) ListDir(ctx context.Context, path string, opts ListDirOptions) (*ListDirResponse, error) {
	path, err := normalizeRemotePath(path)
	if err != nil {
		return nil, err
	}
	var resp ListDirResponse
	err = f.withSFTP(ctx, func(cli *sftp.Client) error {
		infos, err := cli.ReadDir(path)
		if err != nil {
			return err
		}
		entries := make([]FileEntry, 0, len(infos))
		for _, fi := range infos {
			name := fi.Name()
			if name == "." || name == ".." {
				continue
			}
			if !opts.IncludeHidden && strings.HasPrefix(name, ".") {
				continue
			}
			entries = append(entries, FileEntry{
				Name:    name,
				Path:    joinRemote(path, name),
				IsDir:   fi.IsDir(),
				Size:    fi.Size(),
				Mode:    fi.Mode().String(),
				ModTime: fi.ModTime(),
			})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].IsDir != entries[j].IsDir {
				return entries[i].IsDir
			}
			return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
		})
		resp = ListDirResponse{Path: path, Entries: entries}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (f *FileSystem) Stat(ctx context.Context, path string) (*FileEntry, error) {
	path, err := normalizeRemotePath(path)
	if err != nil {
		return nil, err
	}
	var entry FileEntry
	err = f.withSFTP(ctx, func(cli *sftp.Client) error {
		fi, err := cli.Stat(path)
		if err != nil {
			return err
		}
		entry = FileEntry{
			Name:    filepath.Base(path),
			Path:    path,
			IsDir:   fi.IsDir(),
			Size:    fi.Size(),
			Mode:    fi.Mode().String(),
			ModTime: fi.ModTime(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (f *FileSystem) MkdirAll(ctx context.Context, path string) error {
	path, err := normalizeRemotePath(path)
	if err != nil {
		return err
	}
	return f.withSFTP(ctx, func(cli *sftp.Client) error {
		return cli.MkdirAll(path)
	})
}

func (f *FileSystem) Remove(ctx context.Context, path string) error {
	path, err := normalizeRemotePath(path)
	if err != nil {
		return err
	}
	return f.withSFTP(ctx, func(cli *sftp.Client) error {
		fi, err := cli.Stat(path)
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return cli.RemoveDirectory(path)
		}
		return cli.Remove(path)
	})
}

func (f *FileSystem) Rename(ctx context.Context, from, to string) error {
	from, err := normalizeRemotePath(from)
	if err != nil {
		return err
	}
	to, err = normalizeRemotePath(to)
	if err != nil {
		return err
	}
	return f.withSFTP(ctx, func(cli *sftp.Client) error {
		return cli.Rename(from, to)
	})
}

func (f *FileSystem) OpenRead(ctx context.Context, path string) (io.ReadCloser, error) {
	path, err := normalizeRemotePath(path)
	if err != nil {
		return nil, err
	}
	lease, err := f.p.LeaseSFTP(ctx, f.targetID)
	if err != nil {
		return nil, err
	}
	rc, err := lease.Client.Open(path)
	if err != nil {
		lease.MarkBroken()
		lease.Close()
		return nil, err
	}
	return &leaseBoundReadCloser{ReadCloser: rc, lease: lease}, nil
}

func (f *FileSystem) OpenWrite(ctx context.Context, path string, opts OpenWriteOptions) (io.WriteCloser, error) {
	path, err := normalizeRemotePath(path)
	if err != nil {
		return nil, err
	}
	lease, err := f.p.LeaseSFTP(ctx, f.targetID)
	if err != nil {
		return nil, err
	}
	flag := sftpOpenFlags(opts)
	wc, err := lease.Client.OpenFile(path, flag)
	if err != nil {
		lease.MarkBroken()
		lease.Close()
		return nil, err
	}
	return &leaseBoundWriteCloser{WriteCloser: wc, lease: lease}, nil
}

// leaseBoundReadCloser/leaseBoundWriteCloser return the SFTP session to the
// pool once the caller is done streaming, instead of at call scope.
type leaseBoundReadCloser struct {
	io.ReadCloser
	lease *pool.SftpLease
}

func (r *leaseBoundReadCloser) Close() error {
	err := r.ReadCloser.Close()
	r.lease.Close()
	return err
}

type leaseBoundWriteCloser struct {
	io.WriteCloser
	lease *pool.SftpLease
}

func (w *leaseBoundWriteCloser) Close() error {
	err := w.WriteCloser.Close()
	if err != nil {
		w.lease.MarkBroken()
	}
	w.lease.Close()
	return err
}

func sftpOpenFlags(opts OpenWriteOptions) int {
	flag := os.O_WRONLY | os.O_CREATE
	if opts.Overwrite {
		flag |= os.O_TRUNC
	} else {
		flag |= os.O_EXCL
	}
	return flag
}

func normalizeRemotePath(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", errors.New("fsops: empty path")
	}
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		return "", errors.Errorf("fsops: path %q must be absolute", p)
	}
	return filepath.ToSlash(filepath.Clean(p)), nil
}

func joinRemote(dir, base string) string {
	if strings.HasSuffix(dir, "/") {
		return dir + strings.TrimPrefix(base, "/")
	}
	return dir + "/" + strings.TrimPrefix(base, "/")
}
