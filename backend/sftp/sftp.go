// Package sftp implements remotefs.RemoteFs over SFTP, using
// github.com/pkg/sftp atop an golang.org/x/crypto/ssh transport.
//
// Grounded on original_source/remotefs-fuse-cli/src/cli.rs's SftpArgs
// (host, port, username, password/key-file) and
// original_source/remotefs-ssh's connection setup, adapted to the Go
// ecosystem's client libraries for the same protocol.
package sftp

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/remotefs-rs/remotefs-fuse-go/internal/remotefs"
)

// Config holds the connection parameters for one SFTP session.
type Config struct {
	Addr       string // host:port
	Username   string
	Password   string // used when KeyFile is empty
	KeyFile    string // path to a private key, PEM-encoded
	KnownHosts ssh.HostKeyCallback
}

// Fs is a remotefs.RemoteFs backed by an SFTP session. The zero value is
// not usable; use New.
type Fs struct {
	cfg    Config
	ssh    *ssh.Client
	client *sftp.Client
}

func New(cfg Config) *Fs {
	if cfg.KnownHosts == nil {
		cfg.KnownHosts = ssh.InsecureIgnoreHostKey()
	}
	return &Fs{cfg: cfg}
}

func (f *Fs) Connect(ctx context.Context) error {
	auths, err := f.authMethods()
	if err != nil {
		return fmt.Errorf("sftp: %w", err)
	}

	clientCfg := &ssh.ClientConfig{
		User:            f.cfg.Username,
		Auth:            auths,
		HostKeyCallback: f.cfg.KnownHosts,
		Timeout:         15 * time.Second,
	}

	dialer := net.Dialer{Timeout: clientCfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", f.cfg.Addr)
	if err != nil {
		return fmt.Errorf("sftp: dial %s: %w", f.cfg.Addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, f.cfg.Addr, clientCfg)
	if err != nil {
		return fmt.Errorf("sftp: handshake: %w", err)
	}
	f.ssh = ssh.NewClient(sshConn, chans, reqs)

	f.client, err = sftp.NewClient(f.ssh)
	if err != nil {
		f.ssh.Close()
		return fmt.Errorf("sftp: new client: %w", err)
	}
	return nil
}

func (f *Fs) authMethods() ([]ssh.AuthMethod, error) {
	if f.cfg.KeyFile != "" {
		signer, err := loadSigner(f.cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	return []ssh.AuthMethod{ssh.Password(f.cfg.Password)}, nil
}

func (f *Fs) Disconnect(ctx context.Context) error {
	if f.client != nil {
		_ = f.client.Close()
	}
	if f.ssh != nil {
		return f.ssh.Close()
	}
	return nil
}

func (f *Fs) Stat(ctx context.Context, path string) (remotefs.File, error) {
	info, err := f.client.Stat(path)
	if err != nil {
		return remotefs.File{}, translate(err)
	}
	return toFile(path, info), nil
}

func (f *Fs) ListDir(ctx context.Context, path string) ([]remotefs.File, error) {
	entries, err := f.client.ReadDir(path)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]remotefs.File, 0, len(entries))
	for _, e := range entries {
		out = append(out, toFile(joinPath(path, e.Name()), e))
	}
	return out, nil
}

func (f *Fs) CreateDir(ctx context.Context, path string, mode uint32) error {
	if err := f.client.Mkdir(path); err != nil {
		return translate(err)
	}
	return translate(f.client.Chmod(path, fileModeFromUnix(mode)))
}

func (f *Fs) RemoveFile(ctx context.Context, path string) error {
	return translate(f.client.Remove(path))
}

func (f *Fs) RemoveDir(ctx context.Context, path string) error {
	return translate(f.client.RemoveDirectory(path))
}

func (f *Fs) Symlink(ctx context.Context, newPath, target string) error {
	return translate(f.client.Symlink(target, newPath))
}

func (f *Fs) Move(ctx context.Context, src, dest string) error {
	return translate(f.client.Rename(src, dest))
}

func (f *Fs) Setstat(ctx context.Context, path string, md remotefs.Metadata) error {
	if md.Mode != nil {
		if err := f.client.Chmod(path, fileModeFromUnix(*md.Mode)); err != nil {
			return translate(err)
		}
	}
	if md.Uid != nil && md.Gid != nil {
		if err := f.client.Chown(path, int(*md.Uid), int(*md.Gid)); err != nil {
			return translate(err)
		}
	}
	if md.Size != nil {
		if err := f.client.Truncate(path, int64(*md.Size)); err != nil {
			return translate(err)
		}
	}
	return nil
}

func (f *Fs) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	r, err := f.client.Open(path)
	if err != nil {
		return nil, translate(err)
	}
	return r, nil
}

func (f *Fs) OnRead(ctx context.Context, r io.ReadCloser) error {
	return r.Close()
}

func (f *Fs) Create(ctx context.Context, path string, md remotefs.Metadata) (remotefs.WriteSeekCloser, error) {
	w, err := f.client.Create(path)
	if err != nil {
		return nil, translate(err)
	}
	return w, nil
}

func (f *Fs) OnWritten(ctx context.Context, w remotefs.WriteSeekCloser) error {
	return w.Close()
}

func (f *Fs) OpenFile(ctx context.Context, path string, w io.Writer) error {
	r, err := f.client.Open(path)
	if err != nil {
		return translate(err)
	}
	defer r.Close()
	_, err = io.Copy(w, r)
	return err
}

func (f *Fs) CreateFile(ctx context.Context, path string, md remotefs.Metadata, r io.Reader) error {
	w, err := f.client.Create(path)
	if err != nil {
		return translate(err)
	}
	defer w.Close()
	_, err = io.Copy(w, r)
	return err
}

var _ remotefs.RemoteFs = (*Fs)(nil)
