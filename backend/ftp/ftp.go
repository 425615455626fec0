// Package ftp implements remotefs.RemoteFs over FTP using
// github.com/jlaffaye/ftp.
//
// Grounded on original_source/remotefs-fuse-cli/src/cli.rs's FtpArgs
// (host, port, username, password, optional TLS) adapted to the
// jlaffaye/ftp client's ServerConn API.
package ftp

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/remotefs-rs/remotefs-fuse-go/internal/remotefs"
)

// Config holds the connection parameters for one FTP session.
type Config struct {
	Addr     string
	Username string
	Password string
}

// Fs is a remotefs.RemoteFs backed by an FTP control connection. The
// zero value is not usable; use New.
type Fs struct {
	cfg  Config
	conn *ftp.ServerConn
}

func New(cfg Config) *Fs {
	return &Fs{cfg: cfg}
}

func (f *Fs) Connect(ctx context.Context) error {
	conn, err := ftp.Dial(f.cfg.Addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(15*time.Second))
	if err != nil {
		return fmt.Errorf("ftp: dial %s: %w", f.cfg.Addr, err)
	}
	if err := conn.Login(f.cfg.Username, f.cfg.Password); err != nil {
		conn.Quit()
		return fmt.Errorf("ftp: login: %w", err)
	}
	f.conn = conn
	return nil
}

func (f *Fs) Disconnect(ctx context.Context) error {
	if f.conn == nil {
		return nil
	}
	return f.conn.Quit()
}

func (f *Fs) Stat(ctx context.Context, p string) (remotefs.File, error) {
	dir := path.Dir(p)
	name := path.Base(p)
	if p == "/" {
		mode := uint32(0o755)
		return remotefs.File{Path: "/", Type: remotefs.TypeDir, Mode: &mode}, nil
	}

	entries, err := f.conn.List(dir)
	if err != nil {
		return remotefs.File{}, translate(err)
	}
	for _, e := range entries {
		if e.Name == name {
			return toFile(p, e), nil
		}
	}
	return remotefs.File{}, remotefs.ErrNoSuchFile
}

func (f *Fs) ListDir(ctx context.Context, p string) ([]remotefs.File, error) {
	entries, err := f.conn.List(p)
	if err != nil {
		return nil, translate(err)
	}
	out := make([]remotefs.File, 0, len(entries))
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		out = append(out, toFile(joinPath(p, e.Name), e))
	}
	return out, nil
}

func (f *Fs) CreateDir(ctx context.Context, p string, mode uint32) error {
	return translate(f.conn.MakeDir(p))
}

func (f *Fs) RemoveFile(ctx context.Context, p string) error {
	return translate(f.conn.Delete(p))
}

func (f *Fs) RemoveDir(ctx context.Context, p string) error {
	return translate(f.conn.RemoveDir(p))
}

func (f *Fs) Symlink(ctx context.Context, newPath, target string) error {
	return remotefs.ErrUnsupportedFeature
}

func (f *Fs) Move(ctx context.Context, src, dest string) error {
	return translate(f.conn.Rename(src, dest))
}

func (f *Fs) Setstat(ctx context.Context, p string, md remotefs.Metadata) error {
	return remotefs.ErrUnsupportedFeature
}

func (f *Fs) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	resp, err := f.conn.Retr(p)
	if err != nil {
		return nil, translate(err)
	}
	return resp, nil
}

func (f *Fs) OnRead(ctx context.Context, r io.ReadCloser) error {
	return r.Close()
}

func (f *Fs) Create(ctx context.Context, p string, md remotefs.Metadata) (remotefs.WriteSeekCloser, error) {
	return nil, remotefs.ErrUnsupportedFeature
}

func (f *Fs) OnWritten(ctx context.Context, w remotefs.WriteSeekCloser) error {
	return remotefs.ErrUnsupportedFeature
}

func (f *Fs) OpenFile(ctx context.Context, p string, w io.Writer) error {
	resp, err := f.conn.Retr(p)
	if err != nil {
		return translate(err)
	}
	defer resp.Close()
	_, err = io.Copy(w, resp)
	return err
}

func (f *Fs) CreateFile(ctx context.Context, p string, md remotefs.Metadata, r io.Reader) error {
	return translate(f.conn.Stor(p, r))
}

var _ remotefs.RemoteFs = (*Fs)(nil)
