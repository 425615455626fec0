// Package memory implements remotefs.RemoteFs entirely in process
// memory. It is the required test double for the driver's end-to-end
// scenarios (spec §8) and needs no network access at all.
//
// Grounded on original_source's remotefs-memory backend (referenced from
// remotefs-fuse-cli/src/cli.rs's MemoryArgs variant): a simple path-keyed
// tree with no persistence, used by the original project's own test
// suite for exactly this purpose.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/remotefs-rs/remotefs-fuse-go/internal/remotefs"
)

type node struct {
	file    remotefs.File
	content []byte
}

// Fs is an in-memory remotefs.RemoteFs. The zero value is not usable;
// use New.
type Fs struct {
	mu    sync.Mutex
	nodes map[string]*node
}

// New returns an Fs with just the root directory present.
func New() *Fs {
	now := time.Now()
	fs := &Fs{nodes: make(map[string]*node)}
	mode := uint32(0o755)
	fs.nodes["/"] = &node{file: remotefs.File{
		Path: "/", Type: remotefs.TypeDir, Mode: &mode,
		Atime: &now, Mtime: &now, Ctime: &now,
	}}
	return fs
}

func (f *Fs) Connect(ctx context.Context) error    { return nil }
func (f *Fs) Disconnect(ctx context.Context) error { return nil }

func clean(p string) string {
	p = path.Clean(p)
	if p == "." {
		return "/"
	}
	return p
}

func (f *Fs) Stat(ctx context.Context, p string) (remotefs.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.nodes[clean(p)]
	if !ok {
		return remotefs.File{}, remotefs.ErrNoSuchFile
	}
	return n.file, nil
}

func (f *Fs) ListDir(ctx context.Context, p string) ([]remotefs.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := clean(p)
	n, ok := f.nodes[dir]
	if !ok || n.file.Type != remotefs.TypeDir {
		return nil, remotefs.ErrNoSuchFile
	}

	prefix := dir
	if prefix != "/" {
		prefix += "/"
	}
	var out []remotefs.File
	for k, v := range f.nodes {
		if k == dir || !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if strings.Contains(rest, "/") {
			continue // not a direct child
		}
		out = append(out, v.file)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (f *Fs) CreateDir(ctx context.Context, p string, mode uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p = clean(p)
	if _, ok := f.nodes[p]; ok {
		return fmt.Errorf("%w: %s exists", remotefs.ErrIO, p)
	}
	now := time.Now()
	f.nodes[p] = &node{file: remotefs.File{
		Path: p, Type: remotefs.TypeDir, Mode: &mode,
		Atime: &now, Mtime: &now, Ctime: &now,
	}}
	return nil
}

func (f *Fs) RemoveFile(ctx context.Context, p string) error {
	return f.remove(p, remotefs.TypeFile)
}

func (f *Fs) RemoveDir(ctx context.Context, p string) error {
	return f.remove(p, remotefs.TypeDir)
}

func (f *Fs) remove(p string, want remotefs.FileType) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p = clean(p)
	n, ok := f.nodes[p]
	if !ok {
		return remotefs.ErrNoSuchFile
	}
	if n.file.Type != want {
		return fmt.Errorf("%w: unexpected type for %s", remotefs.ErrIO, p)
	}
	delete(f.nodes, p)
	return nil
}

func (f *Fs) Symlink(ctx context.Context, newPath, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	newPath = clean(newPath)
	now := time.Now()
	mode := uint32(0o777)
	f.nodes[newPath] = &node{file: remotefs.File{
		Path: newPath, Type: remotefs.TypeSymlink, Mode: &mode,
		Symlink: target, Size: uint64(len(target)),
		Atime: &now, Mtime: &now, Ctime: &now,
	}}
	return nil
}

func (f *Fs) Move(ctx context.Context, src, dest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	src, dest = clean(src), clean(dest)
	n, ok := f.nodes[src]
	if !ok {
		return remotefs.ErrNoSuchFile
	}
	delete(f.nodes, src)
	n.file.Path = dest
	f.nodes[dest] = n
	return nil
}

func (f *Fs) Setstat(ctx context.Context, p string, md remotefs.Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p = clean(p)
	n, ok := f.nodes[p]
	if !ok {
		return remotefs.ErrNoSuchFile
	}
	if md.Mode != nil {
		n.file.Mode = md.Mode
	}
	if md.Uid != nil {
		n.file.Uid = *md.Uid
	}
	if md.Gid != nil {
		n.file.Gid = *md.Gid
	}
	if md.Size != nil {
		n.file.Size = *md.Size
		if int(*md.Size) <= len(n.content) {
			n.content = n.content[:*md.Size]
		} else {
			grown := make([]byte, *md.Size)
			copy(grown, n.content)
			n.content = grown
		}
	}
	if md.Atime != nil {
		n.file.Atime = md.Atime
	}
	if md.Mtime != nil {
		n.file.Mtime = md.Mtime
	}
	if md.Ctime != nil {
		n.file.Ctime = md.Ctime
	}
	return nil
}

type readCloser struct{ *bytes.Reader }

func (readCloser) Close() error { return nil }

func (f *Fs) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.nodes[clean(p)]
	if !ok {
		return nil, remotefs.ErrNoSuchFile
	}
	return readCloser{bytes.NewReader(n.content)}, nil
}

func (f *Fs) OnRead(ctx context.Context, r io.ReadCloser) error {
	return r.Close()
}

type writer struct {
	fs   *Fs
	path string
	buf  *bytes.Buffer
	pos  int64
}

func (w *writer) Write(p []byte) (int, error) {
	if int64(w.buf.Len()) < w.pos {
		w.buf.Write(make([]byte, w.pos-int64(w.buf.Len())))
	}
	b := w.buf.Bytes()
	if w.pos < int64(len(b)) {
		n := copy(b[w.pos:], p)
		w.pos += int64(n)
		if n < len(p) {
			w.buf.Write(p[n:])
			w.pos += int64(len(p) - n)
		}
		return len(p), nil
	}
	n, err := w.buf.Write(p)
	w.pos += int64(n)
	return n, err
}

func (w *writer) Seek(offset int64, whence int) (int64, error) {
	if whence != io.SeekStart {
		return 0, fmt.Errorf("%w: only SeekStart supported", remotefs.ErrIO)
	}
	w.pos = offset
	return offset, nil
}

func (w *writer) Close() error { return nil }

func (f *Fs) Create(ctx context.Context, p string, md remotefs.Metadata) (remotefs.WriteSeekCloser, error) {
	f.mu.Lock()
	p = clean(p)
	n, ok := f.nodes[p]
	if !ok {
		now := time.Now()
		mode := uint32(0o644)
		if md.Mode != nil {
			mode = *md.Mode
		}
		n = &node{file: remotefs.File{Path: p, Type: remotefs.TypeFile, Mode: &mode, Atime: &now, Mtime: &now, Ctime: &now}}
		f.nodes[p] = n
	}
	f.mu.Unlock()

	return &writer{fs: f, path: p, buf: bytes.NewBuffer(append([]byte(nil), n.content...))}, nil
}

func (f *Fs) OnWritten(ctx context.Context, w remotefs.WriteSeekCloser) error {
	wr := w.(*writer)
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.nodes[wr.path]
	n.content = wr.buf.Bytes()
	n.file.Size = uint64(len(n.content))
	return nil
}

func (f *Fs) OpenFile(ctx context.Context, p string, w io.Writer) error {
	f.mu.Lock()
	n, ok := f.nodes[clean(p)]
	f.mu.Unlock()
	if !ok {
		return remotefs.ErrNoSuchFile
	}
	_, err := w.Write(n.content)
	return err
}

func (f *Fs) CreateFile(ctx context.Context, p string, md remotefs.Metadata, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	p = clean(p)
	now := time.Now()
	mode := uint32(0o644)
	if md.Mode != nil {
		mode = *md.Mode
	}
	f.nodes[p] = &node{
		file: remotefs.File{
			Path: p, Type: remotefs.TypeFile, Mode: &mode, Size: uint64(len(data)),
			Atime: &now, Mtime: &now, Ctime: &now,
		},
		content: data,
	}
	return nil
}

var _ remotefs.RemoteFs = (*Fs)(nil)
