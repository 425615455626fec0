// Package remotefs defines the capability contract every backend must
// implement, and the error taxonomy the driver translates into errno.
package remotefs

import (
	"context"
	"errors"
	"io"
	"time"
)

// FileType enumerates the kinds of remote entries the driver understands.
type FileType int

const (
	TypeFile FileType = iota
	TypeDir
	TypeSymlink
)

// File is the attribute record a backend returns for a path.
type File struct {
	Path    string
	Type    FileType
	Size    uint64
	Atime   *time.Time
	Mtime   *time.Time
	Ctime   *time.Time
	Mode    *uint32 // nil means "backend has no mode metadata"
	Uid     uint32
	Gid     uint32
	Symlink string // target, only meaningful when Type == TypeSymlink
}

// Metadata carries the subset of File fields a caller wants to apply via
// Setstat, or to seed a newly created file with.
type Metadata struct {
	Mode  *uint32
	Uid   *uint32
	Gid   *uint32
	Size  *uint64
	Atime *time.Time
	Mtime *time.Time
	Ctime *time.Time
}

// Error kinds. The driver only distinguishes UnsupportedFeature (to drive
// the streaming adapter's temp-file fallback) from everything else, which
// it maps uniformly per the errno table.
var (
	ErrNoSuchFile        = errors.New("remotefs: no such file or directory")
	ErrPermissionDenied  = errors.New("remotefs: permission denied")
	ErrUnsupportedFeature = errors.New("remotefs: unsupported feature")
	ErrIO                = errors.New("remotefs: io error")
)

// IsUnsupported reports whether err (or a wrapped cause) is
// ErrUnsupportedFeature.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedFeature)
}

// IsNotExist reports whether err (or a wrapped cause) is ErrNoSuchFile.
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNoSuchFile)
}

// IsPermission reports whether err (or a wrapped cause) is
// ErrPermissionDenied.
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// RemoteFs is the capability interface any backend (SFTP, FTP, S3, a
// Kubernetes pod, or the in-memory test double) must implement. Paths are
// always absolute remote paths, not local ones.
type RemoteFs interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error

	Stat(ctx context.Context, path string) (File, error)
	ListDir(ctx context.Context, path string) ([]File, error)
	CreateDir(ctx context.Context, path string, mode uint32) error
	RemoveFile(ctx context.Context, path string) error
	RemoveDir(ctx context.Context, path string) error
	Symlink(ctx context.Context, newPath, target string) error
	Move(ctx context.Context, src, dest string) error
	Setstat(ctx context.Context, path string, md Metadata) error

	// Open returns a stream for reading. It MAY fail with
	// ErrUnsupportedFeature, in which case the caller falls back to
	// OpenFile.
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// OnRead finalizes a reader returned by Open. Always called, even on
	// short reads.
	OnRead(ctx context.Context, r io.ReadCloser) error

	// Create returns a stream for writing. It MAY fail with
	// ErrUnsupportedFeature, in which case the caller falls back to
	// CreateFile.
	Create(ctx context.Context, path string, md Metadata) (WriteSeekCloser, error)
	// OnWritten finalizes a writer returned by Create.
	OnWritten(ctx context.Context, w WriteSeekCloser) error

	// OpenFile drains the remote object at path into w in full (the
	// read-fallback path).
	OpenFile(ctx context.Context, path string, w io.Writer) error
	// CreateFile uploads the entire contents of r to path in one shot
	// (the write-fallback path).
	CreateFile(ctx context.Context, path string, md Metadata, r io.Reader) error
}

// WriteSeekCloser is the capability a streaming Create() writer needs: a
// way to seek to an absolute offset before writing, if the backend
// supports writing at non-zero offsets at all.
type WriteSeekCloser interface {
	io.WriteCloser
	Seek(offset int64, whence int) (int64, error)
}
