package ftp

import (
	"errors"
	"path"
	"strings"

	"github.com/jlaffaye/ftp"

	"github.com/remotefs-rs/remotefs-fuse-go/internal/remotefs"
)

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return path.Join(dir, name)
}

func toFile(p string, e *ftp.Entry) remotefs.File {
	typ := remotefs.TypeFile
	switch e.Type {
	case ftp.EntryTypeFolder:
		typ = remotefs.TypeDir
	case ftp.EntryTypeLink:
		typ = remotefs.TypeSymlink
	}
	mtime := e.Time
	return remotefs.File{Path: p, Type: typ, Size: e.Size, Mtime: &mtime}
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "no such file"), strings.Contains(lower, "not found"), strings.Contains(lower, "550"):
		return remotefs.ErrNoSuchFile
	case strings.Contains(lower, "permission"), strings.Contains(lower, "denied"):
		return remotefs.ErrPermissionDenied
	default:
		return errors.Join(remotefs.ErrIO, err)
	}
}
