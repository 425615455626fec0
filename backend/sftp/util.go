package sftp

import (
	"errors"
	"io/fs"
	"os"
	"path"

	"golang.org/x/crypto/ssh"

	"github.com/remotefs-rs/remotefs-fuse-go/internal/remotefs"
)

func loadSigner(keyFile string) (ssh.Signer, error) {
	key, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, err
	}
	return ssh.ParsePrivateKey(key)
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return path.Join(dir, name)
}

func fileModeFromUnix(mode uint32) fs.FileMode {
	return fs.FileMode(mode & 0o7777)
}

func toFile(path string, info fs.FileInfo) remotefs.File {
	typ := remotefs.TypeFile
	if info.IsDir() {
		typ = remotefs.TypeDir
	} else if info.Mode()&fs.ModeSymlink != 0 {
		typ = remotefs.TypeSymlink
	}
	mode := uint32(info.Mode().Perm())
	mtime := info.ModTime()
	return remotefs.File{
		Path:  path,
		Type:  typ,
		Size:  uint64(info.Size()),
		Mode:  &mode,
		Mtime: &mtime,
	}
}

// translate maps the sftp package's errors (themselves usually
// fs.PathError wrapping an SFTP status code) onto this module's error
// taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return remotefs.ErrNoSuchFile
	}
	if errors.Is(err, fs.ErrPermission) {
		return remotefs.ErrPermissionDenied
	}
	return errors.Join(remotefs.ErrIO, err)
}
