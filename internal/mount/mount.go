// Package mount implements the mount/host harness: opens the FUSE
// channel on the mount path, registers the driver, exposes an unmount
// trigger usable from a signal handler, and runs the blocking request
// loop.
//
// Grounded on original_source/remotefs-fuse-cli/src/main.rs's
// Mount::mount / unmounter / run sequence, wired to the real
// github.com/jacobsa/fuse.Mount entry point gcsfuse itself uses to stand
// up its driver.
package mount

import (
	"context"
	"fmt"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
)

// Option mirrors spec §3's mount option enum. Uid/Gid/DefaultMode have
// no FUSE-visible representation; they are only consumed by the driver's
// permission check (see internal/driver.Options).
type Option interface {
	apply(*fuse.MountConfig)
}

type simpleOption func(*fuse.MountConfig)

func (f simpleOption) apply(c *fuse.MountConfig) { f(c) }

func AllowRoot() Option {
	return simpleOption(func(c *fuse.MountConfig) { c.AllowRoot = true })
}

func ReadWrite() Option {
	return simpleOption(func(c *fuse.MountConfig) { c.ReadOnly = false })
}

func FSName(name string) Option {
	return simpleOption(func(c *fuse.MountConfig) { c.FSName = name })
}

// Exec and Sync have no direct fuse.MountConfig analogue in this
// binding; applying either leaves the mount configuration unchanged.
func Exec() Option { return simpleOption(func(*fuse.MountConfig) {}) }
func Sync() Option { return simpleOption(func(*fuse.MountConfig) {}) }

// MountedFS is the handle to an active mount returned by Mount. Run
// blocks until the filesystem is unmounted; Unmount requests teardown.
type MountedFS struct {
	mfs *fuse.MountedFileSystem
}

// Mount registers fs as the filesystem at mountPoint and waits for the
// kernel to finish the mount handshake.
func Mount(ctx context.Context, fs fuseutil.FileSystem, mountPoint string, opts ...Option) (*MountedFS, error) {
	cfg := &fuse.MountConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	server := fuseutil.NewFileSystemServer(fs)
	mfs, err := fuse.Mount(mountPoint, server, cfg)
	if err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}
	return &MountedFS{mfs: mfs}, nil
}

// Run blocks until the filesystem is unmounted, returning any error the
// kernel reported for the session.
func (m *MountedFS) Run() error {
	return m.mfs.Join(context.Background())
}

// Unmount requests that the kernel tear down the mount. Safe to call
// from a signal handler.
func (m *MountedFS) Unmount() error {
	return fuse.Unmount(m.mfs.Dir())
}
