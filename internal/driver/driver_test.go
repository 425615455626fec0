package driver_test

import (
	"context"
	"io"
	"io/fs"
	"testing"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/stretchr/testify/require"

	"github.com/remotefs-rs/remotefs-fuse-go/backend/memory"
	"github.com/remotefs-rs/remotefs-fuse-go/internal/driver"
	"github.com/remotefs-rs/remotefs-fuse-go/internal/remotefs"
)

func newDriver(t *testing.T) (*driver.Driver, context.Context) {
	t.Helper()
	backend := memory.New()
	ctx := context.Background()
	require.NoError(t, backend.Connect(ctx))
	return driver.New(backend, driver.Options{}, nil), ctx
}

func opCtx(uid, gid uint32) fuseops.OpContext {
	return fuseops.OpContext{Uid: uid, Gid: gid, Pid: 1}
}

// Scenario 1: mkdir /foo, mkdir /foo/bar, readdir /foo -> exactly one
// entry "bar", directory, mode 0o700.
func TestScenario_MkdirAndReadDir(t *testing.T) {
	d, ctx := newDriver(t)

	mkFoo := &fuseops.MkDirOp{Parent: fuseops.RootInodeID, Name: "foo", Mode: fs.FileMode(0o755), OpContext: opCtx(0, 0)}
	require.NoError(t, d.MkDir(ctx, mkFoo))
	fooInode := mkFoo.Entry.Child

	mkBar := &fuseops.MkDirOp{Parent: fooInode, Name: "bar", Mode: fs.FileMode(0o700), OpContext: opCtx(0, 0)}
	require.NoError(t, d.MkDir(ctx, mkBar))

	openDir := &fuseops.OpenDirOp{Inode: fooInode, OpContext: opCtx(0, 0)}
	require.NoError(t, d.OpenDir(ctx, openDir))

	readDir := &fuseops.ReadDirOp{
		Inode:     fooInode,
		Handle:    openDir.Handle,
		Offset:    0,
		Dst:       make([]byte, 4096),
		OpContext: opCtx(0, 0),
	}
	require.NoError(t, d.ReadDir(ctx, readDir))
	require.Greater(t, readDir.BytesRead, 0)

	want := make([]byte, 4096)
	n := fuseutil.WriteDirent(want, fuseutil.Dirent{Offset: 1, Inode: mkBar.Entry.Child, Name: "bar", Type: fuseutil.DT_Directory})
	require.Equal(t, n, readDir.BytesRead)
	require.Equal(t, want[:n], readDir.Dst[:n])

	attrs := &fuseops.GetInodeAttributesOp{Inode: mkBar.Entry.Child, OpContext: opCtx(0, 0)}
	require.NoError(t, d.GetInodeAttributes(ctx, attrs))
	require.True(t, attrs.Attributes.Mode&fs.ModeDir != 0)
	require.Equal(t, fs.FileMode(0o700), attrs.Attributes.Mode.Perm())
}

// Scenario 2: create /a, write twice at different offsets, read back the
// concatenation.
func TestScenario_CreateWriteRead(t *testing.T) {
	d, ctx := newDriver(t)

	create := &fuseops.CreateFileOp{
		Parent: fuseops.RootInodeID, Name: "a", Mode: fs.FileMode(0o644),
		Flags: 0o2, OpContext: opCtx(0, 0), // O_RDWR
	}
	require.NoError(t, d.CreateFile(ctx, create))

	write1 := &fuseops.WriteFileOp{Inode: create.Entry.Child, Handle: create.Handle, Offset: 0, Data: []byte("hello"), OpContext: opCtx(0, 0)}
	require.NoError(t, d.WriteFile(ctx, write1))

	write2 := &fuseops.WriteFileOp{Inode: create.Entry.Child, Handle: create.Handle, Offset: 5, Data: []byte(" world"), OpContext: opCtx(0, 0)}
	require.NoError(t, d.WriteFile(ctx, write2))

	read := &fuseops.ReadFileOp{Inode: create.Entry.Child, Handle: create.Handle, Offset: 0, Size: 11, OpContext: opCtx(0, 0)}
	require.NoError(t, d.ReadFile(ctx, read))
	require.Equal(t, "hello world", string(read.Data))
	require.Equal(t, 11, read.BytesRead)
}

// Scenario 3: symlink /link -> /a, readlink /link -> "/a".
func TestScenario_Symlink(t *testing.T) {
	d, ctx := newDriver(t)

	create := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "a", Mode: fs.FileMode(0o644), Flags: 0, OpContext: opCtx(0, 0)}
	require.NoError(t, d.CreateFile(ctx, create))

	link := &fuseops.CreateSymlinkOp{Parent: fuseops.RootInodeID, Name: "link", Target: "/a", OpContext: opCtx(0, 0)}
	require.NoError(t, d.CreateSymlink(ctx, link))

	readlink := &fuseops.ReadSymlinkOp{Inode: link.Entry.Child}
	require.NoError(t, d.ReadSymlink(ctx, readlink))
	require.Equal(t, "/a", readlink.Target)
}

// Scenario 4: rename /a /b, stat /a -> ENOENT, stat /b -> ok same size.
func TestScenario_Rename(t *testing.T) {
	d, ctx := newDriver(t)

	create := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "a", Mode: fs.FileMode(0o644), Flags: 0o2, OpContext: opCtx(0, 0)}
	require.NoError(t, d.CreateFile(ctx, create))
	write := &fuseops.WriteFileOp{Inode: create.Entry.Child, Handle: create.Handle, Offset: 0, Data: []byte("data!"), OpContext: opCtx(0, 0)}
	require.NoError(t, d.WriteFile(ctx, write))

	rename := &fuseops.RenameOp{
		OldParent: fuseops.RootInodeID, OldName: "a",
		NewParent: fuseops.RootInodeID, NewName: "b",
		OpContext: opCtx(0, 0),
	}
	require.NoError(t, d.Rename(ctx, rename))

	lookupOld := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "a", OpContext: opCtx(0, 0)}
	require.Error(t, d.LookUpInode(ctx, lookupOld))

	lookupNew := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "b", OpContext: opCtx(0, 0)}
	require.NoError(t, d.LookUpInode(ctx, lookupNew))
	require.EqualValues(t, len("data!"), lookupNew.Entry.Attributes.Size)
}

// Scenario 5: open /a O_RDONLY|O_TRUNC -> EACCES; O_WRONLY|O_RDWR (more
// than one access-mode bit) -> EINVAL.
func TestScenario_OpenFlagValidation(t *testing.T) {
	d, ctx := newDriver(t)

	create := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "a", Mode: fs.FileMode(0o644), Flags: 0, OpContext: opCtx(0, 0)}
	require.NoError(t, d.CreateFile(ctx, create))

	const (
		oRDONLY = 0
		oWRONLY = 0o1
		oRDWR   = 0o2
		oTRUNC  = 0o1000
	)

	truncRead := &fuseops.OpenFileOp{Inode: create.Entry.Child, Flags: oRDONLY | oTRUNC, OpContext: opCtx(0, 0)}
	err := d.OpenFile(ctx, truncRead)
	require.Error(t, err)

	ambiguous := &fuseops.OpenFileOp{Inode: create.Entry.Child, Flags: oWRONLY | oRDWR, OpContext: opCtx(0, 0)}
	err = d.OpenFile(ctx, ambiguous)
	require.Error(t, err)
}

// Scenario 6: owner-only file denies a different uid and allows root.
func TestScenario_PermissionDenialAndRootBypass(t *testing.T) {
	d, ctx := newDriver(t)

	create := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "x", Mode: fs.FileMode(0o600), Flags: 0, OpContext: opCtx(1000, 1000)}
	require.NoError(t, d.CreateFile(ctx, create))

	deny := &fuseops.OpenFileOp{Inode: create.Entry.Child, Flags: 0, OpContext: opCtx(1001, 1001)}
	require.Error(t, d.OpenFile(ctx, deny))

	allow := &fuseops.OpenFileOp{Inode: create.Entry.Child, Flags: 0, OpContext: opCtx(0, 0)}
	require.NoError(t, d.OpenFile(ctx, allow))
}

// noStreamFs is the in-memory backend with streaming reads disabled: its
// Open always reports UnsupportedFeature.
type noStreamFs struct{ *memory.Fs }

func (noStreamFs) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return nil, remotefs.ErrUnsupportedFeature
}

// Scenario 7: a backend whose Open always reports UnsupportedFeature
// still serves a correct read through the temp-file fallback.
func TestScenario_ReadFallbackOnUnsupportedOpen(t *testing.T) {
	ctx := context.Background()
	d := driver.New(noStreamFs{memory.New()}, driver.Options{}, nil)

	create := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "a", Mode: fs.FileMode(0o644), Flags: 0o2, OpContext: opCtx(0, 0)}
	require.NoError(t, d.CreateFile(ctx, create))
	write := &fuseops.WriteFileOp{Inode: create.Entry.Child, Handle: create.Handle, Offset: 0, Data: []byte("0123456789"), OpContext: opCtx(0, 0)}
	require.NoError(t, d.WriteFile(ctx, write))

	read := &fuseops.ReadFileOp{Inode: create.Entry.Child, Handle: create.Handle, Offset: 4, Size: 3, OpContext: opCtx(0, 0)}
	require.NoError(t, d.ReadFile(ctx, read))
	require.Equal(t, "456", string(read.Data))
}

// Invariant 4: handle table isolates pids and detects release.
func TestInvariant_HandleLifecycle(t *testing.T) {
	d, ctx := newDriver(t)

	create := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "a", Mode: fs.FileMode(0o644), Flags: 0, OpContext: fuseops.OpContext{Pid: 42}}
	require.NoError(t, d.CreateFile(ctx, create))

	readOtherPid := &fuseops.ReadFileOp{Inode: create.Entry.Child, Handle: create.Handle, Offset: 0, Size: 1, OpContext: fuseops.OpContext{Pid: 43}}
	require.Error(t, d.ReadFile(ctx, readOtherPid))

	release := &fuseops.ReleaseFileHandleOp{Handle: create.Handle, OpContext: fuseops.OpContext{Pid: 42}}
	require.NoError(t, d.ReleaseFileHandle(ctx, release))

	readAfterRelease := &fuseops.ReadFileOp{Inode: create.Entry.Child, Handle: create.Handle, Offset: 0, Size: 1, OpContext: fuseops.OpContext{Pid: 42}}
	require.Error(t, d.ReadFile(ctx, readAfterRelease))
}
