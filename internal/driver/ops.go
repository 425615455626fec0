package driver

import (
	"context"
	"io/fs"
	"strings"
	"syscall"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/remotefs-rs/remotefs-fuse-go/internal/inodedb"
	"github.com/remotefs-rs/remotefs-fuse-go/internal/ioadapter"
	"github.com/remotefs-rs/remotefs-fuse-go/internal/perm"
	"github.com/remotefs-rs/remotefs-fuse-go/internal/remotefs"
)

var _ fuseutil.FileSystem = (*Driver)(nil)

// Init runs the backend connect call; per spec this is the only
// operation allowed to abort the mount.
func (d *Driver) Init(ctx context.Context, op *fuseops.InitOp) error {
	if err := d.backend.Connect(ctx); err != nil {
		d.log.Error("backend connect failed", "err", err)
		return syscall.EIO
	}
	return nil
}

// Destroy disconnects the backend. Errors are logged, never returned —
// the modern fuseutil.FileSystem interface gives Destroy no way to
// report one anyway.
func (d *Driver) Destroy() {
	if err := d.backend.Disconnect(context.Background()); err != nil {
		d.log.Error("backend disconnect failed", "err", err)
	}
}

func (d *Driver) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	path, err := d.resolve(op.Inode)
	if err != nil {
		return d.errno("statfs", err)
	}

	var files, size uint64
	var walk func(p string) error
	walk = func(p string) error {
		entries, err := d.backend.ListDir(ctx, p)
		if err != nil {
			return err
		}
		for _, e := range entries {
			files++
			size += e.Size
			if e.Type == remotefs.TypeDir {
				if err := walk(e.Path); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(path); err != nil {
		return d.errno("statfs", err)
	}

	const blockSize = 512
	blocks := size / blockSize
	op.BlockSize = blockSize
	op.Blocks = blocks
	op.BlocksFree = ^uint64(0) - blocks
	op.BlocksAvailable = op.BlocksFree
	op.IoSize = blockSize
	op.Inodes = files
	op.InodesFree = 0
	return nil
}

func (d *Driver) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	parent, err := d.resolve(op.Parent)
	if err != nil {
		return d.errno("lookup", err)
	}
	path := childPath(parent, op.Name)

	f, err := d.backend.Stat(ctx, path)
	if err != nil {
		return d.errno("lookup", err)
	}
	if !d.Access(ctx, uid(op.OpContext), gid(op.OpContext), f, perm.FOK) {
		return syscall.EACCES
	}

	i := d.registerChild(path)
	op.Entry = childEntry(i, f)
	return nil
}

func (d *Driver) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	path, err := d.resolve(op.Inode)
	if err != nil {
		return d.errno("getattr", err)
	}
	f, err := d.backend.Stat(ctx, path)
	if err != nil {
		return d.errno("getattr", err)
	}
	op.Attributes = toAttrs(f)
	return nil
}

func (d *Driver) SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) error {
	path, err := d.resolve(op.Inode)
	if err != nil {
		return d.errno("setattr", err)
	}
	f, err := d.backend.Stat(ctx, path)
	if err != nil {
		return d.errno("setattr", err)
	}
	if !d.Access(ctx, uid(op.OpContext), gid(op.OpContext), f, perm.WOK) {
		return syscall.EACCES
	}

	md := remotefs.Metadata{}
	if op.Size != nil {
		md.Size = op.Size
	}
	if op.Mode != nil {
		m := uint32(*op.Mode)
		md.Mode = &m
	}
	if op.Atime != nil {
		md.Atime = op.Atime
	}
	if op.Mtime != nil {
		md.Mtime = op.Mtime
	}

	if err := d.backend.Setstat(ctx, path, md); err != nil {
		return d.errno("setattr", err)
	}

	f, err = d.backend.Stat(ctx, path)
	if err != nil {
		return d.errno("setattr", err)
	}
	op.Attributes = toAttrs(f)
	return nil
}

func (d *Driver) ForgetInode(ctx context.Context, op *fuseops.ForgetInodeOp) error {
	d.mu.Lock()
	d.nodes.Forget(uint64(op.Inode), uint64(op.N))
	d.mu.Unlock()
	return nil
}

func (d *Driver) BatchForget(ctx context.Context, op *fuseops.BatchForgetOp) error {
	d.mu.Lock()
	for _, e := range op.Entries {
		d.nodes.Forget(uint64(e.Inode), uint64(e.N))
	}
	d.mu.Unlock()
	return nil
}

func (d *Driver) ReadSymlink(ctx context.Context, op *fuseops.ReadSymlinkOp) error {
	path, err := d.resolve(op.Inode)
	if err != nil {
		return d.errno("readlink", err)
	}
	f, err := d.backend.Stat(ctx, path)
	if err != nil {
		return d.errno("readlink", err)
	}
	op.Target = f.Symlink
	return nil
}

// parseAccessMode replicates spec §4.5's open/create flag validation:
// O_RDONLY|O_TRUNC is rejected outright, more than one access-mode bit
// set is EINVAL, and FMODE_EXEC with O_RDONLY requires X_OK rather than
// R_OK.
func parseAccessMode(flags uint32) (read, write bool, mask perm.Mask, err error) {
	const (
		oAccMode = 0o3
		oRDONLY  = 0
		oWRONLY  = 0o1
		oRDWR    = 0o2
		oTRUNC   = 0o1000
		fmodeExec = 0x20
	)

	acc := flags & oAccMode
	if acc == oRDONLY && flags&oTRUNC != 0 {
		return false, false, 0, errPermission
	}
	if acc == oAccMode {
		return false, false, 0, errInvalid
	}

	switch acc {
	case oRDONLY:
		read = true
		if flags&fmodeExec != 0 {
			mask = perm.XOK
		} else {
			mask = perm.ROK
		}
	case oWRONLY:
		write = true
		mask = perm.WOK
	case oRDWR:
		read, write = true, true
		mask = perm.ROK | perm.WOK
	default:
		return false, false, 0, errInvalid
	}
	return read, write, mask, nil
}

func (d *Driver) mknodOrMkdir(ctx context.Context, parentInode fuseops.InodeID, uid_, gid_ uint32, name string, mode fs.FileMode) (string, remotefs.File, error) {
	parent, err := d.resolve(parentInode)
	if err != nil {
		return "", remotefs.File{}, err
	}
	pf, err := d.backend.Stat(ctx, parent)
	if err != nil {
		return "", remotefs.File{}, err
	}
	if !d.Access(ctx, uid_, gid_, pf, perm.WOK) {
		return "", remotefs.File{}, errPermission
	}

	path := childPath(parent, name)
	m := uint32(mode.Perm())
	switch {
	case mode.IsDir():
		if err := d.backend.CreateDir(ctx, path, m); err != nil {
			return "", remotefs.File{}, err
		}
	case mode&fs.ModeType == 0:
		if err := d.backend.CreateFile(ctx, path, remotefs.Metadata{Mode: &m}, strings.NewReader("")); err != nil {
			return "", remotefs.File{}, err
		}
	default:
		return "", remotefs.File{}, errNotSupported
	}

	f, err := d.backend.Stat(ctx, path)
	if err != nil {
		return "", remotefs.File{}, err
	}
	return path, f, nil
}

func (d *Driver) MkDir(ctx context.Context, op *fuseops.MkDirOp) error {
	path, f, err := d.mknodOrMkdir(ctx, op.Parent, uid(op.OpContext), gid(op.OpContext), op.Name, op.Mode|fs.ModeDir)
	if err != nil {
		return d.errno("mkdir", err)
	}
	i := d.registerChild(path)
	op.Entry = childEntry(i, f)
	return nil
}

func (d *Driver) MkNode(ctx context.Context, op *fuseops.MkNodeOp) error {
	path, f, err := d.mknodOrMkdir(ctx, op.Parent, uid(op.OpContext), gid(op.OpContext), op.Name, op.Mode)
	if err != nil {
		return d.errno("mknod", err)
	}
	i := d.registerChild(path)
	op.Entry = childEntry(i, f)
	return nil
}

// CreateFile deliberately skips the parent W_OK check that MkNode/MkDir
// perform — this is the asymmetry preserved from
// original_source/unix.rs's create() vs mknod(), see DESIGN.md.
func (d *Driver) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	parent, err := d.resolve(op.Parent)
	if err != nil {
		return d.errno("create", err)
	}
	read, write, _, err := parseAccessMode(op.Flags)
	if err != nil {
		return d.errno("create", err)
	}

	path := childPath(parent, op.Name)
	m := uint32(op.Mode.Perm())
	if err := d.backend.CreateFile(ctx, path, remotefs.Metadata{Mode: &m}, strings.NewReader("")); err != nil {
		return d.errno("create", err)
	}
	f, err := d.backend.Stat(ctx, path)
	if err != nil {
		return d.errno("create", err)
	}

	i := d.registerChild(path)
	d.mu.Lock()
	fh := d.files.Open(op.OpContext.Pid, i, read, write)
	d.mu.Unlock()

	op.Entry = childEntry(i, f)
	op.Handle = fuseops.HandleID(fh)
	return nil
}

func (d *Driver) CreateLink(ctx context.Context, op *fuseops.CreateLinkOp) error {
	return syscall.ENOSYS
}

func (d *Driver) CreateSymlink(ctx context.Context, op *fuseops.CreateSymlinkOp) error {
	parent, err := d.resolve(op.Parent)
	if err != nil {
		return d.errno("symlink", err)
	}
	pf, err := d.backend.Stat(ctx, parent)
	if err != nil {
		return d.errno("symlink", err)
	}
	if !d.Access(ctx, uid(op.OpContext), gid(op.OpContext), pf, perm.WOK) {
		return syscall.EACCES
	}

	path := childPath(parent, op.Name)
	if err := d.backend.Symlink(ctx, path, op.Target); err != nil {
		return d.errno("symlink", err)
	}
	f, err := d.backend.Stat(ctx, path)
	if err != nil {
		return d.errno("symlink", err)
	}
	i := d.registerChild(path)
	op.Entry = childEntry(i, f)
	return nil
}

func (d *Driver) Rename(ctx context.Context, op *fuseops.RenameOp) error {
	oldParent, err := d.resolve(op.OldParent)
	if err != nil {
		return d.errno("rename", err)
	}
	newParent, err := d.resolve(op.NewParent)
	if err != nil {
		return d.errno("rename", err)
	}

	opf, err := d.backend.Stat(ctx, oldParent)
	if err != nil {
		return d.errno("rename", err)
	}
	npf, err := d.backend.Stat(ctx, newParent)
	if err != nil {
		return d.errno("rename", err)
	}
	u, g := uid(op.OpContext), gid(op.OpContext)
	if !d.Access(ctx, u, g, opf, perm.WOK) || !d.Access(ctx, u, g, npf, perm.WOK) {
		return syscall.EACCES
	}

	src := childPath(oldParent, op.OldName)
	dest := childPath(newParent, op.NewName)
	if err := d.backend.Move(ctx, src, dest); err != nil {
		return d.errno("rename", err)
	}

	d.mu.Lock()
	d.nodes.Rename(inodedb.Hash(dest), dest)
	d.mu.Unlock()
	return nil
}

func (d *Driver) RmDir(ctx context.Context, op *fuseops.RmDirOp) error {
	return d.unlinkLike(ctx, op.Parent, uid(op.OpContext), gid(op.OpContext), op.Name, d.backend.RemoveDir, "rmdir")
}

func (d *Driver) Unlink(ctx context.Context, op *fuseops.UnlinkOp) error {
	return d.unlinkLike(ctx, op.Parent, uid(op.OpContext), gid(op.OpContext), op.Name, d.backend.RemoveFile, "unlink")
}

func (d *Driver) unlinkLike(ctx context.Context, parentInode fuseops.InodeID, u, g uint32, name string, remove func(context.Context, string) error, opName string) error {
	parent, err := d.resolve(parentInode)
	if err != nil {
		return d.errno(opName, err)
	}
	pf, err := d.backend.Stat(ctx, parent)
	if err != nil {
		return d.errno(opName, err)
	}
	if !d.Access(ctx, u, g, pf, perm.WOK) {
		return syscall.EACCES
	}
	if err := remove(ctx, childPath(parent, name)); err != nil {
		return d.errno(opName, err)
	}
	return nil
}

func (d *Driver) openHandle(ctx context.Context, inode fuseops.InodeID, opctx fuseops.OpContext, flags uint32, needExec bool) (uint64, error) {
	path, err := d.resolve(inode)
	if err != nil {
		return 0, err
	}
	f, err := d.backend.Stat(ctx, path)
	if err != nil {
		return 0, err
	}

	read, write, mask, err := parseAccessMode(flags)
	if err != nil {
		return 0, err
	}
	if !d.Access(ctx, uid(opctx), gid(opctx), f, mask) {
		return 0, errPermission
	}

	d.mu.Lock()
	fh := d.files.Open(opctx.Pid, uint64(inode), read, write)
	d.mu.Unlock()
	return fh, nil
}

func (d *Driver) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	fh, err := d.openHandle(ctx, op.Inode, op.OpContext, op.Flags, true)
	if err != nil {
		return d.errno("open", err)
	}
	op.Handle = fuseops.HandleID(fh)
	return nil
}

func (d *Driver) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	path, err := d.resolve(op.Inode)
	if err != nil {
		return d.errno("opendir", err)
	}
	f, err := d.backend.Stat(ctx, path)
	if err != nil {
		return d.errno("opendir", err)
	}
	read, write, _, err := parseAccessMode(op.Flags)
	if err != nil {
		return d.errno("opendir", err)
	}
	if !d.Access(ctx, uid(op.OpContext), gid(op.OpContext), f, perm.ROK) {
		return syscall.EACCES
	}

	d.mu.Lock()
	fh := d.files.Open(op.OpContext.Pid, uint64(op.Inode), read, write)
	d.mu.Unlock()
	op.Handle = fuseops.HandleID(fh)
	return nil
}

func (d *Driver) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	if op.Offset < 0 {
		return syscall.EINVAL
	}
	rec, ok := d.files.Get(op.OpContext.Pid, uint64(op.Handle))
	if !ok || !rec.Read {
		return syscall.ENOENT
	}
	path, err := d.resolve(op.Inode)
	if err != nil {
		return d.errno("read", err)
	}
	f, err := d.backend.Stat(ctx, path)
	if err != nil {
		return d.errno("read", err)
	}

	readSize := op.Size
	remaining := int64(f.Size) - op.Offset
	if remaining < 0 {
		remaining = 0
	}
	if int64(readSize) > remaining {
		readSize = int(remaining)
	}

	buf := make([]byte, readSize)
	n, err := ioadapter.Read(ctx, d.backend, path, op.Offset, buf)
	if err != nil {
		return d.errno("read", err)
	}
	op.Data = buf[:n]
	op.BytesRead = n
	return nil
}

func (d *Driver) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	if op.Offset < 0 {
		return syscall.EINVAL
	}
	rec, ok := d.files.Get(op.OpContext.Pid, uint64(op.Handle))
	if !ok || !rec.Write {
		return syscall.ENOENT
	}
	path, err := d.resolve(op.Inode)
	if err != nil {
		return d.errno("write", err)
	}

	n, err := ioadapter.Write(ctx, d.backend, path, op.Offset, op.Data, remotefs.Metadata{})
	if err != nil {
		return d.errno("write", err)
	}
	_ = n
	return nil
}

func (d *Driver) FlushFile(ctx context.Context, op *fuseops.FlushFileOp) error {
	if _, ok := d.files.Get(op.OpContext.Pid, uint64(op.Handle)); !ok {
		return syscall.ENOENT
	}
	return nil
}

func (d *Driver) SyncFile(ctx context.Context, op *fuseops.SyncFileOp) error {
	return nil
}

func (d *Driver) SyncFS(ctx context.Context, op *fuseops.SyncFSOp) error {
	return nil
}

func (d *Driver) ReleaseFileHandle(ctx context.Context, op *fuseops.ReleaseFileHandleOp) error {
	d.mu.Lock()
	closed := d.files.Close(op.OpContext.Pid, uint64(op.Handle))
	d.mu.Unlock()
	if !closed {
		return syscall.ENOENT
	}
	return nil
}

func (d *Driver) ReleaseDirHandle(ctx context.Context, op *fuseops.ReleaseDirHandleOp) error {
	d.mu.Lock()
	closed := d.files.Close(op.OpContext.Pid, uint64(op.Handle))
	d.mu.Unlock()
	if !closed {
		return syscall.ENOENT
	}
	return nil
}

func (d *Driver) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	rec, ok := d.files.Get(op.OpContext.Pid, uint64(op.Handle))
	if !ok || !rec.Read {
		return syscall.ENOENT
	}
	path, err := d.resolve(op.Inode)
	if err != nil {
		return d.errno("readdir", err)
	}
	entries, err := d.backend.ListDir(ctx, path)
	if err != nil {
		return d.errno("readdir", err)
	}

	for i, e := range entries {
		if i < int(op.Offset) {
			continue
		}
		name := baseName(e.Path)
		if name == "" {
			d.log.Warn("readdir: skipping entry with undecodable name", "path", e.Path)
			continue
		}
		childInode := d.registerChild(e.Path)
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], fuseutil.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  fuseops.InodeID(childInode),
			Name:   name,
			Type:   direntType(e.Type),
		})
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	return nil
}

func baseName(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

func direntType(t remotefs.FileType) fuseutil.DirentType {
	switch t {
	case remotefs.TypeDir:
		return fuseutil.DT_Directory
	case remotefs.TypeSymlink:
		return fuseutil.DT_Link
	default:
		return fuseutil.DT_File
	}
}

func (d *Driver) RmXattr(ctx context.Context, op *fuseops.RemoveXattrOp) error { return syscall.ENOSYS }
func (d *Driver) GetXattr(ctx context.Context, op *fuseops.GetXattrOp) error  { return syscall.ENOSYS }
func (d *Driver) ListXattr(ctx context.Context, op *fuseops.ListXattrOp) error {
	return syscall.ENOSYS
}
func (d *Driver) SetXattr(ctx context.Context, op *fuseops.SetXattrOp) error { return syscall.ENOSYS }
func (d *Driver) Fallocate(ctx context.Context, op *fuseops.FallocateOp) error {
	return syscall.ENOSYS
}

func uid(c fuseops.OpContext) uint32 { return c.Uid }
func gid(c fuseops.OpContext) uint32 { return c.Gid }
