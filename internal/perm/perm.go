// Package perm implements the POSIX permission-check routine layered on
// top of backend-reported mode/uid/gid, plus the mount-option overrides
// that apply during the check.
//
// Grounded on internal/perms's uid/gid helper shape (MyUserAndGroup) and
// on original_source/remotefs-fuse/src/driver/unix.rs's check_access /
// check_inode_access bit arithmetic, which this package translates
// directly rather than transliterates.
package perm

// Mask is a bitset of requested access modes.
type Mask uint8

const (
	FOK Mask = 0
	XOK Mask = 1 << iota
	WOK
	ROK
)

// Has reports whether m requests bit.
func (m Mask) Has(bit Mask) bool {
	return m&bit != 0
}

const defaultMode uint32 = 0o755

// Options carries the mount-option overrides (§3) that apply during a
// permission check: Uid/Gid substitute for the file's reported owner,
// DefaultMode substitutes for a missing mode.
type Options struct {
	Uid         *uint32
	Gid         *uint32
	DefaultMode *uint32
}

func (o Options) defaultMode() uint32 {
	if o.DefaultMode != nil {
		return *o.DefaultMode
	}
	return defaultMode
}

// File is the subset of remote attributes the check needs.
type File struct {
	Mode *uint32
	Uid  uint32
	Gid  uint32
}

// Check decides whether (uid, gid) may perform the access requested by
// mask against f, under the given mount option overrides.
//
// F_OK alone is always granted (existence is already proved by the
// caller having resolved the inode). uid 0 is the root short-circuit:
// read and write are always granted; execute is granted iff any execute
// bit anywhere (owner/group/other) is set. Otherwise the owner/group/
// other triad is selected by comparing uid/gid (after Uid/Gid override)
// against the file's owner, and every requested bit must be present in
// that triad.
func Check(uid, gid uint32, f File, mask Mask, opts Options) bool {
	if mask == FOK {
		return true
	}

	mode := f.Mode
	effectiveMode := opts.defaultMode()
	if mode != nil {
		effectiveMode = *mode
	}

	if uid == 0 {
		if mask.Has(ROK) || mask.Has(WOK) {
			if mask.Has(XOK) && effectiveMode&0o111 == 0 {
				return false
			}
			return true
		}
		return effectiveMode&0o111 != 0
	}

	fileUid := f.Uid
	if opts.Uid != nil {
		fileUid = *opts.Uid
	}
	fileGid := f.Gid
	if opts.Gid != nil {
		fileGid = *opts.Gid
	}

	var triad uint32
	switch {
	case uid == fileUid:
		triad = (effectiveMode >> 6) & 0o7
	case gid == fileGid:
		triad = (effectiveMode >> 3) & 0o7
	default:
		triad = effectiveMode & 0o7
	}

	want := maskToBits(mask)
	return triad&want == want
}

func maskToBits(m Mask) uint32 {
	var bits uint32
	if m.Has(ROK) {
		bits |= 0o4
	}
	if m.Has(WOK) {
		bits |= 0o2
	}
	if m.Has(XOK) {
		bits |= 0o1
	}
	return bits
}
