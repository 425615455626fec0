// Package inodedb implements the stable path <-> inode mapping the driver
// needs to satisfy the kernel's requirement for 64-bit inode identifiers
// over a backend that addresses by path.
//
// Modeled on the inode bookkeeping in gcsfuse's legacy fs.fileSystem
// (mintInode / unlockAndDecrementLookupCount), generalized from a
// per-inode struct map to the flat inode->path model this driver's
// RemoteFs backend calls for.
package inodedb

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// RootID is the reserved inode number for the mount's root path.
const RootID uint64 = 1

const rootPath = "/"

type entry struct {
	path       string
	lookupCount uint64
}

// DB is the bidirectional inode <-> path map plus per-inode lookup
// counts. The zero value is not usable; use New.
type DB struct {
	mu      sync.Mutex
	entries map[uint64]*entry
}

// New returns a DB with the root path pre-registered at inode 1.
func New() *DB {
	db := &DB{entries: make(map[uint64]*entry)}
	db.entries[RootID] = &entry{path: rootPath, lookupCount: 1}
	return db
}

// Hash computes the stable inode id for path. The root path always maps
// to RootID; every other path is hashed with a fast, stable 64-bit hash
// (xxhash stands in for the reference SeaHash — both are non-cryptographic,
// seeded, stable across runs). Hash(p) is pure: it never touches the DB.
func Hash(path string) uint64 {
	if path == rootPath {
		return RootID
	}
	h := xxhash.Sum64String(path)
	if h == RootID {
		// Vanishingly unlikely, but root is reserved; perturb deterministically.
		h = xxhash.Sum64String(path + "\x00")
	}
	return h
}

// Put registers path under inode i, incrementing its lookup count if the
// entry already exists or creating it with a lookup count of 1 otherwise.
// Re-mapping an existing inode to a different path is a programming error
// (impossible given a pure hash) and panics rather than silently
// corrupting the map.
func (db *DB) Put(i uint64, path string) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if e, ok := db.entries[i]; ok {
		if e.path != path {
			panic("inodedb: inode remapped to a different path")
		}
		e.lookupCount++
		return
	}
	db.entries[i] = &entry{path: path, lookupCount: 1}
}

// Get returns the path registered for i, if any.
func (db *DB) Get(i uint64) (string, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()

	e, ok := db.entries[i]
	if !ok {
		return "", false
	}
	return e.path, true
}

// Has reports whether i is currently registered.
func (db *DB) Has(i uint64) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, ok := db.entries[i]
	return ok
}

// Forget decrements i's lookup count by n, removing the entry once it
// reaches zero. Root is never removed. Forgetting an unknown inode is
// silent.
func (db *DB) Forget(i uint64, n uint64) {
	db.mu.Lock()
	defer db.mu.Unlock()

	e, ok := db.entries[i]
	if !ok {
		return
	}
	if i == RootID {
		return
	}
	if n >= e.lookupCount {
		delete(db.entries, i)
		return
	}
	e.lookupCount -= n
}

// Rename updates the DB so inode i now resolves to newPath, registering
// it with a lookup count of 1 if it is absent. The driver's rename
// handler calls it with the destination path's inode once the backend
// move succeeds; the source path's entry is left in place, not eagerly
// removed — that's left to Forget.
func (db *DB) Rename(i uint64, newPath string) {
	db.mu.Lock()
	defer db.mu.Unlock()

	e, ok := db.entries[i]
	if !ok {
		db.entries[i] = &entry{path: newPath, lookupCount: 1}
		return
	}
	e.path = newPath
}
