// Package memfs implements a minimal in-memory file system, the concrete
// collaborator behind the kernel package's FileSystem/File interfaces
// (spec §1 treats the file system as opaque; this is the host-side stand-in
// the devpts/ttydev device packages in the rest of the pack model as
// registered, internally-locked collaborators of their own, each guarding
// its own state independently of any lock the kernel above it might hold).
package memfs

import (
	"fmt"
	"sync"

	"github.com/pintos-go/pintosim/pkg/sentry/kernel"
)

// FS is an in-memory, flat-namespace file system. It is safe for
// concurrent use: every entry is protected by its own mutex for data, and
// the directory map by fs.mu, independent of the kernel's own global
// file-system lock (the kernel's syscall handlers call in holding that lock,
// while the loader and process teardown call in without it; this inner lock
// exists only to protect FS's own bookkeeping, mirroring how a real file
// system's internal locks are unrelated to a caller's).
type FS struct {
	mu      sync.Mutex
	entries map[string]*inode
}

type inode struct {
	mu   sync.Mutex
	data []byte
}

// New returns an empty file system.
func New() *FS {
	return &FS{entries: make(map[string]*inode)}
}

// Seed creates a file with the given contents before any process starts,
// for use by the CLI's batch-launch config to pre-populate the disk image
// a run describes.
func (fs *FS) Seed(name string, data []byte) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	fs.entries[name] = &inode{data: cp}
}

// Create implements kernel.FileSystem. It fails if name already exists,
// matching filesys_create's refusal to overwrite.
func (fs *FS) Create(name string, initialSize uint32) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.entries[name]; ok {
		return false, nil
	}
	fs.entries[name] = &inode{data: make([]byte, initialSize)}
	return true, nil
}

// Remove implements kernel.FileSystem. It drops the name only: handles
// already open on the file keep reading and writing its data, and a later
// Open of the name fails.
func (fs *FS) Remove(name string) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.entries[name]; !ok {
		return false, nil
	}
	delete(fs.entries, name)
	return true, nil
}

// Open implements kernel.FileSystem.
func (fs *FS) Open(name string) (kernel.File, error) {
	fs.mu.Lock()
	ino, ok := fs.entries[name]
	fs.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("memfs: open %q: no such file", name)
	}
	return &handle{ino: ino}, nil
}

// handle is a per-open-call File, with its own position and deny-write
// state, all sharing the one underlying inode's data and lock.
type handle struct {
	ino       *inode
	pos       int64
	denyWrite bool
}

func (h *handle) ReadAt(p []byte, off int64) (int, error) {
	h.ino.mu.Lock()
	defer h.ino.mu.Unlock()
	if off >= int64(len(h.ino.data)) {
		return 0, nil
	}
	n := copy(p, h.ino.data[off:])
	return n, nil
}

func (h *handle) WriteAt(p []byte, off int64) (int, error) {
	h.ino.mu.Lock()
	defer h.ino.mu.Unlock()
	if h.denyWrite {
		return 0, fmt.Errorf("memfs: write denied: executable is open for execution")
	}
	end := off + int64(len(p))
	if end > int64(len(h.ino.data)) {
		grown := make([]byte, end)
		copy(grown, h.ino.data)
		h.ino.data = grown
	}
	n := copy(h.ino.data[off:end], p)
	return n, nil
}

func (h *handle) Seek(pos int64) error {
	h.pos = pos
	return nil
}

func (h *handle) Tell() int64 { return h.pos }

func (h *handle) Length() int64 {
	h.ino.mu.Lock()
	defer h.ino.mu.Unlock()
	return int64(len(h.ino.data))
}

func (h *handle) Close() error { return nil }

func (h *handle) DenyWrite() { h.denyWrite = true }
