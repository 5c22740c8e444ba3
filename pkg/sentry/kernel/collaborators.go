package kernel

import "io"

// This file defines the collaborators spec §1 declares out of scope: the
// file system and the console/keyboard/shutdown devices. (The thread
// scheduler has no interface here: each process runs on its own goroutine.)
// The core only ever talks to these through the interfaces below; concrete
// host-backed implementations live in
// pkg/sentry/fsimpl/memfs and pkg/sentry/devices/console.

// File is an open file handle, matching the file system collaborator's
// read/write/seek/tell/length/close primitives (spec §1).
type File interface {
	io.ReaderAt
	io.WriterAt
	Seek(pos int64) error
	Tell() int64
	Length() int64
	Close() error
	// DenyWrite puts the file into "deny writes" mode for the lifetime of
	// an active executable, per spec §1 and §4.3.
	DenyWrite()
}

// FileSystem is the file-system collaborator: open/close (via File.Close),
// create/remove, all of which the dispatcher only ever calls while holding
// the global file-system lock (spec §4.5, §5).
type FileSystem interface {
	Open(name string) (File, error)
	Create(name string, initialSize uint32) (bool, error)
	Remove(name string) (bool, error)
}

// Console is the console output / keyboard input collaborator.
type Console interface {
	Write(p []byte) (int, error)
	ReadByte() (byte, error)
}

// ShutdownDevice models the shutdown device invoked by the halt syscall.
type ShutdownDevice interface {
	PowerOff()
}
