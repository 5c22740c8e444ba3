// Package kernelerror defines the sentinel errors named by the error
// handling design (spec §7): the handful of outcomes that are reported as
// a distinguished value rather than propagated from a collaborator.
package kernelerror

import "errors"

var (
	// ErrLoadFailed is returned by execute when the child's Executable
	// Loader could not load the requested program (bad ELF header, bad
	// segment, missing file, or an allocation failure during segment
	// install).
	ErrLoadFailed = errors.New("load failed")

	// ErrNoSuchChild is returned by Wait when the given child id is not in
	// the caller's child-edges set.
	ErrNoSuchChild = errors.New("no such child")

	// ErrDoubleWait is returned by Wait when the target's wait-status
	// record has already been consumed by a prior successful Wait.
	ErrDoubleWait = errors.New("wait status already consumed")

	// ErrDescriptorExhausted names the outcome of an OPEN when the process
	// is already at its MAX_FD cap. The OPEN handler reports that case to
	// user code as -1 and does not return this error.
	ErrDescriptorExhausted = errors.New("descriptor table exhausted")

	// ErrBadDescriptor names the outcome of a file call against an id that
	// does not name an active descriptor. The file handlers report that
	// case to user code as -1 and do not return this error.
	ErrBadDescriptor = errors.New("bad descriptor")

	// ErrInvalidUserPointer names the outcome of a trap frame or argument
	// that referenced an unmapped or out-of-range address. The dispatcher
	// force-exits such a process directly and does not return this error.
	ErrInvalidUserPointer = errors.New("invalid user pointer")
)
