// Package kernel implements the five cooperating components of the
// user-process subsystem: the Process Launcher, Process Bootstrap,
// Executable Loader, Wait-Status Registry, and System-Call Dispatcher
// (spec §2). It treats the thread scheduler, the physical frame
// allocator / page tables, the file system, and the console/shutdown
// devices as opaque collaborators (spec §1): the file system and devices
// are injected into a Kernel value, goroutines stand in for the scheduler,
// and package usermem stands in for the frame allocator and page tables.
package kernel

import (
	"sync"
	"sync/atomic"
)

// UserProgram is the "compiled" behavior of a loaded executable. pintosim
// cannot execute real machine code, so the Executable Loader's faithfully
// validated and mapped ELF segments are paired with a UserProgram looked
// up by program name; the program reads its argc/argv off the constructed
// stack through Task and issues syscalls through Task.Syscall, exactly the
// way compiled code would via the trap ABI in spec §6. See DESIGN.md for
// why this is the honest simulation boundary rather than a shortcut.
type UserProgram func(t *Task)

// Kernel owns the collaborators and the registry of loadable programs.
type Kernel struct {
	FS       FileSystem
	Console  Console
	Shutdown ShutdownDevice

	// fsLock is the single global file-system lock spec §4.5 and §5
	// require around every handler that touches the file system.
	fsLock sync.Mutex

	maxFD int

	mu        sync.Mutex
	nextTID   int32
	processes map[ThreadID]*Process
	initEdges []*WaitStatus

	programsMu sync.RWMutex
	programs   map[string]UserProgram
}

// Option configures a new Kernel.
type Option func(*Kernel)

// WithMaxFD overrides the per-process descriptor cap (default
// DefaultMaxFD).
func WithMaxFD(n int) Option {
	return func(k *Kernel) { k.maxFD = n }
}

// New constructs a Kernel around its collaborators.
func New(fs FileSystem, console Console, shutdown ShutdownDevice, opts ...Option) *Kernel {
	k := &Kernel{
		FS:        fs,
		Console:   console,
		Shutdown:  shutdown,
		maxFD:     DefaultMaxFD,
		processes: make(map[ThreadID]*Process),
		programs:  make(map[string]UserProgram),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// RegisterProgram makes a UserProgram loadable under the given name. The
// Executable Loader still requires a real, valid ELF32 file of that name to
// exist in the file system collaborator; RegisterProgram only supplies the
// behavior that runs once the loader hands control to user mode.
func (k *Kernel) RegisterProgram(name string, prog UserProgram) {
	k.programsMu.Lock()
	defer k.programsMu.Unlock()
	k.programs[name] = prog
}

func (k *Kernel) lookupProgram(name string) (UserProgram, bool) {
	k.programsMu.RLock()
	defer k.programsMu.RUnlock()
	p, ok := k.programs[name]
	return p, ok
}

func (k *Kernel) allocateTID() ThreadID {
	return ThreadID(atomic.AddInt32(&k.nextTID, 1))
}

func (k *Kernel) registerProcess(p *Process) {
	k.mu.Lock()
	k.processes[p.id] = p
	k.mu.Unlock()
}

func (k *Kernel) unregisterProcess(id ThreadID) {
	k.mu.Lock()
	delete(k.processes, id)
	k.mu.Unlock()
}

func (k *Kernel) lockFS()   { k.fsLock.Lock() }
func (k *Kernel) unlockFS() { k.fsLock.Unlock() }
