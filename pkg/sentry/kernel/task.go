package kernel

import (
	"github.com/pintos-go/pintosim/pkg/log"
)

// Task is the interface a running UserProgram uses to read its argument
// stack and issue system calls. It stands in for the CPU register file and
// trap mechanism a real processor provides; see UserProgram's doc
// for why pintosim models user-mode execution this way.
type Task struct {
	k     *Kernel
	proc  *Process
	entry uint32
	esp   uint32

	// trapWindow is the fixed trapWindowSize-byte region at the top of the
	// stack page, above the argument stack, that Syscall uses to build the
	// word array a real `int $0x30`
	// instruction would leave at the trapped esp (spec §6's "ABI").
	trapWindow uint32
}

// taskTerminated unwinds runTask's goroutine once the task has exited,
// standing in for thread_exit()'s non-return.
type taskTerminated struct{}

// Esp returns the task's current user stack pointer, as left by the
// Process Bootstrap's simulated interrupt return.
func (t *Task) Esp() uint32 { return t.esp }

// Argc reads argc from the stack frame built by spec §4.2.1 (esp+4).
func (t *Task) Argc() (uint32, bool) {
	return t.proc.addrSpace.ReadWord(t.esp + 4)
}

// Argv reads the argv pointer from the stack frame (esp+8).
func (t *Task) Argv() (uint32, bool) {
	return t.proc.addrSpace.ReadWord(t.esp + 8)
}

// ReadWord reads a 4-byte little-endian word out of the task's address
// space.
func (t *Task) ReadWord(addr uint32) (uint32, bool) {
	return t.proc.addrSpace.ReadWord(addr)
}

// ReadCString reads a NUL-terminated string out of the task's address
// space.
func (t *Task) ReadCString(addr uint32, max int) (string, bool) {
	return t.proc.addrSpace.ReadCString(addr, max)
}

// ReadBytes reads n bytes out of the task's address space.
func (t *Task) ReadBytes(addr uint32, n int) ([]byte, bool) {
	return t.proc.addrSpace.ReadBytes(addr, n)
}

// WriteBytes writes data into the task's address space.
func (t *Task) WriteBytes(addr uint32, data []byte) bool {
	return t.proc.addrSpace.WriteBytes(addr, data)
}

// Syscall traps into the System-Call Dispatcher (spec §4.5) with call
// number num and the given argument words, exactly as a user-mode `int
// $0x30` would after pushing them onto the stack. If the dispatcher force-
// exits the process (an invalid pointer anywhere in the call), Syscall
// unwinds the calling goroutine via panic(taskTerminated{}), mirroring
// thread_exit()'s non-return.
func (t *Task) Syscall(num uint32, args ...uint32) uint32 {
	words := make([]uint32, 0, 1+len(args))
	words = append(words, num)
	words = append(words, args...)
	base := t.trapWindow
	for i, w := range words {
		if !t.proc.addrSpace.WriteWord(base+uint32(4*i), w) {
			panic("pintosim: trap window too small for syscall arguments")
		}
	}
	eax, terminate := t.k.dispatch(t.proc, base)
	if terminate {
		panic(taskTerminated{})
	}
	return eax
}

// Exit is sugar for Syscall(SysExit, code); it never returns.
func (t *Task) Exit(code uint32) {
	t.Syscall(SysExit, code)
	panic(taskTerminated{})
}

// runTask drives a UserProgram to completion, performing the simulated
// interrupt return (spec §4.2 step 6) by simply calling the registered
// program with a Task bound to entry/esp, and catching the unwind that
// Task.Exit or a force-exit triggers.
func (k *Kernel) runTask(proc *Process, program UserProgram, entry, esp uint32) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(taskTerminated); ok {
				return
			}
			log.Warningf("task %d (%s) panicked: %v", proc.id, proc.name, r)
		}
	}()

	t := &Task{
		k:          k,
		proc:       proc,
		entry:      entry,
		esp:        esp,
		trapWindow: trapWindowBase,
	}
	program(t)
	// A UserProgram that returns without calling Exit falls through to an
	// implicit exit(0), matching a real a.out's crt0 calling exit after
	// main returns.
	t.Exit(0)
}
