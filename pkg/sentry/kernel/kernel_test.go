package kernel_test

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/pintos-go/pintosim/pkg/elf"
	"github.com/pintos-go/pintosim/pkg/kernelerror"
	"github.com/pintos-go/pintosim/pkg/sentry/fsimpl/memfs"
	"github.com/pintos-go/pintosim/pkg/sentry/kernel"
	"github.com/pintos-go/pintosim/pkg/userprogs"
)

// mustELF returns a minimal synthetic ELF32 binary suitable for seeding a
// program the test registers its own UserProgram for.
func mustELF() []byte { return elf.BuildSimple(nil) }

// bufConsole is a kernel.Console that collects everything written to it and
// never has keyboard input available, enough for every test below.
type bufConsole struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *bufConsole) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *bufConsole) ReadByte() (byte, error) { return 0, io.EOF }

func (c *bufConsole) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

type noopShutdown struct{}

func (noopShutdown) PowerOff() {}

func writeCString(t *kernel.Task, addr uint32, s string) {
	if !t.WriteBytes(addr, append([]byte(s), 0)) {
		panic("writeCString: out of space")
	}
}

// TestExecuteEchoAndWait is spec §8 scenario 1: the child prints its
// arguments and exits 0, the parent's first wait observes that exit code,
// and a second wait on the same child fails.
func TestExecuteEchoAndWait(t *testing.T) {
	fs := memfs.New()
	con := &bufConsole{}
	k := kernel.New(fs, con, noopShutdown{})
	userprogs.Register(k, fs)

	var code1, code2 uint32
	k.RegisterProgram("parent", func(tsk *kernel.Task) {
		writeCString(tsk, kernel.ScratchPageBase, "echo hello world")
		child := tsk.Syscall(kernel.SysExec, kernel.ScratchPageBase)
		code1 = tsk.Syscall(kernel.SysWait, child)
		code2 = tsk.Syscall(kernel.SysWait, child)
	})
	fs.Seed("parent", mustELF())

	tid, err := k.Execute(nil, "parent")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := k.WaitInit(tid); err != nil {
		t.Fatalf("WaitInit: %v", err)
	}

	if code1 != 0 {
		t.Fatalf("first wait: got %d, want 0", code1)
	}
	if int32(code2) != -1 {
		t.Fatalf("second wait: got %d, want -1", int32(code2))
	}
	if got := con.String(); !bytes.Contains([]byte(got), []byte("hello world")) {
		t.Fatalf("console output %q does not contain the echoed arguments", got)
	}
}

// TestExecuteNoSuchProgram is spec §8 scenario 2: executing a nonexistent
// program fails and installs no wait-status edge.
func TestExecuteNoSuchProgram(t *testing.T) {
	fs := memfs.New()
	k := kernel.New(fs, &bufConsole{}, noopShutdown{})

	_, err := k.Execute(nil, "bogus")
	if err == nil {
		t.Fatal("Execute: expected an error for a nonexistent program")
	}
	if !errors.Is(err, kernelerror.ErrLoadFailed) {
		t.Fatalf("Execute: got %v, want an error wrapping ErrLoadFailed", err)
	}
}

// TestBadPointerForcesExit is spec §8 scenario 4: a write through a pointer
// one byte below PHYS_BASE force-exits the process with -1.
func TestBadPointerForcesExit(t *testing.T) {
	fs := memfs.New()
	k := kernel.New(fs, &bufConsole{}, noopShutdown{})
	userprogs.Register(k, fs)

	tid, err := k.Execute(nil, "badptr")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	code, err := k.WaitInit(tid)
	if err != nil {
		t.Fatalf("WaitInit: %v", err)
	}
	if code != -1 {
		t.Fatalf("exit code: got %d, want -1", code)
	}
}

// TestCatReadsSeededFile exercises SysOpen/SysRead/SysClose end to end
// against a real memfs-backed file.
func TestCatReadsSeededFile(t *testing.T) {
	fs := memfs.New()
	con := &bufConsole{}
	k := kernel.New(fs, con, noopShutdown{})
	userprogs.Register(k, fs)
	fs.Seed("greeting.txt", []byte("hi from disk"))

	var code1 uint32
	k.RegisterProgram("parent", func(tsk *kernel.Task) {
		writeCString(tsk, kernel.ScratchPageBase, "cat greeting.txt")
		child := tsk.Syscall(kernel.SysExec, kernel.ScratchPageBase)
		code1 = tsk.Syscall(kernel.SysWait, child)
	})
	fs.Seed("parent", mustELF())

	tid, err := k.Execute(nil, "parent")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := k.WaitInit(tid); err != nil {
		t.Fatalf("WaitInit: %v", err)
	}
	if code1 != 0 {
		t.Fatalf("cat exit code: got %d, want 0", code1)
	}
	if got := con.String(); !bytes.Contains([]byte(got), []byte("hi from disk")) {
		t.Fatalf("console output %q does not contain the file's contents", got)
	}
}

// TestNullSyscall exercises the diagnostic fourteenth call directly.
func TestNullSyscall(t *testing.T) {
	fs := memfs.New()
	k := kernel.New(fs, &bufConsole{}, noopShutdown{})

	var got uint32
	k.RegisterProgram("nuller", func(tsk *kernel.Task) {
		got = tsk.Syscall(kernel.SysNull, 41)
	})
	fs.Seed("nuller", mustELF())

	tid, err := k.Execute(nil, "nuller")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := k.WaitInit(tid); err != nil {
		t.Fatalf("WaitInit: %v", err)
	}
	if got != 42 {
		t.Fatalf("SysNull(41): got %d, want 42", got)
	}
}
