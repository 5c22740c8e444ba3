package kernel

import (
	"fmt"

	"github.com/pintos-go/pintosim/pkg/log"
	"github.com/pintos-go/pintosim/pkg/sentry/usermem"
)

// System call numbers (spec §4.5's handler table, §6's ABI).
const (
	SysHalt = uint32(iota)
	SysExit
	SysExec
	SysWait
	SysCreate
	SysRemove
	SysOpen
	SysFilesize
	SysRead
	SysWrite
	SysSeek
	SysTell
	SysClose
	SysNull
)

// argCounts is the number of additional argument words (beyond the call
// number) each call reads from the trap frame.
var argCounts = map[uint32]int{
	SysHalt:     0,
	SysExit:     1,
	SysExec:     1,
	SysWait:     1,
	SysCreate:   2,
	SysRemove:   1,
	SysOpen:     1,
	SysFilesize: 1,
	SysRead:     3,
	SysWrite:    3,
	SysSeek:     2,
	SysTell:     1,
	SysClose:    1,
	SysNull:     1,
}

const (
	stdinFD  = int32(0)
	stdoutFD = int32(1)

	maxCommandLine = 256
	maxFileName    = 256
)

// dispatch implements the System-Call Dispatcher (spec §4.5). esp is the
// address of the trap frame Task.Syscall wrote into the process's trap
// window: esp[0] is the call number, esp[1..] are its arguments. It
// returns the value to leave in the saved eax and whether the process
// should terminate (either the handler was HALT/EXIT, or a pointer
// validation failure force-exited the process).
func (k *Kernel) dispatch(proc *Process, esp uint32) (eax uint32, terminate bool) {
	as := proc.addrSpace

	if !as.ValidWord(esp) {
		return k.forceExit(proc)
	}
	num, _ := as.ReadWord(esp)

	n, ok := argCounts[num]
	if !ok {
		return k.forceExit(proc)
	}
	args := make([]uint32, n+1)
	args[0] = num
	for i := 1; i <= n; i++ {
		addr := esp + uint32(4*i)
		if !as.ValidWord(addr) {
			return k.forceExit(proc)
		}
		w, _ := as.ReadWord(addr)
		args[i] = w
	}

	switch num {
	case SysHalt:
		k.Shutdown.PowerOff()
		return 0, true

	case SysExit:
		code := int32(args[1])
		proc.exitCode = code
		fmt.Fprintf(writer{k.Console}, "%s: exit(%d)\n", proc.name, code)
		return uint32(code), true

	case SysExec:
		return k.sysExec(proc, as, args[1])

	case SysWait:
		return k.sysWait(proc, ThreadID(int32(args[1])))

	case SysCreate:
		return k.sysCreate(proc, as, args[1], args[2])

	case SysRemove:
		return k.sysRemove(proc, as, args[1])

	case SysOpen:
		return k.sysOpen(proc, as, args[1])

	case SysFilesize:
		return k.sysFilesize(proc, int32(args[1]))

	case SysRead:
		return k.sysRead(proc, as, int32(args[1]), args[2], args[3])

	case SysWrite:
		return k.sysWrite(proc, as, int32(args[1]), args[2], args[3])

	case SysSeek:
		return k.sysSeek(proc, int32(args[1]), args[2])

	case SysTell:
		return k.sysTell(proc, int32(args[1]))

	case SysClose:
		return k.sysClose(proc, int32(args[1]))

	case SysNull:
		return args[1] + 1, false

	default:
		return k.forceExit(proc)
	}
}

// forceExit implements spec §4.5 step 4 and §7's InvalidUserPointer action:
// write -1 to eax, print the exit message, record -1 as the exit code, and
// terminate the thread.
func (k *Kernel) forceExit(proc *Process) (uint32, bool) {
	proc.exitCode = -1
	fmt.Fprintf(writer{k.Console}, "%s: exit(-1)\n", proc.name)
	return uint32(int32(-1)), true
}

// writer adapts Console to io.Writer for fmt.Fprintf.
type writer struct{ c Console }

func (w writer) Write(p []byte) (int, error) { return w.c.Write(p) }

func validCString(as *usermem.AddressSpace, addr uint32) bool {
	return as.ValidWord(addr)
}

// validBuffer applies spec §4.5's pointer validation rule — p != NULL,
// p+4 <= PHYS_BASE, page mapped — to the first and the last word of a byte
// range (a range shorter than a word is covered by its first word), exactly as
// the dispatcher applies it to every user pointer it touches regardless of
// the transfer size (spec §8 scenario 4: PHYS_BASE-1 fails this check even
// though it names a mapped byte, because PHYS_BASE-1+4 overruns PHYS_BASE).
// Empty buffers are trivially valid.
func validBuffer(as *usermem.AddressSpace, addr, size uint32) bool {
	if size == 0 {
		return true
	}
	if !as.ValidWord(addr) {
		return false
	}
	if size < 4 {
		return true
	}
	return as.ValidWord(addr + size - 4)
}

func (k *Kernel) sysExec(proc *Process, as *usermem.AddressSpace, nameAddr uint32) (uint32, bool) {
	if !validCString(as, nameAddr) {
		return k.forceExit(proc)
	}
	cmdline, ok := as.ReadCString(nameAddr, maxCommandLine)
	if !ok {
		return k.forceExit(proc)
	}
	tid, err := k.Execute(proc, cmdline)
	if err != nil {
		return uint32(int32(-1)), false
	}
	return uint32(tid), false
}

func (k *Kernel) sysWait(proc *Process, childTID ThreadID) (uint32, bool) {
	ws, ok := proc.childEdges[childTID]
	if !ok {
		return uint32(int32(-1)), false
	}
	// childEdges keeps the edge after a successful wait: the second wait
	// on the same tid must still find ws and hit exitConsumed below, and
	// the record's parent-side ref is only ever dropped by exitProcess.
	code, err := ws.wait()
	if err != nil {
		return uint32(int32(-1)), false
	}
	return uint32(code), false
}

func (k *Kernel) sysCreate(proc *Process, as *usermem.AddressSpace, nameAddr, initialSize uint32) (uint32, bool) {
	if !validCString(as, nameAddr) {
		return k.forceExit(proc)
	}
	name, ok := as.ReadCString(nameAddr, maxFileName)
	if !ok {
		return k.forceExit(proc)
	}
	k.lockFS()
	created, err := k.FS.Create(name, initialSize)
	k.unlockFS()
	if err != nil {
		log.Warningf("create %q: %v", name, err)
		return 0, false
	}
	return boolToWord(created), false
}

func (k *Kernel) sysRemove(proc *Process, as *usermem.AddressSpace, nameAddr uint32) (uint32, bool) {
	if !validCString(as, nameAddr) {
		return k.forceExit(proc)
	}
	name, ok := as.ReadCString(nameAddr, maxFileName)
	if !ok {
		return k.forceExit(proc)
	}
	k.lockFS()
	removed, err := k.FS.Remove(name)
	k.unlockFS()
	if err != nil {
		log.Warningf("remove %q: %v", name, err)
		return 0, false
	}
	return boolToWord(removed), false
}

func (k *Kernel) sysOpen(proc *Process, as *usermem.AddressSpace, nameAddr uint32) (uint32, bool) {
	if !validCString(as, nameAddr) {
		return k.forceExit(proc)
	}
	name, ok := as.ReadCString(nameAddr, maxFileName)
	if !ok {
		return k.forceExit(proc)
	}
	k.lockFS()
	f, err := k.FS.Open(name)
	k.unlockFS()
	if err != nil {
		return uint32(int32(-1)), false
	}
	d := proc.allocateDescriptor(f)
	if d == nil {
		f.Close()
		return uint32(int32(-1)), false
	}
	return uint32(d.ID), false
}

func (k *Kernel) sysFilesize(proc *Process, id int32) (uint32, bool) {
	d := proc.lookupDescriptor(id)
	if d == nil {
		return uint32(int32(-1)), false
	}
	k.lockFS()
	n := d.file.Length()
	k.unlockFS()
	return uint32(n), false
}

func (k *Kernel) sysRead(proc *Process, as *usermem.AddressSpace, id int32, bufAddr, size uint32) (uint32, bool) {
	if !validBuffer(as, bufAddr, size) {
		return k.forceExit(proc)
	}
	if id == stdinFD {
		buf := make([]byte, size)
		var i uint32
		for ; i < size; i++ {
			b, err := k.Console.ReadByte()
			if err != nil {
				break
			}
			buf[i] = b
		}
		as.WriteBytes(bufAddr, buf[:i])
		return i, false
	}
	d := proc.lookupDescriptor(id)
	if d == nil {
		return uint32(int32(-1)), false
	}
	buf := make([]byte, size)
	k.lockFS()
	n, err := d.file.ReadAt(buf, d.file.Tell())
	if n > 0 {
		d.file.Seek(d.file.Tell() + int64(n))
	}
	k.unlockFS()
	if err != nil && n == 0 {
		return uint32(int32(-1)), false
	}
	as.WriteBytes(bufAddr, buf[:n])
	return uint32(n), false
}

func (k *Kernel) sysWrite(proc *Process, as *usermem.AddressSpace, id int32, bufAddr, size uint32) (uint32, bool) {
	if !validBuffer(as, bufAddr, size) {
		return k.forceExit(proc)
	}
	data, ok := as.ReadBytes(bufAddr, int(size))
	if !ok {
		return k.forceExit(proc)
	}
	if id == stdoutFD {
		k.lockFS()
		n, _ := k.Console.Write(data)
		k.unlockFS()
		return uint32(n), false
	}
	d := proc.lookupDescriptor(id)
	if d == nil {
		return uint32(int32(-1)), false
	}
	k.lockFS()
	n, err := d.file.WriteAt(data, d.file.Tell())
	if err == nil {
		d.file.Seek(d.file.Tell() + int64(n))
	}
	k.unlockFS()
	if err != nil {
		return 0, false
	}
	return uint32(n), false
}

func (k *Kernel) sysSeek(proc *Process, id int32, pos uint32) (uint32, bool) {
	d := proc.lookupDescriptor(id)
	if d == nil {
		return uint32(int32(-1)), false
	}
	k.lockFS()
	d.file.Seek(int64(pos))
	k.unlockFS()
	return 0, false
}

func (k *Kernel) sysTell(proc *Process, id int32) (uint32, bool) {
	d := proc.lookupDescriptor(id)
	if d == nil {
		return uint32(int32(-1)), false
	}
	k.lockFS()
	pos := d.file.Tell()
	k.unlockFS()
	return uint32(pos), false
}

func (k *Kernel) sysClose(proc *Process, id int32) (uint32, bool) {
	k.lockFS()
	proc.closeDescriptor(id)
	k.unlockFS()
	return 0, false
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
