package kernel

import (
	"github.com/pintos-go/pintosim/pkg/sentry/usermem"
)

// ThreadID identifies a kernel thread acting as a user process. One thread
// per user process (spec §1 Non-goals: no multi-threaded user processes),
// so ThreadID also serves as the process id.
type ThreadID int32

// DefaultMaxFD is the per-process descriptor cap (MAX_FD) used unless a
// Kernel is configured with a different one.
const DefaultMaxFD = 128

// reservedDescriptors is the count of descriptor ids (0, 1) reserved for
// console in/out and never file-backed.
const reservedDescriptors = 2

// Descriptor is a per-process handle associating a numeric id with an open
// file. Its id is stable once assigned; file is nil once the descriptor has
// been closed but its slot retained on the free list (spec §3).
type Descriptor struct {
	ID   int32
	file File
}

// Process is the per-thread process control block described in spec §3.
// Its descriptor table and child-edges set are touched only by the owning
// goroutine while it runs (spec §5), so neither is locked.
type Process struct {
	id   ThreadID
	name string

	addrSpace *usermem.AddressSpace
	exeFile   File

	maxFD        int
	descriptors  []*Descriptor // slot k holds the descriptor with id k+2
	freeFD       []*Descriptor
	lastIssuedID int32 // -1 until the first Open

	childEdges map[ThreadID]*WaitStatus
	parentEdge *WaitStatus

	exitCode int32
}

func newProcess(id ThreadID, name string, maxFD int) *Process {
	return &Process{
		id:           id,
		name:         name,
		maxFD:        maxFD,
		descriptors:  make([]*Descriptor, maxFD),
		lastIssuedID: -1,
		childEdges:   make(map[ThreadID]*WaitStatus),
	}
}

// ID returns the process's thread/process id.
func (p *Process) ID() ThreadID { return p.id }

// Name returns the program name used in exit messages.
func (p *Process) Name() string { return p.name }

// AddrSpace returns the process's address space, for use by the loader and
// the dispatcher's pointer validation.
func (p *Process) AddrSpace() *usermem.AddressSpace { return p.addrSpace }

// allocateDescriptor implements the OPEN handler's allocation rule (spec
// §4.5): reuse a freed slot if one exists, else append a new one if under
// cap, else fail. Returns nil if the table is exhausted.
func (p *Process) allocateDescriptor(f File) *Descriptor {
	if len(p.freeFD) > 0 {
		d := p.freeFD[0]
		p.freeFD = p.freeFD[1:]
		d.file = f
		p.descriptors[d.ID-reservedDescriptors] = d
		return d
	}
	if p.lastIssuedID >= int32(p.maxFD-1) {
		return nil
	}
	p.lastIssuedID++
	d := &Descriptor{ID: p.lastIssuedID + reservedDescriptors, file: f}
	p.descriptors[p.lastIssuedID] = d
	return d
}

// lookupDescriptor returns the active descriptor for id, or nil if id is
// out of range, inactive, or one of the reserved console ids.
func (p *Process) lookupDescriptor(id int32) *Descriptor {
	if id < reservedDescriptors {
		return nil
	}
	idx := int(id) - reservedDescriptors
	if idx < 0 || idx >= p.maxFD {
		return nil
	}
	d := p.descriptors[idx]
	if d == nil || d.file == nil {
		return nil
	}
	return d
}

// closeDescriptor closes id's file (if still open) and returns its slot to
// the free list, per the CLOSE handler (spec §4.5).
func (p *Process) closeDescriptor(id int32) bool {
	d := p.lookupDescriptor(id)
	if d == nil {
		return false
	}
	idx := int(id) - reservedDescriptors
	d.file.Close()
	d.file = nil
	p.descriptors[idx] = nil
	p.freeFD = append(p.freeFD, d)
	return true
}

// closeAllDescriptors closes every still-open descriptor, part of process
// exit teardown (spec §4.4).
func (p *Process) closeAllDescriptors() {
	for i, d := range p.descriptors {
		if d != nil && d.file != nil {
			d.file.Close()
		}
		p.descriptors[i] = nil
	}
	p.freeFD = nil
}
