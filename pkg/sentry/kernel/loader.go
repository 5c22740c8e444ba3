package kernel

import (
	"fmt"

	"github.com/pintos-go/pintosim/pkg/elf"
	"github.com/pintos-go/pintosim/pkg/kernelerror"
	"github.com/pintos-go/pintosim/pkg/log"
	"github.com/pintos-go/pintosim/pkg/sentry/usermem"
)

// fileReaderAt adapts File to elf.ReaderAt.
type fileReaderAt struct{ f File }

func (a fileReaderAt) ReadAt(p []byte, off int64) (int, error) { return a.f.ReadAt(p, off) }
func (a fileReaderAt) Len() int64                              { return a.f.Length() }

// loadResult carries the Executable Loader's output: the entry point and
// initial (pre-argument-stack) user stack pointer, per spec §4.3.
type loadResult struct {
	entry uint32
	esp   uint32
}

// load implements the Executable Loader (spec §4.3): it reads and validates
// the ELF32 header, installs every PT_LOAD segment, and installs the user
// stack page. Ownership of file (kept open, write-denied, for the lifetime
// of the process) is transferred to proc on success.
func (k *Kernel) load(proc *Process, programName string, file File) (loadResult, error) {
	as := usermem.NewAddressSpace()

	hdr, err := elf.ReadHeader(fileReaderAt{file})
	if err != nil {
		log.Warningf("load: %s: %v", programName, err)
		return loadResult{}, fmt.Errorf("%w: %v", kernelerror.ErrLoadFailed, err)
	}
	phdrs, err := elf.ReadPhdrs(fileReaderAt{file}, hdr)
	if err != nil {
		log.Warningf("load: %s: %v", programName, err)
		return loadResult{}, fmt.Errorf("%w: %v", kernelerror.ErrLoadFailed, err)
	}

	for _, ph := range phdrs {
		switch ph.Type {
		case elf.PtNull, elf.PtNote, elf.PtPhdr, elf.PtStack:
			// Ignored segments.
		case elf.PtDynamic, elf.PtInterp, elf.PtShlib:
			return loadResult{}, fmt.Errorf("%w: unsupported segment type %#x", kernelerror.ErrLoadFailed, ph.Type)
		case elf.PtLoad:
			if err := validateSegment(ph, file.Length()); err != nil {
				return loadResult{}, fmt.Errorf("%w: %v", kernelerror.ErrLoadFailed, err)
			}
			if err := installSegment(as, file, ph); err != nil {
				return loadResult{}, fmt.Errorf("%w: %v", kernelerror.ErrLoadFailed, err)
			}
		default:
			// Unrecognized types are ignored, matching load()'s switch
			// default case.
		}
	}

	esp, err := installStack(as)
	if err != nil {
		return loadResult{}, fmt.Errorf("%w: %v", kernelerror.ErrLoadFailed, err)
	}
	if err := as.MapPage(ScratchPageBase, make([]byte, usermem.PageSize), true); err != nil {
		return loadResult{}, fmt.Errorf("%w: %v", kernelerror.ErrLoadFailed, err)
	}

	file.DenyWrite()
	proc.addrSpace = as
	proc.exeFile = file
	return loadResult{entry: hdr.Entry, esp: esp}, nil
}

// validateSegment implements the segment validation rules in spec §4.3.
func validateSegment(ph elf.Phdr, fileLen int64) error {
	const pgmask = usermem.PageSize - 1
	if ph.Offset&pgmask != ph.Vaddr&pgmask {
		return fmt.Errorf("p_offset/p_vaddr page-offset mismatch")
	}
	if uint64(ph.Offset) > uint64(fileLen) {
		return fmt.Errorf("p_offset beyond end of file")
	}
	if ph.Memsz < ph.Filesz {
		return fmt.Errorf("p_memsz < p_filesz")
	}
	if ph.Memsz == 0 {
		return fmt.Errorf("empty segment")
	}
	if uint64(ph.Vaddr) >= uint64(usermem.PhysBase) {
		return fmt.Errorf("p_vaddr outside user address space")
	}
	end := uint64(ph.Vaddr) + uint64(ph.Memsz)
	if end > uint64(usermem.PhysBase) {
		return fmt.Errorf("segment end outside user address space")
	}
	if end < uint64(ph.Vaddr) {
		return fmt.Errorf("segment wraps")
	}
	if ph.Vaddr < usermem.PageSize {
		return fmt.Errorf("p_vaddr maps page 0")
	}
	return nil
}

// installSegment installs a validated PT_LOAD segment a page at a time,
// reading file bytes and zero-filling the remainder, per spec §4.3
// "Segment install". On any failure it unmaps whatever pages it had
// already installed for this segment and returns an error.
func installSegment(as *usermem.AddressSpace, file File, ph elf.Phdr) error {
	writable := ph.Flags&elf.PfW != 0

	pageOffset := ph.Vaddr & (usermem.PageSize - 1)
	memPage := ph.Vaddr &^ (usermem.PageSize - 1)
	filePage := int64(ph.Offset &^ (usermem.PageSize - 1))

	var readBytes, zeroBytes uint32
	if ph.Filesz > 0 {
		readBytes = pageOffset + ph.Filesz
		zeroBytes = roundUp(pageOffset+ph.Memsz, usermem.PageSize) - readBytes
	} else {
		readBytes = 0
		zeroBytes = roundUp(pageOffset+ph.Memsz, usermem.PageSize)
	}

	var installed []uint32
	fail := func(err error) error {
		for _, v := range installed {
			as.UnmapPage(v)
		}
		return err
	}

	upage := memPage
	fileOff := filePage
	for readBytes > 0 || zeroBytes > 0 {
		pageReadBytes := readBytes
		if pageReadBytes > usermem.PageSize {
			pageReadBytes = usermem.PageSize
		}
		buf := make([]byte, usermem.PageSize)
		if pageReadBytes > 0 {
			n, err := file.ReadAt(buf[:pageReadBytes], fileOff)
			if err != nil || uint32(n) != pageReadBytes {
				return fail(fmt.Errorf("reading segment data: %v", err))
			}
		}
		if err := as.MapPage(upage, buf, writable); err != nil {
			return fail(err)
		}
		installed = append(installed, upage)

		readBytes -= pageReadBytes
		if zeroBytes > usermem.PageSize-pageReadBytes {
			zeroBytes -= usermem.PageSize - pageReadBytes
		} else {
			zeroBytes = 0
		}
		upage += usermem.PageSize
		fileOff += int64(pageReadBytes)
	}
	return nil
}

// ScratchPageBase is one zeroed, writable page the loader maps into every
// process in addition to its code and stack, for use as scratch space by
// built-in UserPrograms (package userprogs) that have no compiled data
// section of their own to stage strings and read buffers in. Real loaded
// ELF binaries are free to ignore it.
const ScratchPageBase = 0x1000

// trapWindowSize is the width of the fixed scratch region pintosim reserves
// at the very top of the stack page for Task.Syscall's trap frame (spec §6
// "System-call ABI"), distinct from the argument stack the real top of
// which buildArgStack constructs just below it.
const trapWindowSize = 64

// trapWindowBase is the fixed address of that scratch region.
const trapWindowBase = usermem.PhysBase - trapWindowSize

// installStack allocates one zeroed user page and maps it immediately below
// PhysBase, per spec §4.3 "Stack install". It returns the address the
// argument stack is built down from: the top of the page, minus the fixed
// trap-frame window.
func installStack(as *usermem.AddressSpace) (uint32, error) {
	top := usermem.PhysBase - usermem.PageSize
	if err := as.MapPage(top, make([]byte, usermem.PageSize), true); err != nil {
		return 0, err
	}
	return trapWindowBase, nil
}

func roundUp(n, multiple uint32) uint32 {
	return ((n + multiple - 1) / multiple) * multiple
}
