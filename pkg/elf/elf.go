// Package elf reads and validates the ELF32 executables the loader installs
// into a process's address space. The accepted subset mirrors process.c's
// load(): a statically linked, little-endian, i386 ET_EXEC binary with no
// dynamic-linking segments.
package elf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/mod/semver"
)

// Header sizes, verbatim from process.c's Elf32_Ehdr / Elf32_Phdr.
const (
	EhdrSize = 52
	PhdrSize = 32

	// MaxProgramHeaders bounds e_phnum the way load()'s acceptance check
	// does, guarding against a hostile header claiming an absurd count.
	MaxProgramHeaders = 1024
)

// Program header types (ELF1 2-3).
const (
	PtNull    = 0
	PtLoad    = 1
	PtDynamic = 2
	PtInterp  = 3
	PtNote    = 4
	PtShlib   = 5
	PtPhdr    = 6
	PtStack   = 0x6474e551
)

// Segment flags (ELF3 2-3, 2-4).
const (
	PfX = 1
	PfW = 2
	PfR = 4
)

var magic = []byte{0x7F, 'E', 'L', 'F', 1, 1, 1}

const (
	etExec     = 2
	emI386     = 3
	evCurrent  = 1
	ehIdentLen = 16

	// eiABIVersion is e_ident[EI_ABIVERSION], the one identification byte
	// real ELF reserves for an ABI-specific version number. pintosim's
	// synthetic loader format reuses it to carry its own format's major
	// version rather than a real OS ABI revision, since every binary this
	// loader ever sees is one Build/BuildSimple produced.
	eiABIVersion = 8
)

// FormatVersion is the synthetic ELF format version this package's Build
// functions emit.
const FormatVersion = "v1.0.0"

// MinSupportedVersion is the oldest format version ReadHeader still
// accepts; bumped only if a future, incompatible change to Build's layout
// needs to reject files written by an older Build.
const MinSupportedVersion = "v1.0.0"

// formatVersionMajor is FormatVersion's major component, the literal byte
// Build writes into e_ident[EI_ABIVERSION].
const formatVersionMajor = 1

// versionString decodes e_ident[EI_ABIVERSION] into the "vN.0.0" form
// semver.Compare expects.
func versionString(abiVersion byte) string {
	return fmt.Sprintf("v%d.0.0", abiVersion)
}

// Header is the subset of Elf32_Ehdr the loader consults.
type Header struct {
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint32
	Phoff     uint32
	Phentsize uint16
	Phnum     uint16
}

// Phdr is Elf32_Phdr.
type Phdr struct {
	Type   uint32
	Offset uint32
	Vaddr  uint32
	Paddr  uint32
	Filesz uint32
	Memsz  uint32
	Flags  uint32
	Align  uint32
}

// ReaderAt is the minimal file collaborator the loader needs: random-access
// byte reads plus a known length, matching the file-system collaborator's
// read/length primitives (spec §1, "File system").
type ReaderAt interface {
	io.ReaderAt
	Len() int64
}

// ReadHeader reads and validates the ELF header per the acceptance criteria
// in spec §6: i386 little-endian ET_EXEC, e_version == 1, e_phentsize ==
// sizeof(phdr), e_phnum <= 1024, magic \x7FELF\1\1\1, and a format version
// (carried in e_ident[EI_ABIVERSION]) no older than MinSupportedVersion.
func ReadHeader(r ReaderAt) (Header, error) {
	buf := make([]byte, EhdrSize)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return Header{}, fmt.Errorf("reading ELF header: %w", err)
	}
	if !bytes.Equal(buf[:7], magic) {
		return Header{}, fmt.Errorf("bad ELF magic")
	}
	fileVersion := versionString(buf[eiABIVersion])
	if semver.Compare(fileVersion, MinSupportedVersion) < 0 {
		return Header{}, fmt.Errorf("unsupported format version %s: need >= %s", fileVersion, MinSupportedVersion)
	}
	h := Header{
		Type:      binary.LittleEndian.Uint16(buf[16:18]),
		Machine:   binary.LittleEndian.Uint16(buf[18:20]),
		Version:   binary.LittleEndian.Uint32(buf[20:24]),
		Entry:     binary.LittleEndian.Uint32(buf[24:28]),
		Phoff:     binary.LittleEndian.Uint32(buf[28:32]),
		Phentsize: binary.LittleEndian.Uint16(buf[42:44]),
		Phnum:     binary.LittleEndian.Uint16(buf[44:46]),
	}
	if h.Type != etExec {
		return Header{}, fmt.Errorf("not ET_EXEC: type=%d", h.Type)
	}
	if h.Machine != emI386 {
		return Header{}, fmt.Errorf("not i386: machine=%d", h.Machine)
	}
	if h.Version != evCurrent {
		return Header{}, fmt.Errorf("bad e_version: %d", h.Version)
	}
	if h.Phentsize != PhdrSize {
		return Header{}, fmt.Errorf("bad e_phentsize: %d", h.Phentsize)
	}
	if h.Phnum > MaxProgramHeaders {
		return Header{}, fmt.Errorf("too many program headers: %d", h.Phnum)
	}
	return h, nil
}

// ReadPhdrs reads all of the file's program headers.
func ReadPhdrs(r ReaderAt, h Header) ([]Phdr, error) {
	phdrs := make([]Phdr, h.Phnum)
	off := int64(h.Phoff)
	buf := make([]byte, PhdrSize)
	for i := range phdrs {
		if off < 0 || off > r.Len() {
			return nil, fmt.Errorf("program header %d: offset %d out of file", i, off)
		}
		if _, err := r.ReadAt(buf, off); err != nil {
			return nil, fmt.Errorf("reading program header %d: %w", i, err)
		}
		phdrs[i] = Phdr{
			Type:   binary.LittleEndian.Uint32(buf[0:4]),
			Offset: binary.LittleEndian.Uint32(buf[4:8]),
			Vaddr:  binary.LittleEndian.Uint32(buf[8:12]),
			Paddr:  binary.LittleEndian.Uint32(buf[12:16]),
			Filesz: binary.LittleEndian.Uint32(buf[16:20]),
			Memsz:  binary.LittleEndian.Uint32(buf[20:24]),
			Flags:  binary.LittleEndian.Uint32(buf[24:28]),
			Align:  binary.LittleEndian.Uint32(buf[28:32]),
		}
		off += PhdrSize
	}
	return phdrs, nil
}
