package elf

import "encoding/binary"

// DefaultLoadBase is a conventional page-aligned user load address (the
// traditional i386 ELF default). BuildSimple uses it to place the one
// PT_LOAD segment Build requires to satisfy the loader's page-offset
// validation rule (spec §4.3): p_vaddr's low bits must equal p_offset's.
const DefaultLoadBase = 0x08048000

// Build assembles a minimal ET_EXEC ELF32 i386 binary with a single
// PT_LOAD segment mapping code at vaddr, entering at entry. The segment's
// p_offset is always the header length (84), so the loader's page-offset
// rule accepts the result only when vaddr's page offset is also 84, as
// BuildSimple arranges. It is the
// mirror image of ReadHeader/ReadPhdrs, used to synthesize the executables
// pintosim's built-in UserPrograms are "loaded" from and by tests that
// exercise the Executable Loader without needing a real toolchain-built
// binary on disk.
func Build(entry, vaddr uint32, code []byte) []byte {
	const headerLen = EhdrSize + PhdrSize
	buf := make([]byte, headerLen+len(code))

	copy(buf[0:7], magic)
	buf[7] = 0 // EI_OSABI, unused by the loader
	buf[eiABIVersion] = formatVersionMajor
	binary.LittleEndian.PutUint16(buf[16:18], etExec)
	binary.LittleEndian.PutUint16(buf[18:20], emI386)
	binary.LittleEndian.PutUint32(buf[20:24], evCurrent)
	binary.LittleEndian.PutUint32(buf[24:28], entry)
	binary.LittleEndian.PutUint32(buf[28:32], EhdrSize) // e_phoff
	binary.LittleEndian.PutUint16(buf[42:44], PhdrSize)
	binary.LittleEndian.PutUint16(buf[44:46], 1) // e_phnum

	ph := buf[EhdrSize : EhdrSize+PhdrSize]
	binary.LittleEndian.PutUint32(ph[0:4], PtLoad)
	binary.LittleEndian.PutUint32(ph[4:8], headerLen)
	binary.LittleEndian.PutUint32(ph[8:12], vaddr)
	binary.LittleEndian.PutUint32(ph[12:16], vaddr)
	binary.LittleEndian.PutUint32(ph[16:20], uint32(len(code)))
	binary.LittleEndian.PutUint32(ph[20:24], uint32(len(code)))
	binary.LittleEndian.PutUint32(ph[24:28], PfR|PfX)
	binary.LittleEndian.PutUint32(ph[28:32], 4)

	copy(buf[headerLen:], code)
	return buf
}

// BuildSimple is Build with the PT_LOAD segment placed at DefaultLoadBase
// plus the fixed header size, so its p_offset and p_vaddr page-offsets
// agree by construction; code may be empty (or a placeholder payload,
// since pintosim never actually executes it — see kernel.UserProgram).
func BuildSimple(code []byte) []byte {
	vaddr := uint32(DefaultLoadBase + EhdrSize + PhdrSize)
	return Build(vaddr, vaddr, code)
}
