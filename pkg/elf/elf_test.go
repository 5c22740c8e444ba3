package elf

import (
	"bytes"
	"testing"
)

type bytesReaderAt struct{ b []byte }

func (r bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return bytes.NewReader(r.b).ReadAt(p, off)
}
func (r bytesReaderAt) Len() int64 { return int64(len(r.b)) }

func TestBuildSimpleRoundTrip(t *testing.T) {
	code := []byte{0x90, 0x90, 0xf4} // nop; nop; hlt, never actually executed
	raw := BuildSimple(code)
	r := bytesReaderAt{raw}

	hdr, err := ReadHeader(r)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	wantVaddr := uint32(DefaultLoadBase + EhdrSize + PhdrSize)
	if hdr.Entry != wantVaddr {
		t.Fatalf("Entry: got %#x, want %#x", hdr.Entry, wantVaddr)
	}
	if hdr.Phnum != 1 {
		t.Fatalf("Phnum: got %d, want 1", hdr.Phnum)
	}

	phdrs, err := ReadPhdrs(r, hdr)
	if err != nil {
		t.Fatalf("ReadPhdrs: %v", err)
	}
	if len(phdrs) != 1 {
		t.Fatalf("len(phdrs): got %d, want 1", len(phdrs))
	}
	ph := phdrs[0]
	if ph.Type != PtLoad {
		t.Fatalf("Type: got %d, want PtLoad", ph.Type)
	}
	if ph.Vaddr != wantVaddr {
		t.Fatalf("Vaddr: got %#x, want %#x", ph.Vaddr, wantVaddr)
	}
	if ph.Offset&0xfff != ph.Vaddr&0xfff {
		t.Fatalf("page-offset mismatch: Offset=%#x Vaddr=%#x", ph.Offset, ph.Vaddr)
	}
	if ph.Filesz != uint32(len(code)) || ph.Memsz != uint32(len(code)) {
		t.Fatalf("Filesz/Memsz: got %d/%d, want %d", ph.Filesz, ph.Memsz, len(code))
	}
}

func TestReadHeaderRejectsBadMagic(t *testing.T) {
	raw := BuildSimple(nil)
	raw[0] = 0x00
	if _, err := ReadHeader(bytesReaderAt{raw}); err == nil {
		t.Fatal("ReadHeader: expected error for corrupted magic")
	}
}

func TestReadHeaderRejectsOlderFormatVersion(t *testing.T) {
	raw := BuildSimple(nil)
	raw[eiABIVersion] = 0 // "v0.0.0", older than MinSupportedVersion
	if _, err := ReadHeader(bytesReaderAt{raw}); err == nil {
		t.Fatal("ReadHeader: expected error for a format version older than MinSupportedVersion")
	}
}

func TestReadHeaderRejectsTruncatedFile(t *testing.T) {
	if _, err := ReadHeader(bytesReaderAt{make([]byte, 4)}); err == nil {
		t.Fatal("ReadHeader: expected error for a file shorter than the ELF header")
	}
}

func TestBuildRecordsEntrySeparatelyFromVaddr(t *testing.T) {
	raw := Build(0x08048100, 0x08048000, []byte{0x01, 0x02, 0x03})
	hdr, err := ReadHeader(bytesReaderAt{raw})
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if hdr.Entry != 0x08048100 {
		t.Fatalf("Entry: got %#x, want 0x08048100", hdr.Entry)
	}
}
