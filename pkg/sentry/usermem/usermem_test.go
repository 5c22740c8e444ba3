package usermem

import "testing"

func TestMapPageRejectsUnaligned(t *testing.T) {
	as := NewAddressSpace()
	if err := as.MapPage(1, make([]byte, PageSize), true); err == nil {
		t.Fatal("MapPage: expected error for unaligned vaddr")
	}
}

func TestMapPageRejectsDoubleMap(t *testing.T) {
	as := NewAddressSpace()
	if err := as.MapPage(0x1000, make([]byte, PageSize), true); err != nil {
		t.Fatalf("first MapPage: %v", err)
	}
	if err := as.MapPage(0x1000, make([]byte, PageSize), true); err == nil {
		t.Fatal("MapPage: expected error remapping an already-mapped page")
	}
}

func TestReadWriteWordRoundTrip(t *testing.T) {
	as := NewAddressSpace()
	if err := as.MapPage(0x1000, make([]byte, PageSize), true); err != nil {
		t.Fatalf("MapPage: %v", err)
	}
	if !as.WriteWord(0x1004, 0xdeadbeef) {
		t.Fatal("WriteWord: failed on a mapped, writable page")
	}
	v, ok := as.ReadWord(0x1004)
	if !ok || v != 0xdeadbeef {
		t.Fatalf("ReadWord: got (%#x, %v), want (0xdeadbeef, true)", v, ok)
	}
}

// TestValidWordPhysBaseBoundary exercises the exact pointer-validation edge
// case spec §8 scenario 4 names: PHYS_BASE-1 is a real, mapped byte, but
// the word starting there overruns PHYS_BASE and must fail validation.
func TestValidWordPhysBaseBoundary(t *testing.T) {
	as := NewAddressSpace()
	top := PhysBase - PageSize
	if err := as.MapPage(top, make([]byte, PageSize), true); err != nil {
		t.Fatalf("MapPage: %v", err)
	}
	if as.ValidWord(PhysBase - 1) {
		t.Fatal("ValidWord(PhysBase-1): want false, the word overruns PhysBase")
	}
	if !as.ValidWord(PhysBase - 4) {
		t.Fatal("ValidWord(PhysBase-4): want true, the word ends exactly at PhysBase")
	}
}

func TestValidWordRejectsNull(t *testing.T) {
	as := NewAddressSpace()
	if as.ValidWord(0) {
		t.Fatal("ValidWord(0): want false, NULL is never valid")
	}
}

func TestValidWordRejectsUnmapped(t *testing.T) {
	as := NewAddressSpace()
	if as.ValidWord(0x2000) {
		t.Fatal("ValidWord: want false for an address with no mapped page")
	}
}

func TestReadCString(t *testing.T) {
	as := NewAddressSpace()
	if err := as.MapPage(0x1000, make([]byte, PageSize), true); err != nil {
		t.Fatalf("MapPage: %v", err)
	}
	as.WriteBytes(0x1000, []byte("hello\x00"))
	s, ok := as.ReadCString(0x1000, 64)
	if !ok || s != "hello" {
		t.Fatalf("ReadCString: got (%q, %v), want (\"hello\", true)", s, ok)
	}
}

func TestReadCStringMissingTerminator(t *testing.T) {
	as := NewAddressSpace()
	if err := as.MapPage(0x1000, make([]byte, PageSize), true); err != nil {
		t.Fatalf("MapPage: %v", err)
	}
	as.WriteBytes(0x1000, []byte("no terminator here"))
	if _, ok := as.ReadCString(0x1000, 5); ok {
		t.Fatal("ReadCString: want false when max is reached before a NUL")
	}
}

func TestReadWriteBytesSpanningPages(t *testing.T) {
	as := NewAddressSpace()
	if err := as.MapPage(0x1000, make([]byte, PageSize), true); err != nil {
		t.Fatalf("MapPage page 1: %v", err)
	}
	if err := as.MapPage(0x2000, make([]byte, PageSize), true); err != nil {
		t.Fatalf("MapPage page 2: %v", err)
	}
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i)
	}
	addr := uint32(0x1ff8) // 8 bytes before the page boundary
	if !as.WriteBytes(addr, data) {
		t.Fatal("WriteBytes: failed writing across a page boundary")
	}
	got, ok := as.ReadBytes(addr, len(data))
	if !ok {
		t.Fatal("ReadBytes: failed reading across a page boundary")
	}
	for i := range data {
		if got[i] != data[i] {
			t.Fatalf("byte %d: got %#x, want %#x", i, got[i], data[i])
		}
	}
}

func TestUnmapPage(t *testing.T) {
	as := NewAddressSpace()
	as.MapPage(0x1000, make([]byte, PageSize), true)
	as.UnmapPage(0x1000)
	if as.ValidWord(0x1000) {
		t.Fatal("ValidWord: want false after UnmapPage")
	}
}

func TestDestroy(t *testing.T) {
	as := NewAddressSpace()
	as.MapPage(0x1000, make([]byte, PageSize), true)
	as.Destroy()
	if as.ValidWord(0x1000) {
		t.Fatal("ValidWord: want false after Destroy")
	}
}
