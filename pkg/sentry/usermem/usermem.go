// Package usermem implements the validate-then-use discipline spec's design
// notes (§9) call for: a small address-space abstraction plus pointer
// helpers so that no raw user pointer ever escapes unchecked into a
// syscall handler. This stands in for palloc/pagedir, which spec §1 treats
// as an opaque collaborator.
package usermem

import "fmt"

// Page size and the top of user virtual address space, matching pintos'
// PGSIZE and PHYS_BASE constants (spec §6).
const (
	PageSize = 4096
	PhysBase = uint32(0xC0000000)
)

// PageOf returns the page-aligned base address containing addr.
func PageOf(addr uint32) uint32 {
	return addr &^ (PageSize - 1)
}

// PageOffset returns the low bits of addr within its page.
func PageOffset(addr uint32) uint32 {
	return addr & (PageSize - 1)
}

type page struct {
	data     [PageSize]byte
	writable bool
}

// AddressSpace is one process's user virtual address space: a sparse set of
// fixed-size pages, each independently writable or read-only. It stands in
// for the pair of collaborators spec §1 calls out: the physical frame
// allocator (palloc) and the page-table primitives (pagedir).
type AddressSpace struct {
	pages map[uint32]*page
}

// NewAddressSpace returns an empty address space, as if freshly created by
// pagedir_create().
func NewAddressSpace() *AddressSpace {
	return &AddressSpace{pages: make(map[uint32]*page)}
}

// MapPage installs a new page at the page-aligned address vaddr, with
// exactly PageSize bytes of data (the caller supplies zero-padding).
// Mirrors pagedir_set_page, returning an error if the page is already
// mapped, mirroring install_page's refusal to overwrite a mapping.
func (as *AddressSpace) MapPage(vaddr uint32, data []byte, writable bool) error {
	if vaddr%PageSize != 0 {
		return fmt.Errorf("usermem: MapPage: unaligned vaddr %#x", vaddr)
	}
	if len(data) > PageSize {
		return fmt.Errorf("usermem: MapPage: data too long: %d", len(data))
	}
	if _, ok := as.pages[vaddr]; ok {
		return fmt.Errorf("usermem: MapPage: %#x already mapped", vaddr)
	}
	p := &page{writable: writable}
	copy(p.data[:], data)
	as.pages[vaddr] = p
	return nil
}

// UnmapPage removes a previously mapped page, used to roll back a partially
// installed segment on load failure (spec §4.3 "Segment install").
func (as *AddressSpace) UnmapPage(vaddr uint32) {
	delete(as.pages, vaddr)
}

// Destroy releases every page in the address space. Mirrors
// pagedir_destroy, called only after the owning thread has switched to the
// kernel-only directory (spec §4.4 "Teardown ordering").
func (as *AddressSpace) Destroy() {
	as.pages = nil
}

// wordValid reports whether [addr, addr+4) is a single in-bounds user word:
// non-null, entirely below PhysBase, and backed by a mapped page. This is
// the "pointer validation" rule from spec §4.5.
func (as *AddressSpace) wordValid(addr uint32) bool {
	if addr == 0 {
		return false
	}
	if uint64(addr)+4 > uint64(PhysBase) {
		return false
	}
	_, ok := as.pages[PageOf(addr)]
	return ok
}

// ValidWord reports whether addr is a valid location for a 4-byte user
// word, per the pointer validation rule in spec §4.5.
func (as *AddressSpace) ValidWord(addr uint32) bool {
	if as == nil {
		return false
	}
	return as.wordValid(addr)
}

// ReadWord reads the 4-byte little-endian word at addr. ok is false if addr
// fails validation.
func (as *AddressSpace) ReadWord(addr uint32) (v uint32, ok bool) {
	if !as.ValidWord(addr) {
		return 0, false
	}
	p := as.pages[PageOf(addr)]
	off := PageOffset(addr)
	v = uint32(p.data[off]) | uint32(p.data[off+1])<<8 | uint32(p.data[off+2])<<16 | uint32(p.data[off+3])<<24
	return v, true
}

// WriteWord writes v as a 4-byte little-endian word at addr. It ignores the
// page's writable bit: only kernel-side code (the dispatcher writing a
// return value, the stack builder) calls WriteWord, and it always targets
// pages the kernel itself mapped writable.
func (as *AddressSpace) WriteWord(addr uint32, v uint32) bool {
	if !as.ValidWord(addr) {
		return false
	}
	p := as.pages[PageOf(addr)]
	off := PageOffset(addr)
	p.data[off] = byte(v)
	p.data[off+1] = byte(v >> 8)
	p.data[off+2] = byte(v >> 16)
	p.data[off+3] = byte(v >> 24)
	return true
}

// ReadBytes copies n bytes starting at addr out of the address space,
// failing if any byte of the range is unmapped or above PhysBase.
func (as *AddressSpace) ReadBytes(addr uint32, n int) ([]byte, bool) {
	if as == nil || n < 0 {
		return nil, false
	}
	if uint64(addr)+uint64(n) > uint64(PhysBase) {
		return nil, false
	}
	out := make([]byte, n)
	for i := 0; i < n; {
		cur := addr + uint32(i)
		p, ok := as.pages[PageOf(cur)]
		if !ok {
			return nil, false
		}
		off := PageOffset(cur)
		chunk := PageSize - int(off)
		if chunk > n-i {
			chunk = n - i
		}
		copy(out[i:i+chunk], p.data[off:int(off)+chunk])
		i += chunk
	}
	return out, true
}

// WriteBytes copies data into the address space starting at addr, failing
// if any byte of the range is unmapped.
func (as *AddressSpace) WriteBytes(addr uint32, data []byte) bool {
	if as == nil {
		return false
	}
	n := len(data)
	if uint64(addr)+uint64(n) > uint64(PhysBase) {
		return false
	}
	for i := 0; i < n; {
		cur := addr + uint32(i)
		p, ok := as.pages[PageOf(cur)]
		if !ok {
			return false
		}
		off := PageOffset(cur)
		chunk := PageSize - int(off)
		if chunk > n-i {
			chunk = n - i
		}
		copy(p.data[off:int(off)+chunk], data[i:i+chunk])
		i += chunk
	}
	return true
}

// ReadCString reads a NUL-terminated string starting at addr, failing if the
// terminator isn't among the first max bytes (so the string itself is at
// most max-1 bytes long) or any touched byte is unmapped.
func (as *AddressSpace) ReadCString(addr uint32, max int) (string, bool) {
	if as == nil {
		return "", false
	}
	buf := make([]byte, 0, 64)
	for i := 0; i < max; i++ {
		cur := addr + uint32(i)
		p, ok := as.pages[PageOf(cur)]
		if !ok {
			return "", false
		}
		b := p.data[PageOffset(cur)]
		if b == 0 {
			return string(buf), true
		}
		buf = append(buf, b)
	}
	return "", false
}
