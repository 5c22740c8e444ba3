package memfs

import "testing"

func TestSeedThenOpen(t *testing.T) {
	fs := New()
	fs.Seed("hello.txt", []byte("hi there"))

	f, err := fs.Open("hello.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	buf := make([]byte, 8)
	n, err := f.ReadAt(buf, 0)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(buf[:n]) != "hi there" {
		t.Fatalf("ReadAt: got %q, want %q", buf[:n], "hi there")
	}
}

func TestOpenMissingFails(t *testing.T) {
	fs := New()
	if _, err := fs.Open("nope"); err == nil {
		t.Fatal("Open: expected error for a nonexistent file")
	}
}

func TestCreateRefusesOverwrite(t *testing.T) {
	fs := New()
	ok, err := fs.Create("f", 0)
	if err != nil || !ok {
		t.Fatalf("Create: got (%v, %v), want (true, nil)", ok, err)
	}
	ok, err = fs.Create("f", 0)
	if err != nil || ok {
		t.Fatalf("Create (second): got (%v, %v), want (false, nil)", ok, err)
	}
}

func TestRemove(t *testing.T) {
	fs := New()
	fs.Seed("f", []byte("x"))
	ok, err := fs.Remove("f")
	if err != nil || !ok {
		t.Fatalf("Remove: got (%v, %v), want (true, nil)", ok, err)
	}
	if _, err := fs.Open("f"); err == nil {
		t.Fatal("Open: expected error after Remove")
	}
	ok, err = fs.Remove("f")
	if err != nil || ok {
		t.Fatalf("Remove (already removed): got (%v, %v), want (false, nil)", ok, err)
	}
}

func TestDenyWriteBlocksWritesButNotReads(t *testing.T) {
	fs := New()
	fs.Seed("f", []byte("data"))
	f, err := fs.Open("f")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	f.DenyWrite()

	if _, err := f.WriteAt([]byte("x"), 0); err == nil {
		t.Fatal("WriteAt: expected error while write-denied")
	}
	buf := make([]byte, 4)
	if _, err := f.ReadAt(buf, 0); err != nil {
		t.Fatalf("ReadAt: unexpected error while write-denied: %v", err)
	}
}

func TestWriteAtGrowsFile(t *testing.T) {
	fs := New()
	fs.Create("f", 0)
	f, _ := fs.Open("f")
	n, err := f.WriteAt([]byte("hello"), 2)
	if err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if n != 5 {
		t.Fatalf("WriteAt: wrote %d bytes, want 5", n)
	}
	if got := f.Length(); got != 7 {
		t.Fatalf("Length: got %d, want 7", got)
	}
}

func TestSeekTell(t *testing.T) {
	fs := New()
	fs.Seed("f", []byte("0123456789"))
	f, _ := fs.Open("f")
	if err := f.Seek(5); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if f.Tell() != 5 {
		t.Fatalf("Tell: got %d, want 5", f.Tell())
	}
}

func TestIndependentHandlesShareData(t *testing.T) {
	fs := New()
	fs.Seed("f", []byte("abc"))
	a, _ := fs.Open("f")
	b, _ := fs.Open("f")
	a.Seek(2)
	if b.Tell() != 0 {
		t.Fatal("Tell: a second handle's position must be independent of the first's")
	}
	a.WriteAt([]byte("Z"), 0)
	buf := make([]byte, 1)
	b.ReadAt(buf, 0)
	if buf[0] != 'Z' {
		t.Fatal("ReadAt: a second handle must see writes made through the first")
	}
}
