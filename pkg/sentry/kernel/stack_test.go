package kernel

import (
	"testing"

	"github.com/pintos-go/pintosim/pkg/sentry/usermem"
)

// TestBuildArgStackWorkedExample checks the exact layout spec §8 names for
// "prog a b c": argc == 4, argv[0..3] point at "prog"/"a"/"b"/"c" in order,
// argv[4] == NULL, and esp is 4-byte aligned.
func TestBuildArgStackWorkedExample(t *testing.T) {
	as := usermem.NewAddressSpace()
	top := usermem.PhysBase - usermem.PageSize
	if err := as.MapPage(top, make([]byte, usermem.PageSize), true); err != nil {
		t.Fatalf("MapPage: %v", err)
	}

	args := []string{"prog", "a", "b", "c"}
	esp, err := buildArgStack(as, usermem.PhysBase, args)
	if err != nil {
		t.Fatalf("buildArgStack: %v", err)
	}
	if esp%4 != 0 {
		t.Fatalf("esp %#x is not 4-byte aligned", esp)
	}

	fakeRet, ok := as.ReadWord(esp)
	if !ok {
		t.Fatal("reading fake return address")
	}
	if fakeRet != 0 {
		t.Fatalf("fake return address: got %#x, want 0", fakeRet)
	}

	argc, ok := as.ReadWord(esp + 4)
	if !ok || argc != uint32(len(args)) {
		t.Fatalf("argc: got (%d, %v), want (%d, true)", argc, ok, len(args))
	}

	argvPtr, ok := as.ReadWord(esp + 8)
	if !ok {
		t.Fatal("reading argv pointer")
	}

	for i, want := range args {
		addr, ok := as.ReadWord(argvPtr + uint32(4*i))
		if !ok {
			t.Fatalf("reading argv[%d] pointer", i)
		}
		got, ok := as.ReadCString(addr, 64)
		if !ok || got != want {
			t.Fatalf("argv[%d]: got (%q, %v), want (%q, true)", i, got, ok, want)
		}
	}

	null, ok := as.ReadWord(argvPtr + uint32(4*len(args)))
	if !ok || null != 0 {
		t.Fatalf("argv[%d] (NULL sentinel): got (%#x, %v), want (0, true)", len(args), null, ok)
	}
}

func TestBuildArgStackSingleArg(t *testing.T) {
	as := usermem.NewAddressSpace()
	top := usermem.PhysBase - usermem.PageSize
	as.MapPage(top, make([]byte, usermem.PageSize), true)

	esp, err := buildArgStack(as, usermem.PhysBase, []string{"prog"})
	if err != nil {
		t.Fatalf("buildArgStack: %v", err)
	}
	argc, _ := as.ReadWord(esp + 4)
	if argc != 1 {
		t.Fatalf("argc: got %d, want 1", argc)
	}
}

func TestBuildArgStackOutOfSpaceFails(t *testing.T) {
	as := usermem.NewAddressSpace()
	top := usermem.PhysBase - usermem.PageSize
	as.MapPage(top, make([]byte, usermem.PageSize), true)

	huge := make([]byte, usermem.PageSize*2)
	for i := range huge {
		huge[i] = 'x'
	}
	if _, err := buildArgStack(as, usermem.PhysBase, []string{string(huge)}); err == nil {
		t.Fatal("buildArgStack: expected error when the argument doesn't fit in the mapped stack page")
	}
}
