package container

import (
	"testing"

	"github.com/pintos-go/pintosim/runsc/config"
)

func TestSplitFields(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"echo a b", []string{"echo", "a", "b"}},
		{"  echo   a  ", []string{"echo", "a"}},
		{"true", []string{"true"}},
		{"", nil},
	}
	for _, c := range cases {
		got := splitFields(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("splitFields(%q): got %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("splitFields(%q): got %v, want %v", c.in, got, c.want)
			}
		}
	}
}

func TestEncodeWaitStatusNormalExit(t *testing.T) {
	ws := encodeWaitStatus(0)
	if ws.Signaled() {
		t.Fatal("encodeWaitStatus(0): want a clean exit, not signaled")
	}
	if ws.ExitStatus() != 0 {
		t.Fatalf("encodeWaitStatus(0): ExitStatus() = %d, want 0", ws.ExitStatus())
	}

	ws = encodeWaitStatus(1)
	if ws.ExitStatus() != 1 {
		t.Fatalf("encodeWaitStatus(1): ExitStatus() = %d, want 1", ws.ExitStatus())
	}
}

func TestEncodeWaitStatusForceKilled(t *testing.T) {
	ws := encodeWaitStatus(-1)
	if !ws.Signaled() {
		t.Fatal("encodeWaitStatus(-1): want a signaled status, the process was force-killed")
	}
}

func TestRunTrueAndFalse(t *testing.T) {
	conf := &config.Config{MaxFD: 8}

	ws, err := Run(conf, Args{ID: "t1"}, "true")
	if err != nil {
		t.Fatalf("Run(true): %v", err)
	}
	if ws.ExitStatus() != 0 {
		t.Fatalf("Run(true): ExitStatus() = %d, want 0", ws.ExitStatus())
	}

	ws, err = Run(conf, Args{ID: "t2"}, "false")
	if err != nil {
		t.Fatalf("Run(false): %v", err)
	}
	if ws.ExitStatus() != 1 {
		t.Fatalf("Run(false): ExitStatus() = %d, want 1", ws.ExitStatus())
	}
}

func TestNewRejectsEmptyID(t *testing.T) {
	conf := &config.Config{MaxFD: 8}
	if _, err := New(conf, Args{ID: ""}); err == nil {
		t.Fatal("New: expected error for an empty container ID")
	}
}
