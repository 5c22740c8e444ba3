package userprogs

import (
	"testing"

	"github.com/pintos-go/pintosim/pkg/elf"
	"github.com/pintos-go/pintosim/pkg/sentry/fsimpl/memfs"
	"github.com/pintos-go/pintosim/pkg/sentry/kernel"
)

func TestRegisterSeedsEveryBuiltin(t *testing.T) {
	fs := memfs.New()
	k := kernel.New(fs, nopConsole{}, nopShutdown{})
	Register(k, fs)

	for name := range all {
		f, err := fs.Open(name)
		if err != nil {
			t.Fatalf("Open(%q): %v", name, err)
		}
		buf := make([]byte, elf.EhdrSize)
		if _, err := f.ReadAt(buf, 0); err != nil {
			t.Fatalf("reading seeded ELF for %q: %v", name, err)
		}
	}
}

type nopConsole struct{}

func (nopConsole) Write(p []byte) (int, error) { return len(p), nil }
func (nopConsole) ReadByte() (byte, error)     { return 0, nil }

type nopShutdown struct{}

func (nopShutdown) PowerOff() {}
