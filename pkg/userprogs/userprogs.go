// Package userprogs supplies a handful of built-in UserPrograms (spec §1's
// "compiled" user code) together with the synthetic ELF binaries the
// Executable Loader validates and installs for them, for use by the CLI's
// run command and by the kernel package's own tests without depending on a
// real cross-compiler.
package userprogs

import (
	"strings"

	"github.com/pintos-go/pintosim/pkg/elf"
	"github.com/pintos-go/pintosim/pkg/sentry/kernel"
)

// Seeder is the subset of memfs.FS that Register needs to install each
// program's synthetic executable.
type Seeder interface {
	Seed(name string, data []byte)
}

// Register installs every built-in program's UserProgram with k and its
// synthetic ELF executable with fs, under the same name.
func Register(k *kernel.Kernel, fs Seeder) {
	for name, prog := range all {
		fs.Seed(name, elf.BuildSimple(nil))
		k.RegisterProgram(name, prog)
	}
}

var all = map[string]kernel.UserProgram{
	"echo":  echo,
	"cat":   cat,
	"true":  exitCode(0),
	"false": exitCode(1),
	"badptr": func(t *kernel.Task) {
		// Passes an address one byte below PHYS_BASE to write: the byte is
		// mapped (it is the last byte of the stack page), but the word
		// starting there overruns PHYS_BASE and fails validation,
		// exercising the dispatcher's force-exit path (spec §8 scenario 4).
		t.Syscall(kernel.SysWrite, 1, 0xBFFFFFFF, 1)
	},
}

func exitCode(code uint32) kernel.UserProgram {
	return func(t *kernel.Task) { t.Exit(code) }
}

// echo writes its arguments, space-separated, to stdout and exits 0 (spec
// §8 scenario 1).
func echo(t *kernel.Task) {
	args, ok := readArgv(t)
	if !ok {
		t.Exit(^uint32(0))
		return
	}
	line := strings.Join(args[1:], " ") + "\n"
	writeAll(t, []byte(line))
	t.Exit(0)
}

// cat writes the contents of each named argument file to stdout.
func cat(t *kernel.Task) {
	args, ok := readArgv(t)
	if !ok {
		t.Exit(^uint32(0))
		return
	}
	for _, name := range args[1:] {
		nameAddr, ok := writeScratchString(t, name)
		if !ok {
			t.Exit(^uint32(0))
			return
		}
		fd := t.Syscall(kernel.SysOpen, nameAddr)
		if int32(fd) < 0 {
			continue
		}
		const bufAddr = kernel.ScratchPageBase + 512
		for {
			if !t.WriteBytes(bufAddr, make([]byte, 128)) {
				break
			}
			n := t.Syscall(kernel.SysRead, fd, bufAddr, 128)
			if int32(n) <= 0 {
				break
			}
			data, ok := t.ReadBytes(bufAddr, int(n))
			if !ok {
				break
			}
			writeAll(t, data)
		}
		t.Syscall(kernel.SysClose, fd)
	}
	t.Exit(0)
}

func writeAll(t *kernel.Task, data []byte) {
	addr, ok := writeScratchString(t, string(data))
	if !ok {
		return
	}
	t.Syscall(kernel.SysWrite, 1, addr, uint32(len(data)))
}

// writeScratchString stages a Go string into the scratch page every
// process gets (kernel.ScratchPageBase), since built-in programs have no
// compiled data section of their own and spec §6 requires every syscall
// argument to be a real, validated user pointer.
func writeScratchString(t *kernel.Task, s string) (uint32, bool) {
	if !t.WriteBytes(kernel.ScratchPageBase, []byte(s+"\x00")) {
		return 0, false
	}
	return kernel.ScratchPageBase, true
}

func readArgv(t *kernel.Task) ([]string, bool) {
	argc, ok := t.Argc()
	if !ok {
		return nil, false
	}
	argvPtr, ok := t.Argv()
	if !ok {
		return nil, false
	}
	args := make([]string, 0, argc)
	for i := uint32(0); i < argc; i++ {
		strAddr, ok := t.ReadWord(argvPtr + 4*i)
		if !ok {
			return nil, false
		}
		s, ok := t.ReadCString(strAddr, 4096)
		if !ok {
			return nil, false
		}
		args = append(args, s)
	}
	return args, true
}
