// Package console implements the host-backed console/keyboard and shutdown
// device collaborators (spec §1), the simulation's analogue of the
// ttydev/devpts device packages: a small, self-contained unit registered
// with the kernel at construction time rather than touched directly by
// syscall handlers.
package console

import (
	"bufio"
	"io"
	"os"

	"github.com/pintos-go/pintosim/pkg/log"
)

// Stdio is a kernel.Console backed by the host's standard input and
// output.
type Stdio struct {
	in  *bufio.Reader
	out io.Writer
}

// NewStdio returns a Stdio console reading from in and writing to out.
func NewStdio(in io.Reader, out io.Writer) *Stdio {
	return &Stdio{in: bufio.NewReader(in), out: out}
}

// Default returns a Stdio console bound to os.Stdin/os.Stdout.
func Default() *Stdio {
	return NewStdio(os.Stdin, os.Stdout)
}

// Write implements kernel.Console.
func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

// ReadByte implements kernel.Console.
func (s *Stdio) ReadByte() (byte, error) {
	return s.in.ReadByte()
}

// HostShutdown is a kernel.ShutdownDevice that halts the host process
// itself, standing in for pintos's power_off(), which never returns.
type HostShutdown struct {
	// Code is the process exit code used when PowerOff is invoked.
	Code int
}

// PowerOff implements kernel.ShutdownDevice.
func (h HostShutdown) PowerOff() {
	log.Infof("Power_off called, shutting down")
	os.Exit(h.Code)
}
