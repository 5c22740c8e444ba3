// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/pintos-go/pintosim/pkg/elf"
	"github.com/pintos-go/pintosim/pkg/sentry/devices/console"
	"github.com/pintos-go/pintosim/pkg/sentry/fsimpl/memfs"
	"github.com/pintos-go/pintosim/pkg/sentry/kernel"
)

// Null implements subcommands.Command for the "null" command: a smoke test
// that spins up a bare Kernel, traps the NULL syscall directly through a
// Task, and prints the result. Useful for checking the dispatcher's
// argument-reading and return-value plumbing without needing a full
// process launch.
type Null struct {
	arg uint
}

// Name implements subcommands.Command.Name.
func (*Null) Name() string { return "null" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Null) Synopsis() string { return "diagnostic: issue the NULL syscall and print args[1]+1" }

// Usage implements subcommands.Command.Usage.
func (*Null) Usage() string { return "null [flags]\n" }

// SetFlags implements subcommands.Command.SetFlags.
func (n *Null) SetFlags(f *flag.FlagSet) {
	f.UintVar(&n.arg, "arg", 41, "argument word to pass to the NULL syscall.")
}

// Execute implements subcommands.Command.Execute.
func (n *Null) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	fs := memfs.New()
	k := kernel.New(fs, console.Default(), console.HostShutdown{})
	k.RegisterProgram("null-probe", func(t *kernel.Task) {
		result := t.Syscall(kernel.SysNull, uint32(n.arg))
		fmt.Fprintf(os.Stdout, "null(%d) = %d\n", n.arg, result)
		t.Exit(0)
	})
	fs.Seed("null-probe", elf.BuildSimple(nil))

	tid, err := k.Execute(nil, "null-probe")
	if err != nil {
		fmt.Fprintf(os.Stderr, "null: %v\n", err)
		return subcommands.ExitFailure
	}
	if _, err := k.WaitInit(tid); err != nil {
		fmt.Fprintf(os.Stderr, "null: waiting for probe: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
