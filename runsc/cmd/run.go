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
	"strings"

	"github.com/google/subcommands"

	"github.com/pintos-go/pintosim/pkg/log"
	"github.com/pintos-go/pintosim/runsc/config"
	"github.com/pintos-go/pintosim/runsc/container"
)

// Run implements subcommands.Command for the "run" command. It starts a
// simplistic container running a single command line and waits for it to
// exit, printing its exit status. It's a trimmed analogue of the teacher's
// "do" command: no sandbox, namespaces, or filesystem mounts, just the
// user-process subsystem this repository implements.
type Run struct {
	id      string
	fixture string
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string { return "run" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "run a command line against the simulated kernel and wait for it to exit"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags] <command line>

Starts one process running <command line> (e.g. "echo hello world") and
waits for it to exit, printing its exit code. -fixture seeds the in-memory
file system from a TOML batch-launch fixture before starting.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.id, "id", "", "container id, defaults to the program name.")
	f.StringVar(&r.fixture, "fixture", "", "path to a TOML batch-launch fixture to seed the file system from.")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(_ context.Context, f *flag.FlagSet, rest ...any) subcommands.ExitStatus {
	if f.NArg() < 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf, _ := rest[0].(*config.Config)
	if conf == nil {
		conf = &config.Config{}
	}

	commandLine := f.Arg(0)
	for _, a := range f.Args()[1:] {
		commandLine += " " + a
	}

	files := map[string][]byte{}
	if r.fixture != "" {
		fx, err := config.LoadFixture(r.fixture)
		if err != nil {
			log.Warningf("run: %v", err)
			return subcommands.ExitFailure
		}
		for name, contents := range fx.Files {
			files[name] = []byte(contents)
		}
	}

	id := r.id
	if id == "" {
		id = commandLine
		if fields := strings.Fields(commandLine); len(fields) > 0 {
			id = fields[0]
		}
	}

	ws, err := container.Run(conf, container.Args{ID: id, Files: files}, commandLine)
	if err != nil {
		log.Warningf("run: %v", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintf(os.Stdout, "exit status: %d\n", exitStatus(ws))
	return subcommands.ExitSuccess
}
