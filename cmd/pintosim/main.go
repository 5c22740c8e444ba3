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

// Binary pintosim is the command-line front end for the user-process
// subsystem implemented in this repository: it can run a single command
// line against the simulated kernel, wait for one to exit, or probe the
// dispatcher directly via the NULL syscall.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/pintos-go/pintosim/pkg/log"
	"github.com/pintos-go/pintosim/runsc/cmd"
	"github.com/pintos-go/pintosim/runsc/config"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(new(cmd.Run), "")
	subcommands.Register(new(cmd.Wait), "")
	subcommands.Register(new(cmd.Null), "")

	conf := &config.Config{}
	config.RegisterFlags(flag.CommandLine, conf)
	flag.Parse()

	logFile, err := conf.OpenLogFile()
	if err != nil {
		log.Warningf("opening log file: %v", err)
		os.Exit(int(subcommands.ExitFailure))
	}
	log.SetOutput(logFile)
	log.SetLevel(conf.Debug)

	exitCode := subcommands.Execute(context.Background(), conf)
	os.Exit(int(exitCode))
}
