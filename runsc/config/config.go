// Copyright 2020 The gVisor Authors.
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

// Package config holds the pintosim CLI's runtime configuration: flags
// registered on the top-level command line, and TOML batch-launch fixtures
// that describe a disk image plus the command lines to run against it.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Reused flag names.
const (
	flagMaxFD   = "max-fd"
	flagDebug   = "debug"
	flagLogFile = "log"

	defaultMaxFD = 128
)

// Config holds the flags common to run/wait/null.
type Config struct {
	// MaxFD is the per-process descriptor cap (spec §6's MAX_FD).
	MaxFD int

	// Debug enables debug-level logging.
	Debug bool

	// LogFile is where log output is written; empty means stderr.
	LogFile string
}

// RegisterFlags registers the flags used to populate Config.
func RegisterFlags(flagSet *flag.FlagSet, c *Config) {
	flagSet.IntVar(&c.MaxFD, flagMaxFD, defaultMaxFD, "per-process descriptor table cap (MAX_FD).")
	flagSet.BoolVar(&c.Debug, flagDebug, false, "enable debug logging.")
	flagSet.StringVar(&c.LogFile, flagLogFile, "", "file path where log output is written, default is stderr.")
}

// Fixture describes a batch launch: a set of files to seed into the
// in-memory file system before any process runs, and the command lines to
// execute against them. Loaded from TOML so integration scenarios can be
// checked into the repository as data rather than code.
type Fixture struct {
	// Files maps a file name to its literal contents.
	Files map[string]string `toml:"files"`

	// Run is the ordered list of command lines to execute.
	Run []string `toml:"run"`
}

// LoadFixture reads and parses a Fixture from path.
func LoadFixture(path string) (Fixture, error) {
	var f Fixture
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return Fixture{}, fmt.Errorf("config: loading fixture %q: %w", path, err)
	}
	return f, nil
}

// OpenLogFile opens c.LogFile for appending, or returns os.Stderr if none
// was configured.
func (c Config) OpenLogFile() (*os.File, error) {
	if c.LogFile == "" {
		return os.Stderr, nil
	}
	return os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
