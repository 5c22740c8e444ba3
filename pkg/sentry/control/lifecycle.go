// Copyright 2021 The gVisor Authors.
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

package control

import (
	"fmt"
	"strings"
	"sync"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/pintos-go/pintosim/pkg/kernelerror"
	"github.com/pintos-go/pintosim/pkg/log"
	"github.com/pintos-go/pintosim/pkg/sentry/kernel"
)

// Lifecycle provides functions related to starting and waiting on
// containers, each backed by one pintosim process. It plays the role the
// teacher's urpc-exposed Lifecycle plays for gVisor containers, minus the
// RPC surface: the CLI calls its methods directly in-process.
type Lifecycle struct {
	// Kernel is the kernel new containers are launched into.
	Kernel *kernel.Kernel

	// mu protects containerMap.
	mu sync.RWMutex

	// containerMap is a map of the container id to its Container.
	containerMap map[string]*Container
}

// NewLifecycle returns a Lifecycle bound to k.
func NewLifecycle(k *kernel.Kernel) *Lifecycle {
	return &Lifecycle{Kernel: k, containerMap: make(map[string]*Container)}
}

// containerState is the state of the container.
type containerState int

const (
	stateCreated containerState = iota
	stateRunning
	stateStopped
)

// Container represents one launched process, tracked by container id the
// way the teacher's Container tracks a thread group by PID 1.
type Container struct {
	containerID string
	tid         kernel.ThreadID
	state       containerState
	exitCode    int32
}

// StartContainerArgs is the set of arguments to start a container, modeled
// on the teacher's StartContainerArgs but trimmed to what the user-process
// subsystem actually needs: a command line (spec §4.1's "command_line"),
// not a full OCI bundle. It embeds specs.Process so callers building it
// from an OCI-style process spec (argv/env/cwd) can populate it directly.
type StartContainerArgs struct {
	specs.Process

	// ContainerID identifies the container for later WaitContainer calls.
	// If empty, Args[0] is used.
	ContainerID string
}

// commandLine joins Args into the single string Kernel.Execute expects;
// pintosim's dispatcher has no notion of a separate argv array at the host
// level, only within the simulated process's own address space (spec
// §4.2.1).
func (a StartContainerArgs) commandLine() string {
	return strings.Join(a.Args, " ")
}

// StartContainer launches args as a new, parentless process (spec §4.1's
// Process Launcher, invoked here in place of a parent thread since the
// host itself plays that role) and registers it under its container id.
func (l *Lifecycle) StartContainer(args StartContainerArgs, containerID *string) error {
	id := args.ContainerID
	if id == "" {
		if len(args.Args) == 0 {
			return fmt.Errorf("control: StartContainer: empty command line")
		}
		id = args.Args[0]
	}

	l.mu.Lock()
	if _, ok := l.containerMap[id]; ok {
		l.mu.Unlock()
		return fmt.Errorf("control: StartContainer: container %q already exists", id)
	}
	l.mu.Unlock()

	tid, err := l.Kernel.Execute(nil, args.commandLine())
	if err != nil {
		return fmt.Errorf("control: StartContainer: %w", err)
	}

	l.mu.Lock()
	l.containerMap[id] = &Container{containerID: id, tid: tid, state: stateRunning}
	l.mu.Unlock()

	if containerID != nil {
		*containerID = id
	}
	log.Infof("started container %q as tid %d", id, tid)
	return nil
}

// WaitContainer blocks until the named container's process has exited and
// returns its exit code, mirroring process_wait (spec §4.4) at the
// container granularity.
func (l *Lifecycle) WaitContainer(containerID string, exitCode *int32) error {
	l.mu.RLock()
	c, ok := l.containerMap[containerID]
	l.mu.RUnlock()
	if !ok {
		return fmt.Errorf("control: WaitContainer: %w: %q", kernelerror.ErrNoSuchChild, containerID)
	}

	code, err := l.Kernel.WaitInit(c.tid)
	if err != nil {
		return fmt.Errorf("control: WaitContainer: %w", err)
	}

	l.mu.Lock()
	c.state = stateStopped
	c.exitCode = code
	l.mu.Unlock()

	if exitCode != nil {
		*exitCode = code
	}
	return nil
}

// ContainerState reports whether containerID is still running.
func (l *Lifecycle) ContainerState(containerID string) (running bool, exitCode int32, err error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.containerMap[containerID]
	if !ok {
		return false, 0, fmt.Errorf("control: ContainerState: %w: %q", kernelerror.ErrNoSuchChild, containerID)
	}
	return c.state == stateRunning, c.exitCode, nil
}
