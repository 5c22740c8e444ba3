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

package kernel

// This file implements the Process Launcher and Process Bootstrap (spec
// §4.1, §4.2): spawning a new thread to load and run a command line, and
// handing control to user mode once the load has succeeded and the
// Wait-Status Registry edge to the parent is in place.

import (
	"fmt"
	"strings"

	"github.com/pintos-go/pintosim/pkg/kernelerror"
	"github.com/pintos-go/pintosim/pkg/log"
	"github.com/pintos-go/pintosim/pkg/pintosync"
)

// loadHandshake is the data shared between the Process Launcher and the
// Process Bootstrap goroutine it spawns (spec §3's "Load Handshake").
type loadHandshake struct {
	commandLine string

	loadDone            *pintosync.Sema
	waitStatusInstalled *pintosync.Sema

	success bool
	child   *Process
}

// Execute implements the Process Launcher (spec §4.1): it spawns a new
// thread to load and run commandLine, blocks until that thread reports
// whether the load succeeded, and on success installs the Wait-Status
// Registry edge between parent and child before letting the child proceed
// into user mode. parent may be nil to launch an initial, parentless
// process (used by the CLI's run command).
func (k *Kernel) Execute(parent *Process, commandLine string) (ThreadID, error) {
	hs := &loadHandshake{
		commandLine:         commandLine,
		loadDone:            pintosync.NewSema(0),
		waitStatusInstalled: pintosync.NewSema(0),
	}

	childTID := k.allocateTID()
	go k.bootstrap(childTID, hs)

	hs.loadDone.Down()
	if !hs.success {
		return 0, fmt.Errorf("execute %q: %w", commandLine, kernelerror.ErrLoadFailed)
	}

	ws := newWaitStatus(childTID)
	hs.child.parentEdge = ws
	if parent != nil {
		parent.childEdges[childTID] = ws
	} else {
		// An initial process has no parent to hold the other half of the
		// edge. It still needs a reference count of 2 so a host-level
		// waiter (the CLI's wait command, standing in for a parent shell)
		// can observe its exit, so the kernel itself pins the edge.
		k.mu.Lock()
		k.initEdges = append(k.initEdges, ws)
		k.mu.Unlock()
	}

	hs.waitStatusInstalled.Up()
	return childTID, nil
}

// WaitInit waits for an initial, parentless process started by Execute(nil,
// ...), for use by hosts (the CLI) that play the role of a parent shell.
func (k *Kernel) WaitInit(tid ThreadID) (int32, error) {
	k.mu.Lock()
	var ws *WaitStatus
	for _, e := range k.initEdges {
		if e.ChildTID() == tid {
			ws = e
			break
		}
	}
	k.mu.Unlock()
	if ws == nil {
		return -1, kernelerror.ErrNoSuchChild
	}
	return ws.wait()
}

// bootstrap implements the Process Bootstrap (spec §4.2): it tokenizes the
// command line, loads the named executable, reports success or failure
// through the handshake, and — on success — builds the argument stack and
// hands control to the registered UserProgram. It runs on its own
// goroutine, standing in for the new kernel thread start_process spawns.
func (k *Kernel) bootstrap(tid ThreadID, hs *loadHandshake) {
	tokens := strings.Fields(hs.commandLine)
	if len(tokens) == 0 {
		hs.success = false
		hs.loadDone.Up()
		return
	}
	programName := tokens[0]

	file, err := k.FS.Open(programName)
	if err != nil {
		log.Warningf("bootstrap: open %q: %v", programName, err)
		hs.success = false
		hs.loadDone.Up()
		return
	}

	proc := newProcess(tid, programName, k.maxFD)
	res, err := k.load(proc, programName, file)
	if err != nil {
		log.Warningf("bootstrap: load %q: %v", programName, err)
		file.Close()
		hs.success = false
		hs.loadDone.Up()
		return
	}

	esp, err := buildArgStack(proc.addrSpace, res.esp, tokens)
	if err != nil {
		// The original start_process has no failure path here: it assumes
		// a freshly installed stack page always has room for argv. We
		// keep that assumption but guard it, since pintosim's argv comes
		// from arbitrary host input rather than a fixed test command line;
		// an overflow here is treated as a load failure rather than
		// silently corrupting the stack.
		log.Warningf("bootstrap: build argument stack for %q: %v", programName, err)
		file.Close()
		hs.success = false
		hs.loadDone.Up()
		return
	}

	program, ok := k.lookupProgram(programName)
	if !ok {
		log.Warningf("bootstrap: no program registered for %q, running as exit(0)", programName)
		program = func(t *Task) { t.Exit(0) }
	}

	hs.success = true
	hs.child = proc
	k.registerProcess(proc)
	hs.loadDone.Up()

	// Block until the launcher has installed our parentEdge, per spec
	// §4.2 step 6: the child must not be able to exit before the parent
	// can possibly be waiting on it.
	hs.waitStatusInstalled.Down()

	k.runTask(proc, program, res.entry, esp)
	k.exitProcess(proc)
}

// exitProcess performs the single, centralized process-exit teardown (spec
// §4.4): closing the executable and all open descriptors, dropping this
// process's edge to each of its children and to its own parent, destroying
// the address space, and removing the process from the kernel's registry.
// It runs once, after runTask returns, regardless of whether the task
// exited via the EXIT syscall, a force-exit, or falling off the end of its
// UserProgram.
func (k *Kernel) exitProcess(proc *Process) {
	if proc.exeFile != nil {
		proc.exeFile.Close()
		proc.exeFile = nil
	}
	proc.closeAllDescriptors()

	for _, ws := range proc.childEdges {
		ws.dropAsParent()
	}
	proc.childEdges = nil

	if proc.parentEdge != nil {
		proc.parentEdge.setExitCode(proc.exitCode)
		proc.parentEdge.dropAsChild()
	}

	proc.addrSpace.Destroy()
	k.unregisterProcess(proc.id)

	log.Infof("%s: exit(%d)", proc.name, proc.exitCode)
}
