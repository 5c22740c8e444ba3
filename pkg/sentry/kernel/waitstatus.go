package kernel

import (
	"math"
	"sync"

	"github.com/pintos-go/pintosim/pkg/kernelerror"
	"github.com/pintos-go/pintosim/pkg/pintosync"
)

// Sentinel exit-code values. exitUnknown marks a child that hasn't exited
// yet; exitConsumed marks a record a parent has already waited on
// successfully (spec §3's "sentinel unknown"/"sentinel consumed"). Both sit
// at the bottom of the int32 range, apart from -1 and the small codes
// programs pass to exit, unlike the original C, which reuses -1 for both
// "killed by the kernel" and "consumed" — see DESIGN.md's Open Question
// resolution. A process that calls exit with exactly one of these two
// values is not told apart from the sentinel.
const (
	exitUnknown  = int32(math.MinInt32)
	exitConsumed = int32(math.MinInt32 + 1)
)

// WaitStatus is the shared reference-counted record through which a parent
// awaits and inspects a child's exit (spec §3, §4.4). Per spec §9's design
// notes, the hand-rolled "count == 0 → free" pattern is replaced by an
// explicit dropAsParent/dropAsChild pair, each called at most once by its
// owner; whichever call observes the count reach zero runs destroy(). The
// parent side of an initial process's record is held by the kernel in
// initEdges and is never dropped, so that record is never destroyed.
type WaitStatus struct {
	mu       sync.Mutex
	count    int
	exitCode int32

	childTID ThreadID
	exitSema *pintosync.Sema

	destroyed bool
}

// newWaitStatus creates a record with reference count 2 (one for the
// parent, one for the child), as process_execute does immediately after a
// successful load.
func newWaitStatus(childTID ThreadID) *WaitStatus {
	return &WaitStatus{
		count:    2,
		exitCode: exitUnknown,
		childTID: childTID,
		exitSema: pintosync.NewSema(0),
	}
}

// ChildTID returns the thread id of the child this record tracks.
func (ws *WaitStatus) ChildTID() ThreadID { return ws.childTID }

// setExitCode records the child's exit code, called once by the child
// either from a normal EXIT syscall or from the dispatcher's force-exit
// path (code -1).
func (ws *WaitStatus) setExitCode(code int32) {
	ws.mu.Lock()
	ws.exitCode = code
	ws.mu.Unlock()
}

// wait blocks until the child has exited and returns its exit code,
// consuming the record so a second call fails. Mirrors process_wait.
func (ws *WaitStatus) wait() (int32, error) {
	ws.mu.Lock()
	if ws.exitCode == exitConsumed {
		ws.mu.Unlock()
		return -1, kernelerror.ErrDoubleWait
	}
	ws.mu.Unlock()

	ws.exitSema.Down()

	ws.mu.Lock()
	code := ws.exitCode
	ws.exitCode = exitConsumed
	ws.mu.Unlock()
	return code, nil
}

// dropAsParent decrements the reference count on behalf of the parent
// tearing down: the parent itself is exiting and deallocating its
// child-edges (a wait alone does not drop the parent's reference).
// Destroys the record if the count reaches zero. Mirrors process_exit's
// "Deallocate dead children" loop.
func (ws *WaitStatus) dropAsParent() {
	ws.mu.Lock()
	ws.count--
	zero := ws.count == 0
	ws.mu.Unlock()
	if zero {
		ws.destroy()
	}
}

// dropAsChild decrements the reference count on behalf of the exiting
// child. If the count reaches zero the parent has already exited and no
// one is waiting, so the record is destroyed without signaling; otherwise
// the parent may still be (or later become) blocked in wait, so the exit
// semaphore is signaled. Mirrors process_exit's "Deallocate dead parent"
// step, including the ordering in spec §4.4: mutate the count under the
// lock, decide whether to signal only after releasing it.
func (ws *WaitStatus) dropAsChild() {
	ws.mu.Lock()
	ws.count--
	zero := ws.count == 0
	ws.mu.Unlock()
	if zero {
		ws.destroy()
	} else {
		ws.exitSema.Up()
	}
}

func (ws *WaitStatus) destroy() {
	ws.mu.Lock()
	ws.destroyed = true
	ws.mu.Unlock()
}

// Destroyed reports whether the record's reference count has reached zero.
// Exposed for the testable property in spec §8: "R is destroyed exactly
// once."
func (ws *WaitStatus) Destroyed() bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.destroyed
}
