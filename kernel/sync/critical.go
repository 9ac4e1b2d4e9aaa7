// Package sync provides the critical-section primitive used to exclude trap
// handlers from code that shares state with them. The runtime drives a
// single hart, so masking machine interrupts is sufficient; a spinlock would
// deadlock as soon as a handler tried to take a lock held by the code it
// interrupted.
package sync

import "bl602rt/kernel/cpu"

var (
	// saveAndDisableFn and restoreFn are mocked by tests.
	saveAndDisableFn = cpu.SaveAndDisable
	restoreFn        = cpu.Restore
)

// CriticalSection masks machine interrupts between Enter and the matching
// Leave. Sections nest: only the outermost Leave restores the interrupt
// state captured by the outermost Enter. The zero value is ready to use.
type CriticalSection struct {
	state uintptr
	depth uint32
}

// Enter masks interrupts, remembering whether they were enabled if this is
// the outermost Enter.
func (cs *CriticalSection) Enter() {
	state := saveAndDisableFn()
	if cs.depth == 0 {
		cs.state = state
	}
	cs.depth++
}

// Leave undoes one Enter. Calling Leave on a section that has not been
// entered has no effect.
func (cs *CriticalSection) Leave() {
	if cs.depth == 0 {
		return
	}

	cs.depth--
	if cs.depth == 0 {
		restoreFn(cs.state)
	}
}

// Do runs fn with interrupts masked.
func Do(fn func()) {
	var cs CriticalSection
	cs.Enter()
	fn()
	cs.Leave()
}
