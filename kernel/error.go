package kernel

// Error describes a kernel error. Errors raised on the trap path or during
// bring-up are declared as global *Error values so that reporting them never
// touches the Go allocator, which may not be usable from a trap handler.
type Error struct {
	// Module names the subsystem that raised the error: trap, clic, kmain
	// or rt for recovered Go runtime panics.
	Module string

	// Message is fixed text. It is not formatted when the error is raised
	// because a handler running in trap context cannot allocate.
	Message string
}

// Error implements the error interface. Callers that need the subsystem
// read Module directly; kfmt.Panic prints it as a prefix.
func (e *Error) Error() string {
	return e.Message
}
