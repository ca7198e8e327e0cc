package kernel

// Error describes a boot or kernel error. Errors that can be returned after
// the loader has handed control to the kernel must be defined as global
// variables that are pointers to the Error structure as the kernel runs
// without a working allocator and cannot use errors.New.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
