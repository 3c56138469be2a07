package store

import "fmt"

// IOError wraps an unrecoverable filesystem failure during publish. Op names
// the operation that failed (stat, mkdir, create, write, sync, close,
// rename).
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("store: %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
