package arrowbridge

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoRuntime is returned by Handle when the bridge was built without a
// Runtime.
var ErrNoRuntime = errors.New("arrowbridge: no runtime configured")

// RuntimeError wraps a compute-runtime failure. The payload is opaque to the
// bridge, so the underlying error passes through unclassified.
type RuntimeError struct {
	Elapsed time.Duration
	Err     error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("arrowbridge: runtime request failed after %s: %v", e.Elapsed, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }
