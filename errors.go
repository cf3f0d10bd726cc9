package discover

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers may want to check with errors.Is().
var (
	// ErrTerminated is returned by Watcher.Next, wrapped in a *RegError of
	// KindTerminated, once the stream has been terminated (the underlying
	// CoordClient session ended, or the Watcher was closed) and every
	// buffered event has been drained. Callers must call Watch again to
	// re-subscribe; this library does not reconnect automatically.
	ErrTerminated = errors.New("watch stream terminated")

	// ErrClosed is returned by Registry methods called after Close.
	ErrClosed = errors.New("registry closed")

	// ErrLeafExists is returned by Register when the leaf node already
	// exists; callers must Deregister before registering again.
	ErrLeafExists = errors.New("leaf node already exists")

	// ErrNotRegistered is returned by Deregister when no matching leaf is
	// known to exist.
	ErrNotRegistered = errors.New("instance not registered")
)

// Error kinds categorize the errors this package returns.
const (
	KindEncode      = "encode"
	KindDecode      = "decode"
	KindCreatePath  = "create_path"
	KindDeletePath  = "delete_path"
	KindJoin        = "join"
	KindTerminated  = "terminated"
	KindValidation  = "validation"
	KindUnavailable = "unavailable"
)

// RegError is a structured error returned by registration-engine and
// watch-engine operations. It wraps an underlying error with the operation
// that failed and a category, and supports errors.Is/errors.As via Unwrap.
type RegError struct {
	// Op is the operation that failed (e.g. "Registry.Register").
	Op string

	// Kind categorizes the error (KindEncode, KindCreatePath, ...).
	Kind string

	// Err is the underlying error.
	Err error

	// Path is the coordination-tree path involved, when known.
	Path string
}

func (e *RegError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("discover: %s (%s): %v [path=%s]", e.Op, e.Kind, e.Err, e.Path)
	}
	return fmt.Sprintf("discover: %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *RegError) Unwrap() error {
	return e.Err
}

// Is matches a *RegError target by Kind (and Op, when the target sets
// one); any other target is matched against the wrapped error.
func (e *RegError) Is(target error) bool {
	if target == nil {
		return false
	}
	if t, ok := target.(*RegError); ok {
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
		return false
	}
	return errors.Is(e.Err, target)
}

func newEncodeError(op string, err error) *RegError {
	return &RegError{Op: op, Kind: KindEncode, Err: err}
}

func newCreatePathError(op, path string, err error) *RegError {
	return &RegError{Op: op, Kind: KindCreatePath, Err: err, Path: path}
}

func newDeletePathError(op, path string, err error) *RegError {
	return &RegError{Op: op, Kind: KindDeletePath, Err: err, Path: path}
}

func newJoinError(op string, err error) *RegError {
	return &RegError{Op: op, Kind: KindJoin, Err: err}
}

func newValidationError(op string, err error) *RegError {
	return &RegError{Op: op, Kind: KindValidation, Err: err}
}

func newUnavailableError(op string, err error) *RegError {
	return &RegError{Op: op, Kind: KindUnavailable, Err: err}
}

func newTerminatedError(op string) *RegError {
	return &RegError{Op: op, Kind: KindTerminated, Err: ErrTerminated}
}
