package status

import (
	"errors"
	"fmt"
)

// Code identifies the outcome of a boundary operation.
// Values are stable and safe to expose across an FFI boundary.
type Code int32

const (
	OK              Code = 0
	InvalidArgument Code = 1
	OutOfMemory     Code = 2
	ModelLoadFailed Code = 3
	InferenceFailed Code = 4
	InvalidState    Code = 5
	Unsupported     Code = 6
	IOError         Code = 7
	Internal        Code = 99
)

// String returns the canonical name of the code.
func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case InvalidArgument:
		return "invalid_argument"
	case OutOfMemory:
		return "out_of_memory"
	case ModelLoadFailed:
		return "model_load_failed"
	case InferenceFailed:
		return "inference_failed"
	case InvalidState:
		return "invalid_state"
	case Unsupported:
		return "unsupported"
	case IOError:
		return "io_error"
	case Internal:
		return "internal"
	}
	return fmt.Sprintf("code(%d)", int32(c))
}

// Status carries an outcome across the boundary. A successful Status has
// code OK and empty Message and Origin; a failed one carries a description
// and the name of the operation that produced it.
type Status struct {
	Code    Code
	Message string
	Origin  string
}

// New returns a success status.
func New() *Status {
	return &Status{Code: OK}
}

// Errorf returns a failure status with a formatted message.
// origin names the boundary operation that produced the failure.
func Errorf(code Code, origin, format string, args ...any) *Status {
	return &Status{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Origin:  origin,
	}
}

// Wrap returns a failure status carrying err's text.
// If err is already a *Status, its code and message are preserved and only
// the origin is replaced when empty.
func Wrap(code Code, origin string, err error) *Status {
	if err == nil {
		return New()
	}
	var st *Status
	if errors.As(err, &st) {
		out := &Status{Code: st.Code, Message: st.Message, Origin: st.Origin}
		if out.Origin == "" {
			out.Origin = origin
		}
		return out
	}
	return &Status{Code: code, Message: err.Error(), Origin: origin}
}

// OK reports whether the status (possibly nil) represents success.
func (s *Status) OK() bool {
	return s == nil || s.Code == OK
}

// Error implements the error interface.
func (s *Status) Error() string {
	if s.OK() {
		return "ok"
	}
	if s.Origin != "" {
		return fmt.Sprintf("%s: %s: %s", s.Origin, s.Code, s.Message)
	}
	return fmt.Sprintf("%s: %s", s.Code, s.Message)
}

// Err returns s as an error, or nil when s represents success.
func (s *Status) Err() error {
	if s.OK() {
		return nil
	}
	return s
}

// Is matches statuses by code so callers can use errors.Is with sentinel
// statuses such as &Status{Code: InvalidArgument}.
func (s *Status) Is(target error) bool {
	var t *Status
	if errors.As(target, &t) {
		return s != nil && t != nil && s.Code == t.Code
	}
	return false
}

// CodeOf extracts the status code from an error chain.
// nil maps to OK; errors without a Status in the chain map to Internal.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var st *Status
	if errors.As(err, &st) {
		return st.Code
	}
	return Internal
}

// Convenience constructors for the common failure classes.

// InvalidArgumentf reports a caller-supplied argument violation.
func InvalidArgumentf(origin, format string, args ...any) *Status {
	return Errorf(InvalidArgument, origin, format, args...)
}

// InvalidStatef reports an operation attempted in the wrong lifecycle state.
func InvalidStatef(origin, format string, args ...any) *Status {
	return Errorf(InvalidState, origin, format, args...)
}

// LoadFailed reports a program load or entry-point resolution failure.
func LoadFailed(origin string, cause error) *Status {
	return Wrap(ModelLoadFailed, origin, cause)
}

// Inference reports a forward execution or output conversion failure.
func Inference(origin string, cause error) *Status {
	return Wrap(InferenceFailed, origin, cause)
}

// Unsupportedf reports an operation or value this build cannot handle.
func Unsupportedf(origin, format string, args ...any) *Status {
	return Errorf(Unsupported, origin, format, args...)
}

// IOErrorf reports a filesystem-level failure.
func IOErrorf(origin, format string, args ...any) *Status {
	return Errorf(IOError, origin, format, args...)
}

// Internalf reports a failure that should not happen under the documented
// contract, including recovered panics at the outermost boundary.
func Internalf(origin, format string, args ...any) *Status {
	return Errorf(Internal, origin, format, args...)
}
