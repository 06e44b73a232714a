package errcode

import "errors"

// Code is a stable, log-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Transient: recovered locally by skipping the cycle.
	Timeout   Code = "timeout"
	BusError  Code = "bus_error"
	Malformed Code = "malformed"
	NotReady  Code = "not_ready"
	NoSamples Code = "no_samples"

	// Fatal at boot.
	InitFailed    Code = "init_failed"
	InvalidConfig Code = "invalid_config"

	Error Code = "error" // generic fallback
)

// E keeps an operation name and a cause next to the code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap attaches a code and operation to err. A nil err stays nil.
func Wrap(c Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: c, Op: op, Err: err}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return Error
}

// Transient reports whether err belongs to the skip-and-retry-next-cycle class.
func Transient(err error) bool {
	switch Of(err) {
	case Timeout, BusError, Malformed, NotReady, NoSamples:
		return true
	}
	return false
}

// MapDriverErr maps low-level driver errors to a Code. Errors that already
// carry a code keep it; anything else coming out of a Tx is a BusError.
func MapDriverErr(err error) Code {
	if c := Of(err); c != Error {
		return c
	}
	return BusError
}
