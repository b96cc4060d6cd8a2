package bme280

import (
	"errors"
	"fmt"
)

// Kind is a stable, externally consumed failure identifier. It is a string
// newtype, comparable, and implements error.
type Kind string

func (k Kind) Error() string { return string(k) }

// Canonical kinds. The string values are part of the telemetry contract.
const (
	None Kind = ""

	NotDetected   Kind = "NotDetected"
	CalibReadFail Kind = "CalibReadFail"
	ConfigFail    Kind = "ConfigFail"
	TrigFail      Kind = "TrigFail"
	Timeout       Kind = "Timeout"
	RawFail       Kind = "RawFail"
	Press0        Kind = "Press0"
	Range         Kind = "Range"
	NoData        Kind = "NoData"
	NotReady      Kind = "NotReady"
)

// errDivisionGuard is returned by pressure compensation when the
// denominator term evaluates to zero.
var errDivisionGuard = errors.New("bme280: pressure compensation denominator is zero")

// Error keeps the kind together with the failing operation and its cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bme280: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("bme280: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the Kind carried by e.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func newError(k Kind, op string, err error) *Error {
	return &Error{Kind: k, Op: op, Err: err}
}

// KindOf extracts a Kind from err. Errors that carry no kind map to None
// when err is nil and to RawFail otherwise, the catch-all for bus faults.
func KindOf(err error) Kind {
	if err == nil {
		return None
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	if errors.Is(err, errDivisionGuard) {
		return Press0
	}
	return RawFail
}
