package driver

import (
	"errors"
	"fmt"
)

// Kind classifies a chip failure.
type Kind uint8

const (
	// KindUnknown is reported for errors that carry no classification.
	KindUnknown Kind = iota

	// KindBus indicates the bus transaction itself failed
	KindBus

	// KindEraseTimeout indicates an erase did not complete in time
	KindEraseTimeout

	// KindProgramTimeout indicates a page program did not complete in time
	KindProgramTimeout

	// KindWriteProtect indicates the target region is write protected
	KindWriteProtect

	// KindOutOfRange indicates the offset lies beyond the device
	KindOutOfRange

	// KindMisaligned indicates an erase offset not on a sector boundary
	KindMisaligned

	// KindVerifyMismatch indicates read-back contents differ from the data written
	KindVerifyMismatch
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown error"
	case KindBus:
		return "bus error"
	case KindEraseTimeout:
		return "erase timeout"
	case KindProgramTimeout:
		return "program timeout"
	case KindWriteProtect:
		return "write-protect fault"
	case KindOutOfRange:
		return "offset out of range"
	case KindMisaligned:
		return "misaligned offset"
	case KindVerifyMismatch:
		return "verify mismatch"
	default:
		return fmt.Sprintf("unknown kind %d", uint8(k))
	}
}

// Error is a chip failure.
type Error struct {
	// Op is the chip operation that failed, e.g. "sector erase"
	Op string

	// Offset is the device offset the operation targeted
	Offset uint32

	// Kind classifies the failure
	Kind Kind

	// Err is the underlying cause, if any
	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s at 0x%08X: %s", e.Op, e.Offset, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindUnknown if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
