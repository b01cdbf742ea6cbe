package loader

import (
	"fmt"
)

// RangeError indicates image data outside the device.
type RangeError struct {
	Address uint32
	Size    int
	Base    uint32
	End     uint64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%d bytes at 0x%08X are outside the device [0x%08X, 0x%08X)",
		e.Size, e.Address, e.Base, e.End)
}

// StepError indicates a host entry point that returned a failure status.
// Err is the error the entry point kept, if any.
type StepError struct {
	Phase   string
	Step    string
	Address uint32
	Err     error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s: %s at 0x%08X failed", e.Phase, e.Step, e.Address)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StepError) Unwrap() error {
	return e.Err
}
