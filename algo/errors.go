package algo

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionClosed is returned by operations on a session after UnInit.
	ErrSessionClosed = errors.New("session closed")

	// ErrNoSession is returned by the host entry points before Init.
	ErrNoSession = errors.New("no session: Init must be called first")
)

// AddressError indicates a host address below the session base address.
type AddressError struct {
	Address uint32
	Base    uint32
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("address 0x%08X is below the device base 0x%08X", e.Address, e.Base)
}

// VerifyError indicates that device contents differ from the expected data.
type VerifyError struct {
	// Address is the absolute address of the first mismatching byte
	Address uint32

	Expected byte
	Actual   byte
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verify mismatch at 0x%08X: expected 0x%02X, read 0x%02X",
		e.Address, e.Expected, e.Actual)
}

// SizeError indicates a host buffer shorter than the size it announced.
type SizeError struct {
	Size   uint32
	Buffer int
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("size %d exceeds the %d byte buffer", e.Size, e.Buffer)
}
