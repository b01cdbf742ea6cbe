package driver

import (
	"context"

	"periph.io/x/conn/v3/physic"
)

// Chip is a serial NOR flash addressed by device offset.
type Chip interface {
	// EraseChip erases the whole device.
	EraseChip(ctx context.Context) error

	// EraseSector erases the sector starting at offset.
	EraseSector(ctx context.Context, offset uint32) error

	// WritePage programs data at offset without checking the existing
	// contents. The destination must have been erased.
	WritePage(ctx context.Context, offset uint32, data []byte) error

	// Read fills p with the contents starting at offset.
	Read(ctx context.Context, offset uint32, p []byte) error
}

// BringUp prepares the hardware a Chip depends on (clocks, bus, pins).
// It is called at the start of every programming session since the host
// tool may reset the target between sessions.
type BringUp interface {
	BringUp(ctx context.Context, clock physic.Frequency) error
}

// Releaser is implemented by bring-up capabilities that hold resources
// which should be released when a session ends.
type Releaser interface {
	Release() error
}

// BringUpFunc adapts a function to the BringUp interface.
type BringUpFunc func(ctx context.Context, clock physic.Frequency) error

// BringUp calls f(ctx, clock).
func (f BringUpFunc) BringUp(ctx context.Context, clock physic.Frequency) error {
	return f(ctx, clock)
}

// NopBringUp is a BringUp that does nothing. It is used when the chip is
// already reachable, e.g. a simulated device.
var NopBringUp BringUp = BringUpFunc(func(context.Context, physic.Frequency) error { return nil })
