package memflash

import (
	"context"
	"errors"
	"fmt"

	"github.com/moffa90/go-flashalgo/driver"
)

// Op names a chip operation.
type Op string

// Chip operations, named as in driver.Error.Op.
const (
	OpEraseChip   Op = "chip erase"
	OpEraseSector Op = "sector erase"
	OpWritePage   Op = "page program"
	OpRead        Op = "read"
)

// Call records one operation issued to the chip.
type Call struct {
	Op     Op
	Offset uint32
	Len    int
}

type region struct {
	offset, size uint32
}

// Chip is a simulated NOR flash. It is not safe for concurrent use.
type Chip struct {
	mem        []byte
	sectorSize uint32
	erased     byte

	protected []region
	faults    map[Op]driver.Kind
	calls     []Call

	unmap func() error
}

// Option configures a Chip.
type Option func(*Chip)

// WithErasedValue sets the value erased bytes read back as. Default is 0xFF.
func WithErasedValue(v byte) Option {
	return func(c *Chip) {
		c.erased = v
	}
}

// New returns a fully erased chip of size bytes with the given sector size.
// It panics if sectorSize is zero or does not divide size.
func New(size, sectorSize uint32, opts ...Option) *Chip {
	c := newChip(sectorSize, size, opts)
	c.mem = make([]byte, size)
	c.fill(0, size)
	return c
}

func newChip(sectorSize, size uint32, opts []Option) *Chip {
	if sectorSize == 0 || size%sectorSize != 0 {
		panic(fmt.Sprintf("memflash: sector size %d does not divide chip size %d", sectorSize, size))
	}
	c := &Chip{
		sectorSize: sectorSize,
		erased:     0xFF,
		faults:     make(map[Op]driver.Kind),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the memory mapping, if any. The chip must not be used
// afterwards.
func (c *Chip) Close() error {
	if c.unmap == nil {
		return nil
	}
	unmap := c.unmap
	c.unmap = nil
	c.mem = nil
	return unmap()
}

// Size returns the chip size in bytes.
func (c *Chip) Size() uint32 { return uint32(len(c.mem)) }

// SectorSize returns the erase granularity in bytes.
func (c *Chip) SectorSize() uint32 { return c.sectorSize }

// Bytes returns the live chip contents. Writes through the returned slice
// bypass NOR semantics, which tests use to plant corrupt data.
func (c *Chip) Bytes() []byte { return c.mem }

// Calls returns the operations issued so far.
func (c *Chip) Calls() []Call { return c.calls }

// ResetCalls clears the recorded operations.
func (c *Chip) ResetCalls() { c.calls = nil }

// Protect marks [offset, offset+size) as write protected. Erases and
// programs touching the region fail with driver.KindWriteProtect.
func (c *Chip) Protect(offset, size uint32) {
	c.protected = append(c.protected, region{offset: offset, size: size})
}

// FailNext makes the next call of op fail with the given kind.
func (c *Chip) FailNext(op Op, kind driver.Kind) {
	c.faults[op] = kind
}

// EraseChip implements driver.Chip.
func (c *Chip) EraseChip(ctx context.Context) error {
	if err := c.begin(ctx, OpEraseChip, 0, len(c.mem)); err != nil {
		return err
	}
	if c.isProtected(0, c.Size()) {
		return &driver.Error{Op: string(OpEraseChip), Kind: driver.KindWriteProtect}
	}
	c.fill(0, c.Size())
	return nil
}

// EraseSector implements driver.Chip.
func (c *Chip) EraseSector(ctx context.Context, offset uint32) error {
	if err := c.begin(ctx, OpEraseSector, offset, int(c.sectorSize)); err != nil {
		return err
	}
	if offset%c.sectorSize != 0 {
		return &driver.Error{Op: string(OpEraseSector), Offset: offset, Kind: driver.KindMisaligned}
	}
	if err := c.checkRange(OpEraseSector, offset, c.sectorSize); err != nil {
		return err
	}
	if c.isProtected(offset, c.sectorSize) {
		return &driver.Error{Op: string(OpEraseSector), Offset: offset, Kind: driver.KindWriteProtect}
	}
	c.fill(offset, c.sectorSize)
	return nil
}

// WritePage implements driver.Chip. Bits can only be cleared.
func (c *Chip) WritePage(ctx context.Context, offset uint32, data []byte) error {
	if err := c.begin(ctx, OpWritePage, offset, len(data)); err != nil {
		return err
	}
	if err := c.checkRange(OpWritePage, offset, uint32(len(data))); err != nil {
		return err
	}
	if c.isProtected(offset, uint32(len(data))) {
		return &driver.Error{Op: string(OpWritePage), Offset: offset, Kind: driver.KindWriteProtect}
	}
	for i, b := range data {
		c.mem[offset+uint32(i)] &= b
	}
	return nil
}

// Read implements driver.Chip.
func (c *Chip) Read(ctx context.Context, offset uint32, p []byte) error {
	if err := c.begin(ctx, OpRead, offset, len(p)); err != nil {
		return err
	}
	if err := c.checkRange(OpRead, offset, uint32(len(p))); err != nil {
		return err
	}
	copy(p, c.mem[offset:])
	return nil
}

func (c *Chip) begin(ctx context.Context, op Op, offset uint32, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.mem == nil {
		return &driver.Error{Op: string(op), Offset: offset, Kind: driver.KindBus, Err: errClosed}
	}
	c.calls = append(c.calls, Call{Op: op, Offset: offset, Len: n})
	if kind, ok := c.faults[op]; ok {
		delete(c.faults, op)
		return &driver.Error{Op: string(op), Offset: offset, Kind: kind, Err: errInjected}
	}
	return nil
}

func (c *Chip) checkRange(op Op, offset, n uint32) error {
	if uint64(offset)+uint64(n) > uint64(len(c.mem)) {
		return &driver.Error{
			Op:     string(op),
			Offset: offset,
			Kind:   driver.KindOutOfRange,
			Err:    fmt.Errorf("%d bytes past end of %d byte device", n, len(c.mem)),
		}
	}
	return nil
}

func (c *Chip) isProtected(offset, n uint32) bool {
	end := uint64(offset) + uint64(n)
	for _, r := range c.protected {
		if uint64(offset) < uint64(r.offset)+uint64(r.size) && uint64(r.offset) < end {
			return true
		}
	}
	return false
}

func (c *Chip) fill(offset, n uint32) {
	s := c.mem[offset : offset+n]
	for i := range s {
		s[i] = c.erased
	}
}

var (
	errClosed   = errors.New("memflash: closed")
	errInjected = errors.New("memflash: injected fault")
)

var _ driver.Chip = (*Chip)(nil)
