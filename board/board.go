package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/moffa90/go-flashalgo/algo"
	"github.com/moffa90/go-flashalgo/driver"
	"github.com/moffa90/go-flashalgo/driver/w25q"
)

// MaxClock is the fastest SPI clock the FT232H MPSSE engine generates.
const MaxClock = 30 * physic.MegaHertz

// ErrNotBroughtUp is returned by chip operations before a successful
// BringUp or after Release.
var ErrNotBroughtUp = errors.New("board: not brought up")

// Wiring is an open connection to the flash.
type Wiring struct {
	// Conn is the SPI connection, mode 0, 8 bits per word
	Conn spi.Conn

	// CS is the active-low chip select
	CS gpio.PinOut

	// LED is lit while the board is being brought up (optional)
	LED gpio.PinOut

	// Closer releases the SPI port (optional)
	Closer io.Closer
}

// Adapter opens the SPI connection and pins the flash is wired to.
type Adapter interface {
	Open(clock physic.Frequency, mode spi.Mode) (*Wiring, error)
}

// Config holds the board configuration.
type Config struct {
	// Adapter opens the bus. Default is an FT232H found by its USB IDs.
	Adapter Adapter

	// MaxClock caps the SPI clock; the clock requested by the host tool
	// is the target's core clock, which is far above what the bus allows.
	// Default is MaxClock.
	MaxClock physic.Frequency

	// Mode is the SPI mode. W25Q parts accept modes 0 and 3.
	Mode spi.Mode

	// PollInterval is the delay between status register polls (optional)
	PollInterval time.Duration

	// ProgramTimeout and EraseTimeout bound a page program and a sector
	// erase. Zero keeps the identified part's datasheet timing.
	ProgramTimeout time.Duration
	EraseTimeout   time.Duration

	// Console receives a short bring-up report (optional)
	Console io.Writer

	// Logger is used for logging operations (optional)
	Logger algo.Logger
}

// Board is a W25Q flash behind an SPI adapter. It implements driver.Chip,
// driver.BringUp and driver.Releaser.
//
// Board is not safe for concurrent use.
type Board struct {
	config Config
	wiring *Wiring
	flash  *w25q.Flash
}

// New creates a Board. Zero fields of cfg take their defaults.
func New(cfg Config) *Board {
	if cfg.Adapter == nil {
		cfg.Adapter = &FTDI{}
	}
	if cfg.MaxClock <= 0 {
		cfg.MaxClock = MaxClock
	}
	return &Board{config: cfg}
}

// Flash returns the identified flash, or nil before BringUp.
func (b *Board) Flash() *w25q.Flash {
	return b.flash
}

// Clock returns the SPI clock used for a requested clock.
func (b *Board) Clock(requested physic.Frequency) physic.Frequency {
	if requested <= 0 || requested > b.config.MaxClock {
		return b.config.MaxClock
	}
	return requested
}

// BringUp opens the adapter at the requested clock (capped to the bus
// maximum), resets and identifies the flash and switches parts larger than
// 16 MiB to 4-byte addressing. A previous connection is released first.
func (b *Board) BringUp(ctx context.Context, clock physic.Frequency) error {
	if err := b.Release(); err != nil {
		b.logError("release previous connection", "error", err)
	}

	spiClock := b.Clock(clock)
	w, err := b.config.Adapter.Open(spiClock, b.config.Mode)
	if err != nil {
		return fmt.Errorf("open adapter: %w", err)
	}

	b.led(w, gpio.High)
	defer b.led(w, gpio.Low)

	flash := w25q.New(w.Conn, w.CS)
	if b.config.PollInterval > 0 {
		flash.SetPollInterval(b.config.PollInterval)
	}
	flash.SetTimeouts(b.config.ProgramTimeout, b.config.EraseTimeout)
	if err := flash.Init(ctx); err != nil {
		closeWiring(w)
		return fmt.Errorf("identify flash: %w", err)
	}

	b.wiring = w
	b.flash = flash

	pr := flash.Params()
	b.logInfo("flash ready",
		"chip", pr.Name,
		"id", fmt.Sprintf("%X", flash.ID()),
		"size", pr.Size,
		"clock", spiClock.String(),
	)
	b.printf("flash %s id %X size %d KiB spi %s\r\n", pr.Name, flash.ID(), pr.Size>>10, spiClock)
	return nil
}

// Release closes the adapter. It is safe to call on a board that was
// never brought up.
func (b *Board) Release() error {
	w := b.wiring
	b.wiring = nil
	b.flash = nil
	if w == nil {
		return nil
	}
	return closeWiring(w)
}

// EraseChip implements driver.Chip.
func (b *Board) EraseChip(ctx context.Context) error {
	f, err := b.chip("chip erase", 0)
	if err != nil {
		return err
	}
	return f.EraseChip(ctx)
}

// EraseSector implements driver.Chip.
func (b *Board) EraseSector(ctx context.Context, offset uint32) error {
	f, err := b.chip("sector erase", offset)
	if err != nil {
		return err
	}
	return f.EraseSector(ctx, offset)
}

// WritePage implements driver.Chip.
func (b *Board) WritePage(ctx context.Context, offset uint32, data []byte) error {
	f, err := b.chip("page program", offset)
	if err != nil {
		return err
	}
	return f.WritePage(ctx, offset, data)
}

// Read implements driver.Chip.
func (b *Board) Read(ctx context.Context, offset uint32, p []byte) error {
	f, err := b.chip("read", offset)
	if err != nil {
		return err
	}
	return f.Read(ctx, offset, p)
}

func (b *Board) chip(op string, offset uint32) (*w25q.Flash, error) {
	if b.flash == nil {
		return nil, &driver.Error{Op: op, Offset: offset, Kind: driver.KindBus, Err: ErrNotBroughtUp}
	}
	return b.flash, nil
}

func (b *Board) led(w *Wiring, l gpio.Level) {
	if w.LED == nil {
		return
	}
	if err := w.LED.Out(l); err != nil {
		b.logError("drive indicator LED", "error", err)
	}
}

func (b *Board) printf(format string, args ...any) {
	if b.config.Console != nil {
		fmt.Fprintf(b.config.Console, format, args...)
	}
}

func (b *Board) logInfo(msg string, keysAndValues ...any) {
	if b.config.Logger != nil {
		b.config.Logger.Info(msg, keysAndValues...)
	}
}

func (b *Board) logError(msg string, keysAndValues ...any) {
	if b.config.Logger != nil {
		b.config.Logger.Error(msg, keysAndValues...)
	}
}

func closeWiring(w *Wiring) error {
	if w.Closer == nil {
		return nil
	}
	return w.Closer.Close()
}

var (
	_ driver.Chip     = (*Board)(nil)
	_ driver.BringUp  = (*Board)(nil)
	_ driver.Releaser = (*Board)(nil)
)
