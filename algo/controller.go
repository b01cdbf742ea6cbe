package algo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"periph.io/x/conn/v3/physic"

	"github.com/moffa90/go-flashalgo/driver"
)

// Controller runs programming sessions against a chip. It owns no session
// state itself; every Init returns a fresh Session.
//
// Controller is not safe for concurrent use.
type Controller struct {
	chip   driver.Chip
	config Config
	faults []Fault
}

// New creates a new Controller for the given chip.
//
// Example:
//
//	chip := memflash.New(32<<20, 4096)
//	c := algo.New(chip,
//	    algo.WithLogger(slog.Default()),
//	    algo.WithPageSize(4096),
//	)
func New(chip driver.Chip, opts ...Option) *Controller {
	if chip == nil {
		panic("chip cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Controller{
		chip:   chip,
		config: cfg,
	}
}

// PageSize returns the page buffer capacity of the sessions this
// controller creates.
func (c *Controller) PageSize() int {
	return c.config.PageSize
}

// Faults returns every fault recorded by the controller's sessions.
func (c *Controller) Faults() []Fault {
	return c.faults
}

// Init starts a session: it brings up the hardware at the given clock and
// fixes base as the address of device offset zero for the session's
// lifetime. It must be called before any other operation, and again after
// every target reset.
//
// Example:
//
//	s, err := c.Init(ctx, 0x90000000, 400*physic.MegaHertz, algo.FuncProgram)
//	if err != nil {
//	    return err
//	}
//	defer s.UnInit(algo.FuncProgram)
func (c *Controller) Init(ctx context.Context, base uint32, clock physic.Frequency, fn Function) (*Session, error) {
	s := &Session{
		ID:       uuid.New(),
		Base:     base,
		Function: fn,
		Clock:    clock,
		c:        c,
		buf:      make([]byte, c.config.PageSize),
		started:  time.Now(),
	}

	if err := c.config.BringUp.BringUp(ctx, clock); err != nil {
		s.record("bring-up", base, 0, err)
		return nil, fmt.Errorf("bring-up: %w", err)
	}

	c.logInfo("session started",
		"session", s.ID.String(),
		"base", fmt.Sprintf("0x%08X", base),
		"clock", clock.String(),
		"function", fn.String(),
	)
	return s, nil
}

// logDebug logs a debug message if a logger is configured.
func (c *Controller) logDebug(msg string, keysAndValues ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (c *Controller) logInfo(msg string, keysAndValues ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (c *Controller) logError(msg string, keysAndValues ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Error(msg, keysAndValues...)
	}
}

// Session is one Init/UnInit bracket of host requests. All addresses are
// absolute; the session translates them to device offsets relative to
// Base.
//
// A Session is not safe for concurrent use. Each session owns its page
// buffer, so separate sessions may run on separate goroutines against
// separate chips.
type Session struct {
	// ID identifies the session in logs and fault traces
	ID uuid.UUID

	// Base is the absolute address of device offset zero
	Base uint32

	// Function is the operation class announced by the host tool
	Function Function

	// Clock is the frequency the hardware was brought up at
	Clock physic.Frequency

	c       *Controller
	buf     []byte
	faults  []Fault
	closed  bool
	started time.Time
}

// Offset translates an absolute address to a device offset.
func (s *Session) Offset(addr uint32) (uint32, error) {
	if addr < s.Base {
		return 0, &AddressError{Address: addr, Base: s.Base}
	}
	return addr - s.Base, nil
}

// Faults returns the faults recorded during this session.
func (s *Session) Faults() []Fault {
	return s.faults
}

// Closed reports whether UnInit has been called.
func (s *Session) Closed() bool {
	return s.closed
}

// UnInit ends the session. Resources held by the bring-up capability are
// released if it implements driver.Releaser.
func (s *Session) UnInit(fn Function) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true

	s.c.logInfo("session ended",
		"session", s.ID.String(),
		"function", fn.String(),
		"faults", len(s.faults),
		"elapsed", time.Since(s.started).String(),
	)

	if r, ok := s.c.config.BringUp.(driver.Releaser); ok {
		if err := r.Release(); err != nil {
			s.record("release", s.Base, 0, err)
			return fmt.Errorf("release: %w", err)
		}
	}
	return nil
}

// EraseChip erases the whole device.
func (s *Session) EraseChip(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.c.logDebug("erase chip", "session", s.ID.String())

	if err := s.c.chip.EraseChip(ctx); err != nil {
		return s.fail("erase chip", s.Base, 0, err)
	}
	return nil
}

// EraseSector erases the sector at addr. addr must be on a sector boundary
// as the chip defines it; the chip reports misaligned addresses.
func (s *Session) EraseSector(ctx context.Context, addr uint32) error {
	if s.closed {
		return ErrSessionClosed
	}
	off, err := s.Offset(addr)
	if err != nil {
		return s.fail("erase sector", addr, 0, err)
	}
	s.c.logDebug("erase sector",
		"session", s.ID.String(),
		"address", fmt.Sprintf("0x%08X", addr),
		"offset", fmt.Sprintf("0x%08X", off),
	)

	if err := s.c.chip.EraseSector(ctx, off); err != nil {
		return s.fail("erase sector", addr, off, err)
	}
	return nil
}

// BlankCheck always reports the region as not blank, so the host tool
// erases before every program.
func (s *Session) BlankCheck(addr, size uint32, pattern byte) bool {
	s.c.logDebug("blank check forced to not blank",
		"address", fmt.Sprintf("0x%08X", addr),
		"size", size,
		"pattern", fmt.Sprintf("0x%02X", pattern),
	)
	return false
}

// ProgramPage writes data at addr without checking the existing contents.
// The host tool must have erased the region first. data is passed to the
// chip as is, even if it exceeds a physical page.
func (s *Session) ProgramPage(ctx context.Context, addr uint32, data []byte) error {
	if s.closed {
		return ErrSessionClosed
	}
	off, err := s.Offset(addr)
	if err != nil {
		return s.fail("program page", addr, 0, err)
	}
	s.c.logDebug("program page",
		"session", s.ID.String(),
		"address", fmt.Sprintf("0x%08X", addr),
		"offset", fmt.Sprintf("0x%08X", off),
		"size", len(data),
	)

	if err := s.c.chip.WritePage(ctx, off, data); err != nil {
		return s.fail("program page", addr, off, err)
	}
	return nil
}

// Verify compares the device contents at addr with data. It returns
// addr+len(data) when they match, and otherwise the absolute address of
// the first differing byte together with a *VerifyError.
//
// The comparison runs in chunks of at most the page buffer capacity, so
// no chip read ever exceeds it however long data is.
func (s *Session) Verify(ctx context.Context, addr uint32, data []byte) (uint32, error) {
	if s.closed {
		return addr, ErrSessionClosed
	}
	off, err := s.Offset(addr)
	if err != nil {
		return addr, s.fail("verify", addr, 0, err)
	}

	for done := 0; done < len(data); {
		n := min(len(data)-done, len(s.buf))
		chunk := s.buf[:n]
		at := uint32(done)

		if err := s.c.chip.Read(ctx, off+at, chunk); err != nil {
			return addr + at, s.fail("verify", addr+at, off+at, err)
		}
		for i, b := range chunk {
			if b != data[done+i] {
				bad := addr + at + uint32(i)
				return bad, s.fail("verify", bad, off+at+uint32(i), &VerifyError{
					Address:  bad,
					Expected: data[done+i],
					Actual:   b,
				})
			}
		}
		done += n
	}
	return addr + uint32(len(data)), nil
}

// fail records err as a fault of op and returns it annotated with the
// address.
func (s *Session) fail(op string, addr, off uint32, err error) error {
	s.record(op, addr, off, err)
	return fmt.Errorf("%s at 0x%08X: %w", op, addr, err)
}

func (s *Session) record(op string, addr, off uint32, err error) {
	f := Fault{
		Session: s.ID.String(),
		Time:    time.Now(),
		Op:      op,
		Address: addr,
		Offset:  off,
		Kind:    kindOf(err),
		Message: err.Error(),
	}
	s.faults = append(s.faults, f)
	s.c.faults = append(s.c.faults, f)

	s.c.logError(op+" failed",
		"session", f.Session,
		"address", fmt.Sprintf("0x%08X", addr),
		"offset", fmt.Sprintf("0x%08X", off),
		"kind", f.Kind.String(),
		"error", err,
	)
	if s.c.config.FaultHook != nil {
		s.c.config.FaultHook(f)
	}
}

func kindOf(err error) driver.Kind {
	var (
		verr *VerifyError
		aerr *AddressError
	)
	switch {
	case errors.As(err, &verr):
		return driver.KindVerifyMismatch
	case errors.As(err, &aerr):
		return driver.KindOutOfRange
	}
	return driver.KindOf(err)
}
