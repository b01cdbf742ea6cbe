package algo

import (
	"context"
	"errors"

	"periph.io/x/conn/v3/physic"
)

// Status codes returned by the host entry points.
const (
	StatusOK     = 0
	StatusFailed = 1
)

// Entry exposes a Controller through the fixed callback surface a host
// programming tool calls: plain integer arguments and a 0/1 status. The
// error behind a failed status is kept and available from LastError.
//
// Entry tracks the current session. Init may be called again at any time;
// a host tool resets the target and re-initializes before every phase.
type Entry struct {
	c    *Controller
	ctx  context.Context
	s    *Session
	last error
}

// NewEntry returns the host entry points for c.
func NewEntry(c *Controller) *Entry {
	return &Entry{c: c, ctx: context.Background()}
}

// Session returns the current session, or nil before Init.
func (e *Entry) Session() *Session {
	return e.s
}

// LastError returns the error behind the most recent failed status, or nil
// if the most recent call succeeded.
func (e *Entry) LastError() error {
	return e.last
}

// Init starts a session. adr is the device base address, clk the target
// clock in Hz and fnc the function code (1 erase, 2 program, 3 verify).
func (e *Entry) Init(adr, clk, fnc uint32) int {
	if e.s != nil && !e.s.closed {
		e.c.logDebug("previous session abandoned", "session", e.s.ID.String())
		e.s.closed = true
	}
	e.s = nil

	s, err := e.c.Init(e.ctx, adr, physic.Frequency(clk)*physic.Hertz, Function(fnc))
	if err != nil {
		return e.status(err)
	}
	e.s = s
	return e.status(nil)
}

// UnInit ends the current session.
func (e *Entry) UnInit(fnc uint32) int {
	s, err := e.session()
	if err != nil {
		return e.status(err)
	}
	return e.status(s.UnInit(Function(fnc)))
}

// EraseChip erases the whole device.
func (e *Entry) EraseChip() int {
	s, err := e.session()
	if err != nil {
		return e.status(err)
	}
	return e.status(s.EraseChip(e.ctx))
}

// EraseSector erases the sector at absolute address adr.
func (e *Entry) EraseSector(adr uint32) int {
	s, err := e.session()
	if err != nil {
		return e.status(err)
	}
	return e.status(s.EraseSector(e.ctx, adr))
}

// BlankCheck always returns StatusFailed: the region is reported as not
// blank so that the host tool erases it.
func (e *Entry) BlankCheck(adr, sz uint32, pat byte) int {
	if e.s != nil {
		e.s.BlankCheck(adr, sz, pat)
	}
	e.last = nil
	return StatusFailed
}

// ProgramPage writes the first sz bytes of buf at absolute address adr.
func (e *Entry) ProgramPage(adr, sz uint32, buf []byte) int {
	s, err := e.session()
	if err != nil {
		return e.status(err)
	}
	if uint64(sz) > uint64(len(buf)) {
		return e.status(&SizeError{Size: sz, Buffer: len(buf)})
	}
	return e.status(s.ProgramPage(e.ctx, adr, buf[:sz]))
}

// Verify compares sz bytes at absolute address adr with buf. It returns
// adr+sz on success and otherwise the address of the first byte that
// could not be verified.
func (e *Entry) Verify(adr, sz uint32, buf []byte) uint32 {
	s, err := e.session()
	if err != nil {
		e.status(err)
		return adr
	}
	if uint64(sz) > uint64(len(buf)) {
		e.status(&SizeError{Size: sz, Buffer: len(buf)})
		return adr
	}
	res, err := s.Verify(e.ctx, adr, buf[:sz])
	e.status(err)
	return res
}

func (e *Entry) session() (*Session, error) {
	if e.s == nil {
		return nil, ErrNoSession
	}
	if e.s.closed {
		return nil, ErrSessionClosed
	}
	return e.s, nil
}

func (e *Entry) status(err error) int {
	e.last = err
	if err != nil {
		if errors.Is(err, ErrNoSession) || errors.Is(err, ErrSessionClosed) {
			e.c.logError("entry point called outside a session", "error", err)
		}
		return StatusFailed
	}
	return StatusOK
}
