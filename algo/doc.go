// Package algo implements a flash programming algorithm: the entry points a
// host programming tool calls to erase, program and verify a serial NOR
// flash mapped into the target's address space.
//
// # Overview
//
// The host tool sees the flash as a linear range of addresses starting at
// a base address (0x90000000 for a QSPI flash on an STM32H7). The
// controller translates every absolute address into a device offset
// relative to that base and delegates to a driver.Chip:
//
//	offset = address - base
//
// # Sessions
//
// A session starts with Init, which brings up the hardware and fixes the
// base address, and ends with UnInit:
//
//	c := algo.New(chip, algo.WithBringUp(board))
//
//	s, err := c.Init(ctx, 0x90000000, 400*physic.MegaHertz, algo.FuncProgram)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := s.EraseSector(ctx, 0x90001000); err != nil {
//	    log.Fatal(err)
//	}
//	if err := s.ProgramPage(ctx, 0x90001000, page); err != nil {
//	    log.Fatal(err)
//	}
//	if addr, err := s.Verify(ctx, 0x90001000, page); err != nil {
//	    log.Fatalf("verify failed at 0x%08X: %v", addr, err)
//	}
//	_ = s.UnInit(algo.FuncProgram)
//
// BlankCheck always reports "not blank", so the host tool erases every
// sector before programming it.
//
// # Verify
//
// Verify reads the device through a page buffer whose capacity is the
// configured page size. Ranges longer than the buffer are compared in
// buffer-sized chunks; no chip read ever exceeds the buffer. On a mismatch
// Verify returns the address of the first differing byte.
//
// # Host Entry Points
//
// Entry adapts a Controller to the integer calling convention of the host
// tool: every call returns 0 on success and 1 on failure, except Verify,
// which returns an address. The error behind a failed status is kept:
//
//	e := algo.NewEntry(c)
//	if e.EraseSector(0x90000000) != algo.StatusOK {
//	    log.Println(e.LastError())
//	}
//
// # Error Handling
//
// Chip failures propagate as *driver.Error values carrying a driver.Kind
// (erase timeout, write-protect fault, bus error, ...). The package adds:
//   - VerifyError: device contents differ from the expected data
//   - AddressError: an address below the session base
//   - SizeError: a host buffer shorter than the announced size
//   - ErrSessionClosed, ErrNoSession: calls outside a session
//
// Every failure is also recorded as a Fault, retrievable from the session
// and the controller, and can be saved with WriteTrace.
package algo
