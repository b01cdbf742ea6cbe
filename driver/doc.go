// Package driver defines the capability surface the programming algorithm
// consumes: a serial NOR chip and the hardware bring-up that makes it
// reachable.
//
// # Chip
//
// A Chip addresses the flash by device offset (zero is the first byte of
// the chip). Every method blocks until the hardware operation has
// physically completed, so a Read issued after a WritePage observes the
// written data:
//
//	if err := chip.EraseSector(ctx, 0x1000); err != nil {
//	    return err
//	}
//	if err := chip.WritePage(ctx, 0x1000, data); err != nil {
//	    return err
//	}
//
// # Errors
//
// Implementations report failures as *Error values carrying a Kind, so
// callers can tell an erase timeout from a write-protect fault:
//
//	if driver.KindOf(err) == driver.KindWriteProtect {
//	    // unlock the block protect bits and retry
//	}
//
// Concrete chips live in the w25q (SPI hardware) and memflash (simulated)
// subpackages.
package driver
