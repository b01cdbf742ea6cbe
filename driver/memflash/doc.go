// Package memflash simulates a serial NOR flash chip in memory.
//
// The simulation follows NOR semantics: erasing sets every byte of a sector
// to the erased value, and programming can only clear bits, so writing to a
// region that was not erased first corrupts it the same way real silicon
// would.
//
//	chip := memflash.New(32<<20, 4096)
//	_ = chip.EraseSector(ctx, 0)
//	_ = chip.WritePage(ctx, 0, data)
//
// The contents can be backed by a memory-mapped image file, which lets a
// programming session be inspected with ordinary tools afterwards:
//
//	chip, err := memflash.Open("flash.img", 32<<20, 4096)
//	defer chip.Close()
//
// Faults can be injected with Protect and FailNext to exercise error paths.
package memflash
