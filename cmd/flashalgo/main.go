// Command flashalgo runs the QSPI NOR flash programming algorithm from a
// workstation, against a W25Q flash behind an FTDI FT232H adapter or
// against a simulated chip.
//
// Usage:
//
//	flashalgo <command> [flags]
//
// Commands:
//
//	info     Show the device description and identify the chip
//	erase    Erase sectors or the whole chip
//	program  Erase, program and verify a HEX or binary image
//	verify   Compare the chip contents with an image
//	trace    Print a fault trace written with --trace
//
// Examples:
//
//	# Program a HEX file through the FT232H
//	flashalgo program firmware.hex
//
//	# Program into a memory-mapped image file instead of hardware
//	flashalgo program --sim flash.img firmware.bin
//
//	# Keep the faults of a failed run and inspect them
//	flashalgo verify --trace faults.cbor firmware.hex
//	flashalgo trace faults.cbor
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
