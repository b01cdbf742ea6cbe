// Package board brings up the hardware a W25Q flash is reached through:
// an FTDI FT232H USB adapter running its MPSSE engine as an SPI master,
// a GPIO chip select, an indicator LED and an optional diagnostic serial
// console.
//
// A Board is both the chip and its bring-up capability, so it is passed
// to the controller twice:
//
//	b := board.New(board.Config{})
//	c := algo.New(b, algo.WithBringUp(b))
//
// Every session re-runs BringUp, which re-opens the adapter and identifies the
// flash. UnInit releases the adapter again.
package board
