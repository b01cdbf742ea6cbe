package w25q

import (
	"fmt"
	"strings"
)

// StatusRegister is status register 1 of the flash chip.
//
//	Bits| [W25Q256JV|7.1 Status Registers]
//	----+-------------------------------------------
//	7   | SRP: Status Register Protect
//	6   | BP3: Block Protect bit 3
//	5   | TB: Top/Bottom protect
//	4:2 | BP2-0: Block Protect bits 2-0
//	1   | WEL: Write Enable Latch
//	0   | BUSY: Erase/Write in progress
type StatusRegister byte

func (sr StatusRegister) StatusRegisterProtect() bool { return sr&(1<<7) != 0 }
func (sr StatusRegister) TopBottom() bool             { return sr&(1<<5) != 0 }
func (sr StatusRegister) WriteEnabled() bool          { return sr&(1<<1) != 0 }
func (sr StatusRegister) Busy() bool                  { return sr&(1<<0) != 0 }

// BlockProtect returns the BP3..BP0 field.
func (sr StatusRegister) BlockProtect() byte {
	return byte(sr>>2)&0x7 | byte(sr>>3)&0x8
}

func (sr StatusRegister) String() string {
	b := fmt.Sprintf("%08b", byte(sr))
	var s []string
	if sr.StatusRegisterProtect() {
		s = append(s, "SRP")
	}
	if bp := sr.BlockProtect(); bp != 0 {
		s = append(s, fmt.Sprintf("BP=%d", bp))
	}
	if sr.TopBottom() {
		s = append(s, "TB")
	}
	if sr.WriteEnabled() {
		s = append(s, "WEL")
	}
	if sr.Busy() {
		s = append(s, "BUSY")
	}
	if len(s) == 0 {
		return b
	}
	return b + " " + strings.Join(s, ",")
}
