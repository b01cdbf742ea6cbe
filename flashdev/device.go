package flashdev

import (
	"time"
)

// DeviceType classifies the memory technology, as in the host tool's
// device description.
type DeviceType string

// Device types.
const (
	TypeOnChip DeviceType = "on-chip"
	TypeExt8   DeviceType = "ext-8bit"
	TypeExt16  DeviceType = "ext-16bit"
	TypeExt32  DeviceType = "ext-32bit"
	TypeExtSPI DeviceType = "ext-spi"
)

// Device is a flash device description.
type Device struct {
	// Name identifies the device and board combination
	Name string `yaml:"name"`

	// Type is the memory technology
	Type DeviceType `yaml:"type"`

	// Base is the address the device is mapped at in the host tool's view
	Base uint32 `yaml:"base"`

	// Size is the device size in bytes
	Size uint32 `yaml:"size"`

	// PageSize is the programming unit and the verify buffer size. It must
	// be a power of two.
	PageSize uint32 `yaml:"page_size"`

	// ErasedValue is the value of an erased byte
	ErasedValue byte `yaml:"erased_value"`

	// ProgramTimeout bounds a single page program
	ProgramTimeout time.Duration `yaml:"program_timeout"`

	// EraseTimeout bounds a single sector erase
	EraseTimeout time.Duration `yaml:"erase_timeout"`

	// Sectors lists the runs of equally sized sectors, by ascending start
	Sectors []SectorRun `yaml:"sectors"`
}

// SectorRun starts a run of sectors of Size bytes at device offset Start.
type SectorRun struct {
	Size  uint32 `yaml:"size"`
	Start uint32 `yaml:"start"`
}

// Sector is a single erase unit at an absolute address.
type Sector struct {
	Addr uint32
	Size uint32
}

// Default returns the description of a Winbond W25Q256 behind the QSPI
// interface of an STM32H743, mapped at 0x90000000.
func Default() *Device {
	return &Device{
		Name:           "STM32H743_W25Q256",
		Type:           TypeExtSPI,
		Base:           0x90000000,
		Size:           32 << 20,
		PageSize:       4096,
		ErasedValue:    0xFF,
		ProgramTimeout: 100 * time.Millisecond,
		EraseTimeout:   6 * time.Second,
		Sectors:        []SectorRun{{Size: 4096, Start: 0}},
	}
}

// Contains reports whether [addr, addr+n) lies inside the device.
func (d *Device) Contains(addr uint32, n int) bool {
	if addr < d.Base || n < 0 {
		return false
	}
	return uint64(addr-d.Base)+uint64(n) <= uint64(d.Size)
}

// End returns the first address after the device.
func (d *Device) End() uint64 {
	return uint64(d.Base) + uint64(d.Size)
}

// SectorAt returns the sector containing addr.
func (d *Device) SectorAt(addr uint32) (Sector, bool) {
	if !d.Contains(addr, 1) {
		return Sector{}, false
	}
	off := addr - d.Base
	for i, run := range d.Sectors {
		end := d.Size
		if i+1 < len(d.Sectors) {
			end = d.Sectors[i+1].Start
		}
		if off < run.Start || off >= end {
			continue
		}
		start := run.Start + (off-run.Start)/run.Size*run.Size
		return Sector{Addr: d.Base + start, Size: run.Size}, true
	}
	return Sector{}, false
}

// Sectors returns the sectors overlapping [addr, addr+n), in address order.
// Parts of the range outside the device are ignored.
func (d *Device) Sectors(addr uint32, n int) []Sector {
	var out []Sector
	end := uint64(addr) + uint64(n)
	if end > d.End() {
		end = d.End()
	}
	a := uint64(max(addr, d.Base))
	for a < end {
		s, ok := d.SectorAt(uint32(a))
		if !ok {
			break
		}
		out = append(out, s)
		a = uint64(s.Addr) + uint64(s.Size)
	}
	return out
}

// Pages returns the number of pages needed to hold n bytes.
func (d *Device) Pages(n int) int {
	return (n + int(d.PageSize) - 1) / int(d.PageSize)
}
