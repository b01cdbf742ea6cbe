package w25q

import "time"

// Params describes the geometry and worst-case timings of a flash part.
type Params struct {
	Name string

	// Size is the device capacity in bytes
	Size uint32

	// tPP: page program time
	TPageProgram time.Duration
	// tSE: 4KB sector erase time
	TSectorErase time.Duration
	// tCE: chip erase time
	TChipErase time.Duration
}

// JEDEC IDs of known parts: manufacturer, memory type, capacity.
var (
	IDWinbondW25Q256   = [3]byte{0xEF, 0x40, 0x19}
	IDWinbondW25Q128   = [3]byte{0xEF, 0x40, 0x18}
	IDWinbondW25Q128IM = [3]byte{0xEF, 0x70, 0x18}
	IDMicronN25Q32     = [3]byte{0x20, 0xBA, 0x16}
)

var knownFlash = map[[3]byte]Params{
	// [W25Q256JV|9.6 AC Electrical Characteristics]
	IDWinbondW25Q256: {
		Name:         "Winbond W25Q256",
		Size:         32 << 20,
		TPageProgram: 3 * time.Millisecond,
		TSectorErase: 400 * time.Millisecond,
		TChipErase:   400 * time.Second,
	},
	// [W25Q128JV|9.6 AC Electrical Characteristics]
	IDWinbondW25Q128: {
		Name:         "Winbond W25Q128",
		Size:         16 << 20,
		TPageProgram: 3 * time.Millisecond,
		TSectorErase: 400 * time.Millisecond,
		TChipErase:   200 * time.Second,
	},
	IDWinbondW25Q128IM: {
		Name:         "Winbond W25Q128 (DTR)",
		Size:         16 << 20,
		TPageProgram: 3 * time.Millisecond,
		TSectorErase: 400 * time.Millisecond,
		TChipErase:   200 * time.Second,
	},
	// [N25Q32|Table 38: AC Characteristics and Operating Conditions]
	IDMicronN25Q32: {
		Name:         "Micron N25Q 32Mb",
		Size:         4 << 20,
		TPageProgram: 5 * time.Millisecond,
		TSectorErase: 800 * time.Millisecond,
		TChipErase:   60 * time.Second,
	},
}

// Lookup returns the parameters of a known part.
func Lookup(id [3]byte) (Params, bool) {
	p, ok := knownFlash[id]
	return p, ok
}

// genericParams derives parameters for an unknown part from the JEDEC
// capacity byte, using the slowest timings of all known parts.
func genericParams(id [3]byte) Params {
	p := Params{Name: "unknown"}
	if id[2] >= 10 && id[2] <= 31 {
		p.Size = 1 << id[2]
	}
	for _, k := range knownFlash {
		p.TPageProgram = max(p.TPageProgram, k.TPageProgram)
		p.TSectorErase = max(p.TSectorErase, k.TSectorErase)
		p.TChipErase = max(p.TChipErase, k.TChipErase)
	}
	return p
}
