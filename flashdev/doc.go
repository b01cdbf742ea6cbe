// Package flashdev describes a flash device the way a host tool sees it:
// where it is mapped, how large it is, and how it is divided into pages
// and sectors.
//
// Descriptions are YAML documents:
//
//	name: STM32H743_W25Q256
//	type: ext-spi
//	base: 0x90000000
//	size: 0x2000000
//	page_size: 4096
//	erased_value: 0xFF
//	program_timeout: 100ms
//	erase_timeout: 6s
//	sectors:
//	  - { size: 0x1000, start: 0x0 }
//
// Each sectors entry starts a run of equally sized sectors that lasts until
// the next entry's start or the end of the device.
//
//	dev, err := flashdev.Parse("w25q256.yaml")
//	for _, s := range dev.Sectors(addr, len(data)) {
//	    fmt.Printf("sector 0x%08X (%d bytes)\n", s.Addr, s.Size)
//	}
package flashdev
