// Package image loads firmware images to be written to flash.
//
// Two formats are supported: Intel HEX files, whose records carry their
// own addresses, and raw binaries, which are placed at a caller-supplied
// address.
//
//	img, err := image.Parse("firmware.hex", 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, seg := range img.Segments {
//	    fmt.Printf("0x%08X: %d bytes\n", seg.Addr, len(seg.Data))
//	}
//
// # Intel HEX
//
// Each record line has the form
//
//	:LLAAAATT[DD...]CC
//
// with LL the data length, AAAA the 16-bit load offset, TT the record type
// and CC the two's complement checksum of all preceding bytes. Data (00),
// end of file (01), extended segment address (02), start segment address
// (03), extended linear address (04) and start linear address (05) records
// are understood. Contiguous data records are merged into one segment.
package image
