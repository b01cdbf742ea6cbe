package image

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Intel HEX record types.
const (
	RecordData                   = 0x00
	RecordEOF                    = 0x01
	RecordExtendedSegmentAddress = 0x02
	RecordStartSegmentAddress    = 0x03
	RecordExtendedLinearAddress  = 0x04
	RecordStartLinearAddress     = 0x05
)

const (
	// MinimumRecordLength is the minimum length of a record line in hex
	// characters after the ':' (length, address, type, checksum)
	MinimumRecordLength = 10

	// RecordHeaderSize is the size of the record header (length + address + type)
	RecordHeaderSize = 4
)

// Parse reads an image from the given file path. Files with a .hex or .ihex
// extension are parsed as Intel HEX; anything else is a raw binary placed
// at base.
func Parse(path string, base uint32) (*Image, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihex":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		return ParseHex(f)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		return FromBinary(base, data)
	}
}

// ParseHex parses Intel HEX records from r.
func ParseHex(r io.Reader) (*Image, error) {
	scanner := bufio.NewScanner(r)
	img := &Image{}

	var (
		upper   uint32 // extended linear or segment base
		lineNum int
		sawEOF  bool
	)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines
		if line == "" {
			continue
		}
		if sawEOF {
			return nil, fmt.Errorf("line %d: data after end of file record", lineNum)
		}

		rec, err := parseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		switch rec.typ {
		case RecordData:
			addr := upper + uint32(rec.offset)
			if uint64(addr)+uint64(len(rec.data)) > 1<<32 {
				return nil, fmt.Errorf("line %d: data at 0x%08X exceeds the 32-bit address space", lineNum, addr)
			}
			img.add(addr, rec.data)
		case RecordEOF:
			sawEOF = true
		case RecordExtendedSegmentAddress:
			if len(rec.data) != 2 {
				return nil, fmt.Errorf("line %d: extended segment address needs 2 bytes, got %d", lineNum, len(rec.data))
			}
			upper = (uint32(rec.data[0])<<8 | uint32(rec.data[1])) << 4
		case RecordExtendedLinearAddress:
			if len(rec.data) != 2 {
				return nil, fmt.Errorf("line %d: extended linear address needs 2 bytes, got %d", lineNum, len(rec.data))
			}
			upper = (uint32(rec.data[0])<<8 | uint32(rec.data[1])) << 16
		case RecordStartSegmentAddress, RecordStartLinearAddress:
			if len(rec.data) != 4 {
				return nil, fmt.Errorf("line %d: start address needs 4 bytes, got %d", lineNum, len(rec.data))
			}
			cs := uint32(rec.data[0])<<8 | uint32(rec.data[1])
			ip := uint32(rec.data[2])<<8 | uint32(rec.data[3])
			if rec.typ == RecordStartSegmentAddress {
				img.Entry = cs<<4 + ip
			} else {
				img.Entry = cs<<16 | ip
			}
			img.HasEntry = true
		default:
			return nil, fmt.Errorf("line %d: unknown record type 0x%02X", lineNum, rec.typ)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if !sawEOF {
		return nil, fmt.Errorf("missing end of file record")
	}
	if err := img.normalize(); err != nil {
		return nil, err
	}
	return img, nil
}

type record struct {
	typ    byte
	offset uint16
	data   []byte
}

// parseRecord parses a single record line.
//
// Record format after the ':':
//
//	[Length(1)][Offset(2, big-endian)][Type(1)][Data(Length)][Checksum(1)]
//
// Example: ":0300300002337A1E"
//
//	Length: 0x03
//	Offset: 0x0030
//	Type: 0x00 (data)
//	Data: [0x02, 0x33, 0x7A]
//	Checksum: 0x1E
func parseRecord(line string) (*record, error) {
	if line[0] != ':' {
		return nil, fmt.Errorf("record must start with ':'")
	}
	line = line[1:]

	if len(line) < MinimumRecordLength {
		return nil, fmt.Errorf("record too short: got %d characters, minimum is %d", len(line), MinimumRecordLength)
	}

	raw, err := hex.DecodeString(line)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}

	dataLen := int(raw[0])
	expectedLen := RecordHeaderSize + dataLen + 1
	if len(raw) != expectedLen {
		return nil, fmt.Errorf("data length mismatch: got %d bytes, expected %d (header=%d + data=%d + checksum=1)",
			len(raw), expectedLen, RecordHeaderSize, dataLen)
	}

	checksum := raw[len(raw)-1]
	calculated := calculateChecksum(raw[:len(raw)-1])
	if checksum != calculated {
		return nil, fmt.Errorf("checksum mismatch: got 0x%02X, expected 0x%02X", checksum, calculated)
	}

	return &record{
		typ:    raw[3],
		offset: uint16(raw[1])<<8 | uint16(raw[2]),
		data:   raw[RecordHeaderSize : RecordHeaderSize+dataLen],
	}, nil
}

// calculateChecksum computes the record checksum: the two's complement of
// the sum of all bytes.
func calculateChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return ^sum + 1
}
