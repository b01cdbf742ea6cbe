package image

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rec builds a record line with a valid checksum.
func rec(typ byte, offset uint16, data ...byte) string {
	raw := []byte{byte(len(data)), byte(offset >> 8), byte(offset), typ}
	raw = append(raw, data...)
	raw = append(raw, calculateChecksum(raw))
	return ":" + strings.ToUpper(hex.EncodeToString(raw))
}

func hexFile(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestChecksum(t *testing.T) {
	// Well-known example record
	r, err := parseRecord(":0300300002337A1E")
	require.NoError(t, err)
	assert.Equal(t, byte(RecordData), r.typ)
	assert.Equal(t, uint16(0x0030), r.offset)
	assert.Equal(t, []byte{0x02, 0x33, 0x7A}, r.data)
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     []*Segment
		entry    uint32
		hasEntry bool
		wantErr  string
	}{
		{
			name: "single data record",
			input: hexFile(
				rec(RecordData, 0x0010, 1, 2, 3, 4),
				rec(RecordEOF, 0),
			),
			want: []*Segment{{Addr: 0x10, Data: []byte{1, 2, 3, 4}}},
		},
		{
			name: "contiguous records merge",
			input: hexFile(
				rec(RecordExtendedLinearAddress, 0, 0x90, 0x00),
				rec(RecordData, 0x0000, 1, 2),
				rec(RecordData, 0x0002, 3, 4),
				rec(RecordData, 0x1000, 5),
				rec(RecordStartLinearAddress, 0, 0x90, 0x00, 0x01, 0x01),
				rec(RecordEOF, 0),
			),
			want: []*Segment{
				{Addr: 0x90000000, Data: []byte{1, 2, 3, 4}},
				{Addr: 0x90001000, Data: []byte{5}},
			},
			entry:    0x90000101,
			hasEntry: true,
		},
		{
			name: "out of order records are sorted",
			input: hexFile(
				rec(RecordData, 0x0004, 5, 6),
				rec(RecordData, 0x0000, 1, 2, 3, 4),
				rec(RecordEOF, 0),
			),
			want: []*Segment{{Addr: 0, Data: []byte{1, 2, 3, 4, 5, 6}}},
		},
		{
			name: "extended segment address",
			input: hexFile(
				rec(RecordExtendedSegmentAddress, 0, 0x10, 0x00),
				rec(RecordData, 0x0020, 0xAA),
				rec(RecordStartSegmentAddress, 0, 0x10, 0x00, 0x00, 0x20),
				rec(RecordEOF, 0),
			),
			want:     []*Segment{{Addr: 0x10020, Data: []byte{0xAA}}},
			entry:    0x10020,
			hasEntry: true,
		},
		{
			name:    "bad checksum",
			input:   hexFile(":0300300002337A1F", rec(RecordEOF, 0)),
			wantErr: "checksum mismatch",
		},
		{
			name:    "missing colon",
			input:   hexFile("0300300002337A1E"),
			wantErr: "must start with ':'",
		},
		{
			name:    "too short",
			input:   hexFile(":0000"),
			wantErr: "record too short",
		},
		{
			name:    "length mismatch",
			input:   hexFile(":0400300002337A1D"),
			wantErr: "data length mismatch",
		},
		{
			name:    "invalid hex",
			input:   hexFile(":0300300002337AZZ"),
			wantErr: "invalid hex data",
		},
		{
			name:    "missing eof",
			input:   hexFile(rec(RecordData, 0, 1)),
			wantErr: "missing end of file",
		},
		{
			name:    "data after eof",
			input:   hexFile(rec(RecordEOF, 0), rec(RecordData, 0, 1)),
			wantErr: "after end of file",
		},
		{
			name:    "unknown record type",
			input:   hexFile(rec(0x07, 0, 1), rec(RecordEOF, 0)),
			wantErr: "unknown record type 0x07",
		},
		{
			name: "overlap",
			input: hexFile(
				rec(RecordData, 0x0000, 1, 2, 3, 4),
				rec(RecordData, 0x0002, 9),
				rec(RecordEOF, 0),
			),
			wantErr: "overlaps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := ParseHex(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, img.Segments)
			assert.Equal(t, tt.entry, img.Entry)
			assert.Equal(t, tt.hasEntry, img.HasEntry)
		})
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()

	hexPath := filepath.Join(dir, "fw.hex")
	content := hexFile(rec(RecordExtendedLinearAddress, 0, 0x90, 0x00), rec(RecordData, 0, 7, 8), rec(RecordEOF, 0))
	require.NoError(t, os.WriteFile(hexPath, []byte(content), 0644))

	img, err := Parse(hexPath, 0)
	require.NoError(t, err)
	lo, hi := img.Bounds()
	assert.Equal(t, uint32(0x90000000), lo)
	assert.Equal(t, uint64(0x90000002), hi)

	binPath := filepath.Join(dir, "fw.bin")
	require.NoError(t, os.WriteFile(binPath, []byte{1, 2, 3}, 0644))

	img, err = Parse(binPath, 0x90001000)
	require.NoError(t, err)
	require.Len(t, img.Segments, 1)
	assert.Equal(t, uint32(0x90001000), img.Segments[0].Addr)
	assert.Equal(t, 3, img.Size())

	_, err = Parse(filepath.Join(dir, "missing.bin"), 0)
	assert.Error(t, err)
}

func TestFromBinary(t *testing.T) {
	img, err := FromBinary(0x100, nil)
	require.NoError(t, err)
	assert.Empty(t, img.Segments)
	lo, hi := img.Bounds()
	assert.Zero(t, lo)
	assert.Zero(t, hi)

	_, err = FromBinary(0xFFFFFFFF, []byte{1, 2})
	assert.Error(t, err)
}

func ExampleParseHex() {
	input := ":0200000490006A\n:0400000001020304F2\n:00000001FF\n"

	img, err := ParseHex(strings.NewReader(input))
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, s := range img.Segments {
		fmt.Printf("0x%08X: % X\n", s.Addr, s.Data)
	}
	// Output: 0x90000000: 01 02 03 04
}
