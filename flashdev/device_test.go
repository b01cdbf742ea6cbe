package flashdev

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	dev := Default()
	require.NoError(t, dev.Validate())
	assert.Equal(t, uint32(0x90000000), dev.Base)
	assert.Equal(t, uint32(4096), dev.PageSize)
	assert.Equal(t, uint64(0x92000000), dev.End())
}

func TestParseReader(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		check   func(t *testing.T, dev *Device)
		wantErr string
	}{
		{
			name: "full description",
			input: `
name: EVAL_N25Q32
type: ext-spi
base: 0x60000000
size: 0x400000
page_size: 256
erased_value: 0xFF
program_timeout: 5ms
erase_timeout: 3s
sectors:
  - { size: 0x1000, start: 0x0 }
  - { size: 0x10000, start: 0x10000 }
`,
			check: func(t *testing.T, dev *Device) {
				assert.Equal(t, "EVAL_N25Q32", dev.Name)
				assert.Equal(t, TypeExtSPI, dev.Type)
				assert.Equal(t, uint32(0x60000000), dev.Base)
				assert.Equal(t, uint32(0x400000), dev.Size)
				assert.Equal(t, uint32(256), dev.PageSize)
				assert.Equal(t, 5*time.Millisecond, dev.ProgramTimeout)
				assert.Equal(t, 3*time.Second, dev.EraseTimeout)
				assert.Len(t, dev.Sectors, 2)
			},
		},
		{
			name:  "defaults fill missing fields",
			input: "name: tiny\nsize: 0x10000\n",
			check: func(t *testing.T, dev *Device) {
				assert.Equal(t, uint32(0x90000000), dev.Base)
				assert.Equal(t, uint32(4096), dev.PageSize)
				assert.Equal(t, byte(0xFF), dev.ErasedValue)
				assert.Equal(t, []SectorRun{{Size: 4096, Start: 0}}, dev.Sectors)
			},
		},
		{
			name:    "empty",
			input:   "",
			wantErr: "empty device description",
		},
		{
			name:    "unknown field",
			input:   "name: x\nsize: 4096\nblock_size: 10\n",
			wantErr: "block_size",
		},
		{
			name:    "page size not a power of two",
			input:   "name: x\nsize: 0x3000\npage_size: 3072\n",
			wantErr: "not a power of two",
		},
		{
			name:    "missing name",
			input:   "size: 4096\nname: \"\"\n",
			wantErr: "name is required",
		},
		{
			name:    "sectors do not tile",
			input:   "name: x\nsize: 0x3000\nsectors:\n  - { size: 0x2000, start: 0 }\n",
			wantErr: "does not fill",
		},
		{
			name:    "wraps address space",
			input:   "name: x\nbase: 0xFFFFF000\nsize: 0x2000\n",
			wantErr: "32-bit address space",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, err := ParseReader(strings.NewReader(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, dev)
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: file\nsize: 0x8000\n"), 0644))

	dev, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "file", dev.Name)

	_, err = Parse(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSectors(t *testing.T) {
	dev := &Device{
		Name:     "mixed",
		Base:     0x1000_0000,
		Size:     0x40000,
		PageSize: 256,
		Sectors: []SectorRun{
			{Size: 0x1000, Start: 0},
			{Size: 0x10000, Start: 0x10000},
		},
	}
	require.NoError(t, dev.Validate())

	s, ok := dev.SectorAt(0x1000_1234)
	require.True(t, ok)
	assert.Equal(t, Sector{Addr: 0x1000_1000, Size: 0x1000}, s)

	s, ok = dev.SectorAt(0x1002_0001)
	require.True(t, ok)
	assert.Equal(t, Sector{Addr: 0x1002_0000, Size: 0x10000}, s)

	_, ok = dev.SectorAt(0x0FFF_FFFF)
	assert.False(t, ok)
	_, ok = dev.SectorAt(0x1004_0000)
	assert.False(t, ok)

	got := dev.Sectors(0x1000_FF00, 0x200)
	assert.Equal(t, []Sector{
		{Addr: 0x1000_F000, Size: 0x1000},
		{Addr: 0x1001_0000, Size: 0x10000},
	}, got)

	assert.Empty(t, dev.Sectors(0x2000_0000, 16))
	assert.Len(t, dev.Sectors(0x1003_0000, 0x100000), 1, "range is clipped to the device")
}

func TestContainsAndPages(t *testing.T) {
	dev := Default()
	assert.True(t, dev.Contains(0x90000000, 32<<20))
	assert.False(t, dev.Contains(0x90000000, 32<<20+1))
	assert.False(t, dev.Contains(0x8FFFFFFF, 1))

	assert.Equal(t, 0, dev.Pages(0))
	assert.Equal(t, 1, dev.Pages(1))
	assert.Equal(t, 2, dev.Pages(4097))
}
