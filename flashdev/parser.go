package flashdev

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse reads a device description from the given file path.
func Parse(path string) (*Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseReader(f)
}

// ParseReader reads a device description from any io.Reader. Fields left
// out default to the values of Default.
func ParseReader(r io.Reader) (*Device, error) {
	dev := Default()
	dev.Sectors = nil

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(dev); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty device description")
		}
		return nil, fmt.Errorf("failed to decode device description: %w", err)
	}
	if len(dev.Sectors) == 0 {
		dev.Sectors = []SectorRun{{Size: dev.PageSize, Start: 0}}
	}

	if err := dev.Validate(); err != nil {
		return nil, err
	}
	return dev, nil
}

// Validate checks the description for consistency.
func (d *Device) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("device name is required")
	}
	if d.Size == 0 {
		return fmt.Errorf("device %s: size must not be zero", d.Name)
	}
	if uint64(d.Base)+uint64(d.Size) > 1<<32 {
		return fmt.Errorf("device %s: 0x%08X+0x%X exceeds the 32-bit address space", d.Name, d.Base, d.Size)
	}
	if d.PageSize == 0 || d.PageSize&(d.PageSize-1) != 0 {
		return fmt.Errorf("device %s: page size %d is not a power of two", d.Name, d.PageSize)
	}
	if d.Size%d.PageSize != 0 {
		return fmt.Errorf("device %s: size 0x%X is not a multiple of the page size %d", d.Name, d.Size, d.PageSize)
	}
	if len(d.Sectors) == 0 {
		return fmt.Errorf("device %s: no sectors", d.Name)
	}
	if d.Sectors[0].Start != 0 {
		return fmt.Errorf("device %s: first sector run must start at 0, got 0x%X", d.Name, d.Sectors[0].Start)
	}
	for i, run := range d.Sectors {
		if run.Size == 0 {
			return fmt.Errorf("device %s: sector run %d has zero size", d.Name, i)
		}
		end := d.Size
		if i+1 < len(d.Sectors) {
			end = d.Sectors[i+1].Start
		}
		if end <= run.Start || end > d.Size {
			return fmt.Errorf("device %s: sector run %d at 0x%X is out of order", d.Name, i, run.Start)
		}
		if (end-run.Start)%run.Size != 0 {
			return fmt.Errorf("device %s: sector run %d does not fill 0x%X-0x%X with %d byte sectors",
				d.Name, i, run.Start, end, run.Size)
		}
	}
	return nil
}
