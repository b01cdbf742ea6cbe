package image

import (
	"fmt"
	"sort"
)

// Image is a set of non-overlapping memory segments in address order.
type Image struct {
	// Segments holds the image contents, sorted by address
	Segments []*Segment

	// Entry is the start address from a start linear or start segment
	// address record, if present
	Entry uint32

	// HasEntry reports whether Entry was set
	HasEntry bool
}

// Segment is a contiguous run of bytes.
type Segment struct {
	Addr uint32
	Data []byte
}

// End returns the first address after the segment.
func (s *Segment) End() uint64 {
	return uint64(s.Addr) + uint64(len(s.Data))
}

// FromBinary returns an image holding data at addr.
func FromBinary(addr uint32, data []byte) (*Image, error) {
	if uint64(addr)+uint64(len(data)) > 1<<32 {
		return nil, fmt.Errorf("binary of %d bytes at 0x%08X exceeds the 32-bit address space", len(data), addr)
	}
	img := &Image{}
	if len(data) > 0 {
		img.Segments = []*Segment{{Addr: addr, Data: data}}
	}
	return img, nil
}

// Size returns the number of data bytes in the image.
func (img *Image) Size() int {
	n := 0
	for _, s := range img.Segments {
		n += len(s.Data)
	}
	return n
}

// Bounds returns the lowest address and the first address after the image.
func (img *Image) Bounds() (lo uint32, hi uint64) {
	if len(img.Segments) == 0 {
		return 0, 0
	}
	return img.Segments[0].Addr, img.Segments[len(img.Segments)-1].End()
}

// add places data at addr, appending to the previous segment when
// contiguous.
func (img *Image) add(addr uint32, data []byte) {
	if n := len(img.Segments); n > 0 {
		last := img.Segments[n-1]
		if last.End() == uint64(addr) {
			last.Data = append(last.Data, data...)
			return
		}
	}
	seg := &Segment{Addr: addr, Data: make([]byte, len(data))}
	copy(seg.Data, data)
	img.Segments = append(img.Segments, seg)
}

// normalize sorts segments, merges adjacent ones and rejects overlaps.
func (img *Image) normalize() error {
	sort.SliceStable(img.Segments, func(i, j int) bool {
		return img.Segments[i].Addr < img.Segments[j].Addr
	})
	var out []*Segment
	for _, s := range img.Segments {
		if n := len(out); n > 0 {
			prev := out[n-1]
			if prev.End() > uint64(s.Addr) {
				return fmt.Errorf("data at 0x%08X overlaps segment 0x%08X-0x%08X", s.Addr, prev.Addr, prev.End())
			}
			if prev.End() == uint64(s.Addr) {
				prev.Data = append(prev.Data, s.Data...)
				continue
			}
		}
		out = append(out, s)
	}
	img.Segments = out
	return nil
}
