package emu

import (
	"errors"
	"fmt"
	"hash/crc32"
)

// Segment is one named ROM region of a board, in load order.
type Segment struct {
	Name string
	Size int
}

// ROMLayout lists the segments a flat ROM image is split into.
type ROMLayout []Segment

// Size returns the total size of the layout.
func (l ROMLayout) Size() int {
	n := 0
	for _, s := range l {
		n += s.Size
	}
	return n
}

// ROMSet is a ROM image split into segments.
type ROMSet struct {
	segments map[string][]byte
	crc      uint32
}

// LoadROMSet splits rom by layout. A short image is zero-padded so a
// board can boot with missing graphics; an image larger than the layout
// is rejected.
func LoadROMSet(rom []byte, layout ROMLayout) (*ROMSet, error) {
	if len(rom) == 0 {
		return nil, errors.New("ROM image is empty")
	}
	if len(rom) > layout.Size() {
		return nil, fmt.Errorf("ROM image too large for board (%d bytes, expected at most %d)", len(rom), layout.Size())
	}

	set := &ROMSet{
		segments: make(map[string][]byte, len(layout)),
		crc:      crc32.ChecksumIEEE(rom),
	}
	off := 0
	for _, s := range layout {
		seg := make([]byte, s.Size)
		if off < len(rom) {
			copy(seg, rom[off:])
		}
		set.segments[s.Name] = seg
		off += s.Size
	}
	return set, nil
}

// Segment returns the named segment, or nil.
func (s *ROMSet) Segment(name string) []byte {
	return s.segments[name]
}

// CRC32 returns the checksum of the original image.
func (s *ROMSet) CRC32() uint32 {
	return s.crc
}
