package emu

import (
	"encoding/binary"
	"log"
)

// FatFury2Protection is the 16-bit protection device of the Fatal Fury 2
// cartridge. It answers across the whole cartridge window: writes to a
// handful of trigger offsets load or shift a 32-bit register, and reads
// return its top byte, nibble-swapped at two offsets.
type FatFury2Protection struct {
	data   uint32
	logger *log.Logger
}

var _ WordHandler = (*FatFury2Protection)(nil)

// NewFatFury2Protection returns the device with a cleared register.
func NewFatFury2Protection(logger *log.Logger) *FatFury2Protection {
	if logger == nil {
		logger = log.Default()
	}
	return &FatFury2Protection{logger: logger}
}

// Value returns the protection register.
func (p *FatFury2Protection) Value() uint32 {
	return p.data
}

func (p *FatFury2Protection) ReadWord(offset uint32) uint16 {
	res := uint16(p.data >> 24)
	switch offset &^ 1 {
	case 0x55550, 0xFFFF0, 0x00000, 0xFF000, 0x36000, 0x36008:
		return res
	case 0x36004, 0x3600C:
		return (res&0xF0)>>4 | (res&0x0F)<<4
	default:
		p.logger.Printf("fatfury2: unknown protection read at 0x%05X", offset)
		return 0
	}
}

func (p *FatFury2Protection) WriteWord(offset uint32, val uint16) {
	switch offset &^ 1 {
	case 0x11112: // 0x1111, expects 0xff000000 back
		p.data = 0xFF000000
	case 0x33332: // 0x3333, expects 0x0000ffff back
		p.data = 0x0000FFFF
	case 0x44442: // 0x4444, expects 0x00ff0000 back
		p.data = 0x00FF0000
	case 0x55552: // 0x5555, read back from 55550, ffff0, 00000, ff000
		p.data = 0xFF00FF00
	case 0x56782: // 0x1234, read back from 36000 or 36004
		p.data = 0xF05A3601
	case 0x42812: // 0x1824, read back from 36008 or 3600c
		p.data = 0x81422418
	case 0x55550, 0xFFFF0, 0xFF000, 0x36000, 0x36004, 0x36008, 0x3600C, 0x00000:
		p.data <<= 8
	default:
		p.logger.Printf("fatfury2: unknown protection write 0x%04X at 0x%05X", val, offset)
	}
}

// Read returns the addressed half of the word at offset.
func (p *FatFury2Protection) Read(offset uint32) uint8 {
	w := p.ReadWord(offset)
	if offset&1 == 0 {
		return uint8(w >> 8)
	}
	return uint8(w)
}

// Write treats a byte cycle as a word cycle. The device decodes only the
// address.
func (p *FatFury2Protection) Write(offset uint32, val uint8) {
	p.WriteWord(offset, uint16(val)<<8|uint16(val))
}

func (p *FatFury2Protection) reset() {
	p.data = 0
}

func (p *FatFury2Protection) stateSize() int {
	return 4
}

func (p *FatFury2Protection) saveState(dst []byte) {
	binary.LittleEndian.PutUint32(dst, p.data)
}

func (p *FatFury2Protection) loadState(src []byte) {
	p.data = binary.LittleEndian.Uint32(src)
}
