package emu

import (
	"image"
	"image/color"

	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/go-chip-m68k"
)

// Neo-Geo cartridge board memory map (68000, 24-bit, big-endian), fitted
// with the Fatal Fury 2 protection cartridge:
//
//	0x000000-0x0FFFFF  R  P1 program ROM
//	0x100000-0x1FFFFF  RW work RAM, 64KB mirrored
//	0x200000-0x2FFFFF  RW cartridge protection, word wide
//	0x300000-0x31FFFF  R  P1 controls (even), DIP switches (odd)
//	0x300000-0x31FFFF  W  watchdog
//	0x320000-0x33FFFF  R  coins and service
//	0x340000-0x37FFFF  R  P2 controls
//	0x380000-0x39FFFF  R  start and select
//	0x380000-0x39FFFF  W  outputs
//	0x3A0000-0x3BFFFF  W  system latches
//	0x3C0000-0x3DFFFF  RW video controller registers, mirrored every 16 bytes
//	0x400000-0x401FFF  RW palette RAM
//
// Only the fix layer is drawn. The BIOS is not loaded; the program ROM
// supplies the reset vectors.
const (
	neoScreenWidth  = 320
	neoScreenHeight = 256
)

var neoVisible = image.Rect(0, 16, neoScreenWidth, 240)

var neoLayout = ROMLayout{
	{Name: "program", Size: 0x100000},
	{Name: "fix", Size: 0x20000},
}

// Neo-Geo board control registers.
const (
	neoRegSystem ControlReg = iota
)

// System latch bits, indexed by bits 3:1 of the latch address.
const (
	neoLatchShadow     = 0x01
	neoLatchVectors    = 0x02
	neoLatchFixSource  = 0x20
	neoLatchSRAMLock   = 0x40
	neoLatchPaletteBnk = 0x80
)

// Neo-Geo buttons beyond the directions, as bits of the SetInput mask.
const (
	NeoA = 4 + iota
	NeoB
	NeoC
	NeoD
	NeoStart
	NeoSelect
	NeoCoin
	NeoService
)

// Video RAM geometry in words.
const (
	neoVRAMWords = 0x8800
	neoFixBase   = 0x7000
	neoFixCols   = 40
	neoFixRows   = 32
)

// neoBackdrop is the palette entry shown where no layer draws.
const neoBackdrop = 0xFFF

// neoFixCell maps a byte of fix map storage to its tile index. The map is
// column-major, one word per tile.
func neoFixCell(offset int) int {
	w := offset / 2
	return (w%neoFixRows)*neoFixCols + w/neoFixRows
}

func neoFixInfo(mem []byte, index int, cs *ControlState) TileRecord {
	w := (index%neoFixCols)*neoFixRows + index/neoFixCols
	v := uint16(mem[2*w])<<8 | uint16(mem[2*w+1])
	return TileRecord{
		CodeLow: uint32(v & 0x0FFF),
		Color:   v >> 12,
	}
}

// neoFixRowOrder lists, for each packed byte of a tile row, the source
// byte of the fix ROM tile holding those two pixels.
var neoFixRowOrder = [4]int{0x10, 0x18, 0x00, 0x08}

// decodeNeoFix reorders fix ROM tiles into packed rows of 4bpp pixels,
// left pixel in the low nibble.
func decodeNeoFix(src []byte) []byte {
	out := make([]byte, len(src))
	for t := 0; t+32 <= len(src); t += 32 {
		for row := 0; row < 8; row++ {
			for k, base := range neoFixRowOrder {
				out[t+row*4+k] = src[t+base+row]
			}
		}
	}
	return out
}

// neoColor decodes a Neo-Geo palette word: bits 11-0 hold the upper four
// bits of red, green and blue, and bits 14-12 their shared low bits. The
// dark bit is ignored.
func neoColor(w uint16) color.RGBA {
	r := uint8(w>>7)&0x1E | uint8(w>>14)&1
	g := uint8(w>>3)&0x1E | uint8(w>>13)&1
	b := uint8(w<<1)&0x1E | uint8(w>>12)&1
	return color.RGBA{R: pal5bit(r), G: pal5bit(g), B: pal5bit(b), A: 0xFF}
}

// neoVideo is the video controller register window: a VRAM address, a
// data port that steps the address by the modulo, and mode registers.
// Fix map words are stored in the fix layer so writes dirty its tiles.
type neoVideo struct {
	vram *RAM
	fix  *Tilemap
	addr uint16
	mod  uint16
	mode uint16
}

func vramIndex(addr uint16) int {
	if addr&0x8000 != 0 {
		return 0x8000 + int(addr&0x07FF)
	}
	return int(addr)
}

func (v *neoVideo) readVRAM() uint16 {
	i := vramIndex(v.addr)
	if i >= neoFixBase && i < neoFixBase+neoFixCols*neoFixRows {
		mem := v.fix.Memory()
		o := (i - neoFixBase) * 2
		return uint16(mem[o])<<8 | uint16(mem[o+1])
	}
	mem := v.vram.Bytes()
	return uint16(mem[2*i])<<8 | uint16(mem[2*i+1])
}

func (v *neoVideo) writeVRAM(val uint16) {
	i := vramIndex(v.addr)
	if i >= neoFixBase && i < neoFixBase+neoFixCols*neoFixRows {
		o := uint32(i-neoFixBase) * 2
		v.fix.Write(o, uint8(val>>8))
		v.fix.Write(o+1, uint8(val))
	} else {
		mem := v.vram.Bytes()
		mem[2*i] = uint8(val >> 8)
		mem[2*i+1] = uint8(val)
	}
	v.addr = v.addr&0x8000 | (v.addr+v.mod)&0x7FFF
}

func (v *neoVideo) readReg(offset uint32) uint16 {
	switch (offset >> 1) & 7 {
	case 0, 1:
		return v.readVRAM()
	case 2:
		return v.mod
	default:
		return v.mode
	}
}

func (v *neoVideo) writeReg(offset uint32, val uint16) {
	switch (offset >> 1) & 7 {
	case 0:
		v.addr = val
	case 1:
		v.writeVRAM(val)
	case 2:
		v.mod = val
	case 3:
		v.mode = val
	}
}

func (v *neoVideo) reset() {
	v.addr, v.mod, v.mode = 0, 0, 0
}

func (v *neoVideo) stateSize() int {
	return 6
}

func (v *neoVideo) saveState(dst []byte) {
	for i, w := range [3]uint16{v.addr, v.mod, v.mode} {
		dst[2*i] = uint8(w)
		dst[2*i+1] = uint8(w >> 8)
	}
}

func (v *neoVideo) loadState(src []byte) {
	v.addr = uint16(src[0]) | uint16(src[1])<<8
	v.mod = uint16(src[2]) | uint16(src[3])<<8
	v.mode = uint16(src[4]) | uint16(src[5])<<8
}

// neoLatchWrite sets or clears one system latch bit. Bit 4 of the word
// address is the value and bits 3:1 pick the latch.
func (m *Machine) neoLatchWrite(offset uint32, val uint8) {
	w := (offset >> 1) & 0x0F
	bit := uint8(1) << (w & 7)
	v := m.control.Value(neoRegSystem)
	if w&0x08 != 0 {
		v |= bit
	} else {
		v &^= bit
	}
	m.control.Commit(neoRegSystem, v)
}

func (m *Machine) buildNeoGeo(logUnmapped bool) error {
	program := m.roms.Segment("program")

	fixGfx, err := NewGfxLayout(8, 8, 4, decodeNeoFix(m.roms.Segment("fix")))
	if err != nil {
		return err
	}
	fixGfx.LowNibbleFirst = true

	m.tiles, err = NewTileCache(m.control, LayerConfig{
		Name:           "fix",
		Cols:           neoFixCols,
		Rows:           neoFixRows,
		Gfx:            fixGfx,
		StorageSize:    neoFixCols * neoFixRows * 2,
		Info:           neoFixInfo,
		Cell:           neoFixCell,
		Transparent:    true,
		TransparentPen: 0,
	})
	if err != nil {
		return err
	}

	m.palette = NewPalette(0x1000)
	m.palette.SetFormat(neoColor)

	work := m.addRAM(0x10000)
	video := &neoVideo{vram: m.addRAM(neoVRAMWords * 2), fix: m.tiles.Layer(0)}
	prot := NewFatFury2Protection(m.logger)
	m.devices = append(m.devices, video, prot)

	m.dsw = [4]uint8{0xFF, 0xFF, 0xFF, 0xFF}
	evenOdd := func(even, odd func() uint8) Handler {
		return HandlerFuncs{ReadFunc: func(offset uint32) uint8 {
			if offset&1 == 0 {
				return even()
			}
			return odd()
		}}
	}
	high := func() uint8 { return 0xFF }

	m.bus, err = NewRouter(RouterConfig{
		Name:        "neogeo",
		AddrBits:    24,
		OpenBus:     DefaultOpenBus,
		LogUnmapped: logUnmapped,
		Logger:      m.logger,
	},
		Region{Name: "rom", Base: 0x000000, Size: 0x100000, Access: DirRead, Handler: ROM(program)},
		Region{Name: "work", Base: 0x100000, Size: 0x100000, Access: DirReadWrite, Handler: work},
		Region{Name: "protection", Base: 0x200000, Size: 0x100000, Access: DirReadWrite, Handler: prot},
		Region{Name: "p1", Base: 0x300000, Size: 0x20000, Access: DirRead, Handler: evenOdd(func() uint8 { return m.neoJoy(0) }, func() uint8 { return m.dsw[0] })},
		Region{Name: "watchdog", Base: 0x300000, Size: 0x20000, Access: DirWrite, Handler: Discard{}},
		Region{Name: "status_a", Base: 0x320000, Size: 0x20000, Access: DirRead, Handler: evenOdd(m.neoStatusA, high)},
		Region{Name: "p2", Base: 0x340000, Size: 0x40000, Access: DirRead, Handler: evenOdd(func() uint8 { return m.neoJoy(1) }, high)},
		Region{Name: "status_b", Base: 0x380000, Size: 0x20000, Access: DirRead, Handler: evenOdd(m.neoStatusB, high)},
		Region{Name: "outputs", Base: 0x380000, Size: 0x20000, Access: DirWrite, Handler: Discard{}},
		Region{Name: "latches", Base: 0x3A0000, Size: 0x20000, Access: DirWrite, Handler: HandlerFuncs{WriteFunc: m.neoLatchWrite}},
		Region{Name: "video", Base: 0x3C0000, Size: 0x20000, Access: DirReadWrite, Handler: WordFuncs{ReadFunc: video.readReg, WriteFunc: video.writeReg}},
		Region{Name: "palette", Base: 0x400000, Size: 0x2000, Access: DirReadWrite, Handler: m.palette},
	)
	if err != nil {
		return err
	}

	m.comp, err = NewCompositor(m.control, m.tiles, CompositorConfig{
		Background: neoBackdrop,
		Overlay:    []Placement{{Layer: 0}},
	})
	if err != nil {
		return err
	}

	m.frame = NewFrameBuffer(neoScreenWidth, neoScreenHeight)
	m.visible = neoVisible
	m.m68kPort = NewM68KPort(m.bus)
	m.m68k = m68k.New(m.m68kPort)
	m.vblankLevel = 1
	return nil
}

// neoJoy packs one player's controls, active low.
func (m *Machine) neoJoy(player int) uint8 {
	return activeLow(
		m.pressed(player, uint(emucore.ButtonUp)),
		m.pressed(player, uint(emucore.ButtonDown)),
		m.pressed(player, uint(emucore.ButtonLeft)),
		m.pressed(player, uint(emucore.ButtonRight)),
		m.pressed(player, NeoA),
		m.pressed(player, NeoB),
		m.pressed(player, NeoC),
		m.pressed(player, NeoD),
	)
}

// neoStatusA packs the coin slots and service button, active low.
func (m *Machine) neoStatusA() uint8 {
	return activeLow(
		m.pressed(0, NeoCoin),
		m.pressed(1, NeoCoin),
		m.pressed(0, NeoService),
	)
}

// neoStatusB packs start and select for both players, active low. The
// memory card bits read as no card and bit 7 reports an arcade board.
func (m *Machine) neoStatusB() uint8 {
	v := activeLow(
		m.pressed(0, NeoStart),
		m.pressed(0, NeoSelect),
		m.pressed(1, NeoStart),
		m.pressed(1, NeoSelect),
	)
	return v &^ 0x80
}
