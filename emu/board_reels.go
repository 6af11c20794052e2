package emu

import (
	"image"

	"github.com/user-none/go-chip-z80"
)

// Reel board memory map (Z80, 16-bit):
//
//	0x0000-0xBFFF  program ROM
//	0xC000-0xC1FF  palette, low bytes
//	0xC800-0xC9FF  palette, high bytes
//	0xD000-0xD7FF  program ROM
//	0xD800-0xDFFF  battery RAM
//	0xE000-0xEFFF  text layer RAM (codes, then attributes at +0x800)
//	0xF000-0xF5FF  reel layer RAM, 0x200 per reel
//	0xF600-0xF7FF  work RAM
//	0xF840-0xF93F  reel scroll RAM, 0x40 per reel (0xF8C0-0xF8FF unused)
//	0xF9C0-0xF9FF  alternate scroll RAM for the full-screen reel
//
// I/O map (8-bit, mirrored across the port space):
//
//	0x00 W lamps   0x01 W coin counters   0x03 W video control
//	0x04 R IN0     0x05 R IN1             0x06 R DSW4   0x07 R DSW3
//	0x10-0x12 sound chip
const (
	reelScreenWidth  = 512
	reelScreenHeight = 256
)

var reelVisible = image.Rect(0, 8, reelScreenWidth, reelScreenHeight-8)

var reelLayout = ROMLayout{
	{Name: "program", Size: 0x10000},
	{Name: "text", Size: 0x80000},
	{Name: "reels", Size: 0x40000},
}

// Reel board control registers.
const (
	reelRegVideo ControlReg = iota
	reelRegLamps
	reelRegCoins
)

// Video control bits.
const (
	reelTextBank   = 0x01
	reelBankLow    = 0x04
	reelBankHigh   = 0x08
	reelFullScreen = 0x40
)

// Reel board buttons, as bits of the SetInput mask.
const (
	ReelHold1 = 4 + iota
	ReelHold2
	ReelHold3
	ReelStart
	ReelCoinA
	ReelHold4
	ReelHold5
	ReelKeyIn
	ReelBook
	ReelPayout
	ReelCreditOut
	ReelService
	ReelCoinC
	ReelCoinD
)

// Layer indexes.
const (
	reelLayer0 = iota
	reelLayer1
	reelLayer2
	reelText
)

func reelTileInfo(mem []byte, index int, cs *ControlState) TileRecord {
	v := cs.Value(reelRegVideo)
	t := TileRecord{CodeLow: uint32(mem[index])}
	if v&reelBankLow != 0 {
		t.BankBits |= 0x100
	}
	if v&reelBankHigh != 0 {
		t.BankBits |= 0x200
	}
	return t
}

func reelTextInfo(mem []byte, index int, cs *ControlState) TileRecord {
	attr := mem[index+0x800]
	t := TileRecord{
		CodeLow: uint32(mem[index]) | uint32(attr&0x0F)<<8,
		Attr:    attr,
		Color:   uint16(attr >> 4),
	}
	if cs.Value(reelRegVideo)&reelTextBank != 0 {
		t.BankBits = 0x1000
	}
	return t
}

func (m *Machine) buildReels(logUnmapped bool) error {
	program := m.roms.Segment("program")

	textGfx, err := NewGfxLayout(8, 8, 4, m.roms.Segment("text"))
	if err != nil {
		return err
	}
	textGfx.LowNibbleFirst = true
	reelGfx, err := NewGfxLayout(8, 32, 8, m.roms.Segment("reels"))
	if err != nil {
		return err
	}

	reel := func(name string) LayerConfig {
		return LayerConfig{
			Name:          name,
			Cols:          64,
			Rows:          8,
			Gfx:           reelGfx,
			Info:          reelTileInfo,
			Scroll:        ScrollPerColumn,
			ScrollEntries: 64,
			ColorBase:     0x100,
			ModeBits:      []ModeMask{{Reg: reelRegVideo, Mask: reelBankLow | reelBankHigh}},
		}
	}
	m.tiles, err = NewTileCache(m.control,
		reel("reel0"),
		reel("reel1"),
		reel("reel2"),
		LayerConfig{
			Name:           "text",
			Cols:           64,
			Rows:           32,
			Gfx:            textGfx,
			StorageSize:    0x1000,
			Info:           reelTextInfo,
			Transparent:    true,
			TransparentPen: 0,
			ModeBits:       []ModeMask{{Reg: reelRegVideo, Mask: reelTextBank}},
		},
	)
	if err != nil {
		return err
	}

	m.palette = NewSplitPalette(0x200)
	nvram := m.addRAM(0x800)
	work := m.addRAM(0x200)
	altScroll := m.addScroll(0x40)

	m.bus, err = NewRouter(RouterConfig{
		Name:        "reels",
		OpenBus:     DefaultOpenBus,
		LogUnmapped: logUnmapped,
		Logger:      m.logger,
	},
		Region{Name: "rom", Base: 0x0000, Size: 0xC000, Access: DirRead, Handler: ROM(program)},
		Region{Name: "palette", Base: 0xC000, Size: 0x200, Access: DirReadWrite, Handler: m.palette.Plane(0)},
		Region{Name: "palette_ext", Base: 0xC800, Size: 0x200, Access: DirReadWrite, Handler: m.palette.Plane(1)},
		Region{Name: "rom_hi", Base: 0xD000, Size: 0x800, Access: DirRead, Handler: ROM(program[0xD000:0xD800])},
		Region{Name: "nvram", Base: 0xD800, Size: 0x800, Access: DirReadWrite, Handler: nvram},
		Region{Name: "text", Base: 0xE000, Size: 0x1000, Access: DirReadWrite, Handler: m.tiles.Layer(reelText)},
		Region{Name: "reel0", Base: 0xF000, Size: 0x200, Access: DirReadWrite, Handler: m.tiles.Layer(reelLayer0)},
		Region{Name: "reel1", Base: 0xF200, Size: 0x200, Access: DirReadWrite, Handler: m.tiles.Layer(reelLayer1)},
		Region{Name: "reel2", Base: 0xF400, Size: 0x200, Access: DirReadWrite, Handler: m.tiles.Layer(reelLayer2)},
		Region{Name: "work", Base: 0xF600, Size: 0x200, Access: DirReadWrite, Handler: work},
		Region{Name: "scroll0", Base: 0xF840, Size: 0x40, Access: DirReadWrite, Handler: m.tiles.Layer(reelLayer0).Scroll()},
		Region{Name: "scroll1", Base: 0xF880, Size: 0x40, Access: DirReadWrite, Handler: m.tiles.Layer(reelLayer1).Scroll()},
		Region{Name: "scroll2", Base: 0xF900, Size: 0x40, Access: DirReadWrite, Handler: m.tiles.Layer(reelLayer2).Scroll()},
		Region{Name: "alt_scroll", Base: 0xF9C0, Size: 0x40, Access: DirReadWrite, Handler: altScroll},
	)
	if err != nil {
		return err
	}

	m.dsw = [4]uint8{0xFF, 0xFF, 0xFF, 0xFF}
	m.io, err = NewRouter(RouterConfig{
		Name:        "reels_io",
		AddrMask:    0xFF,
		OpenBus:     DefaultOpenBus,
		LogUnmapped: logUnmapped,
		Logger:      m.logger,
	},
		Region{Name: "lamps", Base: 0x00, Size: 1, Access: DirWrite, Handler: NewLatch(m.control, reelRegLamps)},
		Region{Name: "coins", Base: 0x01, Size: 1, Access: DirWrite, Handler: NewLatch(m.control, reelRegCoins)},
		Region{Name: "vreg", Base: 0x03, Size: 1, Access: DirWrite, Handler: NewLatch(m.control, reelRegVideo)},
		Region{Name: "in0", Base: 0x04, Size: 1, Access: DirRead, Handler: PortFunc(m.reelIN0)},
		Region{Name: "in1", Base: 0x05, Size: 1, Access: DirRead, Handler: PortFunc(m.reelIN1)},
		Region{Name: "dsw4", Base: 0x06, Size: 1, Access: DirRead, Handler: PortFunc(func() uint8 { return m.dsw[3] })},
		Region{Name: "dsw3", Base: 0x07, Size: 1, Access: DirRead, Handler: PortFunc(func() uint8 { return m.dsw[2] })},
		Region{Name: "sound", Base: 0x10, Size: 3, Access: DirReadWrite, Handler: Discard{}},
	)
	if err != nil {
		return err
	}

	m.comp, err = NewCompositor(m.control, m.tiles, CompositorConfig{
		Banded: []Placement{
			{Layer: reelLayer0, Band: image.Rect(0, 4*8, 62*8, 11*8)},
			{Layer: reelLayer1, Band: image.Rect(0, 12*8, 62*8, 19*8)},
			{Layer: reelLayer2, Band: image.Rect(0, 18*8, 62*8, 25*8)},
		},
		Overlay: []Placement{{Layer: reelText}},
		Override: &Override{
			Flag:      Flag{Reg: reelRegVideo, Mask: reelFullScreen},
			Layer:     reelLayer0,
			AltScroll: altScroll,
		},
	})
	if err != nil {
		return err
	}

	m.frame = NewFrameBuffer(reelScreenWidth, reelScreenHeight)
	m.visible = reelVisible
	m.cpu = z80.New(NewZ80Port(m.bus, m.io))
	return nil
}

// reelIN0 packs hold buttons and coins, active low.
func (m *Machine) reelIN0() uint8 {
	return activeLow(
		m.pressed(0, ReelHold5),
		m.pressed(0, ReelCoinA),
		m.pressed(0, ReelCoinC),
		m.pressed(0, ReelCoinD),
		m.pressed(0, ReelHold1),
		m.pressed(0, ReelHold4),
		m.pressed(0, ReelHold3),
		m.pressed(0, ReelHold2),
	)
}

// reelIN1 packs the bookkeeping keys, start and service, active low. Bit
// 2 is the hopper sensor, idle high; bit 4 is a switch taken from DSW1.
func (m *Machine) reelIN1() uint8 {
	v := activeLow(
		m.pressed(0, ReelBook),
		m.pressed(0, ReelPayout),
		false,
		m.pressed(0, ReelCreditOut),
		false,
		m.pressed(0, ReelService),
		m.pressed(0, ReelStart),
		m.pressed(0, ReelKeyIn),
	)
	return v&^0x10 | m.dsw[0]&0x10
}

// activeLow packs bits LSB first with pressed as 0.
func activeLow(bits ...bool) uint8 {
	var v uint8 = 0xFF
	for i, b := range bits {
		if b {
			v &^= 1 << uint(i)
		}
	}
	return v
}
