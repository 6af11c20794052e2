package emu

import (
	"image"

	emucore "github.com/user-none/eblitui/api"
)

// Konami board memory map (HD6309, 16-bit). Regions are listed in
// registration order; later entries override earlier ones where they
// overlap, per direction.
//
//	0x0000-0x3FFF  RW video chips (tilemap RAM, sprite control, sprite RAM)
//	0x0000-0x07FF  RW banked: video chips, or zoom RAM/ROM
//	0x1F80         W  ROM bank select
//	0x1F90         W  system control
//	0x1FA0         W  watchdog
//	0x1FB0         W  sound latch
//	0x1FC0         W  sound IRQ trigger
//	0x1FD0-0x1FD3  R  SYSTEM, P1, P2, DSW1
//	0x1FE0         R  DSW2
//	0x1FF0-0x1FFF  W  zoom chip control
//	0x2000-0x27FF  RW banked: video chips (+0x2000), or palette
//	0x4000-0x5FFF  RW work RAM
//	0x6000-0x7FFF  R  banked program ROM
//	0x8000-0xFFFF  R  program ROM
//
// No CPU core is bundled for the HD6309; transactions are issued through
// Machine.Bus.
const (
	konamiScreenWidth  = 512
	konamiScreenHeight = 256
)

var konamiVisible = image.Rect(14*8, 2*8, 50*8, 30*8)

var konamiLayout = ROMLayout{
	{Name: "program", Size: 0x28000},
	{Name: "tiles", Size: 0x80000},
	{Name: "zoom", Size: 0x20000},
}

// Konami board control registers.
const (
	konamiRegBank ControlReg = iota
	konamiRegSystem
	konamiRegSoundLatch
)

// System control bits.
var (
	konamiRMRD       = Flag{Reg: konamiRegSystem, Mask: 0x04}
	konamiVideoOff   = Flag{Reg: konamiRegSystem, Mask: 0x08}
	konamiZoomROM    = Flag{Reg: konamiRegSystem, Mask: 0x10}
	konamiChipSelect = Flag{Reg: konamiRegSystem, Mask: 0x20}
)

// Konami board buttons beyond the directions, as bits of the SetInput mask.
const (
	KonamiButton1 = 4 + iota
	KonamiButton2
	KonamiButton3
	KonamiStart
	KonamiCoin
	KonamiService
)

// Routes of the banked redirectors.
const (
	routeChips Route = iota
	routeCharROM
)

const (
	routeBank1Chips Route = iota
	routeZoomROM
	routeZoomRAM
)

const (
	routeBank2Chips Route = iota
	routePalette
)

func konamiFixInfo(mem []byte, index int, cs *ControlState) TileRecord {
	attr := mem[index]
	return TileRecord{
		CodeLow: uint32(mem[0x2000+index]),
		Attr:    attr,
		// bits 0-5 of the attribute extend the code
		BankBits: uint32(attr&0x3F) << 8,
		Color:    uint16(attr >> 6),
	}
}

func (m *Machine) buildKonami(logUnmapped bool) error {
	program := m.roms.Segment("program")
	tileROM := m.roms.Segment("tiles")

	gfx, err := NewGfxLayout(8, 8, 4, tileROM)
	if err != nil {
		return err
	}
	m.tiles, err = NewTileCache(m.control, LayerConfig{
		Name:        "fix",
		Cols:        64,
		Rows:        32,
		Gfx:         gfx,
		StorageSize: 0x4000,
		Info:        konamiFixInfo,
	})
	if err != nil {
		return err
	}

	m.control.SetDefault(konamiRegSystem, konamiVideoOff.Mask)

	bank, err := NewBankWindow(BankConfig{
		Name:   "bank1",
		Size:   0x2000,
		Store:  program[0x10000:0x28000],
		Decode: DecodeBottom9,
		Policy: RangeClamp,
		Logger: m.logger,
	})
	if err != nil {
		return err
	}
	bank.Attach(m.control, konamiRegBank)
	m.banks = append(m.banks, bank)

	spriteCtl := m.addRAM(8)
	spriteRAM := m.addRAM(0x400)
	zoomRAM := m.addRAM(0x800)
	zoomCtl := m.addRAM(0x10)
	work := m.addRAM(0x2000)
	m.palette = NewPalette(1024)

	chips, err := NewRouter(RouterConfig{
		Name:        "video",
		AddrBits:    14,
		OpenBus:     DefaultOpenBus,
		LogUnmapped: logUnmapped,
		Logger:      m.logger,
	},
		Region{Name: "tilemap", Base: 0x0000, Size: 0x4000, Access: DirReadWrite, Handler: m.tiles.Layer(0)},
		Region{Name: "sprite_ctl", Base: 0x3800, Size: 8, Access: DirReadWrite, Handler: spriteCtl},
		Region{Name: "sprite_ram", Base: 0x3C00, Size: 0x400, Access: DirReadWrite, Handler: spriteRAM},
	)
	if err != nil {
		return err
	}

	combo, err := NewRedirector("video", m.control,
		func(cs *ControlState, dir Direction, offset uint32) Route {
			if dir == DirRead && cs.Test(konamiRMRD) {
				return routeCharROM
			}
			return routeChips
		},
		Target{Name: "chips", Handler: chips},
		Target{Name: "char_rom", Handler: ROM(tileROM)},
	)
	if err != nil {
		return err
	}

	bank1, err := NewRedirector("bankedram1", m.control,
		func(cs *ControlState, dir Direction, offset uint32) Route {
			switch {
			case cs.Test(konamiChipSelect):
				return routeBank1Chips
			case dir == DirRead && cs.Test(konamiZoomROM):
				return routeZoomROM
			default:
				return routeZoomRAM
			}
		},
		Target{Name: "chips", Handler: combo},
		Target{Name: "zoom_rom", Handler: ROM(m.roms.Segment("zoom"))},
		Target{Name: "zoom_ram", Handler: zoomRAM},
	)
	if err != nil {
		return err
	}

	bank2, err := NewRedirector("bankedram2", m.control,
		func(cs *ControlState, dir Direction, offset uint32) Route {
			if cs.Test(konamiChipSelect) {
				return routeBank2Chips
			}
			return routePalette
		},
		Target{Name: "chips", Handler: combo, Bias: 0x2000},
		Target{Name: "palette", Handler: m.palette},
	)
	if err != nil {
		return err
	}

	m.dsw = [4]uint8{0xFF, 0x4C, 0xF0, 0xFF}
	ports := HandlerFuncs{ReadFunc: func(offset uint32) uint8 {
		switch offset {
		case 0:
			return m.konamiSystem()
		case 1:
			return m.konamiJoy(0)
		case 2:
			return m.konamiJoy(1)
		default:
			return m.dsw[0]
		}
	}}

	m.bus, err = NewRouter(RouterConfig{
		Name:        "konami",
		OpenBus:     DefaultOpenBus,
		LogUnmapped: logUnmapped,
		Logger:      m.logger,
	},
		Region{Name: "video", Base: 0x0000, Size: 0x4000, Access: DirReadWrite, Handler: combo},
		Region{Name: "bankedram1", Base: 0x0000, Size: 0x800, Access: DirReadWrite, Handler: bank1},
		Region{Name: "bankswitch", Base: 0x1F80, Size: 1, Access: DirWrite, Handler: NewLatch(m.control, konamiRegBank)},
		Region{Name: "system", Base: 0x1F90, Size: 1, Access: DirWrite, Handler: NewLatch(m.control, konamiRegSystem)},
		Region{Name: "watchdog", Base: 0x1FA0, Size: 1, Access: DirWrite, Handler: Discard{}},
		Region{Name: "soundlatch", Base: 0x1FB0, Size: 1, Access: DirWrite, Handler: NewLatch(m.control, konamiRegSoundLatch)},
		Region{Name: "sound_irq", Base: 0x1FC0, Size: 1, Access: DirWrite, Handler: Discard{}},
		Region{Name: "inputs", Base: 0x1FD0, Size: 4, Access: DirRead, Handler: ports},
		Region{Name: "dsw2", Base: 0x1FE0, Size: 1, Access: DirRead, Handler: PortFunc(func() uint8 { return m.dsw[1] })},
		Region{Name: "zoom_ctl", Base: 0x1FF0, Size: 0x10, Access: DirWrite, Handler: zoomCtl},
		Region{Name: "bankedram2", Base: 0x2000, Size: 0x800, Access: DirReadWrite, Handler: bank2},
		Region{Name: "work", Base: 0x4000, Size: 0x2000, Access: DirReadWrite, Handler: work},
		Region{Name: "bank1", Base: 0x6000, Size: 0x2000, Access: DirRead, Handler: bank},
		Region{Name: "rom", Base: 0x8000, Size: 0x8000, Access: DirRead, Handler: ROM(program[0x8000:0x10000])},
	)
	if err != nil {
		return err
	}

	m.comp, err = NewCompositor(m.control, m.tiles, CompositorConfig{
		Overlay: []Placement{{Layer: 0}},
		Blank:   &konamiVideoOff,
	})
	if err != nil {
		return err
	}

	m.frame = NewFrameBuffer(konamiScreenWidth, konamiScreenHeight)
	m.visible = konamiVisible
	return nil
}

// konamiSystem packs the coin inputs, active low, under the SW3 switches.
func (m *Machine) konamiSystem() uint8 {
	coins := activeLow(
		m.pressed(0, KonamiCoin),
		m.pressed(1, KonamiCoin),
		m.pressed(0, KonamiService),
		false,
	)
	return m.dsw[2]&0xF0 | coins&0x0F
}

// konamiJoy packs one player's controls, active low.
func (m *Machine) konamiJoy(player int) uint8 {
	return activeLow(
		m.pressed(player, uint(emucore.ButtonLeft)),
		m.pressed(player, uint(emucore.ButtonRight)),
		m.pressed(player, uint(emucore.ButtonUp)),
		m.pressed(player, uint(emucore.ButtonDown)),
		m.pressed(player, KonamiButton1),
		m.pressed(player, KonamiButton2),
		m.pressed(player, KonamiButton3),
		m.pressed(player, KonamiStart),
	)
}
