package emu

import (
	"bytes"
	"io"
	"log"
	"strings"
	"testing"

	emucore "github.com/user-none/eblitui/api"
)

// makeTestMachine builds board around rom with logging discarded.
func makeTestMachine(t *testing.T, board Board, rom []byte) *Machine {
	t.Helper()
	m, err := NewMachine(rom, MachineConfig{
		Board:  board,
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("NewMachine(%s) failed: %v", board, err)
	}
	return m
}

// makeTestReelROM returns a full program segment with program at 0.
func makeTestReelROM(program ...byte) []byte {
	rom := make([]byte, 0x10000)
	copy(rom, program)
	return rom
}

// --- Board selection tests ---

func TestParseBoard(t *testing.T) {
	b, err := ParseBoard("Konami")
	if err != nil || b != BoardKonami {
		t.Errorf("expected konami, got %v (err %v)", b, err)
	}
	if _, err := ParseBoard("genesis"); err == nil {
		t.Error("expected error for unknown board")
	}
	if BoardReels.String() != "reels" || Board(9).String() != "unknown" {
		t.Errorf("unexpected board names")
	}
}

func TestDetectBoard(t *testing.T) {
	if b, ok := DetectBoard(make([]byte, konamiLayout.Size())); !ok || b != BoardKonami {
		t.Errorf("expected konami by size, got %v/%v", b, ok)
	}
	if b, ok := DetectBoard(make([]byte, reelLayout.Size())); !ok || b != BoardReels {
		t.Errorf("expected reels by size, got %v/%v", b, ok)
	}
	if b, ok := DetectBoard(make([]byte, 100)); ok || b != BoardReels {
		t.Errorf("expected reels fallback, got %v/%v", b, ok)
	}
}

func TestNewMachine_EmptyROM(t *testing.T) {
	if _, err := NewMachine(nil, MachineConfig{Board: BoardReels}); err == nil {
		t.Error("expected error for empty ROM")
	}
}

func TestTiming(t *testing.T) {
	if got := ReelTiming.CyclesPerFrame(); got != 66666 {
		t.Errorf("expected 66666 cycles per frame, got %d", got)
	}
	if (BoardTiming{}).CyclesPerFrame() != 0 {
		t.Errorf("zero timing should give zero cycles")
	}
	m := makeTestMachine(t, BoardReels, makeTestReelROM())
	if m.GetTiming().FPS != 60 || m.GetTiming().Scanlines != 256 {
		t.Errorf("unexpected timing %+v", m.GetTiming())
	}
}

// --- Reel board tests ---

func TestReels_ProgramMap(t *testing.T) {
	rom := makeTestReelROM()
	rom[0x0010] = 0xAB
	rom[0xD000] = 0x5C
	m := makeTestMachine(t, BoardReels, rom)
	bus := m.Bus()

	if got := bus.Read(0x0010); got != 0xAB {
		t.Errorf("rom: expected 0xAB, got 0x%02X", got)
	}
	bus.Write(0x0010, 0x00)
	if got := bus.Read(0x0010); got != 0xAB {
		t.Errorf("rom should ignore writes, got 0x%02X", got)
	}
	if got := bus.Read(0xD000); got != 0x5C {
		t.Errorf("rom_hi: expected 0x5C, got 0x%02X", got)
	}

	bus.Write(0xE005, 0x31)
	if got := m.Tiles().Layer(reelText).Memory()[5]; got != 0x31 {
		t.Errorf("text RAM: expected 0x31, got 0x%02X", got)
	}
	bus.Write(0xF201, 0x07)
	if got := m.Tiles().Layer(reelLayer1).Memory()[1]; got != 0x07 {
		t.Errorf("reel1 RAM: expected 0x07, got 0x%02X", got)
	}
	bus.Write(0xF905, 0x10)
	if got := m.Tiles().Layer(reelLayer2).Scroll().Value(5); got != 0x10 {
		t.Errorf("scroll2: expected 0x10, got 0x%02X", got)
	}

	for _, addr := range []uint32{0xF800, 0xF8C0, 0xF9A0, 0xFF00} {
		if got := bus.Read(addr); got != 0xFF {
			t.Errorf("0x%04X: expected open bus, got 0x%02X", addr, got)
		}
	}
}

func TestReels_SplitPalette(t *testing.T) {
	m := makeTestMachine(t, BoardReels, makeTestReelROM())
	m.Bus().Write(0xC001, 0xE0)
	m.Bus().Write(0xC801, 0x03)

	c := m.Palette().Color(1)
	if c.R != 0 || c.G != 0xFF || c.B != 0 {
		t.Errorf("expected pure green, got %v", c)
	}
}

func TestReels_VideoRegister(t *testing.T) {
	m := makeTestMachine(t, BoardReels, makeTestReelROM())
	reel0 := m.Tiles().Layer(reelLayer0)
	for i := 0; i < reel0.Cells(); i++ {
		reel0.GetTile(i)
	}

	// port address is mirrored across the upper byte
	m.IO().Write(0x4203, reelBankLow)
	if got := m.Control().Value(reelRegVideo); got != reelBankLow {
		t.Fatalf("expected video register 0x%02X, got 0x%02X", reelBankLow, got)
	}
	if !reel0.Dirty(0) {
		t.Errorf("reel tiles should be dirty after a bank bit change")
	}
	if got := reel0.GetTile(0).BankBits; got != 0x100 {
		t.Errorf("expected bank bits 0x100, got 0x%X", got)
	}

	m.IO().Write(0x03, reelFullScreen)
	if m.Compositor().Mode() != ModeFullOverride {
		t.Errorf("expected full-override mode, got %s", m.Compositor().Mode())
	}
}

func TestReels_ScrollWritesKeepTilesClean(t *testing.T) {
	m := makeTestMachine(t, BoardReels, makeTestReelROM())
	var regens [reelText + 1]uint64
	for l := reelLayer0; l <= reelText; l++ {
		tm := m.Tiles().Layer(l)
		for i := 0; i < tm.Cells(); i++ {
			tm.GetTile(i)
		}
		regens[l] = tm.Regenerations()
	}

	for off := uint32(0); off < 0x40; off++ {
		m.Bus().Write(0xF840+off, uint8(off))
		m.Bus().Write(0xF880+off, uint8(off))
		m.Bus().Write(0xF900+off, uint8(off))
		m.Bus().Write(0xF9C0+off, uint8(off))
	}

	for l := reelLayer0; l <= reelText; l++ {
		tm := m.Tiles().Layer(l)
		for i := 0; i < tm.Cells(); i++ {
			if tm.Dirty(i) {
				t.Fatalf("layer %s tile %d dirty after scroll writes", tm.Name(), i)
			}
		}
		if got := tm.Regenerations(); got != regens[l] {
			t.Errorf("layer %s: expected %d regenerations, got %d", tm.Name(), regens[l], got)
		}
	}
	if got := m.Tiles().Layer(reelLayer1).Scroll().Value(5); got != 5 {
		t.Errorf("expected scroll entry 5, got %d", got)
	}
}

func TestReels_TextTileInfo(t *testing.T) {
	m := makeTestMachine(t, BoardReels, makeTestReelROM())
	m.Bus().Write(0xE000, 0x34)
	m.Bus().Write(0xE800, 0x52) // color 5, code bits 8-11 = 2

	tr := m.Tiles().GetTile(reelText, 0)
	if tr.Code() != 0x234 || tr.Color != 5 {
		t.Errorf("expected code 0x234 color 5, got 0x%X color %d", tr.Code(), tr.Color)
	}

	m.IO().Write(0x03, reelTextBank)
	if got := m.Tiles().GetTile(reelText, 0).Code(); got != 0x1234 {
		t.Errorf("expected banked code 0x1234, got 0x%X", got)
	}
}

func TestReels_Inputs(t *testing.T) {
	m := makeTestMachine(t, BoardReels, makeTestReelROM())
	in := m.IO()

	if got := in.Read(0x04); got != 0xFF {
		t.Errorf("IN0 idle: expected 0xFF, got 0x%02X", got)
	}
	m.SetInput(0, 1<<ReelHold1)
	if got := in.Read(0x04); got != 0xEF {
		t.Errorf("IN0 hold1: expected 0xEF, got 0x%02X", got)
	}
	m.SetInput(0, 1<<ReelStart)
	if got := in.Read(0x05); got != 0xBF {
		t.Errorf("IN1 start: expected 0xBF, got 0x%02X", got)
	}

	m.SetDIP(0, 0xEF)
	m.SetInput(0, 0)
	if got := in.Read(0x05); got != 0xEF {
		t.Errorf("IN1 with DSW1 bit 4 clear: expected 0xEF, got 0x%02X", got)
	}
}

func TestReels_DIPSwitches(t *testing.T) {
	var buf bytes.Buffer
	m, err := NewMachine(makeTestReelROM(), MachineConfig{Board: BoardReels, Logger: log.New(&buf, "", 0)})
	if err != nil {
		t.Fatalf("NewMachine failed: %v", err)
	}

	m.SetOption("dsw4", "0x12")
	m.SetOption("dsw3", "A5")
	if got := m.IO().Read(0x06); got != 0x12 {
		t.Errorf("DSW4: expected 0x12, got 0x%02X", got)
	}
	if got := m.IO().Read(0x07); got != 0xA5 {
		t.Errorf("DSW3: expected 0xA5, got 0x%02X", got)
	}

	m.SetOption("dsw1", "zz")
	m.SetOption("volume", "3")
	out := buf.String()
	if !strings.Contains(out, "Warning: invalid value") {
		t.Errorf("expected invalid value warning, got %q", out)
	}
	if !strings.Contains(out, "Warning: unknown core option") {
		t.Errorf("expected unknown option warning, got %q", out)
	}
	if m.DIP(0) != 0xFF {
		t.Errorf("invalid option should leave DSW1 alone, got 0x%02X", m.DIP(0))
	}
}

func TestReels_VblankInterrupt(t *testing.T) {
	rom := makeTestReelROM(
		0xED, 0x56, // IM 1
		0xFB, // EI
		0x76, // HALT
	)
	copy(rom[0x38:], []byte{
		0x3E, 0x01, // LD A,1
		0x32, 0x00, 0xF6, // LD (0xF600),A
		0x76, // HALT
	})
	m := makeTestMachine(t, BoardReels, rom)

	m.RunFrame()
	if got := m.Bus().Read(0xF600); got != 0x01 {
		t.Errorf("vblank handler should have run, work RAM is 0x%02X", got)
	}
	if m.Compositor().Frames() != 1 {
		t.Errorf("expected 1 composited frame, got %d", m.Compositor().Frames())
	}
}

func TestReels_Framebuffer(t *testing.T) {
	m := makeTestMachine(t, BoardReels, makeTestReelROM())
	m.RunFrame()

	if m.GetActiveHeight() != 240 {
		t.Errorf("expected 240 visible lines, got %d", m.GetActiveHeight())
	}
	if m.GetFramebufferStride() != 512*4 {
		t.Errorf("expected stride %d, got %d", 512*4, m.GetFramebufferStride())
	}
	if len(m.GetFramebuffer()) != 512*240*4 {
		t.Errorf("expected %d bytes, got %d", 512*240*4, len(m.GetFramebuffer()))
	}
	if m.GetAudioSamples() != nil {
		t.Errorf("expected no audio")
	}
}

// --- State tests ---

func TestMachine_VideoRegion(t *testing.T) {
	m, err := NewMachine(makeTestReelROM(), MachineConfig{
		Board:  BoardReels,
		Region: RegionPAL,
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("NewMachine failed: %v", err)
	}
	if m.GetRegion() != RegionPAL {
		t.Errorf("expected PAL, got %v", m.GetRegion())
	}
	m.SetRegion(DefaultRegion())
	if m.GetRegion() != RegionNTSC {
		t.Errorf("expected NTSC, got %v", m.GetRegion())
	}
	if m.GetTiming().FPS != 60 {
		t.Errorf("region must not change timing, got %d FPS", m.GetTiming().FPS)
	}
}

func TestMachine_ResetKeepsRAM(t *testing.T) {
	m := makeTestMachine(t, BoardReels, makeTestReelROM())
	m.Bus().Write(0xD800, 0x99)
	m.Bus().Write(0xF840, 0x08)
	m.IO().Write(0x03, reelFullScreen)

	m.Reset()
	if got := m.Bus().Read(0xD800); got != 0x99 {
		t.Errorf("battery RAM should survive reset, got 0x%02X", got)
	}
	if got := m.Tiles().Layer(reelLayer0).Scroll().Value(0); got != 0x08 {
		t.Errorf("scroll RAM should survive reset, got 0x%02X", got)
	}
	if got := m.Control().Value(reelRegVideo); got != 0 {
		t.Errorf("video register should reset, got 0x%02X", got)
	}
}

func TestMachine_ControlSnapshot(t *testing.T) {
	rom := make([]byte, konamiLayout.Size())
	m := makeTestMachine(t, BoardKonami, rom)
	m.Bus().Write(0x1F80, 0x12)
	m.Bus().Write(0x1F90, 0x20)
	snap := m.ControlSnapshot()

	m.Bus().Write(0x1F80, 0x00)
	m.Bus().Write(0x1F90, 0x08)
	if err := m.RestoreControl(snap); err != nil {
		t.Fatalf("RestoreControl failed: %v", err)
	}
	if got := m.Banks()[0].Bank(); got != 9 {
		t.Errorf("expected bank 9, got %d", got)
	}
	if got := m.Control().Value(konamiRegSystem); got != 0x20 {
		t.Errorf("expected system 0x20, got 0x%02X", got)
	}
	if err := m.RestoreControl(snap[:4]); err == nil {
		t.Error("expected error for short snapshot")
	}
}

func TestMachine_MemoryRegions(t *testing.T) {
	m := makeTestMachine(t, BoardReels, makeTestReelROM())
	m.Bus().Write(0xD800, 0x11) // nvram first
	m.Bus().Write(0xF600, 0x22) // then work RAM

	mm := m.MemoryMap()
	if len(mm) != 1 || mm[0].Type != emucore.MemorySystemRAM || mm[0].Size != 0xA00 {
		t.Fatalf("unexpected memory map %+v", mm)
	}

	buf := make([]byte, 2)
	if n := m.ReadMemory(0x800, buf); n != 2 || buf[0] != 0x22 {
		t.Errorf("expected work RAM at flat 0x800, got n=%d 0x%02X", n, buf[0])
	}
	if n := m.ReadMemory(0x9FF, buf); n != 1 {
		t.Errorf("expected 1 byte at end of space, got %d", n)
	}

	ram := m.ReadRegion(emucore.MemorySystemRAM)
	if ram[0] != 0x11 {
		t.Errorf("expected 0x11, got 0x%02X", ram[0])
	}
	ram[0] = 0x33
	m.WriteRegion(emucore.MemorySystemRAM, ram)
	if got := m.Bus().Read(0xD800); got != 0x33 {
		t.Errorf("expected 0x33 after WriteRegion, got 0x%02X", got)
	}
}
