package emu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"log"
	"strconv"
	"strings"

	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-z80"
)

// Compile-time interface checks.
var _ emucore.Emulator = (*Machine)(nil)
var _ emucore.SaveStater = (*Machine)(nil)
var _ emucore.MemoryInspector = (*Machine)(nil)
var _ emucore.MemoryMapper = (*Machine)(nil)

// Board identifies a supported hardware family.
type Board int

const (
	// BoardReels is the Z80 reel/poker board: three scrolling reel
	// layers in horizontal bands under a text layer.
	BoardReels Board = iota
	// BoardKonami is the HD6309 board with banked ROM and a video chip
	// window shared with palette and zoom RAM.
	BoardKonami
	// BoardNeoGeo is a 68000 cartridge board with a word-wide protection
	// device in the cartridge window and a fix text layer.
	BoardNeoGeo
)

var boardNames = [...]string{
	BoardReels:  "reels",
	BoardKonami: "konami",
	BoardNeoGeo: "neogeo",
}

func (b Board) String() string {
	if int(b) < len(boardNames) {
		return boardNames[b]
	}
	return "unknown"
}

// ParseBoard returns the board named s.
func ParseBoard(s string) (Board, error) {
	for i, name := range boardNames {
		if strings.EqualFold(s, name) {
			return Board(i), nil
		}
	}
	return 0, fmt.Errorf("unknown board: %q", s)
}

// Layout returns the ROM segments the board loads.
func (b Board) Layout() ROMLayout {
	switch b {
	case BoardKonami:
		return konamiLayout
	case BoardNeoGeo:
		return neoLayout
	}
	return reelLayout
}

// Timing returns the clock and raster constants of the board.
func (b Board) Timing() BoardTiming {
	switch b {
	case BoardKonami:
		return KonamiTiming
	case BoardNeoGeo:
		return NeoGeoTiming
	}
	return ReelTiming
}

// Visible returns the visible rectangle of the board's frame.
func (b Board) Visible() image.Rectangle {
	switch b {
	case BoardKonami:
		return konamiVisible
	case BoardNeoGeo:
		return neoVisible
	}
	return reelVisible
}

// DetectBoard picks the board whose ROM layout matches the image size
// exactly. The bool is false when no layout matched and the reel board
// was assumed.
func DetectBoard(rom []byte) (Board, bool) {
	for i := range boardNames {
		if Board(i).Layout().Size() == len(rom) {
			return Board(i), true
		}
	}
	return BoardReels, false
}

// MachineConfig selects the board and ambient options of a Machine.
type MachineConfig struct {
	Board       Board
	Region      VideoRegion
	Logger      *log.Logger
	LogUnmapped bool
}

// Machine is one arcade board: its address spaces, control latches,
// tile cache and compositor, and the CPU core when one is bundled.
type Machine struct {
	board  Board
	logger *log.Logger
	roms   *ROMSet

	control *ControlState
	bus     *Router
	io      *Router
	banks   []*BankWindow
	rams    []*RAM
	scrolls []*ScrollTable
	tiles   *TileCache
	comp    *Compositor
	palette *Palette

	cpu *z80.CPU

	m68k        *m68k.CPU
	m68kPort    *M68KPort
	vblankLevel uint8

	// Board devices with state outside RAM, saved in order.
	devices []stateDevice

	// Vblank interrupt pending delivery. Cleared when the CPU takes it
	// (IFF1 true->false) so the line is not held across the handler.
	intPending bool

	buttons [2]uint32
	dsw     [4]uint8

	frame   *FrameBuffer
	visible image.Rectangle
	rgba    *image.RGBA

	region VideoRegion
	timing BoardTiming
}

// NewMachine builds the board selected by cfg around rom.
func NewMachine(rom []byte, cfg MachineConfig) (*Machine, error) {
	roms, err := LoadROMSet(rom, cfg.Board.Layout())
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	m := &Machine{
		board:   cfg.Board,
		logger:  logger,
		roms:    roms,
		control: NewControlState(),
		region:  cfg.Region,
		timing:  cfg.Board.Timing(),
	}

	switch cfg.Board {
	case BoardReels:
		err = m.buildReels(cfg.LogUnmapped)
	case BoardKonami:
		err = m.buildKonami(cfg.LogUnmapped)
	case BoardNeoGeo:
		err = m.buildNeoGeo(cfg.LogUnmapped)
	default:
		err = fmt.Errorf("unsupported board: %v", cfg.Board)
	}
	if err != nil {
		return nil, err
	}

	m.rgba = image.NewRGBA(image.Rect(0, 0, m.visible.Dx(), m.visible.Dy()))
	m.Reset()
	return m, nil
}

// stateDevice is a board device holding registers that reset clears and
// save states carry.
type stateDevice interface {
	reset()
	stateSize() int
	saveState(dst []byte)
	loadState(src []byte)
}

func (m *Machine) addRAM(size int) *RAM {
	r := NewRAM(size)
	m.rams = append(m.rams, r)
	return r
}

func (m *Machine) addScroll(n int) *ScrollTable {
	s := NewScrollTable(n)
	m.scrolls = append(m.scrolls, s)
	return s
}

// Reset restores control latches to their defaults, invalidates every
// tile and resets the CPU and board devices. RAM, tile storage and
// scroll RAM survive.
func (m *Machine) Reset() {
	m.control.Reset()
	m.tiles.Reset()
	for _, d := range m.devices {
		d.reset()
	}
	if m.cpu != nil {
		m.cpu.Reset()
		m.cpu.INT(false, 0xFF)
	}
	if m.m68k != nil {
		m.m68k.Reset()
	}
	m.intPending = false
}

// RunFrame executes one frame: the CPU budget for the visible lines, the
// composite at vblank, then the vblank interrupt and the remaining lines.
func (m *Machine) RunFrame() {
	total := m.timing.CyclesPerFrame()
	active := total * m.visible.Max.Y / m.timing.Scanlines

	m.runCPU(active)

	m.comp.Composite(m.frame, m.frame.Bounds())
	m.frame.Resolve(m.palette, m.rgba, m.visible)

	if m.cpu != nil {
		m.intPending = true
		m.cpu.INT(true, 0xFF)
	}
	if m.m68k != nil {
		m.m68k.RequestInterrupt(m.vblankLevel, nil)
	}
	m.runCPU(total - active)
}

func (m *Machine) runCPU(budget int) {
	if m.m68k != nil {
		for budget > 0 {
			consumed := m.m68k.StepCycles(budget)
			if consumed == 0 {
				break
			}
			budget -= consumed
		}
		return
	}
	if m.cpu == nil {
		return
	}
	for budget > 0 {
		var prevIFF1 bool
		if m.intPending {
			prevIFF1 = m.cpu.Registers().IFF1
		}

		consumed := m.cpu.StepCycles(budget)
		if consumed == 0 {
			break
		}
		budget -= consumed

		if m.intPending && prevIFF1 && !m.cpu.Registers().IFF1 {
			m.intPending = false
			m.cpu.INT(false, 0xFF)
		}
	}
}

// Board returns the board the machine was built for.
func (m *Machine) Board() Board {
	return m.board
}

// Bus returns the program address space.
func (m *Machine) Bus() *Router {
	return m.bus
}

// IO returns the I/O address space, or nil.
func (m *Machine) IO() *Router {
	return m.io
}

// Control returns the live control state.
func (m *Machine) Control() *ControlState {
	return m.control
}

// Tiles returns the tile cache.
func (m *Machine) Tiles() *TileCache {
	return m.tiles
}

// Compositor returns the compositor.
func (m *Machine) Compositor() *Compositor {
	return m.comp
}

// Frame returns the indexed frame of the last composite.
func (m *Machine) Frame() *FrameBuffer {
	return m.frame
}

// Visible returns the visible rectangle of the frame.
func (m *Machine) Visible() image.Rectangle {
	return m.visible
}

// Palette returns the color RAM.
func (m *Machine) Palette() *Palette {
	return m.palette
}

// Banks returns the bank windows in board order.
func (m *Machine) Banks() []*BankWindow {
	return m.banks
}

// ROMCRC returns the CRC32 of the loaded image.
func (m *Machine) ROMCRC() uint32 {
	return m.roms.CRC32()
}

// GetFramebuffer returns the visible part of the last frame as RGBA.
func (m *Machine) GetFramebuffer() []byte {
	return m.rgba.Pix
}

// GetFramebufferStride returns the stride (bytes per row) of the framebuffer.
func (m *Machine) GetFramebufferStride() int {
	return m.rgba.Stride
}

// GetActiveHeight returns the visible height.
func (m *Machine) GetActiveHeight() int {
	return m.visible.Dy()
}

// GetAudioSamples returns nil; no sound hardware is emulated.
func (m *Machine) GetAudioSamples() []int16 {
	return nil
}

// SetInput stores the button bitmask for player. Ports read it active low.
func (m *Machine) SetInput(player int, buttons uint32) {
	if player >= 0 && player < len(m.buttons) {
		m.buttons[player] = buttons
	}
}

func (m *Machine) pressed(player int, bit uint) bool {
	return m.buttons[player]&(1<<bit) != 0
}

// GetRegion returns the region setting.
func (m *Machine) GetRegion() VideoRegion {
	return m.region
}

// SetRegion stores the region. Board timing is fixed by the hardware.
func (m *Machine) SetRegion(region VideoRegion) {
	m.region = region
}

// GetTiming returns FPS and scanline count of the board.
func (m *Machine) GetTiming() emucore.Timing {
	return emucore.Timing{
		FPS:       m.timing.FPS,
		Scanlines: m.timing.Scanlines,
	}
}

// DIP returns DIP switch bank n (0-3).
func (m *Machine) DIP(n int) uint8 {
	return m.dsw[n&3]
}

// SetDIP sets DIP switch bank n (0-3).
func (m *Machine) SetDIP(n int, v uint8) {
	m.dsw[n&3] = v
}

// SetOption applies a core option change identified by key.
func (m *Machine) SetOption(key string, value string) {
	switch key {
	case "dsw1", "dsw2", "dsw3", "dsw4":
		v, err := strconv.ParseUint(strings.TrimPrefix(value, "0x"), 16, 8)
		if err != nil {
			m.logger.Printf("Warning: invalid value %q for %s: %v", value, key, err)
			return
		}
		m.SetDIP(int(key[3]-'1'), uint8(v))
	case "board":
		if value != m.board.String() {
			m.logger.Printf("Warning: board is fixed at %s, ignoring %q", m.board, value)
		}
	default:
		m.logger.Printf("Warning: unknown core option %q", key)
	}
}

// Close releases any resources held by the machine.
func (m *Machine) Close() {}

// ControlSnapshot returns the control registers and the bank index of
// every window as an opaque blob.
func (m *Machine) ControlSnapshot() []byte {
	data, _ := m.control.MarshalBinary()
	for _, b := range m.banks {
		var rec [5]byte
		binary.LittleEndian.PutUint32(rec[0:4], uint32(b.Bank()))
		rec[4] = b.LastValue()
		data = append(data, rec[:]...)
	}
	return data
}

// RestoreControl restores a blob produced by ControlSnapshot. Bank
// indices are restored after the registers so observers cannot
// overwrite them.
func (m *Machine) RestoreControl(data []byte) error {
	n := 2 + MaxControlRegs
	if len(data) != n+5*len(m.banks) {
		return errors.New("control snapshot has wrong size")
	}
	if err := m.control.UnmarshalBinary(data[:n]); err != nil {
		return err
	}
	for i, b := range m.banks {
		rec := data[n+5*i:]
		b.SetBank(int(binary.LittleEndian.Uint32(rec[0:4])), rec[4])
	}
	return nil
}

// systemRAM returns the concatenation of every work RAM.
func (m *Machine) systemRAM() []byte {
	var out []byte
	for _, r := range m.rams {
		out = append(out, r.Bytes()...)
	}
	return out
}

func (m *Machine) systemRAMSize() int {
	n := 0
	for _, r := range m.rams {
		n += len(r.Bytes())
	}
	return n
}

// ReadMemory reads from a flat address into buf and returns the number
// of bytes read. The flat space is every work RAM in board order.
func (m *Machine) ReadMemory(addr uint32, buf []byte) uint32 {
	ram := m.systemRAM()
	var count uint32
	for i := range buf {
		cur := int(addr) + i
		if cur >= len(ram) {
			break
		}
		buf[i] = ram[cur]
		count++
	}
	return count
}

// MemoryMap returns a list of available memory regions with sizes.
func (m *Machine) MemoryMap() []emucore.MemoryRegion {
	return []emucore.MemoryRegion{
		{Type: emucore.MemorySystemRAM, Size: m.systemRAMSize()},
	}
}

// ReadRegion returns a copy of the specified memory region.
func (m *Machine) ReadRegion(regionType int) []byte {
	if regionType == emucore.MemorySystemRAM {
		return m.systemRAM()
	}
	return nil
}

// WriteRegion writes data to the specified memory region.
func (m *Machine) WriteRegion(regionType int, data []byte) {
	if regionType != emucore.MemorySystemRAM {
		return
	}
	for _, r := range m.rams {
		if len(data) == 0 {
			return
		}
		n := copy(r.Bytes(), data)
		data = data[n:]
	}
}
