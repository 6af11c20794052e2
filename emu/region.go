package emu

import emucore "github.com/user-none/eblitui/api"

// VideoRegion is an alias for emucore.Region. It is distinct from the
// bus Region, which names an address range.
type VideoRegion = emucore.Region

const (
	RegionNTSC = emucore.RegionNTSC
	RegionPAL  = emucore.RegionPAL
)

// BoardTiming holds the clock and raster constants of a board.
type BoardTiming struct {
	CPUClockHz int // main CPU clock, 0 when no CPU core is bundled
	Scanlines  int // total scanlines per frame
	FPS        int // frames per second
}

// Reel board: Z80 at 4 MHz, 256 lines, 60 Hz.
var ReelTiming = BoardTiming{
	CPUClockHz: 4000000,
	Scanlines:  256,
	FPS:        60,
}

// Konami board: HD6309E at 24 MHz / 8, 256 lines, 60 Hz.
var KonamiTiming = BoardTiming{
	CPUClockHz: 3000000,
	Scanlines:  256,
	FPS:        60,
}

// Neo-Geo board: 68000 at 12 MHz, 264 lines, 60 Hz.
var NeoGeoTiming = BoardTiming{
	CPUClockHz: 12000000,
	Scanlines:  264,
	FPS:        60,
}

// CyclesPerFrame returns the CPU budget of one frame.
func (t BoardTiming) CyclesPerFrame() int {
	if t.FPS == 0 {
		return 0
	}
	return t.CPUClockHz / t.FPS
}

// DefaultRegion returns the default region. Arcade monitors run at a
// fixed 60 Hz, so this is always NTSC.
func DefaultRegion() VideoRegion {
	return RegionNTSC
}
