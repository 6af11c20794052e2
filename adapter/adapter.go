package adapter

import (
	emucore "github.com/user-none/eblitui/api"
	"github.com/user-none/emarc/emu"
)

// Compile-time interface check.
var _ emucore.CoreFactory = (*Factory)(nil)

// Factory implements emucore.CoreFactory for one arcade board.
type Factory struct {
	Board emu.Board
}

// SystemInfo returns system metadata for UI configuration.
func (f *Factory) SystemInfo() emucore.SystemInfo {
	vis := f.Board.Visible()
	return emucore.SystemInfo{
		Name:            emu.Name,
		ConsoleName:     "Arcade (" + f.Board.String() + ")",
		Extensions:      []string{".bin", ".rom"},
		ScreenWidth:     vis.Dx(),
		MaxScreenHeight: vis.Dy(),
		AspectRatio:     4.0 / 3.0,
		SampleRate:      48000,
		Buttons:         f.buttons(),
		Players:         f.players(),
		RDBName:         "MAME",
		ThumbnailRepo:   "MAME",
		DataDirName:     emu.Name,
		ConsoleID:       27,
		CoreName:        emu.Name,
		CoreVersion:     emu.Version,
		SerializeSize:   emu.SerializeSize(f.Board),
	}
}

func (f *Factory) players() int {
	if f.Board == emu.BoardReels {
		return 1
	}
	return 2
}

func (f *Factory) buttons() []emucore.Button {
	switch f.Board {
	case emu.BoardNeoGeo:
		return []emucore.Button{
			{Name: "A", ID: emu.NeoA, DefaultKey: "J", DefaultPad: "A"},
			{Name: "B", ID: emu.NeoB, DefaultKey: "K", DefaultPad: "B"},
			{Name: "C", ID: emu.NeoC, DefaultKey: "U", DefaultPad: "X"},
			{Name: "D", ID: emu.NeoD, DefaultKey: "I", DefaultPad: "Y"},
			{Name: "Start", ID: emu.NeoStart, DefaultKey: "Enter", DefaultPad: "Start"},
			{Name: "Select", ID: emu.NeoSelect, DefaultKey: "Backspace", DefaultPad: "L1"},
			{Name: "Coin", ID: emu.NeoCoin, DefaultKey: "5", DefaultPad: "Select"},
			{Name: "Service", ID: emu.NeoService, DefaultKey: "9", DefaultPad: "L3"},
		}
	case emu.BoardKonami:
		return []emucore.Button{
			{Name: "Button 1", ID: emu.KonamiButton1, DefaultKey: "J", DefaultPad: "A"},
			{Name: "Button 2", ID: emu.KonamiButton2, DefaultKey: "K", DefaultPad: "B"},
			{Name: "Button 3", ID: emu.KonamiButton3, DefaultKey: "L", DefaultPad: "X"},
			{Name: "Start", ID: emu.KonamiStart, DefaultKey: "Enter", DefaultPad: "Start"},
			{Name: "Coin", ID: emu.KonamiCoin, DefaultKey: "5", DefaultPad: "Select"},
			{Name: "Service", ID: emu.KonamiService, DefaultKey: "9", DefaultPad: "L3"},
		}
	}
	return []emucore.Button{
		{Name: "Hold 1", ID: emu.ReelHold1, DefaultKey: "Z", DefaultPad: "L1"},
		{Name: "Hold 2", ID: emu.ReelHold2, DefaultKey: "X", DefaultPad: "Y"},
		{Name: "Hold 3", ID: emu.ReelHold3, DefaultKey: "C", DefaultPad: "X"},
		{Name: "Hold 4", ID: emu.ReelHold4, DefaultKey: "V", DefaultPad: "B"},
		{Name: "Hold 5", ID: emu.ReelHold5, DefaultKey: "B", DefaultPad: "R1"},
		{Name: "Start", ID: emu.ReelStart, DefaultKey: "Enter", DefaultPad: "Start"},
		{Name: "Coin A", ID: emu.ReelCoinA, DefaultKey: "5", DefaultPad: "Select"},
		{Name: "Key In", ID: emu.ReelKeyIn, DefaultKey: "Q", DefaultPad: "L2"},
		{Name: "Payout", ID: emu.ReelPayout, DefaultKey: "W", DefaultPad: "R2"},
		{Name: "Bookkeeping", ID: emu.ReelBook, DefaultKey: "0", DefaultPad: "L3"},
		{Name: "Service", ID: emu.ReelService, DefaultKey: "9", DefaultPad: "R3"},
	}
}

// CreateEmulator creates a new machine for the factory's board. Region
// is stored but does not change board timing.
func (f *Factory) CreateEmulator(rom []byte, region emucore.Region) (emucore.Emulator, error) {
	m, err := emu.NewMachine(rom, emu.MachineConfig{
		Board:  f.Board,
		Region: region,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// DetectRegion always reports the default region. The bool is false
// since arcade boards carry no region information.
func (f *Factory) DetectRegion(rom []byte) (emucore.Region, bool) {
	return emu.DefaultRegion(), false
}
