package main

import (
	libretro "github.com/user-none/eblitui/libretro"
	"github.com/user-none/emarc/adapter"
	"github.com/user-none/emarc/emu"
)

// The libretro core serves the reel board. Each board needs its own
// core since SystemInfo is fixed at registration.
func init() {
	libretro.RegisterFactory(&adapter.Factory{Board: emu.BoardReels}, []libretro.RetropadMapping{
		{RetroID: libretro.JoypadL, BitID: emu.ReelHold1},
		{RetroID: libretro.JoypadY, BitID: emu.ReelHold2},
		{RetroID: libretro.JoypadX, BitID: emu.ReelHold3},
		{RetroID: libretro.JoypadB, BitID: emu.ReelHold4},
		{RetroID: libretro.JoypadR, BitID: emu.ReelHold5},
		{RetroID: libretro.JoypadStart, BitID: emu.ReelStart},
		{RetroID: libretro.JoypadSelect, BitID: emu.ReelCoinA},
		{RetroID: libretro.JoypadA, BitID: emu.ReelPayout},
	})
}

func main() {}
