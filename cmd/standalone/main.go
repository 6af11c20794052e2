//go:build !libretro && !ios

package main

import (
	"flag"
	"log"
	"os"

	"github.com/user-none/eblitui/standalone"
	"github.com/user-none/emarc/adapter"
	"github.com/user-none/emarc/emu"
)

func main() {
	romPath := flag.String("rom", "", "path to ROM file (opens UI if not provided)")
	boardFlag := flag.String("board", "auto", "board: auto, reels, konami, or neogeo")
	dsw1 := flag.String("dsw1", "", "DIP switch bank 1 as a hex byte")
	dsw2 := flag.String("dsw2", "", "DIP switch bank 2 as a hex byte")
	flag.Parse()

	board, err := pickBoard(*boardFlag, *romPath)
	if err != nil {
		log.Fatal(err)
	}
	factory := &adapter.Factory{Board: board}

	if *romPath != "" {
		options := map[string]string{}
		if *dsw1 != "" {
			options["dsw1"] = *dsw1
		}
		if *dsw2 != "" {
			options["dsw2"] = *dsw2
		}
		if err := standalone.RunDirect(factory, *romPath, "auto", options); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := standalone.Run(factory); err != nil {
		log.Fatal(err)
	}
}

// pickBoard resolves the board flag. "auto" detects from the ROM size
// when a ROM is given and falls back to the reel board otherwise.
func pickBoard(name, romPath string) (emu.Board, error) {
	if name != "auto" {
		return emu.ParseBoard(name)
	}
	if romPath == "" {
		return emu.BoardReels, nil
	}
	rom, err := os.ReadFile(romPath)
	if err != nil {
		return 0, err
	}
	board, ok := emu.DetectBoard(rom)
	if !ok {
		log.Printf("Warning: ROM size %d matches no board, assuming %s", len(rom), board)
	}
	return board, nil
}
