package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	emubridge "github.com/user-none/emarc/bridge/ebiten"
	"github.com/user-none/emarc/cli"
	"github.com/user-none/emarc/emu"
	"github.com/user-none/emarc/statsview"
)

func main() {
	romPath := flag.String("rom", "", "path to ROM file (required)")
	boardFlag := flag.String("board", "auto", "board: auto, reels, konami, or neogeo")
	dipFlag := flag.String("dsw", "", "DIP switch banks as comma-separated hex bytes, e.g. ff,4c,f0,ff")
	logUnmapped := flag.Bool("log-unmapped", false, "log every unmapped bus access")
	statsAddr := flag.String("statsview", "", "serve runtime statistics on this address (e.g. localhost:12600)")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("ROM path is required. Usage: emarc -rom <path>")
	}

	romData, err := os.ReadFile(*romPath)
	if err != nil {
		log.Fatalf("Failed to load ROM: %v", err)
	}

	var board emu.Board
	if strings.EqualFold(*boardFlag, "auto") {
		var ok bool
		board, ok = emu.DetectBoard(romData)
		if !ok {
			log.Printf("Warning: ROM size %d matches no board, assuming %s", len(romData), board)
		}
	} else {
		board, err = emu.ParseBoard(*boardFlag)
		if err != nil {
			log.Fatalf("Invalid board: %v (use auto, reels, konami, or neogeo)", err)
		}
	}

	if *statsAddr != "" {
		statsview.Launch(os.Stderr, *statsAddr)
	}

	e, err := emubridge.NewEmulator(romData, emu.MachineConfig{
		Board:       board,
		Region:      emu.DefaultRegion(),
		LogUnmapped: *logUnmapped,
	})
	if err != nil {
		log.Fatalf("Failed to initialize emulator: %v", err)
	}

	if *dipFlag != "" {
		for i, v := range strings.Split(*dipFlag, ",") {
			if i >= 4 {
				log.Printf("Warning: ignoring extra DIP bank %q", v)
				continue
			}
			e.SetOption("dsw"+string(rune('1'+i)), strings.TrimSpace(v))
		}
	}

	vis := board.Visible()
	ebiten.SetWindowSize(vis.Dx()*2, vis.Dy()*2)
	ebiten.SetWindowTitle(emu.Name + " - " + board.String())
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(vis.Dx(), vis.Dy(), -1, -1)
	ebiten.SetTPS(board.Timing().FPS)

	runner := cli.NewRunner(e)
	defer runner.Close()
	defer e.Close()

	if err := ebiten.RunGame(runner); err != nil {
		log.Fatal(err)
	}
}
