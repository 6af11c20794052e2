// Command framedump runs a machine headless for a number of frames and
// writes the last frame as a PNG.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/term"

	"github.com/user-none/emarc/emu"
)

func main() {
	romPath := flag.String("rom", "", "path to ROM file (required)")
	boardFlag := flag.String("board", "auto", "board: auto, reels, konami, or neogeo")
	frames := flag.Int("frames", 60, "number of frames to run before capturing")
	scale := flag.Int("scale", 1, "integer scale factor of the output image")
	out := flag.String("o", "-", "output PNG path, - for stdout")
	logUnmapped := flag.Bool("log-unmapped", false, "log every unmapped bus access")
	flag.Parse()

	if *romPath == "" {
		log.Fatal("ROM path is required. Usage: framedump -rom <path> [-o frame.png]")
	}
	if *scale < 1 {
		log.Fatalf("Invalid scale %d", *scale)
	}

	rom, err := os.ReadFile(*romPath)
	if err != nil {
		log.Fatalf("Failed to load ROM: %v", err)
	}

	board, err := resolveBoard(*boardFlag, rom)
	if err != nil {
		log.Fatal(err)
	}

	m, err := emu.NewMachine(rom, emu.MachineConfig{
		Board:       board,
		Region:      emu.DefaultRegion(),
		Logger:      log.New(os.Stderr, "", log.LstdFlags),
		LogUnmapped: *logUnmapped,
	})
	if err != nil {
		log.Fatalf("Failed to initialize machine: %v", err)
	}
	defer m.Close()

	for i := 0; i < *frames; i++ {
		m.RunFrame()
	}

	var w io.Writer = os.Stdout
	if *out == "-" {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			log.Fatal("Refusing to write PNG data to a terminal, use -o or redirect stdout")
		}
	} else {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		w = f
	}

	if err := writeFrame(w, m, *scale); err != nil {
		log.Fatalf("Failed to write frame: %v", err)
	}
}

func resolveBoard(name string, rom []byte) (emu.Board, error) {
	if name != "auto" {
		return emu.ParseBoard(name)
	}
	board, ok := emu.DetectBoard(rom)
	if !ok {
		log.Printf("Warning: ROM size %d matches no board, assuming %s", len(rom), board)
	}
	return board, nil
}

// frameImage wraps the machine's RGBA framebuffer without copying.
func frameImage(m *emu.Machine) *image.RGBA {
	stride := m.GetFramebufferStride()
	return &image.RGBA{
		Pix:    m.GetFramebuffer(),
		Stride: stride,
		Rect:   image.Rect(0, 0, stride/4, m.GetActiveHeight()),
	}
}

func writeFrame(w io.Writer, m *emu.Machine, scale int) error {
	src := frameImage(m)
	if scale == 1 {
		return png.Encode(w, src)
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	if err := png.Encode(w, dst); err != nil {
		return fmt.Errorf("encode %dx%d: %w", dst.Bounds().Dx(), dst.Bounds().Dy(), err)
	}
	return nil
}
