// Package ebiten draws a machine's frames through Ebiten.
package ebiten

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/user-none/emarc/emu"
)

// Emulator is an arcade machine plus the image its frames are uploaded to.
type Emulator struct {
	*emu.Machine

	frame    *ebiten.Image // visible area at board resolution
	drawOpts ebiten.DrawImageOptions
}

// NewEmulator builds the board selected by cfg.
func NewEmulator(rom []byte, cfg emu.MachineConfig) (*Emulator, error) {
	m, err := emu.NewMachine(rom, cfg)
	if err != nil {
		return nil, err
	}
	return &Emulator{Machine: m}, nil
}

// Close releases the machine and the frame image.
func (e *Emulator) Close() {
	e.Machine.Close()
	if e.frame != nil {
		e.frame.Deallocate()
		e.frame = nil
	}
}

// Layout implements ebiten.Game.
func (e *Emulator) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// DrawCachedFramebuffer draws an RGBA copy of the visible area, taken by
// the emulation goroutine, centered on screen at the largest scale that
// keeps the whole frame visible. The board width is stride/4, so boards
// of any width share the same path.
func (e *Emulator) DrawCachedFramebuffer(screen *ebiten.Image, pixels []byte, stride, activeHeight int) {
	if activeHeight == 0 || stride == 0 {
		return
	}
	n := stride * activeHeight
	if len(pixels) < n {
		return
	}
	w := stride / 4

	if f := e.frame; f == nil || f.Bounds().Dx() != w || f.Bounds().Dy() != activeHeight {
		if f != nil {
			f.Deallocate()
		}
		e.frame = ebiten.NewImage(w, activeHeight)
	}
	e.frame.WritePixels(pixels[:n])

	scale, dx, dy := fit(w, activeHeight, screen.Bounds().Dx(), screen.Bounds().Dy())
	e.drawOpts = ebiten.DrawImageOptions{}
	e.drawOpts.GeoM.Scale(scale, scale)
	e.drawOpts.GeoM.Translate(dx, dy)
	e.drawOpts.Filter = ebiten.FilterNearest
	screen.DrawImage(e.frame, &e.drawOpts)
}

// fit returns the scale that fits a w x h frame inside a sw x sh screen
// without changing its aspect, and the offset that centers it.
func fit(w, h, sw, sh int) (scale, dx, dy float64) {
	scale = float64(sw) / float64(w)
	if s := float64(sh) / float64(h); s < scale {
		scale = s
	}
	dx = (float64(sw) - float64(w)*scale) / 2
	dy = (float64(sh) - float64(h)*scale) / 2
	return scale, dx, dy
}
