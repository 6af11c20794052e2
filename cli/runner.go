// Package cli provides a command-line runner for the machine.
// It handles input polling and runs the machine in a window without the full UI.
package cli

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	emucore "github.com/user-none/eblitui/api"
	emubridge "github.com/user-none/emarc/bridge/ebiten"
	"github.com/user-none/emarc/emu"
	"github.com/user-none/emarc/ui"
)

// noPad marks a binding with no gamepad button.
const noPad = ebiten.StandardGamepadButton(-1)

// binding maps a key and a standard gamepad button to a button ID.
type binding struct {
	key ebiten.Key
	pad ebiten.StandardGamepadButton
	id  int
}

var directionBindings = []binding{
	{ebiten.KeyArrowUp, ebiten.StandardGamepadButtonLeftTop, int(emucore.ButtonUp)},
	{ebiten.KeyArrowDown, ebiten.StandardGamepadButtonLeftBottom, int(emucore.ButtonDown)},
	{ebiten.KeyArrowLeft, ebiten.StandardGamepadButtonLeftLeft, int(emucore.ButtonLeft)},
	{ebiten.KeyArrowRight, ebiten.StandardGamepadButtonLeftRight, int(emucore.ButtonRight)},
}

var reelBindings = []binding{
	{ebiten.KeyZ, ebiten.StandardGamepadButtonFrontTopLeft, emu.ReelHold1},
	{ebiten.KeyX, ebiten.StandardGamepadButtonRightTop, emu.ReelHold2},
	{ebiten.KeyC, ebiten.StandardGamepadButtonRightLeft, emu.ReelHold3},
	{ebiten.KeyV, ebiten.StandardGamepadButtonRightRight, emu.ReelHold4},
	{ebiten.KeyB, ebiten.StandardGamepadButtonFrontTopRight, emu.ReelHold5},
	{ebiten.KeyEnter, ebiten.StandardGamepadButtonCenterRight, emu.ReelStart},
	{ebiten.Key5, ebiten.StandardGamepadButtonCenterLeft, emu.ReelCoinA},
	{ebiten.KeyQ, ebiten.StandardGamepadButtonFrontBottomLeft, emu.ReelKeyIn},
	{ebiten.KeyW, ebiten.StandardGamepadButtonFrontBottomRight, emu.ReelPayout},
	{ebiten.Key0, noPad, emu.ReelBook},
	{ebiten.Key9, noPad, emu.ReelService},
}

var konamiBindings = []binding{
	{ebiten.KeyJ, ebiten.StandardGamepadButtonRightBottom, emu.KonamiButton1},
	{ebiten.KeyK, ebiten.StandardGamepadButtonRightRight, emu.KonamiButton2},
	{ebiten.KeyL, ebiten.StandardGamepadButtonRightLeft, emu.KonamiButton3},
	{ebiten.KeyEnter, ebiten.StandardGamepadButtonCenterRight, emu.KonamiStart},
	{ebiten.Key5, ebiten.StandardGamepadButtonCenterLeft, emu.KonamiCoin},
	{ebiten.Key9, noPad, emu.KonamiService},
}

var neoBindings = []binding{
	{ebiten.KeyJ, ebiten.StandardGamepadButtonRightBottom, emu.NeoA},
	{ebiten.KeyK, ebiten.StandardGamepadButtonRightRight, emu.NeoB},
	{ebiten.KeyU, ebiten.StandardGamepadButtonRightLeft, emu.NeoC},
	{ebiten.KeyI, ebiten.StandardGamepadButtonRightTop, emu.NeoD},
	{ebiten.KeyEnter, ebiten.StandardGamepadButtonCenterRight, emu.NeoStart},
	{ebiten.KeyBackspace, ebiten.StandardGamepadButtonFrontTopLeft, emu.NeoSelect},
	{ebiten.Key5, ebiten.StandardGamepadButtonCenterLeft, emu.NeoCoin},
	{ebiten.Key9, noPad, emu.NeoService},
}

// Runner wraps a machine for command-line mode.
// The machine runs on a dedicated goroutine paced by the board's frame rate.
// The Ebiten thread handles input polling and rendering from the shared framebuffer.
type Runner struct {
	emulator *emubridge.Emulator
	bindings []binding

	emuControl        *ui.EmuControl
	sharedInput       *ui.SharedInput
	sharedFramebuffer *ui.SharedFramebuffer
	emuDone           chan struct{}
}

// NewRunner creates a new Runner wrapping the given machine and starts
// the emulation goroutine.
func NewRunner(e *emubridge.Emulator) *Runner {
	bindings := append([]binding(nil), directionBindings...)
	switch e.Board() {
	case emu.BoardKonami:
		bindings = append(bindings, konamiBindings...)
	case emu.BoardNeoGeo:
		bindings = append(bindings, neoBindings...)
	default:
		bindings = append(bindings, reelBindings...)
	}

	r := &Runner{
		emulator:          e,
		bindings:          bindings,
		emuControl:        ui.NewEmuControl(),
		sharedInput:       &ui.SharedInput{},
		sharedFramebuffer: ui.NewSharedFramebuffer(e.GetFramebufferStride() * e.GetActiveHeight()),
		emuDone:           make(chan struct{}),
	}

	go r.emulationLoop()

	return r
}

// Close stops the emulation goroutine.
func (r *Runner) Close() {
	if r.emuControl != nil {
		r.emuControl.Stop()
		<-r.emuDone
		r.emuControl = nil
	}
}

// emulationLoop runs on a dedicated goroutine.
func (r *Runner) emulationLoop() {
	defer close(r.emuDone)

	timing := r.emulator.GetTiming()
	frameTime := time.Duration(float64(time.Second) / float64(timing.FPS))
	next := time.Now()

	for r.emuControl.CheckPause() {
		for p := 0; p < ui.MaxPlayers; p++ {
			r.emulator.SetInput(p, r.sharedInput.Read(p))
		}

		r.emulator.RunFrame()

		r.sharedFramebuffer.Update(
			r.emulator.GetFramebuffer(),
			r.emulator.GetFramebufferStride(),
			r.emulator.GetActiveHeight(),
		)

		next = next.Add(frameTime)
		if sleep := time.Until(next); sleep > time.Millisecond {
			time.Sleep(sleep)
		} else if sleep < -frameTime {
			// fell behind; don't try to catch up
			next = time.Now()
		}
	}
}

// Update implements ebiten.Game.
func (r *Runner) Update() error {
	if !ebiten.IsFocused() {
		return nil
	}

	r.pollInputToShared()
	return nil
}

// Draw implements ebiten.Game.
func (r *Runner) Draw(screen *ebiten.Image) {
	pixels, stride, height := r.sharedFramebuffer.Read()
	if height == 0 {
		return
	}
	r.emulator.DrawCachedFramebuffer(screen, pixels, stride, height)
}

// Layout implements ebiten.Game.
func (r *Runner) Layout(outsideWidth, outsideHeight int) (int, int) {
	return r.emulator.Layout(outsideWidth, outsideHeight)
}

// pollInputToShared reads keyboard and gamepad input and writes to shared
// state. The keyboard drives player 1; gamepads drive players in the order
// they were connected.
func (r *Runner) pollInputToShared() {
	var masks [ui.MaxPlayers]uint32

	for _, b := range r.bindings {
		if ebiten.IsKeyPressed(b.key) {
			masks[0] |= 1 << uint(b.id)
		}
	}

	for i, id := range ebiten.AppendGamepadIDs(nil) {
		if i >= ui.MaxPlayers {
			break
		}
		if !ebiten.IsStandardGamepadLayoutAvailable(id) {
			continue
		}
		for _, b := range r.bindings {
			if b.pad != noPad && ebiten.IsStandardGamepadButtonPressed(id, b.pad) {
				masks[i] |= 1 << uint(b.id)
			}
		}

		// Left analog stick (with deadzone)
		const deadzone = 0.5
		axisX := ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickHorizontal)
		axisY := ebiten.StandardGamepadAxisValue(id, ebiten.StandardGamepadAxisLeftStickVertical)
		if axisX < -deadzone {
			masks[i] |= 1 << uint(emucore.ButtonLeft)
		}
		if axisX > deadzone {
			masks[i] |= 1 << uint(emucore.ButtonRight)
		}
		if axisY < -deadzone {
			masks[i] |= 1 << uint(emucore.ButtonUp)
		}
		if axisY > deadzone {
			masks[i] |= 1 << uint(emucore.ButtonDown)
		}
	}

	for p, m := range masks {
		r.sharedInput.Set(p, m)
	}
}
