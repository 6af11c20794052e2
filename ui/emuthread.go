package ui

import (
	"sync"
)

// MaxPlayers is the number of input masks SharedInput carries.
const MaxPlayers = 2

// SharedInput holds per-player button masks written by the Ebiten thread
// and read by the emulation goroutine. Bit n of a mask is button ID n.
type SharedInput struct {
	mu      sync.Mutex
	buttons [MaxPlayers]uint32
}

// Set replaces the button mask of player.
func (si *SharedInput) Set(player int, buttons uint32) {
	if player < 0 || player >= MaxPlayers {
		return
	}
	si.mu.Lock()
	si.buttons[player] = buttons
	si.mu.Unlock()
}

// Read returns the button mask of player.
func (si *SharedInput) Read(player int) uint32 {
	if player < 0 || player >= MaxPlayers {
		return 0
	}
	si.mu.Lock()
	b := si.buttons[player]
	si.mu.Unlock()
	return b
}

// SharedFramebuffer holds pixel data written by the emulation goroutine
// and read by Ebiten's Draw() method. Uses separate write and read buffers
// so the emu goroutine can write new data while Draw uses the read copy.
type SharedFramebuffer struct {
	mu           sync.Mutex
	writePixels  []byte // Written by emu goroutine under lock
	readPixels   []byte // Snapshot copied on Read for safe external use
	stride       int
	activeHeight int
	frames       uint64
}

// NewSharedFramebuffer creates a framebuffer able to hold size bytes,
// normally stride times the tallest active height of the board.
func NewSharedFramebuffer(size int) *SharedFramebuffer {
	return &SharedFramebuffer{
		writePixels: make([]byte, size),
		readPixels:  make([]byte, size),
	}
}

// Update copies framebuffer data from the emulation goroutine.
func (sf *SharedFramebuffer) Update(pixels []byte, stride, activeHeight int) {
	sf.mu.Lock()
	n := min(stride*activeHeight, len(sf.writePixels), len(pixels))
	copy(sf.writePixels[:n], pixels[:n])
	sf.stride = stride
	sf.activeHeight = activeHeight
	sf.frames++
	sf.mu.Unlock()
}

// Read returns a snapshot of the current framebuffer state. The returned
// slice is safe to use without holding the lock until the next Read.
func (sf *SharedFramebuffer) Read() (pixels []byte, stride, activeHeight int) {
	sf.mu.Lock()
	stride = sf.stride
	activeHeight = sf.activeHeight
	n := min(stride*activeHeight, len(sf.writePixels))
	if n > 0 {
		copy(sf.readPixels[:n], sf.writePixels[:n])
	}
	pixels = sf.readPixels
	sf.mu.Unlock()
	return
}

// Frames returns how many updates have been published.
func (sf *SharedFramebuffer) Frames() uint64 {
	sf.mu.Lock()
	defer sf.mu.Unlock()
	return sf.frames
}

// EmuControl coordinates pause, resume and stop between the Ebiten
// thread and the emulation goroutine. The goroutine calls CheckPause
// between frames.
type EmuControl struct {
	mu       sync.Mutex
	cond     *sync.Cond
	pauseReq bool
	paused   bool
	stopped  bool
}

// NewEmuControl creates a new emulation control in the running state.
func NewEmuControl() *EmuControl {
	ec := &EmuControl{}
	ec.cond = sync.NewCond(&ec.mu)
	return ec
}

// RequestPause asks the emulation goroutine to pause and blocks until it
// has parked, or until the control is stopped.
func (ec *EmuControl) RequestPause() {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if ec.stopped {
		return
	}
	ec.pauseReq = true
	for !ec.paused && !ec.stopped {
		ec.cond.Wait()
	}
}

// RequestResume releases a paused emulation goroutine.
func (ec *EmuControl) RequestResume() {
	ec.mu.Lock()
	ec.pauseReq = false
	ec.cond.Broadcast()
	ec.mu.Unlock()
}

// CheckPause parks the calling goroutine while a pause is requested.
// Returns false if the goroutine should exit.
func (ec *EmuControl) CheckPause() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	for ec.pauseReq && !ec.stopped {
		if !ec.paused {
			ec.paused = true
			ec.cond.Broadcast()
		}
		ec.cond.Wait()
	}
	ec.paused = false
	return !ec.stopped
}

// Stop signals the emulation goroutine to exit and wakes any waiter.
func (ec *EmuControl) Stop() {
	ec.mu.Lock()
	ec.stopped = true
	ec.pauseReq = false
	ec.cond.Broadcast()
	ec.mu.Unlock()
}

// ShouldRun returns true if the goroutine should continue running.
func (ec *EmuControl) ShouldRun() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return !ec.stopped
}

// IsPaused returns true if the emulation goroutine is currently parked.
func (ec *EmuControl) IsPaused() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.paused
}
