package emu

import (
	"errors"
	"fmt"
)

// ControlReg names one byte-wide control register.
type ControlReg uint8

// MaxControlRegs is the number of control registers a machine can hold.
const MaxControlRegs = 16

const controlStateVersion = 1

// ControlState is the live set of control latches written by the CPU
// through the bus and read by redirectors, the tile cache and the
// compositor. Writes are whole-byte commits; observers run after the new
// value is stored.
type ControlState struct {
	regs      [MaxControlRegs]uint8
	defaults  [MaxControlRegs]uint8
	observers [MaxControlRegs][]func(old, val uint8)
	commits   uint64
}

// NewControlState returns a control state with every register zero.
func NewControlState() *ControlState {
	return &ControlState{}
}

// SetDefault sets the reset value of reg and applies it immediately
// without notifying observers.
func (cs *ControlState) SetDefault(reg ControlReg, val uint8) {
	cs.defaults[reg%MaxControlRegs] = val
	cs.regs[reg%MaxControlRegs] = val
}

// Value returns the committed value of reg.
func (cs *ControlState) Value(reg ControlReg) uint8 {
	return cs.regs[reg%MaxControlRegs]
}

// Commit stores val into reg and then notifies the observers of reg.
func (cs *ControlState) Commit(reg ControlReg, val uint8) {
	reg %= MaxControlRegs
	old := cs.regs[reg]
	cs.regs[reg] = val
	cs.commits++
	for _, fn := range cs.observers[reg] {
		fn(old, val)
	}
}

// Observe registers fn to run after every commit to reg.
func (cs *ControlState) Observe(reg ControlReg, fn func(old, val uint8)) {
	reg %= MaxControlRegs
	cs.observers[reg] = append(cs.observers[reg], fn)
}

// Generation returns the number of commits since creation.
func (cs *ControlState) Generation() uint64 {
	return cs.commits
}

// Reset restores every register to its default. All values are stored
// before any observer runs, so observers see a consistent state.
func (cs *ControlState) Reset() {
	cs.restore(cs.defaults)
}

func (cs *ControlState) restore(vals [MaxControlRegs]uint8) {
	old := cs.regs
	cs.regs = vals
	for i := range cs.regs {
		if old[i] == cs.regs[i] {
			continue
		}
		for _, fn := range cs.observers[i] {
			fn(old[i], cs.regs[i])
		}
	}
}

// Test reports whether f is asserted.
func (cs *ControlState) Test(f Flag) bool {
	set := cs.Value(f.Reg)&f.Mask != 0
	if f.ActiveLow {
		return !set
	}
	return set
}

// MarshalBinary encodes the register values.
func (cs *ControlState) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 2+MaxControlRegs)
	buf[0] = controlStateVersion
	buf[1] = MaxControlRegs
	copy(buf[2:], cs.regs[:])
	return buf, nil
}

// UnmarshalBinary restores register values produced by MarshalBinary.
// Observers of changed registers are notified.
func (cs *ControlState) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return errors.New("control state too short")
	}
	if data[0] != controlStateVersion {
		return fmt.Errorf("unsupported control state version: %d", data[0])
	}
	n := int(data[1])
	if n > MaxControlRegs || len(data) < 2+n {
		return errors.New("control state truncated")
	}
	vals := cs.regs
	copy(vals[:], data[2:2+n])
	cs.restore(vals)
	return nil
}

// Flag is a single bit or bit group of a control register.
type Flag struct {
	Reg       ControlReg
	Mask      uint8
	ActiveLow bool
}
