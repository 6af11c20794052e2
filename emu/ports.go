package emu

import (
	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-z80"
)

// Z80Port connects a Z80 core to a program router and an optional I/O
// router.
type Z80Port struct {
	mem *Router
	io  *Router
}

var _ z80.Bus = (*Z80Port)(nil)

// NewZ80Port returns a port over mem and io. io may be nil for boards
// with no port-mapped devices.
func NewZ80Port(mem, io *Router) *Z80Port {
	return &Z80Port{mem: mem, io: io}
}

// Fetch reads an opcode byte. The boards here have no M1-specific decode.
func (p *Z80Port) Fetch(addr uint16) uint8 {
	return p.mem.Read(uint32(addr))
}

func (p *Z80Port) Read(addr uint16) uint8 {
	return p.mem.Read(uint32(addr))
}

func (p *Z80Port) Write(addr uint16, val uint8) {
	p.mem.Write(uint32(addr), val)
}

// In reads an I/O port. With no I/O router the bus floats high.
func (p *Z80Port) In(port uint16) uint8 {
	if p.io == nil {
		return DefaultOpenBus
	}
	return p.io.Read(uint32(port))
}

func (p *Z80Port) Out(port uint16, val uint8) {
	if p.io != nil {
		p.io.Write(uint32(port), val)
	}
}

// M68KPort connects a 68000 core to a 24-bit big-endian router.
type M68KPort struct {
	bus *Router
}

var (
	_ m68k.Bus      = (*M68KPort)(nil)
	_ m68k.CycleBus = (*M68KPort)(nil)
)

// NewM68KPort returns a port over bus.
func NewM68KPort(bus *Router) *M68KPort {
	return &M68KPort{bus: bus}
}

func sizeWidth(s m68k.Size) Width {
	switch s {
	case m68k.Word:
		return Word
	case m68k.Long:
		return Long
	default:
		return Byte
	}
}

// Read implements m68k.Bus.
func (p *M68KPort) Read(s m68k.Size, addr uint32) uint32 {
	return p.bus.ReadSized(sizeWidth(s), addr)
}

// Write implements m68k.Bus.
func (p *M68KPort) Write(s m68k.Size, addr uint32, value uint32) {
	p.bus.WriteSized(sizeWidth(s), addr, value)
}

// ReadCycle implements m68k.CycleBus. The router is not cycle-aware.
func (p *M68KPort) ReadCycle(cycle uint64, s m68k.Size, addr uint32) uint32 {
	return p.Read(s, addr)
}

// WriteCycle implements m68k.CycleBus.
func (p *M68KPort) WriteCycle(cycle uint64, s m68k.Size, addr uint32, value uint32) {
	p.Write(s, addr, value)
}

// Reset implements m68k.Bus. Device state is owned by the machine.
func (p *M68KPort) Reset() {}
