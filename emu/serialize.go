package emu

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"log"

	"github.com/user-none/go-chip-m68k"
	"github.com/user-none/go-chip-z80"
)

// Save state format constants
const (
	stateVersion    = 1
	stateMagic      = "eMARCState\x00\x00"
	stateHeaderSize = 22 // magic(12) + version(2) + romCRC(4) + dataCRC(4)
)

const (
	controlSerializeSize = 2 + MaxControlRegs // version + count + registers
	bankSerializeSize    = 5                  // bank(4) + last value(1)
	machineBaseSize      = 2                  // board(1) + intPending(1)
)

// boolByte converts a bool to a uint8 (0 or 1).
func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// SerializeSize returns the save state size of board.
func SerializeSize(board Board) int {
	m, err := NewMachine([]byte{0}, MachineConfig{
		Board:  board,
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		return 0
	}
	return m.SerializeSize()
}

// SerializeSize returns the total size in bytes needed for a save state.
func (m *Machine) SerializeSize() int {
	size := stateHeaderSize + machineBaseSize + controlSerializeSize +
		bankSerializeSize*len(m.banks)
	if m.cpu != nil {
		size += z80.SerializeSize
	}
	if m.m68k != nil {
		size += m68k.SerializeSize
	}
	for _, d := range m.devices {
		size += d.stateSize()
	}
	for _, r := range m.rams {
		size += len(r.Bytes())
	}
	for i := 0; i < m.tiles.Len(); i++ {
		tm := m.tiles.Layer(i)
		size += len(tm.Memory()) + tm.Scroll().Len()
	}
	for _, s := range m.scrolls {
		size += s.Len()
	}
	return size + len(m.palette.Bytes())
}

// Serialize creates a save state and returns it as a byte slice.
func (m *Machine) Serialize() ([]byte, error) {
	data := make([]byte, m.SerializeSize())

	copy(data[0:12], stateMagic)
	binary.LittleEndian.PutUint16(data[12:14], stateVersion)
	binary.LittleEndian.PutUint32(data[14:18], m.roms.CRC32())

	offset := stateHeaderSize

	data[offset] = uint8(m.board)
	offset++
	data[offset] = boolByte(m.intPending)
	offset++

	ctl, err := m.control.MarshalBinary()
	if err != nil {
		return nil, err
	}
	copy(data[offset:], ctl)
	offset += controlSerializeSize

	for _, b := range m.banks {
		binary.LittleEndian.PutUint32(data[offset:], uint32(b.Bank()))
		data[offset+4] = b.LastValue()
		offset += bankSerializeSize
	}

	if m.cpu != nil {
		if err := m.cpu.Serialize(data[offset:]); err != nil {
			return nil, err
		}
		offset += z80.SerializeSize
	}
	if m.m68k != nil {
		if err := m.m68k.Serialize(data[offset:]); err != nil {
			return nil, err
		}
		offset += m68k.SerializeSize
	}
	for _, d := range m.devices {
		d.saveState(data[offset:])
		offset += d.stateSize()
	}

	offset = m.serializeMemory(data, offset)

	dataCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	binary.LittleEndian.PutUint32(data[18:22], dataCRC)

	return data, nil
}

// serializeMemory writes RAM, tile storage, scroll tables and palette.
func (m *Machine) serializeMemory(data []byte, offset int) int {
	for _, r := range m.rams {
		offset += copy(data[offset:], r.Bytes())
	}
	for i := 0; i < m.tiles.Len(); i++ {
		tm := m.tiles.Layer(i)
		offset += copy(data[offset:], tm.Memory())
		offset += copy(data[offset:], tm.Scroll().Bytes())
	}
	for _, s := range m.scrolls {
		offset += copy(data[offset:], s.Bytes())
	}
	offset += copy(data[offset:], m.palette.Bytes())
	return offset
}

// Deserialize restores machine state from a save state byte slice.
// Every tile is marked dirty afterwards.
func (m *Machine) Deserialize(data []byte) error {
	if err := m.VerifyState(data); err != nil {
		return err
	}

	offset := stateHeaderSize

	if Board(data[offset]) != m.board {
		return errors.New("save state is for a different board")
	}
	offset++
	m.intPending = data[offset] != 0
	offset++

	if err := m.control.UnmarshalBinary(data[offset : offset+controlSerializeSize]); err != nil {
		return err
	}
	offset += controlSerializeSize

	// Banks after control registers: restoring registers re-decodes.
	for _, b := range m.banks {
		b.SetBank(int(binary.LittleEndian.Uint32(data[offset:])), data[offset+4])
		offset += bankSerializeSize
	}

	if m.cpu != nil {
		if err := m.cpu.Deserialize(data[offset:]); err != nil {
			return err
		}
		offset += z80.SerializeSize
	}
	if m.m68k != nil {
		if err := m.m68k.Deserialize(data[offset:]); err != nil {
			return err
		}
		offset += m68k.SerializeSize
	}
	for _, d := range m.devices {
		d.loadState(data[offset:])
		offset += d.stateSize()
	}

	for _, r := range m.rams {
		offset += copy(r.Bytes(), data[offset:])
	}
	for i := 0; i < m.tiles.Len(); i++ {
		tm := m.tiles.Layer(i)
		offset += copy(tm.Memory(), data[offset:])
		offset += copy(tm.Scroll().Bytes(), data[offset:])
		tm.MarkAllDirty()
	}
	for _, s := range m.scrolls {
		offset += copy(s.Bytes(), data[offset:])
	}
	m.palette.SetBytes(data[offset : offset+len(m.palette.Bytes())])

	return nil
}

// VerifyState checks if a save state is valid without loading it.
func (m *Machine) VerifyState(data []byte) error {
	if len(data) < m.SerializeSize() {
		return errors.New("save state too short")
	}

	if string(data[0:12]) != stateMagic {
		return errors.New("invalid save state magic")
	}

	version := binary.LittleEndian.Uint16(data[12:14])
	if version > stateVersion {
		return errors.New("unsupported save state version")
	}

	romCRC := binary.LittleEndian.Uint32(data[14:18])
	if romCRC != m.roms.CRC32() {
		return errors.New("save state is for a different ROM")
	}

	expectedCRC := binary.LittleEndian.Uint32(data[18:22])
	actualCRC := crc32.ChecksumIEEE(data[stateHeaderSize:])
	if expectedCRC != actualCRC {
		return errors.New("save state data is corrupted")
	}

	return nil
}
