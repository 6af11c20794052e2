package emu

import (
	"fmt"
	"log"
)

// DecodeFunc maps a committed control value to a bank index. ok is false
// when the value does not select a valid bank.
type DecodeFunc func(val uint8) (bank int, ok bool)

// RangePolicy decides what an out-of-range resolution produces.
type RangePolicy int

const (
	// RangeClamp pins the address to the last byte of the store.
	RangeClamp RangePolicy = iota
	// RangeWrap wraps the address modulo the store size.
	RangeWrap
)

// DecodeField returns a decode function that takes (val & mask) >> shift
// as the bank.
func DecodeField(mask uint8, shift uint) DecodeFunc {
	return func(val uint8) (int, bool) {
		return int((val & mask) >> shift), true
	}
}

// DecodeBottom9 selects banks 8..11 when bit 4 is set, using bits 2:1,
// and banks 0..7 otherwise, using bits 3:1.
func DecodeBottom9(val uint8) (int, bool) {
	if val&0x10 != 0 {
		return 8 + int((val&0x06)>>1), true
	}
	return int((val & 0x0E) >> 1), true
}

// BankConfig describes a bank window.
type BankConfig struct {
	Name string

	// Size is the width of the CPU-visible window in bytes.
	Size uint32

	// Store is the larger backing memory the window slides over.
	Store []byte

	Decode   DecodeFunc
	Policy   RangePolicy
	Writable bool

	Logger *log.Logger
}

// BankWindow maps a fixed CPU-visible slot onto bank*Size of a backing
// store.
type BankWindow struct {
	name     string
	size     uint32
	store    []byte
	decode   DecodeFunc
	policy   RangePolicy
	writable bool
	logger   *log.Logger

	bank int
	last uint8

	invalid    uint64
	outOfRange uint64
}

// NewBankWindow validates cfg and returns a window selecting bank 0.
func NewBankWindow(cfg BankConfig) (*BankWindow, error) {
	if cfg.Size == 0 {
		return nil, fmt.Errorf("bank %s: window size: %w", cfg.Name, ErrBadGeometry)
	}
	if len(cfg.Store) == 0 {
		return nil, fmt.Errorf("bank %s: empty backing store: %w", cfg.Name, ErrBadGeometry)
	}
	decode := cfg.Decode
	if decode == nil {
		decode = DecodeField(0xFF, 0)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &BankWindow{
		name:     cfg.Name,
		size:     cfg.Size,
		store:    cfg.Store,
		decode:   decode,
		policy:   cfg.Policy,
		writable: cfg.Writable,
		logger:   logger,
	}, nil
}

// Banks returns the number of banks that start inside the backing
// store. The last one may be partly backed; its tail resolves through
// the range policy.
func (b *BankWindow) Banks() int {
	return (len(b.store) + int(b.size) - 1) / int(b.size)
}

// Select decodes val and commits the result. An invalid decode, or a bank
// past the end of the store, falls back to bank 0 and returns
// ErrInvalidDecode. Resolutions already performed are unaffected.
func (b *BankWindow) Select(val uint8) error {
	b.last = val
	bank, ok := b.decode(val)
	if !ok || bank < 0 || bank >= b.Banks() {
		b.invalid++
		b.logger.Printf("%s: control value 0x%02X decodes to no valid bank (got %d of %d), using bank 0",
			b.name, val, bank, b.Banks())
		b.bank = 0
		return fmt.Errorf("%s: value 0x%02X: %w", b.name, val, ErrInvalidDecode)
	}
	b.bank = bank
	return nil
}

// SetBank commits a bank index directly, as when restoring state.
func (b *BankWindow) SetBank(bank int, last uint8) {
	if bank < 0 || bank >= b.Banks() {
		bank = 0
	}
	b.bank = bank
	b.last = last
}

// Bank returns the current bank index.
func (b *BankWindow) Bank() int {
	return b.bank
}

// LastValue returns the control value most recently passed to Select.
func (b *BankWindow) LastValue() uint8 {
	return b.last
}

// InvalidDecodes returns how many selections fell back to bank 0.
func (b *BankWindow) InvalidDecodes() uint64 {
	return b.invalid
}

// Resolve translates a window offset into a backing store address. A
// result past the store is clamped or wrapped by policy and reported as
// ErrOutOfRange.
func (b *BankWindow) Resolve(offset uint32) (uint32, error) {
	addr := uint64(b.bank)*uint64(b.size) + uint64(offset)
	n := uint64(len(b.store))
	if addr < n {
		return uint32(addr), nil
	}
	b.outOfRange++
	var fixed uint64
	switch b.policy {
	case RangeWrap:
		fixed = addr % n
	default:
		fixed = n - 1
	}
	return uint32(fixed), fmt.Errorf("%s: 0x%X: %w", b.name, addr, ErrOutOfRange)
}

func (b *BankWindow) Read(offset uint32) uint8 {
	addr, _ := b.Resolve(offset)
	return b.store[addr]
}

func (b *BankWindow) Write(offset uint32, val uint8) {
	if !b.writable {
		return
	}
	addr, _ := b.Resolve(offset)
	b.store[addr] = val
}

// Attach re-decodes the bank on every commit to reg of cs.
func (b *BankWindow) Attach(cs *ControlState, reg ControlReg) {
	cs.Observe(reg, func(old, val uint8) {
		b.Select(val)
	})
}
