package emu

import (
	"errors"
	"fmt"
)

// Runtime outcomes. None of these abort a bus transaction; the operation
// that reports them has already produced a defined result.
var (
	ErrUnmappedAccess = errors.New("unmapped access")
	ErrOutOfRange     = errors.New("bank offset out of range")
	ErrInvalidDecode  = errors.New("invalid bank decode")
)

// Setup errors. These indicate a construction defect and are returned
// from constructors.
var (
	ErrZeroSizeRegion   = errors.New("region has zero size")
	ErrRegionOutOfSpace = errors.New("region extends past the address space")
	ErrNilHandler       = errors.New("region has no handler")
	ErrNoAccess         = errors.New("region has no access direction")
	ErrDuplicateRegion  = errors.New("duplicate region with identical range and direction")
	ErrBadAddressBits   = errors.New("address bits must be between 1 and 32")
	ErrBadGeometry      = errors.New("invalid geometry")
)

// AccessError describes a transaction that matched no region.
type AccessError struct {
	Bus  string
	Addr uint32
	Dir  Direction
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s: %s at 0x%04X: %v", e.Bus, e.Dir, e.Addr, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}
