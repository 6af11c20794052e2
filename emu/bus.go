package emu

import (
	"fmt"
	"log"
	"sort"
)

// DefaultOpenBus is the value most boards float to on an unmapped read.
const DefaultOpenBus = 0xFF

// Width is the size of a bus transaction in bytes.
type Width uint8

const (
	Byte Width = 1
	Word Width = 2
	Long Width = 4
)

// bytes returns the number of byte cycles for w. Unknown widths are
// treated as a single byte.
func (w Width) bytes() int {
	switch w {
	case Word:
		return 2
	case Long:
		return 4
	default:
		return 1
	}
}

// Direction is the direction of a transaction, or the set of directions
// a region responds to.
type Direction uint8

const (
	DirRead Direction = 1 << iota
	DirWrite

	DirReadWrite = DirRead | DirWrite
)

func (d Direction) String() string {
	switch d {
	case DirRead:
		return "read"
	case DirWrite:
		return "write"
	case DirReadWrite:
		return "read/write"
	default:
		return "none"
	}
}

// Transaction is one address/width/direction/data exchange issued by the
// simulated processor. For reads Data is filled in by Execute.
type Transaction struct {
	Addr  uint32
	Width Width
	Dir   Direction
	Data  uint32
}

// Handler services byte cycles for a region. offset is relative to the
// base of the region the handler is bound to.
type Handler interface {
	Read(offset uint32) uint8
	Write(offset uint32, val uint8)
}

// WordHandler is a Handler for a 16-bit device that must see aligned word
// cycles whole. On a big-endian router, an aligned Word transaction, or
// each half of a Long, is passed to ReadWord/WriteWord when both bytes
// route to the same region. Byte cycles still use Read and Write.
type WordHandler interface {
	Handler
	ReadWord(offset uint32) uint16
	WriteWord(offset uint32, val uint16)
}

// Region is a named address range bound to a handler.
type Region struct {
	Name    string
	Base    uint32
	Size    uint32
	Access  Direction
	Handler Handler

	order int
}

// End returns the last address covered by the region.
func (r *Region) End() uint32 {
	return r.Base + r.Size - 1
}

// Order returns the registration order of the region within its router.
func (r *Region) Order() int {
	return r.order
}

func (r *Region) covers(lo, hi uint64) bool {
	return uint64(r.Base) <= lo && hi < uint64(r.Base)+uint64(r.Size)
}

// RouterConfig holds the fixed geometry of an address space.
type RouterConfig struct {
	Name string

	// AddrBits is the width of the address bus. Zero means 16.
	AddrBits int

	// AddrMask is applied to every address before decode, in addition to
	// the AddrBits mask. Zero means no extra mask.
	AddrMask uint32

	// LittleEndian selects byte order for Word and Long transactions.
	LittleEndian bool

	// OpenBus is returned for every byte of an unmapped read.
	OpenBus uint8

	LogUnmapped bool
	Logger      *log.Logger
}

// span is a contiguous run of addresses owned by one region after
// overlap resolution.
type span struct {
	start, end uint32
	region     *Region
}

// Router dispatches transactions to the handler of the effective region.
//
// Regions may overlap. For addresses in the overlap of two regions the
// later-registered region wins; addresses that belong only to an earlier,
// wider region still route to it. Resolution is done per direction, so a
// write-only region registered inside a read/write region narrows writes
// only. The resolved layout is computed once in NewRouter.
type Router struct {
	name    string
	regions []*Region
	reads   []span
	writes  []span

	mask         uint32
	littleEndian bool
	openBus      uint8

	logUnmapped bool
	logger      *log.Logger

	unmappedReads  uint64
	unmappedWrites uint64
}

// NewRouter validates regions and builds the resolved decode tables.
// Regions are registered in argument order.
func NewRouter(cfg RouterConfig, regions ...Region) (*Router, error) {
	bits := cfg.AddrBits
	if bits == 0 {
		bits = 16
	}
	if bits < 1 || bits > 32 {
		return nil, fmt.Errorf("%s: %w", cfg.Name, ErrBadAddressBits)
	}
	space := uint64(1) << uint(bits)
	mask := uint32(space - 1)
	if cfg.AddrMask != 0 {
		mask &= cfg.AddrMask
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	r := &Router{
		name:         cfg.Name,
		mask:         mask,
		littleEndian: cfg.LittleEndian,
		openBus:      cfg.OpenBus,
		logUnmapped:  cfg.LogUnmapped,
		logger:       logger,
	}

	for i, reg := range regions {
		switch {
		case reg.Size == 0:
			return nil, fmt.Errorf("%s: region %q: %w", cfg.Name, reg.Name, ErrZeroSizeRegion)
		case reg.Handler == nil:
			return nil, fmt.Errorf("%s: region %q: %w", cfg.Name, reg.Name, ErrNilHandler)
		case reg.Access&DirReadWrite == 0:
			return nil, fmt.Errorf("%s: region %q: %w", cfg.Name, reg.Name, ErrNoAccess)
		case uint64(reg.Base)+uint64(reg.Size) > space:
			return nil, fmt.Errorf("%s: region %q: %w", cfg.Name, reg.Name, ErrRegionOutOfSpace)
		}
		for _, prev := range r.regions {
			if prev.Base == reg.Base && prev.Size == reg.Size && prev.Access&reg.Access != 0 {
				return nil, fmt.Errorf("%s: regions %q and %q: %w", cfg.Name, prev.Name, reg.Name, ErrDuplicateRegion)
			}
		}
		rc := reg
		rc.order = i
		r.regions = append(r.regions, &rc)
	}

	r.reads = resolveSpans(r.regions, DirRead)
	r.writes = resolveSpans(r.regions, DirWrite)
	return r, nil
}

// resolveSpans flattens the regions responding to dir into
// non-overlapping spans, with later registrations painted over earlier
// ones.
func resolveSpans(regions []*Region, dir Direction) []span {
	var cuts []uint64
	for _, reg := range regions {
		if reg.Access&dir == 0 {
			continue
		}
		cuts = append(cuts, uint64(reg.Base), uint64(reg.Base)+uint64(reg.Size))
	}
	sort.Slice(cuts, func(i, j int) bool { return cuts[i] < cuts[j] })

	var spans []span
	for i := 0; i+1 < len(cuts); i++ {
		lo, hi := cuts[i], cuts[i+1]-1
		if cuts[i] == cuts[i+1] {
			continue
		}

		var owner *Region
		for _, reg := range regions {
			if reg.Access&dir != 0 && reg.covers(lo, hi) {
				owner = reg
			}
		}
		if owner == nil {
			continue
		}

		if n := len(spans); n > 0 && spans[n-1].region == owner && uint64(spans[n-1].end)+1 == lo {
			spans[n-1].end = uint32(hi)
			continue
		}
		spans = append(spans, span{start: uint32(lo), end: uint32(hi), region: owner})
	}
	return spans
}

func lookup(spans []span, addr uint32) *Region {
	i := sort.Search(len(spans), func(i int) bool { return spans[i].end >= addr })
	if i < len(spans) && spans[i].start <= addr {
		return spans[i].region
	}
	return nil
}

// Name returns the router's configured name.
func (r *Router) Name() string {
	return r.name
}

// Regions returns a copy of the registered regions in registration order.
func (r *Router) Regions() []Region {
	out := make([]Region, len(r.regions))
	for i, reg := range r.regions {
		out[i] = *reg
	}
	return out
}

// Route returns the effective region for the first byte of tx.
func (r *Router) Route(tx Transaction) (*Region, error) {
	addr := tx.Addr & r.mask
	var reg *Region
	switch tx.Dir {
	case DirRead:
		reg = lookup(r.reads, addr)
	case DirWrite:
		reg = lookup(r.writes, addr)
	}
	if reg == nil {
		return nil, &AccessError{Bus: r.name, Addr: addr, Dir: tx.Dir, Err: ErrUnmappedAccess}
	}
	return reg, nil
}

// Execute performs tx. Wider transactions are split into byte cycles,
// each routed on its own. Unmapped bytes read as the open-bus value and
// unmapped writes are dropped; the returned error reports the first
// unmapped byte and is never fatal.
func (r *Router) Execute(tx *Transaction) error {
	n := tx.Width.bytes()
	var err error

	switch tx.Dir {
	case DirRead:
		var v uint32
		for i := 0; i < n; {
			addr := tx.Addr + uint32(i)
			if i+1 < n {
				if wh, off, ok := r.wordTarget(r.reads, addr); ok {
					v |= uint32(wh.ReadWord(off)) << r.shift(i+1, n)
					i += 2
					continue
				}
			}
			b, ok := r.readByte(addr)
			if !ok && err == nil {
				err = &AccessError{Bus: r.name, Addr: addr & r.mask, Dir: DirRead, Err: ErrUnmappedAccess}
			}
			v |= uint32(b) << r.shift(i, n)
			i++
		}
		tx.Data = v
	case DirWrite:
		for i := 0; i < n; {
			addr := tx.Addr + uint32(i)
			if i+1 < n {
				if wh, off, ok := r.wordTarget(r.writes, addr); ok {
					wh.WriteWord(off, uint16(tx.Data>>r.shift(i+1, n)))
					i += 2
					continue
				}
			}
			if !r.writeByte(addr, uint8(tx.Data>>r.shift(i, n))) && err == nil {
				err = &AccessError{Bus: r.name, Addr: addr & r.mask, Dir: DirWrite, Err: ErrUnmappedAccess}
			}
			i++
		}
	default:
		err = &AccessError{Bus: r.name, Addr: tx.Addr & r.mask, Dir: tx.Dir, Err: ErrUnmappedAccess}
	}
	return err
}

// wordTarget returns the word handler owning the aligned pair at addr,
// with the offset of the pair within its region.
func (r *Router) wordTarget(spans []span, addr uint32) (WordHandler, uint32, bool) {
	addr &= r.mask
	if r.littleEndian || addr&1 != 0 {
		return nil, 0, false
	}
	reg := lookup(spans, addr)
	if reg == nil || lookup(spans, (addr+1)&r.mask) != reg {
		return nil, 0, false
	}
	wh, ok := reg.Handler.(WordHandler)
	if !ok {
		return nil, 0, false
	}
	return wh, addr - reg.Base, true
}

// shift returns the bit position of byte i of an n-byte value.
func (r *Router) shift(i, n int) uint {
	if r.littleEndian {
		return uint(i * 8)
	}
	return uint((n - 1 - i) * 8)
}

func (r *Router) readByte(addr uint32) (uint8, bool) {
	addr &= r.mask
	reg := lookup(r.reads, addr)
	if reg == nil {
		r.unmappedReads++
		if r.logUnmapped {
			r.logger.Printf("%s: unmapped read at 0x%04X", r.name, addr)
		}
		return r.openBus, false
	}
	return reg.Handler.Read(addr - reg.Base), true
}

func (r *Router) writeByte(addr uint32, val uint8) bool {
	addr &= r.mask
	reg := lookup(r.writes, addr)
	if reg == nil {
		r.unmappedWrites++
		if r.logUnmapped {
			r.logger.Printf("%s: unmapped write 0x%02X at 0x%04X", r.name, val, addr)
		}
		return false
	}
	reg.Handler.Write(addr-reg.Base, val)
	return true
}

// Read implements Handler, so a router can sit behind a region or a
// redirect target of another router.
func (r *Router) Read(addr uint32) uint8 {
	b, _ := r.readByte(addr)
	return b
}

// Write implements Handler.
func (r *Router) Write(addr uint32, val uint8) {
	r.writeByte(addr, val)
}

// ReadSized reads a Byte, Word or Long value at addr.
func (r *Router) ReadSized(w Width, addr uint32) uint32 {
	tx := Transaction{Addr: addr, Width: w, Dir: DirRead}
	r.Execute(&tx)
	return tx.Data
}

// WriteSized writes a Byte, Word or Long value at addr.
func (r *Router) WriteSized(w Width, addr uint32, val uint32) {
	tx := Transaction{Addr: addr, Width: w, Dir: DirWrite, Data: val}
	r.Execute(&tx)
}

// Unmapped returns the number of unmapped byte reads and writes seen.
func (r *Router) Unmapped() (reads, writes uint64) {
	return r.unmappedReads, r.unmappedWrites
}
