package emu

import (
	"fmt"
	"image/color"
)

// GfxLayout decodes packed tile graphics. Tiles are stored back to back,
// row-major, Width*BPP bits per row.
type GfxLayout struct {
	Width  int
	Height int
	BPP    int

	// LowNibbleFirst places the leftmost pixel in the least significant
	// bits of each byte. Otherwise the leftmost pixel is in the high bits.
	LowNibbleFirst bool

	data      []byte
	rowBytes  int
	tileBytes int
}

// NewGfxLayout returns a layout of w x h tiles at bpp bits per pixel over
// data. bpp must be 1, 2, 4 or 8.
func NewGfxLayout(w, h, bpp int, data []byte) (*GfxLayout, error) {
	switch bpp {
	case 1, 2, 4, 8:
	default:
		return nil, fmt.Errorf("gfx: %d bits per pixel: %w", bpp, ErrBadGeometry)
	}
	if w <= 0 || h <= 0 || (w*bpp)%8 != 0 {
		return nil, fmt.Errorf("gfx: %dx%d tile: %w", w, h, ErrBadGeometry)
	}
	g := &GfxLayout{
		Width:    w,
		Height:   h,
		BPP:      bpp,
		data:     data,
		rowBytes: w * bpp / 8,
	}
	g.tileBytes = g.rowBytes * h
	return g, nil
}

// Count returns the number of whole tiles in the data.
func (g *GfxLayout) Count() int {
	return len(g.data) / g.tileBytes
}

// Colors returns the number of pens one tile can address.
func (g *GfxLayout) Colors() int {
	return 1 << uint(g.BPP)
}

// Pixel returns the pen of pixel (px, py) of tile code. Codes past the
// end of the data wrap.
func (g *GfxLayout) Pixel(code uint32, px, py int) uint8 {
	n := g.Count()
	if n == 0 {
		return 0
	}
	base := int(code%uint32(n))*g.tileBytes + py*g.rowBytes
	if g.BPP == 8 {
		return g.data[base+px]
	}

	bit := px * g.BPP
	b := g.data[base+bit/8]
	var shift int
	if g.LowNibbleFirst {
		shift = bit % 8
	} else {
		shift = 8 - g.BPP - bit%8
	}
	return (b >> uint(shift)) & uint8(g.Colors()-1)
}

// Palette holds color RAM, decoded as xBGR_555 unless SetFormat installs
// another decoder. Entries are either interleaved big-endian words or
// split across a low-byte plane and a high-byte plane
// at separate addresses.
type Palette struct {
	entries int
	split   bool
	format  ColorFunc
	data    []byte
	cache   []color.RGBA
	valid   []bool
}

// NewPalette returns an interleaved palette of entries colors.
func NewPalette(entries int) *Palette {
	return newPalette(entries, false)
}

// NewSplitPalette returns a palette whose low and high bytes are written
// through Plane(0) and Plane(1).
func NewSplitPalette(entries int) *Palette {
	return newPalette(entries, true)
}

func newPalette(entries int, split bool) *Palette {
	return &Palette{
		entries: entries,
		split:   split,
		format:  XBGR555,
		data:    make([]byte, entries*2),
		cache:   make([]color.RGBA, entries),
		valid:   make([]bool, entries),
	}
}

// Entries returns the number of colors.
func (p *Palette) Entries() int {
	return p.entries
}

func (p *Palette) word(i int) uint16 {
	if p.split {
		return uint16(p.data[p.entries+i])<<8 | uint16(p.data[i])
	}
	return uint16(p.data[i*2])<<8 | uint16(p.data[i*2+1])
}

// Color returns the RGBA value of pen.
func (p *Palette) Color(pen uint16) color.RGBA {
	i := int(pen) % p.entries
	if !p.valid[i] {
		p.cache[i] = p.format(p.word(i))
		p.valid[i] = true
	}
	return p.cache[i]
}

// ColorFunc converts one palette word to a color.
type ColorFunc func(w uint16) color.RGBA

// XBGR555 decodes a word with red in the low five bits.
func XBGR555(w uint16) color.RGBA {
	return color.RGBA{
		R: pal5bit(uint8(w)),
		G: pal5bit(uint8(w >> 5)),
		B: pal5bit(uint8(w >> 10)),
		A: 0xFF,
	}
}

// SetFormat replaces the word decoder and drops cached colors.
func (p *Palette) SetFormat(f ColorFunc) {
	p.format = f
	for i := range p.valid {
		p.valid[i] = false
	}
}

// pal5bit expands a 5-bit channel to 8 bits.
func pal5bit(c uint8) uint8 {
	c &= 0x1F
	return c<<3 | c>>2
}

// Read implements Handler for an interleaved palette.
func (p *Palette) Read(offset uint32) uint8 {
	return p.data[int(offset)%len(p.data)]
}

// Write implements Handler for an interleaved palette.
func (p *Palette) Write(offset uint32, val uint8) {
	i := int(offset) % len(p.data)
	p.data[i] = val
	if p.split {
		p.valid[i%p.entries] = false
	} else {
		p.valid[i/2] = false
	}
}

// Plane returns a handler over the low (0) or high (1) byte plane of a
// split palette.
func (p *Palette) Plane(n int) Handler {
	return paletteplane{p: p, base: (n & 1) * p.entries}
}

type paletteplane struct {
	p    *Palette
	base int
}

func (pp paletteplane) Read(offset uint32) uint8 {
	return pp.p.data[pp.base+int(offset)%pp.p.entries]
}

func (pp paletteplane) Write(offset uint32, val uint8) {
	i := int(offset) % pp.p.entries
	pp.p.data[pp.base+i] = val
	pp.p.valid[i] = false
}

// Bytes returns the raw palette RAM.
func (p *Palette) Bytes() []byte {
	return p.data
}

// SetBytes replaces the raw palette RAM and drops cached colors.
func (p *Palette) SetBytes(data []byte) {
	copy(p.data, data)
	for i := range p.valid {
		p.valid[i] = false
	}
}
