package emu

import (
	"fmt"
)

// Tile flip bits.
const (
	FlipX uint8 = 1 << iota
	FlipY
)

// TileRecord is the regenerated identity of one tile.
type TileRecord struct {
	CodeLow  uint32
	Attr     uint8
	BankBits uint32
	Color    uint16
	Flip     uint8
}

// Code returns the full tile code, base code plus mode-derived bank bits.
func (t TileRecord) Code() uint32 {
	return t.CodeLow | t.BankBits
}

// TileInfoFunc builds the record for tile index from backing storage and
// the current control state.
type TileInfoFunc func(mem []byte, index int, cs *ControlState) TileRecord

// ModeMask names the control bits a layer's tile records depend on.
type ModeMask struct {
	Reg  ControlReg
	Mask uint8
}

// ScrollAxis selects how a layer's scroll table applies.
type ScrollAxis int

const (
	ScrollNone ScrollAxis = iota
	// ScrollPerColumn shifts each column vertically.
	ScrollPerColumn
	// ScrollPerRow shifts each row horizontally.
	ScrollPerRow
)

// LayerConfig describes one tile layer.
type LayerConfig struct {
	Name string
	Cols int
	Rows int
	Gfx  *GfxLayout

	// StorageSize is the size of the backing tile RAM. Zero means one byte
	// per cell.
	StorageSize int

	Info TileInfoFunc

	// Cell maps a storage offset to the tile index it belongs to. Nil
	// folds storage onto cells modulo the cell count.
	Cell func(offset int) int

	Scroll        ScrollAxis
	ScrollEntries int

	Transparent    bool
	TransparentPen uint8

	// ColorBase is the first palette entry used by the layer.
	ColorBase int

	ModeBits []ModeMask
}

// Tilemap is one layer of the tile cache. It is also the bus handler for
// the layer's backing storage.
type Tilemap struct {
	cfg   LayerConfig
	cs    *ControlState
	mem   []byte
	tiles []TileRecord
	dirty []bool

	scroll  *ScrollTable
	scrollX int
	scrollY int

	regenerations uint64
}

func newTilemap(cs *ControlState, cfg LayerConfig) (*Tilemap, error) {
	if cfg.Cols <= 0 || cfg.Rows <= 0 {
		return nil, fmt.Errorf("layer %s: %dx%d cells: %w", cfg.Name, cfg.Cols, cfg.Rows, ErrBadGeometry)
	}
	if cfg.Gfx == nil || cfg.Info == nil {
		return nil, fmt.Errorf("layer %s: missing gfx or tile info: %w", cfg.Name, ErrBadGeometry)
	}
	cells := cfg.Cols * cfg.Rows
	size := cfg.StorageSize
	if size == 0 {
		size = cells
	}
	if size < cells {
		return nil, fmt.Errorf("layer %s: %d bytes of storage for %d cells: %w", cfg.Name, size, cells, ErrBadGeometry)
	}
	entries := cfg.ScrollEntries
	if cfg.Scroll == ScrollNone {
		entries = 0
	} else if entries <= 0 {
		return nil, fmt.Errorf("layer %s: scroll table needs entries: %w", cfg.Name, ErrBadGeometry)
	}

	tm := &Tilemap{
		cfg:    cfg,
		cs:     cs,
		mem:    make([]byte, size),
		tiles:  make([]TileRecord, cells),
		dirty:  make([]bool, cells),
		scroll: NewScrollTable(entries),
	}
	tm.MarkAllDirty()
	return tm, nil
}

// Name returns the layer name.
func (tm *Tilemap) Name() string {
	return tm.cfg.Name
}

// Cells returns Cols*Rows.
func (tm *Tilemap) Cells() int {
	return len(tm.tiles)
}

// Size returns the layer size in pixels.
func (tm *Tilemap) Size() (w, h int) {
	return tm.cfg.Cols * tm.cfg.Gfx.Width, tm.cfg.Rows * tm.cfg.Gfx.Height
}

func (tm *Tilemap) Read(offset uint32) uint8 {
	return tm.mem[int(offset)%len(tm.mem)]
}

// Write stores val and marks the tile it belongs to dirty. Storage larger
// than the cell count folds onto the same tile, so a code byte and its
// attribute byte dirty the same index, unless the layer maps cells
// itself.
func (tm *Tilemap) Write(offset uint32, val uint8) {
	i := int(offset) % len(tm.mem)
	tm.mem[i] = val
	if tm.cfg.Cell != nil {
		tm.MarkDirty(tm.cfg.Cell(i))
		return
	}
	tm.dirty[i%len(tm.tiles)] = true
}

// Memory returns the backing storage.
func (tm *Tilemap) Memory() []byte {
	return tm.mem
}

// Dirty reports whether tile index is pending regeneration.
func (tm *Tilemap) Dirty(index int) bool {
	return tm.dirty[index%len(tm.dirty)]
}

// MarkDirty forces tile index to regenerate on next access.
func (tm *Tilemap) MarkDirty(index int) {
	tm.dirty[index%len(tm.dirty)] = true
}

// MarkAllDirty forces every tile to regenerate on next access.
func (tm *Tilemap) MarkAllDirty() {
	for i := range tm.dirty {
		tm.dirty[i] = true
	}
}

// GetTile returns the record for index, regenerating it first if dirty.
func (tm *Tilemap) GetTile(index int) TileRecord {
	index %= len(tm.tiles)
	if tm.dirty[index] {
		tm.tiles[index] = tm.cfg.Info(tm.mem, index, tm.cs)
		tm.dirty[index] = false
		tm.regenerations++
	}
	return tm.tiles[index]
}

// Regenerations returns how many tile records have been rebuilt.
func (tm *Tilemap) Regenerations() uint64 {
	return tm.regenerations
}

// Scroll returns the layer's scroll table.
func (tm *Tilemap) Scroll() *ScrollTable {
	return tm.scroll
}

// SetScrollX sets the global horizontal scroll.
func (tm *Tilemap) SetScrollX(x int) {
	tm.scrollX = x
}

// SetScrollY sets the global vertical scroll.
func (tm *Tilemap) SetScrollY(y int) {
	tm.scrollY = y
}

// sample returns the pen at screen position (x, y) using scroll in place
// of the layer's own table. ok is false for a transparent pixel.
func (tm *Tilemap) sample(x, y int, scroll *ScrollTable) (pen uint16, ok bool) {
	g := tm.cfg.Gfx
	w, h := tm.Size()

	lx := x + tm.scrollX
	ly := y + tm.scrollY
	// column and row entries are indexed in tilemap space
	if n := scroll.Len(); n > 0 {
		switch tm.cfg.Scroll {
		case ScrollPerColumn:
			col := wrap(lx, w) * n / w
			ly += scroll.Value(col)
		case ScrollPerRow:
			row := wrap(ly, h) * n / h
			lx += scroll.Value(row)
		}
	}
	lx = wrap(lx, w)
	ly = wrap(ly, h)

	tx, px := lx/g.Width, lx%g.Width
	ty, py := ly/g.Height, ly%g.Height
	t := tm.GetTile(ty*tm.cfg.Cols + tx)

	if t.Flip&FlipX != 0 {
		px = g.Width - 1 - px
	}
	if t.Flip&FlipY != 0 {
		py = g.Height - 1 - py
	}
	pix := g.Pixel(t.Code(), px, py)
	if tm.cfg.Transparent && pix == tm.cfg.TransparentPen {
		return 0, false
	}
	return uint16(tm.cfg.ColorBase + int(t.Color)*g.Colors() + int(pix)), true
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}

// TileCache owns the tile layers of a machine and keeps them coherent
// with control state mode bits.
type TileCache struct {
	cs     *ControlState
	layers []*Tilemap
}

// NewTileCache builds the layers and subscribes each to its mode bits.
func NewTileCache(cs *ControlState, layers ...LayerConfig) (*TileCache, error) {
	c := &TileCache{cs: cs}
	for _, cfg := range layers {
		tm, err := newTilemap(cs, cfg)
		if err != nil {
			return nil, err
		}
		for _, mm := range cfg.ModeBits {
			mask := mm.Mask
			cs.Observe(mm.Reg, func(old, val uint8) {
				if (old^val)&mask != 0 {
					tm.MarkAllDirty()
				}
			})
		}
		c.layers = append(c.layers, tm)
	}
	return c, nil
}

// Len returns the number of layers.
func (c *TileCache) Len() int {
	return len(c.layers)
}

// Layer returns layer i.
func (c *TileCache) Layer(i int) *Tilemap {
	return c.layers[i]
}

// Write stores val into the backing storage of layer.
func (c *TileCache) Write(layer int, offset uint32, val uint8) {
	c.layers[layer].Write(offset, val)
}

// Read returns a byte of the backing storage of layer.
func (c *TileCache) Read(layer int, offset uint32) uint8 {
	return c.layers[layer].Read(offset)
}

// GetTile returns the record for index of layer.
func (c *TileCache) GetTile(layer, index int) TileRecord {
	return c.layers[layer].GetTile(index)
}

// MarkAllDirty invalidates every tile of layer.
func (c *TileCache) MarkAllDirty(layer int) {
	c.layers[layer].MarkAllDirty()
}

// Reset marks every layer dirty and zeroes the global scroll. Backing
// storage and scroll tables are left alone.
func (c *TileCache) Reset() {
	for _, tm := range c.layers {
		tm.MarkAllDirty()
		tm.scrollX = 0
		tm.scrollY = 0
	}
}

// ScrollTable is a dense table of per-row or per-column scroll values.
// It is also the bus handler for the scroll RAM it models.
type ScrollTable struct {
	vals []uint8
}

// NewScrollTable returns a zeroed table of n entries.
func NewScrollTable(n int) *ScrollTable {
	return &ScrollTable{vals: make([]uint8, n)}
}

// Len returns the number of entries.
func (s *ScrollTable) Len() int {
	return len(s.vals)
}

// Value returns entry i, wrapping past the end.
func (s *ScrollTable) Value(i int) int {
	if len(s.vals) == 0 {
		return 0
	}
	return int(s.vals[wrap(i, len(s.vals))])
}

// Set stores v into entry i.
func (s *ScrollTable) Set(i int, v uint8) {
	if len(s.vals) == 0 {
		return
	}
	s.vals[wrap(i, len(s.vals))] = v
}

// Reset zeroes every entry.
func (s *ScrollTable) Reset() {
	for i := range s.vals {
		s.vals[i] = 0
	}
}

// Bytes returns the raw entries.
func (s *ScrollTable) Bytes() []byte {
	return s.vals
}

func (s *ScrollTable) Read(offset uint32) uint8 {
	if len(s.vals) == 0 {
		return 0
	}
	return s.vals[int(offset)%len(s.vals)]
}

func (s *ScrollTable) Write(offset uint32, val uint8) {
	s.Set(int(offset), val)
}
