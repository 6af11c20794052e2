package emu

import (
	"fmt"
	"image"
)

// FrameBuffer is an indexed pen grid written by the compositor.
type FrameBuffer struct {
	Width  int
	Height int
	Pix    []uint16
}

// NewFrameBuffer returns a zeroed w x h frame.
func NewFrameBuffer(w, h int) *FrameBuffer {
	return &FrameBuffer{Width: w, Height: h, Pix: make([]uint16, w*h)}
}

// Bounds returns the full frame rectangle.
func (f *FrameBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// At returns the pen at (x, y).
func (f *FrameBuffer) At(x, y int) uint16 {
	return f.Pix[y*f.Width+x]
}

// Set stores pen at (x, y).
func (f *FrameBuffer) Set(x, y int, pen uint16) {
	f.Pix[y*f.Width+x] = pen
}

// Fill sets every pixel of r to pen.
func (f *FrameBuffer) Fill(r image.Rectangle, pen uint16) {
	r = r.Intersect(f.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := f.Pix[y*f.Width:]
		for x := r.Min.X; x < r.Max.X; x++ {
			row[x] = pen
		}
	}
}

// Resolve converts the pens in r to RGBA through pal, writing them to dst
// with r.Min mapped to dst's origin.
func (f *FrameBuffer) Resolve(pal *Palette, dst *image.RGBA, r image.Rectangle) {
	r = r.Intersect(f.Bounds())
	db := dst.Bounds()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		dy := db.Min.Y + y - r.Min.Y
		if dy >= db.Max.Y {
			break
		}
		off := dst.PixOffset(db.Min.X, dy)
		for x := r.Min.X; x < r.Max.X && off+3 < len(dst.Pix); x++ {
			c := pal.Color(f.Pix[y*f.Width+x])
			dst.Pix[off] = c.R
			dst.Pix[off+1] = c.G
			dst.Pix[off+2] = c.B
			dst.Pix[off+3] = 0xFF
			off += 4
		}
	}
}

// Placement draws one layer. For banded placements Band confines the
// layer; an empty Band means the whole clip.
type Placement struct {
	Layer int
	Band  image.Rectangle
}

// Override draws one layer across the whole clip with an alternate scroll
// table whenever Flag is set, in place of the banded layers.
type Override struct {
	Flag      Flag
	Layer     int
	AltScroll *ScrollTable
}

// CompositorConfig lists the draw order of a screen.
type CompositorConfig struct {
	Background uint16
	Banded     []Placement
	Overlay    []Placement
	Override   *Override

	// Blank suppresses every layer while set.
	Blank *Flag
}

// Mode is the drawing path chosen for a frame.
type Mode int

const (
	ModeBanded Mode = iota
	ModeFullOverride
	ModeBlank
)

func (m Mode) String() string {
	switch m {
	case ModeBanded:
		return "banded"
	case ModeFullOverride:
		return "full-override"
	case ModeBlank:
		return "blank"
	default:
		return "unknown"
	}
}

// Compositor draws tile layers into a FrameBuffer.
type Compositor struct {
	cs    *ControlState
	tiles *TileCache
	cfg   CompositorConfig

	frames uint64
}

// NewCompositor validates the layer indexes of cfg.
func NewCompositor(cs *ControlState, tiles *TileCache, cfg CompositorConfig) (*Compositor, error) {
	check := func(i int) error {
		if i < 0 || i >= tiles.Len() {
			return fmt.Errorf("compositor: layer %d of %d: %w", i, tiles.Len(), ErrBadGeometry)
		}
		return nil
	}
	for _, p := range cfg.Banded {
		if err := check(p.Layer); err != nil {
			return nil, err
		}
	}
	for _, p := range cfg.Overlay {
		if err := check(p.Layer); err != nil {
			return nil, err
		}
	}
	if cfg.Override != nil {
		if err := check(cfg.Override.Layer); err != nil {
			return nil, err
		}
	}
	return &Compositor{cs: cs, tiles: tiles, cfg: cfg}, nil
}

// Mode returns the path the next Composite will take.
func (c *Compositor) Mode() Mode {
	if c.cfg.Blank != nil && c.cs.Test(*c.cfg.Blank) {
		return ModeBlank
	}
	if c.cfg.Override != nil && c.cs.Test(c.cfg.Override.Flag) {
		return ModeFullOverride
	}
	return ModeBanded
}

// Frames returns the number of frames composited.
func (c *Compositor) Frames() uint64 {
	return c.frames
}

// Composite draws one frame into clip.
func (c *Compositor) Composite(frame *FrameBuffer, clip image.Rectangle) {
	clip = clip.Intersect(frame.Bounds())
	frame.Fill(clip, c.cfg.Background)
	c.frames++

	switch c.Mode() {
	case ModeBlank:
		return
	case ModeFullOverride:
		o := c.cfg.Override
		tm := c.tiles.Layer(o.Layer)
		scroll := o.AltScroll
		if scroll == nil {
			scroll = tm.Scroll()
		}
		drawLayer(frame, tm, clip, scroll)
	default:
		for _, p := range c.cfg.Banded {
			r := clip
			if !p.Band.Empty() {
				r = p.Band.Intersect(clip)
			}
			tm := c.tiles.Layer(p.Layer)
			drawLayer(frame, tm, r, tm.Scroll())
		}
	}

	for _, p := range c.cfg.Overlay {
		r := clip
		if !p.Band.Empty() {
			r = p.Band.Intersect(clip)
		}
		tm := c.tiles.Layer(p.Layer)
		drawLayer(frame, tm, r, tm.Scroll())
	}
}

func drawLayer(frame *FrameBuffer, tm *Tilemap, r image.Rectangle, scroll *ScrollTable) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := frame.Pix[y*frame.Width:]
		for x := r.Min.X; x < r.Max.X; x++ {
			if pen, ok := tm.sample(x, y, scroll); ok {
				row[x] = pen
			}
		}
	}
}
