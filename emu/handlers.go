package emu

// RAM is a read/write byte store. Offsets beyond the store mirror by
// modulo, so a 2KB chip decoded over a 4KB slot repeats.
type RAM struct {
	data []byte
}

// NewRAM returns a zeroed RAM of size bytes.
func NewRAM(size int) *RAM {
	return &RAM{data: make([]byte, size)}
}

func (r *RAM) Read(offset uint32) uint8 {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[int(offset)%len(r.data)]
}

func (r *RAM) Write(offset uint32, val uint8) {
	if len(r.data) == 0 {
		return
	}
	r.data[int(offset)%len(r.data)] = val
}

// Bytes returns the backing store.
func (r *RAM) Bytes() []byte {
	return r.data
}

// Clear zeroes the store.
func (r *RAM) Clear() {
	for i := range r.data {
		r.data[i] = 0
	}
}

// ROM is a read-only view over data. Reads past the end return 0 and
// writes are discarded.
type ROM []byte

func (r ROM) Read(offset uint32) uint8 {
	if int(offset) < len(r) {
		return r[offset]
	}
	return 0
}

func (r ROM) Write(offset uint32, val uint8) {}

// PortFunc is a read-only port backed by a callback, typically an input
// matrix or DIP switch bank.
type PortFunc func() uint8

func (f PortFunc) Read(offset uint32) uint8 {
	return f()
}

func (f PortFunc) Write(offset uint32, val uint8) {}

// Latch commits every written byte into a control register. Reads return
// the committed value.
type Latch struct {
	cs  *ControlState
	reg ControlReg
}

// NewLatch returns a latch over reg of cs.
func NewLatch(cs *ControlState, reg ControlReg) *Latch {
	return &Latch{cs: cs, reg: reg}
}

func (l *Latch) Read(offset uint32) uint8 {
	return l.cs.Value(l.reg)
}

func (l *Latch) Write(offset uint32, val uint8) {
	l.cs.Commit(l.reg, val)
}

// Discard accepts writes and ignores them. Reads return 0.
type Discard struct{}

func (Discard) Read(offset uint32) uint8        { return 0 }
func (Discard) Write(offset uint32, val uint8) {}

// HandlerFuncs adapts a pair of functions to Handler. A nil function
// reads 0 or drops the write.
type HandlerFuncs struct {
	ReadFunc  func(offset uint32) uint8
	WriteFunc func(offset uint32, val uint8)
}

func (h HandlerFuncs) Read(offset uint32) uint8 {
	if h.ReadFunc == nil {
		return 0
	}
	return h.ReadFunc(offset)
}

func (h HandlerFuncs) Write(offset uint32, val uint8) {
	if h.WriteFunc != nil {
		h.WriteFunc(offset, val)
	}
}

// WordFuncs adapts a pair of word callbacks to WordHandler. Offsets passed
// to the callbacks are even. A byte read returns the addressed half of
// the word; a byte write drives the byte onto both halves, as the 68000
// does.
type WordFuncs struct {
	ReadFunc  func(offset uint32) uint16
	WriteFunc func(offset uint32, val uint16)
}

func (h WordFuncs) ReadWord(offset uint32) uint16 {
	if h.ReadFunc == nil {
		return 0
	}
	return h.ReadFunc(offset &^ 1)
}

func (h WordFuncs) WriteWord(offset uint32, val uint16) {
	if h.WriteFunc != nil {
		h.WriteFunc(offset&^1, val)
	}
}

func (h WordFuncs) Read(offset uint32) uint8 {
	w := h.ReadWord(offset)
	if offset&1 == 0 {
		return uint8(w >> 8)
	}
	return uint8(w)
}

func (h WordFuncs) Write(offset uint32, val uint8) {
	h.WriteWord(offset, uint16(val)<<8|uint16(val))
}
