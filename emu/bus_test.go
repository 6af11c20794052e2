package emu

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
)

// makeTestRouter builds a 16-bit router with a wide 16KB RAM at 0x0000
// and a narrow 2KB RAM over its start, registered in that order.
func makeTestRouter(t *testing.T) (*Router, *RAM, *RAM) {
	t.Helper()
	wide := NewRAM(0x4000)
	narrow := NewRAM(0x800)
	r, err := NewRouter(RouterConfig{Name: "test", OpenBus: DefaultOpenBus},
		Region{Name: "wide", Base: 0x0000, Size: 0x4000, Access: DirReadWrite, Handler: wide},
		Region{Name: "narrow", Base: 0x0000, Size: 0x800, Access: DirReadWrite, Handler: narrow},
	)
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}
	return r, wide, narrow
}

func TestRouter_WideNarrowOverlap(t *testing.T) {
	r, wide, narrow := makeTestRouter(t)

	reg, err := r.Route(Transaction{Addr: 0x0100, Width: Byte, Dir: DirRead})
	if err != nil || reg.Name != "narrow" {
		t.Fatalf("0x0100: expected narrow, got %v (err %v)", reg, err)
	}
	reg, err = r.Route(Transaction{Addr: 0x1000, Width: Byte, Dir: DirRead})
	if err != nil || reg.Name != "wide" {
		t.Fatalf("0x1000: expected wide, got %v (err %v)", reg, err)
	}

	r.Write(0x0100, 0x11)
	r.Write(0x1000, 0x22)
	if got := narrow.Bytes()[0x100]; got != 0x11 {
		t.Errorf("narrow[0x100]: expected 0x11, got 0x%02X", got)
	}
	if got := wide.Bytes()[0x100]; got != 0x00 {
		t.Errorf("wide[0x100] should be untouched, got 0x%02X", got)
	}
	if got := wide.Bytes()[0x1000]; got != 0x22 {
		t.Errorf("wide[0x1000]: expected 0x22, got 0x%02X", got)
	}
}

func TestRouter_RouteUniqueness(t *testing.T) {
	r, _, _ := makeTestRouter(t)

	for addr := uint32(0); addr < 0x10000; addr++ {
		reg, err := r.Route(Transaction{Addr: addr, Width: Byte, Dir: DirRead})
		switch {
		case addr < 0x800:
			if err != nil || reg.Name != "narrow" {
				t.Fatalf("0x%04X: expected narrow, got %v", addr, reg)
			}
		case addr < 0x4000:
			if err != nil || reg.Name != "wide" {
				t.Fatalf("0x%04X: expected wide, got %v", addr, reg)
			}
		default:
			if !errors.Is(err, ErrUnmappedAccess) {
				t.Fatalf("0x%04X: expected unmapped, got %v", addr, err)
			}
		}
	}
}

func TestRouter_LaterRegisteredWinsInMiddle(t *testing.T) {
	a := NewRAM(0x100)
	b := NewRAM(0x10)
	r, err := NewRouter(RouterConfig{Name: "test"},
		Region{Name: "a", Base: 0x1000, Size: 0x100, Access: DirReadWrite, Handler: a},
		Region{Name: "b", Base: 0x1040, Size: 0x10, Access: DirReadWrite, Handler: b},
	)
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	for _, tc := range []struct {
		addr uint32
		want string
	}{
		{0x103F, "a"},
		{0x1040, "b"},
		{0x104F, "b"},
		{0x1050, "a"},
		{0x10FF, "a"},
	} {
		reg, err := r.Route(Transaction{Addr: tc.addr, Dir: DirWrite})
		if err != nil || reg.Name != tc.want {
			t.Errorf("0x%04X: expected %s, got %v", tc.addr, tc.want, reg)
		}
	}

	// Offsets are relative to the winning region's base.
	r.Write(0x1042, 0x5A)
	if got := b.Bytes()[2]; got != 0x5A {
		t.Errorf("expected 0x5A at b[2], got 0x%02X", got)
	}
}

func TestRouter_PerDirectionOverride(t *testing.T) {
	cs := NewControlState()
	wide := NewRAM(0x4000)
	r, err := NewRouter(RouterConfig{Name: "test"},
		Region{Name: "wide", Base: 0x0000, Size: 0x4000, Access: DirReadWrite, Handler: wide},
		Region{Name: "latch", Base: 0x1F80, Size: 1, Access: DirWrite, Handler: NewLatch(cs, 0)},
	)
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	wide.Bytes()[0x1F80] = 0x77
	r.Write(0x1F80, 0x12)

	if got := cs.Value(0); got != 0x12 {
		t.Errorf("latch: expected 0x12, got 0x%02X", got)
	}
	if got := r.Read(0x1F80); got != 0x77 {
		t.Errorf("read should fall through to wide: expected 0x77, got 0x%02X", got)
	}
	if got := wide.Bytes()[0x1F80]; got != 0x77 {
		t.Errorf("write should not reach wide, got 0x%02X", got)
	}
}

func TestRouter_UnmappedRead(t *testing.T) {
	r, _, _ := makeTestRouter(t)

	tx := Transaction{Addr: 0x8000, Width: Byte, Dir: DirRead}
	err := r.Execute(&tx)
	if !errors.Is(err, ErrUnmappedAccess) {
		t.Fatalf("expected ErrUnmappedAccess, got %v", err)
	}
	var ae *AccessError
	if !errors.As(err, &ae) || ae.Addr != 0x8000 || ae.Dir != DirRead {
		t.Errorf("expected AccessError at 0x8000, got %v", err)
	}
	if tx.Data != 0xFF {
		t.Errorf("expected open bus 0xFF, got 0x%02X", tx.Data)
	}

	tx = Transaction{Addr: 0x8000, Width: Word, Dir: DirRead}
	r.Execute(&tx)
	if tx.Data != 0xFFFF {
		t.Errorf("expected open bus 0xFFFF, got 0x%04X", tx.Data)
	}

	reads, writes := r.Unmapped()
	if reads != 3 || writes != 0 {
		t.Errorf("expected 3 unmapped reads and 0 writes, got %d and %d", reads, writes)
	}
}

func TestRouter_UnmappedWriteDiscarded(t *testing.T) {
	r, wide, narrow := makeTestRouter(t)

	err := r.Execute(&Transaction{Addr: 0x9000, Width: Byte, Dir: DirWrite, Data: 0x42})
	if !errors.Is(err, ErrUnmappedAccess) {
		t.Fatalf("expected ErrUnmappedAccess, got %v", err)
	}
	for i, b := range wide.Bytes() {
		if b != 0 {
			t.Fatalf("wide[0x%04X] changed to 0x%02X", i, b)
		}
	}
	for i, b := range narrow.Bytes() {
		if b != 0 {
			t.Fatalf("narrow[0x%04X] changed to 0x%02X", i, b)
		}
	}
}

func TestRouter_WordBigEndian(t *testing.T) {
	r, _, narrow := makeTestRouter(t)

	r.WriteSized(Word, 0x0010, 0xABCD)
	if narrow.Bytes()[0x10] != 0xAB || narrow.Bytes()[0x11] != 0xCD {
		t.Errorf("expected AB CD, got %02X %02X", narrow.Bytes()[0x10], narrow.Bytes()[0x11])
	}
	if got := r.ReadSized(Word, 0x0010); got != 0xABCD {
		t.Errorf("expected 0xABCD, got 0x%04X", got)
	}

	r.WriteSized(Long, 0x0020, 0x01020304)
	if got := r.ReadSized(Long, 0x0020); got != 0x01020304 {
		t.Errorf("expected 0x01020304, got 0x%08X", got)
	}
}

func TestRouter_WordLittleEndian(t *testing.T) {
	ram := NewRAM(0x100)
	r, err := NewRouter(RouterConfig{Name: "le", LittleEndian: true},
		Region{Name: "ram", Base: 0, Size: 0x100, Access: DirReadWrite, Handler: ram},
	)
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	r.WriteSized(Word, 0x10, 0xABCD)
	if ram.Bytes()[0x10] != 0xCD || ram.Bytes()[0x11] != 0xAB {
		t.Errorf("expected CD AB, got %02X %02X", ram.Bytes()[0x10], ram.Bytes()[0x11])
	}
}

func TestRouter_WordStraddlesRegions(t *testing.T) {
	r, wide, narrow := makeTestRouter(t)

	// High byte lands in narrow, low byte in wide.
	r.WriteSized(Word, 0x07FF, 0x1234)
	if got := narrow.Bytes()[0x7FF]; got != 0x12 {
		t.Errorf("narrow[0x7FF]: expected 0x12, got 0x%02X", got)
	}
	if got := wide.Bytes()[0x800]; got != 0x34 {
		t.Errorf("wide[0x800]: expected 0x34, got 0x%02X", got)
	}
}

func TestRouter_AddrMask(t *testing.T) {
	cs := NewControlState()
	r, err := NewRouter(RouterConfig{Name: "io", AddrMask: 0xFF},
		Region{Name: "port", Base: 0x03, Size: 1, Access: DirWrite, Handler: NewLatch(cs, 1)},
	)
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	r.Write(0x4503, 0x9C)
	if got := cs.Value(1); got != 0x9C {
		t.Errorf("expected 0x9C through mirrored port, got 0x%02X", got)
	}
}

func TestRouter_ChainedRouter(t *testing.T) {
	inner, _, narrow := makeTestRouter(t)
	outer, err := NewRouter(RouterConfig{Name: "outer"},
		Region{Name: "inner", Base: 0x8000, Size: 0x4000, Access: DirReadWrite, Handler: inner},
	)
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	outer.Write(0x8005, 0x66)
	if got := narrow.Bytes()[5]; got != 0x66 {
		t.Errorf("expected 0x66 in inner narrow RAM, got 0x%02X", got)
	}
}

func TestRouter_SetupErrors(t *testing.T) {
	ram := NewRAM(0x10)
	tests := []struct {
		name    string
		cfg     RouterConfig
		regions []Region
		want    error
	}{
		{"zero size", RouterConfig{}, []Region{{Name: "z", Base: 0, Size: 0, Access: DirRead, Handler: ram}}, ErrZeroSizeRegion},
		{"nil handler", RouterConfig{}, []Region{{Name: "n", Base: 0, Size: 1, Access: DirRead}}, ErrNilHandler},
		{"no access", RouterConfig{}, []Region{{Name: "a", Base: 0, Size: 1, Handler: ram}}, ErrNoAccess},
		{"out of space", RouterConfig{}, []Region{{Name: "o", Base: 0xFFF0, Size: 0x20, Access: DirRead, Handler: ram}}, ErrRegionOutOfSpace},
		{"duplicate", RouterConfig{}, []Region{
			{Name: "d1", Base: 0x10, Size: 0x10, Access: DirReadWrite, Handler: ram},
			{Name: "d2", Base: 0x10, Size: 0x10, Access: DirRead, Handler: ram},
		}, ErrDuplicateRegion},
		{"address bits", RouterConfig{AddrBits: 33}, nil, ErrBadAddressBits},
	}
	for _, tc := range tests {
		_, err := NewRouter(tc.cfg, tc.regions...)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestRouter_SameRangeDifferentDirection(t *testing.T) {
	_, err := NewRouter(RouterConfig{},
		Region{Name: "r", Base: 0x10, Size: 1, Access: DirRead, Handler: PortFunc(func() uint8 { return 1 })},
		Region{Name: "w", Base: 0x10, Size: 1, Access: DirWrite, Handler: Discard{}},
	)
	if err != nil {
		t.Errorf("read and write regions on one address should be accepted, got %v", err)
	}
}

func TestRouter_LogUnmapped(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewRouter(RouterConfig{
		Name:        "logged",
		OpenBus:     DefaultOpenBus,
		LogUnmapped: true,
		Logger:      log.New(&buf, "", 0),
	})
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}

	r.Read(0x1234)
	r.Write(0x5678, 0x01)
	out := buf.String()
	if !strings.Contains(out, "unmapped read at 0x1234") {
		t.Errorf("missing read log, got %q", out)
	}
	if !strings.Contains(out, "unmapped write 0x01 at 0x5678") {
		t.Errorf("missing write log, got %q", out)
	}
}

func TestRouter_RegionsKeepOrder(t *testing.T) {
	r, _, _ := makeTestRouter(t)
	regs := r.Regions()
	if len(regs) != 2 {
		t.Fatalf("expected 2 regions, got %d", len(regs))
	}
	if regs[0].Name != "wide" || regs[0].Order() != 0 {
		t.Errorf("expected wide at order 0, got %s/%d", regs[0].Name, regs[0].Order())
	}
	if regs[1].Name != "narrow" || regs[1].Order() != 1 {
		t.Errorf("expected narrow at order 1, got %s/%d", regs[1].Name, regs[1].Order())
	}
	if regs[1].End() != 0x7FF {
		t.Errorf("expected narrow end 0x7FF, got 0x%04X", regs[1].End())
	}
}

// wordRecorder is a WordHandler that logs every cycle it sees.
type wordRecorder struct {
	RAM
	words []uint32
	bytes []uint32
}

func (w *wordRecorder) Read(offset uint32) uint8 {
	w.bytes = append(w.bytes, offset)
	return w.RAM.Read(offset)
}

func (w *wordRecorder) Write(offset uint32, val uint8) {
	w.bytes = append(w.bytes, offset)
	w.RAM.Write(offset, val)
}

func (w *wordRecorder) ReadWord(offset uint32) uint16 {
	w.words = append(w.words, offset)
	return uint16(w.RAM.Read(offset))<<8 | uint16(w.RAM.Read(offset+1))
}

func (w *wordRecorder) WriteWord(offset uint32, val uint16) {
	w.words = append(w.words, offset)
	w.RAM.Write(offset, uint8(val>>8))
	w.RAM.Write(offset+1, uint8(val))
}

func makeTestWordRouter(t *testing.T, littleEndian bool) (*Router, *wordRecorder) {
	t.Helper()
	dev := &wordRecorder{RAM: *NewRAM(0x100)}
	r, err := NewRouter(RouterConfig{Name: "word", AddrBits: 24, LittleEndian: littleEndian},
		Region{Name: "dev", Base: 0x200000, Size: 0x100, Access: DirReadWrite, Handler: dev},
		Region{Name: "ram", Base: 0x200100, Size: 0x100, Access: DirReadWrite, Handler: NewRAM(0x100)},
	)
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}
	return r, dev
}

func TestRouter_WordHandlerGetsWholeWords(t *testing.T) {
	r, dev := makeTestWordRouter(t, false)

	r.WriteSized(Word, 0x200010, 0xABCD)
	if len(dev.words) != 1 || dev.words[0] != 0x10 || len(dev.bytes) != 0 {
		t.Fatalf("expected one word cycle at 0x10, got words %v bytes %v", dev.words, dev.bytes)
	}
	if got := r.ReadSized(Word, 0x200010); got != 0xABCD {
		t.Errorf("expected 0xABCD, got 0x%04X", got)
	}

	dev.words = nil
	r.WriteSized(Long, 0x200020, 0x01020304)
	if len(dev.words) != 2 || dev.words[0] != 0x20 || dev.words[1] != 0x22 {
		t.Fatalf("expected word cycles at 0x20 and 0x22, got %v", dev.words)
	}
	if got := r.ReadSized(Long, 0x200020); got != 0x01020304 {
		t.Errorf("expected 0x01020304, got 0x%08X", got)
	}
}

func TestRouter_WordHandlerByteFallback(t *testing.T) {
	r, dev := makeTestWordRouter(t, false)

	r.Write(0x200031, 0x5A)
	if len(dev.words) != 0 || len(dev.bytes) != 1 {
		t.Errorf("byte write: expected one byte cycle, got words %v bytes %v", dev.words, dev.bytes)
	}

	// Pair split across the device and the RAM behind it.
	dev.bytes = nil
	r.WriteSized(Word, 0x2000FF, 0x1234)
	if len(dev.words) != 0 || len(dev.bytes) != 1 || dev.bytes[0] != 0xFF {
		t.Errorf("straddling word: expected byte cycle at 0xFF, got words %v bytes %v", dev.words, dev.bytes)
	}
	if got := r.Read(0x200100); got != 0x34 {
		t.Errorf("expected low byte 0x34 in RAM, got 0x%02X", got)
	}
}

func TestRouter_WordHandlerLittleEndianUsesBytes(t *testing.T) {
	r, dev := makeTestWordRouter(t, true)

	r.WriteSized(Word, 0x200010, 0xABCD)
	if len(dev.words) != 0 || len(dev.bytes) != 2 {
		t.Errorf("expected two byte cycles, got words %v bytes %v", dev.words, dev.bytes)
	}
	if dev.RAM.Bytes()[0x10] != 0xCD {
		t.Errorf("expected low byte first, got 0x%02X", dev.RAM.Bytes()[0x10])
	}
}

func TestWordFuncs_ByteCycles(t *testing.T) {
	var gotOff uint32
	var gotVal uint16
	h := WordFuncs{
		ReadFunc: func(offset uint32) uint16 { return 0xA1B2 },
		WriteFunc: func(offset uint32, val uint16) {
			gotOff, gotVal = offset, val
		},
	}

	if h.Read(4) != 0xA1 || h.Read(5) != 0xB2 {
		t.Errorf("expected A1 B2, got %02X %02X", h.Read(4), h.Read(5))
	}
	h.Write(7, 0x3C)
	if gotOff != 6 || gotVal != 0x3C3C {
		t.Errorf("expected 0x3C3C at 6, got 0x%04X at %d", gotVal, gotOff)
	}

	var empty WordFuncs
	if empty.ReadWord(0) != 0 {
		t.Errorf("nil ReadFunc should read 0")
	}
	empty.WriteWord(0, 1)
}
