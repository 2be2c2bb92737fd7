package woff2

import (
	"errors"
	"testing"

	"github.com/npillmayer/webfont/sfnt"
)

func TestTripletDecode(t *testing.T) {
	// one point per flag-range branch
	tests := []struct {
		name   string
		flag   byte
		data   []byte
		dx, dy int32
	}{
		{"y only, positive", 0x05, []byte{10}, 0, (4 << 7) + 10},
		{"y only, negative", 0x04, []byte{10}, 0, -((4 << 7) + 10)},
		{"x only, positive", 0x0B, []byte{3}, 3, 0}, // flag 11: (1&14)<<7 = 0
		{"nibble pair", 0x15, []byte{0x21}, 3, -2},  // flag 21: b0=1
		{"byte pair", 0x55, []byte{2, 7}, 3, -8},
		{"packed 12-bit", 0x7D, []byte{0x01, 0x23, 0x45}, 0x012, -0x345},
		{"full words", 0x7F, []byte{0x01, 0x00, 0x02, 0x00}, 256, 512},
		{"off-curve", 0x85, []byte{10}, 0, (4 << 7) + 10},
	}
	for _, tt := range tests {
		points, consumed, err := tripletDecode([]byte{tt.flag}, tt.data)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
			continue
		}
		if consumed != len(tt.data) {
			t.Errorf("%s: consumed %d bytes, want %d", tt.name, consumed, len(tt.data))
		}
		p := points[0]
		wantOnCurve := tt.flag>>7 == 0
		if p.x != tt.dx || p.y != tt.dy || p.onCurve != wantOnCurve {
			t.Errorf("%s: point (%d,%d,%v), want (%d,%d,%v)",
				tt.name, p.x, p.y, p.onCurve, tt.dx, tt.dy, wantOnCurve)
		}
	}
}

func TestTripletDecodeAccumulates(t *testing.T) {
	// deltas accumulate into absolute coordinates
	flags := []byte{0x7F, 0x7D, 0x7C}
	data := []byte{
		0x00, 0x64, 0x00, 0x64, // +100, +100
		0x00, 0x32, 0x00, 0x19, // +50, -25
		0x00, 0x96, 0x00, 0x4B, // -150, -75
	}
	points, consumed, err := tripletDecode(flags, data)
	if err != nil {
		t.Fatal(err)
	}
	if consumed != 12 {
		t.Errorf("consumed %d bytes, want 12", consumed)
	}
	want := []point{
		{x: 100, y: 100, onCurve: true},
		{x: 150, y: 75, onCurve: true},
		{x: 0, y: 0, onCurve: true},
	}
	for i, p := range points {
		if p != want[i] {
			t.Errorf("point %d: %+v, want %+v", i, p, want[i])
		}
	}
}

func TestTripletDecodeTruncated(t *testing.T) {
	if _, _, err := tripletDecode([]byte{0x7F}, []byte{0x01, 0x00}); !errors.Is(err, sfnt.ErrStreamExhausted) {
		t.Errorf("expected stream-exhausted error, got %v", err)
	}
	if _, _, err := tripletDecode([]byte{0x05, 0x05}, []byte{1}); !errors.Is(err, sfnt.ErrStreamExhausted) {
		t.Errorf("expected stream-exhausted error for short coordinate stream, got %v", err)
	}
}

func TestStorePointsRepeatCompression(t *testing.T) {
	// 4 identical deltas must collapse into one flag byte plus repeat count
	points := []point{
		{x: 1, y: 1, onCurve: true},
		{x: 2, y: 2, onCurve: true},
		{x: 3, y: 3, onCurve: true},
		{x: 4, y: 4, onCurve: true},
	}
	buf := make([]byte, 12+2+5*4)
	size, err := storePoints(points, 1, 0, false, buf)
	if err != nil {
		t.Fatal(err)
	}
	flagOffset := endPtsOfContoursOffset + 2 + 2
	flag := buf[flagOffset]
	if flag&glyfRepeat == 0 {
		t.Fatalf("expected repeat bit in flag %#02x", flag)
	}
	if buf[flagOffset+1] != 3 {
		t.Errorf("repeat count = %d, want 3", buf[flagOffset+1])
	}
	// 2 flag bytes + 4 x bytes + 4 y bytes after the fixed prefix
	if want := flagOffset + 2 + 8; size != want {
		t.Errorf("glyph size = %d, want %d", size, want)
	}
}

func TestStorePointsOverlapFlag(t *testing.T) {
	points := []point{{x: 5, y: 0, onCurve: true}, {x: 5, y: 9, onCurve: false}}
	buf := make([]byte, 12+2+5*2)
	if _, err := storePoints(points, 1, 0, true, buf); err != nil {
		t.Fatal(err)
	}
	flagOffset := endPtsOfContoursOffset + 2 + 2
	if buf[flagOffset]&glyfOverlap == 0 {
		t.Error("first point must carry the overlap-simple flag")
	}
	if buf[flagOffset+1]&glyfOverlap != 0 {
		t.Error("overlap-simple flag only belongs on the first point")
	}
}

func TestScanComposite(t *testing.T) {
	// two components, first with word args and scale, second terminal
	b := []byte{
		0x00, 0x29, 0x00, 0x07, // flags: WORDS|SCALE|MORE, glyph 7
		0x00, 0x10, 0x00, 0x20, // word args
		0x40, 0x00, // scale
		0x00, 0x00, 0x00, 0x03, // flags: none, glyph 3
		0x05, 0x06, // byte args
	}
	size, haveInstructions, components, err := scanComposite(b)
	if err != nil {
		t.Fatal(err)
	}
	if size != len(b) {
		t.Errorf("size = %d, want %d", size, len(b))
	}
	if haveInstructions {
		t.Error("no component declares instructions")
	}
	if len(components) != 2 || components[0] != 7 || components[1] != 3 {
		t.Errorf("components = %v, want [7 3]", components)
	}
}

func TestScanCompositeTruncated(t *testing.T) {
	b := []byte{0x00, 0x20, 0x00} // MORE_COMPONENTS but record cut short
	if _, _, _, err := scanComposite(b); !errors.Is(err, sfnt.ErrStreamExhausted) {
		t.Errorf("expected stream-exhausted error, got %v", err)
	}
}

func TestComponentCycleDetection(t *testing.T) {
	refs := map[uint16][]uint16{0: {1}, 1: {2}, 2: {}}
	if err := checkComponentCycles(refs, 3); err != nil {
		t.Errorf("acyclic graph rejected: %v", err)
	}
	refs = map[uint16][]uint16{0: {1}, 1: {0}}
	if err := checkComponentCycles(refs, 2); !errors.Is(err, sfnt.ErrMalformedGlyph) {
		t.Errorf("expected malformed-glyph error for mutual cycle, got %v", err)
	}
	refs = map[uint16][]uint16{5: {5}}
	if err := checkComponentCycles(refs, 6); !errors.Is(err, sfnt.ErrMalformedGlyph) {
		t.Errorf("expected malformed-glyph error for self reference, got %v", err)
	}
	refs = map[uint16][]uint16{0: {9}}
	if err := checkComponentCycles(refs, 2); !errors.Is(err, sfnt.ErrMalformedGlyph) {
		t.Errorf("expected malformed-glyph error for out-of-range component, got %v", err)
	}
}

func TestStoreLoca(t *testing.T) {
	long, err := storeLoca([]uint32{0, 24, 70000}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(long) != 12 || sfnt.U32(long[8:]) != 70000 {
		t.Errorf("long loca encoding wrong: % x", long)
	}
	short, err := storeLoca([]uint32{0, 24, 24}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(short) != 6 || sfnt.U16(short[2:]) != 12 {
		t.Errorf("short loca encoding wrong: % x", short)
	}
	if _, err := storeLoca([]uint32{0, 25}, 0); !errors.Is(err, sfnt.ErrMalformedGlyph) {
		t.Errorf("expected rejection of odd offset in short format, got %v", err)
	}
	if _, err := storeLoca([]uint32{0, 1 << 18}, 0); !errors.Is(err, sfnt.ErrMalformedGlyph) {
		t.Errorf("expected rejection of oversized offset in short format, got %v", err)
	}
}
