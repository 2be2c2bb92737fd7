package sfnt

import (
	"errors"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestTags(t *testing.T) {
	tag := Tag(0x676c7966)
	if tag.String() != "glyf" {
		t.Errorf("expected tag 0x676c7966 to be 'glyf', is %s", tag.String())
	}
	tag = MakeTag([]byte("glyf"))
	if tag.String() != "glyf" {
		t.Errorf("expected tag MakeTag(glyf) to be 'glyf', is %s", tag.String())
	}
	tag = T("glyf")
	if tag.String() != "glyf" {
		t.Errorf("expected tag T(glyf) to be 'glyf', is %s", tag.String())
	}
	if TagHead != T("head") || FlavorTTC.String() != "ttcf" {
		t.Errorf("tag constants inconsistent")
	}
}

func TestChecksum(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected uint32
	}{
		{"empty", nil, 0},
		{"one word", []byte{0x00, 0x01, 0x00, 0x00}, 0x00010000},
		{"two words", []byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x02}, 3},
		{"tail padded", []byte{0x80, 0x00, 0x00, 0x00, 0xFF}, (0x80000000 + 0xFF000000) & 0xFFFFFFFF},
		{"wraps mod 2^32", []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x02}, 1},
	}
	for _, tt := range tests {
		if sum := Checksum(tt.data); sum != tt.expected {
			t.Errorf("%s: Checksum = %#x, want %#x", tt.name, sum, tt.expected)
		}
	}
}

func TestBinarySearchFields(t *testing.T) {
	tests := []struct {
		n                                      uint16
		searchRange, entrySelector, rangeShift uint16
	}{
		{1, 16, 0, 0},
		{9, 128, 3, 16},
		{11, 128, 3, 48},
		{16, 256, 4, 0},
	}
	for _, tt := range tests {
		sr, es, rs := BinarySearchFields(tt.n)
		if sr != tt.searchRange || es != tt.entrySelector || rs != tt.rangeShift {
			t.Errorf("BinarySearchFields(%d) = (%d,%d,%d), want (%d,%d,%d)",
				tt.n, sr, es, rs, tt.searchRange, tt.entrySelector, tt.rangeShift)
		}
	}
}

func TestReaderBounds(t *testing.T) {
	r := NewReader([]byte{1, 2, 3}, ErrTruncatedInput)
	if n, err := r.U16(); err != nil || n != 0x0102 {
		t.Fatalf("U16 = %#x, %v", n, err)
	}
	if _, err := r.U32(); !errors.Is(err, ErrTruncatedInput) {
		t.Errorf("expected truncated-input error for short U32, got %v", err)
	}
	if r.Remaining() != 1 {
		t.Errorf("failed read must not advance the cursor, remaining = %d", r.Remaining())
	}
	sub := NewReader(nil, ErrStreamExhausted)
	if _, err := sub.U8(); !errors.Is(err, ErrStreamExhausted) {
		t.Errorf("expected stream-exhausted error, got %v", err)
	}
}

func TestAssemble(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "font.sfnt")
	defer teardown()
	//
	head := make([]byte, 54)
	PutU32(head[12:], 0x5F0F3CF5) // magicNumber
	PutU32(head[8:], 0xDEADBEEF)  // pre-existing adjustment must be ignored
	b := NewBuilder(FlavorTrueType)
	b.Add(T("zzzz"), []byte{9, 9, 9}) // 3 bytes, forces padding
	b.Add(TagHead, head)
	b.Add(T("aaaa"), []byte{1, 2, 3, 4})
	buf, err := b.Assemble()
	if err != nil {
		t.Fatal(err)
	}
	want := HeaderSize + 3*EntrySize + 4 + 56 + 4
	if len(buf) != want {
		t.Fatalf("assembled size = %d, want %d", len(buf), want)
	}
	if U16(buf[4:]) != 3 {
		t.Errorf("numTables = %d, want 3", U16(buf[4:]))
	}
	// directory must be sorted ascending by tag
	prev := Tag(0)
	for i := 0; i < 3; i++ {
		tag := Tag(U32(buf[HeaderSize+i*EntrySize:]))
		if tag < prev {
			t.Errorf("directory not sorted: %s after %s", tag, prev)
		}
		prev = tag
		offset := U32(buf[HeaderSize+i*EntrySize+8:])
		if offset&3 != 0 {
			t.Errorf("table %s not 4-byte aligned at %d", tag, offset)
		}
	}
	// whole-file checksum property: with the adjustment read as 0, the sum
	// plus the stored adjustment equals the magic constant
	headEntry := -1
	for i := 0; i < 3; i++ {
		if Tag(U32(buf[HeaderSize+i*EntrySize:])) == TagHead {
			headEntry = i
		}
	}
	if headEntry < 0 {
		t.Fatal("head entry missing from directory")
	}
	headOffset := int(U32(buf[HeaderSize+headEntry*EntrySize+8:]))
	adjustment := U32(buf[headOffset+8:])
	PutU32(buf[headOffset+8:], 0)
	if sum := Checksum(buf) + adjustment; sum != ChecksumAdjustmentMagic {
		t.Errorf("checksum property violated: sum+adjustment = %#x", sum)
	}
}

func TestAssembleRejectsDuplicates(t *testing.T) {
	b := NewBuilder(FlavorTrueType)
	b.Add(T("cmap"), []byte{0})
	b.Add(T("cmap"), []byte{1})
	if _, err := b.Assemble(); !errors.Is(err, ErrMalformedHeader) {
		t.Errorf("expected malformed-header error for duplicate table, got %v", err)
	}
}
