package woff1

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/npillmayer/webfont/sfnt"
)

// fixtureTable is one table of a hand-built container. Compressed tables are
// deflated with zlib, uncompressed ones stored verbatim.
type fixtureTable struct {
	tag      sfnt.Tag
	data     []byte
	compress bool
	checksum uint32
}

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() >= len(data) {
		t.Fatalf("fixture table does not compress, use raw storage")
	}
	return buf.Bytes()
}

func buildWOFF1(t *testing.T, flavor sfnt.Tag, tables []fixtureTable, meta, priv []byte) []byte {
	t.Helper()
	out := make([]byte, headerSize+entrySize*len(tables))
	sfnt.PutU32(out, Signature)
	sfnt.PutU32(out[4:], uint32(flavor))
	sfnt.PutU16(out[12:], uint16(len(tables)))

	sfntSize := uint32(sfnt.HeaderSize + sfnt.EntrySize*len(tables))
	for i, ft := range tables {
		stored := ft.data
		if ft.compress {
			stored = deflate(t, ft.data)
		}
		entry := out[headerSize+i*entrySize:]
		sfnt.PutU32(entry, uint32(ft.tag))
		sfnt.PutU32(entry[4:], uint32(len(out)))
		sfnt.PutU32(entry[8:], uint32(len(stored)))
		sfnt.PutU32(entry[12:], uint32(len(ft.data)))
		sfnt.PutU32(entry[16:], ft.checksum)
		out = append(out, stored...)
		for len(out)%4 != 0 {
			out = append(out, 0)
		}
		sfntSize += sfnt.Round4(uint32(len(ft.data)))
	}
	sfnt.PutU32(out[16:], sfntSize)
	if meta != nil {
		sfnt.PutU32(out[24:], uint32(len(out)))
		cm := deflate(t, meta)
		sfnt.PutU32(out[28:], uint32(len(cm)))
		sfnt.PutU32(out[32:], uint32(len(meta)))
		out = append(out, cm...)
	}
	if priv != nil {
		sfnt.PutU32(out[36:], uint32(len(out)))
		sfnt.PutU32(out[40:], uint32(len(priv)))
		out = append(out, priv...)
	}
	sfnt.PutU32(out[8:], uint32(len(out)))
	return out
}

func fixtureFont(t *testing.T) ([]byte, []fixtureTable) {
	head := make([]byte, 54)
	sfnt.PutU32(head, 0x00010000)
	sfnt.PutU32(head[8:], 0xDEADBEEF) // checkSumAdjustment, must survive untouched
	name := bytes.Repeat([]byte("AAAABBBB"), 16)
	maxp := []byte{0x00, 0x00, 0x50, 0x00, 0x00, 0x01}
	// directory deliberately not in tag order
	tables := []fixtureTable{
		{tag: sfnt.T("name"), data: name, compress: true, checksum: 0x11111111},
		{tag: sfnt.TagHead, data: head, checksum: 0x22222222},
		{tag: sfnt.TagMaxP, data: maxp, checksum: 0x33333333},
	}
	return buildWOFF1(t, sfnt.FlavorTrueType, tables, nil, nil), tables
}

func TestDecodeWOFF1(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "font.woff1")
	defer teardown()
	//
	woff, tables := fixtureFont(t)
	font, err := Decode(woff)
	if err != nil {
		t.Fatal(err)
	}
	if sfnt.Tag(sfnt.U32(font)) != sfnt.FlavorTrueType {
		t.Errorf("flavor = %#08x, want TrueType", sfnt.U32(font))
	}
	if n := sfnt.U16(font[4:]); n != 3 {
		t.Fatalf("numTables = %d, want 3", n)
	}
	// directory must come out sorted by tag with the original checksums
	// preserved verbatim
	var prev sfnt.Tag
	for i := 0; i < 3; i++ {
		entry := font[sfnt.HeaderSize+i*sfnt.EntrySize:]
		tag := sfnt.Tag(sfnt.U32(entry))
		if i > 0 && tag <= prev {
			t.Errorf("directory not sorted: %s after %s", tag, prev)
		}
		prev = tag
		offset, length := sfnt.U32(entry[8:]), sfnt.U32(entry[12:])
		for _, ft := range tables {
			if ft.tag != tag {
				continue
			}
			if sfnt.U32(entry[4:]) != ft.checksum {
				t.Errorf("%s: checksum %#08x, want %#08x", tag, sfnt.U32(entry[4:]), ft.checksum)
			}
			if !bytes.Equal(font[offset:offset+length], ft.data) {
				t.Errorf("%s: table bytes differ after decompression", tag)
			}
		}
	}
	head := findEntry(t, font, sfnt.TagHead)
	if sfnt.U32(head[8:]) != 0xDEADBEEF {
		t.Error("head.checkSumAdjustment must be preserved, not recomputed")
	}
}

func findEntry(t *testing.T, font []byte, tag sfnt.Tag) []byte {
	t.Helper()
	n := int(sfnt.U16(font[4:]))
	for i := 0; i < n; i++ {
		entry := font[sfnt.HeaderSize+i*sfnt.EntrySize:]
		if sfnt.Tag(sfnt.U32(entry)) == tag {
			offset, length := sfnt.U32(entry[8:]), sfnt.U32(entry[12:])
			return font[offset : offset+length]
		}
	}
	t.Fatalf("table %s not found", tag)
	return nil
}

func TestDecodeWOFF1RejectsBadContainers(t *testing.T) {
	woff, _ := fixtureFont(t)

	bad := bytes.Clone(woff)
	sfnt.PutU32(bad, 0x774F4632) // 'wOF2'
	if _, err := Decode(bad); !errors.Is(err, sfnt.ErrMalformedHeader) {
		t.Errorf("wrong signature: got %v", err)
	}

	bad = bytes.Clone(woff)
	sfnt.PutU16(bad[14:], 7) // reserved
	if _, err := Decode(bad); !errors.Is(err, sfnt.ErrMalformedHeader) {
		t.Errorf("nonzero reserved field: got %v", err)
	}

	bad = bytes.Clone(woff)
	sfnt.PutU32(bad[8:], uint32(len(bad))-1)
	if _, err := Decode(bad); !errors.Is(err, sfnt.ErrMalformedHeader) {
		t.Errorf("wrong declared length: got %v", err)
	}

	bad = bytes.Clone(woff)
	sfnt.PutU32(bad[4:], uint32(sfnt.FlavorTTC))
	if _, err := Decode(bad); !errors.Is(err, sfnt.ErrMalformedHeader) {
		t.Errorf("ttcf flavor: got %v", err)
	}

	bad = bytes.Clone(woff)
	sfnt.PutU32(bad[16:], sfnt.U32(bad[16:])+4) // totalSfntSize lies
	if _, err := Decode(bad); !errors.Is(err, sfnt.ErrInconsistentTotalSize) {
		t.Errorf("wrong totalSfntSize: got %v", err)
	}

	bad = bytes.Clone(woff)
	// first entry: compLength larger than origLength
	entry := bad[headerSize:]
	sfnt.PutU32(entry[12:], sfnt.U32(entry[8:])-1)
	if _, err := Decode(bad); !errors.Is(err, sfnt.ErrMalformedHeader) {
		t.Errorf("compLength > origLength: got %v", err)
	}
}

func TestDecodeWOFF1RejectsTruncation(t *testing.T) {
	woff, _ := fixtureFont(t)
	for i := 0; i < len(woff); i++ {
		if _, err := Decode(woff[:i]); err == nil {
			t.Fatalf("prefix of %d bytes decoded without error", i)
		}
	}
}

func TestDecodeWOFF1RejectsCorruptZlib(t *testing.T) {
	woff, _ := fixtureFont(t)
	bad := bytes.Clone(woff)
	// the name table is the first stored table; clobber its zlib header
	offset := sfnt.U32(bad[headerSize+4:])
	bad[offset] ^= 0xFF
	bad[offset+1] ^= 0xFF
	if _, err := Decode(bad); !errors.Is(err, sfnt.ErrDecompressionFailed) {
		t.Errorf("corrupt zlib stream: got %v", err)
	}
}

func TestWOFF1Metadata(t *testing.T) {
	meta := []byte(`<?xml version="1.0"?><metadata version="1.0"></metadata>`)
	priv := []byte{0x01, 0x02, 0x03}
	head := make([]byte, 54)
	sfnt.PutU32(head, 0x00010000)
	woff := buildWOFF1(t, sfnt.FlavorTrueType, []fixtureTable{
		{tag: sfnt.TagHead, data: head},
	}, meta, priv)

	got, err := Metadata(woff)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, meta) {
		t.Errorf("metadata round trip failed:\n got %q\nwant %q", got, meta)
	}
	gotPriv, err := PrivateData(woff)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotPriv, priv) {
		t.Errorf("private data round trip failed: % x", gotPriv)
	}

	bare, _ := fixtureFont(t)
	if got, err := Metadata(bare); err != nil || got != nil {
		t.Errorf("expected nil metadata, got %v, %v", got, err)
	}
	if got, err := PrivateData(bare); err != nil || got != nil {
		t.Errorf("expected nil private data, got %v, %v", got, err)
	}
}
