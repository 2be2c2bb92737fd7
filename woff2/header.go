package woff2

import (
	"github.com/npillmayer/webfont/sfnt"
)

// Signature is the magic number opening every WOFF2 file ('wOF2').
const Signature = 0x774F4632

const headerSize = 48

// Transform version numbers live in bits 6 and 7 of the directory flag byte.
// glyf and loca are transformed at version 0 and passed through at version 3;
// every other table is passed through at version 0.
const (
	xformVersionShift = 6
	xformVersionMask  = 0x3
	tagIndexMask      = 0x3F
	arbitraryTagIndex = 0x3F
)

// header mirrors the fixed-size WOFF2 file header.
type header struct {
	flavor              sfnt.Tag
	length              uint32
	numTables           uint16
	totalSfntSize       uint32
	totalCompressedSize uint32
	majorVersion        uint16
	minorVersion        uint16
	metaOffset          uint32
	metaLength          uint32
	metaOrigLength      uint32
	privOffset          uint32
	privLength          uint32
}

// tableEntry is one parsed table directory entry. srcOffset/srcLength locate
// the table's bytes within the decompressed payload: the transformed bytes
// for transformed tables, the plain table otherwise.
type tableEntry struct {
	tag          sfnt.Tag
	xformVersion uint8
	origLength   uint32
	srcOffset    uint32
	srcLength    uint32
}

// transformed reports whether the table's payload bytes are in transform
// format rather than a verbatim copy.
func (e *tableEntry) transformed() bool {
	if e.tag == sfnt.TagGlyf || e.tag == sfnt.TagLoca {
		return e.xformVersion == 0
	}
	return e.xformVersion != 0
}

// collectionFont is one font of a TTC collection directory. tables holds
// indices into the container's table directory.
type collectionFont struct {
	flavor sfnt.Tag
	tables []uint16
}

// knownTags is the fixed table of tag values the directory flag byte can
// reference by index instead of spelling the tag out.
var knownTags = [63]sfnt.Tag{
	sfnt.T("cmap"), sfnt.T("head"), sfnt.T("hhea"), sfnt.T("hmtx"),
	sfnt.T("maxp"), sfnt.T("name"), sfnt.T("OS/2"), sfnt.T("post"),
	sfnt.T("cvt "), sfnt.T("fpgm"), sfnt.T("glyf"), sfnt.T("loca"),
	sfnt.T("prep"), sfnt.T("CFF "), sfnt.T("VORG"), sfnt.T("EBDT"),
	sfnt.T("EBLC"), sfnt.T("gasp"), sfnt.T("hdmx"), sfnt.T("kern"),
	sfnt.T("LTSH"), sfnt.T("PCLT"), sfnt.T("VDMX"), sfnt.T("vhea"),
	sfnt.T("vmtx"), sfnt.T("BASE"), sfnt.T("GDEF"), sfnt.T("GPOS"),
	sfnt.T("GSUB"), sfnt.T("EBSC"), sfnt.T("JSTF"), sfnt.T("MATH"),
	sfnt.T("CBDT"), sfnt.T("CBLC"), sfnt.T("COLR"), sfnt.T("CPAL"),
	sfnt.T("SVG "), sfnt.T("sbix"), sfnt.T("acnt"), sfnt.T("avar"),
	sfnt.T("bdat"), sfnt.T("bloc"), sfnt.T("bsln"), sfnt.T("cvar"),
	sfnt.T("fdsc"), sfnt.T("feat"), sfnt.T("fmtx"), sfnt.T("fvar"),
	sfnt.T("gvar"), sfnt.T("hsty"), sfnt.T("just"), sfnt.T("lcar"),
	sfnt.T("mort"), sfnt.T("morx"), sfnt.T("opbd"), sfnt.T("prop"),
	sfnt.T("trak"), sfnt.T("Zapf"), sfnt.T("Silf"), sfnt.T("Glat"),
	sfnt.T("Gloc"), sfnt.T("Feat"), sfnt.T("Sill"),
}

// parseHeader reads the 48-byte file header.
func parseHeader(r *sfnt.Reader) (*header, error) {
	if r.Len() < headerSize {
		return nil, sfnt.Errorf(sfnt.ErrTruncatedInput, "input shorter than file header")
	}
	signature, _ := r.U32()
	if signature != Signature {
		return nil, sfnt.Errorf(sfnt.ErrMalformedHeader, "signature %#08x is not 'wOF2'", signature)
	}
	h := &header{}
	flavor, _ := r.U32()
	h.flavor = sfnt.Tag(flavor)
	h.length, _ = r.U32()
	h.numTables, _ = r.U16()
	reserved, _ := r.U16()
	if reserved != 0 {
		return nil, sfnt.Errorf(sfnt.ErrMalformedHeader, "reserved header field is %d", reserved)
	}
	h.totalSfntSize, _ = r.U32()
	h.totalCompressedSize, _ = r.U32()
	h.majorVersion, _ = r.U16()
	h.minorVersion, _ = r.U16()
	h.metaOffset, _ = r.U32()
	h.metaLength, _ = r.U32()
	h.metaOrigLength, _ = r.U32()
	h.privOffset, _ = r.U32()
	h.privLength, _ = r.U32()
	if h.numTables == 0 {
		return nil, sfnt.Errorf(sfnt.ErrMalformedHeader, "no tables in font")
	}
	return h, nil
}

// parseDirectory reads h.numTables directory entries and assigns each its
// offset within the (yet to be inflated) payload. It returns the entries and
// the total decompressed payload size.
func parseDirectory(r *sfnt.Reader, h *header) ([]tableEntry, uint32, error) {
	if int(h.numTables) > sfnt.MaxTableCount {
		return nil, 0, sfnt.Errorf(sfnt.ErrDirectoryTooLarge,
			"%d tables exceed ceiling %d", h.numTables, sfnt.MaxTableCount)
	}
	entries := make([]tableEntry, 0, h.numTables)
	var srcOffset uint32
	for i := 0; i < int(h.numTables); i++ {
		flags, err := r.U8()
		if err != nil {
			return nil, 0, err
		}
		var entry tableEntry
		if flags&tagIndexMask == arbitraryTagIndex {
			tag, err := r.U32()
			if err != nil {
				return nil, 0, err
			}
			entry.tag = sfnt.Tag(tag)
		} else {
			entry.tag = knownTags[flags&tagIndexMask]
		}
		entry.xformVersion = (flags >> xformVersionShift) & xformVersionMask
		if entry.origLength, err = readBase128(r); err != nil {
			return nil, 0, err
		}
		entry.srcLength = entry.origLength
		if entry.transformed() {
			if entry.srcLength, err = readBase128(r); err != nil {
				return nil, 0, err
			}
			if entry.tag == sfnt.TagLoca && entry.srcLength != 0 {
				return nil, 0, sfnt.TableErrorf(sfnt.ErrMalformedHeader, entry.tag,
					"transformed loca must have zero transform length, has %d", entry.srcLength)
			}
		}
		entry.srcOffset = srcOffset
		if srcOffset, err = sfnt.CheckedAddU32(srcOffset, entry.srcLength); err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	return entries, srcOffset, nil
}

// TTC header versions a collection directory may declare.
const (
	ttcVersion1 = 0x00010000
	ttcVersion2 = 0x00020000
)

// parseCollectionDirectory reads the collection directory that follows the
// table directory when the container flavor is 'ttcf'.
func parseCollectionDirectory(r *sfnt.Reader, entries []tableEntry) (uint32, []collectionFont, error) {
	version, err := r.U32()
	if err != nil {
		return 0, nil, err
	}
	if version != ttcVersion1 && version != ttcVersion2 {
		return 0, nil, sfnt.Errorf(sfnt.ErrMalformedHeader, "unknown TTC version %#08x", version)
	}
	numFonts, err := read255UShort(r)
	if err != nil {
		return 0, nil, err
	}
	if numFonts == 0 || int(numFonts) > sfnt.MaxFontCount {
		return 0, nil, sfnt.Errorf(sfnt.ErrDirectoryTooLarge,
			"collection declares %d fonts, ceiling is %d", numFonts, sfnt.MaxFontCount)
	}
	fonts := make([]collectionFont, 0, numFonts)
	for i := 0; i < int(numFonts); i++ {
		numTables, err := read255UShort(r)
		if err != nil {
			return 0, nil, err
		}
		if numTables == 0 || int(numTables) > len(entries) {
			return 0, nil, sfnt.Errorf(sfnt.ErrMalformedHeader,
				"collection font %d declares %d tables, container has %d", i, numTables, len(entries))
		}
		flavor, err := r.U32()
		if err != nil {
			return 0, nil, err
		}
		font := collectionFont{flavor: sfnt.Tag(flavor), tables: make([]uint16, numTables)}
		glyfIdx, locaIdx := -1, -1
		for j := range font.tables {
			idx, err := read255UShort(r)
			if err != nil {
				return 0, nil, err
			}
			if int(idx) >= len(entries) {
				return 0, nil, sfnt.Errorf(sfnt.ErrMalformedHeader,
					"collection font %d references table index %d of %d", i, idx, len(entries))
			}
			switch entries[idx].tag {
			case sfnt.TagGlyf:
				glyfIdx = j
			case sfnt.TagLoca:
				locaIdx = j
			}
			font.tables[j] = idx
		}
		// glyf and loca are decoded as a pair and must travel together,
		// with loca directly following glyf
		if (glyfIdx < 0) != (locaIdx < 0) {
			return 0, nil, sfnt.Errorf(sfnt.ErrMalformedHeader,
				"collection font %d has only one of glyf and loca", i)
		}
		if glyfIdx >= 0 && locaIdx != glyfIdx+1 {
			return 0, nil, sfnt.Errorf(sfnt.ErrMalformedHeader,
				"collection font %d: loca does not directly follow glyf", i)
		}
		fonts = append(fonts, font)
	}
	return version, fonts, nil
}
