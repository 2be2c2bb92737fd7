package woff2

import (
	"github.com/npillmayer/webfont/sfnt"
)

// hhea and head field offsets the decoder needs
const (
	numHMetricsOffset = 34
	hheaMinLength     = 36

	indexToLocFormatOffset = 50
	headMinLength          = 52
)

// container is a fully parsed and decompressed WOFF2 file: header, table
// directory, optional collection directory, and the inflated table payload.
type container struct {
	hdr        *header
	entries    []tableEntry
	ttcVersion uint32
	fonts      []collectionFont // nil for single-font input
	payload    []byte
	metadata   []byte // compressed extended metadata block
	private    []byte // private data block
}

func (c *container) isCollection() bool {
	return c.fonts != nil
}

// parse validates the container layout and inflates the table payload. It
// performs every check that does not need per-table decoding: signature,
// declared file length, directory ceilings, block ordering and the
// decompression ratio guard.
func parse(data []byte) (*container, error) {
	r := sfnt.NewReader(data, sfnt.ErrTruncatedInput)
	h, err := parseHeader(r)
	if err != nil {
		return nil, err
	}
	if uint64(h.length) != uint64(len(data)) {
		return nil, sfnt.Errorf(sfnt.ErrMalformedHeader,
			"header declares %d bytes, file has %d", h.length, len(data))
	}
	entries, totalSize, err := parseDirectory(r, h)
	if err != nil {
		return nil, err
	}
	c := &container{hdr: h, entries: entries}
	if h.flavor == sfnt.FlavorTTC {
		if c.ttcVersion, c.fonts, err = parseCollectionDirectory(r, entries); err != nil {
			return nil, err
		}
	}

	// the compressed block starts right after the directories; metadata and
	// private data, when present, follow it in that order with 4-byte
	// alignment between blocks and nothing else in the file
	compressedOffset := uint64(r.Pos())
	end := compressedOffset + uint64(h.totalCompressedSize)
	if end > uint64(len(data)) {
		return nil, sfnt.Errorf(sfnt.ErrTruncatedInput,
			"compressed data block of %d bytes exceeds file", h.totalCompressedSize)
	}
	compressed := data[compressedOffset:end]
	off := round4u64(end)
	if h.metaOffset != 0 {
		if uint64(h.metaOffset) != off {
			return nil, sfnt.Errorf(sfnt.ErrMalformedHeader,
				"metadata block at %d, expected %d", h.metaOffset, off)
		}
		if uint64(h.metaOffset)+uint64(h.metaLength) > uint64(len(data)) {
			return nil, sfnt.Errorf(sfnt.ErrTruncatedInput, "metadata block exceeds file")
		}
		c.metadata = data[h.metaOffset : uint64(h.metaOffset)+uint64(h.metaLength)]
		off = round4u64(uint64(h.metaOffset) + uint64(h.metaLength))
	}
	if h.privOffset != 0 {
		if uint64(h.privOffset) != off {
			return nil, sfnt.Errorf(sfnt.ErrMalformedHeader,
				"private block at %d, expected %d", h.privOffset, off)
		}
		if uint64(h.privOffset)+uint64(h.privLength) > uint64(len(data)) {
			return nil, sfnt.Errorf(sfnt.ErrTruncatedInput, "private block exceeds file")
		}
		c.private = data[h.privOffset : uint64(h.privOffset)+uint64(h.privLength)]
		off = round4u64(uint64(h.privOffset) + uint64(h.privLength))
	}
	if off != round4u64(uint64(len(data))) {
		return nil, sfnt.Errorf(sfnt.ErrMalformedHeader,
			"trailing garbage after last block")
	}

	if uint64(totalSize) > maxPlausibleCompressionRatio*uint64(len(data)) {
		return nil, sfnt.Errorf(sfnt.ErrDecompressionFailed,
			"implausible compression ratio: %d bytes claimed from a %d byte file",
			totalSize, len(data))
	}
	if c.payload, err = decompress(compressed, totalSize); err != nil {
		return nil, err
	}
	tracer().Debugf("parsed WOFF2 container: %d tables, %d payload bytes", len(entries), totalSize)
	return c, nil
}

func round4u64(n uint64) uint64 {
	return (n + 3) &^ 3
}

// tableKey identifies a decoded table across collection fonts. The source
// offset is part of the key because a zero-length transformed loca shares
// its offset with the table that follows it.
type tableKey struct {
	tag       sfnt.Tag
	srcOffset uint32
}

// decodedTable is a reconstructed table, cached so that collection fonts
// sharing a source table share the decoded bytes too.
type decodedTable struct {
	data []byte
	glyf *glyfInfo // non-nil for transformed glyf entries
}

// fontTable is one table of one reconstructed font.
type fontTable struct {
	tag  sfnt.Tag
	key  tableKey
	data []byte
}

type decoder struct {
	c     *container
	cache map[tableKey]*decodedTable
}

func newDecoder(c *container) *decoder {
	return &decoder{c: c, cache: make(map[tableKey]*decodedTable)}
}

// entriesFor resolves the table entries of one collection font, or the whole
// directory for a single-font container.
func (d *decoder) entriesFor(indices []uint16) []*tableEntry {
	if indices == nil {
		entries := make([]*tableEntry, len(d.c.entries))
		for i := range d.c.entries {
			entries[i] = &d.c.entries[i]
		}
		return entries
	}
	entries := make([]*tableEntry, len(indices))
	for i, idx := range indices {
		entries[i] = &d.c.entries[idx]
	}
	return entries
}

// reconstructFont decodes all tables of one font, reusing previously decoded
// tables from the cache. Tables come back in directory order.
func (d *decoder) reconstructFont(indices []uint16) ([]fontTable, error) {
	entries := d.entriesFor(indices)

	var glyfEntry, locaEntry, hheaEntry, headEntry, maxpEntry *tableEntry
	seen := make(map[sfnt.Tag]bool, len(entries))
	for _, e := range entries {
		if seen[e.tag] {
			return nil, sfnt.TableErrorf(sfnt.ErrMalformedHeader, e.tag, "table listed twice in one font")
		}
		seen[e.tag] = true
		switch e.tag {
		case sfnt.TagGlyf:
			glyfEntry = e
		case sfnt.TagLoca:
			locaEntry = e
		case sfnt.TagHHea:
			hheaEntry = e
		case sfnt.TagHead:
			headEntry = e
		case sfnt.TagMaxP:
			maxpEntry = e
		}
	}
	if (glyfEntry == nil) != (locaEntry == nil) {
		return nil, sfnt.Errorf(sfnt.ErrCrossReferenceMissing, "font has only one of glyf and loca")
	}
	if glyfEntry != nil && glyfEntry.transformed() != locaEntry.transformed() {
		return nil, sfnt.Errorf(sfnt.ErrMalformedHeader, "glyf and loca transform states differ")
	}

	tables := make([]fontTable, 0, len(entries))
	// transformed hmtx is decoded after glyf and hhea, whatever the
	// directory order; pendingHmtx maps result position to its entry
	pendingHmtx := make(map[int]*tableEntry)

	for _, e := range entries {
		key := tableKey{tag: e.tag, srcOffset: e.srcOffset}
		if cached, ok := d.cache[key]; ok {
			tables = append(tables, fontTable{tag: e.tag, key: key, data: cached.data})
			continue
		}
		switch {
		case !e.transformed():
			data := d.payloadSlice(e)
			d.cache[key] = &decodedTable{data: data}
			tables = append(tables, fontTable{tag: e.tag, key: key, data: data})
		case e.tag == sfnt.TagGlyf:
			gi, err := reconstructGlyf(d.payloadSlice(e), locaEntry.origLength)
			if err != nil {
				return nil, err
			}
			d.cache[key] = &decodedTable{data: gi.glyf, glyf: gi}
			locaKey := tableKey{tag: sfnt.TagLoca, srcOffset: locaEntry.srcOffset}
			d.cache[locaKey] = &decodedTable{data: gi.loca}
			tables = append(tables, fontTable{tag: e.tag, key: key, data: gi.glyf})
		case e.tag == sfnt.TagLoca:
			// rebuilt together with glyf; directory order may put loca first
			tables = append(tables, fontTable{tag: e.tag, key: key})
		case e.tag == sfnt.TagHMtx:
			pendingHmtx[len(tables)] = e
			tables = append(tables, fontTable{tag: e.tag, key: key})
		default:
			return nil, sfnt.TableErrorf(sfnt.ErrMalformedHeader, e.tag,
				"no transform defined for this table")
		}
	}

	// loca slots left open above are filled from the glyf reconstruction
	for i := range tables {
		if tables[i].data != nil {
			continue
		}
		if tables[i].tag == sfnt.TagLoca {
			cached, ok := d.cache[tables[i].key]
			if !ok {
				return nil, sfnt.Errorf(sfnt.ErrCrossReferenceMissing,
					"transformed loca without reconstructed glyf")
			}
			tables[i].data = cached.data
		}
	}

	// the reconstructed loca format must agree with what head declares
	if glyfEntry != nil && glyfEntry.transformed() && headEntry != nil {
		head := d.cache[tableKey{tag: sfnt.TagHead, srcOffset: headEntry.srcOffset}]
		if head == nil || len(head.data) < headMinLength {
			return nil, sfnt.TableErrorf(sfnt.ErrMalformedHeader, sfnt.TagHead,
				"head too short to carry indexToLocFormat")
		}
		gi := d.cache[tableKey{tag: sfnt.TagGlyf, srcOffset: glyfEntry.srcOffset}].glyf
		if declared := sfnt.U16(head.data[indexToLocFormatOffset:]); declared != gi.indexFormat {
			return nil, sfnt.TableErrorf(sfnt.ErrMalformedHeader, sfnt.TagHead,
				"head declares loca index format %d, glyph transform uses %d",
				declared, gi.indexFormat)
		}
	}

	for pos, e := range pendingHmtx {
		hmtx, err := d.reconstructHmtxFor(e, glyfEntry, hheaEntry, maxpEntry)
		if err != nil {
			return nil, err
		}
		tables[pos].data = hmtx
	}
	return tables, nil
}

// reconstructHmtxFor decodes one transformed hmtx table. The transform
// elides side bearings recoverable from glyph bounding boxes, so it needs
// the transformed glyf of the same font plus hhea's numberOfHMetrics.
func (d *decoder) reconstructHmtxFor(e *tableEntry, glyfEntry, hheaEntry, maxpEntry *tableEntry) ([]byte, error) {
	if glyfEntry == nil || !glyfEntry.transformed() {
		return nil, sfnt.Errorf(sfnt.ErrCrossReferenceMissing,
			"transformed hmtx requires a transformed glyf in the same font")
	}
	if hheaEntry == nil {
		return nil, sfnt.Errorf(sfnt.ErrCrossReferenceMissing,
			"transformed hmtx requires hhea")
	}
	if maxpEntry == nil {
		return nil, sfnt.Errorf(sfnt.ErrCrossReferenceMissing,
			"transformed hmtx requires maxp")
	}
	glyfCached := d.cache[tableKey{tag: sfnt.TagGlyf, srcOffset: glyfEntry.srcOffset}]
	if glyfCached == nil || glyfCached.glyf == nil {
		return nil, sfnt.Errorf(sfnt.ErrCrossReferenceMissing,
			"transformed hmtx requires a transformed glyf in the same font")
	}
	hheaCached := d.cache[tableKey{tag: sfnt.TagHHea, srcOffset: hheaEntry.srcOffset}]
	if hheaCached == nil || len(hheaCached.data) < hheaMinLength {
		return nil, sfnt.TableErrorf(sfnt.ErrMalformedHeader, sfnt.TagHHea,
			"hhea too short to carry numberOfHMetrics")
	}
	numHMetrics := sfnt.U16(hheaCached.data[numHMetricsOffset:])
	gi := glyfCached.glyf
	hmtx, err := reconstructHmtx(d.payloadSlice(e), gi.numGlyphs, numHMetrics, gi.xMins)
	if err != nil {
		return nil, err
	}
	d.cache[tableKey{tag: e.tag, srcOffset: e.srcOffset}] = &decodedTable{data: hmtx}
	return hmtx, nil
}

// payloadSlice returns the source bytes of a table within the decompressed
// payload. Bounds were established when the directory was parsed: offsets
// are running sums of lengths and the payload inflated to exactly that sum.
func (d *decoder) payloadSlice(e *tableEntry) []byte {
	return d.c.payload[e.srcOffset : e.srcOffset+e.srcLength]
}

// Decode converts a WOFF2 container into the SFNT binary it was encoded
// from: a single TrueType or CFF font, or a TTC collection if the container
// holds one. The result carries a conformant table directory, per-table
// checksums and a patched head.checkSumAdjustment.
func Decode(data []byte) ([]byte, error) {
	c, err := parse(data)
	if err != nil {
		return nil, err
	}
	d := newDecoder(c)
	var out []byte
	if c.isCollection() {
		fonts := make([]assembledFont, len(c.fonts))
		for i, f := range c.fonts {
			tables, err := d.reconstructFont(f.tables)
			if err != nil {
				return nil, err
			}
			fonts[i] = assembledFont{flavor: f.flavor, tables: tables}
		}
		if out, err = assembleCollection(c.ttcVersion, fonts); err != nil {
			return nil, err
		}
	} else {
		tables, err := d.reconstructFont(nil)
		if err != nil {
			return nil, err
		}
		if out, err = assembleSingle(c.hdr.flavor, tables); err != nil {
			return nil, err
		}
	}
	if uint64(c.hdr.totalSfntSize) != uint64(len(out)) {
		return nil, sfnt.Errorf(sfnt.ErrInconsistentTotalSize,
			"header promises %d bytes of font data, reconstruction yields %d",
			c.hdr.totalSfntSize, len(out))
	}
	return out, nil
}

// DecodeFonts converts a WOFF2 container into one single-font SFNT binary
// per font. For single-font input it behaves like Decode; for a collection
// it splits the member fonts apart, duplicating shared tables.
func DecodeFonts(data []byte) ([][]byte, error) {
	c, err := parse(data)
	if err != nil {
		return nil, err
	}
	d := newDecoder(c)
	if !c.isCollection() {
		tables, err := d.reconstructFont(nil)
		if err != nil {
			return nil, err
		}
		out, err := assembleSingle(c.hdr.flavor, tables)
		if err != nil {
			return nil, err
		}
		if uint64(c.hdr.totalSfntSize) != uint64(len(out)) {
			return nil, sfnt.Errorf(sfnt.ErrInconsistentTotalSize,
				"header promises %d bytes of font data, reconstruction yields %d",
				c.hdr.totalSfntSize, len(out))
		}
		return [][]byte{out}, nil
	}
	fonts := make([][]byte, len(c.fonts))
	for i, f := range c.fonts {
		tables, err := d.reconstructFont(f.tables)
		if err != nil {
			return nil, err
		}
		// totalSfntSize describes the collection layout, not the split
		// fonts, so it is not checked here
		if fonts[i], err = assembleSingle(f.flavor, tables); err != nil {
			return nil, err
		}
	}
	return fonts, nil
}

// assembleSingle lays out one font through the generic SFNT builder.
func assembleSingle(flavor sfnt.Tag, tables []fontTable) ([]byte, error) {
	b := sfnt.NewBuilder(flavor)
	for _, t := range tables {
		b.Add(t.tag, t.data)
	}
	return b.Assemble()
}

// Metadata returns the decompressed extended metadata block (an XML
// document), or nil if the container carries none.
func Metadata(data []byte) ([]byte, error) {
	c, err := parse(data)
	if err != nil {
		return nil, err
	}
	if c.metadata == nil {
		return nil, nil
	}
	if uint64(c.hdr.metaOrigLength) > maxPlausibleCompressionRatio*uint64(len(c.metadata)) {
		return nil, sfnt.Errorf(sfnt.ErrDecompressionFailed,
			"implausible metadata compression ratio")
	}
	return decompress(c.metadata, c.hdr.metaOrigLength)
}

// PrivateData returns the private data block verbatim, or nil if the
// container carries none.
func PrivateData(data []byte) ([]byte, error) {
	c, err := parse(data)
	if err != nil {
		return nil, err
	}
	return c.private, nil
}
