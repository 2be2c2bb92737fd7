package woff1

import (
	"bytes"
	"io"
	"sort"

	"github.com/klauspost/compress/zlib"
	"github.com/npillmayer/webfont/sfnt"
)

// Signature is the magic number opening every WOFF file ('wOFF').
const Signature = 0x774F4646

const (
	headerSize = 44
	entrySize  = 20
)

// header mirrors the fixed-size WOFF file header.
type header struct {
	flavor         sfnt.Tag
	length         uint32
	numTables      uint16
	totalSfntSize  uint32
	majorVersion   uint16
	minorVersion   uint16
	metaOffset     uint32
	metaLength     uint32
	metaOrigLength uint32
	privOffset     uint32
	privLength     uint32
}

// tableEntry is one 20-byte WOFF table directory entry. Unlike WOFF2 the
// directory keeps explicit offsets and the original table checksum.
type tableEntry struct {
	tag          sfnt.Tag
	offset       uint32
	compLength   uint32
	origLength   uint32
	origChecksum uint32
}

func parseHeader(r *sfnt.Reader) (*header, error) {
	if r.Len() < headerSize {
		return nil, sfnt.Errorf(sfnt.ErrTruncatedInput, "input shorter than file header")
	}
	signature, _ := r.U32()
	if signature != Signature {
		return nil, sfnt.Errorf(sfnt.ErrMalformedHeader, "signature %#08x is not 'wOFF'", signature)
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
	h.majorVersion, _ = r.U16()
	h.minorVersion, _ = r.U16()
	h.metaOffset, _ = r.U32()
	h.metaLength, _ = r.U32()
	h.metaOrigLength, _ = r.U32()
	h.privOffset, _ = r.U32()
	h.privLength, _ = r.U32()
	if uint64(h.length) != uint64(r.Len()) {
		return nil, sfnt.Errorf(sfnt.ErrMalformedHeader,
			"header declares %d bytes, file has %d", h.length, r.Len())
	}
	if h.numTables == 0 {
		return nil, sfnt.Errorf(sfnt.ErrMalformedHeader, "no tables in font")
	}
	if h.flavor == sfnt.FlavorTTC {
		// a WOFF1 directory cannot express per-font table sharing
		return nil, sfnt.Errorf(sfnt.ErrMalformedHeader, "font collections are not valid WOFF1 content")
	}
	if h.metaOffset != 0 && uint64(h.metaOffset)+uint64(h.metaLength) > uint64(r.Len()) {
		return nil, sfnt.Errorf(sfnt.ErrTruncatedInput, "metadata block exceeds file")
	}
	if h.privOffset != 0 && uint64(h.privOffset)+uint64(h.privLength) > uint64(r.Len()) {
		return nil, sfnt.Errorf(sfnt.ErrTruncatedInput, "private block exceeds file")
	}
	return h, nil
}

func parseDirectory(r *sfnt.Reader, h *header) ([]tableEntry, error) {
	if int(h.numTables) > sfnt.MaxTableCount {
		return nil, sfnt.Errorf(sfnt.ErrDirectoryTooLarge,
			"%d tables exceed ceiling %d", h.numTables, sfnt.MaxTableCount)
	}
	entries := make([]tableEntry, h.numTables)
	for i := range entries {
		e := &entries[i]
		tag, err := r.U32()
		if err != nil {
			return nil, err
		}
		e.tag = sfnt.Tag(tag)
		if e.offset, err = r.U32(); err != nil {
			return nil, err
		}
		if e.compLength, err = r.U32(); err != nil {
			return nil, err
		}
		if e.origLength, err = r.U32(); err != nil {
			return nil, err
		}
		if e.origChecksum, err = r.U32(); err != nil {
			return nil, err
		}
		if e.compLength > e.origLength {
			return nil, sfnt.TableErrorf(sfnt.ErrMalformedHeader, e.tag,
				"compressed length %d exceeds original length %d", e.compLength, e.origLength)
		}
		end, err := sfnt.CheckedAddU32(e.offset, e.compLength)
		if err != nil {
			return nil, err
		}
		if uint64(end) > uint64(r.Len()) {
			return nil, sfnt.TableErrorf(sfnt.ErrTruncatedInput, e.tag,
				"table data at %d..%d exceeds file", e.offset, end)
		}
	}
	return entries, nil
}

// inflate decompresses one zlib-compressed block to exactly origLength bytes.
func inflate(compressed []byte, origLength uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, sfnt.Errorf(sfnt.ErrDecompressionFailed, "zlib: %v", err)
	}
	defer zr.Close()
	out := make([]byte, origLength)
	if _, err := io.ReadFull(zr, out); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, sfnt.Errorf(sfnt.ErrSizeMismatch,
				"block decompresses to fewer than the declared %d bytes", origLength)
		}
		return nil, sfnt.Errorf(sfnt.ErrDecompressionFailed, "zlib: %v", err)
	}
	var one [1]byte
	if n, _ := zr.Read(one[:]); n != 0 {
		return nil, sfnt.Errorf(sfnt.ErrSizeMismatch,
			"block decompresses past the declared %d bytes", origLength)
	}
	return out, nil
}

// Decode converts a WOFF container into the SFNT binary it wraps. The
// directory comes out in tag order with the original checksums preserved;
// table bytes are restored verbatim, so head.checkSumAdjustment keeps the
// value the encoder saw.
func Decode(data []byte) ([]byte, error) {
	r := sfnt.NewReader(data, sfnt.ErrTruncatedInput)
	h, err := parseHeader(r)
	if err != nil {
		return nil, err
	}
	entries, err := parseDirectory(r, h)
	if err != nil {
		return nil, err
	}

	// directory entries are written in tag order; table data keeps the
	// order the container stored it in
	byTag := make([]*tableEntry, len(entries))
	byOffset := make([]*tableEntry, len(entries))
	for i := range entries {
		byTag[i] = &entries[i]
		byOffset[i] = &entries[i]
	}
	sort.Slice(byTag, func(i, j int) bool { return byTag[i].tag < byTag[j].tag })
	sort.Slice(byOffset, func(i, j int) bool { return byOffset[i].offset < byOffset[j].offset })
	for i := 1; i < len(byTag); i++ {
		if byTag[i].tag == byTag[i-1].tag {
			return nil, sfnt.TableErrorf(sfnt.ErrMalformedHeader, byTag[i].tag, "table listed twice")
		}
	}
	entryIndex := make(map[sfnt.Tag]int, len(byTag))
	for i, e := range byTag {
		entryIndex[e.tag] = i
	}

	total := uint64(sfnt.HeaderSize) + uint64(sfnt.EntrySize)*uint64(len(entries))
	for i := range entries {
		total += uint64(sfnt.Round4(entries[i].origLength))
	}
	if total > 1<<32 {
		return nil, sfnt.Errorf(sfnt.ErrSizeMismatch, "reconstructed font exceeds 4 GiB")
	}
	out := make([]byte, 0, total)
	hdr := make([]byte, sfnt.HeaderSize+sfnt.EntrySize*len(entries))
	sfnt.WriteOffsetTable(hdr, 0, h.flavor, uint16(len(entries)))
	out = append(out, hdr...)

	for _, e := range byOffset {
		offset := len(out)
		var table []byte
		src := data[e.offset : e.offset+e.compLength]
		if e.compLength < e.origLength {
			if table, err = inflate(src, e.origLength); err != nil {
				return nil, err
			}
		} else {
			table = src
		}
		out = append(out, table...)
		if pad := int(sfnt.Round4(uint32(len(out)))) - len(out); pad > 0 {
			out = append(out, make([]byte, pad)...)
		}
		entry := out[sfnt.HeaderSize+entryIndex[e.tag]*sfnt.EntrySize:]
		sfnt.PutU32(entry, uint32(e.tag))
		sfnt.PutU32(entry[4:], e.origChecksum)
		sfnt.PutU32(entry[8:], uint32(offset))
		sfnt.PutU32(entry[12:], e.origLength)
	}

	if uint64(h.totalSfntSize) != uint64(len(out)) {
		return nil, sfnt.Errorf(sfnt.ErrInconsistentTotalSize,
			"header promises %d bytes of font data, reconstruction yields %d",
			h.totalSfntSize, len(out))
	}
	tracer().Debugf("reconstructed %d-table font, %d bytes", len(entries), len(out))
	return out, nil
}

// Metadata returns the decompressed extended metadata block (an XML
// document), or nil if the container carries none.
func Metadata(data []byte) ([]byte, error) {
	r := sfnt.NewReader(data, sfnt.ErrTruncatedInput)
	h, err := parseHeader(r)
	if err != nil {
		return nil, err
	}
	if h.metaOffset == 0 {
		return nil, nil
	}
	return inflate(data[h.metaOffset:h.metaOffset+h.metaLength], h.metaOrigLength)
}

// PrivateData returns the private data block verbatim, or nil if the
// container carries none.
func PrivateData(data []byte) ([]byte, error) {
	r := sfnt.NewReader(data, sfnt.ErrTruncatedInput)
	h, err := parseHeader(r)
	if err != nil {
		return nil, err
	}
	if h.privOffset == 0 {
		return nil, nil
	}
	return data[h.privOffset : h.privOffset+h.privLength], nil
}
