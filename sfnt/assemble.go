package sfnt

import (
	"math"
	"sort"
)

const (
	// HeaderSize is the size of the SFNT offset table (the 12-byte header).
	HeaderSize = 12
	// EntrySize is the size of one table directory entry.
	EntrySize = 16
)

// BinarySearchFields computes the searchRange, entrySelector and rangeShift
// fields of the SFNT offset table for a directory of numTables entries.
func BinarySearchFields(numTables uint16) (searchRange, entrySelector, rangeShift uint16) {
	var maxPow2 uint16
	for 1<<(maxPow2+1) <= numTables {
		maxPow2++
	}
	searchRange = (1 << maxPow2) << 4
	entrySelector = maxPow2
	rangeShift = numTables<<4 - searchRange
	return
}

// WriteOffsetTable stores a 12-byte SFNT offset table into buf at offset and
// returns the offset just past it. buf must have room for HeaderSize bytes.
func WriteOffsetTable(buf []byte, offset int, flavor Tag, numTables uint16) int {
	searchRange, entrySelector, rangeShift := BinarySearchFields(numTables)
	PutU32(buf[offset:], uint32(flavor))
	PutU16(buf[offset+4:], numTables)
	PutU16(buf[offset+6:], searchRange)
	PutU16(buf[offset+8:], entrySelector)
	PutU16(buf[offset+10:], rangeShift)
	return offset + HeaderSize
}

// TableData is one finalized font table queued for assembly.
type TableData struct {
	Tag  Tag
	Data []byte
}

// Builder assembles a set of finalized tables into one standards-conformant
// single-font SFNT binary: directory sorted by tag, binary-search header
// fields, tables padded to 4-byte boundaries, per-table checksums, and the
// head table's checkSumAdjustment patched so that the ULONG sum of the whole
// file equals ChecksumAdjustmentMagic.
//
// Table buffers handed to Add are copied during Assemble and never mutated;
// the returned buffer is owned by the caller and immutable as far as the
// Builder is concerned.
type Builder struct {
	flavor Tag
	tables []TableData
}

// NewBuilder creates a Builder for a font with the given sfntVersion flavor
// (FlavorTrueType or FlavorCFF).
func NewBuilder(flavor Tag) *Builder {
	return &Builder{flavor: flavor}
}

// Add queues one table. Tables may be added in any order; Assemble sorts the
// directory by tag.
func (b *Builder) Add(tag Tag, data []byte) {
	b.tables = append(b.tables, TableData{Tag: tag, Data: data})
}

// NumTables returns the number of tables queued so far.
func (b *Builder) NumTables() int {
	return len(b.tables)
}

// Size returns the total byte size Assemble will produce.
func (b *Builder) Size() (uint32, error) {
	total := uint64(HeaderSize) + uint64(EntrySize)*uint64(len(b.tables))
	for _, t := range b.tables {
		total += uint64(Round4(uint32(len(t.Data))))
	}
	if total > math.MaxUint32 {
		return 0, Errorf(ErrSizeMismatch, "assembled font exceeds 4 GiB")
	}
	return uint32(total), nil
}

// Assemble lays out the queued tables and returns the SFNT binary.
func (b *Builder) Assemble() ([]byte, error) {
	n := len(b.tables)
	if n == 0 {
		return nil, Errorf(ErrMalformedHeader, "no tables to assemble")
	}
	if n > MaxTableCount {
		return nil, Errorf(ErrDirectoryTooLarge, "%d tables exceed ceiling %d", n, MaxTableCount)
	}
	sorted := make([]TableData, n)
	copy(sorted, b.tables)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Tag < sorted[j].Tag })
	for i := 1; i < n; i++ {
		if sorted[i].Tag == sorted[i-1].Tag {
			return nil, TableErrorf(ErrMalformedHeader, sorted[i].Tag, "table emitted twice")
		}
	}
	total, err := b.Size()
	if err != nil {
		return nil, err
	}
	tracer().Debugf("assembling %d tables into %d bytes", n, total)

	buf := make([]byte, total)
	WriteOffsetTable(buf, 0, b.flavor, uint16(n))

	headOffset := -1
	offset := HeaderSize + EntrySize*n
	for i, t := range sorted {
		length := len(t.Data)
		copy(buf[offset:], t.Data)
		if t.Tag == TagHead && length >= checkSumAdjustmentOffset+4 {
			// checksums are computed with checkSumAdjustment = 0
			PutU32(buf[offset+checkSumAdjustmentOffset:], 0)
			headOffset = offset
		}
		padded := int(Round4(uint32(length)))
		entry := buf[HeaderSize+i*EntrySize:]
		PutU32(entry, uint32(t.Tag))
		PutU32(entry[4:], Checksum(buf[offset:offset+padded]))
		PutU32(entry[8:], uint32(offset))
		PutU32(entry[12:], uint32(length))
		offset += padded
	}

	if headOffset >= 0 {
		adjustment := ChecksumAdjustmentMagic - Checksum(buf)
		PutU32(buf[headOffset+checkSumAdjustmentOffset:], adjustment)
	}
	return buf, nil
}
