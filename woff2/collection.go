package woff2

import (
	"sort"

	"github.com/npillmayer/webfont/sfnt"
)

// Assembly of a TTC collection from per-font table sets. The generic
// builder in package sfnt only lays out single fonts; a collection needs a
// TTC header, one offset table per font, and tables that are stored once
// but referenced from several directories.

// assembledFont is the reconstructed table set of one collection member.
type assembledFont struct {
	flavor sfnt.Tag
	tables []fontTable
}

// ttcHeaderSize returns the size of the TTC header for the given version:
// tag, version and font count, the per-font offset array, and for version 2
// the three (null) DSIG fields.
func ttcHeaderSize(version uint32, numFonts int) int {
	size := 12 + 4*numFonts
	if version == ttcVersion2 {
		size += 12
	}
	return size
}

// assembleCollection lays out the member fonts into one 'ttcf' stream.
// Tables shared between fonts (same decode key) are stored once and
// referenced from each font's directory. Every font with a head table gets
// its checkSumAdjustment patched against its own directory and tables.
func assembleCollection(version uint32, fonts []assembledFont) ([]byte, error) {
	numFonts := len(fonts)

	// directories first: TTC header, then one offset table per font with
	// its entries sorted by tag
	offset := ttcHeaderSize(version, numFonts)
	fontDirOffsets := make([]int, numFonts)
	for i := range fonts {
		if len(fonts[i].tables) > sfnt.MaxTableCount {
			return nil, sfnt.Errorf(sfnt.ErrDirectoryTooLarge,
				"collection font %d has %d tables", i, len(fonts[i].tables))
		}
		sort.Slice(fonts[i].tables, func(a, b int) bool {
			return fonts[i].tables[a].tag < fonts[i].tables[b].tag
		})
		fontDirOffsets[i] = offset
		offset += sfnt.HeaderSize + sfnt.EntrySize*len(fonts[i].tables)
	}

	// then the tables, each unique source table placed once
	type placement struct {
		offset   int
		length   int
		checksum uint32 // filled in after the copy
	}
	placements := make(map[tableKey]*placement)
	var order []tableKey // placement order, for the copy pass
	total := uint64(offset)
	for i := range fonts {
		for _, t := range fonts[i].tables {
			if _, ok := placements[t.key]; ok {
				continue
			}
			placements[t.key] = &placement{offset: int(total), length: len(t.data)}
			order = append(order, t.key)
			total += uint64(sfnt.Round4(uint32(len(t.data))))
			if total > 1<<32 {
				return nil, sfnt.Errorf(sfnt.ErrSizeMismatch, "assembled collection exceeds 4 GiB")
			}
		}
	}
	buf := make([]byte, total)

	// TTC header
	sfnt.PutU32(buf, uint32(sfnt.FlavorTTC))
	sfnt.PutU32(buf[4:], version)
	sfnt.PutU32(buf[8:], uint32(numFonts))
	for i, dirOffset := range fontDirOffsets {
		sfnt.PutU32(buf[12+4*i:], uint32(dirOffset))
	}
	// version 2 DSIG fields stay zero: reconstruction never carries a
	// signature forward, it could not match the rebuilt bytes

	// copy tables, zeroing head adjustments so checksums come out stable
	tableData := make(map[tableKey][]byte)
	for i := range fonts {
		for _, t := range fonts[i].tables {
			tableData[t.key] = t.data
		}
	}
	for _, key := range order {
		p := placements[key]
		copy(buf[p.offset:], tableData[key])
		if key.tag == sfnt.TagHead && p.length >= 12 {
			sfnt.PutU32(buf[p.offset+8:], 0)
		}
		p.checksum = sfnt.Checksum(buf[p.offset : p.offset+int(sfnt.Round4(uint32(p.length)))])
	}

	// per-font offset tables and directory entries
	for i := range fonts {
		dir := fontDirOffsets[i]
		entryOffset := sfnt.WriteOffsetTable(buf, dir, fonts[i].flavor, uint16(len(fonts[i].tables)))
		var fontChecksum uint32
		headPlacement := -1
		for _, t := range fonts[i].tables {
			p := placements[t.key]
			sfnt.PutU32(buf[entryOffset:], uint32(t.tag))
			sfnt.PutU32(buf[entryOffset+4:], p.checksum)
			sfnt.PutU32(buf[entryOffset+8:], uint32(p.offset))
			sfnt.PutU32(buf[entryOffset+12:], uint32(p.length))
			entryOffset += sfnt.EntrySize
			fontChecksum += p.checksum
			if t.tag == sfnt.TagHead && p.length >= 12 {
				headPlacement = p.offset
			}
		}
		fontChecksum += sfnt.Checksum(buf[dir:entryOffset])
		if headPlacement >= 0 {
			sfnt.PutU32(buf[headPlacement+8:], sfnt.ChecksumAdjustmentMagic-fontChecksum)
		}
	}
	tracer().Debugf("assembled %d-font collection, %d bytes, %d distinct tables",
		numFonts, len(buf), len(order))
	return buf, nil
}
