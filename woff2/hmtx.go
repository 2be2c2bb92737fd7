package woff2

import (
	"github.com/npillmayer/webfont/sfnt"
)

// Reconstruction of the hmtx table from its WOFF2 transform. The transform
// drops left side bearings that equal the glyph's xMin, separately for the
// proportional part (the first numHMetrics glyphs) and the monospace tail.

const (
	hmtxLsbElided      = 1 << 0 // proportional lsb array omitted
	hmtxLeftSideElided = 1 << 1 // monospace leftSideBearing array omitted
)

// reconstructHmtx decodes a transformed hmtx table. numHMetrics comes from
// hhea, xMins from the glyph reconstruction; both tables are therefore
// required for the transform to be decodable at all.
func reconstructHmtx(data []byte, numGlyphs, numHMetrics uint16, xMins []int16) ([]byte, error) {
	r := sfnt.NewReader(data, sfnt.ErrStreamExhausted)
	flags, err := r.U8()
	if err != nil {
		return nil, err
	}
	if flags&0xFC != 0 {
		return nil, sfnt.TableErrorf(sfnt.ErrMalformedHeader, sfnt.TagHMtx,
			"reserved transform flag bits set: %#02x", flags)
	}
	hasProportionalLsbs := flags&hmtxLsbElided == 0
	hasMonospaceLsbs := flags&hmtxLeftSideElided == 0
	// a transform that elides nothing carries no benefit and is invalid
	if hasProportionalLsbs && hasMonospaceLsbs {
		return nil, sfnt.TableErrorf(sfnt.ErrMalformedHeader, sfnt.TagHMtx,
			"transformed hmtx elides no side bearings")
	}
	if numHMetrics < 1 {
		return nil, sfnt.TableErrorf(sfnt.ErrMalformedHeader, sfnt.TagHMtx,
			"hhea declares zero hMetrics")
	}
	if numHMetrics > numGlyphs {
		return nil, sfnt.TableErrorf(sfnt.ErrMalformedHeader, sfnt.TagHMtx,
			"%d hMetrics exceed %d glyphs", numHMetrics, numGlyphs)
	}

	advanceWidths := make([]uint16, numHMetrics)
	for i := range advanceWidths {
		if advanceWidths[i], err = r.U16(); err != nil {
			return nil, err
		}
	}
	lsbs := make([]int16, numGlyphs)
	for i := 0; i < int(numHMetrics); i++ {
		if hasProportionalLsbs {
			if lsbs[i], err = r.S16(); err != nil {
				return nil, err
			}
		} else {
			lsbs[i] = xMins[i]
		}
	}
	for i := int(numHMetrics); i < int(numGlyphs); i++ {
		if hasMonospaceLsbs {
			if lsbs[i], err = r.S16(); err != nil {
				return nil, err
			}
		} else {
			lsbs[i] = xMins[i]
		}
	}

	hmtx := make([]byte, 2*int(numGlyphs)+2*int(numHMetrics))
	offset := 0
	for i := 0; i < int(numGlyphs); i++ {
		if i < int(numHMetrics) {
			sfnt.PutU16(hmtx[offset:], advanceWidths[i])
			offset += 2
		}
		sfnt.PutU16(hmtx[offset:], uint16(lsbs[i]))
		offset += 2
	}
	return hmtx, nil
}
