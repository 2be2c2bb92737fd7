package woff2

import (
	"github.com/npillmayer/webfont/sfnt"
)

// Reconstruction of the glyf and loca tables from the WOFF2 glyph transform.
// The transform replaces both tables with one block: a short header, seven
// length-prefixed sub-streams (contour counts, point counts, point flags,
// glyph data, composite data, bounding boxes, instructions) and an optional
// bitmap marking simple glyphs with the OVERLAP_SIMPLE flag set. loca is not
// stored at all; its offsets fall out of re-encoding the glyphs.

// optionFlags bits of the transformed glyf header
const flagOverlapSimpleBitmap = 0x0001

// glyf point flag bits
const (
	glyfOnCurve     = 1 << 0
	glyfXShort      = 1 << 1
	glyfYShort      = 1 << 2
	glyfRepeat      = 1 << 3
	glyfThisXIsSame = 1 << 4
	glyfThisYIsSame = 1 << 5
	glyfOverlap     = 1 << 6
)

// composite glyph component flag bits
const (
	flagArg1And2AreWords   = 1 << 0
	flagWeHaveAScale       = 1 << 3
	flagMoreComponents     = 1 << 5
	flagWeHaveXAndYScale   = 1 << 6
	flagWeHaveATwoByTwo    = 1 << 7
	flagWeHaveInstructions = 1 << 8
)

const (
	compositeGlyphMarker   = 0xFFFF
	glyfHeaderSize         = 10 // numberOfContours + bbox
	endPtsOfContoursOffset = glyfHeaderSize
)

// point is one decoded outline point, in absolute font units.
type point struct {
	x, y    int32
	onCurve bool
}

// glyfInfo carries everything the glyph transform yields: the rebuilt glyf
// and loca tables plus the per-glyph xMin values the hmtx transform needs.
type glyfInfo struct {
	numGlyphs   uint16
	indexFormat uint16
	xMins       []int16
	glyf        []byte
	loca        []byte
}

func withSign(flag int32, baseval int32) int32 {
	if flag&1 != 0 {
		return baseval
	}
	return -baseval
}

// tripletDecode decodes len(flags) points from the triplet-encoded
// coordinate stream in triplets. It returns the points and the number of
// coordinate bytes consumed.
func tripletDecode(flags, triplets []byte) ([]point, int, error) {
	if len(flags) > len(triplets) {
		return nil, 0, sfnt.TableErrorf(sfnt.ErrStreamExhausted, sfnt.TagGlyf,
			"fewer coordinate bytes than point flags")
	}
	points := make([]point, 0, len(flags))
	var x, y int32
	pos := 0
	for _, flagByte := range flags {
		onCurve := flagByte>>7 == 0
		flag := int32(flagByte & 0x7F)
		var nDataBytes int
		switch {
		case flag < 84:
			nDataBytes = 1
		case flag < 120:
			nDataBytes = 2
		case flag < 124:
			nDataBytes = 3
		default:
			nDataBytes = 4
		}
		if pos+nDataBytes > len(triplets) {
			return nil, 0, sfnt.TableErrorf(sfnt.ErrStreamExhausted, sfnt.TagGlyf,
				"coordinate stream ends mid-triplet")
		}
		var dx, dy int32
		switch {
		case flag < 10:
			dx = 0
			dy = withSign(flag, (flag&14)<<7+int32(triplets[pos]))
		case flag < 20:
			dx = withSign(flag, ((flag-10)&14)<<7+int32(triplets[pos]))
			dy = 0
		case flag < 84:
			b0 := flag - 20
			b1 := int32(triplets[pos])
			dx = withSign(flag, 1+(b0&0x30)+b1>>4)
			dy = withSign(flag>>1, 1+(b0&0x0C)<<2+b1&0x0F)
		case flag < 120:
			b0 := flag - 84
			dx = withSign(flag, 1+(b0/12)<<8+int32(triplets[pos]))
			dy = withSign(flag>>1, 1+(b0%12>>2)<<8+int32(triplets[pos+1]))
		case flag < 124:
			b2 := int32(triplets[pos+1])
			dx = withSign(flag, int32(triplets[pos])<<4+b2>>4)
			dy = withSign(flag>>1, (b2&0x0F)<<8+int32(triplets[pos+2]))
		default:
			dx = withSign(flag, int32(triplets[pos])<<8+int32(triplets[pos+1]))
			dy = withSign(flag>>1, int32(triplets[pos+2])<<8+int32(triplets[pos+3]))
		}
		pos += nDataBytes
		// deltas stay well below 2^16, so plain addition cannot overflow
		// int32 within the 2^27 point ceiling enforced by the caller
		x += dx
		y += dy
		points = append(points, point{x: x, y: y, onCurve: onCurve})
	}
	return points, pos, nil
}

// storePoints re-encodes the point data of a simple glyph in the standard
// glyf format: flag bytes with run-length repeats, then the x deltas, then
// the y deltas. dst must point at a complete simple glyph buffer whose
// header, endpoint array and instructions are already in place; it returns
// the final glyph size.
func storePoints(points []point, nContours int, instructionLength int, overlap bool, dst []byte) (int, error) {
	flagOffset := endPtsOfContoursOffset + 2*nContours + 2 + instructionLength
	lastFlag := -1
	repeatCount := 0
	var lastX, lastY int32
	xBytes, yBytes := 0, 0

	for i, p := range points {
		flag := 0
		if p.onCurve {
			flag |= glyfOnCurve
		}
		if overlap && i == 0 {
			flag |= glyfOverlap
		}
		dx := p.x - lastX
		dy := p.y - lastY
		if dx == 0 {
			flag |= glyfThisXIsSame
		} else if dx > -256 && dx < 256 {
			flag |= glyfXShort
			if dx > 0 {
				flag |= glyfThisXIsSame
			}
			xBytes++
		} else {
			xBytes += 2
		}
		if dy == 0 {
			flag |= glyfThisYIsSame
		} else if dy > -256 && dy < 256 {
			flag |= glyfYShort
			if dy > 0 {
				flag |= glyfThisYIsSame
			}
			yBytes++
		} else {
			yBytes += 2
		}

		if flag == lastFlag && repeatCount != 255 {
			dst[flagOffset-1] |= glyfRepeat
			repeatCount++
		} else {
			if repeatCount != 0 {
				if flagOffset >= len(dst) {
					return 0, storePointsOverrun()
				}
				dst[flagOffset] = byte(repeatCount)
				flagOffset++
			}
			if flagOffset >= len(dst) {
				return 0, storePointsOverrun()
			}
			dst[flagOffset] = byte(flag)
			flagOffset++
			repeatCount = 0
		}
		lastX, lastY = p.x, p.y
		lastFlag = flag
	}
	if repeatCount != 0 {
		if flagOffset >= len(dst) {
			return 0, storePointsOverrun()
		}
		dst[flagOffset] = byte(repeatCount)
		flagOffset++
	}
	if flagOffset+xBytes+yBytes > len(dst) {
		return 0, storePointsOverrun()
	}

	xOffset := flagOffset
	yOffset := flagOffset + xBytes
	lastX, lastY = 0, 0
	for _, p := range points {
		if dx := p.x - lastX; dx != 0 {
			if dx > -256 && dx < 256 {
				if dx < 0 {
					dst[xOffset] = byte(-dx)
				} else {
					dst[xOffset] = byte(dx)
				}
				xOffset++
			} else {
				sfnt.PutU16(dst[xOffset:], uint16(dx))
				xOffset += 2
			}
		}
		lastX = p.x
		if dy := p.y - lastY; dy != 0 {
			if dy > -256 && dy < 256 {
				if dy < 0 {
					dst[yOffset] = byte(-dy)
				} else {
					dst[yOffset] = byte(dy)
				}
				yOffset++
			} else {
				sfnt.PutU16(dst[yOffset:], uint16(dy))
				yOffset += 2
			}
		}
		lastY = p.y
	}
	return yOffset, nil
}

func storePointsOverrun() error {
	return sfnt.TableErrorf(sfnt.ErrMalformedGlyph, sfnt.TagGlyf,
		"re-encoded point data exceeds computed glyph size")
}

// computeBbox derives the bounding box from the decoded points and stores it
// at the bbox position of a glyf record. Fonts may omit the bbox of a simple
// glyph only if it equals the derived one, so deriving is always correct here.
func computeBbox(points []point, dst []byte) {
	var xMin, yMin, xMax, yMax int32
	if len(points) > 0 {
		xMin, xMax = points[0].x, points[0].x
		yMin, yMax = points[0].y, points[0].y
	}
	for _, p := range points {
		xMin, xMax = min(xMin, p.x), max(xMax, p.x)
		yMin, yMax = min(yMin, p.y), max(yMax, p.y)
	}
	sfnt.PutU16(dst[2:], uint16(xMin))
	sfnt.PutU16(dst[4:], uint16(yMin))
	sfnt.PutU16(dst[6:], uint16(xMax))
	sfnt.PutU16(dst[8:], uint16(yMax))
}

// scanComposite walks the component records at the start of b and returns
// their total size, whether any component carries instructions, and the
// referenced component glyph indices.
func scanComposite(b []byte) (size int, haveInstructions bool, components []uint16, err error) {
	flags := uint16(flagMoreComponents)
	for flags&flagMoreComponents != 0 {
		if len(components) >= sfnt.MaxComponentCount {
			return 0, false, nil, sfnt.TableErrorf(sfnt.ErrMalformedGlyph, sfnt.TagGlyf,
				"composite glyph exceeds %d components", sfnt.MaxComponentCount)
		}
		if size+4 > len(b) {
			return 0, false, nil, sfnt.TableErrorf(sfnt.ErrStreamExhausted, sfnt.TagGlyf,
				"composite stream ends mid-component")
		}
		flags = sfnt.U16(b[size:])
		components = append(components, sfnt.U16(b[size+2:]))
		haveInstructions = haveInstructions || flags&flagWeHaveInstructions != 0
		argSize := 4 // flags + glyph index
		if flags&flagArg1And2AreWords != 0 {
			argSize += 4
		} else {
			argSize += 2
		}
		switch {
		case flags&flagWeHaveAScale != 0:
			argSize += 2
		case flags&flagWeHaveXAndYScale != 0:
			argSize += 4
		case flags&flagWeHaveATwoByTwo != 0:
			argSize += 8
		}
		if size+argSize > len(b) {
			return 0, false, nil, sfnt.TableErrorf(sfnt.ErrStreamExhausted, sfnt.TagGlyf,
				"composite stream ends mid-component")
		}
		size += argSize
	}
	return size, haveInstructions, components, nil
}

// checkComponentCycles rejects glyphs whose composite references form a
// cycle, including self-references. A renderer following such references
// would recurse forever; the reconstruction refuses to emit them instead of
// passing the problem downstream.
func checkComponentCycles(components map[uint16][]uint16, numGlyphs uint16) error {
	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // finished
	)
	color := make(map[uint16]byte, len(components))
	for start := range components {
		if color[start] != white {
			continue
		}
		// iterative DFS, adversarial component graphs may be deep
		type frame struct {
			glyph uint16
			next  int
		}
		stack := []frame{{glyph: start}}
		color[start] = gray
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := components[top.glyph]
			if top.next == len(children) {
				color[top.glyph] = black
				stack = stack[:len(stack)-1]
				continue
			}
			child := children[top.next]
			top.next++
			if child >= numGlyphs {
				return sfnt.TableErrorf(sfnt.ErrMalformedGlyph, sfnt.TagGlyf,
					"glyph %d references component %d of %d glyphs", top.glyph, child, numGlyphs)
			}
			switch color[child] {
			case gray:
				return sfnt.TableErrorf(sfnt.ErrMalformedGlyph, sfnt.TagGlyf,
					"composite reference cycle through glyphs %d and %d", top.glyph, child)
			case white:
				color[child] = gray
				stack = append(stack, frame{glyph: child})
			}
		}
	}
	return nil
}

// storeLoca encodes the loca offsets in the given index format. Short format
// stores offset/2, so every offset must be even and below 2^17; the 4-byte
// glyph padding guarantees evenness for offsets we produced ourselves.
func storeLoca(values []uint32, indexFormat uint16) ([]byte, error) {
	if indexFormat != 0 {
		out := make([]byte, 4*len(values))
		for i, v := range values {
			sfnt.PutU32(out[4*i:], v)
		}
		return out, nil
	}
	out := make([]byte, 2*len(values))
	for i, v := range values {
		if v&1 != 0 || v>>1 > 0xFFFF {
			return nil, sfnt.TableErrorf(sfnt.ErrMalformedGlyph, sfnt.TagLoca,
				"offset %d not representable in short loca format", v)
		}
		sfnt.PutU16(out[2*i:], uint16(v>>1))
	}
	return out, nil
}

// reconstructGlyf decodes the transformed glyf table in data and rebuilds
// the glyf and loca pair. locaOrigLength is the origLength the directory
// declares for loca; it must match the glyph count and index format the
// transform header declares.
func reconstructGlyf(data []byte, locaOrigLength uint32) (*glyfInfo, error) {
	const numSubStreams = 7
	hdr := sfnt.NewReader(data, sfnt.ErrStreamExhausted)
	if _, err := hdr.U16(); err != nil { // reserved
		return nil, err
	}
	optionFlags, err := hdr.U16()
	if err != nil {
		return nil, err
	}
	numGlyphs, err := hdr.U16()
	if err != nil {
		return nil, err
	}
	indexFormat, err := hdr.U16()
	if err != nil {
		return nil, err
	}
	offsetSize := uint32(2)
	if indexFormat != 0 {
		offsetSize = 4
	}
	if locaOrigLength != offsetSize*(uint32(numGlyphs)+1) {
		return nil, sfnt.TableErrorf(sfnt.ErrSizeMismatch, sfnt.TagLoca,
			"declared length %d does not fit %d glyphs with index format %d",
			locaOrigLength, numGlyphs, indexFormat)
	}

	var streams [numSubStreams]*sfnt.Reader
	offset := (2 + numSubStreams) * 4
	for i := range streams {
		size, err := hdr.U32()
		if err != nil {
			return nil, err
		}
		if uint64(offset)+uint64(size) > uint64(len(data)) {
			return nil, sfnt.TableErrorf(sfnt.ErrStreamExhausted, sfnt.TagGlyf,
				"sub-stream %d of size %d exceeds transform data", i, size)
		}
		streams[i] = sfnt.NewReader(data[offset:offset+int(size)], sfnt.ErrStreamExhausted)
		offset += int(size)
	}
	nContourStream := streams[0]
	nPointsStream := streams[1]
	flagStream := streams[2]
	glyphStream := streams[3]
	compositeStream := streams[4]
	bboxStream := streams[5]
	instructionStream := streams[6]

	var overlapBitmap []byte
	if optionFlags&flagOverlapSimpleBitmap != 0 {
		n := (int(numGlyphs) + 7) >> 3
		if offset+n > len(data) {
			return nil, sfnt.TableErrorf(sfnt.ErrStreamExhausted, sfnt.TagGlyf,
				"overlap bitmap exceeds transform data")
		}
		overlapBitmap = data[offset : offset+n]
	}

	bboxBitmap := bboxStream.Rest()
	bitmapLength := ((int(numGlyphs) + 31) >> 5) << 2
	if err := bboxStream.Skip(bitmapLength); err != nil {
		return nil, err
	}
	bboxBitmap = bboxBitmap[:bitmapLength]

	info := &glyfInfo{
		numGlyphs:   numGlyphs,
		indexFormat: indexFormat,
		xMins:       make([]int16, numGlyphs),
	}
	locaValues := make([]uint32, numGlyphs+1)
	componentRefs := make(map[uint16][]uint16)
	var glyf []byte
	var glyphBuf []byte

	for i := 0; i < int(numGlyphs); i++ {
		locaValues[i] = uint32(len(glyf))
		haveBBox := bboxBitmap[i>>3]&(0x80>>(i&7)) != 0
		nContours, err := nContourStream.U16()
		if err != nil {
			return nil, err
		}
		var glyphSize int

		switch {
		case nContours == compositeGlyphMarker:
			if !haveBBox {
				return nil, sfnt.TableErrorf(sfnt.ErrMalformedGlyph, sfnt.TagGlyf,
					"composite glyph %d lacks an explicit bounding box", i)
			}
			compositeSize, haveInstructions, components, err := scanComposite(compositeStream.Rest())
			if err != nil {
				return nil, err
			}
			componentRefs[uint16(i)] = components
			var instructionSize uint16
			if haveInstructions {
				if instructionSize, err = read255UShort(glyphStream); err != nil {
					return nil, err
				}
			}
			sizeNeeded := 12 + compositeSize + int(instructionSize)
			if len(glyphBuf) < sizeNeeded {
				glyphBuf = make([]byte, sizeNeeded)
			}
			sfnt.PutU16(glyphBuf, nContours)
			bbox, err := bboxStream.Bytes(8)
			if err != nil {
				return nil, err
			}
			copy(glyphBuf[2:], bbox)
			compositeBytes, err := compositeStream.Bytes(compositeSize)
			if err != nil {
				return nil, err
			}
			copy(glyphBuf[glyfHeaderSize:], compositeBytes)
			glyphSize = glyfHeaderSize + compositeSize
			if haveInstructions {
				sfnt.PutU16(glyphBuf[glyphSize:], instructionSize)
				glyphSize += 2
				instructions, err := instructionStream.Bytes(int(instructionSize))
				if err != nil {
					return nil, err
				}
				copy(glyphBuf[glyphSize:], instructions)
				glyphSize += int(instructionSize)
			}

		case nContours > 0:
			nPointsPerContour := make([]uint16, nContours)
			totalPoints := 0
			for c := range nPointsPerContour {
				n, err := read255UShort(nPointsStream)
				if err != nil {
					return nil, err
				}
				nPointsPerContour[c] = n
				totalPoints += int(n)
			}
			if totalPoints >= 1<<27 {
				return nil, sfnt.TableErrorf(sfnt.ErrMalformedGlyph, sfnt.TagGlyf,
					"glyph %d declares %d points", i, totalPoints)
			}
			if flagStream.Remaining() < totalPoints {
				return nil, sfnt.TableErrorf(sfnt.ErrStreamExhausted, sfnt.TagGlyf,
					"flag stream too short for glyph %d", i)
			}
			points, consumed, err := tripletDecode(flagStream.Rest()[:totalPoints], glyphStream.Rest())
			if err != nil {
				return nil, err
			}
			if err := flagStream.Skip(totalPoints); err != nil {
				return nil, err
			}
			if err := glyphStream.Skip(consumed); err != nil {
				return nil, err
			}
			instructionSize, err := read255UShort(glyphStream)
			if err != nil {
				return nil, err
			}
			sizeNeeded := 12 + 2*int(nContours) + 5*totalPoints + int(instructionSize)
			if len(glyphBuf) < sizeNeeded {
				glyphBuf = make([]byte, sizeNeeded)
			}
			sfnt.PutU16(glyphBuf, nContours)
			if haveBBox {
				bbox, err := bboxStream.Bytes(8)
				if err != nil {
					return nil, err
				}
				copy(glyphBuf[2:], bbox)
			} else {
				computeBbox(points, glyphBuf)
			}
			glyphSize = endPtsOfContoursOffset
			endPoint := -1
			for _, n := range nPointsPerContour {
				endPoint += int(n)
				if endPoint >= 65536 {
					return nil, sfnt.TableErrorf(sfnt.ErrMalformedGlyph, sfnt.TagGlyf,
						"glyph %d has more than 65535 points", i)
				}
				sfnt.PutU16(glyphBuf[glyphSize:], uint16(endPoint))
				glyphSize += 2
			}
			sfnt.PutU16(glyphBuf[glyphSize:], instructionSize)
			glyphSize += 2
			instructions, err := instructionStream.Bytes(int(instructionSize))
			if err != nil {
				return nil, err
			}
			copy(glyphBuf[glyphSize:], instructions)
			overlap := overlapBitmap != nil && overlapBitmap[i>>3]&(0x80>>(i&7)) != 0
			glyphSize, err = storePoints(points, int(nContours), int(instructionSize), overlap, glyphBuf[:sizeNeeded])
			if err != nil {
				return nil, err
			}

		default: // nContours == 0, empty glyph
			if haveBBox {
				return nil, sfnt.TableErrorf(sfnt.ErrMalformedGlyph, sfnt.TagGlyf,
					"empty glyph %d carries a bounding box", i)
			}
		}

		glyf = append(glyf, glyphBuf[:glyphSize]...)
		if pad := int(sfnt.Round4(uint32(len(glyf)))) - len(glyf); pad > 0 {
			glyf = append(glyf, make([]byte, pad)...)
		}
		// xMin feeds the hmtx reconstruction; for composites it is the
		// explicit bbox xMin
		if nContours != 0 {
			info.xMins[i] = int16(sfnt.U16(glyphBuf[2:]))
		}
	}

	if err := checkComponentCycles(componentRefs, numGlyphs); err != nil {
		return nil, err
	}

	locaValues[numGlyphs] = uint32(len(glyf))
	loca, err := storeLoca(locaValues, indexFormat)
	if err != nil {
		return nil, err
	}
	info.glyf = glyf
	info.loca = loca
	tracer().Debugf("reconstructed glyf with %d glyphs, %d bytes", numGlyphs, len(glyf))
	return info, nil
}
