package sfnt

// ChecksumAdjustmentMagic is the value the sum of all ULONGs of a font file
// must reach once head.checkSumAdjustment is added in; see the OpenType
// 'head' table specification.
const ChecksumAdjustmentMagic = 0xB1B0AFBA

// checkSumAdjustmentOffset is the byte offset of checkSumAdjustment within
// the 'head' table.
const checkSumAdjustmentOffset = 8

// Checksum computes the standard SFNT table checksum: the sum of the
// big-endian uint32 words of b, with a short tail zero-padded.
func Checksum(b []byte) uint32 {
	var sum uint32
	n := len(b) &^ 3
	for i := 0; i < n; i += 4 {
		sum += u32(b[i:])
	}
	// tail bytes count as a zero-padded final word
	var tail uint32
	for i, shift := n, 24; i < len(b); i, shift = i+1, shift-8 {
		tail |= uint32(b[i]) << shift
	}
	return sum + tail
}
