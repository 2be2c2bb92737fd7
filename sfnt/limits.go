package sfnt

import "math"

// Safety ceilings for counts declared by the input container. A small
// malicious file may claim huge table, font or glyph counts; every loop and
// every count-proportional allocation in the decoders is bounded by one of
// these before the count is trusted.
const (
	MaxTableCount     = 1024  // tables per font; real fonts carry < 64
	MaxFontCount      = 256   // fonts per collection
	MaxGlyphCount     = 65536 // glyph indices are uint16
	MaxComponentCount = 65536 // components per composite glyph
)

// checked arithmetic, to keep offset/length computations from wrapping

// CheckedAddU32 returns a+b, or an ErrSizeMismatch error on uint32 overflow.
func CheckedAddU32(a, b uint32) (uint32, error) {
	if a > math.MaxUint32-b {
		return 0, Errorf(ErrSizeMismatch, "integer overflow: %d + %d", a, b)
	}
	return a + b, nil
}

// CheckedMulU32 returns a*b, or an ErrSizeMismatch error on uint32 overflow.
func CheckedMulU32(a, b uint32) (uint32, error) {
	if a != 0 && b > math.MaxUint32/a {
		return 0, Errorf(ErrSizeMismatch, "integer overflow: %d * %d", a, b)
	}
	return a * b, nil
}

// Round4 rounds n up to the next multiple of 4. It does not round in the
// case that rounding up would overflow.
func Round4(n uint32) uint32 {
	if n > math.MaxUint32-3 {
		return n
	}
	return (n + 3) &^ 3
}
