package woff2

import (
	"github.com/npillmayer/webfont/sfnt"
)

// Variable-length integer encodings of the WOFF2 container and its glyph
// transform streams (UIntBase128 and 255UInt16).

// readBase128 reads a UIntBase128: 1 to 5 bytes, big-endian base-128, high
// bit flagging continuation. The encoding is canonical, there is exactly one
// valid byte sequence per value. A leading 0x80 byte (redundant zero group)
// and any sequence whose value would exceed 32 bits are rejected.
func readBase128(r *sfnt.Reader) (uint32, error) {
	var accum uint32
	for i := 0; i < 5; i++ {
		b, err := r.U8()
		if err != nil {
			return 0, err
		}
		if i == 0 && b == 0x80 {
			return 0, sfnt.Errorf(sfnt.ErrMalformedVarint, "leading zero byte in UIntBase128")
		}
		if accum&0xFE000000 != 0 {
			return 0, sfnt.Errorf(sfnt.ErrMalformedVarint, "UIntBase128 exceeds 32 bits")
		}
		accum = accum<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return accum, nil
		}
	}
	return 0, sfnt.Errorf(sfnt.ErrMalformedVarint, "UIntBase128 longer than 5 bytes")
}

// 255UInt16 escape codes
const (
	oneMoreByteCode1 = 255
	oneMoreByteCode2 = 254
	wordCode         = 253
	lowestUCode      = 253
)

// read255UShort reads a 255UInt16, the short count encoding used inside the
// glyph transform. Unlike UIntBase128 the encoding is not canonical; any of
// the redundant forms is accepted.
func read255UShort(r *sfnt.Reader) (uint16, error) {
	code, err := r.U8()
	if err != nil {
		return 0, err
	}
	switch code {
	case wordCode:
		return r.U16()
	case oneMoreByteCode1:
		b, err := r.U8()
		return uint16(b) + lowestUCode, err
	case oneMoreByteCode2:
		b, err := r.U8()
		return uint16(b) + lowestUCode*2, err
	default:
		return uint16(code), nil
	}
}
