package sfnt

// Reading bytes from a font's binary representation.

func u16(b []byte) uint16 {
	_ = b[1] // Bounds check hint to compiler
	return uint16(b[0])<<8 | uint16(b[1])<<0
}

func u32(b []byte) uint32 {
	_ = b[3] // Bounds check hint to compiler
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])<<0
}

// U16 reads a big-endian uint16 at the start of b. b must hold 2 bytes.
func U16(b []byte) uint16 { return u16(b) }

// U32 reads a big-endian uint32 at the start of b. b must hold 4 bytes.
func U32(b []byte) uint32 { return u32(b) }

// PutU16 stores a big-endian uint16 at the start of b. b must hold 2 bytes.
func PutU16(b []byte, n uint16) {
	_ = b[1]
	b[0] = byte(n >> 8)
	b[1] = byte(n)
}

// PutU32 stores a big-endian uint32 at the start of b. b must hold 4 bytes.
func PutU32(b []byte, n uint32) {
	_ = b[3]
	b[0] = byte(n >> 24)
	b[1] = byte(n >> 16)
	b[2] = byte(n >> 8)
	b[3] = byte(n)
}

// PutU16Append appends a big-endian uint16 to b.
func PutU16Append(b []byte, n uint16) []byte {
	return append(b, byte(n>>8), byte(n))
}

// PutU32Append appends a big-endian uint32 to b.
func PutU32Append(b []byte, n uint32) []byte {
	return append(b, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

// Reader is a bounds-checked cursor over a byte segment. Every read that
// would pass the end of the segment returns a *DecodeError wrapping the
// sentinel the Reader was constructed with — ErrTruncatedInput for container
// data, ErrStreamExhausted for transform sub-streams — so call sites never
// need to classify short reads themselves. A Reader never panics on
// adversarial input.
type Reader struct {
	data []byte
	pos  int
	kind error // sentinel for out-of-bounds reads
}

// NewReader returns a Reader over data. kind is the sentinel wrapped into
// errors for reads past the end of data.
func NewReader(data []byte, kind error) *Reader {
	return &Reader{data: data, kind: kind}
}

// Pos returns the current cursor position.
func (r *Reader) Pos() int { return r.pos }

// Len returns the total size of the underlying segment.
func (r *Reader) Len() int { return len(r.data) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

func (r *Reader) short(n int) error {
	return Errorf(r.kind, "need %d bytes at offset %d, have %d", n, r.pos, len(r.data)-r.pos)
}

// U8 reads one byte.
func (r *Reader) U8() (byte, error) {
	if r.pos+1 > len(r.data) {
		return 0, r.short(1)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// U16 reads a big-endian uint16.
func (r *Reader) U16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, r.short(2)
	}
	n := u16(r.data[r.pos:])
	r.pos += 2
	return n, nil
}

// S16 reads a big-endian int16.
func (r *Reader) S16() (int16, error) {
	n, err := r.U16()
	return int16(n), err
}

// U32 reads a big-endian uint32.
func (r *Reader) U32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, r.short(4)
	}
	n := u32(r.data[r.pos:])
	r.pos += 4
	return n, nil
}

// Bytes returns the next n bytes as a sub-slice of the underlying segment
// and advances the cursor. The result aliases the Reader's data and must be
// treated as read-only.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, r.short(n)
	}
	b := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return b, nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 || r.pos+n > len(r.data) {
		return r.short(n)
	}
	r.pos += n
	return nil
}

// Rest returns all unread bytes without advancing the cursor.
func (r *Reader) Rest() []byte {
	return r.data[r.pos:]
}
