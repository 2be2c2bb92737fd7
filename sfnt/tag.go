package sfnt

// Tag is an array of four uint8s (length = 32 bits) used to identify a
// font table, or the flavor of a font container.
type Tag uint32

// MakeTag creates a Tag from 4 bytes, e.g.,
//
//	MakeTag([]byte("glyf"))
//
// If b is shorter or longer, it will be silently extended or cut as appropriate.
func MakeTag(b []byte) Tag {
	if b == nil {
		b = []byte{0, 0, 0, 0}
	} else if len(b) > 4 {
		b = b[:4]
	} else if len(b) < 4 {
		b = append([]byte{0, 0, 0, 0}[:4-len(b)], b...)
	}
	return Tag(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

// T returns a Tag from a (4-letter) string.
// If t is shorter or longer, it will be silently extended or cut as appropriate.
func T(t string) Tag {
	t = (t + "    ")[:4]
	return MakeTag([]byte(t))
}

func (t Tag) String() string {
	bytes := []byte{
		byte(t >> 24 & 0xff),
		byte(t >> 16 & 0xff),
		byte(t >> 8 & 0xff),
		byte(t & 0xff),
	}
	return string(bytes)
}

// Tags of tables the decoders treat specially, plus container flavors.
var (
	TagHead = T("head")
	TagHHea = T("hhea")
	TagHMtx = T("hmtx")
	TagMaxP = T("maxp")
	TagGlyf = T("glyf")
	TagLoca = T("loca")
	TagDSIG = T("DSIG")

	// FlavorTrueType and FlavorCFF are the two sfntVersion values of
	// single-font SFNT streams; FlavorTTC tags a font collection.
	FlavorTrueType = Tag(0x00010000)
	FlavorCFF      = T("OTTO")
	FlavorTTC      = T("ttcf")
)
