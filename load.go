package webfont

import (
	"os"

	xsfnt "golang.org/x/image/font/sfnt"
)

// ScalableFont is a decoded outline font: the reconstructed SFNT bytes plus
// a parsed view of them.
type ScalableFont struct {
	Fontname string
	Filepath string      // file path, empty for in-memory fonts
	Binary   []byte      // reconstructed SFNT data
	SFNT     *xsfnt.Font // parsed view of Binary
}

// LoadFont reads a font file in any supported container format, unpacks it
// and parses the result. Collections are rejected here; use Decode and pick
// a font from the collection instead.
func LoadFont(fontfile string) (*ScalableFont, error) {
	bytez, err := os.ReadFile(fontfile)
	if err != nil {
		return nil, err
	}
	f, err := ParseFont(bytez)
	if err != nil {
		return nil, err
	}
	f.Filepath = fontfile
	return f, nil
}

// ParseFont unpacks and parses font data held in memory.
func ParseFont(data []byte) (*ScalableFont, error) {
	sfntBytes, err := Decode(data)
	if err != nil {
		return nil, err
	}
	f := &ScalableFont{Binary: sfntBytes}
	if f.SFNT, err = xsfnt.Parse(f.Binary); err != nil {
		return nil, err
	}
	if f.Fontname, err = f.SFNT.Name(nil, xsfnt.NameIDFull); err == nil {
		tracer().Debugf("loaded and parsed SFNT %s", f.Fontname)
	}
	return f, nil
}
