// Package fontcheck sanity-checks reconstructed SFNT binaries by running
// them through an independent font parser.
package fontcheck

import (
	"golang.org/x/image/font/sfnt"
)

// Validate parses a single-font SFNT binary and returns its full font name.
// An error means the reconstruction produced bytes a consumer would reject.
func Validate(data []byte) (string, error) {
	f, err := sfnt.Parse(data)
	if err != nil {
		return "", err
	}
	name, err := f.Name(nil, sfnt.NameIDFull)
	if err != nil {
		// fonts without a usable full-name record are still valid
		return "", nil
	}
	return name, nil
}

// ValidateCollection parses a TTC binary and returns the number of member
// fonts, parsing each member.
func ValidateCollection(data []byte) (int, error) {
	c, err := sfnt.ParseCollection(data)
	if err != nil {
		return 0, err
	}
	for i := 0; i < c.NumFonts(); i++ {
		if _, err := c.Font(i); err != nil {
			return 0, err
		}
	}
	return c.NumFonts(), nil
}
