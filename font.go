/*
Package webfont decodes web-font containers into plain font binaries.

Browsers ship fonts in two container formats: WOFF, which zlib-compresses
each font table on its own, and WOFF2, which re-encodes the whole font into
one Brotli stream and transforms the glyph tables along the way. Everything
else in the toolchain — rasterizers, shapers, font inspectors — wants the
underlying SFNT (TrueType/OpenType) bytes back. This module converts in
that direction only.

The root package is a thin dispatching facade: it sniffs the container
signature and hands off to package woff2 or woff1, or passes plain SFNT
data through untouched. Clients that know their input format can use the
subpackages directly.

# Links

WOFF File Format 1.0: https://www.w3.org/TR/WOFF/

WOFF File Format 2.0: https://www.w3.org/TR/WOFF2/

______________________________________________________________________

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package webfont

import (
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/webfont/sfnt"
	"github.com/npillmayer/webfont/woff1"
	"github.com/npillmayer/webfont/woff2"
)

// tracer writes to trace with key 'font.webfont'
func tracer() tracing.Trace {
	return tracing.Select("font.webfont")
}

// Format identifies the container format of a font file.
type Format int

const (
	FormatUnknown Format = iota
	FormatSFNT           // plain TrueType/OpenType, single font
	FormatTTC            // plain TrueType collection
	FormatWOFF           // WOFF 1.0
	FormatWOFF2          // WOFF 2.0
)

func (f Format) String() string {
	switch f {
	case FormatSFNT:
		return "SFNT"
	case FormatTTC:
		return "TTC"
	case FormatWOFF:
		return "WOFF"
	case FormatWOFF2:
		return "WOFF2"
	}
	return "unknown"
}

// DetectFormat sniffs the container format from the leading magic number.
func DetectFormat(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}
	switch sfnt.Tag(sfnt.U32(data)) {
	case sfnt.Tag(woff2.Signature):
		return FormatWOFF2
	case sfnt.Tag(woff1.Signature):
		return FormatWOFF
	case sfnt.FlavorTrueType, sfnt.FlavorCFF, sfnt.T("true"):
		return FormatSFNT
	case sfnt.FlavorTTC:
		return FormatTTC
	}
	return FormatUnknown
}

// Decode converts font data in any supported container format into SFNT
// bytes. WOFF and WOFF2 containers are unpacked; plain SFNT and TTC data
// passes through unchanged. The result is a single font or a collection,
// matching the input.
func Decode(data []byte) ([]byte, error) {
	format := DetectFormat(data)
	tracer().Debugf("decoding %d bytes of %s font data", len(data), format)
	switch format {
	case FormatWOFF2:
		return woff2.Decode(data)
	case FormatWOFF:
		return woff1.Decode(data)
	case FormatSFNT, FormatTTC:
		return data, nil
	}
	return nil, sfnt.Errorf(sfnt.ErrMalformedHeader, "unrecognized font container signature")
}
