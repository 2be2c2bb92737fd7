/*
Package woff2 decodes WOFF2 web-font containers back into SFNT
(TrueType/OpenType) binaries.

WOFF2 is not merely a compressed wrapper: the container drops table
offsets, may null out table lengths, concatenates all tables into a single
Brotli stream, and re-encodes the glyf and loca tables in a dedicated
transform format. Decoding therefore means reconstruction. The package
parses the container header and transformed table directory, inflates the
Brotli payload, re-derives glyph outlines and left side bearings from the
transform sub-streams, rebuilds loca from glyph sizes, and assembles either
a single font or a TTC collection with correct directory ordering,
per-table checksums and a patched head.checkSumAdjustment.

The main entry points are Decode, which returns the reconstructed SFNT
stream (single font or collection, matching the input), and DecodeFonts,
which always returns one single-font binary per collection entry.

All decoding is defensive. Counts declared by the input are capped by the
ceilings in the sibling sfnt package before any allocation, arithmetic on
offsets is overflow-checked, and failures come back as *sfnt.DecodeError
values classified by sentinel.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package woff2

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'font.woff2'
func tracer() tracing.Trace {
	return tracing.Select("font.woff2")
}
