/*
Package woff1 decodes WOFF (version 1) web-font containers back into SFNT
(TrueType/OpenType) binaries.

WOFF1 is a far simpler format than its successor: it keeps the table
directory intact, including the original per-table checksums, and merely
zlib-compresses each table on its own. Decoding restores the offset table,
rewrites the directory with recomputed offsets, inflates each table and
re-establishes 4-byte alignment. Table bytes and directory checksums pass
through untouched, so a well-formed round trip reproduces the source font.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package woff1

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'font.woff1'
func tracer() tracing.Trace {
	return tracing.Select("font.woff1")
}
