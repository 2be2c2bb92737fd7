/*
Package sfnt provides the shared building blocks for reconstructing SFNT
(TrueType/OpenType) font binaries from compressed web-font containers.

It is deliberately small: table tags, bounds-checked binary reading, the
standard ULONG checksum, and an assembler that lays out a table set into a
conformant SFNT stream (sorted directory, binary-search header fields,
4-byte table alignment, checksum-adjustment patching). The WOFF2 and WOFF
decoders in the sibling packages build on it; nothing in here knows about
either container format.

Package sfnt also defines the error taxonomy shared by the decoders. All
failures surface as *DecodeError values wrapping one of the Err… sentinels,
so callers can classify with errors.Is without depending on message text.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © Norbert Pillmayer <norbert@pillmayer.com>
*/
package sfnt

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'font.sfnt'
func tracer() tracing.Trace {
	return tracing.Select("font.sfnt")
}
