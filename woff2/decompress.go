package woff2

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/npillmayer/webfont/sfnt"
)

// maxPlausibleCompressionRatio caps how much larger than the container the
// declared decompressed size may be. Real fonts compress by a single-digit
// factor; a tiny input claiming a multi-gigabyte payload is an amplification
// attack and gets rejected before any allocation.
const maxPlausibleCompressionRatio = 100

// decompress inflates a Brotli stream. It must decompress to exactly
// totalSize bytes, neither fewer nor more.
func decompress(compressed []byte, totalSize uint32) ([]byte, error) {
	br := brotli.NewReader(bytes.NewReader(compressed))
	payload := make([]byte, totalSize)
	if _, err := io.ReadFull(br, payload); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, sfnt.Errorf(sfnt.ErrSizeMismatch,
				"payload decompresses to fewer than the %d bytes the directory declares", totalSize)
		}
		return nil, sfnt.Errorf(sfnt.ErrDecompressionFailed, "brotli: %v", err)
	}
	// the stream must end exactly at the declared size
	var one [1]byte
	if n, err := br.Read(one[:]); n != 0 || (err != nil && err != io.EOF) {
		if n != 0 {
			return nil, sfnt.Errorf(sfnt.ErrSizeMismatch,
				"payload decompresses past the %d bytes the directory declares", totalSize)
		}
		return nil, sfnt.Errorf(sfnt.ErrDecompressionFailed, "brotli: %v", err)
	}
	return payload, nil
}
