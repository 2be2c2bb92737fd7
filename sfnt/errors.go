package sfnt

import (
	"errors"
	"fmt"
)

// Sentinel errors classifying every way a web-font decode can fail. They are
// never returned bare; decoders wrap them in a *DecodeError which carries the
// affected table and a human-readable reason. Callers match with errors.Is.
var (
	ErrMalformedHeader       = errors.New("malformed header")
	ErrTruncatedInput        = errors.New("truncated input")
	ErrDirectoryTooLarge     = errors.New("directory exceeds safety ceiling")
	ErrMalformedVarint       = errors.New("malformed variable-length integer")
	ErrDecompressionFailed   = errors.New("decompression failed")
	ErrSizeMismatch          = errors.New("declared and actual size differ")
	ErrMalformedGlyph        = errors.New("malformed glyph")
	ErrStreamExhausted       = errors.New("transform stream exhausted")
	ErrCrossReferenceMissing = errors.New("cross-referenced table missing")
	ErrInconsistentTotalSize = errors.New("assembled size differs from declared total")
)

// DecodeError is the error type returned by the WOFF/WOFF2 decoders.
// Kind is one of the Err… sentinels above; Table names the font table
// involved (zero if the failure is not tied to one table).
type DecodeError struct {
	Kind   error
	Table  Tag
	Reason string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Table != 0 {
		return fmt.Sprintf("%s: %v: %s", e.Table, e.Kind, e.Reason)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
}

// Unwrap exposes the classifying sentinel to errors.Is.
func (e *DecodeError) Unwrap() error {
	return e.Kind
}

// Errorf builds a classified *DecodeError without a table association.
func Errorf(kind error, format string, args ...any) error {
	return &DecodeError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// TableErrorf builds a classified *DecodeError tied to a font table.
func TableErrorf(kind error, table Tag, format string, args ...any) error {
	return &DecodeError{Kind: kind, Table: table, Reason: fmt.Sprintf(format, args...)}
}
