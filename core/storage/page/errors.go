package page

import "errors"

// --- Error Definitions ---

var (
	ErrPositionOverflow   = errors.New("page position exceeds representable file offset")
	ErrNegativePageID     = errors.New("page id must not be negative")
	ErrUnsupportedVariant = errors.New("unsupported page variant")
	ErrCounterOverflow    = errors.New("page counter exceeds 16-bit persisted range")
	ErrContentOverflow    = errors.New("page content exceeds available bytes")
	ErrInvalidFormat      = errors.New("invalid database file format")
	ErrIO                 = errors.New("i/o error")
)
