package mcuboot

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated indicates that the image ended before a required field
	ErrTruncated = errors.New("image truncated")

	// ErrBadMagic indicates that the data is not an MCUboot image
	ErrBadMagic = errors.New("invalid image magic")

	// ErrUnsupportedVersion indicates a legacy image header
	ErrUnsupportedVersion = errors.New("unsupported image header version")

	// ErrInvalidHeader indicates header fields that are inconsistent
	ErrInvalidHeader = errors.New("invalid image header")

	// ErrInvalidTLV indicates a malformed TLV area
	ErrInvalidTLV = errors.New("invalid TLV area")

	// ErrMissingHash indicates that no hash TLV was found
	ErrMissingHash = errors.New("image hash TLV not found")

	// ErrHashMismatch indicates that the stored hash does not match the image
	ErrHashMismatch = errors.New("image hash mismatch")
)

// ParseError reports where in the image parsing failed.
type ParseError struct {
	// Offset is the byte offset of the failing field
	Offset int64

	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("mcuboot image: offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
