package client

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is returned when a progress callback stops a transfer
	ErrCancelled = errors.New("transfer cancelled")

	// ErrStalled is returned when the device stops advancing the transfer offset
	ErrStalled = errors.New("transfer stalled")

	// ErrImageMismatch is returned when the device reports that the uploaded
	// image does not match the SHA-256 sent with the first chunk
	ErrImageMismatch = errors.New("uploaded image does not match its checksum")
)

// TransferError reports a failed upload or download and where it stopped.
type TransferError struct {
	// Op is "upload" or "download"
	Op string

	// Name is the file name, or "image N" for image uploads
	Name string

	// Offset is the offset of the failing chunk
	Offset uint64

	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s at offset %d: %v", e.Op, e.Name, e.Offset, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
