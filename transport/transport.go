package transport

import "errors"

var (
	// ErrTimeout is returned by Receive when no complete frame arrived in time
	ErrTimeout = errors.New("transport: read timeout")

	// ErrClosed is returned after Close
	ErrClosed = errors.New("transport: closed")

	// ErrChecksum is returned when a received packet fails its CRC check
	ErrChecksum = errors.New("transport: checksum mismatch")

	// ErrFraming is returned when received bytes cannot be reassembled into a packet
	ErrFraming = errors.New("transport: framing error")
)

// Transport moves complete SMP frames (header + CBOR payload) to and from a
// device. Implementations handle any link-level framing.
//
// A Transport is not required to be safe for concurrent use. The connection
// package serialises access.
type Transport interface {
	// Send writes one complete frame.
	Send(frame []byte) error

	// Receive blocks until one complete frame is available, the read
	// times out (ErrTimeout), or the link fails.
	Receive() ([]byte, error)
}
