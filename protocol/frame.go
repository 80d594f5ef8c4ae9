package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformedFrame is returned when a byte sequence cannot be split into a
// well-formed SMP header and payload.
var ErrMalformedFrame = errors.New("malformed frame")

// Header is the 8-byte SMP header shared by requests and responses.
type Header struct {
	// Op is the operation (read, write or their responses)
	Op Op

	// Version is the SMP protocol version
	Version Version

	// Flags is reserved and normally zero
	Flags uint8

	// Length is the size of the CBOR payload following the header
	Length uint16

	// Group is the management group
	Group Group

	// Sequence correlates a response with its request
	Sequence uint8

	// ID is the command ID within the group
	ID uint8
}

// Bytes encodes the header.
//
// Layout:
//
//	[RES(3)|VER(2)|OP(3)][FLAGS][LEN_H][LEN_L][GROUP_H][GROUP_L][SEQ][ID]
func (h Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	b[0] = byte(h.Version&0x03)<<3 | byte(h.Op&0x07)
	b[1] = h.Flags
	binary.BigEndian.PutUint16(b[2:4], h.Length)
	binary.BigEndian.PutUint16(b[4:6], uint16(h.Group))
	b[6] = h.Sequence
	b[7] = h.ID
	return b
}

// ParseHeader decodes the first HeaderSize bytes of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header too short: got %d bytes, minimum is %d",
			ErrMalformedFrame, len(b), HeaderSize)
	}

	return Header{
		Op:       Op(b[0] & 0x07),
		Version:  Version((b[0] >> 3) & 0x03),
		Flags:    b[1],
		Length:   binary.BigEndian.Uint16(b[2:4]),
		Group:    Group(binary.BigEndian.Uint16(b[4:6])),
		Sequence: b[6],
		ID:       b[7],
	}, nil
}

// EncodeFrame builds a complete frame from a header and a CBOR payload.
// The header length field is set from the payload size.
func EncodeFrame(h Header, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload length %d exceeds maximum %d bytes", len(payload), MaxPayloadSize)
	}

	h.Length = uint16(len(payload))
	frame := make([]byte, 0, HeaderSize+len(payload))
	frame = append(frame, h.Bytes()...)
	frame = append(frame, payload...)
	return frame, nil
}

// DecodeFrame splits a frame into its header and payload.
// The payload length must match the header length field exactly.
func DecodeFrame(frame []byte) (Header, []byte, error) {
	h, err := ParseHeader(frame)
	if err != nil {
		return Header{}, nil, err
	}

	expected := HeaderSize + int(h.Length)
	if len(frame) != expected {
		return Header{}, nil, fmt.Errorf("%w: frame length mismatch: got %d bytes, expected %d (header=%d + payload=%d)",
			ErrMalformedFrame, len(frame), expected, HeaderSize, h.Length)
	}

	return h, frame[HeaderSize:], nil
}
