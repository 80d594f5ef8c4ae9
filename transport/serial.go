package transport

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"
)

// SMP console framing markers.
const (
	markerStart1 = 0x06
	markerStart2 = 0x09
	markerCont1  = 0x04
	markerCont2  = 0x14

	// DefaultLineLength is the maximum number of base64 characters per line,
	// sized so that a line with its marker and newline fits in 127 bytes.
	DefaultLineLength = 124

	// MaxPacketFrameSize is the largest frame whose length, CRC included,
	// fits the 16-bit packet length prefix.
	MaxPacketFrameSize = math.MaxUint16 - 2
)

// Serial implements the SMP console framing on top of a byte stream.
//
// Packet format (before base64):
//
//	[LEN_H][LEN_L][FRAME...][CRC_H][CRC_L]
//
// Where LEN counts FRAME plus the CRC. The base64 text is split into lines;
// the first line starts with 0x06 0x09, continuation lines with 0x04 0x14,
// and every line ends with '\n'. Lines without a marker are console output
// and are skipped.
type Serial struct {
	rw         io.ReadWriter
	reader     *bufio.Reader
	lineLength int
	closed     atomic.Bool

	// reassembly state, kept across Receive calls that time out
	partial []byte
	packet  []byte
	started bool
}

// NewSerial wraps a byte stream. A read that returns (0, nil), as serial
// ports do when their read timeout expires, is reported as ErrTimeout.
// A lineLength of 0 selects DefaultLineLength.
func NewSerial(rw io.ReadWriter, lineLength int) *Serial {
	if lineLength <= 0 {
		lineLength = DefaultLineLength
	}
	// Each line must decode on its own.
	lineLength -= lineLength % 4
	if lineLength < 4 {
		lineLength = 4
	}

	return &Serial{
		rw:         rw,
		reader:     bufio.NewReader(timeoutReader{rw}),
		lineLength: lineLength,
	}
}

// Send encodes and writes one frame.
func (s *Serial) Send(frame []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}

	pkt, err := EncodePacket(frame, s.lineLength)
	if err != nil {
		return err
	}
	if _, err := s.rw.Write(pkt); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

// Receive reads lines until a complete packet has been reassembled.
//
// A timeout keeps the bytes read so far, including a partial line, and the
// next call continues the same packet. Any other error discards them.
func (s *Serial) Receive() ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				s.partial = append(s.partial, line...)
				return nil, err
			}
			if err != io.EOF {
				s.reset()
				return nil, err
			}
		}
		if len(s.partial) > 0 {
			line = append(s.partial, line...)
			s.partial = nil
		}
		if err == io.EOF && len(line) == 0 {
			s.reset()
			return nil, io.ErrUnexpectedEOF
		}
		line = bytes.TrimRight(line, "\r\n")

		switch {
		case len(line) >= 2 && line[0] == markerStart1 && line[1] == markerStart2:
			s.packet = s.packet[:0]
			s.started = true
		case len(line) >= 2 && line[0] == markerCont1 && line[1] == markerCont2:
			if !s.started {
				continue
			}
		default:
			continue
		}

		chunk, err := base64.StdEncoding.DecodeString(string(line[2:]))
		if err != nil {
			s.reset()
			return nil, fmt.Errorf("%w: invalid base64: %v", ErrFraming, err)
		}
		s.packet = append(s.packet, chunk...)

		frame, done, err := DecodePacket(s.packet)
		if err != nil {
			s.reset()
			return nil, err
		}
		if done {
			s.reset()
			return frame, nil
		}
	}
}

func (s *Serial) reset() {
	s.partial = nil
	s.packet = s.packet[:0]
	s.started = false
}

// Close closes the underlying stream if it is an io.Closer.
func (s *Serial) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if c, ok := s.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// EncodePacket builds the console lines for one frame.
// The length prefix is 16 bits wide, so a frame may not exceed
// MaxPacketFrameSize bytes.
func EncodePacket(frame []byte, lineLength int) ([]byte, error) {
	if len(frame) > MaxPacketFrameSize {
		return nil, fmt.Errorf("%w: frame of %d bytes exceeds the %d byte packet limit",
			ErrFraming, len(frame), MaxPacketFrameSize)
	}

	raw := make([]byte, 0, len(frame)+4)
	raw = binary.BigEndian.AppendUint16(raw, uint16(len(frame)+2))
	raw = append(raw, frame...)
	raw = binary.BigEndian.AppendUint16(raw, CRC16(frame))

	text := base64.StdEncoding.EncodeToString(raw)

	var out bytes.Buffer
	for i := 0; i < len(text); i += lineLength {
		end := i + lineLength
		if end > len(text) {
			end = len(text)
		}
		if i == 0 {
			out.Write([]byte{markerStart1, markerStart2})
		} else {
			out.Write([]byte{markerCont1, markerCont2})
		}
		out.WriteString(text[i:end])
		out.WriteByte('\n')
	}
	return out.Bytes(), nil
}

// DecodePacket checks whether packet holds a complete length-prefixed frame
// and returns it once the CRC has been verified.
func DecodePacket(packet []byte) (frame []byte, done bool, err error) {
	if len(packet) < 2 {
		return nil, false, nil
	}

	total := int(binary.BigEndian.Uint16(packet[:2]))
	if total < 2 {
		return nil, false, fmt.Errorf("%w: packet length %d too small", ErrFraming, total)
	}

	body := packet[2:]
	if len(body) < total {
		return nil, false, nil
	}
	if len(body) > total {
		return nil, false, fmt.Errorf("%w: got %d bytes, packet length is %d", ErrFraming, len(body), total)
	}

	frame = body[:total-2]
	expected := binary.BigEndian.Uint16(body[total-2:])
	if actual := CRC16(frame); actual != expected {
		return nil, false, fmt.Errorf("%w: expected 0x%04X, got 0x%04X", ErrChecksum, expected, actual)
	}

	out := make([]byte, len(frame))
	copy(out, frame)
	return out, true, nil
}

type timeoutReader struct {
	r io.Reader
}

func (t timeoutReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n == 0 && err == nil && len(p) > 0 {
		return 0, ErrTimeout
	}
	return n, err
}
