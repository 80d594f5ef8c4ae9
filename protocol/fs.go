package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// File management group (group 8) payloads.

// FileUploadRequest carries one chunk of a file upload.
// Len is only sent with the first chunk (Off == 0).
type FileUploadRequest struct {
	Off  uint64  `cbor:"off"`
	Data []byte  `cbor:"data"`
	Name string  `cbor:"name"`
	Len  *uint64 `cbor:"len,omitempty"`
}

// FileUploadResponse reports the next offset the device expects.
type FileUploadResponse struct {
	Off uint64 `cbor:"off"`
}

// FileDownloadRequest asks for file content starting at Off.
type FileDownloadRequest struct {
	Off  uint64 `cbor:"off"`
	Name string `cbor:"name"`
}

// FileDownloadResponse carries a chunk of file content.
// Len holds the total file length and is only present when Off == 0.
type FileDownloadResponse struct {
	Off  uint64  `cbor:"off"`
	Data []byte  `cbor:"data"`
	Len  *uint64 `cbor:"len,omitempty"`
}

// FileStatusRequest queries the size of a file.
type FileStatusRequest struct {
	Name string `cbor:"name"`
}

// FileStatusResponse carries the file length in bytes.
type FileStatusResponse struct {
	Len uint64 `cbor:"len"`
}

// FileChecksumRequest asks the device to hash or checksum a file region.
// An empty Type selects the device default; a zero Len means "to the end".
type FileChecksumRequest struct {
	Name string `cbor:"name"`
	Type string `cbor:"type,omitempty"`
	Off  uint64 `cbor:"off,omitempty"`
	Len  uint64 `cbor:"len,omitempty"`
}

// FileChecksumResponse carries the computed hash or checksum.
type FileChecksumResponse struct {
	Type   string         `cbor:"type"`
	Off    uint64         `cbor:"off,omitempty"`
	Len    uint64         `cbor:"len"`
	Output ChecksumOutput `cbor:"output"`
}

// ChecksumOutput is either a byte string (hash algorithms such as sha256)
// or an unsigned integer (checksum algorithms such as crc32).
type ChecksumOutput struct {
	Hash       []byte
	Checksum   uint64
	IsChecksum bool
}

// MarshalCBOR encodes the output in its wire form.
func (o ChecksumOutput) MarshalCBOR() ([]byte, error) {
	if o.IsChecksum {
		return encMode.Marshal(o.Checksum)
	}
	return encMode.Marshal(o.Hash)
}

// UnmarshalCBOR accepts a byte string or an unsigned integer.
func (o *ChecksumOutput) UnmarshalCBOR(data []byte) error {
	var v any
	if err := decMode.Unmarshal(data, &v); err != nil {
		return err
	}

	switch out := v.(type) {
	case []byte:
		*o = ChecksumOutput{Hash: out}
	case uint64:
		*o = ChecksumOutput{Checksum: out, IsChecksum: true}
	default:
		return fmt.Errorf("unexpected checksum output type %T", v)
	}
	return nil
}

// Bytes returns the output as bytes. Numerical checksums are rendered
// big-endian in 4 bytes, or 8 bytes if the value does not fit.
func (o ChecksumOutput) Bytes() []byte {
	if !o.IsChecksum {
		return o.Hash
	}
	if o.Checksum <= math.MaxUint32 {
		return binary.BigEndian.AppendUint32(nil, uint32(o.Checksum))
	}
	return binary.BigEndian.AppendUint64(nil, o.Checksum)
}

// ChecksumFormat describes how an algorithm reports its output.
type ChecksumFormat uint8

const (
	// ChecksumFormatNumerical outputs an unsigned integer
	ChecksumFormatNumerical ChecksumFormat = 0

	// ChecksumFormatByteArray outputs a byte string
	ChecksumFormatByteArray ChecksumFormat = 1
)

func (f ChecksumFormat) String() string {
	switch f {
	case ChecksumFormatNumerical:
		return "numerical"
	case ChecksumFormatByteArray:
		return "byte array"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// SupportedChecksumTypesRequest has no fields.
type SupportedChecksumTypesRequest struct{}

// ChecksumType describes one supported hash/checksum algorithm.
type ChecksumType struct {
	Format ChecksumFormat `cbor:"format"`
	Size   uint32         `cbor:"size"`
}

// SupportedChecksumTypesResponse maps algorithm names to their properties.
type SupportedChecksumTypesResponse struct {
	Types map[string]ChecksumType `cbor:"types"`
}

// FileCloseRequest closes any file left open by an upload or download.
type FileCloseRequest struct{}
