package mcuboot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
)

// Parse reads an MCUboot image from r and verifies its hash.
// The image body is streamed; only the header and TLV areas are buffered.
//
// Example:
//
//	f, _ := os.Open("app.signed.bin")
//	info, err := mcuboot.Parse(f)
func Parse(r io.Reader) (*ImageInfo, error) {
	p := &parser{r: r}
	return p.parse()
}

// ParseBytes parses an image held in memory.
func ParseBytes(data []byte) (*ImageInfo, error) {
	return Parse(bytes.NewReader(data))
}

// ParseFile parses an image file from disk.
func ParseFile(path string) (*ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

type parser struct {
	r      io.Reader
	offset int64
	hashes map[HashType]hash.Hash
	hashed io.Writer
}

func (p *parser) fail(offset int64, err error) error {
	return &ParseError{Offset: offset, Err: err}
}

// read fills buf completely, feeding it to the hashes when hashed is set.
func (p *parser) read(buf []byte, hashed bool) error {
	start := p.offset
	n, err := io.ReadFull(p.r, buf)
	p.offset += int64(n)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return p.fail(start, fmt.Errorf("%w: need %d bytes, got %d", ErrTruncated, len(buf), n))
		}
		return p.fail(start, err)
	}
	if hashed {
		_, _ = p.hashed.Write(buf)
	}
	return nil
}

// skipHashed streams n bytes through the hashes.
func (p *parser) skipHashed(n int64) error {
	start := p.offset
	copied, err := io.CopyN(p.hashed, p.r, n)
	p.offset += copied
	if err != nil {
		if errors.Is(err, io.EOF) {
			return p.fail(start, fmt.Errorf("%w: need %d bytes, got %d", ErrTruncated, n, copied))
		}
		return p.fail(start, err)
	}
	return nil
}

func (p *parser) parse() (*ImageInfo, error) {
	p.hashes = make(map[HashType]hash.Hash, len(hashTypes))
	writers := make([]io.Writer, 0, len(hashTypes))
	for _, ht := range hashTypes {
		h := ht.new()
		p.hashes[ht] = h
		writers = append(writers, h)
	}
	p.hashed = io.MultiWriter(writers...)

	info, err := p.parseHeader()
	if err != nil {
		return nil, err
	}

	// Header padding and body
	if err := p.skipHashed(int64(info.HeaderSize) - HeaderSize + int64(info.ImageSize)); err != nil {
		return nil, err
	}

	if info.ProtectedTLVSize > 0 {
		tlvs, err := p.parseTLVBlock(TLVProtInfoMagic, true, int(info.ProtectedTLVSize))
		if err != nil {
			return nil, err
		}
		info.TLVs = append(info.TLVs, tlvs...)
	}

	tlvOffset := p.offset
	tlvs, err := p.parseTLVBlock(TLVInfoMagic, false, -1)
	if err != nil {
		return nil, err
	}
	info.TLVs = append(info.TLVs, tlvs...)

	var stored *TLV
	for i := range tlvs {
		if HashType(tlvs[i].Type).Size() > 0 {
			stored = &tlvs[i]
			break
		}
	}
	if stored == nil {
		return nil, p.fail(tlvOffset, ErrMissingHash)
	}

	ht := HashType(stored.Type)
	if len(stored.Value) != ht.Size() {
		return nil, p.fail(tlvOffset, fmt.Errorf("%w: %s TLV has %d bytes, expected %d",
			ErrInvalidTLV, ht, len(stored.Value), ht.Size()))
	}

	computed := p.hashes[ht].Sum(nil)
	if !bytes.Equal(computed, stored.Value) {
		return nil, p.fail(tlvOffset, fmt.Errorf("%w: stored %x, computed %x", ErrHashMismatch, stored.Value, computed))
	}

	info.Hash = stored.Value
	info.HashType = ht
	return info, nil
}

func (p *parser) parseHeader() (*ImageInfo, error) {
	hdr := make([]byte, HeaderSize)
	if err := p.read(hdr, true); err != nil {
		return nil, err
	}

	switch magic := binary.LittleEndian.Uint32(hdr[0:4]); magic {
	case ImageMagic:
	case ImageMagicV1:
		return nil, p.fail(0, fmt.Errorf("%w: magic 0x%08x", ErrUnsupportedVersion, magic))
	default:
		return nil, p.fail(0, fmt.Errorf("%w: 0x%08x", ErrBadMagic, magic))
	}

	info := &ImageInfo{
		LoadAddr:         binary.LittleEndian.Uint32(hdr[4:8]),
		HeaderSize:       binary.LittleEndian.Uint16(hdr[8:10]),
		ProtectedTLVSize: binary.LittleEndian.Uint16(hdr[10:12]),
		ImageSize:        binary.LittleEndian.Uint32(hdr[12:16]),
		Flags:            binary.LittleEndian.Uint32(hdr[16:20]),
		Version: ImageVersion{
			Major:    hdr[20],
			Minor:    hdr[21],
			Revision: binary.LittleEndian.Uint16(hdr[22:24]),
			Build:    binary.LittleEndian.Uint32(hdr[24:28]),
		},
	}

	if info.HeaderSize < HeaderSize {
		return nil, p.fail(8, fmt.Errorf("%w: hdr_size %d is smaller than %d", ErrInvalidHeader, info.HeaderSize, HeaderSize))
	}
	if info.ProtectedTLVSize != 0 && info.ProtectedTLVSize < TLVInfoSize {
		return nil, p.fail(10, fmt.Errorf("%w: protect_tlv_size %d", ErrInvalidHeader, info.ProtectedTLVSize))
	}

	return info, nil
}

// parseTLVBlock reads a TLV block. For the protected block the size is known
// from the image header and must match the block's own total.
func (p *parser) parseTLVBlock(magic uint16, protected bool, expectedTotal int) ([]TLV, error) {
	start := p.offset

	hdr := make([]byte, TLVInfoSize)
	if err := p.read(hdr, protected); err != nil {
		return nil, err
	}

	if got := binary.LittleEndian.Uint16(hdr[0:2]); got != magic {
		return nil, p.fail(start, fmt.Errorf("%w: TLV info magic 0x%04x, expected 0x%04x", ErrInvalidTLV, got, magic))
	}

	total := int(binary.LittleEndian.Uint16(hdr[2:4]))
	if total < TLVInfoSize {
		return nil, p.fail(start, fmt.Errorf("%w: TLV block size %d", ErrInvalidTLV, total))
	}
	if expectedTotal >= 0 && total != expectedTotal {
		return nil, p.fail(start, fmt.Errorf("%w: protected TLV block size %d, header says %d", ErrInvalidTLV, total, expectedTotal))
	}

	body := make([]byte, total-TLVInfoSize)
	if err := p.read(body, protected); err != nil {
		return nil, err
	}

	var tlvs []TLV
	for pos := 0; pos < len(body); {
		if len(body)-pos < TLVEntryHeaderSize {
			return nil, p.fail(start+int64(TLVInfoSize+pos), fmt.Errorf("%w: truncated entry header", ErrInvalidTLV))
		}
		typ := binary.LittleEndian.Uint16(body[pos : pos+2])
		n := int(binary.LittleEndian.Uint16(body[pos+2 : pos+4]))
		pos += TLVEntryHeaderSize

		if len(body)-pos < n {
			return nil, p.fail(start+int64(TLVInfoSize+pos), fmt.Errorf("%w: entry 0x%02x needs %d bytes, %d left", ErrInvalidTLV, typ, n, len(body)-pos))
		}
		tlvs = append(tlvs, TLV{Type: typ, Value: body[pos : pos+n], Protected: protected})
		pos += n
	}

	return tlvs, nil
}
