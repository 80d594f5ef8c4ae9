package mcumgrtest

import (
	"encoding/binary"

	"github.com/moffa90/go-mcumgr/mcuboot"
)

// Image describes an MCUboot image to build for tests.
type Image struct {
	Version  mcuboot.ImageVersion
	Body     []byte
	LoadAddr uint32
	Flags    uint32

	// HeaderSize defaults to mcuboot.HeaderSize
	HeaderSize uint16

	// HashType defaults to SHA256
	HashType mcuboot.HashType

	// Magic defaults to mcuboot.ImageMagic
	Magic uint32

	// Protected TLVs are covered by the hash
	Protected []mcuboot.TLV

	// Extra TLVs follow the hash in the unprotected block
	Extra []mcuboot.TLV

	// OmitHash leaves the hash TLV out
	OmitHash bool
}

// BuildImage assembles a valid MCUboot image with a correct hash TLV.
func BuildImage(img Image) []byte {
	if img.HeaderSize == 0 {
		img.HeaderSize = mcuboot.HeaderSize
	}
	if img.HashType == 0 {
		img.HashType = mcuboot.HashSHA256
	}
	if img.Magic == 0 {
		img.Magic = mcuboot.ImageMagic
	}

	var protected []byte
	if len(img.Protected) > 0 {
		protected = tlvBlock(mcuboot.TLVProtInfoMagic, img.Protected)
	}

	out := make([]byte, img.HeaderSize)
	binary.LittleEndian.PutUint32(out[0:4], img.Magic)
	binary.LittleEndian.PutUint32(out[4:8], img.LoadAddr)
	binary.LittleEndian.PutUint16(out[8:10], img.HeaderSize)
	binary.LittleEndian.PutUint16(out[10:12], uint16(len(protected)))
	binary.LittleEndian.PutUint32(out[12:16], uint32(len(img.Body)))
	binary.LittleEndian.PutUint32(out[16:20], img.Flags)
	out[20] = img.Version.Major
	out[21] = img.Version.Minor
	binary.LittleEndian.PutUint16(out[22:24], img.Version.Revision)
	binary.LittleEndian.PutUint32(out[24:28], img.Version.Build)

	out = append(out, img.Body...)
	out = append(out, protected...)

	var tlvs []mcuboot.TLV
	if !img.OmitHash {
		tlvs = append(tlvs, mcuboot.TLV{Type: uint16(img.HashType), Value: mcuboot.Digest(img.HashType, out)})
	}
	tlvs = append(tlvs, img.Extra...)

	return append(out, tlvBlock(mcuboot.TLVInfoMagic, tlvs)...)
}

func tlvBlock(magic uint16, tlvs []mcuboot.TLV) []byte {
	total := mcuboot.TLVInfoSize
	for _, t := range tlvs {
		total += mcuboot.TLVEntryHeaderSize + len(t.Value)
	}

	out := make([]byte, 0, total)
	out = binary.LittleEndian.AppendUint16(out, magic)
	out = binary.LittleEndian.AppendUint16(out, uint16(total))
	for _, t := range tlvs {
		out = binary.LittleEndian.AppendUint16(out, t.Type)
		out = binary.LittleEndian.AppendUint16(out, uint16(len(t.Value)))
		out = append(out, t.Value...)
	}
	return out
}
