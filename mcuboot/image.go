package mcuboot

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
)

// Constants for the MCUboot image format.
const (
	// ImageMagic is the header magic of current MCUboot images
	ImageMagic = 0x96f3b83d

	// ImageMagicV1 is the header magic of legacy images, which are not supported
	ImageMagicV1 = 0x96f3b83c

	// HeaderSize is the size of the fixed image header in bytes
	HeaderSize = 32

	// TLVInfoMagic starts the unprotected TLV block
	TLVInfoMagic = 0x6907

	// TLVProtInfoMagic starts the protected TLV block
	TLVProtInfoMagic = 0x6908

	// TLVInfoSize is the size of a TLV block header
	TLVInfoSize = 4

	// TLVEntryHeaderSize is the size of a TLV entry header (type + len)
	TLVEntryHeaderSize = 4
)

// Image header flags.
const (
	FlagPIC             = 0x00000001
	FlagEncryptedAES128 = 0x00000004
	FlagEncryptedAES256 = 0x00000008
	FlagNonBootable     = 0x00000010
	FlagRAMLoad         = 0x00000020
	FlagROMFixed        = 0x00000100
)

// Well known TLV types.
const (
	TLVKeyHash    = 0x01
	TLVPubKey     = 0x02
	TLVSHA256     = 0x10
	TLVSHA384     = 0x11
	TLVSHA512     = 0x12
	TLVRSA2048PSS = 0x20
	TLVECDSASig   = 0x22
	TLVRSA3072PSS = 0x23
	TLVED25519    = 0x24
	TLVEncRSA2048 = 0x30
	TLVEncKW      = 0x31
	TLVEncEC256   = 0x32
	TLVEncX25519  = 0x33
	TLVDependency = 0x40
	TLVSecCnt     = 0x50
	TLVBootRecord = 0x60
)

var tlvNames = map[uint16]string{
	TLVKeyHash:    "KEYHASH",
	TLVPubKey:     "PUBKEY",
	TLVSHA256:     "SHA256",
	TLVSHA384:     "SHA384",
	TLVSHA512:     "SHA512",
	TLVRSA2048PSS: "RSA2048_PSS",
	TLVECDSASig:   "ECDSA_SIG",
	TLVRSA3072PSS: "RSA3072_PSS",
	TLVED25519:    "ED25519",
	TLVEncRSA2048: "ENC_RSA2048",
	TLVEncKW:      "ENC_KW",
	TLVEncEC256:   "ENC_EC256",
	TLVEncX25519:  "ENC_X25519",
	TLVDependency: "DEPENDENCY",
	TLVSecCnt:     "SEC_CNT",
	TLVBootRecord: "BOOT_RECORD",
}

// TLVName returns the name of a TLV type, or its hex value if unknown.
func TLVName(t uint16) string {
	if name, ok := tlvNames[t]; ok {
		return name
	}
	return fmt.Sprintf("0x%02x", t)
}

// HashType identifies the image hash algorithm by its TLV type.
type HashType uint16

const (
	HashSHA256 HashType = TLVSHA256
	HashSHA384 HashType = TLVSHA384
	HashSHA512 HashType = TLVSHA512
)

func (h HashType) String() string {
	switch h {
	case HashSHA256:
		return "SHA256"
	case HashSHA384:
		return "SHA384"
	case HashSHA512:
		return "SHA512"
	default:
		return fmt.Sprintf("hash(0x%02x)", uint16(h))
	}
}

// Size returns the digest length in bytes, or 0 for unknown types.
func (h HashType) Size() int {
	switch h {
	case HashSHA256:
		return sha256.Size
	case HashSHA384:
		return sha512.Size384
	case HashSHA512:
		return sha512.Size
	default:
		return 0
	}
}

func (h HashType) new() hash.Hash {
	switch h {
	case HashSHA256:
		return sha256.New()
	case HashSHA384:
		return sha512.New384()
	case HashSHA512:
		return sha512.New()
	default:
		return nil
	}
}

var hashTypes = []HashType{HashSHA256, HashSHA384, HashSHA512}

// ImageVersion is the semantic version stored in the image header.
type ImageVersion struct {
	Major    uint8
	Minor    uint8
	Revision uint16
	Build    uint32
}

// String formats the version as "major.minor.revision", with ".build"
// appended when the build number is non-zero.
func (v ImageVersion) String() string {
	if v.Build != 0 {
		return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Revision, v.Build)
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Revision)
}

// TLV is one entry of a TLV block.
type TLV struct {
	Type      uint16
	Value     []byte
	Protected bool
}

// ImageInfo is the result of parsing an MCUboot image.
type ImageInfo struct {
	// Version is the image version from the header
	Version ImageVersion

	// Hash identifies the image; the device reports the same value in its
	// image state
	Hash []byte

	// HashType is the algorithm of Hash
	HashType HashType

	LoadAddr         uint32
	HeaderSize       uint16
	ProtectedTLVSize uint16
	ImageSize        uint32
	Flags            uint32

	// TLVs lists every TLV entry, protected entries first
	TLVs []TLV
}

// TotalSize returns the size of the image including the header and TLV areas.
func (i *ImageInfo) TotalSize() int {
	size := int(i.HeaderSize) + int(i.ImageSize) + int(i.ProtectedTLVSize) + TLVInfoSize
	for _, t := range i.TLVs {
		if !t.Protected {
			size += TLVEntryHeaderSize + len(t.Value)
		}
	}
	return size
}

// Digest computes the hash of data with the given algorithm.
// It returns nil for unknown hash types.
func Digest(ht HashType, data []byte) []byte {
	h := ht.new()
	if h == nil {
		return nil
	}
	h.Write(data)
	return h.Sum(nil)
}
