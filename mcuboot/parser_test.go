package mcuboot_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-mcumgr/internal/mcumgrtest"
	"github.com/moffa90/go-mcumgr/mcuboot"
)

func body(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*31 + 7)
	}
	return b
}

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		name string
		img  mcumgrtest.Image
	}{
		{
			name: "minimal sha256",
			img:  mcumgrtest.Image{Version: mcuboot.ImageVersion{Major: 1, Minor: 2, Revision: 3}, Body: body(100)},
		},
		{
			name: "padded header",
			img: mcumgrtest.Image{
				Version:    mcuboot.ImageVersion{Major: 2},
				Body:       body(1024),
				HeaderSize: 0x200,
				LoadAddr:   0x10000,
			},
		},
		{
			name: "sha384",
			img:  mcumgrtest.Image{Body: body(64), HashType: mcuboot.HashSHA384},
		},
		{
			name: "sha512",
			img:  mcumgrtest.Image{Body: body(64), HashType: mcuboot.HashSHA512},
		},
		{
			name: "protected TLVs",
			img: mcumgrtest.Image{
				Body:      body(300),
				Protected: []mcuboot.TLV{{Type: mcuboot.TLVSecCnt, Value: []byte{1, 0, 0, 0}}},
			},
		},
		{
			name: "signature after hash",
			img: mcumgrtest.Image{
				Body:  body(10),
				Extra: []mcuboot.TLV{{Type: mcuboot.TLVKeyHash, Value: bytes.Repeat([]byte{0x01}, 32)}, {Type: mcuboot.TLVED25519, Value: bytes.Repeat([]byte{0x02}, 64)}},
			},
		},
		{
			name: "empty body",
			img:  mcumgrtest.Image{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := mcumgrtest.BuildImage(tt.img)

			info, err := mcuboot.ParseBytes(data)
			require.NoError(t, err)

			ht := tt.img.HashType
			if ht == 0 {
				ht = mcuboot.HashSHA256
			}
			assert.Equal(t, ht, info.HashType)
			assert.Len(t, info.Hash, ht.Size())
			assert.Equal(t, tt.img.Version, info.Version)
			assert.Equal(t, uint32(len(tt.img.Body)), info.ImageSize)
			assert.Equal(t, tt.img.LoadAddr, info.LoadAddr)
			assert.Equal(t, len(data), info.TotalSize())
		})
	}
}

func TestParse_HashCoversProtectedTLVs(t *testing.T) {
	img := mcumgrtest.Image{
		Body:      body(50),
		Protected: []mcuboot.TLV{{Type: mcuboot.TLVSecCnt, Value: []byte{1, 0, 0, 0}}},
	}
	data := mcumgrtest.BuildImage(img)

	hashed := len(data) - (mcuboot.TLVInfoSize + mcuboot.TLVEntryHeaderSize + 32)
	info, err := mcuboot.ParseBytes(data)
	require.NoError(t, err)
	assert.Equal(t, mcuboot.Digest(mcuboot.HashSHA256, data[:hashed]), info.Hash)

	require.Len(t, info.TLVs, 2)
	assert.True(t, info.TLVs[0].Protected)
	assert.False(t, info.TLVs[1].Protected)

	// Flip a byte inside the protected block.
	data[hashed-1] ^= 0xFF
	_, err = mcuboot.ParseBytes(data)
	assert.ErrorIs(t, err, mcuboot.ErrHashMismatch)
}

func TestParse_Errors(t *testing.T) {
	valid := mcumgrtest.BuildImage(mcumgrtest.Image{Body: body(64)})

	tests := []struct {
		name    string
		data    func() []byte
		wantErr error
	}{
		{
			name:    "empty input",
			data:    func() []byte { return nil },
			wantErr: mcuboot.ErrTruncated,
		},
		{
			name:    "short header",
			data:    func() []byte { return valid[:20] },
			wantErr: mcuboot.ErrTruncated,
		},
		{
			name:    "truncated body",
			data:    func() []byte { return valid[:40] },
			wantErr: mcuboot.ErrTruncated,
		},
		{
			name:    "missing TLV area",
			data:    func() []byte { return valid[:mcuboot.HeaderSize+64] },
			wantErr: mcuboot.ErrTruncated,
		},
		{
			name: "bad magic",
			data: func() []byte {
				d := bytes.Clone(valid)
				binary.LittleEndian.PutUint32(d, 0x12345678)
				return d
			},
			wantErr: mcuboot.ErrBadMagic,
		},
		{
			name: "legacy magic",
			data: func() []byte {
				return mcumgrtest.BuildImage(mcumgrtest.Image{Body: body(8), Magic: mcuboot.ImageMagicV1})
			},
			wantErr: mcuboot.ErrUnsupportedVersion,
		},
		{
			name: "header size too small",
			data: func() []byte {
				d := bytes.Clone(valid)
				binary.LittleEndian.PutUint16(d[8:], 16)
				return d
			},
			wantErr: mcuboot.ErrInvalidHeader,
		},
		{
			name: "corrupted body",
			data: func() []byte {
				d := bytes.Clone(valid)
				d[mcuboot.HeaderSize+3] ^= 0x01
				return d
			},
			wantErr: mcuboot.ErrHashMismatch,
		},
		{
			name: "no hash TLV",
			data: func() []byte {
				return mcumgrtest.BuildImage(mcumgrtest.Image{
					Body:     body(8),
					OmitHash: true,
					Extra:    []mcuboot.TLV{{Type: mcuboot.TLVKeyHash, Value: []byte{1}}},
				})
			},
			wantErr: mcuboot.ErrMissingHash,
		},
		{
			name: "bad TLV magic",
			data: func() []byte {
				d := bytes.Clone(valid)
				binary.LittleEndian.PutUint16(d[mcuboot.HeaderSize+64:], 0x1234)
				return d
			},
			wantErr: mcuboot.ErrInvalidTLV,
		},
		{
			name: "hash TLV wrong size",
			data: func() []byte {
				return mcumgrtest.BuildImage(mcumgrtest.Image{
					Body:     body(8),
					OmitHash: true,
					Extra:    []mcuboot.TLV{{Type: mcuboot.TLVSHA256, Value: []byte{1, 2, 3}}},
				})
			},
			wantErr: mcuboot.ErrInvalidTLV,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mcuboot.ParseBytes(tt.data())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)

			var pe *mcuboot.ParseError
			assert.True(t, errors.As(err, &pe))
		})
	}
}

// oneByteReader returns data one byte at a time.
type oneByteReader struct {
	data []byte
}

func (r *oneByteReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	p[0] = r.data[0]
	r.data = r.data[1:]
	return 1, nil
}

func TestParse_Streaming(t *testing.T) {
	data := mcumgrtest.BuildImage(mcumgrtest.Image{Body: body(4096), HeaderSize: 0x100})

	want, err := mcuboot.ParseBytes(data)
	require.NoError(t, err)

	got, err := mcuboot.Parse(&oneByteReader{data: data})
	require.NoError(t, err)
	assert.Equal(t, want.Hash, got.Hash)
}

func TestParseFile(t *testing.T) {
	data := mcumgrtest.BuildImage(mcumgrtest.Image{Version: mcuboot.ImageVersion{Major: 3, Minor: 1}, Body: body(256)})

	path := filepath.Join(t.TempDir(), "app.signed.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	info, err := mcuboot.ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "3.1.0", info.Version.String())

	_, err = mcuboot.ParseFile(filepath.Join(t.TempDir(), "missing.bin"))
	assert.Error(t, err)
}

func TestImageVersion_String(t *testing.T) {
	tests := []struct {
		version mcuboot.ImageVersion
		want    string
	}{
		{mcuboot.ImageVersion{}, "0.0.0"},
		{mcuboot.ImageVersion{Major: 1, Minor: 2, Revision: 3}, "1.2.3"},
		{mcuboot.ImageVersion{Major: 1, Minor: 2, Revision: 3, Build: 4}, "1.2.3.4"},
		{mcuboot.ImageVersion{Major: 255, Minor: 255, Revision: 65535, Build: 4294967295}, "255.255.65535.4294967295"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.version.String())
		})
	}
}

func TestHashType(t *testing.T) {
	assert.Equal(t, "SHA384", mcuboot.HashSHA384.String())
	assert.Equal(t, 48, mcuboot.HashSHA384.Size())
	assert.Equal(t, 0, mcuboot.HashType(0x99).Size())
	assert.Nil(t, mcuboot.Digest(mcuboot.HashType(0x99), []byte{1}))
	assert.Equal(t, "SEC_CNT", mcuboot.TLVName(mcuboot.TLVSecCnt))
	assert.Equal(t, "0xa5", mcuboot.TLVName(0xa5))
}
