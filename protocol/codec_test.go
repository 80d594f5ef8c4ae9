package protocol

import (
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := cbor.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestEncode_EchoRequest(t *testing.T) {
	got, err := OSEcho.EncodeRequest(&EchoRequest{D: "Hello world!"})
	require.NoError(t, err)

	want := []byte{
		0xA1, 0x61, 0x64, 0x6C,
		0x48, 0x65, 0x6C, 0x6C, 0x6F, 0x20, 0x77, 0x6F, 0x72, 0x6C, 0x64, 0x21,
	}
	assert.Equal(t, want, got)
}

func TestEncode_FieldOrderAndOmission(t *testing.T) {
	tests := []struct {
		name string
		req  any
		want []byte
	}{
		{
			name: "empty request",
			req:  &ImageStateRequest{},
			want: []byte{0xA0},
		},
		{
			name: "confirm without hash",
			req:  &ImageSetStateRequest{Confirm: true},
			want: append(append([]byte{0xA1, 0x67}, "confirm"...), 0xF5),
		},
		{
			name: "reset without options",
			req:  &ResetRequest{},
			want: []byte{0xA0},
		},
		{
			name: "file download keeps zero offset",
			req:  &FileDownloadRequest{Name: "/a"},
			want: []byte{
				0xA2,
				0x63, 'o', 'f', 'f', 0x00,
				0x64, 'n', 'a', 'm', 'e', 0x62, '/', 'a',
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_NilDataIsEmptyByteString(t *testing.T) {
	data, err := Encode(&ImageUploadRequest{})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, cbor.Unmarshal(data, &m))
	assert.Equal(t, []byte{}, m["data"])
	assert.NotContains(t, m, "len")
	assert.NotContains(t, m, "sha")
}

func TestEncode_ImageUploadFirstChunk(t *testing.T) {
	total := uint64(1000)
	req := &ImageUploadRequest{
		Image:   1,
		Len:     &total,
		SHA:     []byte{1, 2, 3},
		Data:    []byte{0xAA},
		Upgrade: true,
	}

	data, err := Encode(req)
	require.NoError(t, err)

	var keys []string
	var m map[string]any
	require.NoError(t, cbor.Unmarshal(data, &m))
	for k := range m {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"image", "len", "off", "sha", "data", "upgrade"}, keys)
	assert.Equal(t, uint64(1000), m["len"])
	assert.Equal(t, uint64(0), m["off"])
}

func TestCheckError(t *testing.T) {
	tests := []struct {
		name        string
		payload     []byte
		wantErr     bool
		wantVersion Version
		wantGroup   Group
		wantCode    int32
	}{
		{
			name:    "empty payload",
			payload: nil,
		},
		{
			name:    "no error fields",
			payload: mustMarshal(t, map[string]any{"r": "hi"}),
		},
		{
			name:    "v1 zero rc",
			payload: mustMarshal(t, map[string]any{"rc": 0}),
		},
		{
			name:    "v2 zero rc",
			payload: mustMarshal(t, map[string]any{"err": map[string]any{"group": 1, "rc": 0}}),
		},
		{
			name:        "v1 error",
			payload:     mustMarshal(t, map[string]any{"rc": 8}),
			wantErr:     true,
			wantVersion: VersionV1,
			wantCode:    8,
		},
		{
			name:        "v2 error",
			payload:     mustMarshal(t, map[string]any{"err": map[string]any{"group": 1, "rc": 3}}),
			wantErr:     true,
			wantVersion: VersionV2,
			wantGroup:   GroupImage,
			wantCode:    3,
		},
		{
			name:        "v1 error alongside other fields",
			payload:     mustMarshal(t, map[string]any{"off": 0, "rc": 5}),
			wantErr:     true,
			wantVersion: VersionV1,
			wantCode:    5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckError(tt.payload)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var de *DeviceError
			require.True(t, errors.As(err, &de), "expected DeviceError, got %v", err)
			assert.Equal(t, tt.wantVersion, de.Version)
			assert.Equal(t, tt.wantGroup, de.Group)
			assert.Equal(t, tt.wantCode, de.Code)
		})
	}
}

func TestCheckError_NotAMap(t *testing.T) {
	err := CheckError([]byte{0x01})

	var ce *CodecError
	require.True(t, errors.As(err, &ce))
	assert.False(t, IsDeviceError(err))
}

func TestDecodeResponse(t *testing.T) {
	payload := mustMarshal(t, map[string]any{"r": "Hello world!", "extra": 1})

	resp, err := OSEcho.DecodeResponse(payload)
	require.NoError(t, err)
	assert.Equal(t, "Hello world!", resp.R)
}

func TestDecodeResponse_DeviceErrorBeforeTypedDecode(t *testing.T) {
	// An error body is not a valid success body; the device error must win.
	payload := mustMarshal(t, map[string]any{"rc": int(ENOTSUP)})

	resp, err := OSBootloaderInfo.DecodeResponse(payload)
	assert.Nil(t, resp)
	assert.True(t, IsErrno(err, ENOTSUP))
}

func TestDecodeResponse_WrongType(t *testing.T) {
	payload := mustMarshal(t, map[string]any{"r": 42})

	_, err := OSEcho.DecodeResponse(payload)

	var ce *CodecError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "decode", ce.Operation)
	assert.Equal(t, "protocol.EchoResponse", ce.Type)
}

func TestDecodeResponse_EmptyPayload(t *testing.T) {
	resp, err := OSReset.DecodeResponse(nil)
	require.NoError(t, err)
	assert.NotNil(t, resp)
}

func TestDeviceError_Messages(t *testing.T) {
	v1 := &DeviceError{Version: VersionV1, Code: int32(EBUSY)}
	assert.Contains(t, v1.Error(), "MGMT_ERR_EBUSY")
	assert.Equal(t, EBUSY, v1.Errno())
	assert.True(t, IsErrno(v1, EBUSY))

	v2 := &DeviceError{Version: VersionV2, Group: GroupFS, Code: 2}
	assert.Contains(t, v2.Error(), "fs")
	assert.False(t, IsErrno(v2, ENOMEM))
}

func TestChecksumOutput(t *testing.T) {
	t.Run("byte string", func(t *testing.T) {
		payload := mustMarshal(t, map[string]any{
			"type":   "sha256",
			"len":    10,
			"output": []byte{0xDE, 0xAD},
		})

		resp, err := FSFileChecksum.DecodeResponse(payload)
		require.NoError(t, err)
		assert.False(t, resp.Output.IsChecksum)
		assert.Equal(t, []byte{0xDE, 0xAD}, resp.Output.Bytes())
	})

	t.Run("numerical", func(t *testing.T) {
		payload := mustMarshal(t, map[string]any{
			"type":   "crc32",
			"len":    10,
			"output": uint32(0x12345678),
		})

		resp, err := FSFileChecksum.DecodeResponse(payload)
		require.NoError(t, err)
		assert.True(t, resp.Output.IsChecksum)
		assert.Equal(t, uint64(0x12345678), resp.Output.Checksum)
		assert.Equal(t, []byte{0x12, 0x34, 0x56, 0x78}, resp.Output.Bytes())
	})

	t.Run("wide numerical", func(t *testing.T) {
		out := ChecksumOutput{Checksum: 0x0102030405, IsChecksum: true}
		assert.Equal(t, []byte{0, 0, 0, 0x01, 0x02, 0x03, 0x04, 0x05}, out.Bytes())
	})

	t.Run("encode", func(t *testing.T) {
		data, err := Encode(ChecksumOutput{Checksum: 1, IsChecksum: true})
		require.NoError(t, err)
		assert.Equal(t, []byte{0x01}, data)
	})

	t.Run("unexpected type", func(t *testing.T) {
		var out ChecksumOutput
		assert.Error(t, out.UnmarshalCBOR(mustMarshal(t, "text")))
	})
}
