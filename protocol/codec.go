package protocol

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

// Struct fields are encoded in declaration order so that request bytes are
// reproducible. Optional fields carry `omitempty` in their cbor tag, which is
// the per-field default predicate: empty string, zero number, false, nil
// slice or map, nil pointer. Optional fields where zero is meaningful are
// pointers. Mandatory byte strings encode nil as an empty string, never null.
func mustEncMode() cbor.EncMode {
	em, err := cbor.EncOptions{
		Sort:          cbor.SortNone,
		IndefLength:   cbor.IndefLengthForbidden,
		ShortestFloat: cbor.ShortestFloat16,
		NilContainers: cbor.NilContainerAsEmpty,
	}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

func mustDecMode() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		DupMapKey:      cbor.DupMapKeyQuiet,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}

// Encode serializes a request payload to CBOR.
func Encode(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, &CodecError{Operation: "encode", Type: typeName(v), Err: err}
	}
	return data, nil
}

// Decode deserializes a CBOR payload into v.
// An empty payload leaves v untouched.
func Decode(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := decMode.Unmarshal(data, v); err != nil {
		return &CodecError{Operation: "decode", Type: typeName(v), Err: err}
	}
	return nil
}

// errV2 is the body of a version 2 error response.
type errV2 struct {
	Group uint16 `cbor:"group"`
	RC    int32  `cbor:"rc"`
}

// errorResponse probes a payload for either error shape.
// Every other key is ignored.
type errorResponse struct {
	RC  *int32 `cbor:"rc"`
	Err *errV2 `cbor:"err"`
}

// CheckError inspects a response payload for a device-reported error.
//
// Returns:
//   - nil when neither rc nor err is present, or the present code is zero
//   - *DeviceError for a non-zero v1 rc or v2 err
//   - *CodecError when the payload is not a decodable CBOR map
//
// The check runs before the typed decode so that a device error is reported
// instead of a failure to decode an error body as a success response.
func CheckError(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}

	var probe errorResponse
	if err := decMode.Unmarshal(payload, &probe); err != nil {
		return &CodecError{Operation: "decode", Type: "error response", Err: err}
	}

	if probe.Err != nil && probe.Err.RC != 0 {
		return &DeviceError{
			Version: VersionV2,
			Group:   Group(probe.Err.Group),
			Code:    probe.Err.RC,
		}
	}

	if probe.RC != nil && *probe.RC != 0 {
		return &DeviceError{
			Version: VersionV1,
			Code:    *probe.RC,
		}
	}

	return nil
}

// DecodeResponse checks a response payload for device errors and decodes it
// into a new value of the response type.
func DecodeResponse[Resp any](payload []byte) (*Resp, error) {
	if err := CheckError(payload); err != nil {
		return nil, err
	}

	resp := new(Resp)
	if err := Decode(payload, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "nil"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}
