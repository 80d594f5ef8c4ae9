package protocol

import (
	"errors"
	"fmt"
)

// DeviceError is a failure reported by the device in a response payload.
//
// Two shapes exist on the wire:
//
//	v1: {"rc": <errno>}
//	v2: {"err": {"group": <group>, "rc": <group specific code>}}
//
// Version records which shape was decoded. Group is only meaningful for v2.
type DeviceError struct {
	// Version is the error shape (VersionV1 or VersionV2)
	Version Version

	// Group owns the code for v2 errors
	Group Group

	// Code is the status code; for v1 it is an Errno
	Code int32
}

func (e *DeviceError) Error() string {
	if e.Version == VersionV2 {
		return fmt.Sprintf("device error: group %s rc %d", e.Group, e.Code)
	}
	return fmt.Sprintf("device error: %s (%d)", Errno(e.Code), e.Code)
}

// Errno returns the code as an MCUmgr status code.
// For v2 errors the code is group specific and the name is only indicative.
func (e *DeviceError) Errno() Errno {
	return Errno(e.Code)
}

// IsDeviceError returns true if err is or wraps a DeviceError.
func IsDeviceError(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}

// IsErrno returns true if err wraps a v1 DeviceError with the given code.
func IsErrno(err error, code Errno) bool {
	var de *DeviceError
	if !errors.As(err, &de) {
		return false
	}
	return de.Version == VersionV1 && Errno(de.Code) == code
}

// CodecError indicates bytes that could not be encoded or decoded as the
// expected CBOR payload. It is a local protocol violation, unlike DeviceError.
type CodecError struct {
	// Operation is "encode" or "decode"
	Operation string

	// Type names the Go type involved
	Type string

	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Operation, e.Type, e.Err)
}

func (e *CodecError) Unwrap() error {
	return e.Err
}
