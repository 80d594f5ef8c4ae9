package connection

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-mcumgr/protocol"
)

// ErrorKind classifies why a command failed.
type ErrorKind int

const (
	// KindTransport means the link failed (send, receive, timeout, cancellation)
	KindTransport ErrorKind = iota

	// KindMalformed means the device answered with bytes that are not a
	// valid response to the request
	KindMalformed

	// KindDevice means the device reported an error code
	KindDevice

	// KindCodec means a payload could not be encoded or decoded
	KindCodec
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindMalformed:
		return "malformed response"
	case KindDevice:
		return "device"
	case KindCodec:
		return "codec"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ExecuteError is returned by every Execute variant.
type ExecuteError struct {
	Kind    ErrorKind
	Command protocol.Identity
	Err     error
}

func (e *ExecuteError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Command.Name, e.Kind, e.Err)
}

func (e *ExecuteError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an ExecuteError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ee *ExecuteError
	return errors.As(err, &ee) && ee.Kind == kind
}

// DeviceError extracts the device error from err, if any.
func DeviceError(err error) (*protocol.DeviceError, bool) {
	var de *protocol.DeviceError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

func classify(id protocol.Identity, err error) error {
	var de *protocol.DeviceError
	if errors.As(err, &de) {
		return &ExecuteError{Kind: KindDevice, Command: id, Err: err}
	}
	return &ExecuteError{Kind: KindCodec, Command: id, Err: err}
}

// MismatchError describes a response that does not belong to the request
// it was matched with.
type MismatchError struct {
	Expected protocol.Header
	Actual   protocol.Header
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("unexpected response: got op=%s group=%d id=%d, expected op=%s group=%d id=%d",
		e.Actual.Op, uint16(e.Actual.Group), e.Actual.ID,
		e.Expected.Op, uint16(e.Expected.Group), e.Expected.ID)
}
