package mcumgrtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-mcumgr/protocol"
	"github.com/moffa90/go-mcumgr/transport"
)

func request(t *testing.T, cmd protocol.Identity, seq uint8, req any) []byte {
	t.Helper()
	payload, err := protocol.Encode(req)
	require.NoError(t, err)
	frame, err := protocol.EncodeFrame(cmd.Header(protocol.VersionV2, seq), payload)
	require.NoError(t, err)
	return frame
}

func TestDevice_Echo(t *testing.T) {
	dev := NewDevice()

	require.NoError(t, dev.Send(request(t, protocol.OSEcho.Identity, 7, protocol.EchoRequest{D: "hi"})))
	rsp, err := dev.Receive()
	require.NoError(t, err)

	h, payload, err := protocol.DecodeFrame(rsp)
	require.NoError(t, err)
	assert.Equal(t, protocol.OpReadResponse, h.Op)
	assert.Equal(t, uint8(7), h.Sequence)

	echo, err := protocol.OSEcho.DecodeResponse(payload)
	require.NoError(t, err)
	assert.Equal(t, "hi", echo.R)

	_, err = dev.Receive()
	assert.ErrorIs(t, err, transport.ErrTimeout)
}

func TestDevice_HookSilent(t *testing.T) {
	dev := NewDevice()
	dev.Hook = func(Request) any { return Silent{} }

	require.NoError(t, dev.Send(request(t, protocol.OSEcho.Identity, 1, protocol.EchoRequest{D: "x"})))
	_, err := dev.Receive()
	assert.ErrorIs(t, err, transport.ErrTimeout)
	assert.Len(t, dev.RequestsFor(protocol.OSEcho.Identity), 1)
}

func TestDevice_UnknownCommand(t *testing.T) {
	dev := NewDevice()
	id := protocol.Identity{Group: protocol.Group(64), ID: 3, Op: protocol.OpRead}

	require.NoError(t, dev.Send(request(t, id, 1, map[string]any{})))
	rsp, err := dev.Receive()
	require.NoError(t, err)

	_, payload, err := protocol.DecodeFrame(rsp)
	require.NoError(t, err)
	assert.True(t, protocol.IsErrno(protocol.CheckError(payload), protocol.ENOTSUP))
}

func TestDevice_Closed(t *testing.T) {
	dev := NewDevice()
	require.NoError(t, dev.Close())

	assert.ErrorIs(t, dev.Send(nil), transport.ErrClosed)
	_, err := dev.Receive()
	assert.ErrorIs(t, err, transport.ErrClosed)
}
