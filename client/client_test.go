package client

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-mcumgr/connection"
	"github.com/moffa90/go-mcumgr/internal/mcumgrtest"
	"github.com/moffa90/go-mcumgr/protocol"
)

func newTestClient(t *testing.T, opts ...Option) (*Client, *mcumgrtest.Device) {
	t.Helper()
	dev := mcumgrtest.NewDevice()
	c := New(dev, opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c, dev
}

func TestOSEcho(t *testing.T) {
	tests := []struct {
		name string
		msg  string
	}{
		{"empty", ""},
		{"ascii", "Hello world!"},
		{"non-ascii", "Grüße, 世界 🚀"},
		{"10k non-ascii", strings.Repeat("ü", 10000)},
		{"long mixed", strings.Repeat("aé漢🙂", 2500)},
	}

	c, _ := newTestClient(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.OSEcho(context.Background(), tt.msg)
			require.NoError(t, err)
			assert.Equal(t, tt.msg, got)
		})
	}
}

func TestOSTaskStatistics(t *testing.T) {
	c, _ := newTestClient(t)

	tasks, err := c.OSTaskStatistics(context.Background())
	require.NoError(t, err)
	require.Contains(t, tasks, "main")
	assert.Equal(t, uint64(512), tasks["main"].StackSize)
	assert.Equal(t, int32(15), tasks["idle"].Priority)
}

func TestOSDateTime(t *testing.T) {
	c, dev := newTestClient(t)
	ctx := context.Background()

	want := time.Date(2024, 2, 29, 13, 45, 10, 0, time.UTC)
	require.NoError(t, c.OSSetDateTime(ctx, want))
	assert.Equal(t, "2024-02-29T13:45:10", dev.DateTime)

	got, err := c.OSDateTime(ctx)
	require.NoError(t, err)
	assert.True(t, want.Equal(got), "got %v", got)
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2025-01-01T00:00:00", want: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{in: "2025-01-01T00:00:00.250", want: time.Date(2025, 1, 1, 0, 0, 0, 250e6, time.UTC)},
		{in: "2025-01-01T02:00:00+02:00", want: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{in: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDateTime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestOSReset(t *testing.T) {
	c, dev := newTestClient(t)

	mode := uint8(1)
	require.NoError(t, c.OSReset(context.Background(), true, &mode))
	assert.Equal(t, 1, dev.Resets())

	var req protocol.ResetRequest
	reqs := dev.RequestsFor(protocol.OSReset.Identity)
	require.Len(t, reqs, 1)
	require.NoError(t, reqs[0].Decode(&req))
	assert.True(t, req.Force)
	require.NotNil(t, req.BootMode)
	assert.Equal(t, uint8(1), *req.BootMode)
}

func TestOSInfoQueries(t *testing.T) {
	c, dev := newTestClient(t)
	ctx := context.Background()

	params, err := c.OSMCUmgrParameters(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(512), params.BufSize)
	assert.Equal(t, uint32(4), params.BufCount)

	info, err := c.OSApplicationInfo(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, dev.AppInfo, info)

	name, err := c.OSBootloaderInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "MCUboot", name)

	dev.BootloaderMode = 3
	mode, _, err := c.OSBootloaderMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3), mode)
	assert.Equal(t, "swap without scratch", MCUbootModeName(mode))
	assert.Equal(t, "mode 42", MCUbootModeName(42))

	dev.Bootloader = ""
	_, err = c.OSBootloaderInfo(ctx)
	assert.True(t, protocol.IsErrno(err, protocol.ENOTSUP))
}

func TestImageStateAndErase(t *testing.T) {
	c, dev := newTestClient(t)
	ctx := context.Background()

	images, err := c.ImageState(ctx)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.True(t, images[0].Active)

	require.NoError(t, c.ImageUpload(ctx, 0, []byte("not an mcuboot image"), false, nil))
	images, err = c.ImageState(ctx)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, uint32(1), images[1].Slot)

	images, err = c.ImageSetState(ctx, images[1].Hash, false)
	require.NoError(t, err)
	assert.True(t, images[1].Pending)
	assert.False(t, images[1].Permanent)

	require.NoError(t, c.ImageErase(ctx, nil))
	assert.Len(t, dev.Images, 1)

	active := uint32(0)
	err = c.ImageErase(ctx, &active)
	assert.True(t, protocol.IsErrno(err, protocol.EBADSTATE))

	_, err = c.ImageSetState(ctx, []byte{1, 2, 3}, true)
	assert.True(t, protocol.IsErrno(err, protocol.ENOENT))
}

func TestShellExecute(t *testing.T) {
	c, dev := newTestClient(t)
	ctx := context.Background()

	out, ret, err := c.ShellExecute(ctx, []string{"kernel", "version"})
	require.NoError(t, err)
	assert.Equal(t, "kernel version", out)
	assert.Zero(t, ret)

	dev.Shell = func(argv []string) (string, int32) { return "command not found", -8 }
	out, ret, err = c.ShellExecute(ctx, []string{"nope"})
	require.NoError(t, err)
	assert.Equal(t, "command not found", out)
	assert.Equal(t, int32(-8), ret)

	_, _, err = c.ShellExecute(ctx, nil)
	assert.Error(t, err)
}

func TestRaw(t *testing.T) {
	c, _ := newTestClient(t)

	rsp, err := c.Raw(context.Background(), protocol.Identity{Group: protocol.GroupOS, ID: 0, Op: protocol.OpRead}, map[string]any{"d": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", rsp["r"])

	_, err = c.Raw(context.Background(), protocol.Identity{Group: protocol.GroupPerUser, ID: 9, Op: protocol.OpWrite}, nil)
	assert.True(t, connection.IsKind(err, connection.KindDevice))
}

func TestNewFromConnection(t *testing.T) {
	dev := mcumgrtest.NewDevice()
	conn := connection.New(dev)

	c := NewFromConnection(conn, WithMaxFrameSize(128))
	assert.Same(t, conn, c.Connection())

	got, err := c.OSEcho(context.Background(), "shared")
	require.NoError(t, err)
	assert.Equal(t, "shared", got)
}
