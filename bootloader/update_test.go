package bootloader

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-mcumgr/client"
	"github.com/moffa90/go-mcumgr/internal/mcumgrtest"
	"github.com/moffa90/go-mcumgr/mcuboot"
	"github.com/moffa90/go-mcumgr/protocol"
)

func newTestUpdater(t *testing.T) (*client.Client, *mcumgrtest.Device) {
	t.Helper()
	dev := mcumgrtest.NewDevice()
	c := client.New(dev)
	t.Cleanup(func() { _ = c.Close() })
	return c, dev
}

func testImage(t *testing.T) ([]byte, *mcuboot.ImageInfo) {
	t.Helper()
	data := mcumgrtest.BuildImage(mcumgrtest.Image{
		Version: mcuboot.ImageVersion{Major: 1, Minor: 2, Revision: 3},
		Body:    bytes.Repeat([]byte{0x5A, 0x01, 0xC3}, 700),
	})
	info, err := mcuboot.ParseBytes(data)
	require.NoError(t, err)
	return data, info
}

func setStateRequests(t *testing.T, dev *mcumgrtest.Device) []protocol.ImageSetStateRequest {
	t.Helper()
	var out []protocol.ImageSetStateRequest
	for _, r := range dev.RequestsFor(protocol.ImageSetState.Identity) {
		var req protocol.ImageSetStateRequest
		require.NoError(t, r.Decode(&req))
		out = append(out, req)
	}
	return out
}

func findSlot(dev *mcumgrtest.Device, hash []byte) (protocol.ImageSlotState, bool) {
	for _, img := range dev.Images {
		if bytes.Equal(img.Hash, hash) {
			return img, true
		}
	}
	return protocol.ImageSlotState{}, false
}

func TestFirmwareUpdate_TestBoot(t *testing.T) {
	c, dev := newTestUpdater(t)
	data, info := testImage(t)

	require.NoError(t, FirmwareUpdate(context.Background(), c, data, Params{}, nil))

	assert.Equal(t, data, dev.UploadedImage(0))
	assert.Equal(t, 1, dev.Resets())

	states := setStateRequests(t, dev)
	require.Len(t, states, 1)
	assert.Equal(t, info.Hash, states[0].Hash)
	assert.False(t, states[0].Confirm)

	slot, ok := findSlot(dev, info.Hash)
	require.True(t, ok)
	assert.Equal(t, uint32(1), slot.Slot)
	assert.Equal(t, "1.2.3", slot.Version)
	assert.True(t, slot.Pending)
	assert.False(t, slot.Permanent)

	// Steps run in order.
	var order []protocol.Identity
	for _, r := range dev.Requests() {
		id, ok := protocol.Lookup(r.Header.Group, r.Header.ID, r.Header.Op)
		require.True(t, ok)
		if len(order) == 0 || order[len(order)-1] != id {
			order = append(order, id)
		}
	}
	assert.Equal(t, []protocol.Identity{
		protocol.OSBootloaderInfo.Identity,
		protocol.ImageUpload.Identity,
		protocol.ImageState.Identity,
		protocol.ImageSetState.Identity,
		protocol.OSReset.Identity,
	}, order)
}

func TestFirmwareUpdate_ForceConfirm(t *testing.T) {
	c, dev := newTestUpdater(t)
	data, info := testImage(t)

	err := FirmwareUpdate(context.Background(), c, data, Params{ForceConfirm: true}, nil)
	require.NoError(t, err)

	states := setStateRequests(t, dev)
	require.NotEmpty(t, states)
	for _, s := range states {
		assert.True(t, s.Confirm, "no test boot request may be sent")
	}

	slot, ok := findSlot(dev, info.Hash)
	require.True(t, ok)
	assert.True(t, slot.Permanent)
	assert.Equal(t, 1, dev.Resets())
}

func TestFirmwareUpdate_SkipReboot(t *testing.T) {
	c, dev := newTestUpdater(t)
	data, _ := testImage(t)

	var labels []string
	err := FirmwareUpdate(context.Background(), c, data, Params{SkipReboot: true},
		func(label string, p *Progress) bool {
			if p == nil {
				labels = append(labels, label)
			}
			return true
		})
	require.NoError(t, err)

	assert.Zero(t, dev.Resets())
	assert.Empty(t, dev.RequestsFor(protocol.OSReset.Identity))
	assert.NotContains(t, labels, StepReboot.Label())
	assert.Len(t, setStateRequests(t, dev), 1)
}

func TestFirmwareUpdate_InvalidImage(t *testing.T) {
	valid, _ := testImage(t)
	badMagic := append([]byte(nil), valid...)
	badMagic[0] ^= 0xFF

	tests := []struct {
		name  string
		image []byte
		want  error
	}{
		{"empty", nil, mcuboot.ErrTruncated},
		{"short header", valid[:mcuboot.HeaderSize-1], mcuboot.ErrTruncated},
		{"bad magic", badMagic, mcuboot.ErrBadMagic},
		{"missing trailer", valid[:len(valid)-10], mcuboot.ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, dev := newTestUpdater(t)

			err := FirmwareUpdate(context.Background(), c, tt.image, Params{}, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			step, ok := FailedStep(err)
			require.True(t, ok)
			assert.Equal(t, StepParseImage, step)

			assert.Empty(t, dev.Requests(), "nothing may be sent for an invalid image")
		})
	}
}

func TestFirmwareUpdate_BootloaderOverride(t *testing.T) {
	c, dev := newTestUpdater(t)
	dev.Bootloader = ""
	data, _ := testImage(t)

	bt := MCUboot
	require.NoError(t, FirmwareUpdate(context.Background(), c, data, Params{BootloaderType: &bt}, nil))

	assert.Empty(t, dev.RequestsFor(protocol.OSBootloaderInfo.Identity))
	assert.Equal(t, data, dev.UploadedImage(0))
}

func TestFirmwareUpdate_BootloaderDetection(t *testing.T) {
	other := Other("SUIT")

	tests := []struct {
		name       string
		bootloader string
		override   *BootloaderType
		want       error
	}{
		{"not reported", "", nil, ErrBootloaderUnknown},
		{"other bootloader", "SUIT", nil, ErrUnsupportedBootloader},
		{"other override", "MCUboot", &other, ErrUnsupportedBootloader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, dev := newTestUpdater(t)
			dev.Bootloader = tt.bootloader
			data, _ := testImage(t)

			err := FirmwareUpdate(context.Background(), c, data, Params{BootloaderType: tt.override}, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var ue *UpdateError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, StepDetectBootloader, ue.Step)

			assert.Empty(t, dev.RequestsFor(protocol.ImageUpload.Identity))
		})
	}
}

func TestFirmwareUpdate_DetectionKeepsDeviceError(t *testing.T) {
	c, dev := newTestUpdater(t)
	dev.Bootloader = ""
	data, _ := testImage(t)

	err := FirmwareUpdate(context.Background(), c, data, Params{}, nil)
	require.Error(t, err)
	assert.True(t, protocol.IsErrno(err, protocol.ENOTSUP))
}

func TestFirmwareUpdate_CancelDuringUpload(t *testing.T) {
	c, dev := newTestUpdater(t)
	data, _ := testImage(t)

	err := FirmwareUpdate(context.Background(), c, data, Params{},
		func(label string, p *Progress) bool {
			return p == nil || p.Current == 0
		})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProgressCallback)
	assert.NotErrorIs(t, err, client.ErrCancelled)

	step, _ := FailedStep(err)
	assert.Equal(t, StepUploadImage, step)

	assert.Len(t, dev.RequestsFor(protocol.ImageUpload.Identity), 1)
	assert.Empty(t, dev.RequestsFor(protocol.ImageSetState.Identity))
	assert.Zero(t, dev.Resets())
}

func TestFirmwareUpdate_CancelBetweenSteps(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		step   Step
	}{
		{"before detection", Params{}, StepDetectBootloader},
		{"before test boot", Params{}, StepTestBoot},
		{"before confirm", Params{ForceConfirm: true}, StepConfirm},
		{"before reboot", Params{}, StepReboot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, dev := newTestUpdater(t)
			data, _ := testImage(t)

			err := FirmwareUpdate(context.Background(), c, data, tt.params,
				func(label string, p *Progress) bool {
					return label != tt.step.Label()
				})
			require.ErrorIs(t, err, ErrProgressCallback)

			step, ok := FailedStep(err)
			require.True(t, ok)
			assert.Equal(t, tt.step, step)
			assert.Zero(t, dev.Resets())
		})
	}
}

func TestFirmwareUpdate_Progress(t *testing.T) {
	c, _ := newTestUpdater(t)
	data, _ := testImage(t)

	var (
		labels []string
		last   Progress
	)
	err := FirmwareUpdate(context.Background(), c, data, Params{},
		func(label string, p *Progress) bool {
			if p == nil {
				labels = append(labels, label)
				return true
			}
			assert.Equal(t, StepUploadImage.Label(), label)
			assert.GreaterOrEqual(t, p.Current, last.Current)
			last = *p
			return true
		})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Parsing image",
		"Detecting bootloader",
		"Uploading image",
		"Verifying upload",
		"Marking image for test boot",
		"Rebooting device",
	}, labels)
	assert.Equal(t, uint64(len(data)), last.Total)
	assert.Equal(t, last.Total, last.Current)
}

func TestFirmwareUpdate_UploadNotListed(t *testing.T) {
	c, dev := newTestUpdater(t)
	data, _ := testImage(t)

	running := dev.Images[0]
	dev.Hook = func(r mcumgrtest.Request) any {
		if r.Is(protocol.ImageState.Identity) {
			return protocol.ImageStateResponse{Images: []protocol.ImageSlotState{running}}
		}
		return nil
	}

	err := FirmwareUpdate(context.Background(), c, data, Params{}, nil)
	require.ErrorIs(t, err, ErrImageNotFound)

	step, _ := FailedStep(err)
	assert.Equal(t, StepVerifyUpload, step)
	assert.Empty(t, dev.RequestsFor(protocol.ImageSetState.Identity))
}

func TestFirmwareUpdate_DeviceErrors(t *testing.T) {
	tests := []struct {
		name string
		id   protocol.Identity
		step Step
	}{
		{"upload", protocol.ImageUpload.Identity, StepUploadImage},
		{"state", protocol.ImageState.Identity, StepVerifyUpload},
		{"set state", protocol.ImageSetState.Identity, StepTestBoot},
		{"reset", protocol.OSReset.Identity, StepReboot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, dev := newTestUpdater(t)
			data, _ := testImage(t)
			dev.Hook = func(r mcumgrtest.Request) any {
				if r.Is(tt.id) {
					return mcumgrtest.ErrorV2(tt.id.Group, 1)
				}
				return nil
			}

			err := FirmwareUpdate(context.Background(), c, data, Params{}, nil)
			require.Error(t, err)
			assert.True(t, protocol.IsDeviceError(err))

			step, _ := FailedStep(err)
			assert.Equal(t, tt.step, step)
		})
	}
}

func TestFirmwareUpdate_ContextCancelled(t *testing.T) {
	c, dev := newTestUpdater(t)
	data, _ := testImage(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := FirmwareUpdate(ctx, c, data, Params{}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dev.Requests())
}

func TestUpdater_Options(t *testing.T) {
	c, dev := newTestUpdater(t)
	data, _ := testImage(t)

	u := New(c, WithImage(1), WithUpgradeOnly(true))
	require.NoError(t, u.FirmwareUpdate(context.Background(), data, Params{SkipReboot: true}, nil))

	assert.Equal(t, data, dev.UploadedImage(1))
	assert.Nil(t, dev.UploadedImage(0))

	first := dev.RequestsFor(protocol.ImageUpload.Identity)[0]
	var req protocol.ImageUploadRequest
	require.NoError(t, first.Decode(&req))
	assert.Equal(t, uint32(1), req.Image)
	assert.True(t, req.Upgrade)
}

func TestNew_NilClientPanics(t *testing.T) {
	assert.Panics(t, func() { New(nil) })
}

func TestUpdateError(t *testing.T) {
	inner := errors.New("boom")
	err := &UpdateError{Step: StepVerifyUpload, Err: inner}

	assert.Equal(t, "firmware update failed at verify upload: boom", err.Error())
	assert.ErrorIs(t, err, inner)

	_, ok := FailedStep(inner)
	assert.False(t, ok)
}
