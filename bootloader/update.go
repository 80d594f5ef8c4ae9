package bootloader

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/moffa90/go-mcumgr/client"
	"github.com/moffa90/go-mcumgr/logging"
	"github.com/moffa90/go-mcumgr/mcuboot"
	"github.com/moffa90/go-mcumgr/protocol"
)

// Updater runs firmware updates over a client.
//
// Updater holds no per-update state and is safe for concurrent use; updates
// on the same client are serialised by its connection.
type Updater struct {
	client *client.Client
	config Config
}

// New creates an Updater for the device behind c.
//
// Example:
//
//	u := bootloader.New(c, bootloader.WithLogger(logger))
//	err := u.FirmwareUpdate(ctx, image, bootloader.Params{}, nil)
func New(c *client.Client, opts ...Option) *Updater {
	if c == nil {
		panic("client cannot be nil")
	}

	cfg := defaultConfig()
	cfg.Logger = c.Connection().Logger()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Logger = logging.OrNop(cfg.Logger)

	return &Updater{client: c, config: cfg}
}

// FirmwareUpdate runs a firmware update with default options.
// See Updater.FirmwareUpdate.
func FirmwareUpdate(ctx context.Context, c *client.Client, image []byte, params Params, progress ProgressCallback) error {
	return New(c).FirmwareUpdate(ctx, image, params, progress)
}

// update is the state of one FirmwareUpdate call.
type update struct {
	*Updater
	params   Params
	progress ProgressCallback
	info     *mcuboot.ImageInfo
	image    []byte
}

type stage struct {
	step Step
	run  func(context.Context) error
}

// FirmwareUpdate performs the complete firmware update sequence:
//  1. Parse and validate the image; nothing is sent for an invalid image
//  2. Detect the bootloader, unless Params.BootloaderType is set
//  3. Upload the image into the secondary slot
//  4. Check that the device lists the uploaded image hash
//  5. Mark the image for a test boot, or confirm it with Params.ForceConfirm
//  6. Reset the device, unless Params.SkipReboot is set
//
// Every failure is returned as *UpdateError naming the failed step. A
// progress callback returning false stops the update with ErrProgressCallback.
//
// Example:
//
//	data, _ := os.ReadFile("zephyr.signed.bin")
//	err := bootloader.FirmwareUpdate(ctx, c, data, bootloader.Params{}, nil)
func (u *Updater) FirmwareUpdate(ctx context.Context, image []byte, params Params, progress ProgressCallback) error {
	up := &update{
		Updater:  u,
		params:   params,
		progress: progress,
		image:    image,
	}

	startTime := time.Now()
	steps := []stage{
		{StepParseImage, up.parseImage},
		{StepDetectBootloader, up.detectBootloader},
		{StepUploadImage, up.uploadImage},
		{StepVerifyUpload, up.verifyUpload},
		{up.activateStep(), up.activateImage},
	}
	if !params.SkipReboot {
		steps = append(steps, stage{StepReboot, up.reboot})
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return up.fail(s.step, err)
		}
		if !up.report(s.step.Label(), nil) {
			return up.fail(s.step, ErrProgressCallback)
		}

		u.config.Logger.Info("firmware update step", "step", s.step.String())
		if err := s.run(ctx); err != nil {
			return up.fail(s.step, err)
		}
	}

	u.config.Logger.Info("firmware update complete",
		"version", up.info.Version.String(),
		"hash", hex.EncodeToString(up.info.Hash),
		"confirmed", params.ForceConfirm,
		"rebooted", !params.SkipReboot,
		"elapsed", time.Since(startTime).String(),
	)
	return nil
}

func (up *update) fail(step Step, err error) error {
	up.config.Logger.Error("firmware update failed", "step", step.String(), "error", err)
	return &UpdateError{Step: step, Err: err}
}

// report calls the progress callback if configured.
func (up *update) report(label string, p *Progress) bool {
	if up.progress == nil {
		return true
	}
	return up.progress(label, p)
}

func (up *update) activateStep() Step {
	if up.params.ForceConfirm {
		return StepConfirm
	}
	return StepTestBoot
}

func (up *update) parseImage(context.Context) error {
	info, err := mcuboot.ParseBytes(up.image)
	if err != nil {
		return err
	}
	up.info = info

	up.config.Logger.Debug("image parsed",
		"version", info.Version.String(),
		"hash_type", info.HashType.String(),
		"hash", hex.EncodeToString(info.Hash),
		"size", len(up.image),
	)
	return nil
}

func (up *update) detectBootloader(ctx context.Context) error {
	bt, err := up.bootloaderType(ctx)
	if err != nil {
		return err
	}

	up.config.Logger.Debug("bootloader", "type", bt.String(), "kind", bt.Kind.String())
	if bt.Kind != KindMCUboot {
		return fmt.Errorf("%w: %s", ErrUnsupportedBootloader, bt)
	}
	return nil
}

func (up *update) bootloaderType(ctx context.Context) (BootloaderType, error) {
	if up.params.BootloaderType != nil {
		return *up.params.BootloaderType, nil
	}

	name, err := up.client.OSBootloaderInfo(ctx)
	if err != nil {
		if protocol.IsDeviceError(err) {
			return BootloaderType{}, fmt.Errorf("%w: %w", ErrBootloaderUnknown, err)
		}
		return BootloaderType{}, err
	}
	if name == "" {
		return BootloaderType{}, ErrBootloaderUnknown
	}
	return ParseBootloaderType(name), nil
}

func (up *update) uploadImage(ctx context.Context) error {
	label := StepUploadImage.Label()
	var refused bool

	err := up.client.ImageUpload(ctx, up.config.Image, up.image, up.config.Upgrade,
		func(current, total uint64) bool {
			if !up.report(label, &Progress{Current: current, Total: total}) {
				refused = true
				return false
			}
			return true
		})
	if refused && errors.Is(err, client.ErrCancelled) {
		return ErrProgressCallback
	}
	return err
}

func (up *update) verifyUpload(ctx context.Context) error {
	images, err := up.client.ImageState(ctx)
	if err != nil {
		return err
	}

	for _, img := range images {
		if bytes.Equal(img.Hash, up.info.Hash) {
			up.config.Logger.Debug("uploaded image found",
				"image", img.Image,
				"slot", img.Slot,
				"version", img.Version,
			)
			return nil
		}
	}
	return fmt.Errorf("%w: hash %s", ErrImageNotFound, hex.EncodeToString(up.info.Hash))
}

func (up *update) activateImage(ctx context.Context) error {
	_, err := up.client.ImageSetState(ctx, up.info.Hash, up.params.ForceConfirm)
	return err
}

func (up *update) reboot(ctx context.Context) error {
	return up.client.OSReset(ctx, false, nil)
}
