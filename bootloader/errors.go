package bootloader

import (
	"errors"
	"fmt"
)

var (
	// ErrProgressCallback is returned when the progress callback cancels the update.
	ErrProgressCallback = errors.New("progress callback cancelled the update")

	// ErrUnsupportedBootloader is returned for bootloaders other than MCUboot.
	ErrUnsupportedBootloader = errors.New("unsupported bootloader")

	// ErrBootloaderUnknown is returned when the device does not report its
	// bootloader and no type was given.
	ErrBootloaderUnknown = errors.New("could not detect bootloader")

	// ErrImageNotFound is returned when the uploaded image is not listed by
	// the device afterwards.
	ErrImageNotFound = errors.New("uploaded image not found on device")
)

// Step is one step of a firmware update.
type Step int

const (
	StepParseImage Step = iota
	StepDetectBootloader
	StepUploadImage
	StepVerifyUpload
	StepTestBoot
	StepConfirm
	StepReboot
)

var stepNames = map[Step]string{
	StepParseImage:       "parse image",
	StepDetectBootloader: "detect bootloader",
	StepUploadImage:      "upload image",
	StepVerifyUpload:     "verify upload",
	StepTestBoot:         "test boot",
	StepConfirm:          "confirm",
	StepReboot:           "reboot",
}

var stepLabels = map[Step]string{
	StepParseImage:       "Parsing image",
	StepDetectBootloader: "Detecting bootloader",
	StepUploadImage:      "Uploading image",
	StepVerifyUpload:     "Verifying upload",
	StepTestBoot:         "Marking image for test boot",
	StepConfirm:          "Confirming image",
	StepReboot:           "Rebooting device",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Label returns the description passed to the progress callback.
func (s Step) Label() string {
	if label, ok := stepLabels[s]; ok {
		return label
	}
	return s.String()
}

// UpdateError reports the step at which a firmware update failed.
// Nothing is rolled back; an image that was already uploaded stays in the
// secondary slot.
type UpdateError struct {
	Step Step
	Err  error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("firmware update failed at %s: %v", e.Step, e.Err)
}

func (e *UpdateError) Unwrap() error {
	return e.Err
}

// FailedStep returns the step at which err occurred, if it is an UpdateError.
func FailedStep(err error) (Step, bool) {
	var ue *UpdateError
	if errors.As(err, &ue) {
		return ue.Step, true
	}
	return 0, false
}
