package bootloader

import (
	"fmt"
	"strings"
)

// BootloaderKind selects the set of commands used to activate an image.
type BootloaderKind int

const (
	// KindMCUboot is the MCUboot bootloader
	KindMCUboot BootloaderKind = iota

	// KindOther is any bootloader this package cannot drive
	KindOther
)

func (k BootloaderKind) String() string {
	switch k {
	case KindMCUboot:
		return "mcuboot"
	case KindOther:
		return "other"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// BootloaderType identifies the bootloader of a device.
type BootloaderType struct {
	Kind BootloaderKind

	// Name is the bootloader name as reported by the device
	Name string
}

// MCUboot is the bootloader type of MCUboot based devices.
var MCUboot = BootloaderType{Kind: KindMCUboot, Name: "MCUboot"}

// Other returns the type of a bootloader only known by name.
func Other(name string) BootloaderType {
	return BootloaderType{Kind: KindOther, Name: name}
}

// ParseBootloaderType maps a bootloader name, as reported by the bootloader
// info command, to its type. Names are matched case-insensitively.
func ParseBootloaderType(name string) BootloaderType {
	if strings.EqualFold(strings.TrimSpace(name), MCUboot.Name) {
		return MCUboot
	}
	return Other(name)
}

func (b BootloaderType) String() string {
	if b.Name != "" {
		return b.Name
	}
	return b.Kind.String()
}

// Params configures a firmware update.
type Params struct {
	// BootloaderType overrides bootloader detection when set
	BootloaderType *BootloaderType

	// SkipReboot leaves the device running after the image is marked;
	// the new image boots on the next externally triggered reset
	SkipReboot bool

	// ForceConfirm confirms the image permanently instead of marking it for
	// a single test boot
	ForceConfirm bool
}
