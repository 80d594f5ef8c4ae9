package bootloader

import "github.com/moffa90/go-mcumgr/logging"

// Config holds the updater configuration.
type Config struct {
	// Logger is used for logging operations (optional)
	Logger logging.Logger

	// Image is the image number to update on multi-image devices
	Image uint32

	// Upgrade makes the device reject images that are not newer than the
	// running one
	Upgrade bool
}

func defaultConfig() Config {
	return Config{}
}

// Option is a functional option for configuring the Updater.
type Option func(*Config)

// WithLogger sets a logger for the update steps. By default the logger of
// the client connection is used.
//
// Example:
//
//	u := bootloader.New(c, bootloader.WithLogger(logging.NewZap(zapLogger)))
func WithLogger(logger logging.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithImage selects the image number on devices with more than one
// updatable image. Default is 0.
//
// Example:
//
//	u := bootloader.New(c, bootloader.WithImage(1))
func WithImage(image uint32) Option {
	return func(c *Config) {
		c.Image = image
	}
}

// WithUpgradeOnly asks the device to refuse downgrades.
func WithUpgradeOnly(upgrade bool) Option {
	return func(c *Config) {
		c.Upgrade = upgrade
	}
}
