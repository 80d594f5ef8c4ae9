package client

import (
	"github.com/moffa90/go-mcumgr/logging"
	"github.com/moffa90/go-mcumgr/protocol"
)

// DefaultFrameSize is the frame size limit used for transfers when neither an
// explicit size nor auto sizing is configured.
const DefaultFrameSize = 256

// MaxStalls is how many responses in a row may fail to advance the transfer
// offset before a transfer is aborted.
const MaxStalls = 16

// Config holds the client configuration.
type Config struct {
	// Logger is used for logging operations (optional)
	Logger logging.Logger

	// ProtocolVersion is the SMP version used for requests
	ProtocolVersion protocol.Version

	// MaxFrameSize limits the size of a transfer request frame, SMP header
	// included. Zero selects auto sizing or DefaultFrameSize.
	MaxFrameSize int

	// AutoFrameSize queries the device buffer size before the first transfer
	AutoFrameSize bool
}

func defaultConfig() Config {
	return Config{
		ProtocolVersion: protocol.VersionV2,
	}
}

// Option is a functional option for configuring the Client.
type Option func(*Config)

// WithLogger sets a logger for client operations.
//
// Example:
//
//	c := client.New(t, client.WithLogger(logging.NewZap(z)))
func WithLogger(logger logging.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithProtocolVersion sets the SMP version used for requests.
// Default is protocol.VersionV2.
func WithProtocolVersion(v protocol.Version) Option {
	return func(c *Config) {
		c.ProtocolVersion = v
	}
}

// WithMaxFrameSize sets the maximum request frame size used for transfers.
// It takes precedence over auto sizing.
//
// Example:
//
//	c := client.New(t, client.WithMaxFrameSize(1024))
func WithMaxFrameSize(size int) Option {
	return func(c *Config) {
		if size > protocol.HeaderSize {
			c.MaxFrameSize = size
		}
	}
}

// WithAutoFrameSize enables querying the device SMP buffer size
// (os mcumgr params) to size transfer chunks.
func WithAutoFrameSize(enabled bool) Option {
	return func(c *Config) {
		c.AutoFrameSize = enabled
	}
}
