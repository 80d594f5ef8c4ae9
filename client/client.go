package client

import (
	"context"
	"sync"

	"github.com/moffa90/go-mcumgr/connection"
	"github.com/moffa90/go-mcumgr/logging"
	"github.com/moffa90/go-mcumgr/protocol"
	"github.com/moffa90/go-mcumgr/transport"
)

// Client exposes the MCUmgr command groups as methods.
//
// Client is safe for concurrent use; requests are serialised by the
// underlying connection.
type Client struct {
	conn   *connection.Connection
	config Config

	mu        sync.Mutex
	frameSize int
}

// New creates a Client over the given transport.
//
// Example:
//
//	port, err := transport.OpenSerial(transport.SerialConfig{
//	    Port:        "/dev/ttyACM0",
//	    ReadTimeout: 5 * time.Second,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c := client.New(port, client.WithAutoFrameSize(true))
//	defer c.Close()
func New(t transport.Transport, opts ...Option) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Logger = logging.OrNop(cfg.Logger)

	conn := connection.New(t,
		connection.WithLogger(cfg.Logger),
		connection.WithProtocolVersion(cfg.ProtocolVersion),
	)
	return &Client{conn: conn, config: cfg}
}

// NewFromConnection creates a Client sharing an existing connection.
// The connection's protocol version is kept.
func NewFromConnection(conn *connection.Connection, opts ...Option) *Client {
	if conn == nil {
		panic("connection cannot be nil")
	}

	cfg := defaultConfig()
	cfg.Logger = conn.Logger()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Logger = logging.OrNop(cfg.Logger)

	return &Client{conn: conn, config: cfg}
}

// Connection returns the underlying connection.
func (c *Client) Connection() *connection.Connection {
	return c.conn
}

// Close closes the underlying connection and transport.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Raw sends an arbitrary request for any group/ID/direction and returns the
// decoded response map. Device errors are returned as errors.
//
// Example:
//
//	rsp, err := c.Raw(ctx, protocol.Identity{
//	    Name: "stat list", Group: protocol.GroupStat, ID: 1, Op: protocol.OpRead,
//	}, nil)
func (c *Client) Raw(ctx context.Context, id protocol.Identity, req any) (map[string]any, error) {
	if id.Name == "" {
		id.Name = "raw"
	}
	return c.conn.ExecuteRaw(ctx, id, req)
}

// maxFrameSize resolves the frame size limit for transfers.
func (c *Client) maxFrameSize(ctx context.Context) int {
	if c.config.MaxFrameSize > 0 {
		return c.config.MaxFrameSize
	}
	if !c.config.AutoFrameSize {
		return DefaultFrameSize
	}

	c.mu.Lock()
	cached := c.frameSize
	c.mu.Unlock()
	if cached > 0 {
		return cached
	}

	size := DefaultFrameSize
	params, err := c.OSMCUmgrParameters(ctx)
	switch {
	case err != nil:
		c.config.Logger.Debug("buffer size query failed, using default frame size",
			"error", err,
			"frame_size", size,
		)
	case int(params.BufSize) > protocol.HeaderSize:
		size = int(params.BufSize)
	}

	c.mu.Lock()
	c.frameSize = size
	c.mu.Unlock()
	return size
}
