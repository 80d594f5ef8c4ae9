// Package connection executes SMP commands over a transport.
//
// A Connection owns a transport and a sequence counter. Each Execute call
// sends one request and waits for the matching response. Calls are
// serialised; a Connection is safe for concurrent use.
//
// Example:
//
//	conn := connection.New(serialTransport)
//	defer conn.Close()
//
//	resp, err := connection.Execute(ctx, conn, protocol.OSEcho,
//	    &protocol.EchoRequest{D: "hello"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(resp.R)
package connection

import (
	"context"
	"io"
	"sync"

	"github.com/moffa90/go-mcumgr/logging"
	"github.com/moffa90/go-mcumgr/protocol"
	"github.com/moffa90/go-mcumgr/transport"
)

// Config holds the connection configuration.
type Config struct {
	// Logger is used for frame level debug logging (optional)
	Logger logging.Logger

	// Version is the SMP version written into request headers
	Version protocol.Version
}

func defaultConfig() Config {
	return Config{
		Version: protocol.VersionV2,
	}
}

// Option is a functional option for configuring a Connection.
type Option func(*Config)

// WithLogger sets a logger for frame level debug output.
func WithLogger(logger logging.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithProtocolVersion sets the SMP version used for requests.
// Responses of any version are accepted.
func WithProtocolVersion(v protocol.Version) Option {
	return func(c *Config) {
		c.Version = v
	}
}

// Connection sends requests and matches responses by sequence number.
type Connection struct {
	mu        sync.Mutex
	transport transport.Transport
	config    Config
	seq       uint8
}

// New creates a Connection over the given transport.
func New(t transport.Transport, opts ...Option) *Connection {
	if t == nil {
		panic("transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Logger = logging.OrNop(cfg.Logger)

	return &Connection{
		transport: t,
		config:    cfg,
	}
}

// Logger returns the configured logger. It is never nil.
func (c *Connection) Logger() logging.Logger {
	return c.config.Logger
}

// Execute sends a request payload for the given command and returns the
// response payload. Device errors are not inspected here; see the generic
// Execute function and ExecuteRaw.
//
// Responses carrying a different sequence number are leftovers from earlier
// requests and are discarded. A response with the right sequence number but
// the wrong op, group or ID is reported as KindMalformed.
func (c *Connection) Execute(ctx context.Context, id protocol.Identity, payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &ExecuteError{Kind: KindTransport, Command: id, Err: err}
	}

	seq := c.seq
	c.seq++

	frame, err := protocol.EncodeFrame(id.Header(c.config.Version, seq), payload)
	if err != nil {
		return nil, &ExecuteError{Kind: KindCodec, Command: id, Err: err}
	}

	c.config.Logger.Debug("sending request",
		"command", id.Name,
		"seq", seq,
		"len", len(payload),
	)

	if err := c.transport.Send(frame); err != nil {
		return nil, &ExecuteError{Kind: KindTransport, Command: id, Err: err}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, &ExecuteError{Kind: KindTransport, Command: id, Err: err}
		}

		raw, err := c.transport.Receive()
		if err != nil {
			return nil, &ExecuteError{Kind: KindTransport, Command: id, Err: err}
		}

		h, rsp, err := protocol.DecodeFrame(raw)
		if err != nil {
			return nil, &ExecuteError{Kind: KindMalformed, Command: id, Err: err}
		}

		if h.Sequence != seq {
			c.config.Logger.Debug("discarding stale response",
				"command", id.Name,
				"expected_seq", seq,
				"seq", h.Sequence,
			)
			continue
		}

		if h.Op != id.Op.Response() || h.Group != id.Group || h.ID != id.ID {
			return nil, &ExecuteError{
				Kind:    KindMalformed,
				Command: id,
				Err: &MismatchError{
					Expected: protocol.Header{Op: id.Op.Response(), Group: id.Group, ID: id.ID},
					Actual:   h,
				},
			}
		}

		c.config.Logger.Debug("received response",
			"command", id.Name,
			"seq", h.Sequence,
			"version", h.Version,
			"len", len(rsp),
		)

		return rsp, nil
	}
}

// Execute runs a typed command. The request and response types are bound by
// the command, so mismatches do not compile.
func Execute[Req, Resp any](ctx context.Context, c *Connection, cmd protocol.Command[Req, Resp], req *Req) (*Resp, error) {
	payload, err := cmd.EncodeRequest(req)
	if err != nil {
		return nil, &ExecuteError{Kind: KindCodec, Command: cmd.Identity, Err: err}
	}

	rsp, err := c.Execute(ctx, cmd.Identity, payload)
	if err != nil {
		return nil, err
	}

	resp, err := cmd.DecodeResponse(rsp)
	if err != nil {
		return nil, classify(cmd.Identity, err)
	}
	return resp, nil
}

// ExecuteRaw sends an arbitrary CBOR-encodable request and returns the
// response as a generic map. Device errors are still detected.
func (c *Connection) ExecuteRaw(ctx context.Context, id protocol.Identity, req any) (map[string]any, error) {
	if req == nil {
		req = map[string]any{}
	}

	payload, err := protocol.Encode(req)
	if err != nil {
		return nil, &ExecuteError{Kind: KindCodec, Command: id, Err: err}
	}

	rsp, err := c.Execute(ctx, id, payload)
	if err != nil {
		return nil, err
	}

	if err := protocol.CheckError(rsp); err != nil {
		return nil, classify(id, err)
	}

	out := map[string]any{}
	if err := protocol.Decode(rsp, &out); err != nil {
		return nil, classify(id, err)
	}
	return out, nil
}

// Close closes the transport if it implements io.Closer.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if closer, ok := c.transport.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
