package client

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/moffa90/go-mcumgr/connection"
	"github.com/moffa90/go-mcumgr/protocol"
)

// ProgressFunc receives transfer progress after every acknowledged chunk.
// Returning false cancels the transfer with ErrCancelled.
type ProgressFunc func(current, total uint64) bool

// transferSession is the per-call transfer state.
type transferSession struct {
	total     uint64
	offset    uint64
	chunkSize int
	stalls    int
}

// advance records the device-reported offset and reports whether the device
// stopped making progress.
func (s *transferSession) advance(next uint64) error {
	if next <= s.offset && !(next == s.total && s.offset == s.total) {
		s.stalls++
		if s.stalls >= MaxStalls {
			return fmt.Errorf("%w: device reported offset %d %d times in a row", ErrStalled, next, s.stalls)
		}
	} else {
		s.stalls = 0
	}
	s.offset = next
	return nil
}

// bstrHeaderLen returns the size of a CBOR byte string header for n bytes.
func bstrHeaderLen(n int) int {
	switch {
	case n < 24:
		return 1
	case n <= 0xff:
		return 2
	case n <= 0xffff:
		return 3
	default:
		return 5
	}
}

// chunkCapacity returns how many data bytes fit in avail bytes once the data
// byte string header is accounted for.
func chunkCapacity(avail int) int {
	best := 0
	for _, f := range []struct{ header, max int }{
		{1, 23},
		{2, 0xff},
		{3, 0xffff},
		{5, math.MaxUint32},
	} {
		n := avail - f.header
		if n > f.max {
			n = f.max
		}
		if n > best {
			best = n
		}
	}
	return best
}

// chunkSize computes how much data fits in one request frame. The request is
// encoded with an empty data field to measure the fixed overhead.
func chunkSize[Req, Resp any](cmd protocol.Command[Req, Resp], maxFrame int, empty *Req) (int, error) {
	payload, err := cmd.EncodeRequest(empty)
	if err != nil {
		return 0, err
	}

	// The empty byte string contributes its own one-byte header.
	overhead := protocol.HeaderSize + len(payload) - 1
	size := chunkCapacity(maxFrame - overhead)
	if size <= 0 {
		return 0, fmt.Errorf("frame size %d too small for %s request overhead of %d bytes", maxFrame, cmd.Name, overhead)
	}
	return size, nil
}

// upload drives a chunked upload. build creates the request for a chunk at a
// given offset; next extracts the device-reported offset from a response.
// The device-reported offset always decides where the next chunk starts.
func upload[Req, Resp any](
	ctx context.Context,
	c *Client,
	cmd protocol.Command[Req, Resp],
	name string,
	data []byte,
	build func(off uint64, chunk []byte) *Req,
	next func(*Resp) uint64,
	progress ProgressFunc,
) error {
	s := &transferSession{total: uint64(len(data))}
	maxFrame := c.maxFrameSize(ctx)

	fail := func(err error) error {
		return &TransferError{Op: "upload", Name: name, Offset: s.offset, Err: err}
	}

	c.config.Logger.Debug("starting upload",
		"name", name,
		"size", s.total,
		"frame_size", maxFrame,
	)

	for {
		size, err := chunkSize(cmd, maxFrame, build(s.offset, []byte{}))
		if err != nil {
			return fail(err)
		}
		if size != s.chunkSize {
			c.config.Logger.Debug("chunk size", "name", name, "offset", s.offset, "size", size)
		}
		s.chunkSize = size

		end := s.offset + uint64(size)
		if end > s.total {
			end = s.total
		}

		resp, err := connection.Execute(ctx, c.conn, cmd, build(s.offset, data[s.offset:end]))
		if err != nil {
			return fail(err)
		}

		off := next(resp)
		if off > s.total {
			return fail(fmt.Errorf("device reported offset %d beyond length %d", off, s.total))
		}
		if off != end {
			c.config.Logger.Debug("device requested offset",
				"name", name,
				"sent_end", end,
				"offset", off,
			)
		}
		if err := s.advance(off); err != nil {
			return fail(err)
		}

		if progress != nil && !progress(s.offset, s.total) {
			return fail(ErrCancelled)
		}

		if s.offset == s.total {
			break
		}
	}

	c.config.Logger.Info("upload complete", "name", name, "size", s.total)
	return nil
}

// download reads a file chunk by chunk. The first response carries the total
// length; every response carries the offset its data belongs at.
func download(ctx context.Context, c *Client, name string, progress ProgressFunc) ([]byte, error) {
	s := &transferSession{}
	var (
		buf   []byte
		known bool
	)

	fail := func(err error) error {
		return &TransferError{Op: "download", Name: name, Offset: uint64(len(buf)), Err: err}
	}

	for {
		resp, err := connection.Execute(ctx, c.conn, protocol.FSFileDownload,
			&protocol.FileDownloadRequest{Off: uint64(len(buf)), Name: name})
		if err != nil {
			return nil, fail(err)
		}

		if resp.Off == 0 {
			if resp.Len == nil {
				return nil, fail(errors.New("first response is missing the file length"))
			}
			s.total = *resp.Len
			known = true
			if buf == nil {
				buf = make([]byte, 0, s.total)
			}
		}
		if !known {
			return nil, fail(fmt.Errorf("device answered offset %d before reporting the file length", resp.Off))
		}

		if resp.Off > uint64(len(buf)) {
			return nil, fail(fmt.Errorf("device skipped ahead to offset %d", resp.Off))
		}
		buf = buf[:resp.Off]

		if len(resp.Data) == 0 && uint64(len(buf)) < s.total {
			return nil, fail(errors.New("device returned no data before end of file"))
		}
		buf = append(buf, resp.Data...)
		if uint64(len(buf)) > s.total {
			return nil, fail(fmt.Errorf("device returned %d bytes, file length is %d", len(buf), s.total))
		}

		s.chunkSize = len(resp.Data)
		if err := s.advance(uint64(len(buf))); err != nil {
			return nil, fail(err)
		}

		if progress != nil && !progress(s.offset, s.total) {
			return nil, fail(ErrCancelled)
		}

		if s.offset == s.total {
			break
		}
	}

	c.config.Logger.Info("download complete", "name", name, "size", s.total)
	return buf, nil
}
