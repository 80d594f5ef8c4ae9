package client

import (
	"context"

	"github.com/moffa90/go-mcumgr/connection"
	"github.com/moffa90/go-mcumgr/protocol"
)

// FSFileUpload writes data to a file on the device, replacing its content.
func (c *Client) FSFileUpload(ctx context.Context, name string, data []byte, progress ProgressFunc) error {
	total := uint64(len(data))

	build := func(off uint64, chunk []byte) *protocol.FileUploadRequest {
		req := &protocol.FileUploadRequest{Off: off, Data: chunk, Name: name}
		if off == 0 {
			req.Len = &total
		}
		return req
	}
	next := func(resp *protocol.FileUploadResponse) uint64 {
		return resp.Off
	}

	return upload(ctx, c, protocol.FSFileUpload, name, data, build, next, progress)
}

// FSFileDownload reads a whole file from the device.
func (c *Client) FSFileDownload(ctx context.Context, name string, progress ProgressFunc) ([]byte, error) {
	return download(ctx, c, name, progress)
}

// FSFileStatus returns the size of a file in bytes.
func (c *Client) FSFileStatus(ctx context.Context, name string) (uint64, error) {
	resp, err := connection.Execute(ctx, c.conn, protocol.FSFileStatus, &protocol.FileStatusRequest{Name: name})
	if err != nil {
		return 0, err
	}
	return resp.Len, nil
}

// FSFileChecksum computes a hash or checksum of a file region on the device.
// An empty algorithm selects the device default; a zero length means up to
// the end of the file.
func (c *Client) FSFileChecksum(ctx context.Context, name, algorithm string, off, length uint64) (*protocol.FileChecksumResponse, error) {
	return connection.Execute(ctx, c.conn, protocol.FSFileChecksum, &protocol.FileChecksumRequest{
		Name: name,
		Type: algorithm,
		Off:  off,
		Len:  length,
	})
}

// FSSupportedChecksumTypes lists the hash and checksum algorithms the device
// supports. Choosing one is up to the caller.
func (c *Client) FSSupportedChecksumTypes(ctx context.Context) (map[string]protocol.ChecksumType, error) {
	resp, err := connection.Execute(ctx, c.conn, protocol.FSSupportedChecksumTypes, &protocol.SupportedChecksumTypesRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Types, nil
}

// FSFileClose closes any file the device still holds open from an
// interrupted transfer.
func (c *Client) FSFileClose(ctx context.Context) error {
	_, err := connection.Execute(ctx, c.conn, protocol.FSFileClose, &protocol.FileCloseRequest{})
	return err
}
