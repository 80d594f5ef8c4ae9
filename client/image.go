package client

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/moffa90/go-mcumgr/connection"
	"github.com/moffa90/go-mcumgr/protocol"
)

// ImageState lists the images stored on the device.
func (c *Client) ImageState(ctx context.Context) ([]protocol.ImageSlotState, error) {
	resp, err := connection.Execute(ctx, c.conn, protocol.ImageState, &protocol.ImageStateRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Images, nil
}

// ImageSetState marks the image with the given hash for a test boot, or
// confirms it when confirm is set. A nil hash with confirm set confirms the
// running image. The updated image list is returned.
func (c *Client) ImageSetState(ctx context.Context, hash []byte, confirm bool) ([]protocol.ImageSlotState, error) {
	resp, err := connection.Execute(ctx, c.conn, protocol.ImageSetState,
		&protocol.ImageSetStateRequest{Hash: hash, Confirm: confirm})
	if err != nil {
		return nil, err
	}
	return resp.Images, nil
}

// ImageUpload uploads a firmware image into the secondary slot of the given
// image number. The first chunk carries the length and the SHA-256 of the
// whole image. With upgrade set the device refuses images that are not newer
// than the running one.
//
// Example:
//
//	err := c.ImageUpload(ctx, 0, data, false, func(cur, total uint64) bool {
//	    fmt.Printf("\r%d/%d", cur, total)
//	    return true
//	})
func (c *Client) ImageUpload(ctx context.Context, image uint32, data []byte, upgrade bool, progress ProgressFunc) error {
	sum := sha256.Sum256(data)
	total := uint64(len(data))

	var mismatch bool
	build := func(off uint64, chunk []byte) *protocol.ImageUploadRequest {
		req := &protocol.ImageUploadRequest{Off: off, Data: chunk}
		if off == 0 {
			req.Image = image
			req.Len = &total
			req.SHA = sum[:]
			req.Upgrade = upgrade
		}
		return req
	}
	next := func(resp *protocol.ImageUploadResponse) uint64 {
		if resp.Match != nil && !*resp.Match {
			mismatch = true
		}
		return resp.Off
	}

	name := fmt.Sprintf("image %d", image)
	if err := upload(ctx, c, protocol.ImageUpload, name, data, build, next, progress); err != nil {
		return err
	}
	if mismatch {
		return &TransferError{Op: "upload", Name: name, Offset: total, Err: ErrImageMismatch}
	}
	return nil
}

// ImageErase erases an image slot. A nil slot erases the default (secondary)
// slot.
func (c *Client) ImageErase(ctx context.Context, slot *uint32) error {
	_, err := connection.Execute(ctx, c.conn, protocol.ImageErase, &protocol.ImageEraseRequest{Slot: slot})
	return err
}
