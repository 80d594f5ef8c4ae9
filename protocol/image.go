package protocol

// Application/software image management group (group 1) payloads.

// ImageStateRequest has no fields.
type ImageStateRequest struct{}

// ImageSlotState describes the image stored in one slot.
type ImageSlotState struct {
	Image     uint32 `cbor:"image,omitempty"`
	Slot      uint32 `cbor:"slot"`
	Version   string `cbor:"version"`
	Hash      []byte `cbor:"hash,omitempty"`
	Bootable  bool   `cbor:"bootable,omitempty"`
	Pending   bool   `cbor:"pending,omitempty"`
	Confirmed bool   `cbor:"confirmed,omitempty"`
	Active    bool   `cbor:"active,omitempty"`
	Permanent bool   `cbor:"permanent,omitempty"`
}

// ImageStateResponse lists the images on the device.
type ImageStateResponse struct {
	Images      []ImageSlotState `cbor:"images"`
	SplitStatus int32            `cbor:"splitStatus,omitempty"`
}

// ImageSetStateRequest marks an image for test boot, or confirms it.
//
// With Confirm unset, the image identified by Hash is marked pending for a
// single test boot. With Confirm set, the image is made permanent; an empty
// Hash confirms the currently running image.
type ImageSetStateRequest struct {
	Hash    []byte `cbor:"hash,omitempty"`
	Confirm bool   `cbor:"confirm,omitempty"`
}

// ImageUploadRequest carries one chunk of an image upload.
// Image, Len, SHA and Upgrade are only sent with the first chunk.
type ImageUploadRequest struct {
	Image   uint32  `cbor:"image,omitempty"`
	Len     *uint64 `cbor:"len,omitempty"`
	Off     uint64  `cbor:"off"`
	SHA     []byte  `cbor:"sha,omitempty"`
	Data    []byte  `cbor:"data"`
	Upgrade bool    `cbor:"upgrade,omitempty"`
}

// ImageUploadResponse reports the next offset the device expects.
type ImageUploadResponse struct {
	Off   uint64 `cbor:"off"`
	Match *bool  `cbor:"match,omitempty"`
}

// ImageEraseRequest erases the given slot (the secondary slot by default).
type ImageEraseRequest struct {
	Slot *uint32 `cbor:"slot,omitempty"`
}
