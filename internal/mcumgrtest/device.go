// Package mcumgrtest provides an in-memory SMP device for tests and examples.
package mcumgrtest

import (
	"bytes"
	"crypto/sha256"
	"hash/crc32"
	"strings"
	"sync"

	"github.com/moffa90/go-mcumgr/mcuboot"
	"github.com/moffa90/go-mcumgr/protocol"
	"github.com/moffa90/go-mcumgr/transport"
)

// Request is a request frame received by the Device.
type Request struct {
	Header  protocol.Header
	Payload []byte
}

// Is reports whether the request is for the given command.
func (r Request) Is(id protocol.Identity) bool {
	return r.Header.Group == id.Group && r.Header.ID == id.ID && r.Header.Op == id.Op
}

// Decode decodes the request payload into v.
func (r Request) Decode(v any) error {
	return protocol.Decode(r.Payload, v)
}

// Hook can replace the device response to a request. Returning nil lets the
// built-in handler answer. Returning Silent drops the request.
type Hook func(req Request) any

// Silent makes the device drop a request without answering.
type Silent struct{}

// ErrorV1 builds a v1 error response body.
func ErrorV1(code protocol.Errno) any {
	return map[string]any{"rc": int32(code)}
}

// ErrorV2 builds a v2 error response body.
func ErrorV2(group protocol.Group, rc int32) any {
	return map[string]any{"err": map[string]any{"group": uint16(group), "rc": rc}}
}

type transfer struct {
	name  string
	image uint32
	total uint64
	sha   []byte
	data  []byte
}

// Device simulates an MCUmgr enabled device. It implements
// transport.Transport; every request is answered synchronously and the
// answer is queued for the next Receive.
//
// Exported fields configure the device and may be changed between requests.
type Device struct {
	mu sync.Mutex

	// Bootloader is the name reported by bootloader info; empty makes the
	// command unsupported
	Bootloader string

	// BootloaderMode is the MCUboot mode reported for the "mode" query
	BootloaderMode int32

	BufSize  uint32
	BufCount uint32

	// DownloadChunkSize is the maximum data size of a file download response
	DownloadChunkSize int

	AppInfo  string
	DateTime string
	Tasks    map[string]protocol.TaskStatistics
	Files    map[string][]byte
	Images   []protocol.ImageSlotState

	// Shell runs shell commands; the default echoes the arguments
	Shell func(argv []string) (string, int32)

	// Hook intercepts requests before the built-in handlers
	Hook Hook

	requests []Request
	queue    [][]byte
	resets   int
	image    *transfer
	file     *transfer
	uploaded map[uint32][]byte
	closed   bool
}

// NewDevice returns a device running a confirmed 1.0.0 image under MCUboot.
func NewDevice() *Device {
	return &Device{
		Bootloader:        "MCUboot",
		BufSize:           512,
		BufCount:          4,
		DownloadChunkSize: 128,
		AppInfo:           "Zephyr unknown 3.7.0 sim_device",
		DateTime:          "2025-01-01T00:00:00",
		Tasks: map[string]protocol.TaskStatistics{
			"idle": {Priority: 15, TaskID: 1, State: 0, StackUsed: 30, StackSize: 80},
			"main": {Priority: 0, TaskID: 2, State: 1, StackUsed: 200, StackSize: 512},
		},
		Files: map[string][]byte{},
		Images: []protocol.ImageSlotState{
			{
				Slot:      0,
				Version:   "1.0.0",
				Hash:      bytes.Repeat([]byte{0xA5}, sha256.Size),
				Bootable:  true,
				Confirmed: true,
				Active:    true,
			},
		},
		uploaded: map[uint32][]byte{},
	}
}

// Send handles one request frame and queues the response.
func (d *Device) Send(frame []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return transport.ErrClosed
	}

	h, payload, err := protocol.DecodeFrame(frame)
	if err != nil {
		return err
	}

	req := Request{Header: h, Payload: append([]byte(nil), payload...)}
	d.requests = append(d.requests, req)

	var resp any
	if d.Hook != nil {
		resp = d.Hook(req)
	}
	if resp == nil {
		resp = d.handle(req)
	}
	if _, silent := resp.(Silent); silent {
		return nil
	}

	body, err := protocol.Encode(resp)
	if err != nil {
		return err
	}

	rsp, err := protocol.EncodeFrame(protocol.Header{
		Op:       h.Op.Response(),
		Version:  h.Version,
		Group:    h.Group,
		Sequence: h.Sequence,
		ID:       h.ID,
	}, body)
	if err != nil {
		return err
	}

	d.queue = append(d.queue, rsp)
	return nil
}

// Receive returns the next queued response, or transport.ErrTimeout.
func (d *Device) Receive() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, transport.ErrClosed
	}
	if len(d.queue) == 0 {
		return nil, transport.ErrTimeout
	}

	rsp := d.queue[0]
	d.queue = d.queue[1:]
	return rsp, nil
}

// Close marks the device closed.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// QueueFrame queues a raw frame ahead of any later response.
func (d *Device) QueueFrame(frame []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, frame)
}

// Requests returns every request received so far.
func (d *Device) Requests() []Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Request(nil), d.requests...)
}

// RequestsFor returns the requests received for one command.
func (d *Device) RequestsFor(id protocol.Identity) []Request {
	var out []Request
	for _, r := range d.Requests() {
		if r.Is(id) {
			out = append(out, r)
		}
	}
	return out
}

// Resets returns how many reset commands were received.
func (d *Device) Resets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resets
}

// UploadedImage returns the last completely uploaded image for an image number.
func (d *Device) UploadedImage(image uint32) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uploaded[image]
}

// File returns a copy of a stored file.
func (d *Device) File(name string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, ok := d.Files[name]
	return append([]byte(nil), data...), ok
}

func (d *Device) handle(req Request) any {
	switch {
	case req.Is(protocol.OSEcho.Identity):
		var r protocol.EchoRequest
		if err := req.Decode(&r); err != nil {
			return ErrorV1(protocol.EINVAL)
		}
		return protocol.EchoResponse{R: r.D}

	case req.Is(protocol.OSTaskStatistics.Identity):
		return protocol.TaskStatisticsResponse{Tasks: d.Tasks}

	case req.Is(protocol.OSDateTimeGet.Identity):
		return protocol.DateTimeGetResponse{DateTime: d.DateTime}

	case req.Is(protocol.OSDateTimeSet.Identity):
		var r protocol.DateTimeSetRequest
		if err := req.Decode(&r); err != nil || r.DateTime == "" {
			return ErrorV1(protocol.EINVAL)
		}
		d.DateTime = r.DateTime
		return protocol.EmptyResponse{}

	case req.Is(protocol.OSReset.Identity):
		d.resets++
		return protocol.EmptyResponse{}

	case req.Is(protocol.OSMCUmgrParameters.Identity):
		return protocol.MCUmgrParametersResponse{BufSize: d.BufSize, BufCount: d.BufCount}

	case req.Is(protocol.OSApplicationInfo.Identity):
		return protocol.ApplicationInfoResponse{Output: d.AppInfo}

	case req.Is(protocol.OSBootloaderInfo.Identity):
		return d.bootloaderInfo(req)

	case req.Is(protocol.ImageState.Identity):
		return protocol.ImageStateResponse{Images: d.Images}

	case req.Is(protocol.ImageSetState.Identity):
		return d.imageSetState(req)

	case req.Is(protocol.ImageUpload.Identity):
		return d.imageUpload(req)

	case req.Is(protocol.ImageErase.Identity):
		return d.imageErase(req)

	case req.Is(protocol.FSFileUpload.Identity):
		return d.fileUpload(req)

	case req.Is(protocol.FSFileDownload.Identity):
		return d.fileDownload(req)

	case req.Is(protocol.FSFileStatus.Identity):
		var r protocol.FileStatusRequest
		if err := req.Decode(&r); err != nil {
			return ErrorV1(protocol.EINVAL)
		}
		data, ok := d.Files[r.Name]
		if !ok {
			return ErrorV1(protocol.ENOENT)
		}
		return protocol.FileStatusResponse{Len: uint64(len(data))}

	case req.Is(protocol.FSFileChecksum.Identity):
		return d.fileChecksum(req)

	case req.Is(protocol.FSSupportedChecksumTypes.Identity):
		return protocol.SupportedChecksumTypesResponse{Types: map[string]protocol.ChecksumType{
			"sha256": {Format: protocol.ChecksumFormatByteArray, Size: sha256.Size},
			"crc32":  {Format: protocol.ChecksumFormatNumerical, Size: 4},
		}}

	case req.Is(protocol.FSFileClose.Identity):
		d.file = nil
		return protocol.EmptyResponse{}

	case req.Is(protocol.ShellExecute.Identity):
		var r protocol.ShellExecuteRequest
		if err := req.Decode(&r); err != nil || len(r.Argv) == 0 {
			return ErrorV1(protocol.EINVAL)
		}
		if d.Shell != nil {
			out, ret := d.Shell(r.Argv)
			return protocol.ShellExecuteResponse{Output: out, Ret: ret}
		}
		return protocol.ShellExecuteResponse{Output: strings.Join(r.Argv, " ")}
	}

	return ErrorV1(protocol.ENOTSUP)
}

func (d *Device) bootloaderInfo(req Request) any {
	var r protocol.BootloaderInfoRequest
	if err := req.Decode(&r); err != nil {
		return ErrorV1(protocol.EINVAL)
	}
	if d.Bootloader == "" {
		return ErrorV1(protocol.ENOTSUP)
	}

	switch r.Query {
	case "":
		return protocol.BootloaderInfoResponse{Bootloader: d.Bootloader}
	case "mode":
		if d.Bootloader != "MCUboot" {
			return ErrorV2(protocol.GroupOS, 2)
		}
		mode := d.BootloaderMode
		return protocol.BootloaderInfoResponse{Mode: &mode}
	default:
		return ErrorV2(protocol.GroupOS, 2)
	}
}

func (d *Device) imageSetState(req Request) any {
	var r protocol.ImageSetStateRequest
	if err := req.Decode(&r); err != nil {
		return ErrorV1(protocol.EINVAL)
	}

	if len(r.Hash) == 0 {
		if !r.Confirm {
			return ErrorV1(protocol.EINVAL)
		}
		for i := range d.Images {
			if d.Images[i].Active {
				d.Images[i].Confirmed = true
			}
		}
		return protocol.ImageStateResponse{Images: d.Images}
	}

	for i := range d.Images {
		img := &d.Images[i]
		if !bytes.Equal(img.Hash, r.Hash) {
			continue
		}
		if img.Active {
			img.Confirmed = img.Confirmed || r.Confirm
		} else {
			img.Pending = true
			img.Permanent = r.Confirm
		}
		return protocol.ImageStateResponse{Images: d.Images}
	}

	return ErrorV1(protocol.ENOENT)
}

// write applies a chunk to a transfer and returns the next expected offset.
func (t *transfer) write(off uint64, data []byte) uint64 {
	if off > uint64(len(t.data)) {
		return uint64(len(t.data))
	}
	t.data = append(t.data[:off], data...)
	return uint64(len(t.data))
}

func (t *transfer) done() bool {
	return uint64(len(t.data)) == t.total
}

func (d *Device) imageUpload(req Request) any {
	var r protocol.ImageUploadRequest
	if err := req.Decode(&r); err != nil {
		return ErrorV1(protocol.EINVAL)
	}

	if r.Off == 0 {
		if r.Len == nil {
			return ErrorV1(protocol.EINVAL)
		}
		d.image = &transfer{image: r.Image, total: *r.Len, sha: r.SHA}
	}
	if d.image == nil {
		return ErrorV1(protocol.EINVAL)
	}

	off := d.image.write(r.Off, r.Data)
	if off > d.image.total {
		d.image = nil
		return ErrorV1(protocol.EINVAL)
	}

	resp := protocol.ImageUploadResponse{Off: off}
	if d.image.done() {
		data := d.image.data
		d.uploaded[d.image.image] = append([]byte(nil), data...)
		d.storeImage(d.image.image, data)

		if len(d.image.sha) > 0 {
			sum := sha256.Sum256(data)
			match := bytes.Equal(sum[:], d.image.sha)
			resp.Match = &match
		}
		d.image = nil
	}
	return resp
}

func (d *Device) storeImage(image uint32, data []byte) {
	slot := image*2 + 1

	state := protocol.ImageSlotState{Image: image, Slot: slot, Bootable: true}
	if info, err := mcuboot.ParseBytes(data); err == nil {
		state.Version = info.Version.String()
		state.Hash = info.Hash
	} else {
		sum := sha256.Sum256(data)
		state.Version = "0.0.0"
		state.Hash = sum[:]
	}

	for i := range d.Images {
		if d.Images[i].Image == image && d.Images[i].Slot == slot {
			d.Images[i] = state
			return
		}
	}
	d.Images = append(d.Images, state)
}

func (d *Device) imageErase(req Request) any {
	var r protocol.ImageEraseRequest
	if err := req.Decode(&r); err != nil {
		return ErrorV1(protocol.EINVAL)
	}

	slot := uint32(1)
	if r.Slot != nil {
		slot = *r.Slot
	}

	var kept []protocol.ImageSlotState
	for _, img := range d.Images {
		if img.Slot != slot {
			kept = append(kept, img)
			continue
		}
		if img.Active {
			return ErrorV1(protocol.EBADSTATE)
		}
	}
	d.Images = kept
	return protocol.EmptyResponse{}
}

func (d *Device) fileUpload(req Request) any {
	var r protocol.FileUploadRequest
	if err := req.Decode(&r); err != nil || r.Name == "" {
		return ErrorV1(protocol.EINVAL)
	}

	if r.Off == 0 {
		if r.Len == nil {
			return ErrorV1(protocol.EINVAL)
		}
		d.file = &transfer{name: r.Name, total: *r.Len}
	}
	if d.file == nil || d.file.name != r.Name {
		return ErrorV1(protocol.EINVAL)
	}

	off := d.file.write(r.Off, r.Data)
	if off > d.file.total {
		d.file = nil
		return ErrorV1(protocol.EINVAL)
	}

	if d.file.done() {
		d.Files[r.Name] = append([]byte(nil), d.file.data...)
		d.file = nil
	}
	return protocol.FileUploadResponse{Off: off}
}

func (d *Device) fileDownload(req Request) any {
	var r protocol.FileDownloadRequest
	if err := req.Decode(&r); err != nil {
		return ErrorV1(protocol.EINVAL)
	}

	data, ok := d.Files[r.Name]
	if !ok {
		return ErrorV1(protocol.ENOENT)
	}
	if r.Off > uint64(len(data)) {
		return ErrorV1(protocol.EINVAL)
	}

	end := r.Off + uint64(d.DownloadChunkSize)
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}

	resp := protocol.FileDownloadResponse{Off: r.Off, Data: data[r.Off:end]}
	if r.Off == 0 {
		total := uint64(len(data))
		resp.Len = &total
	}
	return resp
}

func (d *Device) fileChecksum(req Request) any {
	var r protocol.FileChecksumRequest
	if err := req.Decode(&r); err != nil {
		return ErrorV1(protocol.EINVAL)
	}

	data, ok := d.Files[r.Name]
	if !ok {
		return ErrorV1(protocol.ENOENT)
	}
	if r.Off > uint64(len(data)) {
		return ErrorV1(protocol.EINVAL)
	}

	region := data[r.Off:]
	if r.Len > 0 && r.Len < uint64(len(region)) {
		region = region[:r.Len]
	}

	resp := protocol.FileChecksumResponse{Type: r.Type, Off: r.Off, Len: uint64(len(region))}
	switch r.Type {
	case "", "sha256":
		sum := sha256.Sum256(region)
		resp.Type = "sha256"
		resp.Output = protocol.ChecksumOutput{Hash: sum[:]}
	case "crc32":
		resp.Output = protocol.ChecksumOutput{Checksum: uint64(crc32.ChecksumIEEE(region)), IsChecksum: true}
	default:
		return ErrorV1(protocol.ENOTSUP)
	}
	return resp
}
