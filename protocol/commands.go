package protocol

import "fmt"

// Identity is what identifies a command on the wire.
// Group/ID pairs are fixed by the SMP group definitions.
type Identity struct {
	// Name is a human readable command name, e.g. "os echo"
	Name string

	// Group is the management group
	Group Group

	// ID is the command ID within the group
	ID uint8

	// Op is OpRead or OpWrite
	Op Op
}

func (i Identity) String() string {
	return fmt.Sprintf("%s (group=%d id=%d %s)", i.Name, uint16(i.Group), i.ID, i.Op)
}

// Header returns a request header for this identity.
// The length is filled in by EncodeFrame.
func (i Identity) Header(version Version, seq uint8) Header {
	return Header{
		Op:       i.Op,
		Version:  version,
		Group:    i.Group,
		Sequence: seq,
		ID:       i.ID,
	}
}

// Command binds an Identity to its request and response payload types.
// Executing a Command with the wrong request type, or decoding its response
// into the wrong type, does not compile.
type Command[Req, Resp any] struct {
	Identity
}

// EncodeRequest serializes a request payload.
func (c Command[Req, Resp]) EncodeRequest(req *Req) ([]byte, error) {
	return Encode(req)
}

// DecodeResponse checks for a device error and decodes the response payload.
func (c Command[Req, Resp]) DecodeResponse(payload []byte) (*Resp, error) {
	return DecodeResponse[Resp](payload)
}

var registry []Identity

func define[Req, Resp any](name string, group Group, id uint8, op Op) Command[Req, Resp] {
	c := Command[Req, Resp]{Identity{Name: name, Group: group, ID: id, Op: op}}
	registry = append(registry, c.Identity)
	return c
}

// Command table. This is the single source of truth for group/ID/direction.
var (
	OSEcho             = define[EchoRequest, EchoResponse]("os echo", GroupOS, 0, OpRead)
	OSTaskStatistics   = define[TaskStatisticsRequest, TaskStatisticsResponse]("os taskstat", GroupOS, 2, OpRead)
	OSDateTimeGet      = define[DateTimeGetRequest, DateTimeGetResponse]("os datetime get", GroupOS, 4, OpRead)
	OSDateTimeSet      = define[DateTimeSetRequest, EmptyResponse]("os datetime set", GroupOS, 4, OpWrite)
	OSReset            = define[ResetRequest, EmptyResponse]("os reset", GroupOS, 5, OpWrite)
	OSMCUmgrParameters = define[MCUmgrParametersRequest, MCUmgrParametersResponse]("os mcumgr params", GroupOS, 6, OpRead)
	OSApplicationInfo  = define[ApplicationInfoRequest, ApplicationInfoResponse]("os info", GroupOS, 7, OpRead)
	OSBootloaderInfo   = define[BootloaderInfoRequest, BootloaderInfoResponse]("os bootloader info", GroupOS, 8, OpRead)

	ImageState    = define[ImageStateRequest, ImageStateResponse]("image state", GroupImage, 0, OpRead)
	ImageSetState = define[ImageSetStateRequest, ImageStateResponse]("image set state", GroupImage, 0, OpWrite)
	ImageUpload   = define[ImageUploadRequest, ImageUploadResponse]("image upload", GroupImage, 1, OpWrite)
	ImageErase    = define[ImageEraseRequest, EmptyResponse]("image erase", GroupImage, 5, OpWrite)

	FSFileUpload             = define[FileUploadRequest, FileUploadResponse]("fs upload", GroupFS, 0, OpWrite)
	FSFileDownload           = define[FileDownloadRequest, FileDownloadResponse]("fs download", GroupFS, 0, OpRead)
	FSFileStatus             = define[FileStatusRequest, FileStatusResponse]("fs status", GroupFS, 1, OpRead)
	FSFileChecksum           = define[FileChecksumRequest, FileChecksumResponse]("fs checksum", GroupFS, 2, OpRead)
	FSSupportedChecksumTypes = define[SupportedChecksumTypesRequest, SupportedChecksumTypesResponse]("fs supported checksums", GroupFS, 3, OpRead)
	FSFileClose              = define[FileCloseRequest, EmptyResponse]("fs close", GroupFS, 4, OpWrite)

	ShellExecute = define[ShellExecuteRequest, ShellExecuteResponse]("shell exec", GroupShell, 0, OpWrite)
)

// Commands returns the identities of all known commands in table order.
func Commands() []Identity {
	out := make([]Identity, len(registry))
	copy(out, registry)
	return out
}

// Lookup finds a known command by group, ID and direction.
func Lookup(group Group, id uint8, op Op) (Identity, bool) {
	for _, c := range registry {
		if c.Group == group && c.ID == id && c.Op == op {
			return c, true
		}
	}
	return Identity{}, false
}
