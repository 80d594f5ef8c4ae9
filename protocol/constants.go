package protocol

import "fmt"

// Frame structure constants of the SMP header.
const (
	// HeaderSize is the size of the SMP header in bytes:
	// OP(1) + FLAGS(1) + LEN(2) + GROUP(2) + SEQ(1) + ID(1)
	HeaderSize = 8

	// MaxPayloadSize is the largest payload the 16-bit length field can describe
	MaxPayloadSize = 0xFFFF
)

// Version is the SMP protocol version carried in bits 3-4 of the first header byte.
type Version uint8

const (
	// VersionV1 is the original SMP protocol with plain rc error codes
	VersionV1 Version = 0

	// VersionV2 adds group-scoped error responses
	VersionV2 Version = 1
)

// Op is the SMP operation carried in the low 3 bits of the first header byte.
type Op uint8

const (
	// OpRead requests data from the device
	OpRead Op = 0

	// OpReadResponse answers an OpRead request
	OpReadResponse Op = 1

	// OpWrite sends data to the device
	OpWrite Op = 2

	// OpWriteResponse answers an OpWrite request
	OpWriteResponse Op = 3
)

// IsWrite reports whether the operation is a write or write response.
func (o Op) IsWrite() bool {
	return o == OpWrite || o == OpWriteResponse
}

// IsResponse reports whether the operation is sent by the device.
func (o Op) IsResponse() bool {
	return o == OpReadResponse || o == OpWriteResponse
}

// Response returns the response op matching a request op.
func (o Op) Response() Op {
	switch o {
	case OpRead:
		return OpReadResponse
	case OpWrite:
		return OpWriteResponse
	default:
		return o
	}
}

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpReadResponse:
		return "read-rsp"
	case OpWrite:
		return "write"
	case OpWriteResponse:
		return "write-rsp"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Group is an SMP management group ID.
type Group uint16

// Management group IDs per the Zephyr SMP group registry.
const (
	GroupOS       Group = 0
	GroupImage    Group = 1
	GroupStat     Group = 2
	GroupSettings Group = 3
	GroupLog      Group = 4
	GroupCrash    Group = 5
	GroupSplit    Group = 6
	GroupRun      Group = 7
	GroupFS       Group = 8
	GroupShell    Group = 9
	GroupEnum     Group = 10
	GroupZephyr   Group = 63

	// GroupPerUser is the first group ID available for application-defined groups
	GroupPerUser Group = 64
)

func (g Group) String() string {
	switch g {
	case GroupOS:
		return "os"
	case GroupImage:
		return "image"
	case GroupStat:
		return "stat"
	case GroupSettings:
		return "settings"
	case GroupLog:
		return "log"
	case GroupCrash:
		return "crash"
	case GroupSplit:
		return "split"
	case GroupRun:
		return "run"
	case GroupFS:
		return "fs"
	case GroupShell:
		return "shell"
	case GroupEnum:
		return "enum"
	case GroupZephyr:
		return "zephyr"
	}
	if g >= GroupPerUser {
		return fmt.Sprintf("user(%d)", uint16(g))
	}
	return fmt.Sprintf("group(%d)", uint16(g))
}

// Errno is an MCUmgr status code as reported in the rc field of a response.
type Errno int32

// MCUmgr status codes.
const (
	EOK                Errno = 0
	EUNKNOWN           Errno = 1
	ENOMEM             Errno = 2
	EINVAL             Errno = 3
	ETIMEOUT           Errno = 4
	ENOENT             Errno = 5
	EBADSTATE          Errno = 6
	EMSGSIZE           Errno = 7
	ENOTSUP            Errno = 8
	ECORRUPT           Errno = 9
	EBUSY              Errno = 10
	EACCESSDENIED      Errno = 11
	EUNSUPPORTEDTOOOLD Errno = 12
	EUNSUPPORTEDTOONEW Errno = 13
	EPERUSER           Errno = 256
)

var errnoNames = map[Errno]string{
	EOK:                "MGMT_ERR_EOK",
	EUNKNOWN:           "MGMT_ERR_EUNKNOWN",
	ENOMEM:             "MGMT_ERR_ENOMEM",
	EINVAL:             "MGMT_ERR_EINVAL",
	ETIMEOUT:           "MGMT_ERR_ETIMEOUT",
	ENOENT:             "MGMT_ERR_ENOENT",
	EBADSTATE:          "MGMT_ERR_EBADSTATE",
	EMSGSIZE:           "MGMT_ERR_EMSGSIZE",
	ENOTSUP:            "MGMT_ERR_ENOTSUP",
	ECORRUPT:           "MGMT_ERR_ECORRUPT",
	EBUSY:              "MGMT_ERR_EBUSY",
	EACCESSDENIED:      "MGMT_ERR_EACCESSDENIED",
	EUNSUPPORTEDTOOOLD: "MGMT_ERR_UNSUPPORTED_TOO_OLD",
	EUNSUPPORTEDTOONEW: "MGMT_ERR_UNSUPPORTED_TOO_NEW",
	EPERUSER:           "MGMT_ERR_EPERUSER",
}

// String returns the stable name of the status code.
func (e Errno) String() string {
	if name, ok := errnoNames[e]; ok {
		return name
	}
	if e > EPERUSER {
		return fmt.Sprintf("MGMT_ERR_EPERUSER+%d", int32(e-EPERUSER))
	}
	return fmt.Sprintf("MGMT_ERR_UNKNOWN(%d)", int32(e))
}
