package protocol

// Default/OS management group (group 0) payloads.

// EchoRequest asks the device to echo a string.
type EchoRequest struct {
	D string `cbor:"d"`
}

// EchoResponse carries the echoed string.
type EchoResponse struct {
	R string `cbor:"r"`
}

// TaskStatisticsRequest has no fields.
type TaskStatisticsRequest struct{}

// TaskStatisticsResponse maps task names to their statistics.
type TaskStatisticsResponse struct {
	Tasks map[string]TaskStatistics `cbor:"tasks"`
}

// TaskStatistics describes one RTOS task.
// Stack figures are reported by Zephyr in 4-byte words.
type TaskStatistics struct {
	Priority        int32  `cbor:"prio"`
	TaskID          uint32 `cbor:"tid"`
	State           uint32 `cbor:"state"`
	StackUsed       uint64 `cbor:"stkuse,omitempty"`
	StackSize       uint64 `cbor:"stksiz,omitempty"`
	ContextSwitches uint64 `cbor:"cswcnt,omitempty"`
	Runtime         uint64 `cbor:"runtime,omitempty"`
	LastCheckin     uint64 `cbor:"last_checkin,omitempty"`
	NextCheckin     uint64 `cbor:"next_checkin,omitempty"`
}

// DateTimeGetRequest has no fields.
type DateTimeGetRequest struct{}

// DateTimeGetResponse carries the device RTC time as an ISO 8601 string
// without time zone.
type DateTimeGetResponse struct {
	DateTime string `cbor:"datetime"`
}

// DateTimeSetRequest sets the device RTC.
type DateTimeSetRequest struct {
	DateTime string `cbor:"datetime"`
}

// ResetRequest asks the device to reboot.
type ResetRequest struct {
	// Force resets even if an application hook vetoes the reset
	Force bool `cbor:"force,omitempty"`

	// BootMode selects a boot mode on devices that support retention
	BootMode *uint8 `cbor:"boot_mode,omitempty"`
}

// MCUmgrParametersRequest has no fields.
type MCUmgrParametersRequest struct{}

// MCUmgrParametersResponse reports the device SMP buffer geometry.
type MCUmgrParametersResponse struct {
	// BufSize is the size of one SMP buffer, header included
	BufSize uint32 `cbor:"buf_size"`

	// BufCount is the number of SMP buffers
	BufCount uint32 `cbor:"buf_count"`
}

// ApplicationInfoRequest queries OS/application information.
// Format is a uname-like flag string such as "a" or "sv".
type ApplicationInfoRequest struct {
	Format string `cbor:"format,omitempty"`
}

// ApplicationInfoResponse carries the formatted information string.
type ApplicationInfoResponse struct {
	Output string `cbor:"output"`
}

// BootloaderInfoRequest queries the bootloader name, or a bootloader
// specific property when Query is set (e.g. "mode" for MCUboot).
type BootloaderInfoRequest struct {
	Query string `cbor:"query,omitempty"`
}

// BootloaderInfoResponse is the answer to a BootloaderInfoRequest.
type BootloaderInfoResponse struct {
	Bootloader  string `cbor:"bootloader,omitempty"`
	Mode        *int32 `cbor:"mode,omitempty"`
	NoDowngrade bool   `cbor:"no-downgrade,omitempty"`
}

// EmptyResponse is the response of commands that return no data.
type EmptyResponse struct{}
