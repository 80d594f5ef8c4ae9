package client

import (
	"context"
	"fmt"
	"time"

	"github.com/moffa90/go-mcumgr/connection"
	"github.com/moffa90/go-mcumgr/protocol"
)

// dateTimeLayout is the device RTC format: ISO 8601 without time zone.
const dateTimeLayout = "2006-01-02T15:04:05"

// OSEcho sends a string to the device and returns the echoed string.
func (c *Client) OSEcho(ctx context.Context, msg string) (string, error) {
	resp, err := connection.Execute(ctx, c.conn, protocol.OSEcho, &protocol.EchoRequest{D: msg})
	if err != nil {
		return "", err
	}
	return resp.R, nil
}

// OSTaskStatistics returns per-task statistics keyed by task name.
func (c *Client) OSTaskStatistics(ctx context.Context) (map[string]protocol.TaskStatistics, error) {
	resp, err := connection.Execute(ctx, c.conn, protocol.OSTaskStatistics, &protocol.TaskStatisticsRequest{})
	if err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// OSDateTime reads the device RTC. Times without a zone are returned as UTC.
func (c *Client) OSDateTime(ctx context.Context) (time.Time, error) {
	resp, err := connection.Execute(ctx, c.conn, protocol.OSDateTimeGet, &protocol.DateTimeGetRequest{})
	if err != nil {
		return time.Time{}, err
	}
	return ParseDateTime(resp.DateTime)
}

// OSSetDateTime sets the device RTC. The zone of t is dropped.
func (c *Client) OSSetDateTime(ctx context.Context, t time.Time) error {
	_, err := connection.Execute(ctx, c.conn, protocol.OSDateTimeSet,
		&protocol.DateTimeSetRequest{DateTime: t.Format(dateTimeLayout)})
	return err
}

// ParseDateTime parses a device RTC string, with or without a zone offset
// and fractional seconds.
func ParseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid device datetime %q: %w", s, err)
	}
	return t, nil
}

// OSReset reboots the device. With force set the reset cannot be vetoed by
// the application. bootMode is optional.
func (c *Client) OSReset(ctx context.Context, force bool, bootMode *uint8) error {
	_, err := connection.Execute(ctx, c.conn, protocol.OSReset,
		&protocol.ResetRequest{Force: force, BootMode: bootMode})
	return err
}

// OSMCUmgrParameters returns the device SMP buffer size and count.
func (c *Client) OSMCUmgrParameters(ctx context.Context) (*protocol.MCUmgrParametersResponse, error) {
	return connection.Execute(ctx, c.conn, protocol.OSMCUmgrParameters, &protocol.MCUmgrParametersRequest{})
}

// OSApplicationInfo returns uname-like OS/application information.
// format selects fields, e.g. "a" for all; empty uses the device default.
func (c *Client) OSApplicationInfo(ctx context.Context, format string) (string, error) {
	resp, err := connection.Execute(ctx, c.conn, protocol.OSApplicationInfo,
		&protocol.ApplicationInfoRequest{Format: format})
	if err != nil {
		return "", err
	}
	return resp.Output, nil
}

// OSBootloaderInfo returns the name of the device bootloader, e.g. "MCUboot".
func (c *Client) OSBootloaderInfo(ctx context.Context) (string, error) {
	resp, err := connection.Execute(ctx, c.conn, protocol.OSBootloaderInfo, &protocol.BootloaderInfoRequest{})
	if err != nil {
		return "", err
	}
	return resp.Bootloader, nil
}

// OSBootloaderMode queries the MCUboot operating mode. See MCUbootModeName.
func (c *Client) OSBootloaderMode(ctx context.Context) (int32, bool, error) {
	resp, err := connection.Execute(ctx, c.conn, protocol.OSBootloaderInfo,
		&protocol.BootloaderInfoRequest{Query: "mode"})
	if err != nil {
		return 0, false, err
	}
	if resp.Mode == nil {
		return 0, false, fmt.Errorf("device did not report a bootloader mode")
	}
	return *resp.Mode, resp.NoDowngrade, nil
}

var mcubootModes = map[int32]string{
	-1: "unknown",
	0:  "single application",
	1:  "swap using scratch",
	2:  "overwrite only",
	3:  "swap without scratch",
	4:  "direct XIP without revert",
	5:  "direct XIP with revert",
	6:  "RAM loader",
	7:  "firmware loader",
	8:  "RAM load with network core",
	9:  "swap using offset",
}

// MCUbootModeName describes an MCUboot mode value.
func MCUbootModeName(mode int32) string {
	if name, ok := mcubootModes[mode]; ok {
		return name
	}
	return fmt.Sprintf("mode %d", mode)
}
