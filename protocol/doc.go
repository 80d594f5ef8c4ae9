// Package protocol implements the Simple Management Protocol (SMP) used by
// MCUmgr to manage Zephyr and MCUboot based devices.
//
// This package provides the frame header codec, the CBOR payload codec and a
// declarative table of every supported command.
//
// # Frame Overview
//
// Every SMP message is an 8-byte header followed by a CBOR map:
//
//	[RES|VER|OP][FLAGS][LEN_H][LEN_L][GROUP_H][GROUP_L][SEQ][ID][CBOR...]
//
// Where:
//   - OP = 0 read, 1 read response, 2 write, 3 write response
//   - VER = 0 for SMP v1, 1 for SMP v2
//   - LEN = payload length (big-endian)
//   - GROUP = management group (big-endian)
//   - SEQ = sequence number echoed by the device
//
// # Commands
//
// Commands are values of the generic Command type. Each one binds a group,
// command ID and direction to its request and response payload types:
//
//	payload, err := protocol.OSEcho.EncodeRequest(&protocol.EchoRequest{D: "Hello"})
//	// ... send and receive ...
//	resp, err := protocol.OSEcho.DecodeResponse(rspPayload)
//	fmt.Println(resp.R)
//
// Commands returns the full table, which is useful for tooling and for
// checking that group/ID/direction triples are unique.
//
// # Device Errors
//
// DecodeResponse runs CheckError first. A device can report failure in two
// shapes:
//
//	v1: {"rc": 8}
//	v2: {"err": {"group": 1, "rc": 3}}
//
// Both are returned as *DeviceError. A zero code is treated as success.
//
// # Example
//
//	h := protocol.OSEcho.Header(protocol.VersionV2, seq)
//	frame, err := protocol.EncodeFrame(h, payload)
//	if err != nil {
//	    return err
//	}
//
//	rh, rp, err := protocol.DecodeFrame(rsp)
//	if err != nil {
//	    return err
//	}
//	if rh.Sequence != seq {
//	    // stale response
//	}
package protocol
