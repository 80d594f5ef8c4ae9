package transport

import "github.com/sigurn/crc16"

var xmodemTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// CRC16 computes the CRC16-XMODEM (poly 0x1021, init 0) used by SMP serial
// packets.
func CRC16(data []byte) uint16 {
	return crc16.Checksum(data, xmodemTable)
}
