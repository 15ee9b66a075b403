// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package ystech

// IDFields holds the J1939-style fields unpacked from a 29-bit extended
// CAN identifier:
//
//	[28:26] priority (3 bits)
//	[25]    reserved (1 bit, always 0)
//	[24]    data page (1 bit, always 0)
//	[23:16] PF - PDU Format, the message opcode
//	[15:8]  PS - PDU Specific, the target address
//	[7:0]   SA - source address
type IDFields struct {
	Priority uint8
	Reserved uint8
	DataPage uint8
	PF       uint8
	PS       uint8
	SA       uint8
}

// BuildID packs the given fields into a 29-bit extended CAN identifier.
// Inputs are masked to their field widths; out-of-range values are silently
// truncated rather than rejected.
func BuildID(pf, ps, sa, priority uint8) uint32 {
	return uint32(priority&0x07)<<26 |
		uint32(pf)<<16 |
		uint32(ps)<<8 |
		uint32(sa)
}

// ParseID unpacks a 29-bit extended CAN identifier. It succeeds for any
// input; bits above position 28 are ignored.
func ParseID(id uint32) IDFields {
	return IDFields{
		Priority: uint8(id >> 26 & 0x07),
		Reserved: uint8(id >> 25 & 0x01),
		DataPage: uint8(id >> 24 & 0x01),
		PF:       uint8(id >> 16),
		PS:       uint8(id >> 8),
		SA:       uint8(id),
	}
}

// TxID builds the identifier for a frame from this controller to the device
// at deviceAddr.
func TxID(pf, deviceAddr uint8) uint32 {
	return BuildID(pf, deviceAddr, ControllerAddr, Priority)
}

// RxID builds the identifier the device at deviceAddr uses when addressing
// this controller. Useful for filters and for synthesizing device frames.
func RxID(pf, deviceAddr uint8) uint32 {
	return BuildID(pf, ControllerAddr, deviceAddr, Priority)
}
