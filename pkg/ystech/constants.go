// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

// Package ystech implements the YSTECH PCS external CAN communication
// protocol (v1.11).
//
// The protocol runs over CAN 2.0B extended (29-bit) frames at 250 kbps and
// borrows its identifier layout from J1939: the PDU Format byte (PF) acts as
// a message opcode, the PDU Specific byte (PS) carries the target address,
// and the low byte carries the source address (SA). All multi-byte payload
// fields are big-endian and every payload is exactly 8 bytes, zero-padded.
//
// This package provides identifier packing, typed encoders for every
// controller-to-device command, typed decoders for every device-to-controller
// telemetry and reply frame, and a dispatch table keyed by PF.
package ystech

import "time"

// Bus parameters mandated by the protocol document.
const (
	Bitrate  = 250_000
	Priority = 6 // fixed priority for all frames
)

// Address allocation.
const (
	ControllerAddr    = 0xB4 // "other devices" address used by this controller
	DeviceDefaultAddr = 0xFA // PCS factory default address
	BroadcastAddr     = 0x00
)

// Timing. The device raises a CAN1 fault and shuts down after 5 seconds
// without traffic from the controller, so the heartbeat frame must go out
// well inside that window.
const (
	HeartbeatInterval = 200 * time.Millisecond
	StaleTimeout      = 5 * time.Second
)

// PF codes - parameter read/write (controller → device) and replies
const (
	PFReadProtectionParams   = 0x01
	PFProtectionParams1Reply = 0x02
	PFProtectionParams2Reply = 0x03
	PFProtectionParams3Reply = 0x04
	PFSetProtectionParams1   = 0x05
	PFSetProtectionParams2   = 0x06
	PFSetProtectionParams3   = 0x07
	PFSetProtectionReply     = 0x08
	PFSetTime                = 0x09
	PFSetTimeReply           = 0x0A
	PFSetWorkingMode         = 0x0B
	PFSetModeParams12        = 0x0C
	PFSetModeParams34        = 0x0D
	PFSetModeReply           = 0x0E
	PFStartStop              = 0x0F
	PFStartStopReply         = 0x10
)

// PF codes - periodic telemetry (device → controller, 200 ms cycle)
const (
	PFDCData         = 0x11
	PFCapacityEnergy = 0x12
	PFStatus         = 0x13
	PFGridVoltage    = 0x14
	PFGridCurrent    = 0x15
	PFSystemPower    = 0x16
	PFLoadVoltage    = 0x17
	PFLoadCurrent    = 0x18
	PFLoadPower      = 0x19
	PFIOAndAD        = 0x20
	PFPhaseAPower    = 0x23
	PFPhaseBPower    = 0x24
	PFPhaseCPower    = 0x25
	PFHighResDC      = 0x39
)

// PF codes - heartbeat, special data and extended configuration
const (
	PFHeartbeat             = 0x1A
	PFSetBusVoltageReactive = 0x1B
	PFSpecialDataReply      = 0x1C
	PFReadSpecialData       = 0x1D
	PFStoredBusVReactive    = 0x1E
	PFSetIOBUS              = 0x1F
	PFSetPhaseActivePower   = 0x21
	PFSetPhaseReactivePower = 0x22
	PFSetSplitPhaseEnable   = 0x26
	PFSplitPhaseEnableReply = 0x27
	PFSetInverterPhase      = 0x28
	PFInverterPhaseReply    = 0x29
	PFSetReactiveControl    = 0x2A
	PFReactiveControlReply  = 0x2B
	PFSetGridMode           = 0x2C
	PFGridModeReply         = 0x2D
	PFSetModuleParallel     = 0x2E
	PFModuleParallelReply   = 0x2F
	PFSetChannelParallel    = 0x30
	PFChannelParallelReply  = 0x31
	PFSetBusParallel        = 0x32
	PFBusParallelReply      = 0x33
	PFARMVersion            = 0x34
	PFDSPVersion            = 0x35
	PFModeParamsReply       = 0x36
	PFParams12Reply         = 0x37
	PFParams34Reply         = 0x38
)

// Sub-type selectors for PFReadSpecialData.
const (
	SpecialDataVersion     = 0x0A
	SpecialDataWorkingMode = 0x0B
)

// Reply sentinel: replies carry 0x01 in their result byte on success.
const replySuccess = 0x01

// Heartbeat running-state hints sent to the device in frame 0x1A.
const (
	HeartbeatShutdown = 0x01
	HeartbeatRunning  = 0x02
	HeartbeatFault    = 0x03
)
