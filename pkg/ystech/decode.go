// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package ystech

import (
	"encoding/binary"
	"fmt"
)

// Telemetry and reply decoders (device → controller). Each decoder takes
// exactly 8 raw bytes and returns a typed record in engineering units:
// raw * resolution, minus the field's fixed offset where one exists.

// ErrShortPayload is returned when a frame carries fewer than 8 data bytes.
var ErrShortPayload = fmt.Errorf("payload shorter than 8 bytes")

func u16(data []byte, off int) uint16 {
	return binary.BigEndian.Uint16(data[off:])
}

func i16(data []byte, off int) int16 {
	return int16(binary.BigEndian.Uint16(data[off:]))
}

func u32(data []byte, off int) uint32 {
	return binary.BigEndian.Uint32(data[off:])
}

// DecodeProtectionParams1 decodes the frame 0x02 reply.
func DecodeProtectionParams1(data []byte) ProtectionParams1 {
	return ProtectionParams1{
		MaxOutputVoltage:    float64(u16(data, 0)) * 0.1,
		MinOutputVoltage:    float64(u16(data, 2)) * 0.1,
		MaxChargeCurrent:    float64(u16(data, 4)) * 0.1,
		MaxDischargeCurrent: float64(u16(data, 6)) * 0.1,
	}
}

// DecodeProtectionParams2 decodes the frame 0x03 reply.
func DecodeProtectionParams2(data []byte) ProtectionParams2 {
	return ProtectionParams2{
		MaxChargePower:    float64(u16(data, 0)) * 0.1,
		MaxDischargePower: float64(u16(data, 2)) * 0.1,
		ACVoltageUpper:    float64(u16(data, 4)) * 0.1,
		ACVoltageLower:    float64(u16(data, 6)) * 0.1,
	}
}

// DecodeProtectionParams3 decodes the frame 0x04 reply. The AC frequency
// limits are single bytes at 1 Hz resolution.
func DecodeProtectionParams3(data []byte) ProtectionParams3 {
	return ProtectionParams3{
		DischargeFreqUpper: float64(u16(data, 0)) * 0.1,
		ChargeFreqLower:    float64(u16(data, 2)) * 0.1,
		ACFreqUpper:        float64(data[4]),
		ACFreqLower:        float64(data[5]),
	}
}

// DecodeDCData decodes frame 0x11. Current carries the +1000 A offset,
// inlet temperature the +50 °C offset.
func DecodeDCData(data []byte) DCData {
	return DCData{
		Voltage:          float64(u16(data, 0)) * 0.1,
		Current:          float64(u16(data, 2))*0.1 - 1000.0,
		Power:            float64(u16(data, 4)) * 0.1,
		InletTemperature: float64(u16(data, 6))*0.1 - 50.0,
	}
}

// DecodeCapacityEnergy decodes frame 0x12. Energy is a 32-bit counter.
func DecodeCapacityEnergy(data []byte) CapacityEnergy {
	return CapacityEnergy{
		Capacity:          float64(u16(data, 0)) * 0.1,
		Energy:            float64(u32(data, 2)) * 0.1,
		OutletTemperature: float64(u16(data, 6))*0.1 - 50.0,
	}
}

// DecodeStatus decodes frame 0x13: running state byte and u16 fault code.
func DecodeStatus(data []byte) Status {
	return Status{
		RunningState: RunningState(data[0]),
		FaultCode:    u16(data, 2),
	}
}

// DecodeGridVoltage decodes frame 0x14.
func DecodeGridVoltage(data []byte) GridVoltage {
	return GridVoltage{
		U: float64(u16(data, 0)) * 0.1,
		V: float64(u16(data, 2)) * 0.1,
		W: float64(u16(data, 4)) * 0.1,
	}
}

// DecodeGridCurrent decodes frame 0x15. Power factor is signed.
func DecodeGridCurrent(data []byte) GridCurrent {
	return GridCurrent{
		U:           float64(u16(data, 0)) * 0.1,
		V:           float64(u16(data, 2)) * 0.1,
		W:           float64(u16(data, 4)) * 0.1,
		PowerFactor: float64(i16(data, 6)) * 0.1,
	}
}

// DecodeSystemPower decodes frame 0x16.
func DecodeSystemPower(data []byte) SystemPower {
	return SystemPower{
		ActivePower:   float64(u16(data, 0)) * 0.1,
		ReactivePower: float64(u16(data, 2)) * 0.1,
		ApparentPower: float64(u16(data, 4)) * 0.1,
		Frequency:     float64(u16(data, 6)) * 0.1,
	}
}

// DecodeLoadVoltage decodes frame 0x17.
func DecodeLoadVoltage(data []byte) LoadVoltage {
	return LoadVoltage{
		U: float64(u16(data, 0)) * 0.1,
		V: float64(u16(data, 2)) * 0.1,
		W: float64(u16(data, 4)) * 0.1,
	}
}

// DecodeLoadCurrent decodes frame 0x18.
func DecodeLoadCurrent(data []byte) LoadCurrent {
	return LoadCurrent{
		U: float64(u16(data, 0)) * 0.1,
		V: float64(u16(data, 2)) * 0.1,
		W: float64(u16(data, 4)) * 0.1,
	}
}

// DecodeLoadPower decodes frame 0x19.
func DecodeLoadPower(data []byte) LoadPower {
	return LoadPower{
		ActivePower:   float64(u16(data, 0)) * 0.1,
		ReactivePower: float64(u16(data, 2)) * 0.1,
		ApparentPower: float64(u16(data, 4)) * 0.1,
	}
}

// DecodePhasePower decodes frames 0x23/0x24/0x25 with the given phase label.
func DecodePhasePower(data []byte, phase string) PhasePower {
	return PhasePower{
		Phase:         phase,
		ActivePower:   float64(u16(data, 0)) * 0.1,
		ReactivePower: float64(u16(data, 2)) * 0.1,
		ApparentPower: float64(u16(data, 4)) * 0.1,
	}
}

// DecodeHighResDC decodes frame 0x39: 32-bit fields at 0.001 resolution,
// current with the +1000 A offset.
func DecodeHighResDC(data []byte) HighResDC {
	return HighResDC{
		Voltage: float64(u32(data, 0)) * 0.001,
		Current: float64(u32(data, 4))*0.001 - 1000.0,
	}
}

// DecodeIOAndAD decodes frame 0x20.
func DecodeIOAndAD(data []byte) IOAndAD {
	return IOAndAD{
		IO1: data[0],
		IO2: data[1],
		IO3: data[2],
		IO4: data[3],
		AD1: float64(u16(data, 4)) * 0.001,
		AD2: float64(u16(data, 6)) * 0.001,
	}
}

// DecodeVersion decodes frames 0x34/0x35.
func DecodeVersion(data []byte) VersionInfo {
	return VersionInfo{
		HardwareMajor: data[0],
		HardwareMinor: data[1],
		HardwarePatch: data[2],
		SoftwareMajor: data[3],
		SoftwareMinor: data[4],
		SoftwarePatch: data[5],
	}
}

// DecodeWorkingModeReply decodes frame 0x36.
func DecodeWorkingModeReply(data []byte) WorkingModeReply {
	return WorkingModeReply{Mode: WorkingMode(data[0])}
}

// DecodeSetReply decodes the generic boolean set-command reply.
//
// The protocol is inconsistent about where the result byte lives: frames
// 0x0A/0x0E/0x10 put it in byte 0, frames 0x08/0x1C put a type selector in
// byte 0 and the result in byte 1. Accepting the success sentinel in either
// position mirrors the device's documented behavior; do not normalize this
// to a single position.
func DecodeSetReply(data []byte) SetReply {
	return SetReply{
		Success: data[0] == replySuccess || (len(data) > 1 && data[1] == replySuccess),
	}
}
