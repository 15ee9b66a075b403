// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package ystech

import "encoding/binary"

// Command encoders (controller → device). Every encoder returns the 29-bit
// identifier and exactly 8 bytes of payload, zero-padded.
//
// Raw values are computed as engineering value divided by the field's
// resolution, truncated toward zero (Go's float-to-int conversion), with the
// field's fixed offset applied before scaling where one exists. Matching the
// device firmware's integer semantics here is a wire-compatibility
// requirement: truncation, not rounding.

func u16be(buf []byte, off int, v uint16) {
	binary.BigEndian.PutUint16(buf[off:], v)
}

func i32be(buf []byte, off int, v int32) {
	binary.BigEndian.PutUint32(buf[off:], uint32(v))
}

func payload() []byte {
	return make([]byte, 8)
}

// EncodeReadProtectionParams builds frame 0x01: request protection
// parameters. paramType 0x01 selects voltage/current limits, 0x02 power/AC
// limits, 0x03 frequency limits; the device replies on PF 0x02/0x03/0x04
// respectively.
func EncodeReadProtectionParams(paramType uint8, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	data[0] = paramType
	return TxID(PFReadProtectionParams, deviceAddr), data
}

// EncodeSetProtectionParams1 builds frame 0x05: DC voltage/current limits,
// all at 0.1 resolution.
func EncodeSetProtectionParams1(maxOutputV, minOutputV, maxChargeA, maxDischargeA float64, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	u16be(data, 0, uint16(maxOutputV/0.1))
	u16be(data, 2, uint16(minOutputV/0.1))
	u16be(data, 4, uint16(maxChargeA/0.1))
	u16be(data, 6, uint16(maxDischargeA/0.1))
	return TxID(PFSetProtectionParams1, deviceAddr), data
}

// EncodeSetProtectionParams2 builds frame 0x06: power and AC voltage limits,
// all at 0.1 resolution.
func EncodeSetProtectionParams2(maxChargeKW, maxDischargeKW, acVUpper, acVLower float64, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	u16be(data, 0, uint16(maxChargeKW/0.1))
	u16be(data, 2, uint16(maxDischargeKW/0.1))
	u16be(data, 4, uint16(acVUpper/0.1))
	u16be(data, 6, uint16(acVLower/0.1))
	return TxID(PFSetProtectionParams2, deviceAddr), data
}

// EncodeSetProtectionParams3 builds frame 0x07: frequency limits. The
// discharge/charge limits are 0.1 Hz u16 fields, the AC limits single bytes
// at 1 Hz resolution.
func EncodeSetProtectionParams3(dischargeFreqUpper, chargeFreqLower, acFreqUpper, acFreqLower float64, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	u16be(data, 0, uint16(dischargeFreqUpper/0.1))
	u16be(data, 2, uint16(chargeFreqLower/0.1))
	data[4] = uint8(acFreqUpper)
	data[5] = uint8(acFreqLower)
	return TxID(PFSetProtectionParams3, deviceAddr), data
}

// EncodeSetTime builds frame 0x09: set the device clock.
func EncodeSetTime(year uint16, month, day, hour, minute, second uint8, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	u16be(data, 0, year)
	data[2] = month
	data[3] = day
	data[4] = hour
	data[5] = minute
	data[6] = second
	return TxID(PFSetTime, deviceAddr), data
}

// EncodeSetWorkingMode builds frame 0x0B: select the working mode. The
// device only accepts a mode change while stopped.
func EncodeSetWorkingMode(mode WorkingMode, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	data[0] = uint8(mode)
	return TxID(PFSetWorkingMode, deviceAddr), data
}

// EncodeSetModeParams12 builds frame 0x0C: mode parameters 1 and 2, each a
// signed 32-bit raw value whose resolution depends on the working mode.
func EncodeSetModeParams12(param1, param2 float64, mode WorkingMode, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	i32be(data, 0, int32(param1/paramResolution(mode, 0)))
	i32be(data, 4, int32(param2/paramResolution(mode, 1)))
	return TxID(PFSetModeParams12, deviceAddr), data
}

// EncodeSetModeParams34 builds frame 0x0D: mode parameters 3 and 4, same
// encoding as frame 0x0C.
func EncodeSetModeParams34(param3, param4 float64, mode WorkingMode, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	i32be(data, 0, int32(param3/paramResolution(mode, 2)))
	i32be(data, 4, int32(param4/paramResolution(mode, 3)))
	return TxID(PFSetModeParams34, deviceAddr), data
}

// EncodeStartStop builds frame 0x0F: start/stop, fault clearing and the
// power-on self-start flag. The frame has no partial-update semantics:
// every field is authoritative on receipt, so callers must resend the
// current value of every flag they do not mean to change.
func EncodeStartStop(start, clearFault, autoStart bool, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	if start {
		data[0] = 1
	}
	if clearFault {
		data[1] = 1
	}
	if autoStart {
		data[2] = 1
	}
	return TxID(PFStartStop, deviceAddr), data
}

// EncodeHeartbeat builds frame 0x1A: the keep-alive the device expects every
// 200 ms. Voltage at 0.1 V resolution, current at 0.1 A with the +1000 A
// offset, plus a one-byte running-state hint (HeartbeatShutdown/Running/
// Fault).
func EncodeHeartbeat(dcVoltage, dcCurrent float64, runningState uint8, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	u16be(data, 0, uint16(dcVoltage/0.1))
	u16be(data, 2, uint16((dcCurrent+1000.0)/0.1))
	data[4] = runningState
	return TxID(PFHeartbeat, deviceAddr), data
}

// EncodeSetBusVoltageReactive builds frame 0x1B: bus voltage and reactive
// power setpoints at 0.1 resolution.
func EncodeSetBusVoltageReactive(busVoltage, reactivePower float64, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	u16be(data, 0, uint16(busVoltage/0.1))
	u16be(data, 2, uint16(reactivePower/0.1))
	return TxID(PFSetBusVoltageReactive, deviceAddr), data
}

// EncodeSetIO builds frame 0x1F: IOBUS output levels, one byte per channel.
func EncodeSetIO(io1, io2, io3, io4 uint8, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	data[0] = io1 & 1
	data[1] = io2 & 1
	data[2] = io3 & 1
	data[3] = io4 & 1
	return TxID(PFSetIOBUS, deviceAddr), data
}

// EncodeSetPhasePower builds frame 0x21: per-phase active power setpoints at
// 0.1 kW resolution.
func EncodeSetPhasePower(phaseAkW, phaseBkW, phaseCkW float64, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	u16be(data, 0, uint16(phaseAkW/0.1))
	u16be(data, 2, uint16(phaseBkW/0.1))
	u16be(data, 4, uint16(phaseCkW/0.1))
	return TxID(PFSetPhaseActivePower, deviceAddr), data
}

// EncodeSetSplitPhaseEnable builds frame 0x26: split-phase power control.
func EncodeSetSplitPhaseEnable(enable bool, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	if enable {
		data[0] = 1
	}
	return TxID(PFSetSplitPhaseEnable, deviceAddr), data
}

// EncodeSetInverterPhase builds frame 0x28: inverter phase selection.
// Values: 7=A-host, 8=B-host, 9=C-host, 10=A-slave, 11=B-slave, 12=C-slave.
func EncodeSetInverterPhase(phase uint8, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	data[0] = phase
	return TxID(PFSetInverterPhase, deviceAddr), data
}

// EncodeSetReactiveControl builds frame 0x2A: reactive control mode
// (0=reactive power, 1=power factor) and a signed power factor in the range
// -0.999..1.000 at 0.001 resolution.
func EncodeSetReactiveControl(mode uint8, powerFactor float64, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	data[0] = mode
	u16be(data, 1, uint16(int16(powerFactor/0.001)))
	return TxID(PFSetReactiveControl, deviceAddr), data
}

// EncodeSetGridMode builds frame 0x2C: on/off-grid switching mode.
// 0 disables automatic switching, 1 enables it.
func EncodeSetGridMode(mode uint8, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	data[0] = mode
	return TxID(PFSetGridMode, deviceAddr), data
}

// EncodeSetModuleParallel builds frame 0x2E: module parallel configuration.
// mode: 0=single, 1=host, 2=slave; numModules 1-10; hallRatio is the Hall
// current sensor variable ratio.
func EncodeSetModuleParallel(mode, numModules uint8, hallRatio uint16, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	data[0] = mode
	data[1] = numModules
	u16be(data, 2, hallRatio)
	return TxID(PFSetModuleParallel, deviceAddr), data
}

// EncodeReadSpecialData builds frame 0x1D: request one of the special data
// items (0x01-0x0B). SpecialDataVersion and SpecialDataWorkingMode have
// dedicated reply PFs (0x34/0x35 and 0x36); the rest reply on 0x1C.
func EncodeReadSpecialData(dataType uint8, deviceAddr uint8) (uint32, []byte) {
	data := payload()
	data[0] = dataType
	return TxID(PFReadSpecialData, deviceAddr), data
}
