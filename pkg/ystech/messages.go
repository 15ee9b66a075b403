// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package ystech

// Typed records for every decoded device-to-controller frame. Field values
// are in engineering units after the per-field scale and offset have been
// applied; the raw wire encoding lives in encode.go / decode.go.

// ProtectionParams1 is the frame 0x02 reply: DC voltage and current limits.
type ProtectionParams1 struct {
	MaxOutputVoltage    float64 // V, resolution 0.1
	MinOutputVoltage    float64 // V, resolution 0.1
	MaxChargeCurrent    float64 // A, resolution 0.1
	MaxDischargeCurrent float64 // A, resolution 0.1
}

// ProtectionParams2 is the frame 0x03 reply: power and AC voltage limits.
type ProtectionParams2 struct {
	MaxChargePower    float64 // kW, resolution 0.1
	MaxDischargePower float64 // kW, resolution 0.1
	ACVoltageUpper    float64 // V, resolution 0.1
	ACVoltageLower    float64 // V, resolution 0.1
}

// ProtectionParams3 is the frame 0x04 reply: frequency limits.
type ProtectionParams3 struct {
	DischargeFreqUpper float64 // Hz, resolution 0.1
	ChargeFreqLower    float64 // Hz, resolution 0.1
	ACFreqUpper        float64 // Hz, resolution 1
	ACFreqLower        float64 // Hz, resolution 1
}

// DCData is the frame 0x11 periodic real-time DC telemetry.
type DCData struct {
	Voltage          float64 // V, resolution 0.1
	Current          float64 // A, resolution 0.1, wire offset +1000
	Power            float64 // kW, resolution 0.1
	InletTemperature float64 // °C, resolution 0.1, wire offset +50
}

// CapacityEnergy is the frame 0x12 ampere-hour and watt-hour counters.
type CapacityEnergy struct {
	Capacity          float64 // Ah, resolution 0.1
	Energy            float64 // Wh, resolution 0.1, 32-bit counter
	OutletTemperature float64 // °C, resolution 0.1, wire offset +50
}

// Status is the frame 0x13 running state and fault code pair.
type Status struct {
	RunningState RunningState
	FaultCode    uint16
}

// IsFault reports whether the device is faulted. Both conditions are
// checked because the state byte and the fault code can disagree for a
// frame or two around a transition.
func (s Status) IsFault() bool {
	return s.RunningState == StateFault || s.FaultCode != 0
}

// FaultDescription returns the description for the current fault code.
func (s Status) FaultDescription() string {
	return FaultDescription(s.FaultCode)
}

// GridVoltage is the frame 0x14 three-phase grid voltages.
type GridVoltage struct {
	U float64 // V, resolution 0.1
	V float64
	W float64
}

// GridCurrent is the frame 0x15 three-phase grid currents plus power factor.
type GridCurrent struct {
	U           float64 // A, resolution 0.1
	V           float64
	W           float64
	PowerFactor float64 // resolution 0.1, signed
}

// SystemPower is the frame 0x16 system power data.
type SystemPower struct {
	ActivePower   float64 // kW, resolution 0.1
	ReactivePower float64 // kVar, resolution 0.1
	ApparentPower float64 // kVA, resolution 0.1
	Frequency     float64 // Hz, resolution 0.1
}

// LoadVoltage is the frame 0x17 three-phase load voltages.
type LoadVoltage struct {
	U float64 // V, resolution 0.1
	V float64
	W float64
}

// LoadCurrent is the frame 0x18 three-phase load currents.
type LoadCurrent struct {
	U float64 // A, resolution 0.1
	V float64
	W float64
}

// LoadPower is the frame 0x19 load-side power data.
type LoadPower struct {
	ActivePower   float64 // kW, resolution 0.1
	ReactivePower float64 // kVar, resolution 0.1
	ApparentPower float64 // kVA, resolution 0.1
}

// PhasePower is the per-phase power data of frames 0x23/0x24/0x25.
type PhasePower struct {
	Phase         string  // "A", "B" or "C"
	ActivePower   float64 // kW, resolution 0.1
	ReactivePower float64 // kVar, resolution 0.1
	ApparentPower float64 // kVA, resolution 0.1
}

// HighResDC is the frame 0x39 high-resolution DC measurements.
type HighResDC struct {
	Voltage float64 // V, resolution 0.001, 32-bit
	Current float64 // A, resolution 0.001, 32-bit, wire offset +1000
}

// IOAndAD is the frame 0x20 IO signal levels and AD sample voltages.
type IOAndAD struct {
	IO1 uint8
	IO2 uint8
	IO3 uint8
	IO4 uint8
	AD1 float64 // V, resolution 0.001
	AD2 float64 // V, resolution 0.001
}

// VersionInfo is the frame 0x34/0x35 ARM or DSP version reply.
type VersionInfo struct {
	HardwareMajor uint8
	HardwareMinor uint8
	HardwarePatch uint8
	SoftwareMajor uint8
	SoftwareMinor uint8
	SoftwarePatch uint8
}

// SetReply is the generic boolean reply to set commands (frames 0x08, 0x0A,
// 0x0E, 0x10, 0x1C and the 0x27-0x33 configuration replies).
type SetReply struct {
	Success bool
}

// WorkingModeReply is the frame 0x36 reply to a read-working-mode request.
type WorkingModeReply struct {
	Mode WorkingMode
}

// DeviceState aggregates the latest decoded value of each periodic
// telemetry frame. The slots reflect different physical frames and carry no
// cross-field consistency guarantee. A zero DeviceState is valid: all slots
// start at their zero values until the first frame of each kind arrives.
type DeviceState struct {
	DC             DCData
	DCHighRes      HighResDC
	CapacityEnergy CapacityEnergy
	Status         Status
	GridVoltage    GridVoltage
	GridCurrent    GridCurrent
	SystemPower    SystemPower
	LoadVoltage    LoadVoltage
	LoadCurrent    LoadCurrent
	LoadPower      LoadPower
	PhaseAPower    PhasePower
	PhaseBPower    PhasePower
	PhaseCPower    PhasePower
	IOAndAD        IOAndAD
}

// NewDeviceState returns a DeviceState with the phase labels pre-filled.
func NewDeviceState() DeviceState {
	return DeviceState{
		PhaseAPower: PhasePower{Phase: "A"},
		PhaseBPower: PhasePower{Phase: "B"},
		PhaseCPower: PhasePower{Phase: "C"},
	}
}

// Apply overwrites the slot matching the record's type, if any. Each update
// replaces the whole slot; records that have no slot (replies, protection
// parameters, versions) leave the state untouched and return false.
func (d *DeviceState) Apply(record any) bool {
	switch r := record.(type) {
	case DCData:
		d.DC = r
	case HighResDC:
		d.DCHighRes = r
	case CapacityEnergy:
		d.CapacityEnergy = r
	case Status:
		d.Status = r
	case GridVoltage:
		d.GridVoltage = r
	case GridCurrent:
		d.GridCurrent = r
	case SystemPower:
		d.SystemPower = r
	case LoadVoltage:
		d.LoadVoltage = r
	case LoadCurrent:
		d.LoadCurrent = r
	case LoadPower:
		d.LoadPower = r
	case PhasePower:
		switch r.Phase {
		case "A":
			d.PhaseAPower = r
		case "B":
			d.PhaseBPower = r
		case "C":
			d.PhaseCPower = r
		default:
			return false
		}
	case IOAndAD:
		d.IOAndAD = r
	default:
		return false
	}
	return true
}
