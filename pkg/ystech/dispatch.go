// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package ystech

import "fmt"

// pfNames maps every PF code defined by the protocol to its document name.
var pfNames = map[uint8]string{
	PFReadProtectionParams:   "ReadProtectionParams",
	PFProtectionParams1Reply: "ProtectionParams1Reply",
	PFProtectionParams2Reply: "ProtectionParams2Reply",
	PFProtectionParams3Reply: "ProtectionParams3Reply",
	PFSetProtectionParams1:   "SetProtectionParams1",
	PFSetProtectionParams2:   "SetProtectionParams2",
	PFSetProtectionParams3:   "SetProtectionParams3",
	PFSetProtectionReply:     "SetProtectionReply",
	PFSetTime:                "SetTime",
	PFSetTimeReply:           "SetTimeReply",
	PFSetWorkingMode:         "SetWorkingMode",
	PFSetModeParams12:        "SetModeParams12",
	PFSetModeParams34:        "SetModeParams34",
	PFSetModeReply:           "SetModeReply",
	PFStartStop:              "StartStop",
	PFStartStopReply:         "StartStopReply",
	PFDCData:                 "DCData",
	PFCapacityEnergy:         "CapacityEnergy",
	PFStatus:                 "Status",
	PFGridVoltage:            "GridVoltage",
	PFGridCurrent:            "GridCurrent",
	PFSystemPower:            "SystemPower",
	PFLoadVoltage:            "LoadVoltage",
	PFLoadCurrent:            "LoadCurrent",
	PFLoadPower:              "LoadPower",
	PFHeartbeat:              "Heartbeat",
	PFSetBusVoltageReactive:  "SetBusVoltageReactive",
	PFSpecialDataReply:       "SpecialDataReply",
	PFReadSpecialData:        "ReadSpecialData",
	PFStoredBusVReactive:     "StoredBusVReactive",
	PFSetIOBUS:               "SetIOBUS",
	PFIOAndAD:                "IOAndAD",
	PFSetPhaseActivePower:    "SetPhaseActivePower",
	PFSetPhaseReactivePower:  "SetPhaseReactivePower",
	PFPhaseAPower:            "PhaseAPower",
	PFPhaseBPower:            "PhaseBPower",
	PFPhaseCPower:            "PhaseCPower",
	PFSetSplitPhaseEnable:    "SetSplitPhaseEnable",
	PFSplitPhaseEnableReply:  "SplitPhaseEnableReply",
	PFSetInverterPhase:       "SetInverterPhase",
	PFInverterPhaseReply:     "InverterPhaseReply",
	PFSetReactiveControl:     "SetReactiveControl",
	PFReactiveControlReply:   "ReactiveControlReply",
	PFSetGridMode:            "SetGridMode",
	PFGridModeReply:          "GridModeReply",
	PFSetModuleParallel:      "SetModuleParallel",
	PFModuleParallelReply:    "ModuleParallelReply",
	PFSetChannelParallel:     "SetChannelParallel",
	PFChannelParallelReply:   "ChannelParallelReply",
	PFSetBusParallel:         "SetBusParallel",
	PFBusParallelReply:       "BusParallelReply",
	PFARMVersion:             "ARMVersion",
	PFDSPVersion:             "DSPVersion",
	PFModeParamsReply:        "ModeParamsReply",
	PFParams12Reply:          "Params12Reply",
	PFParams34Reply:          "Params34Reply",
	PFHighResDC:              "HighResDC",
}

// PFName returns the protocol document name for a PF code.
func PFName(pf uint8) string {
	if name, ok := pfNames[pf]; ok {
		return name
	}
	return fmt.Sprintf("Unknown_0x%02X", pf)
}

// rxDecoders is the static dispatch table for device-to-controller frames.
// Each entry wraps a typed decoder into the uniform `func([]byte) any`
// shape. Frames absent from the table are not decodable (either unknown or
// controller-to-device only).
var rxDecoders = map[uint8]func([]byte) any{
	PFProtectionParams1Reply: func(d []byte) any { return DecodeProtectionParams1(d) },
	PFProtectionParams2Reply: func(d []byte) any { return DecodeProtectionParams2(d) },
	PFProtectionParams3Reply: func(d []byte) any { return DecodeProtectionParams3(d) },
	PFSetProtectionReply:     func(d []byte) any { return DecodeSetReply(d) },
	PFSetTimeReply:           func(d []byte) any { return DecodeSetReply(d) },
	PFSetModeReply:           func(d []byte) any { return DecodeSetReply(d) },
	PFStartStopReply:         func(d []byte) any { return DecodeSetReply(d) },
	PFDCData:                 func(d []byte) any { return DecodeDCData(d) },
	PFCapacityEnergy:         func(d []byte) any { return DecodeCapacityEnergy(d) },
	PFStatus:                 func(d []byte) any { return DecodeStatus(d) },
	PFGridVoltage:            func(d []byte) any { return DecodeGridVoltage(d) },
	PFGridCurrent:            func(d []byte) any { return DecodeGridCurrent(d) },
	PFSystemPower:            func(d []byte) any { return DecodeSystemPower(d) },
	PFLoadVoltage:            func(d []byte) any { return DecodeLoadVoltage(d) },
	PFLoadCurrent:            func(d []byte) any { return DecodeLoadCurrent(d) },
	PFLoadPower:              func(d []byte) any { return DecodeLoadPower(d) },
	PFSpecialDataReply:       func(d []byte) any { return DecodeSetReply(d) },
	PFSplitPhaseEnableReply:  func(d []byte) any { return DecodeSetReply(d) },
	PFInverterPhaseReply:     func(d []byte) any { return DecodeSetReply(d) },
	PFReactiveControlReply:   func(d []byte) any { return DecodeSetReply(d) },
	PFGridModeReply:          func(d []byte) any { return DecodeSetReply(d) },
	PFModuleParallelReply:    func(d []byte) any { return DecodeSetReply(d) },
	PFChannelParallelReply:   func(d []byte) any { return DecodeSetReply(d) },
	PFBusParallelReply:       func(d []byte) any { return DecodeSetReply(d) },
	PFIOAndAD:                func(d []byte) any { return DecodeIOAndAD(d) },
	PFPhaseAPower:            func(d []byte) any { return DecodePhasePower(d, "A") },
	PFPhaseBPower:            func(d []byte) any { return DecodePhasePower(d, "B") },
	PFPhaseCPower:            func(d []byte) any { return DecodePhasePower(d, "C") },
	PFARMVersion:             func(d []byte) any { return DecodeVersion(d) },
	PFDSPVersion:             func(d []byte) any { return DecodeVersion(d) },
	PFModeParamsReply:        func(d []byte) any { return DecodeWorkingModeReply(d) },
	PFHighResDC:              func(d []byte) any { return DecodeHighResDC(d) },
}

// Decode decodes a received frame by the PF embedded in its identifier.
//
// It returns the message kind name and a typed record. An unrecognized PF is
// a normal runtime occurrence, not an error: Decode returns ("", nil, nil)
// and the caller should drop the frame silently. A recognized PF with a
// malformed payload returns a non-nil error and no record.
func Decode(id uint32, data []byte) (string, any, error) {
	pf := ParseID(id).PF

	decoder, ok := rxDecoders[pf]
	if !ok {
		return "", nil, nil
	}
	if len(data) < 8 {
		return "", nil, fmt.Errorf("decode %s: %w (got %d)", PFName(pf), ErrShortPayload, len(data))
	}
	return PFName(pf), decoder(data), nil
}
