// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package ystech

import (
	"fmt"
	"sort"
)

// WorkingMode selects the device's control strategy (protocol appendix 1).
type WorkingMode uint8

// Working modes
const (
	ModeDCConstantVoltage               WorkingMode = 0x02
	ModeDCConstantVoltageCurrentLimited WorkingMode = 0x08
	ModeDCConstantCurrent               WorkingMode = 0x21
	ModeDCConstantPower                 WorkingMode = 0x22
	ModeDCConstantResistance            WorkingMode = 0x23
	ModeDCRampCurrent                   WorkingMode = 0x24
	ModeDCRampPower                     WorkingMode = 0x25
	ModeDCConstantMagnification         WorkingMode = 0x26
	ModeDCRampVoltage                   WorkingMode = 0x27
	ModeDCPulseCurrent                  WorkingMode = 0x28
	ModeDCCCCV                          WorkingMode = 0x29
	ModeDCPulseResistance               WorkingMode = 0x2A
	ModeDCPulsePower                    WorkingMode = 0x2B
	ModeDCInternalResistanceTest        WorkingMode = 0x2C
	ModeACConstantPower                 WorkingMode = 0x40
	ModeIndependentInverter             WorkingMode = 0x41
	ModeDCPulseVoltage                  WorkingMode = 0x61
	ModeIdle                            WorkingMode = 0x91
	ModeStandby                         WorkingMode = 0x94
)

var modeNames = map[WorkingMode]string{
	ModeDCConstantVoltage:               "DC_CONSTANT_VOLTAGE",
	ModeDCConstantVoltageCurrentLimited: "DC_CONSTANT_VOLTAGE_CURRENT_LIMITING",
	ModeDCConstantCurrent:               "DC_CONSTANT_CURRENT",
	ModeDCConstantPower:                 "DC_CONSTANT_POWER",
	ModeDCConstantResistance:            "DC_CONSTANT_RESISTANCE",
	ModeDCRampCurrent:                   "DC_RAMP_CURRENT",
	ModeDCRampPower:                     "DC_RAMP_POWER",
	ModeDCConstantMagnification:         "DC_CONSTANT_MAGNIFICATION",
	ModeDCRampVoltage:                   "DC_RAMP_VOLTAGE",
	ModeDCPulseCurrent:                  "DC_PULSE_CURRENT",
	ModeDCCCCV:                          "DC_CC_CV",
	ModeDCPulseResistance:               "DC_PULSE_RESISTANCE",
	ModeDCPulsePower:                    "DC_PULSE_POWER",
	ModeDCInternalResistanceTest:        "DC_INTERNAL_RESISTANCE_TEST",
	ModeACConstantPower:                 "AC_CONSTANT_POWER",
	ModeIndependentInverter:             "INDEPENDENT_INVERTER",
	ModeDCPulseVoltage:                  "DC_PULSE_VOLTAGE",
	ModeIdle:                            "IDLE",
	ModeStandby:                         "STANDBY",
}

// String returns the protocol document's name for the mode.
func (m WorkingMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(m))
}

// Valid reports whether m is a mode defined by the protocol.
func (m WorkingMode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// ModeByName looks up a working mode by its protocol document name.
func ModeByName(name string) (WorkingMode, bool) {
	for m, n := range modeNames {
		if n == name {
			return m, true
		}
	}
	return 0, false
}

// ModeParam describes one setpoint parameter of a working mode. The raw
// encoding of a parameter is a signed 32-bit count of Resolution units, so
// the resolution must be looked up per mode before encoding or decoding a
// set-parameters frame.
type ModeParam struct {
	Name       string
	Unit       string
	Resolution float64
}

// modeParams maps each working mode to its ordered parameter list (0-4
// entries). The physical frames 0x0C/0x0D carry two i32 values each and are
// reused across all modes; only this table gives the values meaning.
var modeParams = map[WorkingMode][]ModeParam{
	ModeDCConstantVoltage: {
		{"voltage_setpoint", "V", 0.001},
	},
	ModeDCConstantVoltageCurrentLimited: {
		{"voltage_setpoint", "V", 0.001},
		{"max_charge_current", "A", 0.001},
		{"max_discharge_current", "A", 0.001},
	},
	ModeDCConstantCurrent: {
		{"current_setpoint", "A", 0.001},
	},
	ModeDCConstantPower: {
		{"power_setpoint", "W", 0.001},
	},
	ModeDCConstantResistance: {
		{"resistance_setpoint", "ohm", 0.001},
	},
	ModeDCRampCurrent: {
		{"start_current", "A", 0.001},
		{"end_current", "A", 0.001},
		{"cycle_time", "s", 0.001},
	},
	ModeDCRampPower: {
		{"start_power", "W", 0.001},
		{"end_power", "W", 0.001},
		{"cycle_time", "s", 0.001},
	},
	ModeDCConstantMagnification: {
		{"magnification", "", 0.001},
	},
	ModeDCRampVoltage: {
		{"start_voltage", "V", 0.001},
		{"end_voltage", "V", 0.001},
		{"cycle_time", "s", 0.001},
	},
	ModeDCPulseCurrent: {
		{"current_1", "A", 0.001},
		{"current_2", "A", 0.001},
		{"cycle_time", "s", 0.01},
		{"duty_cycle", "%", 0.01},
	},
	ModeDCCCCV: {
		{"voltage_setpoint", "V", 0.001},
		{"current_setpoint", "A", 0.001},
		{"end_current", "A", 0.001},
	},
	ModeDCPulseResistance: {
		{"resistance_1", "ohm", 0.001},
		{"resistance_2", "ohm", 0.001},
		{"cycle_time", "s", 0.01},
		{"duty_cycle", "%", 0.01},
	},
	ModeDCPulsePower: {
		{"power_1", "W", 0.001},
		{"power_2", "W", 0.001},
		{"cycle_time", "s", 0.01},
		{"duty_cycle", "%", 0.01},
	},
	ModeDCInternalResistanceTest: {
		{"current_setpoint", "A", 0.001},
		{"time_1", "s", 0.001},
		{"time_2", "s", 0.001},
		{"time_3", "s", 0.001},
	},
	ModeACConstantPower: {
		{"active_power", "W", 0.001},
		{"reactive_power", "Var", 0.001},
	},
	ModeIndependentInverter: {
		{"inverter_voltage", "V", 0.001},
		{"inverter_frequency", "Hz", 0.001},
	},
	ModeDCPulseVoltage: {
		{"voltage_1", "V", 0.001},
		{"voltage_2", "V", 0.001},
		{"cycle_time", "s", 0.01},
		{"duty_cycle", "%", 0.01},
	},
	ModeIdle:    {},
	ModeStandby: {},
}

// AllModes returns every defined working mode in numeric order.
func AllModes() []WorkingMode {
	modes := make([]WorkingMode, 0, len(modeNames))
	for m := range modeNames {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

// Params returns the ordered parameter definitions for the mode. Unknown
// modes return nil, which encoders treat as "all parameters at 0.001".
func (m WorkingMode) Params() []ModeParam {
	return modeParams[m]
}

// paramResolution returns the resolution of parameter i of the mode,
// defaulting to 0.001 when the mode defines fewer parameters.
func paramResolution(mode WorkingMode, i int) float64 {
	params := modeParams[mode]
	if i < len(params) {
		return params[i].Resolution
	}
	return 0.001
}
