// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package ystech

import "fmt"

// RunningState is the device state reported in the status frame (0x13).
// The controller never enforces transitions; the value is informational.
type RunningState uint8

// Running states
const (
	StateLongPause       RunningState = 1
	StateShortStop       RunningState = 2
	StateLongIdle        RunningState = 3
	StateShortIdle       RunningState = 4
	StateStop            RunningState = 5
	StateFault           RunningState = 6
	StateACConstantPower RunningState = 7
	StatePowerFailure    RunningState = 8
	StateSelfCheck       RunningState = 9
	StateSoftStart       RunningState = 10
	StateConstantVoltage RunningState = 11
	StateConstantCurrent RunningState = 12
	StateStandby         RunningState = 13
	StateOffGridInverter RunningState = 14
)

var stateNames = map[RunningState]string{
	StateLongPause:       "LONG_PAUSE",
	StateShortStop:       "SHORT_STOP",
	StateLongIdle:        "LONG_IDLE",
	StateShortIdle:       "SHORT_IDLE",
	StateStop:            "STOP",
	StateFault:           "FAULT",
	StateACConstantPower: "AC_CONSTANT_POWER",
	StatePowerFailure:    "POWER_FAILURE",
	StateSelfCheck:       "SELF_CHECK",
	StateSoftStart:       "SOFT_START",
	StateConstantVoltage: "CONSTANT_VOLTAGE",
	StateConstantCurrent: "CONSTANT_CURRENT",
	StateStandby:         "STANDBY",
	StateOffGridInverter: "OFF_GRID_INVERTER",
}

// String returns the protocol document's name for the state.
func (s RunningState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
}

// Active reports whether the state is one of the power-delivering states in
// which an operator would expect a graceful stop before disconnecting.
func (s RunningState) Active() bool {
	switch s {
	case StateConstantVoltage, StateConstantCurrent, StateACConstantPower, StateOffGridInverter:
		return true
	}
	return false
}

// FaultCodes maps numeric fault codes to descriptions (protocol appendix 2).
var FaultCodes = map[uint16]string{
	0x800D: "CAN1 equipment failure",
	0x800E: "CAN2 equipment failure",
	0x800F: "485-1 communication failure",
	0x8010: "485-2 communication failure",
	0x8011: "DSP soft start timeout",
	0x8012: "Emergency stop button pressed",
	0x8013: "Gun head temperature exceeds limit",
	0x8014: "Detection point 1 voltage abnormality",
	0x8015: "Network disconnection",

	// Battery / DC side
	1:  "Battery voltage too high / over limit",
	2:  "Battery voltage low / over limit",
	3:  "Battery reverse connection",
	4:  "Current over limit",
	5:  "Overtemperature fault (>90C)",
	6:  "Soft start timeout (>10s)",
	15: "Overcurrent count exceeds limit",
	16: "Overvoltage count exceeds limit",
	17: "Power limit exceeded",
	18: "Emergency stop button pressed",
	26: "Slave failure",

	// AC / grid side
	257: "High grid voltage fault (>264V)",
	258: "Low grid voltage fault (<176V)",
	265: "Input voltage negative phase sequence",
	280: "Radiator temperature high fault (>90C)",
}

// FaultDescription returns the human-readable description for a fault code.
// Code 0 means no fault; unknown codes get a factory-contact fallback.
func FaultDescription(code uint16) string {
	if code == 0 {
		return "No fault"
	}
	if desc, ok := FaultCodes[code]; ok {
		return desc
	}
	return fmt.Sprintf("Internal failure (code 0x%04X) - contact factory", code)
}
