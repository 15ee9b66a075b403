// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package ystech

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDecodeDCData(t *testing.T) {
	// raw voltage 4000, current 10500, power 200, inlet temp 850:
	// 400.0 V, 50.0 A (offset -1000), 20.0 kW, 35.0 C (offset -50).
	data := []byte{0x0F, 0xA0, 0x29, 0x04, 0x00, 0xC8, 0x03, 0x52}
	dc := DecodeDCData(data)
	if !almostEqual(dc.Voltage, 400.0) {
		t.Errorf("voltage = %v, want 400.0", dc.Voltage)
	}
	if !almostEqual(dc.Current, 50.0) {
		t.Errorf("current = %v, want 50.0", dc.Current)
	}
	if !almostEqual(dc.Power, 20.0) {
		t.Errorf("power = %v, want 20.0", dc.Power)
	}
	if !almostEqual(dc.InletTemperature, 35.0) {
		t.Errorf("inlet temperature = %v, want 35.0", dc.InletTemperature)
	}
}

func TestDecodeDCData_NegativeRanges(t *testing.T) {
	// raw current 0 is -1000 A, raw temp 0 is -50 C.
	dc := DecodeDCData(make([]byte, 8))
	if !almostEqual(dc.Current, -1000.0) {
		t.Errorf("current = %v, want -1000.0", dc.Current)
	}
	if !almostEqual(dc.InletTemperature, -50.0) {
		t.Errorf("inlet temperature = %v, want -50.0", dc.InletTemperature)
	}
}

func TestDecodeStatus(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		wantState RunningState
		wantCode  uint16
		wantFault bool
	}{
		{
			name:      "constant voltage no fault",
			data:      []byte{11, 0, 0x00, 0x00, 0, 0, 0, 0},
			wantState: StateConstantVoltage,
			wantCode:  0,
			wantFault: false,
		},
		{
			name:      "fault state with can timeout code",
			data:      []byte{6, 0, 0x80, 0x0D, 0, 0, 0, 0},
			wantState: StateFault,
			wantCode:  0x800D,
			wantFault: true,
		},
		{
			name:      "nonzero code without fault state",
			data:      []byte{5, 0, 0x00, 0x21, 0, 0, 0, 0},
			wantState: StateStop,
			wantCode:  0x0021,
			wantFault: true,
		},
		{
			name:      "fault state with zero code",
			data:      []byte{6, 0, 0x00, 0x00, 0, 0, 0, 0},
			wantState: StateFault,
			wantCode:  0,
			wantFault: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DecodeStatus(tt.data)
			if s.RunningState != tt.wantState {
				t.Errorf("state = %v, want %v", s.RunningState, tt.wantState)
			}
			if s.FaultCode != tt.wantCode {
				t.Errorf("fault code = 0x%04X, want 0x%04X", s.FaultCode, tt.wantCode)
			}
			if s.IsFault() != tt.wantFault {
				t.Errorf("IsFault() = %v, want %v", s.IsFault(), tt.wantFault)
			}
		})
	}
}

func TestFaultDescription(t *testing.T) {
	if got := FaultDescription(0); got != "No fault" {
		t.Errorf("FaultDescription(0) = %q", got)
	}
	if got := FaultDescription(0x800D); got != "CAN1 equipment failure" {
		t.Errorf("FaultDescription(0x800D) = %q", got)
	}
	if got := FaultDescription(0xBEEF); got != "Internal failure (code 0xBEEF) - contact factory" {
		t.Errorf("FaultDescription(0xBEEF) = %q", got)
	}
}

func TestDecodeGridCurrent_SignedPowerFactor(t *testing.T) {
	// raw power factor -5 (0xFFFB) decodes to -0.5.
	data := []byte{0x00, 0x64, 0x00, 0x64, 0x00, 0x64, 0xFF, 0xFB}
	g := DecodeGridCurrent(data)
	if !almostEqual(g.U, 10.0) || !almostEqual(g.V, 10.0) || !almostEqual(g.W, 10.0) {
		t.Errorf("currents = %v/%v/%v, want 10.0 each", g.U, g.V, g.W)
	}
	if !almostEqual(g.PowerFactor, -0.5) {
		t.Errorf("power factor = %v, want -0.5", g.PowerFactor)
	}
}

func TestDecodeCapacityEnergy_32BitEnergy(t *testing.T) {
	// Energy counter spans bytes 2-5 as a u32: raw 100000 is 10000.0 Wh.
	data := []byte{0x01, 0x2C, 0x00, 0x01, 0x86, 0xA0, 0x03, 0x20}
	ce := DecodeCapacityEnergy(data)
	if !almostEqual(ce.Capacity, 30.0) {
		t.Errorf("capacity = %v, want 30.0", ce.Capacity)
	}
	if !almostEqual(ce.Energy, 10000.0) {
		t.Errorf("energy = %v, want 10000.0", ce.Energy)
	}
	if !almostEqual(ce.OutletTemperature, 30.0) {
		t.Errorf("outlet temperature = %v, want 30.0", ce.OutletTemperature)
	}
}

func TestDecodeHighResDC(t *testing.T) {
	// raw voltage 400123 is 400.123 V; raw current 1050000 is 50.0 A after
	// the offset.
	data := []byte{0x00, 0x06, 0x1A, 0xFB, 0x00, 0x10, 0x05, 0x90}
	hr := DecodeHighResDC(data)
	if !almostEqual(hr.Voltage, 400.123) {
		t.Errorf("voltage = %v, want 400.123", hr.Voltage)
	}
	if !almostEqual(hr.Current, 50.0) {
		t.Errorf("current = %v, want 50.0", hr.Current)
	}
}

func TestDecodeVersion(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 0, 0}
	v := DecodeVersion(data)
	want := VersionInfo{1, 2, 3, 4, 5, 6}
	if v != want {
		t.Errorf("version = %+v, want %+v", v, want)
	}
}

func TestDecodeSetReply_EitherResultByte(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"result in byte 0", []byte{0x01, 0x00, 0, 0, 0, 0, 0, 0}, true},
		{"result in byte 1 after type selector", []byte{0x05, 0x01, 0, 0, 0, 0, 0, 0}, true},
		{"both bytes set", []byte{0x01, 0x01, 0, 0, 0, 0, 0, 0}, true},
		{"failure", []byte{0x00, 0x00, 0, 0, 0, 0, 0, 0}, false},
		{"non-sentinel values", []byte{0x02, 0x02, 0, 0, 0, 0, 0, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeSetReply(tt.data).Success; got != tt.want {
				t.Errorf("Success = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeWorkingModeReply(t *testing.T) {
	data := []byte{0x21, 0, 0, 0, 0, 0, 0, 0}
	r := DecodeWorkingModeReply(data)
	if r.Mode != ModeDCConstantCurrent {
		t.Errorf("mode = %v, want %v", r.Mode, ModeDCConstantCurrent)
	}
}

func TestScaleRoundTrip(t *testing.T) {
	// Encoding then decoding a protection parameter must land within one
	// resolution step of the original value (truncation loses at most one
	// step).
	values := []float64{0, 0.1, 12.3, 99.99, 500.0, 812.7, 6553.5}
	for _, v := range values {
		_, data := EncodeSetProtectionParams1(v, v, v, v, DeviceDefaultAddr)
		p := DecodeProtectionParams1(data)
		for _, got := range []float64{p.MaxOutputVoltage, p.MinOutputVoltage, p.MaxChargeCurrent, p.MaxDischargeCurrent} {
			if math.Abs(got-v) > 0.1 {
				t.Errorf("round trip of %v gave %v, off by more than one step", v, got)
			}
		}
	}
}
