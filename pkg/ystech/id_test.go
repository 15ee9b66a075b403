// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package ystech

import "testing"

func TestBuildParseID_RoundTrip(t *testing.T) {
	pfs := []uint8{0x00, 0x01, 0x0F, 0x11, 0x1A, 0x7F, 0x80, 0xFF}
	addrs := []uint8{0x00, 0x01, ControllerAddr, DeviceDefaultAddr, 0xFF}
	prios := []uint8{0, 1, 6, 7}

	for _, pf := range pfs {
		for _, ps := range addrs {
			for _, sa := range addrs {
				for _, prio := range prios {
					id := BuildID(pf, ps, sa, prio)
					if id > 0x1FFFFFFF {
						t.Fatalf("BuildID(0x%02X, 0x%02X, 0x%02X, %d) = 0x%X exceeds 29 bits",
							pf, ps, sa, prio, id)
					}
					f := ParseID(id)
					if f.PF != pf || f.PS != ps || f.SA != sa || f.Priority != prio {
						t.Fatalf("round trip mismatch: built (pf=0x%02X ps=0x%02X sa=0x%02X prio=%d), parsed %+v",
							pf, ps, sa, prio, f)
					}
					if f.Reserved != 0 || f.DataPage != 0 {
						t.Fatalf("reserved/data-page bits set in 0x%X: %+v", id, f)
					}
				}
			}
		}
	}
}

func TestBuildID_KnownValues(t *testing.T) {
	tests := []struct {
		name string
		pf   uint8
		ps   uint8
		sa   uint8
		prio uint8
		want uint32
	}{
		{"heartbeat to default device", PFHeartbeat, DeviceDefaultAddr, ControllerAddr, Priority, 0x181AFAB4},
		{"dc data from default device", PFDCData, ControllerAddr, DeviceDefaultAddr, Priority, 0x1811B4FA},
		{"start/stop to device 0x01", PFStartStop, 0x01, ControllerAddr, Priority, 0x180F01B4},
		{"all zero fields", 0x00, 0x00, 0x00, 0, 0x00000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildID(tt.pf, tt.ps, tt.sa, tt.prio)
			if got != tt.want {
				t.Errorf("BuildID() = 0x%08X, want 0x%08X", got, tt.want)
			}
		})
	}
}

func TestBuildID_PriorityMasked(t *testing.T) {
	// Priority is a 3-bit field; higher bits must not leak into the
	// reserved/data-page positions.
	id := BuildID(PFStatus, DeviceDefaultAddr, ControllerAddr, 0xFF)
	f := ParseID(id)
	if f.Priority != 7 {
		t.Errorf("priority = %d, want 7 (masked)", f.Priority)
	}
	if f.Reserved != 0 || f.DataPage != 0 {
		t.Errorf("overflow into reserved/data-page bits: %+v", f)
	}
}

func TestTxRxID(t *testing.T) {
	tx := ParseID(TxID(PFSetWorkingMode, DeviceDefaultAddr))
	if tx.PF != PFSetWorkingMode || tx.PS != DeviceDefaultAddr || tx.SA != ControllerAddr {
		t.Errorf("TxID fields = %+v", tx)
	}
	if tx.Priority != Priority {
		t.Errorf("TxID priority = %d, want %d", tx.Priority, Priority)
	}

	rx := ParseID(RxID(PFStatus, DeviceDefaultAddr))
	if rx.PF != PFStatus || rx.PS != ControllerAddr || rx.SA != DeviceDefaultAddr {
		t.Errorf("RxID fields = %+v", rx)
	}
}
