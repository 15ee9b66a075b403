// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

// Package simpcs simulates a YSTECH PCS device on a virtual CAN bus. It
// sends the periodic telemetry cycle, answers commands like the real
// firmware and trips the CAN fault when the controller's heartbeat stops.
// It backs the --dry-run mode and the session-layer tests.
package simpcs

import (
	"encoding/binary"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/kestrel-grid/pcsctl/pkg/canbus"
	"github.com/kestrel-grid/pcsctl/pkg/ystech"
)

// heartbeatTimeout is how long the simulated device tolerates controller
// silence before latching the CAN fault, per the protocol document.
const heartbeatTimeout = 5 * time.Second

// faultCANTimeout is the code latched on heartbeat loss.
const faultCANTimeout = 0x800D

// Device is a simulated PCS attached to a transport.
type Device struct {
	transport canbus.Transport
	log       *slog.Logger
	addr      uint8
	rng       *rand.Rand

	mu            sync.Mutex
	runningState  ystech.RunningState
	workingMode   ystech.WorkingMode
	faultCode     uint16
	started       bool
	lastHeartbeat time.Time

	dcVoltage  float64
	dcCurrent  float64
	dcPower    float64
	inletTemp  float64
	outletTemp float64
	capacity   float64
	energy     float64

	gridVoltage [3]float64
	gridCurrent [3]float64
	powerFactor float64
	frequency   float64
	activePower float64

	maxOutputVoltage    float64
	minOutputVoltage    float64
	maxChargeCurrent    float64
	maxDischargeCurrent float64

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a simulated device on the transport with realistic idle
// values. logger may be nil.
func New(transport canbus.Transport, addr uint8, logger *slog.Logger) *Device {
	if logger == nil {
		logger = slog.Default()
	}
	return &Device{
		transport: transport,
		log:       logger,
		addr:      addr,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),

		runningState: ystech.StateStandby,
		workingMode:  ystech.ModeIdle,

		dcVoltage:   400.0,
		inletTemp:   35.0,
		outletTemp:  40.0,
		gridVoltage: [3]float64{230.0, 230.0, 230.0},
		powerFactor: 0.98,
		frequency:   50.0,

		maxOutputVoltage:    800.0,
		minOutputVoltage:    50.0,
		maxChargeCurrent:    150.0,
		maxDischargeCurrent: 150.0,
	}
}

// Start launches the device loop.
func (d *Device) Start() {
	d.mu.Lock()
	d.lastHeartbeat = time.Now()
	d.mu.Unlock()

	d.stop = make(chan struct{})
	d.wg.Add(1)
	go d.run()
	d.log.Info("simulated device started", "addr", d.addr)
}

// Stop halts the device loop.
func (d *Device) Stop() {
	close(d.stop)
	d.wg.Wait()
	d.log.Info("simulated device stopped")
}

// InjectFault latches a fault code and puts the device in the fault state,
// as if a protection had tripped.
func (d *Device) InjectFault(code uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faultCode = code
	d.runningState = ystech.StateFault
	d.started = false
	d.dcCurrent = 0
}

// Started reports whether the device is currently enabled.
func (d *Device) Started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

// FaultCode returns the currently latched fault code.
func (d *Device) FaultCode() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.faultCode
}

// WorkingMode returns the currently configured working mode.
func (d *Device) WorkingMode() ystech.WorkingMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.workingMode
}

func (d *Device) run() {
	defer d.wg.Done()

	nextPeriodic := time.Now()
	for {
		select {
		case <-d.stop:
			return
		default:
		}

		frame, err := d.transport.Recv(10 * time.Millisecond)
		if err == nil && frame.Extended {
			fields := ystech.ParseID(frame.ID)
			// Only commands from the controller are acted upon.
			if fields.SA == ystech.ControllerAddr {
				d.handleCommand(fields.PF, frame.Data)
			}
		}

		d.mu.Lock()
		if d.started && time.Since(d.lastHeartbeat) > heartbeatTimeout {
			d.log.Warn("heartbeat timeout, latching CAN fault")
			d.faultCode = faultCANTimeout
			d.runningState = ystech.StateFault
			d.started = false
			d.dcCurrent = 0
		}
		d.mu.Unlock()

		if now := time.Now(); !now.Before(nextPeriodic) {
			d.sendPeriodicFrames()
			nextPeriodic = now.Add(ystech.HeartbeatInterval)
		}
	}
}

// send transmits one device-to-controller frame, zero-padded to 8 bytes.
func (d *Device) send(pf uint8, data []byte) {
	padded := make([]byte, 8)
	copy(padded, data)
	id := ystech.BuildID(pf, ystech.ControllerAddr, d.addr, ystech.Priority)
	if err := d.transport.Send(canbus.Frame{ID: id, Data: padded, Extended: true}); err != nil {
		d.log.Debug("sim send failed", "pf", ystech.PFName(pf), "err", err)
	}
}

// noise perturbs a value by up to ±0.5%.
func (d *Device) noise(v float64) float64 {
	return v + v*(d.rng.Float64()-0.5)/100
}

func u16be(v float64, res float64) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(v/res))
	return b
}

// sendPeriodicFrames emits one 200 ms telemetry cycle.
func (d *Device) sendPeriodicFrames() {
	d.mu.Lock()
	if d.started {
		if d.dcCurrent == 0 {
			d.dcCurrent = 10.0
		}
		d.dcCurrent = d.noise(d.dcCurrent)
		d.dcPower = d.dcVoltage * d.dcCurrent / 1000.0
		d.activePower = d.dcPower * 0.97
		d.inletTemp = d.noise(35.0 + d.dcCurrent*0.05)
		d.outletTemp = d.inletTemp + 5.0
		d.capacity += d.dcCurrent * 0.2 / 3600
		d.energy += d.dcPower * 0.2 * 1000 / 3600
		for i := range d.gridCurrent {
			d.gridCurrent[i] = d.noise(d.activePower * 1000 / 230 / 3)
		}
	}

	dcData := append(append(u16be(d.noise(d.dcVoltage), 0.1), u16be(d.dcCurrent+1000.0, 0.1)...),
		append(u16be(d.dcPower, 0.1), u16be(d.inletTemp+50.0, 0.1)...)...)

	capEnergy := make([]byte, 8)
	binary.BigEndian.PutUint16(capEnergy[0:], uint16(d.capacity/0.1))
	binary.BigEndian.PutUint32(capEnergy[2:], uint32(d.energy/0.1))
	binary.BigEndian.PutUint16(capEnergy[6:], uint16((d.outletTemp+50.0)/0.1))

	status := make([]byte, 8)
	status[0] = uint8(d.runningState)
	binary.BigEndian.PutUint16(status[2:], d.faultCode)

	gridV := append(append(u16be(d.noise(d.gridVoltage[0]), 0.1), u16be(d.noise(d.gridVoltage[1]), 0.1)...),
		u16be(d.noise(d.gridVoltage[2]), 0.1)...)

	gridI := make([]byte, 8)
	for i := range d.gridCurrent {
		binary.BigEndian.PutUint16(gridI[i*2:], uint16(d.gridCurrent[i]/0.1))
	}
	binary.BigEndian.PutUint16(gridI[6:], uint16(int16(d.powerFactor/0.1)))

	sysPower := append(append(u16be(d.activePower, 0.1), u16be(0, 0.1)...),
		append(u16be(d.activePower*1.02, 0.1), u16be(d.noise(d.frequency), 0.1)...)...)

	highRes := make([]byte, 8)
	binary.BigEndian.PutUint32(highRes[0:], uint32(d.noise(d.dcVoltage)/0.001))
	binary.BigEndian.PutUint32(highRes[4:], uint32((d.dcCurrent+1000.0)/0.001))
	d.mu.Unlock()

	d.send(ystech.PFDCData, dcData)
	d.send(ystech.PFCapacityEnergy, capEnergy)
	d.send(ystech.PFStatus, status)
	d.send(ystech.PFGridVoltage, gridV)
	d.send(ystech.PFGridCurrent, gridI)
	d.send(ystech.PFSystemPower, sysPower)
	d.send(ystech.PFHighResDC, highRes)
}

// handleCommand mimics the firmware's reply behavior for each command PF.
func (d *Device) handleCommand(pf uint8, data []byte) {
	if len(data) < 8 {
		return
	}

	switch pf {
	case ystech.PFReadProtectionParams:
		d.mu.Lock()
		p1 := append(append(u16be(d.maxOutputVoltage, 0.1), u16be(d.minOutputVoltage, 0.1)...),
			append(u16be(d.maxChargeCurrent, 0.1), u16be(d.maxDischargeCurrent, 0.1)...)...)
		d.mu.Unlock()
		switch data[0] {
		case 0x01:
			d.send(ystech.PFProtectionParams1Reply, p1)
		case 0x02:
			d.send(ystech.PFProtectionParams2Reply, []byte{0x04, 0xB0, 0x04, 0xB0, 0x0A, 0x50, 0x06, 0xE0})
		case 0x03:
			d.send(ystech.PFProtectionParams3Reply, []byte{0x02, 0x26, 0x01, 0xC2, 55, 45, 0, 0})
		}

	case ystech.PFSetProtectionParams1:
		d.mu.Lock()
		d.maxOutputVoltage = float64(binary.BigEndian.Uint16(data[0:])) * 0.1
		d.minOutputVoltage = float64(binary.BigEndian.Uint16(data[2:])) * 0.1
		d.maxChargeCurrent = float64(binary.BigEndian.Uint16(data[4:])) * 0.1
		d.maxDischargeCurrent = float64(binary.BigEndian.Uint16(data[6:])) * 0.1
		d.mu.Unlock()
		// Result byte lives in position 1 for this reply, after the type
		// selector. Real firmware does this; keep the quirk.
		d.send(ystech.PFSetProtectionReply, []byte{0x01, 0x01})

	case ystech.PFSetWorkingMode:
		mode := ystech.WorkingMode(data[0])
		if mode.Valid() {
			d.mu.Lock()
			d.workingMode = mode
			d.mu.Unlock()
			d.send(ystech.PFSetModeReply, []byte{0x01})
		} else {
			d.send(ystech.PFSetModeReply, []byte{0x00})
		}

	case ystech.PFSetModeParams12, ystech.PFSetModeParams34:
		d.send(ystech.PFSetModeReply, []byte{0x01})

	case ystech.PFStartStop:
		d.mu.Lock()
		if data[1] == 1 {
			d.faultCode = 0
			if d.runningState == ystech.StateFault {
				d.runningState = ystech.StateStandby
			}
		}
		switch data[0] {
		case 1:
			d.started = true
			d.runningState = ystech.StateConstantVoltage
			d.dcCurrent = 50.0
		case 0:
			d.started = false
			d.runningState = ystech.StateStandby
			d.dcCurrent = 0
		}
		d.mu.Unlock()
		d.send(ystech.PFStartStopReply, []byte{0x01})

	case ystech.PFSetTime:
		d.send(ystech.PFSetTimeReply, []byte{0x01})

	case ystech.PFHeartbeat:
		d.mu.Lock()
		d.lastHeartbeat = time.Now()
		d.mu.Unlock()

	case ystech.PFReadSpecialData:
		switch data[0] {
		case ystech.SpecialDataVersion:
			d.send(ystech.PFARMVersion, []byte{1, 2, 3, 2, 1, 38})
			d.send(ystech.PFDSPVersion, []byte{1, 2, 3, 2, 1, 38})
		case ystech.SpecialDataWorkingMode:
			d.mu.Lock()
			mode := d.workingMode
			d.mu.Unlock()
			d.send(ystech.PFModeParamsReply, []byte{uint8(mode)})
		default:
			d.send(ystech.PFSpecialDataReply, []byte{data[0], 0x01})
		}
	}
}
