// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package pcs

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-grid/pcsctl/pkg/canbus"
	"github.com/kestrel-grid/pcsctl/pkg/simpcs"
	"github.com/kestrel-grid/pcsctl/pkg/ystech"
)

// newTestRig wires a controller and a simulated device to the same virtual
// bus with timeouts tightened for tests.
func newTestRig(t *testing.T) (*Controller, *simpcs.Device) {
	t.Helper()

	hub := canbus.NewHub()
	t.Cleanup(hub.Close)

	dev := simpcs.New(hub.Attach("device"), ystech.DeviceDefaultAddr, nil)
	dev.Start()
	t.Cleanup(dev.Stop)

	ctrl := New(hub.Attach("controller"), Config{
		RxTimeout:      50 * time.Millisecond,
		CommandTimeout: 2 * time.Second,
		SettleDelay:    50 * time.Millisecond,
		AutoHeartbeat:  true,
	}, nil, nil)
	ctrl.Start()
	t.Cleanup(ctrl.Stop)

	return ctrl, dev
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

func TestController_EnableDisable(t *testing.T) {
	ctrl, dev := newTestRig(t)

	require.NoError(t, ctrl.Enable(false))
	assert.True(t, dev.Started())

	waitFor(t, 2*time.Second, func() bool {
		return ctrl.State().Status.RunningState == ystech.StateConstantVoltage
	}, "device should report constant voltage state")

	require.NoError(t, ctrl.Disable())
	assert.False(t, dev.Started())

	waitFor(t, 2*time.Second, func() bool {
		return ctrl.State().Status.RunningState == ystech.StateStandby
	}, "device should report standby state")
}

func TestController_TelemetryAggregation(t *testing.T) {
	ctrl, _ := newTestRig(t)

	waitFor(t, 2*time.Second, func() bool {
		s := ctrl.State()
		return s.DC.Voltage > 390 && s.DC.Voltage < 410 &&
			s.GridVoltage.U > 220 && s.GridVoltage.U < 240
	}, "telemetry slots should fill from the periodic cycle")

	assert.Less(t, ctrl.SecondsSinceLastRx(), 2.0)
}

func TestController_SetWorkingMode(t *testing.T) {
	ctrl, dev := newTestRig(t)

	require.NoError(t, ctrl.SetWorkingMode(ystech.ModeDCConstantCurrent))
	assert.Equal(t, ystech.ModeDCConstantCurrent, dev.WorkingMode())

	// The simulator rejects undefined modes, like the firmware.
	err := ctrl.SetWorkingMode(ystech.WorkingMode(0x55))
	assert.ErrorIs(t, err, ErrRejected)
}

func TestController_SetModeParameters(t *testing.T) {
	ctrl, _ := newTestRig(t)

	// One parameter: only the first setpoint frame goes out.
	require.NoError(t, ctrl.SetModeParameters(ystech.ModeDCConstantVoltage, 400.0))

	// Three parameters: frames 0x0C and 0x0D, one acknowledgement.
	require.NoError(t, ctrl.SetModeParameters(
		ystech.ModeDCConstantVoltageCurrentLimited, 400.0, 50.0, 25.0))

	err := ctrl.SetModeParameters(ystech.ModeDCConstantVoltage, 1, 2, 3, 4, 5)
	assert.Error(t, err)
}

func TestController_ReadProtectionParams(t *testing.T) {
	ctrl, _ := newTestRig(t)

	record, err := ctrl.ReadProtectionParams(0x01)
	require.NoError(t, err)
	p1, ok := record.(ystech.ProtectionParams1)
	require.True(t, ok, "got %T", record)
	assert.InDelta(t, 800.0, p1.MaxOutputVoltage, 0.01)
	assert.InDelta(t, 50.0, p1.MinOutputVoltage, 0.01)
	assert.InDelta(t, 150.0, p1.MaxChargeCurrent, 0.01)

	record, err = ctrl.ReadProtectionParams(0x03)
	require.NoError(t, err)
	p3, ok := record.(ystech.ProtectionParams3)
	require.True(t, ok, "got %T", record)
	assert.InDelta(t, 55.0, p3.ACFreqUpper, 0.01)
	assert.InDelta(t, 45.0, p3.ACFreqLower, 0.01)

	_, err = ctrl.ReadProtectionParams(0x09)
	assert.Error(t, err)
}

func TestController_SetProtectionParams(t *testing.T) {
	ctrl, _ := newTestRig(t)

	require.NoError(t, ctrl.SetProtectionParams1(750.0, 60.0, 100.0, 100.0))

	record, err := ctrl.ReadProtectionParams(0x01)
	require.NoError(t, err)
	p1 := record.(ystech.ProtectionParams1)
	assert.InDelta(t, 750.0, p1.MaxOutputVoltage, 0.01)
	assert.InDelta(t, 100.0, p1.MaxChargeCurrent, 0.01)
}

func TestController_ReadVersions(t *testing.T) {
	ctrl, _ := newTestRig(t)

	arm, dsp, err := ctrl.ReadVersions()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), arm.HardwareMajor)
	assert.Equal(t, uint8(38), arm.SoftwarePatch)
	assert.Equal(t, arm, dsp)
}

func TestController_ReadWorkingMode(t *testing.T) {
	ctrl, _ := newTestRig(t)

	require.NoError(t, ctrl.SetWorkingMode(ystech.ModeDCCCCV))
	mode, err := ctrl.ReadWorkingMode()
	require.NoError(t, err)
	assert.Equal(t, ystech.ModeDCCCCV, mode)
}

func TestController_SetTime(t *testing.T) {
	ctrl, _ := newTestRig(t)
	require.NoError(t, ctrl.SetTime(time.Date(2026, 8, 29, 12, 30, 0, 0, time.UTC)))
}

func TestController_ReplyTimeout(t *testing.T) {
	// No device on the bus: commands must fail with a timeout, not hang.
	hub := canbus.NewHub()
	defer hub.Close()

	ctrl := New(hub.Attach("controller"), Config{
		RxTimeout:      20 * time.Millisecond,
		CommandTimeout: 100 * time.Millisecond,
	}, nil, nil)
	ctrl.Start()
	defer ctrl.Stop()

	start := time.Now()
	err := ctrl.Enable(false)
	assert.ErrorIs(t, err, ErrReplyTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestController_FaultRecovery(t *testing.T) {
	ctrl, dev := newTestRig(t)

	dev.InjectFault(0x800D)
	waitFor(t, 2*time.Second, func() bool {
		return ctrl.State().Status.IsFault()
	}, "controller should observe the injected fault")

	code, desc := ctrl.Faults()
	assert.Equal(t, uint16(0x800D), code)
	assert.Equal(t, "CAN1 equipment failure", desc)

	// Enable with fault clearing: reset, settle, then start.
	require.NoError(t, ctrl.Enable(true))
	assert.True(t, dev.Started())
	assert.Equal(t, uint16(0), dev.FaultCode())

	waitFor(t, 2*time.Second, func() bool {
		s := ctrl.State().Status
		return !s.IsFault() && s.RunningState == ystech.StateConstantVoltage
	}, "fault should clear and device should run")
}

func TestController_ResetFaults(t *testing.T) {
	ctrl, dev := newTestRig(t)

	dev.InjectFault(0x0021)
	waitFor(t, 2*time.Second, func() bool {
		return ctrl.State().Status.IsFault()
	}, "controller should observe the injected fault")

	require.NoError(t, ctrl.ResetFaults())
	assert.Equal(t, uint16(0), dev.FaultCode())
	assert.False(t, dev.Started(), "reset must not start the device")
}

func TestController_ObserverOrdering(t *testing.T) {
	ctrl, _ := newTestRig(t)

	var mu sync.Mutex
	var sawDCData bool
	var stateCurrent bool

	ctrl.AddObserver(func(name string, record any) {
		if name != "DCData" {
			return
		}
		dc := record.(ystech.DCData)
		// The aggregated state is updated before observers run.
		mu.Lock()
		sawDCData = true
		stateCurrent = ctrl.State().DC == dc
		mu.Unlock()
	})

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return sawDCData
	}, "observer should see DC telemetry")

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, stateCurrent, "state must be updated before the observer runs")
}

func TestController_ObserverPanicContained(t *testing.T) {
	ctrl, _ := newTestRig(t)

	var mu sync.Mutex
	frames := 0

	// A broken observer must not take down the receive loop or starve
	// the observers registered after it.
	ctrl.AddObserver(func(name string, record any) {
		panic("observer bug")
	})
	ctrl.AddObserver(func(name string, record any) {
		mu.Lock()
		frames++
		mu.Unlock()
	})

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return frames >= 3
	}, "receive loop should keep dispatching past a panicking observer")

	// The command path still works on the same loop.
	_, err := ctrl.ReadWorkingMode()
	assert.NoError(t, err)
}

// blockedTransport hangs every Recv until the test ends, imitating a
// stalled connection.
type blockedTransport struct {
	unblock chan struct{}
}

func (b *blockedTransport) Send(canbus.Frame) error { return nil }

func (b *blockedTransport) Recv(time.Duration) (canbus.Frame, error) {
	<-b.unblock
	return canbus.Frame{}, canbus.ErrClosed
}

func (b *blockedTransport) Close() error { return nil }
func (b *blockedTransport) Name() string { return "blocked" }

func TestController_StopBoundedOnStalledTransport(t *testing.T) {
	tr := &blockedTransport{unblock: make(chan struct{})}
	t.Cleanup(func() { close(tr.unblock) })

	ctrl := New(tr, Config{RxTimeout: 50 * time.Millisecond}, nil, nil)
	ctrl.Start()

	start := time.Now()
	ctrl.Stop()
	assert.Less(t, time.Since(start), 4*time.Second,
		"Stop must give up on a receive loop stuck in transport I/O")
}

func TestController_ConcurrentCommands(t *testing.T) {
	ctrl, _ := newTestRig(t)

	// Hammer the command API from several goroutines; the internal
	// serialization must keep every reply correlated to its own command.
	var wg sync.WaitGroup
	errs := make(chan error, 30)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- ctrl.SetWorkingMode(ystech.ModeDCConstantVoltage)
			_, err := ctrl.ReadProtectionParams(0x01)
			errs <- err
			_, err = ctrl.ReadWorkingMode()
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestController_GracefulClose(t *testing.T) {
	hub := canbus.NewHub()
	t.Cleanup(hub.Close)

	dev := simpcs.New(hub.Attach("device"), ystech.DeviceDefaultAddr, nil)
	dev.Start()
	t.Cleanup(dev.Stop)

	ctrl := New(hub.Attach("controller"), Config{
		RxTimeout:      50 * time.Millisecond,
		CommandTimeout: 2 * time.Second,
		SettleDelay:    50 * time.Millisecond,
		AutoHeartbeat:  true,
	}, nil, nil)
	ctrl.Start()

	require.NoError(t, ctrl.Enable(false))
	waitFor(t, 2*time.Second, func() bool {
		return ctrl.State().Status.RunningState.Active()
	}, "device should be delivering power")

	// Close must disable the running device before stopping the loops.
	require.NoError(t, ctrl.Close())
	assert.False(t, dev.Started())
}
