// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

// Package pcs implements the session layer for YSTECH power conversion
// system devices: the heartbeat loop the device requires, the receive and
// dispatch loop feeding the aggregated device state, and the command API
// with reply correlation.
package pcs

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/kestrel-grid/pcsctl/pkg/canbus"
	"github.com/kestrel-grid/pcsctl/pkg/ystech"
)

// Config tunes a Controller. The zero value is completed by Defaults.
type Config struct {
	// DeviceAddr is the PCS bus address commands are sent to.
	DeviceAddr uint8
	// HeartbeatInterval is the keep-alive period. The device drops into a
	// CAN fault after 5 s of silence, so this must stay well below that.
	HeartbeatInterval time.Duration
	// RxTimeout is the per-poll receive timeout of the receive loop. It
	// bounds shutdown latency, not protocol behavior.
	RxTimeout time.Duration
	// CommandTimeout is how long a command waits for its reply frame.
	CommandTimeout time.Duration
	// SettleDelay is the pause after a fault clear before follow-up
	// commands, giving the device time to leave the fault state.
	SettleDelay time.Duration
	// AutoHeartbeat starts the heartbeat loop with the controller.
	AutoHeartbeat bool
}

// Defaults fills unset fields with the protocol's standard values.
func (c Config) Defaults() Config {
	if c.DeviceAddr == 0 {
		c.DeviceAddr = ystech.DeviceDefaultAddr
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = ystech.HeartbeatInterval
	}
	if c.RxTimeout == 0 {
		c.RxTimeout = time.Second
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 3 * time.Second
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = 500 * time.Millisecond
	}
	return c
}

// Observer receives every decoded frame, after the aggregated state and any
// command waiter have seen it. Observers run on the receive goroutine and
// must not block.
type Observer func(name string, record any)

// FrameSink receives every raw frame for capture files. Implemented by
// framelog writers.
type FrameSink interface {
	LogFrame(ts time.Time, direction string, id uint32, data []byte, record any)
}

// Command and session errors.
var (
	// ErrReplyTimeout means the device did not answer within CommandTimeout.
	ErrReplyTimeout = errors.New("pcs: no reply from device")
	// ErrRejected means the device answered a set command with a failure.
	ErrRejected = errors.New("pcs: command rejected by device")
	// ErrStopped means the controller was stopped while a command was in
	// flight.
	ErrStopped = errors.New("pcs: controller stopped")
)

// stopJoinTimeout bounds how long Stop waits for the loops to exit.
const stopJoinTimeout = 2 * time.Second

// Controller drives one PCS device over a CAN transport.
//
// All exported methods are safe for concurrent use. Commands are serialized
// internally: reply correlation is by PF code only, so two in-flight
// commands expecting the same reply PF could not be told apart.
type Controller struct {
	transport canbus.Transport
	cfg       Config
	log       *slog.Logger
	sink      FrameSink

	// cmdMu serializes the command API.
	cmdMu sync.Mutex

	waiterMu sync.Mutex
	waiters  map[uint8]chan any

	stateMu sync.Mutex
	state   ystech.DeviceState
	lastRx  time.Time

	obsMu     sync.Mutex
	observers []Observer

	runMu   sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// New creates a controller on the given transport. The transport remains
// owned by the caller; Stop does not close it. logger and sink may be nil.
func New(transport canbus.Transport, cfg Config, logger *slog.Logger, sink FrameSink) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		transport: transport,
		cfg:       cfg.Defaults(),
		log:       logger,
		sink:      sink,
		waiters:   make(map[uint8]chan any),
		state:     ystech.NewDeviceState(),
	}
}

// Start launches the receive loop and, if configured, the heartbeat loop.
func (c *Controller) Start() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.stop = make(chan struct{})

	c.wg.Add(1)
	go c.rxLoop()

	if c.cfg.AutoHeartbeat {
		c.wg.Add(1)
		go c.heartbeatLoop()
	}

	c.log.Info("controller started",
		"device", fmt.Sprintf("0x%02X", c.cfg.DeviceAddr),
		"transport", c.transport.Name())
}

// Stop halts the loops and waits for them to exit. In-flight commands fail
// with ErrStopped.
func (c *Controller) Stop() {
	c.runMu.Lock()
	if !c.running {
		c.runMu.Unlock()
		return
	}
	c.running = false
	close(c.stop)
	c.runMu.Unlock()

	// Best-effort join. A loop stuck in a blocking transport call (a
	// stalled WebSocket write, a wedged serial port) must not hang the
	// caller forever; the goroutine is abandoned after the ceiling.
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		c.log.Info("controller stopped")
	case <-time.After(stopJoinTimeout):
		c.log.Warn("loops did not exit in time, abandoning join")
	}
}

// Close performs a graceful shutdown: if the device is delivering power it
// is disabled first, then the loops are stopped.
func (c *Controller) Close() error {
	if c.State().Status.RunningState.Active() {
		c.log.Info("device active, disabling before shutdown")
		if err := c.Disable(); err != nil {
			c.log.Warn("graceful disable failed", "err", err)
		}
		time.Sleep(c.cfg.SettleDelay)
	}
	c.Stop()
	return nil
}

// AddObserver registers an observer for decoded frames.
func (c *Controller) AddObserver(obs Observer) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, obs)
}

// State returns a copy of the aggregated device state.
func (c *Controller) State() ystech.DeviceState {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// SecondsSinceLastRx returns the seconds since any frame arrived from the
// device, or +Inf when nothing has been received yet.
func (c *Controller) SecondsSinceLastRx() float64 {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.lastRx.IsZero() {
		return math.Inf(1)
	}
	return time.Since(c.lastRx).Seconds()
}

// Faults returns the cached fault code and its description.
func (c *Controller) Faults() (uint16, string) {
	code := c.State().Status.FaultCode
	return code, ystech.FaultDescription(code)
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

// Enable starts the device. With clearFaults set, a latched fault is
// cleared first and the device is given SettleDelay to recover.
func (c *Controller) Enable(clearFaults bool) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	if clearFaults && c.State().Status.IsFault() {
		c.log.Info("clearing faults before enable")
		if err := c.startStop(false, true); err != nil {
			return fmt.Errorf("clear faults: %w", err)
		}
		time.Sleep(c.cfg.SettleDelay)
	}
	return c.startStop(true, false)
}

// Disable stops the device.
func (c *Controller) Disable() error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.startStop(false, false)
}

// ResetFaults clears a latched fault without starting the device.
func (c *Controller) ResetFaults() error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	return c.startStop(false, true)
}

// startStop sends frame 0x0F and checks the 0x10 reply. Callers hold cmdMu.
func (c *Controller) startStop(start, clearFault bool) error {
	id, data := ystech.EncodeStartStop(start, clearFault, false, c.cfg.DeviceAddr)
	record, err := c.request(ystech.PFStartStopReply, id, data)
	if err != nil {
		return err
	}
	return checkReply(record)
}

// SetWorkingMode selects the device's working mode. The device only accepts
// a mode change while stopped.
func (c *Controller) SetWorkingMode(mode ystech.WorkingMode) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	id, data := ystech.EncodeSetWorkingMode(mode, c.cfg.DeviceAddr)
	record, err := c.request(ystech.PFSetModeReply, id, data)
	if err != nil {
		return err
	}
	if err := checkReply(record); err != nil {
		return err
	}
	c.log.Info("working mode set", "mode", mode.String())
	return nil
}

// SetModeParameters writes up to four mode setpoints. Parameters 1-2 are
// always sent; 3-4 only when given. The device acknowledges the pair of
// frames with a single 0x0E reply.
func (c *Controller) SetModeParameters(mode ystech.WorkingMode, params ...float64) error {
	if len(params) > 4 {
		return fmt.Errorf("pcs: at most 4 mode parameters, got %d", len(params))
	}

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	get := func(i int) float64 {
		if i < len(params) {
			return params[i]
		}
		return 0
	}

	ch, cancel := c.registerWaiter(ystech.PFSetModeReply)
	defer cancel()

	id, data := ystech.EncodeSetModeParams12(get(0), get(1), mode, c.cfg.DeviceAddr)
	if err := c.send(id, data); err != nil {
		return err
	}
	if len(params) > 2 {
		id, data = ystech.EncodeSetModeParams34(get(2), get(3), mode, c.cfg.DeviceAddr)
		if err := c.send(id, data); err != nil {
			return err
		}
	}

	record, err := c.await(ch)
	if err != nil {
		return err
	}
	return checkReply(record)
}

// ReadProtectionParams reads one protection parameter group. paramType 0x01
// returns ystech.ProtectionParams1, 0x02 ProtectionParams2, 0x03
// ProtectionParams3.
func (c *Controller) ReadProtectionParams(paramType uint8) (any, error) {
	replyPF, ok := map[uint8]uint8{
		0x01: ystech.PFProtectionParams1Reply,
		0x02: ystech.PFProtectionParams2Reply,
		0x03: ystech.PFProtectionParams3Reply,
	}[paramType]
	if !ok {
		return nil, fmt.Errorf("pcs: unknown protection parameter type 0x%02X", paramType)
	}

	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	id, data := ystech.EncodeReadProtectionParams(paramType, c.cfg.DeviceAddr)
	return c.request(replyPF, id, data)
}

// SetProtectionParams1 writes the DC voltage and current limits.
func (c *Controller) SetProtectionParams1(maxOutputV, minOutputV, maxChargeA, maxDischargeA float64) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	id, data := ystech.EncodeSetProtectionParams1(maxOutputV, minOutputV, maxChargeA, maxDischargeA, c.cfg.DeviceAddr)
	return c.setRequest(ystech.PFSetProtectionReply, id, data)
}

// SetProtectionParams2 writes the power and AC voltage limits.
func (c *Controller) SetProtectionParams2(maxChargeKW, maxDischargeKW, acVUpper, acVLower float64) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	id, data := ystech.EncodeSetProtectionParams2(maxChargeKW, maxDischargeKW, acVUpper, acVLower, c.cfg.DeviceAddr)
	return c.setRequest(ystech.PFSetProtectionReply, id, data)
}

// SetProtectionParams3 writes the frequency limits.
func (c *Controller) SetProtectionParams3(dischargeFreqUpper, chargeFreqLower, acFreqUpper, acFreqLower float64) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	id, data := ystech.EncodeSetProtectionParams3(dischargeFreqUpper, chargeFreqLower, acFreqUpper, acFreqLower, c.cfg.DeviceAddr)
	return c.setRequest(ystech.PFSetProtectionReply, id, data)
}

// SetTime sets the device clock.
func (c *Controller) SetTime(t time.Time) error {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	id, data := ystech.EncodeSetTime(
		uint16(t.Year()), uint8(t.Month()), uint8(t.Day()),
		uint8(t.Hour()), uint8(t.Minute()), uint8(t.Second()),
		c.cfg.DeviceAddr)
	return c.setRequest(ystech.PFSetTimeReply, id, data)
}

// ReadVersions reads the ARM and DSP firmware versions. The device answers
// one request with both reply frames; a missing DSP reply is reported
// alongside the ARM result.
func (c *Controller) ReadVersions() (arm, dsp ystech.VersionInfo, err error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	armCh, cancelARM := c.registerWaiter(ystech.PFARMVersion)
	defer cancelARM()
	dspCh, cancelDSP := c.registerWaiter(ystech.PFDSPVersion)
	defer cancelDSP()

	id, data := ystech.EncodeReadSpecialData(ystech.SpecialDataVersion, c.cfg.DeviceAddr)
	if err := c.send(id, data); err != nil {
		return arm, dsp, err
	}

	record, err := c.await(armCh)
	if err != nil {
		return arm, dsp, err
	}
	arm, _ = record.(ystech.VersionInfo)

	record, err = c.await(dspCh)
	if err != nil {
		return arm, dsp, fmt.Errorf("dsp version: %w", err)
	}
	dsp, _ = record.(ystech.VersionInfo)
	return arm, dsp, nil
}

// ReadWorkingMode reads the currently configured working mode.
func (c *Controller) ReadWorkingMode() (ystech.WorkingMode, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	id, data := ystech.EncodeReadSpecialData(ystech.SpecialDataWorkingMode, c.cfg.DeviceAddr)
	record, err := c.request(ystech.PFModeParamsReply, id, data)
	if err != nil {
		return 0, err
	}
	reply, ok := record.(ystech.WorkingModeReply)
	if !ok {
		return 0, fmt.Errorf("pcs: unexpected reply type %T", record)
	}
	return reply.Mode, nil
}

// SendHeartbeat sends one keep-alive frame. The heartbeat loop calls this
// automatically when AutoHeartbeat is set. Heartbeats bypass the frame sink
// to keep capture files focused on commands and telemetry.
func (c *Controller) SendHeartbeat() error {
	id, data := ystech.EncodeHeartbeat(0, 0, ystech.HeartbeatRunning, c.cfg.DeviceAddr)
	err := c.transport.Send(canbus.Frame{ID: id, Data: data, Extended: true})
	if err != nil {
		return fmt.Errorf("pcs: heartbeat: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Reply correlation
// ---------------------------------------------------------------------------

// registerWaiter installs a one-shot reply channel for a PF code. The
// returned cancel must run before the next command reuses the PF. Callers
// hold cmdMu, so at most one waiter per PF exists.
func (c *Controller) registerWaiter(pf uint8) (chan any, func()) {
	ch := make(chan any, 1)
	c.waiterMu.Lock()
	c.waiters[pf] = ch
	c.waiterMu.Unlock()
	return ch, func() {
		c.waiterMu.Lock()
		delete(c.waiters, pf)
		c.waiterMu.Unlock()
	}
}

// await blocks for a registered reply, the command timeout, or shutdown.
func (c *Controller) await(ch chan any) (any, error) {
	timer := time.NewTimer(c.cfg.CommandTimeout)
	defer timer.Stop()

	c.runMu.Lock()
	stop := c.stop
	c.runMu.Unlock()

	select {
	case record := <-ch:
		return record, nil
	case <-timer.C:
		return nil, ErrReplyTimeout
	case <-stop:
		return nil, ErrStopped
	}
}

// request sends a command frame and waits for the reply on replyPF.
// Callers hold cmdMu.
func (c *Controller) request(replyPF uint8, id uint32, data []byte) (any, error) {
	ch, cancel := c.registerWaiter(replyPF)
	defer cancel()

	if err := c.send(id, data); err != nil {
		return nil, err
	}
	return c.await(ch)
}

// setRequest is request plus the success check shared by all set commands.
func (c *Controller) setRequest(replyPF uint8, id uint32, data []byte) error {
	record, err := c.request(replyPF, id, data)
	if err != nil {
		return err
	}
	return checkReply(record)
}

// checkReply validates a SetReply record.
func checkReply(record any) error {
	reply, ok := record.(ystech.SetReply)
	if !ok {
		return fmt.Errorf("pcs: unexpected reply type %T", record)
	}
	if !reply.Success {
		return ErrRejected
	}
	return nil
}

// send transmits one frame and mirrors it to the frame sink.
func (c *Controller) send(id uint32, data []byte) error {
	err := c.transport.Send(canbus.Frame{ID: id, Data: data, Extended: true})
	if err != nil {
		return fmt.Errorf("pcs: send %s: %w", ystech.PFName(ystech.ParseID(id).PF), err)
	}
	if c.sink != nil {
		c.sink.LogFrame(time.Now(), "TX", id, data, nil)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Loops
// ---------------------------------------------------------------------------

// rxLoop receives, decodes and fans out frames until Stop. Delivery order
// for each frame is fixed: aggregated state first, then the command waiter,
// then observers.
func (c *Controller) rxLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		frame, err := c.transport.Recv(c.cfg.RxTimeout)
		if err != nil {
			if errors.Is(err, canbus.ErrClosed) {
				c.log.Warn("transport closed, receive loop exiting")
				return
			}
			if errors.Is(err, canbus.ErrRecvTimeout) {
				if since := c.SecondsSinceLastRx(); since > ystech.StaleTimeout.Seconds() && !math.IsInf(since, 1) {
					c.log.Warn("no data from device", "since", fmt.Sprintf("%.1fs", since))
				}
				continue
			}
			c.log.Warn("receive error", "err", err)
			continue
		}

		if !frame.Extended {
			continue
		}

		c.stateMu.Lock()
		c.lastRx = time.Now()
		c.stateMu.Unlock()

		name, record, err := ystech.Decode(frame.ID, frame.Data)
		if err != nil {
			c.log.Debug("decode error", "id", fmt.Sprintf("0x%08X", frame.ID), "err", err)
			continue
		}

		if c.sink != nil {
			c.sink.LogFrame(frame.Timestamp, "RX", frame.ID, frame.Data, record)
		}
		if name == "" {
			continue
		}

		c.stateMu.Lock()
		c.state.Apply(record)
		c.stateMu.Unlock()

		pf := ystech.ParseID(frame.ID).PF
		c.waiterMu.Lock()
		if ch, ok := c.waiters[pf]; ok {
			select {
			case ch <- record:
			default:
			}
		}
		c.waiterMu.Unlock()

		c.obsMu.Lock()
		observers := c.observers
		c.obsMu.Unlock()
		for _, obs := range observers {
			c.notifyObserver(obs, name, record)
		}
	}
}

// notifyObserver shields the receive loop from observer bugs: a panic in a
// callback is logged and the loop keeps running.
func (c *Controller) notifyObserver(obs Observer, name string, record any) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("observer panicked", "record", name, "panic", r)
		}
	}()
	obs(name, record)
}

// heartbeatLoop sends the keep-alive at the configured interval.
func (c *Controller) heartbeatLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if err := c.SendHeartbeat(); err != nil {
				c.log.Debug("heartbeat failed", "err", err)
			}
		}
	}
}
