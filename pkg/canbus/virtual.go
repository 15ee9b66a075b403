// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package canbus

import (
	"fmt"
	"sync"
	"time"
)

// rxQueueDepth bounds each endpoint's receive queue. A full queue drops the
// newest frame rather than blocking the sender, mirroring real controller
// behavior under overload.
const rxQueueDepth = 256

// Hub is an in-process CAN bus. Every frame sent on one endpoint is
// delivered to all other endpoints, like a wired bus with no arbitration.
// It backs the device simulator and the loopback tests.
type Hub struct {
	mu        sync.Mutex
	endpoints []*hubEndpoint
	closed    bool
}

// NewHub creates an empty virtual bus.
func NewHub() *Hub {
	return &Hub{}
}

// Attach creates a new endpoint on the bus. The name appears in logs only.
func (h *Hub) Attach(name string) Transport {
	h.mu.Lock()
	defer h.mu.Unlock()

	ep := &hubEndpoint{
		hub:  h,
		name: name,
		rx:   make(chan Frame, rxQueueDepth),
	}
	h.endpoints = append(h.endpoints, ep)
	return ep
}

// Close detaches every endpoint. Subsequent sends fail with ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, ep := range h.endpoints {
		ep.closeQueue()
	}
	h.endpoints = nil
}

// broadcast delivers frame to every endpoint except the sender.
func (h *Hub) broadcast(from *hubEndpoint, frame Frame) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	frame.Timestamp = time.Now()
	for _, ep := range h.endpoints {
		if ep == from {
			continue
		}
		ep.deliver(frame)
	}
	return nil
}

type hubEndpoint struct {
	hub   *Hub
	name  string
	stats Stats

	mu     sync.Mutex
	rx     chan Frame
	closed bool
}

func (e *hubEndpoint) Send(frame Frame) error {
	if len(frame.Data) > 8 {
		e.stats.TxErrors.Add(1)
		return ErrFrameTooLong
	}
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if err := e.hub.broadcast(e, frame); err != nil {
		e.stats.TxErrors.Add(1)
		return err
	}
	e.stats.TxFrames.Add(1)
	return nil
}

func (e *hubEndpoint) Recv(timeout time.Duration) (Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame, ok := <-e.rx:
		if !ok {
			return Frame{}, ErrClosed
		}
		e.stats.RxFrames.Add(1)
		return frame, nil
	case <-timer.C:
		return Frame{}, ErrRecvTimeout
	}
}

func (e *hubEndpoint) deliver(frame Frame) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	select {
	case e.rx <- frame:
	default:
		e.stats.RxDropped.Add(1)
	}
}

func (e *hubEndpoint) closeQueue() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.rx)
	}
}

func (e *hubEndpoint) Close() error {
	e.closeQueue()
	return nil
}

func (e *hubEndpoint) Name() string {
	return fmt.Sprintf("virtual:%s", e.name)
}

// Stats returns a snapshot of the endpoint's counters.
func (e *hubEndpoint) Stats() Snapshot {
	return e.stats.Snapshot()
}
