// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

// Package canbus provides CAN transports: Linux SocketCAN, SLCAN serial
// adapters, a WebSocket bridge and an in-process virtual bus for tests and
// simulation. All transports speak the same Frame type and Transport
// interface, so the session layer above is driver-agnostic.
package canbus

import (
	"errors"
	"fmt"
	"time"
)

// Frame is one CAN 2.0 frame. Data holds up to 8 bytes; DLC is len(Data).
type Frame struct {
	ID       uint32
	Data     []byte
	Extended bool
	// Timestamp is set by transports on receive, zero on transmit.
	Timestamp time.Time
}

func (f Frame) String() string {
	if f.Extended {
		return fmt.Sprintf("%08X#%X", f.ID, f.Data)
	}
	return fmt.Sprintf("%03X#%X", f.ID, f.Data)
}

// Transport is a point of attachment to a CAN bus.
//
// Send and Recv are safe for concurrent use with each other, but only one
// goroutine may call Recv at a time. Recv blocks for at most timeout and
// returns ErrRecvTimeout when nothing arrived.
type Transport interface {
	Send(frame Frame) error
	Recv(timeout time.Duration) (Frame, error)
	Close() error
	// Name identifies the attachment for logs, e.g. "can0" or
	// "slcan:/dev/ttyACM0".
	Name() string
}

var (
	// ErrClosed is returned by Send and Recv after Close.
	ErrClosed = errors.New("canbus: transport closed")
	// ErrRecvTimeout is returned by Recv when the timeout expires with no
	// frame. It is a normal idle-bus condition, not a failure.
	ErrRecvTimeout = errors.New("canbus: receive timeout")
	// ErrFrameTooLong is returned by Send for frames with more than 8 data
	// bytes.
	ErrFrameTooLong = errors.New("canbus: frame data exceeds 8 bytes")
)
