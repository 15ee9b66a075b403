// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

//go:build !linux

package canbus

import (
	"errors"
	"time"
)

// SocketCAN is only available on Linux; other platforms use SLCAN or the
// WebSocket bridge.
type SocketCAN struct{}

var errNoSocketCAN = errors.New("socketcan: only supported on linux")

func OpenSocketCAN(ifname string) (*SocketCAN, error) {
	return nil, errNoSocketCAN
}

func ListCANInterfaces() ([]string, error) {
	return nil, nil
}

func (s *SocketCAN) Send(frame Frame) error { return errNoSocketCAN }

func (s *SocketCAN) Recv(timeout time.Duration) (Frame, error) { return Frame{}, errNoSocketCAN }

func (s *SocketCAN) Close() error { return nil }

func (s *SocketCAN) Name() string { return "socketcan" }

func (s *SocketCAN) Stats() Snapshot { return Snapshot{} }
