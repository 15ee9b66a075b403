// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package canbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// SocketCAN attaches to a Linux kernel CAN interface (can0, vcan0) through
// a raw AF_CAN socket.
type SocketCAN struct {
	ifname string
	fd     int
	stats  Stats

	mu         sync.Mutex
	closed     bool
	curTimeout time.Duration
}

// OpenSocketCAN binds a raw CAN socket to the named interface. The
// interface must exist and be up; bitrate is configured at the netlink
// level (ip link), not here.
func OpenSocketCAN(ifname string) (*SocketCAN, error) {
	iface, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, fmt.Errorf("socketcan: interface %s: %w", ifname, err)
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("socketcan: socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: iface.Index}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("socketcan: bind %s: %w", ifname, err)
	}

	return &SocketCAN{ifname: ifname, fd: fd}, nil
}

// ListCANInterfaces enumerates kernel network interfaces whose name looks
// like a CAN device.
func ListCANInterfaces() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, iface := range ifaces {
		if isCANName(iface.Name) {
			names = append(names, iface.Name)
		}
	}
	return names, nil
}

// isCANName matches kernel CAN interface naming (can0, vcan0, ...).
func isCANName(name string) bool {
	return strings.HasPrefix(name, "can") || strings.HasPrefix(name, "vcan")
}

func (s *SocketCAN) Send(frame Frame) error {
	if len(frame.Data) > 8 {
		s.stats.TxErrors.Add(1)
		return ErrFrameTooLong
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	raw := make([]byte, 16)
	id := frame.ID
	if frame.Extended {
		id = id&unix.CAN_EFF_MASK | unix.CAN_EFF_FLAG
	} else {
		id &= unix.CAN_SFF_MASK
	}
	binary.LittleEndian.PutUint32(raw[0:4], id)
	raw[4] = byte(len(frame.Data))
	copy(raw[8:], frame.Data)

	if _, err := unix.Write(s.fd, raw); err != nil {
		s.stats.TxErrors.Add(1)
		return fmt.Errorf("socketcan: send: %w", err)
	}
	s.stats.TxFrames.Add(1)
	return nil
}

func (s *SocketCAN) Recv(timeout time.Duration) (Frame, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Frame{}, ErrClosed
	}
	if timeout != s.curTimeout {
		tv := unix.NsecToTimeval(timeout.Nanoseconds())
		if err := unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
			s.mu.Unlock()
			return Frame{}, fmt.Errorf("socketcan: set receive timeout: %w", err)
		}
		s.curTimeout = timeout
	}
	fd := s.fd
	s.mu.Unlock()

	raw := make([]byte, 16)
	n, err := unix.Read(fd, raw)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR) {
			return Frame{}, ErrRecvTimeout
		}
		if errors.Is(err, unix.EBADF) {
			return Frame{}, ErrClosed
		}
		s.stats.RxErrors.Add(1)
		return Frame{}, fmt.Errorf("socketcan: recv: %w", err)
	}
	if n < 8 {
		s.stats.RxErrors.Add(1)
		return Frame{}, fmt.Errorf("socketcan: short read (%d bytes)", n)
	}

	id := binary.LittleEndian.Uint32(raw[0:4])
	frame := Frame{
		Extended:  id&unix.CAN_EFF_FLAG != 0,
		Timestamp: time.Now(),
	}
	if frame.Extended {
		frame.ID = id & unix.CAN_EFF_MASK
	} else {
		frame.ID = id & unix.CAN_SFF_MASK
	}
	dlc := int(raw[4])
	if dlc > 8 {
		dlc = 8
	}
	frame.Data = raw[8 : 8+dlc]

	s.stats.RxFrames.Add(1)
	return frame, nil
}

func (s *SocketCAN) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return unix.Close(s.fd)
}

func (s *SocketCAN) Name() string {
	return s.ifname
}

// Stats returns a snapshot of the transport's counters.
func (s *SocketCAN) Stats() Snapshot {
	return s.stats.Snapshot()
}
