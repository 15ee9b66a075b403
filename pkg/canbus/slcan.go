// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package canbus

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SLCAN speaks the LAWICEL ASCII protocol to a USB-serial CAN adapter
// (CANable, USBtin and compatibles). Frames are single lines terminated by
// carriage return; the adapter is configured for the requested bitrate and
// opened on connect.
type SLCAN struct {
	portName string
	port     serial.Port
	stats    Stats

	rx   chan Frame
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

// slcanBitrates maps bitrates to LAWICEL setup codes.
var slcanBitrates = map[int]string{
	10000:   "S0",
	20000:   "S1",
	50000:   "S2",
	100000:  "S3",
	125000:  "S4",
	250000:  "S5",
	500000:  "S6",
	800000:  "S7",
	1000000: "S8",
}

// ListSerialPorts enumerates candidate adapter ports on this host.
func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}

// OpenSLCAN opens the serial port, configures the CAN bitrate and opens the
// adapter's CAN channel.
func OpenSLCAN(portName string, bitrate int) (*SLCAN, error) {
	code, ok := slcanBitrates[bitrate]
	if !ok {
		return nil, fmt.Errorf("slcan: unsupported bitrate %d", bitrate)
	}

	mode := &serial.Mode{
		BaudRate: 115200,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("slcan: open %s: %w", portName, err)
	}

	s := &SLCAN{
		portName: portName,
		port:     port,
		rx:       make(chan Frame, rxQueueDepth),
		done:     make(chan struct{}),
	}

	// Close any stale channel, set the bitrate, open. The adapter answers
	// each command with CR (ok) or BEL (error); the reader goroutine is not
	// running yet so errors surface as a failed open instead.
	for _, cmd := range []string{"C\r", code + "\r", "O\r"} {
		if _, err := port.Write([]byte(cmd)); err != nil {
			port.Close()
			return nil, fmt.Errorf("slcan: setup %q: %w", strings.TrimRight(cmd, "\r"), err)
		}
	}

	go s.readLoop()
	return s, nil
}

func (s *SLCAN) Send(frame Frame) error {
	if len(frame.Data) > 8 {
		s.stats.TxErrors.Add(1)
		return ErrFrameTooLong
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := s.port.Write([]byte(formatSLCAN(frame))); err != nil {
		s.stats.TxErrors.Add(1)
		return fmt.Errorf("slcan: send: %w", err)
	}
	s.stats.TxFrames.Add(1)
	return nil
}

func (s *SLCAN) Recv(timeout time.Duration) (Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame, ok := <-s.rx:
		if !ok {
			return Frame{}, ErrClosed
		}
		s.stats.RxFrames.Add(1)
		return frame, nil
	case <-timer.C:
		return Frame{}, ErrRecvTimeout
	}
}

func (s *SLCAN) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	// Best effort close of the CAN channel before dropping the port.
	s.port.Write([]byte("C\r"))
	err := s.port.Close()
	<-s.done
	return err
}

func (s *SLCAN) Name() string {
	return "slcan:" + s.portName
}

// Stats returns a snapshot of the transport's counters.
func (s *SLCAN) Stats() Snapshot {
	return s.stats.Snapshot()
}

// readLoop accumulates serial bytes and emits one frame per CR-terminated
// line. Command acknowledgements (bare CR, BEL) and unknown lines are
// dropped.
func (s *SLCAN) readLoop() {
	defer close(s.done)
	defer close(s.rx)

	buf := make([]byte, 256)
	var line []byte
	for {
		n, err := s.port.Read(buf)
		if err != nil {
			return
		}
		for _, b := range buf[:n] {
			switch b {
			case '\r':
				if frame, ok := parseSLCAN(string(line)); ok {
					frame.Timestamp = time.Now()
					select {
					case s.rx <- frame:
					default:
						s.stats.RxDropped.Add(1)
					}
				}
				line = line[:0]
			case '\a':
				// Adapter signalled a command error.
				s.stats.RxErrors.Add(1)
				line = line[:0]
			default:
				line = append(line, b)
			}
		}
	}
}

// formatSLCAN renders a frame as a LAWICEL transmit line, CR included.
// Extended frames use 'T' with an 8-digit identifier, standard frames 't'
// with 3 digits.
func formatSLCAN(frame Frame) string {
	var b strings.Builder
	if frame.Extended {
		fmt.Fprintf(&b, "T%08X", frame.ID&0x1FFFFFFF)
	} else {
		fmt.Fprintf(&b, "t%03X", frame.ID&0x7FF)
	}
	fmt.Fprintf(&b, "%d", len(frame.Data))
	for _, d := range frame.Data {
		fmt.Fprintf(&b, "%02X", d)
	}
	b.WriteString("\r")
	return b.String()
}

// parseSLCAN parses one received line (without the trailing CR). Remote
// frame requests ('r'/'R') and non-frame lines return ok=false.
func parseSLCAN(line string) (Frame, bool) {
	if len(line) == 0 {
		return Frame{}, false
	}

	var idLen int
	var extended bool
	switch line[0] {
	case 'T':
		idLen, extended = 8, true
	case 't':
		idLen, extended = 3, false
	default:
		return Frame{}, false
	}
	if len(line) < 1+idLen+1 {
		return Frame{}, false
	}

	id, err := strconv.ParseUint(line[1:1+idLen], 16, 32)
	if err != nil {
		return Frame{}, false
	}
	dlc := int(line[1+idLen] - '0')
	if dlc < 0 || dlc > 8 {
		return Frame{}, false
	}
	hexData := line[1+idLen+1:]
	if len(hexData) != dlc*2 {
		return Frame{}, false
	}

	data := make([]byte, dlc)
	for i := 0; i < dlc; i++ {
		b, err := strconv.ParseUint(hexData[i*2:i*2+2], 16, 8)
		if err != nil {
			return Frame{}, false
		}
		data[i] = byte(b)
	}

	return Frame{ID: uint32(id), Data: data, Extended: extended}, true
}
