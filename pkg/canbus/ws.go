// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package canbus

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig describes a connection to a remote CAN-over-WebSocket gateway.
// The gateway relays SLCAN lines, one per WebSocket message, so a bench
// adapter can be shared across the network.
type WSConfig struct {
	// URL is a ws:// or wss:// endpoint.
	URL string
	// Username/Password enable HTTP Basic auth when both are non-empty.
	Username string
	Password string
	// SkipTLSVerify disables certificate checks for wss:// endpoints with
	// self-signed certificates.
	SkipTLSVerify bool
}

// wsWriteTimeout bounds a single WebSocket write.
const wsWriteTimeout = 5 * time.Second

// WSBridge is a Transport backed by a WebSocket gateway.
type WSBridge struct {
	url   string
	conn  *websocket.Conn
	stats Stats

	rx   chan Frame
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

// OpenWS dials the gateway and starts the receive pump.
func OpenWS(cfg WSConfig) (*WSBridge, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("ws: invalid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("ws: unsupported URL scheme %q (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: cfg.SkipTLSVerify,
		}
	}

	headers := http.Header{}
	if cfg.Username != "" && cfg.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, cfg.URL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("ws: connect failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("ws: connect failed: %w", err)
	}

	b := &WSBridge{
		url:  cfg.URL,
		conn: conn,
		rx:   make(chan Frame, rxQueueDepth),
		done: make(chan struct{}),
	}
	go b.readLoop()
	return b, nil
}

func (b *WSBridge) Send(frame Frame) error {
	if len(frame.Data) > 8 {
		b.stats.TxErrors.Add(1)
		return ErrFrameTooLong
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	line := strings.TrimRight(formatSLCAN(frame), "\r")
	// A stalled peer must fail the send, not wedge every caller behind
	// the connection mutex.
	b.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := b.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		b.stats.TxErrors.Add(1)
		return fmt.Errorf("ws: send: %w", err)
	}
	b.stats.TxFrames.Add(1)
	return nil
}

func (b *WSBridge) Recv(timeout time.Duration) (Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame, ok := <-b.rx:
		if !ok {
			return Frame{}, ErrClosed
		}
		b.stats.RxFrames.Add(1)
		return frame, nil
	case <-timer.C:
		return Frame{}, ErrRecvTimeout
	}
}

func (b *WSBridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	err := b.conn.Close()
	<-b.done
	return err
}

func (b *WSBridge) Name() string {
	return "ws:" + b.url
}

// Stats returns a snapshot of the transport's counters.
func (b *WSBridge) Stats() Snapshot {
	return b.stats.Snapshot()
}

// readLoop pumps gateway messages into the receive queue. Each text or
// binary message carries one SLCAN line; anything unparsable is dropped.
func (b *WSBridge) readLoop() {
	defer close(b.done)
	defer close(b.rx)

	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			return
		}
		line := strings.TrimRight(string(data), "\r\n")
		frame, ok := parseSLCAN(line)
		if !ok {
			continue
		}
		frame.Timestamp = time.Now()
		select {
		case b.rx <- frame:
		default:
			b.stats.RxDropped.Add(1)
		}
	}
}
