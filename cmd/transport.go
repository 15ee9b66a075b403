// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kestrel Grid Systems

package cmd

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/kestrel-grid/pcsctl/pkg/canbus"
	"github.com/kestrel-grid/pcsctl/pkg/pcs"
	"github.com/kestrel-grid/pcsctl/pkg/simpcs"
	"golang.org/x/term"
)

// GetPassword retrieves the WebSocket password from the environment or
// prompts the user.
func GetPassword() (string, error) {
	if pw := os.Getenv("PCSCTL_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// OpenTransport opens the CAN transport selected by the persistent flags.
// With --dry-run (or --driver virtual) it spins up an in-process bus with a
// simulated PCS attached. The returned cleanup closes the transport and
// whatever else was started.
func OpenTransport() (canbus.Transport, string, func(), error) {
	if dryRun || driver == "virtual" {
		hub := canbus.NewHub()
		sim := simpcs.New(hub.Attach("sim-pcs"), deviceAddr, logger)
		sim.Start()
		tr := hub.Attach("controller")
		cleanup := func() {
			tr.Close()
			sim.Stop()
			hub.Close()
		}
		return tr, fmt.Sprintf("Virtual bus (simulated PCS at 0x%02X)", deviceAddr), cleanup, nil
	}

	switch driver {
	case "socketcan":
		tr, err := dialRetry(func() (canbus.Transport, error) {
			return canbus.OpenSocketCAN(channel)
		})
		if err != nil {
			return nil, "", nil, err
		}
		return tr, fmt.Sprintf("SocketCAN: %s", channel), func() { tr.Close() }, nil

	case "slcan":
		if portName == "" {
			return nil, "", nil, fmt.Errorf("--port must be specified for the slcan driver")
		}
		tr, err := dialRetry(func() (canbus.Transport, error) {
			return canbus.OpenSLCAN(portName, bitrate)
		})
		if err != nil {
			return nil, "", nil, err
		}
		return tr, fmt.Sprintf("SLCAN: %s @ %d bit/s", portName, bitrate), func() { tr.Close() }, nil

	case "ws":
		if wsURL == "" {
			return nil, "", nil, fmt.Errorf("--url must be specified for the ws driver")
		}
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", nil, err
			}
		}
		tr, err := dialRetry(func() (canbus.Transport, error) {
			return canbus.OpenWS(canbus.WSConfig{
				URL:           wsURL,
				Username:      wsUsername,
				Password:      password,
				SkipTLSVerify: wsNoSSLVerify,
			})
		})
		if err != nil {
			return nil, "", nil, err
		}
		return tr, fmt.Sprintf("WebSocket: %s", wsURL), func() { tr.Close() }, nil
	}

	return nil, "", nil, fmt.Errorf("unknown driver %q (use socketcan | slcan | ws | virtual)", driver)
}

// dialRetry applies the default reconnect policy to a hardware dial.
func dialRetry(dial canbus.Dialer) (canbus.Transport, error) {
	return canbus.DialRetry(dial, canbus.DefaultDialAttempts, canbus.DefaultDialBackoff, logger)
}

// awaitTelemetry blocks until the first periodic frame arrives, so commands
// that inspect device state see something real. Gives up after two seconds;
// the command itself will then fail with its own timeout.
func awaitTelemetry(ctl *pcs.Controller) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !math.IsInf(ctl.SecondsSinceLastRx(), 1) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	logger.Warn("no telemetry received from device", "addr", fmt.Sprintf("0x%02X", deviceAddr))
}

// withController opens the transport, runs a controller session around fn,
// and tears everything down afterwards. Most one-shot commands use this.
func withController(fn func(ctl *pcs.Controller) error) error {
	tr, connInfo, cleanup, err := OpenTransport()
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("connected", "via", connInfo)

	cfg := pcs.Config{DeviceAddr: deviceAddr, AutoHeartbeat: true}.Defaults()
	ctl := pcs.New(tr, cfg, logger, nil)
	ctl.Start()
	defer ctl.Stop()

	return fn(ctl)
}
