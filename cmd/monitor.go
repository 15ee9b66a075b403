// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kestrel Grid Systems

package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kestrel-grid/pcsctl/pkg/canbus"
	"github.com/kestrel-grid/pcsctl/pkg/framelog"
	"github.com/kestrel-grid/pcsctl/pkg/ystech"
	"github.com/spf13/cobra"
)

var (
	monitorLogPath string
	monitorRaw     bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display decoded PCS frames as they arrive",
	Long: `Continuously decode and display YSTECH PCS frames from the bus.

Each frame is shown with timestamp, CAN ID, raw payload, and the decoded
record for known message types. With --raw the decode step is skipped and
only the frame bytes are printed. With --log-frames the stream is also
written to a capture file (format chosen by extension: .csv, .jsonl, .cbor).

This command is passive: it sends nothing on the bus, so a PCS that expects
controller heartbeats will eventually report a CAN fault unless another
controller is active.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().StringVar(&monitorLogPath, "log-frames", "", "Also write frames to a capture file")
	monitorCmd.Flags().BoolVar(&monitorRaw, "raw", false, "Print raw frames without decoding")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	tr, connInfo, cleanup, err := OpenTransport()
	if err != nil {
		return err
	}
	defer cleanup()

	var sink *framelog.Writer
	if monitorLogPath != "" {
		sink, err = framelog.Create(monitorLogPath)
		if err != nil {
			return err
		}
		defer sink.Close()
	}

	fmt.Printf("Pcsctl - Frame Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-sigCh:
			if sink != nil {
				fmt.Printf("\nCaptured %d frames to %s\n", sink.Count(), monitorLogPath)
			}
			return nil
		default:
		}

		frame, err := tr.Recv(200 * time.Millisecond)
		if err != nil {
			if errors.Is(err, canbus.ErrRecvTimeout) {
				continue
			}
			if errors.Is(err, canbus.ErrClosed) {
				logger.Info("connection closed")
				return nil
			}
			logger.Warn("receive error", "err", err)
			continue
		}

		ts := frame.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}

		if monitorRaw {
			fmt.Printf("%s  %s\n", ts.Format("15:04:05.000"), frame)
			continue
		}

		_, record, err := ystech.Decode(frame.ID, frame.Data)
		if err != nil {
			logger.Warn("decode error", "id", fmt.Sprintf("0x%08X", frame.ID), "err", err)
			continue
		}
		fmt.Println(ystech.FormatFrame(ts, "RX", frame.ID, frame.Data, record))
		if sink != nil {
			sink.LogFrame(ts, "RX", frame.ID, frame.Data, record)
		}
	}
}
