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
	recordOutput   string
	recordDuration time.Duration
)

// recordProgressInterval paces the in-place progress line.
const recordProgressInterval = time.Second

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Capture bus traffic to a file",
	Long: `Record all received frames to a capture file. The format is chosen by
the file extension: .csv, .jsonl, or .cbor.

Recording stops after --duration, or on Ctrl+C.`,
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "", "Output file (.csv, .jsonl, or .cbor)")
	recordCmd.Flags().DurationVar(&recordDuration, "duration", 0, "Stop after this long (0 = until interrupted)")
	recordCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	tr, connInfo, cleanup, err := OpenTransport()
	if err != nil {
		return err
	}
	defer cleanup()

	sink, err := framelog.Create(recordOutput)
	if err != nil {
		return err
	}
	defer sink.Close()

	fmt.Printf("Recording from %s to %s", connInfo, recordOutput)
	if recordDuration > 0 {
		fmt.Printf(" for %s", recordDuration)
	}
	fmt.Println(" (Ctrl+C to stop)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var deadline <-chan time.Time
	if recordDuration > 0 {
		deadline = time.After(recordDuration)
	}

	lastProgress := time.Now()
	for {
		select {
		case <-sigCh:
			fmt.Printf("\rCaptured %d frames\n", sink.Count())
			return nil
		case <-deadline:
			fmt.Printf("\rCaptured %d frames\n", sink.Count())
			return nil
		default:
		}

		if time.Since(lastProgress) >= recordProgressInterval {
			fmt.Printf("\rCaptured %d frames", sink.Count())
			lastProgress = time.Now()
		}

		frame, err := tr.Recv(200 * time.Millisecond)
		if err != nil {
			if errors.Is(err, canbus.ErrRecvTimeout) {
				continue
			}
			if errors.Is(err, canbus.ErrClosed) {
				fmt.Printf("Connection closed, captured %d frames\n", sink.Count())
				return nil
			}
			logger.Warn("receive error", "err", err)
			continue
		}

		ts := frame.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		_, record, _ := ystech.Decode(frame.ID, frame.Data)
		sink.LogFrame(ts, "RX", frame.ID, frame.Data, record)
	}
}
