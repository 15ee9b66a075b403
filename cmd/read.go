// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kestrel Grid Systems

package cmd

import (
	"fmt"
	"time"

	"github.com/kestrel-grid/pcsctl/pkg/pcs"
	"github.com/kestrel-grid/pcsctl/pkg/ystech"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a snapshot of the device state",
	Long: `Listen for one round of periodic telemetry and print the aggregated
device state: running state, fault, DC measurements, AC measurements, and
the active working mode.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(func(ctl *pcs.Controller) error {
			awaitTelemetry(ctl)
			// One full telemetry period so every slot has been seen once.
			time.Sleep(ystech.HeartbeatInterval + 100*time.Millisecond)

			state := ctl.State()
			mode, err := ctl.ReadWorkingMode()
			modeStr := "unknown"
			if err == nil {
				modeStr = mode.String()
			}

			fmt.Printf("Device 0x%02X\n", deviceAddr)
			fmt.Printf("  State:        %s\n", state.Status.RunningState)
			fmt.Printf("  Fault:        0x%04X (%s)\n", state.Status.FaultCode, state.Status.FaultDescription())
			fmt.Printf("  Working mode: %s\n", modeStr)
			fmt.Printf("  DC:           %s\n", ystech.FormatRecord(state.DC))
			fmt.Printf("  Capacity:     %s\n", ystech.FormatRecord(state.CapacityEnergy))
			fmt.Printf("  Grid:         %s\n", ystech.FormatRecord(state.GridVoltage))
			fmt.Printf("  Power:        %s\n", ystech.FormatRecord(state.SystemPower))
			fmt.Printf("  Last frame:   %.2fs ago\n", ctl.SecondsSinceLastRx())
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Read the device's ARM and DSP firmware versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(func(ctl *pcs.Controller) error {
			arm, dsp, err := ctl.ReadVersions()
			if err != nil {
				return err
			}
			fmt.Printf("ARM: hw %d.%d.%d  sw %d.%d.%d\n",
				arm.HardwareMajor, arm.HardwareMinor, arm.HardwarePatch,
				arm.SoftwareMajor, arm.SoftwareMinor, arm.SoftwarePatch)
			fmt.Printf("DSP: hw %d.%d.%d  sw %d.%d.%d\n",
				dsp.HardwareMajor, dsp.HardwareMinor, dsp.HardwarePatch,
				dsp.SoftwareMajor, dsp.SoftwareMinor, dsp.SoftwarePatch)
			return nil
		})
	},
}

var readParamsCmd = &cobra.Command{
	Use:   "read-params <group 1|2|3>",
	Short: "Read one protection parameter group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var paramType uint8
		switch args[0] {
		case "1":
			paramType = 0x01
		case "2":
			paramType = 0x02
		case "3":
			paramType = 0x03
		default:
			return fmt.Errorf("protection group must be 1, 2, or 3 (got %q)", args[0])
		}
		return withController(func(ctl *pcs.Controller) error {
			record, err := ctl.ReadProtectionParams(paramType)
			if err != nil {
				return err
			}
			fmt.Printf("Group %s: %s\n", args[0], ystech.FormatRecord(record))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(readParamsCmd)
}
