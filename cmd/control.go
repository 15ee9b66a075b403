// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kestrel Grid Systems

package cmd

import (
	"fmt"

	"github.com/kestrel-grid/pcsctl/pkg/pcs"
	"github.com/spf13/cobra"
)

var enableNoClearFaults bool

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Start the PCS power stage",
	Long: `Send the start command to the PCS.

If the device reports an active fault it is cleared first, the session waits
for the device to settle, and only then is the start command sent. Pass
--no-clear-faults to skip the clearing step and fail on a faulted device.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(func(ctl *pcs.Controller) error {
			awaitTelemetry(ctl)
			if err := ctl.Enable(!enableNoClearFaults); err != nil {
				return err
			}
			fmt.Println("PCS enabled")
			return nil
		})
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Stop the PCS power stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(func(ctl *pcs.Controller) error {
			if err := ctl.Disable(); err != nil {
				return err
			}
			fmt.Println("PCS disabled")
			return nil
		})
	},
}

var resetFaultsCmd = &cobra.Command{
	Use:   "reset-faults",
	Short: "Clear latched PCS faults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(func(ctl *pcs.Controller) error {
			if err := ctl.ResetFaults(); err != nil {
				return err
			}
			fmt.Println("Faults cleared")
			return nil
		})
	},
}

func init() {
	enableCmd.Flags().BoolVar(&enableNoClearFaults, "no-clear-faults", false, "Fail instead of clearing an active fault before starting")
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(resetFaultsCmd)
}
