// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kestrel Grid Systems

package cmd

import (
	"fmt"

	"github.com/kestrel-grid/pcsctl/pkg/canbus"
	"github.com/spf13/cobra"
)

var listInterfacesCmd = &cobra.Command{
	Use:   "list-interfaces",
	Short: "List CAN interfaces and serial ports on this host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ifaces, err := canbus.ListCANInterfaces()
		if err != nil {
			logger.Warn("cannot enumerate CAN interfaces", "err", err)
		}
		fmt.Println("CAN interfaces:")
		if len(ifaces) == 0 {
			fmt.Println("  (none)")
		}
		for _, name := range ifaces {
			fmt.Printf("  %s\n", name)
		}

		ports, err := canbus.ListSerialPorts()
		if err != nil {
			logger.Warn("cannot enumerate serial ports", "err", err)
		}
		fmt.Println("Serial ports:")
		if len(ports) == 0 {
			fmt.Println("  (none)")
		}
		for _, name := range ports {
			fmt.Printf("  %s\n", name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listInterfacesCmd)
}
