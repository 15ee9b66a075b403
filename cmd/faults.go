// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kestrel Grid Systems

package cmd

import (
	"fmt"
	"sort"

	"github.com/kestrel-grid/pcsctl/pkg/ystech"
	"github.com/spf13/cobra"
)

var faultsCmd = &cobra.Command{
	Use:   "faults",
	Short: "List the known fault codes and their descriptions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		codes := make([]uint16, 0, len(ystech.FaultCodes))
		for code := range ystech.FaultCodes {
			codes = append(codes, code)
		}
		sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

		for _, code := range codes {
			fmt.Printf("0x%04X  %s\n", code, ystech.FaultCodes[code])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(faultsCmd)
}
