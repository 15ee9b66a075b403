// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kestrel Grid Systems
//
// Pcsctl - YSTECH PCS CAN control tool
//
// A CLI tool for monitoring and controlling YSTECH power conversion
// systems over CAN bus.

package main

import (
	"os"

	"github.com/kestrel-grid/pcsctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
