// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kestrel Grid Systems

package cmd

import (
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kestrel-grid/pcsctl/pkg/pcs"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI for monitoring and controlling the PCS",
	Long: `Monitor and control a YSTECH PCS via an interactive terminal UI.

Features:
  - Live telemetry: running state, faults, DC and AC measurements
  - Bus statistics (frames sent/received, errors, drops)
  - Event log with fault transitions
  - Enable / disable / reset-faults via single keys
  - Working-mode selection and setpoint entry

Keys:
  e          enable        d  disable       r  reset faults
  tab        switch focus  enter  apply selected mode + setpoints
  q, ctrl+c  quit

Supports all bus drivers; pair with --dry-run to explore without hardware.`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	tr, connInfo, cleanup, err := OpenTransport()
	if err != nil {
		return err
	}
	defer cleanup()

	// The session logger would write over the alt screen, so the
	// controller gets a discarding one while the TUI owns the terminal.
	cfg := pcs.Config{DeviceAddr: deviceAddr, AutoHeartbeat: true}.Defaults()
	ctl := pcs.New(tr, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	ctl.Start()
	defer ctl.Stop()

	m := initialDashboardModel(ctl, tr, connInfo)
	p := tea.NewProgram(m, tea.WithAltScreen())

	ctl.AddObserver(func(name string, record any) {
		p.Send(telemetryMsg{name: name, record: record})
	})

	_, err = p.Run()
	return err
}
