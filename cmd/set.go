// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kestrel Grid Systems

package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/kestrel-grid/pcsctl/pkg/pcs"
	"github.com/kestrel-grid/pcsctl/pkg/ystech"
	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change working mode, setpoints, protection limits, or the clock",
}

var setModeCmd = &cobra.Command{
	Use:   "mode <name> [param...]",
	Short: "Select a working mode, optionally with setpoint parameters",
	Long: `Select a working mode by its protocol name, e.g.:

  pcsctl set mode DC_CONSTANT_VOLTAGE 400.0
  pcsctl set mode AC_CONSTANT_POWER 25.0 0.95
  pcsctl set mode IDLE

Use "pcsctl modes" to list all modes and their parameters.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, ok := ystech.ModeByName(args[0])
		if !ok {
			return fmt.Errorf("unknown working mode %q", args[0])
		}
		params, err := parseFloats(args[1:])
		if err != nil {
			return err
		}
		return applyMode(mode, params)
	},
}

var setCVCmd = &cobra.Command{
	Use:   "cv <voltage>",
	Short: "DC constant voltage mode",
	Args:  cobra.ExactArgs(1),
	RunE:  modeRunE(ystech.ModeDCConstantVoltage),
}

var setCCCmd = &cobra.Command{
	Use:   "cc <current>",
	Short: "DC constant current mode (positive charges, negative discharges)",
	Args:  cobra.ExactArgs(1),
	RunE:  modeRunE(ystech.ModeDCConstantCurrent),
}

var setCPCmd = &cobra.Command{
	Use:   "cp <power>",
	Short: "DC constant power mode",
	Args:  cobra.ExactArgs(1),
	RunE:  modeRunE(ystech.ModeDCConstantPower),
}

var setCCCVCmd = &cobra.Command{
	Use:   "cccv <voltage> <current>",
	Short: "DC CC-CV charge mode",
	Args:  cobra.ExactArgs(2),
	RunE:  modeRunE(ystech.ModeDCCCCV),
}

var setTimeCmd = &cobra.Command{
	Use:   "time",
	Short: "Synchronize the device clock to this host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withController(func(ctl *pcs.Controller) error {
			now := time.Now()
			if err := ctl.SetTime(now); err != nil {
				return err
			}
			fmt.Printf("Device clock set to %s\n", now.Format("2006-01-02 15:04:05"))
			return nil
		})
	},
}

var setProtectionCmd = &cobra.Command{
	Use:   "protection <group 1|2|3> <v1> <v2> <v3> <v4>",
	Short: "Write one protection parameter group",
	Long: `Write one of the three protection parameter groups:

  group 1: max_output_voltage min_output_voltage max_charge_current max_discharge_current
  group 2: max_charge_power max_discharge_power ac_voltage_upper ac_voltage_lower
  group 3: discharge_freq_upper charge_freq_lower ac_freq_upper ac_freq_lower`,
	Args: cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		vals, err := parseFloats(args[1:])
		if err != nil {
			return err
		}
		return withController(func(ctl *pcs.Controller) error {
			var err error
			switch args[0] {
			case "1":
				err = ctl.SetProtectionParams1(vals[0], vals[1], vals[2], vals[3])
			case "2":
				err = ctl.SetProtectionParams2(vals[0], vals[1], vals[2], vals[3])
			case "3":
				err = ctl.SetProtectionParams3(vals[0], vals[1], vals[2], vals[3])
			default:
				return fmt.Errorf("protection group must be 1, 2, or 3 (got %q)", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Printf("Protection group %s written\n", args[0])
			return nil
		})
	},
}

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List working modes and their setpoint parameters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, mode := range ystech.AllModes() {
			fmt.Printf("0x%02X  %-40s", uint8(mode), mode)
			for i, p := range mode.Params() {
				if i > 0 {
					fmt.Print(",")
				}
				fmt.Printf(" %s [%s]", p.Name, p.Unit)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	setCmd.AddCommand(setModeCmd)
	setCmd.AddCommand(setCVCmd)
	setCmd.AddCommand(setCCCmd)
	setCmd.AddCommand(setCPCmd)
	setCmd.AddCommand(setCCCVCmd)
	setCmd.AddCommand(setTimeCmd)
	setCmd.AddCommand(setProtectionCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(modesCmd)
}

// modeRunE builds a RunE that parses all args as setpoints for a fixed mode.
func modeRunE(mode ystech.WorkingMode) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		params, err := parseFloats(args)
		if err != nil {
			return err
		}
		return applyMode(mode, params)
	}
}

// applyMode selects the working mode and, when setpoints were given, writes
// them afterwards. The device acknowledges each step separately.
func applyMode(mode ystech.WorkingMode, params []float64) error {
	if want := len(mode.Params()); len(params) > want {
		return fmt.Errorf("mode %s takes at most %d parameters (got %d)", mode, want, len(params))
	}
	return withController(func(ctl *pcs.Controller) error {
		if err := ctl.SetWorkingMode(mode); err != nil {
			return fmt.Errorf("set mode %s: %w", mode, err)
		}
		if len(params) > 0 {
			if err := ctl.SetModeParameters(mode, params...); err != nil {
				return fmt.Errorf("set %s parameters: %w", mode, err)
			}
		}
		fmt.Printf("Mode %s selected", mode)
		for i, p := range params {
			if i == 0 {
				fmt.Print(" with")
			}
			spec := mode.Params()[i]
			fmt.Printf(" %s=%g%s", spec.Name, p, spec.Unit)
		}
		fmt.Println()
		return nil
	})
}

func parseFloats(args []string) ([]float64, error) {
	vals := make([]float64, 0, len(args))
	for _, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", a)
		}
		vals = append(vals, v)
	}
	return vals, nil
}
