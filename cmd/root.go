// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kestrel Grid Systems

package cmd

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kestrel-grid/pcsctl/pkg/pcs"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Bus selection flags
	driver  string
	channel string
	bitrate int

	// Serial adapter flags (slcan driver)
	portName string

	// WebSocket bridge flags (ws driver)
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Session flags
	deviceAddr uint8
	dryRun     bool
	logLevel   string
	cfgFile    string

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pcsctl",
	Short: "YSTECH PCS CAN control tool",
	Long: `Pcsctl - A CLI tool for monitoring and controlling YSTECH power
conversion systems over CAN bus.

Provides commands for live frame monitoring, enable/disable/fault control,
working-mode and setpoint configuration, frame capture, and an interactive
dashboard.

Bus drivers:
  socketcan: --driver socketcan --channel can0          (Linux only)
  slcan:     --driver slcan --port /dev/ttyUSB0
  ws:        --driver ws --url ws://host/can [--username user]
  virtual:   --driver virtual (in-process bus, pairs with --dry-run)

With --dry-run a simulated PCS is attached to an in-process bus, so every
command can be exercised without hardware.

For WebSocket authentication, the password is read from the PCSCTL_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell
history.

Settings may also come from a config file (--config, ./config.yaml, or
~/.config/pcsctl/config.yaml); flags given on the command line win.`,
	Version:           "1.2.0",
	PersistentPreRunE: initConfig,
}

func init() {
	// Bus selection flags
	rootCmd.PersistentFlags().StringVarP(&driver, "driver", "d", "socketcan", "Bus driver (socketcan | slcan | ws | virtual)")
	rootCmd.PersistentFlags().StringVarP(&channel, "channel", "c", "can0", "CAN interface name (socketcan only)")
	rootCmd.PersistentFlags().IntVarP(&bitrate, "bitrate", "b", 250000, "CAN bitrate (slcan only)")

	// Serial adapter flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device (slcan only)")

	// WebSocket bridge flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Session flags
	rootCmd.PersistentFlags().Uint8VarP(&deviceAddr, "addr", "a", 0xFA, "PCS device address")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Attach a simulated PCS on an in-process bus")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug | info | warn | error)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path")
}

// initConfig loads the optional config file and applies its values to any
// flag the user did not set explicitly. Runs before every command.
func initConfig(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(filepath.Join(dir, "pcsctl"))
		}
	}
	viper.SetEnvPrefix("PCSCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}

	flags := cmd.Flags()
	if !flags.Changed("driver") && viper.IsSet("driver") {
		driver = viper.GetString("driver")
	}
	if !flags.Changed("channel") && viper.IsSet("channel") {
		channel = viper.GetString("channel")
	}
	if !flags.Changed("bitrate") && viper.IsSet("bitrate") {
		bitrate = viper.GetInt("bitrate")
	}
	if !flags.Changed("port") && viper.IsSet("port") {
		portName = viper.GetString("port")
	}
	if !flags.Changed("url") && viper.IsSet("url") {
		wsURL = viper.GetString("url")
	}
	if !flags.Changed("username") && viper.IsSet("username") {
		wsUsername = viper.GetString("username")
	}
	if !flags.Changed("addr") && viper.IsSet("addr") {
		deviceAddr = uint8(viper.GetUint("addr"))
	}
	if !flags.Changed("log-level") && viper.IsSet("log_level") {
		logLevel = viper.GetString("log_level")
	}

	logger = pcs.NewLogger(pcs.ParseLogLevel(logLevel))
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
