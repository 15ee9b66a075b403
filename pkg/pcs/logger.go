// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package pcs

import (
	"log/slog"
	"os"
	"runtime"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// NewLogger builds the colored slog logger used throughout the tool. Color
// is dropped automatically when stderr is not a terminal, so redirected
// output stays machine-readable.
func NewLogger(level slog.Level) *slog.Logger {
	var handler slog.Handler

	if runtime.GOOS == "windows" {
		w := colorable.NewColorableStderr()
		handler = tint.NewHandler(w, &tint.Options{Level: level})
	} else {
		w := os.Stderr
		handler = tint.NewHandler(w, &tint.Options{
			Level:   level,
			NoColor: !isatty.IsTerminal(w.Fd()),
		})
	}

	return slog.New(handler)
}

// ParseLogLevel maps a --log-level flag value to a slog level, defaulting
// to info for unknown strings.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
