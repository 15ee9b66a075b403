// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kestrel Grid Systems

package cmd

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kestrel-grid/pcsctl/pkg/pcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_DryRunCaptureWithProgress(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "capture.jsonl")

	dryRun = true
	recordOutput = outPath
	recordDuration = 1500 * time.Millisecond
	logger = pcs.NewLogger(slog.LevelError)
	t.Cleanup(func() {
		dryRun = false
		recordOutput = ""
		recordDuration = 0
	})

	// Capture stdout to check the in-place progress line.
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	runErr := runRecord(recordCmd, nil)

	w.Close()
	os.Stdout = oldStdout
	output, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, runErr)

	// One periodic progress line plus the final count.
	assert.GreaterOrEqual(t, strings.Count(string(output), "\rCaptured "), 2,
		"progress should be reported while recording, not only at the end")

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.NotEmpty(t, data, "the simulated device's frames should be captured")
}
