// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package framelog

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-grid/pcsctl/pkg/ystech"
)

var testTime = time.Date(2026, 8, 29, 12, 0, 0, 500e6, time.UTC)

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatCSV, FormatForPath("capture.csv"))
	assert.Equal(t, FormatCSV, FormatForPath("capture"))
	assert.Equal(t, FormatJSONL, FormatForPath("capture.jsonl"))
	assert.Equal(t, FormatJSONL, FormatForPath("capture.JSON"))
	assert.Equal(t, FormatCBOR, FormatForPath("capture.cbor"))
}

func TestWriter_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.csv")
	w, err := Create(path)
	require.NoError(t, err)

	id := ystech.RxID(ystech.PFDCData, ystech.DeviceDefaultAddr)
	data := []byte{0x0F, 0xA0, 0x29, 0x04, 0x00, 0xC8, 0x03, 0x52}
	w.LogFrame(testTime, "RX", id, data, ystech.DecodeDCData(data))
	w.LogFrame(testTime, "TX", ystech.TxID(ystech.PFStartStop, ystech.DeviceDefaultAddr), make([]byte, 8), nil)
	assert.Equal(t, 2, w.Count())
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"timestamp", "direction", "can_id", "dlc", "data_hex", "pf", "pf_name", "decoded"}, rows[0])

	rx := rows[1]
	assert.Equal(t, "RX", rx[1])
	assert.Equal(t, "0x1811B4FA", rx[2])
	assert.Equal(t, "8", rx[3])
	assert.Equal(t, "0f a0 29 04 00 c8 03 52", rx[4])
	assert.Equal(t, "0x11", rx[5])
	assert.Equal(t, "DCData", rx[6])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(rx[7]), &decoded))
	assert.InDelta(t, 400.0, decoded["voltage"].(float64), 0.01)
	assert.InDelta(t, 50.0, decoded["current"].(float64), 0.01)

	// Frames without a decoded record leave the column empty.
	assert.Equal(t, "", rows[2][7])
}

func TestWriter_JSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	w, err := Create(path)
	require.NoError(t, err)

	id := ystech.RxID(ystech.PFStatus, ystech.DeviceDefaultAddr)
	data := []byte{6, 0, 0x80, 0x0D, 0, 0, 0, 0}
	w.LogFrame(testTime, "RX", id, data, ystech.DecodeStatus(data))
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec Record
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Equal(t, "RX", rec.Direction)
	assert.Equal(t, "Status", rec.PFName)
	assert.Equal(t, "0x13", rec.PF)
	assert.Equal(t, 8, rec.DLC)
	assert.Equal(t, "FAULT", rec.Decoded["running_state"])
}

func TestWriter_CBOR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.cbor")
	w, err := Create(path)
	require.NoError(t, err)

	id := ystech.RxID(ystech.PFDCData, ystech.DeviceDefaultAddr)
	data := []byte{0x0F, 0xA0, 0x29, 0x04, 0x00, 0xC8, 0x03, 0x52}
	for i := 0; i < 3; i++ {
		w.LogFrame(testTime, "RX", id, data, ystech.DecodeDCData(data))
	}
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := cbor.NewDecoder(f)
	var count int
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			break
		}
		assert.Equal(t, "DCData", rec.PFName)
		count++
	}
	assert.Equal(t, 3, count)
}

func TestWriter_LogAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.csv")
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Must not panic or write.
	w.LogFrame(testTime, "RX", 0x1811B4FA, make([]byte, 8), nil)
	assert.Equal(t, 0, w.Count())
}
