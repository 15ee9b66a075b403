// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

// Package framelog records CAN traffic to capture files. Three formats are
// supported, selected by file extension: CSV for spreadsheets, JSONL for
// scripted analysis, and a CBOR sequence for compact long captures.
package framelog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/kestrel-grid/pcsctl/pkg/ystech"
)

// Format selects the on-disk encoding.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
	FormatCBOR  Format = "cbor"
)

// FormatForPath picks the format from a file extension, defaulting to CSV.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".json":
		return FormatJSONL
	case ".cbor":
		return FormatCBOR
	default:
		return FormatCSV
	}
}

// csvHeader is the fixed column set; external tooling depends on it.
var csvHeader = []string{"timestamp", "direction", "can_id", "dlc", "data_hex", "pf", "pf_name", "decoded"}

// Record is one captured frame.
type Record struct {
	Timestamp string         `json:"timestamp"`
	Direction string         `json:"direction"`
	CANID     string         `json:"can_id"`
	DLC       int            `json:"dlc"`
	DataHex   string         `json:"data_hex"`
	PF        string         `json:"pf"`
	PFName    string         `json:"pf_name"`
	Decoded   map[string]any `json:"decoded,omitempty"`
}

// newRecord builds a Record from a frame and its optional decoded form.
func newRecord(ts time.Time, direction string, id uint32, data []byte, decoded any) Record {
	pf := ystech.ParseID(id).PF

	hexParts := make([]string, len(data))
	for i, b := range data {
		hexParts[i] = fmt.Sprintf("%02x", b)
	}

	rec := Record{
		Timestamp: ts.Format("2006-01-02T15:04:05.000"),
		Direction: direction,
		CANID:     fmt.Sprintf("0x%08X", id),
		DLC:       len(data),
		DataHex:   strings.Join(hexParts, " "),
		PF:        fmt.Sprintf("0x%02X", pf),
		PFName:    ystech.PFName(pf),
	}
	if fields := ystech.RecordFields(decoded); fields != nil {
		rec.Decoded = make(map[string]any, len(fields))
		for _, f := range fields {
			rec.Decoded[f.Key] = f.Value
		}
	}
	return rec
}

// Writer appends frame records to one capture file. Safe for concurrent
// use; the receive loop and command paths both log through it.
type Writer struct {
	mu     sync.Mutex
	f      io.WriteCloser
	format Format
	csv    *csv.Writer
	cbor   *cbor.Encoder
	count  int
	closed bool
}

// Create opens path for writing, truncating any existing capture, and
// writes the CSV header when applicable.
func Create(path string) (*Writer, error) {
	return CreateFormat(path, FormatForPath(path))
}

// CreateFormat is Create with an explicit format.
func CreateFormat(path string, format Format) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("framelog: create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("framelog: create %s: %w", path, err)
	}

	w := &Writer{f: f, format: format}
	switch format {
	case FormatCSV:
		w.csv = csv.NewWriter(f)
		if err := w.csv.Write(csvHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("framelog: write header: %w", err)
		}
	case FormatCBOR:
		w.cbor = cbor.NewEncoder(f)
	case FormatJSONL:
	default:
		f.Close()
		return nil, fmt.Errorf("framelog: unknown format %q", format)
	}
	return w, nil
}

// LogFrame appends one frame. decoded may be nil. Write errors are
// swallowed after the first, so a full disk degrades capture instead of
// killing the session.
func (w *Writer) LogFrame(ts time.Time, direction string, id uint32, data []byte, decoded any) {
	rec := newRecord(ts, direction, id, data, decoded)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if err := w.write(rec); err == nil {
		w.count++
	}
}

func (w *Writer) write(rec Record) error {
	switch w.format {
	case FormatCSV:
		decoded := ""
		if rec.Decoded != nil {
			b, err := json.Marshal(rec.Decoded)
			if err != nil {
				return err
			}
			decoded = string(b)
		}
		row := []string{
			rec.Timestamp, rec.Direction, rec.CANID,
			fmt.Sprintf("%d", rec.DLC), rec.DataHex,
			rec.PF, rec.PFName, decoded,
		}
		if err := w.csv.Write(row); err != nil {
			return err
		}
		w.csv.Flush()
		return w.csv.Error()
	case FormatJSONL:
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = w.f.Write(append(b, '\n'))
		return err
	case FormatCBOR:
		return w.cbor.Encode(rec)
	}
	return nil
}

// Count returns the number of records written so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close flushes and closes the capture file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.csv != nil {
		w.csv.Flush()
	}
	return w.f.Close()
}
