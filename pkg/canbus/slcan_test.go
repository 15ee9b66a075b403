// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package canbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSLCAN(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  string
	}{
		{
			name:  "extended with full payload",
			frame: Frame{ID: 0x1811B4FA, Data: []byte{0x0F, 0xA0, 0x29, 0x04, 0x00, 0xC8, 0x03, 0x52}, Extended: true},
			want:  "T1811B4FA80FA0290400C80352\r",
		},
		{
			name:  "standard empty",
			frame: Frame{ID: 0x123},
			want:  "t1230\r",
		},
		{
			name:  "extended id masked to 29 bits",
			frame: Frame{ID: 0xFFFFFFFF, Data: []byte{0x01}, Extended: true},
			want:  "T1FFFFFFF101\r",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatSLCAN(tt.frame))
		})
	}
}

func TestParseSLCAN(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Frame
		ok   bool
	}{
		{
			name: "extended frame",
			line: "T1811B4FA80FA0290400C80352",
			want: Frame{ID: 0x1811B4FA, Data: []byte{0x0F, 0xA0, 0x29, 0x04, 0x00, 0xC8, 0x03, 0x52}, Extended: true},
			ok:   true,
		},
		{
			name: "standard frame",
			line: "t1232ABCD",
			want: Frame{ID: 0x123, Data: []byte{0xAB, 0xCD}},
			ok:   true,
		},
		{
			name: "empty line",
			line: "",
			ok:   false,
		},
		{
			name: "command acknowledgement",
			line: "z",
			ok:   false,
		},
		{
			name: "remote frame request",
			line: "R1811B4FA8",
			ok:   false,
		},
		{
			name: "truncated payload",
			line: "T1811B4FA80FA0",
			ok:   false,
		},
		{
			name: "bad dlc",
			line: "T1811B4FA9" + "00",
			ok:   false,
		},
		{
			name: "non-hex identifier",
			line: "T1811B4GZ10A",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseSLCAN(tt.line)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSLCAN_FormatParseRoundTrip(t *testing.T) {
	frames := []Frame{
		{ID: 0x1811B4FA, Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}, Extended: true},
		{ID: 0x181AFAB4, Data: []byte{0x27, 0x10, 0x27, 0x10, 0x02, 0, 0, 0}, Extended: true},
		{ID: 0x7FF, Data: []byte{0xFF}},
		{ID: 0x000, Extended: true},
	}

	for _, f := range frames {
		line := formatSLCAN(f)
		got, ok := parseSLCAN(line[:len(line)-1])
		require.True(t, ok, "line %q", line)
		assert.Equal(t, f.ID, got.ID)
		assert.Equal(t, f.Extended, got.Extended)
		assert.Equal(t, len(f.Data), len(got.Data))
		if len(f.Data) > 0 {
			assert.Equal(t, f.Data, got.Data)
		}
	}
}

func TestSLCANBitrates(t *testing.T) {
	// The protocol runs at 250 kbps; make sure the setup code is right.
	assert.Equal(t, "S5", slcanBitrates[250000])
	_, err := OpenSLCAN("/nonexistent", 12345)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported bitrate")
}
