// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package canbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCANName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"can0", true},
		{"can1", true},
		{"vcan0", true},
		{"vcan12", true},
		{"can", true},
		// Short non-CAN names must not match (or panic).
		{"br0", false},
		{"ib0", false},
		{"lo", false},
		{"eth0", false},
		{"docker0", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, isCANName(tt.name), "interface %q", tt.name)
	}
}
