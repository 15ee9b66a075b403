// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package canbus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialRetry_EventualSuccess(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	calls := 0
	dial := func() (Transport, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("no carrier")
		}
		return hub.Attach("late"), nil
	}

	tr, err := DialRetry(dial, 4, time.Millisecond, nil)
	require.NoError(t, err)
	defer tr.Close()

	assert.Equal(t, 3, calls, "should succeed on the third attempt")
}

func TestDialRetry_Exhausted(t *testing.T) {
	dialErr := errors.New("no carrier")
	calls := 0
	dial := func() (Transport, error) {
		calls++
		return nil, dialErr
	}

	tr, err := DialRetry(dial, 4, time.Millisecond, nil)
	assert.Nil(t, tr)
	assert.ErrorIs(t, err, dialErr)
	assert.Equal(t, 4, calls, "should stop after the configured attempts")
}

func TestDialRetry_Backoff(t *testing.T) {
	start := time.Now()
	dial := func() (Transport, error) {
		return nil, errors.New("no carrier")
	}

	// 3 attempts with base 10ms: waits of 10ms and 20ms between them.
	_, err := DialRetry(dial, 3, 10*time.Millisecond, nil)
	assert.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond,
		"delays should double between attempts")
}
