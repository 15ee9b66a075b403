// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package canbus

import (
	"fmt"
	"log/slog"
	"time"
)

// Default reconnect policy: four attempts, doubling the wait between them.
const (
	DefaultDialAttempts = 4
	DefaultDialBackoff  = 2 * time.Second
)

// Dialer opens a transport.
type Dialer func() (Transport, error)

// DialRetry opens a transport through dial, retrying failures with
// exponential backoff. The first attempt is immediate; each failure waits
// base, then 2*base, and so on. Returns the last dial error once the
// attempts are exhausted. logger may be nil.
func DialRetry(dial Dialer, attempts int, base time.Duration, logger *slog.Logger) (Transport, error) {
	if attempts < 1 {
		attempts = 1
	}

	delay := base
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		tr, err := dial()
		if err == nil {
			return tr, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if logger != nil {
			logger.Warn("connect failed, retrying",
				"attempt", attempt, "next_try_in", delay, "err", err)
		}
		time.Sleep(delay)
		delay *= 2
	}
	return nil, fmt.Errorf("canbus: connect failed after %d attempts: %w", attempts, lastErr)
}
