// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package canbus

import "sync/atomic"

// Stats tracks per-transport frame counters. All counters are safe for
// concurrent update from the send and receive paths.
type Stats struct {
	TxFrames atomic.Uint64
	RxFrames atomic.Uint64
	TxErrors atomic.Uint64
	RxErrors atomic.Uint64
	// RxDropped counts frames discarded because the receive queue was full.
	RxDropped atomic.Uint64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	TxFrames  uint64
	RxFrames  uint64
	TxErrors  uint64
	RxErrors  uint64
	RxDropped uint64
}

// Snapshot copies the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		TxFrames:  s.TxFrames.Load(),
		RxFrames:  s.RxFrames.Load(),
		TxErrors:  s.TxErrors.Load(),
		RxErrors:  s.RxErrors.Load(),
		RxDropped: s.RxDropped.Load(),
	}
}
