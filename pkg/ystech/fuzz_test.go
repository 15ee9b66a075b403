// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kestrel Grid Systems

package ystech

import (
	"math"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// TestFuzz_IDRoundTrip packs random identifier fields and verifies they
// survive a parse unchanged.
func TestFuzz_IDRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		pf := uint8(rng.Intn(256))
		ps := uint8(rng.Intn(256))
		sa := uint8(rng.Intn(256))
		prio := uint8(rng.Intn(8))

		id := BuildID(pf, ps, sa, prio)
		if id > 0x1FFFFFFF {
			t.Fatalf("round %d: id 0x%X exceeds 29 bits", i, id)
		}
		f := ParseID(id)
		if f.PF != pf || f.PS != ps || f.SA != sa || f.Priority != prio {
			t.Fatalf("round %d: built (pf=0x%02X ps=0x%02X sa=0x%02X prio=%d), parsed %+v",
				i, pf, ps, sa, prio, f)
		}
	}
}

// TestFuzz_DecodeNeverPanics feeds random 8-byte payloads to every PF code
// and verifies the dispatcher stays total: typed record or silence, never a
// panic.
func TestFuzz_DecodeNeverPanics(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	state := NewDeviceState()
	for i := 0; i < rounds; i++ {
		pf := uint8(rng.Intn(256))
		data := make([]byte, 8)
		rng.Read(data)

		id := RxID(pf, DeviceDefaultAddr)
		name, record, err := Decode(id, data)
		if err != nil {
			t.Fatalf("round %d: Decode(pf=0x%02X) error: %v", i, pf, err)
		}
		if (name == "") != (record == nil) {
			t.Fatalf("round %d: inconsistent result (%q, %v)", i, name, record)
		}
		if record != nil {
			// Formatting and state application must accept any decoded record.
			if s := FormatRecord(record); s == "" {
				t.Fatalf("round %d: empty formatting for %T", i, record)
			}
			state.Apply(record)
		}
	}
}

// TestFuzz_ScaleRoundTrip checks that encode-then-decode of protection
// parameters never drifts more than one resolution step.
func TestFuzz_ScaleRoundTrip(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for i := 0; i < rounds; i++ {
		// u16 fields at 0.1 resolution cover 0..6553.5.
		v := float64(rng.Intn(65536)) * 0.1 * rng.Float64()
		_, data := EncodeSetProtectionParams1(v, v, v, v, DeviceDefaultAddr)
		p := DecodeProtectionParams1(data)
		if math.Abs(p.MaxOutputVoltage-v) > 0.1 {
			t.Fatalf("round %d: %v decoded as %v", i, v, p.MaxOutputVoltage)
		}
	}
}
