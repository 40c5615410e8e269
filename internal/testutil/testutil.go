// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common helpers used by the protocol tests so
// individual test files stay focused on behavior.
package testutil

import (
	"testing"
	"time"

	"github.com/openglyph/gesturelink/internal/wire"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// RampSamples returns n deterministic samples with distinct axis values,
// useful for asserting ordering end to end.
func RampSamples(n int) []wire.Sample {
	out := make([]wire.Sample, n)
	for i := range out {
		out[i] = wire.Sample{X: int16(i), Y: int16(-i), Z: int16(i * 2)}
	}
	return out
}

// WaitStatus receives from ch until it sees want, failing after the
// timeout. Intermediate statuses are discarded.
func WaitStatus(t *testing.T, ch <-chan wire.Status, want wire.Status, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case s := <-ch:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("status %v not observed within %v", want, timeout)
		}
	}
}
