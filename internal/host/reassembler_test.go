package host

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/openglyph/gesturelink/internal/testutil"
	"github.com/openglyph/gesturelink/internal/wire"
)

func encodeAll(t *testing.T, plan wire.TransferPlan) [][]byte {
	t.Helper()
	chunks, err := wire.EncodeChunks(testutil.RampSamples(plan.Capacity), plan)
	testutil.AssertNoError(t, err)
	out := make([][]byte, len(chunks))
	for i, c := range chunks {
		p, err := c.Encode()
		testutil.AssertNoError(t, err)
		out[i] = p
	}
	return out
}

func TestReassemblerOrderIndependent(t *testing.T) {
	plan := wire.DefaultPlan()
	payloads := encodeAll(t, plan)

	forward, err := NewReassembler(plan)
	testutil.AssertNoError(t, err)
	for _, p := range payloads {
		testutil.AssertNoError(t, forward.Add(p))
	}
	want, err := forward.Materialize()
	testutil.AssertNoError(t, err)
	if len(want) != plan.Capacity {
		t.Fatalf("materialized %d samples, want %d", len(want), plan.Capacity)
	}

	reversed, err := NewReassembler(plan)
	testutil.AssertNoError(t, err)
	for i := len(payloads) - 1; i >= 0; i-- {
		testutil.AssertNoError(t, reversed.Add(payloads[i]))
	}
	got, err := reversed.Materialize()
	testutil.AssertNoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("arrival order changed the capture (-forward +reversed):\n%s", diff)
	}
}

func TestReassemblerDuplicatesIgnored(t *testing.T) {
	plan := wire.TransferPlan{Capacity: 5, SamplesPerChunk: 2}
	payloads := encodeAll(t, plan)

	r, err := NewReassembler(plan)
	testutil.AssertNoError(t, err)
	for _, p := range payloads {
		testutil.AssertNoError(t, r.Add(p))
		testutil.AssertNoError(t, r.Add(p))
	}
	if r.Duplicates() != len(payloads) {
		t.Fatalf("Duplicates = %d, want %d", r.Duplicates(), len(payloads))
	}
	if !r.Complete() {
		t.Fatal("not complete after all chunks")
	}
	got, err := r.Materialize()
	testutil.AssertNoError(t, err)
	if diff := cmp.Diff(sampleGrid(testutil.RampSamples(plan.Capacity)), got); diff != "" {
		t.Fatalf("duplicate deliveries corrupted the capture:\n%s", diff)
	}
}

func sampleGrid(in []wire.Sample) [][3]float64 {
	out := make([][3]float64, len(in))
	for i, s := range in {
		out[i] = [3]float64{float64(s.X) / 1000, float64(s.Y) / 1000, float64(s.Z) / 1000}
	}
	return out
}

func TestReassemblerMissing(t *testing.T) {
	plan := wire.TransferPlan{Capacity: 7, SamplesPerChunk: 2} // 4 chunks
	payloads := encodeAll(t, plan)

	r, err := NewReassembler(plan)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, r.Add(payloads[0]))
	testutil.AssertNoError(t, r.Add(payloads[3]))

	if got := r.Missing(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("Missing = %v, want [1 2]", got)
	}
	if _, err := r.Materialize(); !errors.Is(err, ErrIncompleteCapture) {
		t.Fatalf("Materialize err = %v, want %v", err, ErrIncompleteCapture)
	}
}

func TestReassemblerRejectsMalformed(t *testing.T) {
	plan := wire.TransferPlan{Capacity: 5, SamplesPerChunk: 2}
	r, err := NewReassembler(plan)
	testutil.AssertNoError(t, err)

	// Sequence number outside the plan.
	bad := wire.Chunk{Seq: 9, Samples: testutil.RampSamples(2)}
	p, err := bad.Encode()
	testutil.AssertNoError(t, err)
	testutil.AssertError(t, r.Add(p))

	// Interior chunk with the wrong sample count.
	bad = wire.Chunk{Seq: 0, Samples: testutil.RampSamples(1)}
	p, err = bad.Encode()
	testutil.AssertNoError(t, err)
	testutil.AssertError(t, r.Add(p))

	// Truncated payload.
	testutil.AssertError(t, r.Add([]byte{0, 2, 1}))

	if r.Received() != 0 {
		t.Fatalf("malformed input slotted in: Received = %d", r.Received())
	}
}
