// Package host implements the collecting side of the capture protocol:
// chunk reassembly into a full sample buffer, and the session loop that
// drives one capture over a host link.
package host

import (
	"errors"
	"fmt"

	"github.com/openglyph/gesturelink/internal/gunit"
	"github.com/openglyph/gesturelink/internal/monitoring"
	"github.com/openglyph/gesturelink/internal/wire"
)

// ErrIncompleteCapture reports a materialize attempt before every expected
// chunk has arrived.
var ErrIncompleteCapture = errors.New("host: incomplete capture")

// Reassembler rebuilds one capture from data notifications. Chunks may
// arrive in any order and any number of times; the first copy of each
// sequence number wins and later copies are ignored. Completeness is
// judged purely against the transfer plan, never against arrival order.
type Reassembler struct {
	plan     wire.TransferPlan
	chunks   map[uint8][]wire.Sample
	expected int
	dups     int
}

// NewReassembler starts an empty reassembly for one capture under plan.
func NewReassembler(plan wire.TransferPlan) (*Reassembler, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &Reassembler{
		plan:     plan,
		chunks:   make(map[uint8][]wire.Sample),
		expected: plan.TotalChunks(),
	}, nil
}

// Add decodes one data notification and slots it in. Duplicates are
// counted and discarded without error. A chunk whose sequence number or
// sample count disagrees with the plan is rejected.
func (r *Reassembler) Add(payload []byte) error {
	c, err := wire.DecodeChunk(payload)
	if err != nil {
		return err
	}
	if int(c.Seq) >= r.expected {
		return fmt.Errorf("host: chunk seq %d outside plan of %d chunks", c.Seq, r.expected)
	}
	if want := r.plan.ChunkSampleCount(int(c.Seq)); len(c.Samples) != want {
		return fmt.Errorf("host: chunk %d carries %d samples, plan says %d", c.Seq, len(c.Samples), want)
	}
	if _, ok := r.chunks[c.Seq]; ok {
		r.dups++
		monitoring.Logf("host: duplicate chunk %d ignored", c.Seq)
		return nil
	}
	r.chunks[c.Seq] = c.Samples
	return nil
}

// Reset discards everything received so far; the plan stays.
func (r *Reassembler) Reset() {
	r.chunks = make(map[uint8][]wire.Sample)
	r.dups = 0
}

// Received returns how many distinct chunks have arrived.
func (r *Reassembler) Received() int { return len(r.chunks) }

// Duplicates returns how many redundant deliveries were discarded.
func (r *Reassembler) Duplicates() int { return r.dups }

// Complete reports whether every chunk the plan calls for has arrived.
func (r *Reassembler) Complete() bool { return len(r.chunks) == r.expected }

// Missing lists the sequence numbers not yet received, in order.
func (r *Reassembler) Missing() []uint8 {
	var out []uint8
	for i := 0; i < r.expected; i++ {
		if _, ok := r.chunks[uint8(i)]; !ok {
			out = append(out, uint8(i))
		}
	}
	return out
}

// Materialize converts the reassembled buffer back to g units, ordered by
// sample index. It fails with ErrIncompleteCapture if any chunk is
// missing; partial captures are never surfaced as data.
func (r *Reassembler) Materialize() ([][3]float64, error) {
	if !r.Complete() {
		return nil, fmt.Errorf("%w: %d of %d chunks", ErrIncompleteCapture, len(r.chunks), r.expected)
	}
	out := make([][3]float64, 0, r.plan.Capacity)
	for i := 0; i < r.expected; i++ {
		for _, s := range r.chunks[uint8(i)] {
			out = append(out, [3]float64{
				gunit.FromMilliG(s.X),
				gunit.FromMilliG(s.Y),
				gunit.FromMilliG(s.Z),
			})
		}
	}
	return out, nil
}
