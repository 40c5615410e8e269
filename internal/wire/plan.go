package wire

import (
	"errors"
	"fmt"
)

// MaxNotificationBytes is the largest payload the link will carry in one
// notification (the BLE default-MTU budget the original hardware was built
// around).
const MaxNotificationBytes = 20

// BytesPerSample is the packed size of one 3-axis milli-g sample.
const BytesPerSample = 6

// ChunkHeaderBytes covers the sequence and count bytes of a data payload.
const ChunkHeaderBytes = 2

// maxChunks is bounded by the one-byte sequence number.
const maxChunks = 256

var ErrInvalidPlan = errors.New("wire: invalid transfer plan")

// TransferPlan is the out-of-band agreement between node and host for one
// capture: how many samples a capture holds and how many travel per chunk.
// No chunk declares the total; both sides must be constructed from the same
// plan.
type TransferPlan struct {
	// Capacity is the number of samples in one complete capture.
	Capacity int
	// SamplesPerChunk is the number of samples packed per data notification.
	SamplesPerChunk int
}

// DefaultPlan matches the original hardware: 125 samples, 3 per chunk,
// 42 chunks with the final chunk holding 2 samples.
func DefaultPlan() TransferPlan {
	return TransferPlan{Capacity: 125, SamplesPerChunk: 3}
}

// Validate checks the plan against the link budget and sequencing limits.
func (p TransferPlan) Validate() error {
	if p.Capacity <= 0 {
		return fmt.Errorf("%w: capacity %d", ErrInvalidPlan, p.Capacity)
	}
	if p.SamplesPerChunk <= 0 {
		return fmt.Errorf("%w: samples per chunk %d", ErrInvalidPlan, p.SamplesPerChunk)
	}
	if size := ChunkHeaderBytes + p.SamplesPerChunk*BytesPerSample; size > MaxNotificationBytes {
		return fmt.Errorf("%w: chunk size %d exceeds %d byte notification budget",
			ErrInvalidPlan, size, MaxNotificationBytes)
	}
	if n := p.totalChunks(); n > maxChunks {
		return fmt.Errorf("%w: %d chunks exceeds one-byte sequence space", ErrInvalidPlan, n)
	}
	return nil
}

// TotalChunks returns ceil(Capacity / SamplesPerChunk).
func (p TransferPlan) TotalChunks() int {
	return p.totalChunks()
}

func (p TransferPlan) totalChunks() int {
	return (p.Capacity + p.SamplesPerChunk - 1) / p.SamplesPerChunk
}

// ChunkSampleCount returns how many samples chunk seq carries. The final
// chunk absorbs the remainder; out-of-range sequences return 0.
func (p TransferPlan) ChunkSampleCount(seq int) int {
	total := p.totalChunks()
	if seq < 0 || seq >= total {
		return 0
	}
	if seq < total-1 {
		return p.SamplesPerChunk
	}
	if rem := p.Capacity % p.SamplesPerChunk; rem != 0 {
		return rem
	}
	return p.SamplesPerChunk
}
