package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrChunkTooLarge = errors.New("wire: chunk exceeds notification budget")
	ErrShortChunk    = errors.New("wire: truncated chunk payload")
)

// Sample is one 3-axis accelerometer reading in milli-g, immutable once
// recorded.
type Sample struct {
	X, Y, Z int16
}

// Chunk is one sequenced unit of the transfer: a dense 0-based sequence
// number and the samples it carries.
type Chunk struct {
	Seq     uint8
	Samples []Sample
}

// Encode packs the chunk as [seq][count][count * 3 * int16 little-endian].
func (c Chunk) Encode() ([]byte, error) {
	if ChunkHeaderBytes+len(c.Samples)*BytesPerSample > MaxNotificationBytes {
		return nil, fmt.Errorf("%w: %d samples", ErrChunkTooLarge, len(c.Samples))
	}
	buf := make([]byte, ChunkHeaderBytes+len(c.Samples)*BytesPerSample)
	buf[0] = c.Seq
	buf[1] = byte(len(c.Samples))
	for i, s := range c.Samples {
		off := ChunkHeaderBytes + i*BytesPerSample
		binary.LittleEndian.PutUint16(buf[off:], uint16(s.X))
		binary.LittleEndian.PutUint16(buf[off+2:], uint16(s.Y))
		binary.LittleEndian.PutUint16(buf[off+4:], uint16(s.Z))
	}
	return buf, nil
}

// DecodeChunk parses a data notification payload. The payload may carry
// fewer bytes than the count claims only if the link truncated it, which is
// reported as ErrShortChunk so the caller can drop the notification.
func DecodeChunk(data []byte) (Chunk, error) {
	if len(data) < ChunkHeaderBytes {
		return Chunk{}, fmt.Errorf("%w: %d bytes", ErrShortChunk, len(data))
	}
	count := int(data[1])
	if len(data) < ChunkHeaderBytes+count*BytesPerSample {
		return Chunk{}, fmt.Errorf("%w: %d bytes for %d samples", ErrShortChunk, len(data), count)
	}
	c := Chunk{Seq: data[0], Samples: make([]Sample, count)}
	for i := 0; i < count; i++ {
		off := ChunkHeaderBytes + i*BytesPerSample
		c.Samples[i] = Sample{
			X: int16(binary.LittleEndian.Uint16(data[off:])),
			Y: int16(binary.LittleEndian.Uint16(data[off+2:])),
			Z: int16(binary.LittleEndian.Uint16(data[off+4:])),
		}
	}
	return c, nil
}

// EncodeChunks partitions a full capture buffer into its chunk sequence per
// the plan. Deterministic: the same buffer and plan always produce the same
// chunks in the same order.
func EncodeChunks(buf []Sample, plan TransferPlan) ([]Chunk, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if len(buf) != plan.Capacity {
		return nil, fmt.Errorf("wire: buffer holds %d samples, plan expects %d", len(buf), plan.Capacity)
	}
	chunks := make([]Chunk, 0, plan.TotalChunks())
	for seq := 0; seq < plan.TotalChunks(); seq++ {
		start := seq * plan.SamplesPerChunk
		end := start + plan.ChunkSampleCount(seq)
		chunks = append(chunks, Chunk{Seq: uint8(seq), Samples: buf[start:end]})
	}
	return chunks, nil
}
