package wire

import (
	"errors"
	"testing"
)

func TestDefaultPlanShape(t *testing.T) {
	plan := DefaultPlan()
	if err := plan.Validate(); err != nil {
		t.Fatalf("default plan invalid: %v", err)
	}
	if got := plan.TotalChunks(); got != 42 {
		t.Fatalf("TotalChunks() = %d, want 42", got)
	}
	for seq := 0; seq < 41; seq++ {
		if got := plan.ChunkSampleCount(seq); got != 3 {
			t.Fatalf("chunk %d sample count = %d, want 3", seq, got)
		}
	}
	if got := plan.ChunkSampleCount(41); got != 2 {
		t.Fatalf("final chunk sample count = %d, want 2", got)
	}
}

func TestPlanChunkCountsSumToCapacity(t *testing.T) {
	for _, plan := range []TransferPlan{
		{Capacity: 125, SamplesPerChunk: 3},
		{Capacity: 125, SamplesPerChunk: 1},
		{Capacity: 120, SamplesPerChunk: 3},
		{Capacity: 1, SamplesPerChunk: 3},
		{Capacity: 200, SamplesPerChunk: 2},
	} {
		if err := plan.Validate(); err != nil {
			t.Fatalf("plan %+v invalid: %v", plan, err)
		}
		sum := 0
		for seq := 0; seq < plan.TotalChunks(); seq++ {
			sum += plan.ChunkSampleCount(seq)
		}
		if sum != plan.Capacity {
			t.Errorf("plan %+v: counts sum to %d, want %d", plan, sum, plan.Capacity)
		}
	}
}

func TestPlanValidateRejects(t *testing.T) {
	cases := []TransferPlan{
		{Capacity: 0, SamplesPerChunk: 3},
		{Capacity: 125, SamplesPerChunk: 0},
		{Capacity: 125, SamplesPerChunk: 4},  // 2+24 bytes > 20
		{Capacity: 1000, SamplesPerChunk: 1}, // 1000 chunks > 1-byte seq
	}
	for _, plan := range cases {
		if err := plan.Validate(); !errors.Is(err, ErrInvalidPlan) {
			t.Errorf("plan %+v: expected ErrInvalidPlan, got %v", plan, err)
		}
	}
}

func TestChunkEncodeDecodeRoundTrip(t *testing.T) {
	in := Chunk{Seq: 7, Samples: []Sample{{X: 1000, Y: -250, Z: 981}, {X: -32768, Y: 32767, Z: 0}}}
	data, err := in.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(data) != 2+2*6 {
		t.Fatalf("encoded length = %d, want 14", len(data))
	}
	if data[0] != 7 || data[1] != 2 {
		t.Fatalf("header = [%d %d], want [7 2]", data[0], data[1])
	}
	out, err := DecodeChunk(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Seq != in.Seq || len(out.Samples) != len(in.Samples) {
		t.Fatalf("decoded %+v, want %+v", out, in)
	}
	for i := range in.Samples {
		if out.Samples[i] != in.Samples[i] {
			t.Errorf("sample %d = %+v, want %+v", i, out.Samples[i], in.Samples[i])
		}
	}
}

func TestChunkEncodeLittleEndian(t *testing.T) {
	data, err := Chunk{Seq: 0, Samples: []Sample{{X: 0x0102, Y: -2, Z: 256}}}.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := []byte{0, 1, 0x02, 0x01, 0xFE, 0xFF, 0x00, 0x01}
	for i, b := range want {
		if data[i] != b {
			t.Fatalf("byte %d = %#x, want %#x (full %#v)", i, data[i], b, data)
		}
	}
}

func TestChunkEncodeRejectsOversize(t *testing.T) {
	c := Chunk{Seq: 0, Samples: make([]Sample, 4)}
	if _, err := c.Encode(); !errors.Is(err, ErrChunkTooLarge) {
		t.Fatalf("expected ErrChunkTooLarge, got %v", err)
	}
}

func TestDecodeChunkShortPayload(t *testing.T) {
	if _, err := DecodeChunk([]byte{1}); !errors.Is(err, ErrShortChunk) {
		t.Fatalf("expected ErrShortChunk for header-only payload, got %v", err)
	}
	// Count claims 3 samples but payload carries one.
	if _, err := DecodeChunk([]byte{0, 3, 1, 0, 2, 0, 3, 0}); !errors.Is(err, ErrShortChunk) {
		t.Fatalf("expected ErrShortChunk for truncated payload, got %v", err)
	}
}

func TestEncodeChunksPartition(t *testing.T) {
	plan := DefaultPlan()
	buf := make([]Sample, plan.Capacity)
	for i := range buf {
		buf[i] = Sample{X: int16(i), Y: int16(-i), Z: int16(2 * i)}
	}
	chunks, err := EncodeChunks(buf, plan)
	if err != nil {
		t.Fatalf("EncodeChunks: %v", err)
	}
	if len(chunks) != 42 {
		t.Fatalf("len(chunks) = %d, want 42", len(chunks))
	}
	idx := 0
	for seq, c := range chunks {
		if int(c.Seq) != seq {
			t.Fatalf("chunk %d has seq %d", seq, c.Seq)
		}
		for _, s := range c.Samples {
			if s != buf[idx] {
				t.Fatalf("chunk %d sample mismatch at index %d", seq, idx)
			}
			idx++
		}
	}
	if idx != plan.Capacity {
		t.Fatalf("chunks carried %d samples, want %d", idx, plan.Capacity)
	}
}

func TestEncodeChunksDeterministic(t *testing.T) {
	plan := DefaultPlan()
	buf := make([]Sample, plan.Capacity)
	for i := range buf {
		buf[i] = Sample{X: int16(i * 3)}
	}
	a, err := EncodeChunks(buf, plan)
	if err != nil {
		t.Fatalf("EncodeChunks: %v", err)
	}
	b, _ := EncodeChunks(buf, plan)
	for i := range a {
		ea, _ := a[i].Encode()
		eb, _ := b[i].Encode()
		if string(ea) != string(eb) {
			t.Fatalf("chunk %d not deterministic", i)
		}
	}
}

func TestEncodeChunksWrongBufferSize(t *testing.T) {
	if _, err := EncodeChunks(make([]Sample, 10), DefaultPlan()); err == nil {
		t.Fatal("expected error for short buffer")
	}
}
