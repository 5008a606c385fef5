// Package bench compares the shared-memory write path against a simulated
// serialize-per-request baseline. Illustrative only: it exercises the
// transport's public API and is not part of its contract.
package bench

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/voxpipe/audio-shm/api"
	"github.com/voxpipe/audio-shm/audioipc"
)

// Result holds one comparison run.
type Result struct {
	Transport time.Duration // shared-memory write path
	Baseline  time.Duration // per-request serialization baseline
	Frames    int
}

// Speedup is the baseline/transport duration ratio.
func (r Result) Speedup() float64 {
	if r.Transport <= 0 {
		return 0
	}
	return float64(r.Baseline) / float64(r.Transport)
}

func (r Result) String() string {
	return fmt.Sprintf("transport=%v baseline=%v speedup=%.2fx (%d frames)",
		r.Transport, r.Baseline, r.Speedup(), r.Frames)
}

// Compare times iters publishes of samples through t against the baseline
// encoder. Write errors abort the run; advisory notification errors do
// not, the frame is committed regardless.
func Compare(t api.FrameTransport, samples []float32, iters int) (Result, error) {
	start := time.Now()
	for i := 0; i < iters; i++ {
		if err := t.WriteFrame(samples, 16000); err != nil && !audioipc.IsAdvisory(err) {
			return Result{}, fmt.Errorf("bench: write frame %d: %w", i, err)
		}
	}
	transport := time.Since(start)

	start = time.Now()
	for i := 0; i < iters; i++ {
		encodeBaseline(samples)
	}
	baseline := time.Since(start)

	return Result{Transport: transport, Baseline: baseline, Frames: iters}, nil
}

// encodeBaseline models what the replaced request/response transport did
// per frame: serialize every sample into a fresh request body.
func encodeBaseline(samples []float32) int {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	var scratch [4]byte
	for _, s := range samples {
		binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(s))
		_, _ = buf.Write(scratch[:])
	}
	_, _ = buf.WriteString(fmt.Sprintf("audio_data_size=%d", buf.Len()))
	return buf.Len()
}
