// Package resampler converts mono 16-bit PCM between sample rates using a
// pure Go resampling backend (no CGO dependencies). It is stateful: filter
// history carries across Process calls, so a stream may be fed chunk by
// chunk without artifacts at chunk boundaries.
package resampler

import (
	"fmt"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler converts little-endian mono s16 PCM from srcRate to dstRate.
type Resampler struct {
	srcRate int
	dstRate int

	mu       sync.Mutex
	closed   bool
	backend  resampling.Resampler // nil when srcRate == dstRate
	identity bool
}

// New creates a Resampler from srcRate to dstRate. When the rates are
// equal, Process is a pass-through.
func New(srcRate, dstRate int) (*Resampler, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid rates %d -> %d", srcRate, dstRate)
	}
	if srcRate == dstRate {
		return &Resampler{srcRate: srcRate, dstRate: dstRate, identity: true}, nil
	}

	backend, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: create backend: %w", err)
	}
	return &Resampler{srcRate: srcRate, dstRate: dstRate, backend: backend}, nil
}

// Process converts one chunk of little-endian mono s16 PCM. The input
// length must be even. Output may be shorter or longer than a naive
// rate-ratio estimate because the backend buffers filter history.
func (r *Resampler) Process(data []byte) ([]byte, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("resampler: input not sample-aligned (%d bytes)", len(data))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, fmt.Errorf("resampler: closed")
	}
	if r.identity {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}

	input := make([]float64, len(data)/2)
	for i := range input {
		s := int16(data[i*2]) | int16(data[i*2+1])<<8
		input[i] = float64(s) / 32768.0
	}

	output, err := r.backend.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resampler: process: %w", err)
	}

	out := make([]byte, len(output)*2)
	for i, v := range output {
		s := int16(v * 32767.0)
		if v > 1.0 {
			s = 32767
		} else if v < -1.0 {
			s = -32768
		}
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out, nil
}

// Close releases the backend. Subsequent Process calls fail.
func (r *Resampler) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.backend = nil
	return nil
}
