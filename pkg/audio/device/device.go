// Package device defines the platform capability interfaces the voice
// pipeline uses for audio capture and playback. The pipeline is agnostic
// to the concrete device API: any implementation that produces fixed-rate
// normalized frames and accepts scheduled playback buffers with a readable
// output clock can back it.
package device

import (
	"errors"
	"time"
)

// ErrPermissionDenied reports that the capture or playback device could
// not be acquired. Callers must not silently retry.
var ErrPermissionDenied = errors.New("device: permission denied")

// ErrClosed reports an operation on a closed device.
var ErrClosed = errors.New("device: closed")

// Source captures mono audio from an input device as normalized float32
// samples in [-1, 1].
type Source interface {
	// SampleRate returns the capture rate in Hz.
	SampleRate() int

	// ReadFrame blocks until one device buffer of samples is available.
	// It returns io.EOF after Close. The returned slice is owned by the
	// caller.
	ReadFrame() ([]float32, error)

	// Close releases the device. Idempotent; unblocks pending ReadFrame
	// calls.
	Close() error
}

// Handle is one scheduled, not-yet-completed playback buffer.
type Handle interface {
	// Stop halts playback immediately (hard cutoff). Idempotent.
	Stop()

	// Done is closed when the buffer finishes playing or is stopped.
	Done() <-chan struct{}
}

// Sink plays mono 16-bit PCM buffers on an output device at scheduled
// positions of its clock.
type Sink interface {
	// SampleRate returns the playback rate in Hz.
	SampleRate() int

	// Now returns the current position of the output clock. The clock
	// starts at zero when the sink is opened and advances monotonically.
	Now() time.Duration

	// ScheduleAt schedules samples to begin playing at the given clock
	// position. If start is in the past the sink plays as soon as it can.
	ScheduleAt(samples []int16, start time.Duration) (Handle, error)

	// Close stops all playback and releases the device. Idempotent.
	Close() error
}
