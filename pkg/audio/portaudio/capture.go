package portaudio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/voxline/voxline/pkg/audio/device"
	"github.com/voxline/voxline/pkg/audio/pcm"
)

// CaptureSource records mono audio from the default input device and
// implements device.Source. Samples are normalized to [-1, 1].
type CaptureSource struct {
	stream *rawStream
	rate   int
	frames int

	mu     sync.Mutex
	closed bool
}

var _ device.Source = (*CaptureSource)(nil)

// NewCaptureSource opens the default input device at the given rate.
// bufferDuration is the duration of each device read buffer (e.g. 20ms).
// Acquisition failures wrap device.ErrPermissionDenied.
func NewCaptureSource(sampleRate int, bufferDuration time.Duration) (*CaptureSource, error) {
	format, err := pcm.FormatForRate(sampleRate)
	if err != nil {
		return nil, err
	}
	frames := int(format.SamplesInDuration(bufferDuration))

	stream, err := openRawStream(true, float64(sampleRate), frames)
	if err != nil {
		return nil, fmt.Errorf("portaudio: open input: %w: %v", device.ErrPermissionDenied, err)
	}

	return &CaptureSource{
		stream: stream,
		rate:   sampleRate,
		frames: frames,
	}, nil
}

// SampleRate returns the capture rate in Hz.
func (c *CaptureSource) SampleRate() int { return c.rate }

// ReadFrame reads one device buffer and returns it as normalized float32
// samples. Returns io.EOF after Close.
func (c *CaptureSource) ReadFrame() ([]float32, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, io.EOF
	}
	c.mu.Unlock()

	samples, err := c.stream.Read(c.frames)
	if err != nil {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("portaudio: read: %w", err)
	}

	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768
	}
	return out, nil
}

// Close releases the input device. Idempotent.
func (c *CaptureSource) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	return c.stream.Close()
}
