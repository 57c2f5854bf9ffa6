package livechat

import (
	"errors"
	"io"
	"sync"

	"github.com/voxline/voxline/pkg/audio/device"
)

// FrameSource re-blocks a device.Source's variable-size buffers into
// fixed-size frames delivered on a channel. A FrameSource is single-use:
// once stopped it cannot be restarted.
type FrameSource struct {
	src       device.Source
	frameSize int
	frames    chan []float32

	stopOnce sync.Once
	stopCh   chan struct{}

	mu  sync.Mutex
	err error
}

// NewFrameSource starts reading from src, emitting frames of exactly
// frameSize samples. The frames channel closes when the source ends or
// Stop is called; a trailing partial frame is discarded.
func NewFrameSource(src device.Source, frameSize int) *FrameSource {
	f := &FrameSource{
		src:       src,
		frameSize: frameSize,
		frames:    make(chan []float32, 4),
		stopCh:    make(chan struct{}),
	}
	go f.readLoop()
	return f
}

// Frames returns the channel of fixed-size frames.
func (f *FrameSource) Frames() <-chan []float32 { return f.frames }

// SampleRate returns the underlying capture rate in Hz.
func (f *FrameSource) SampleRate() int { return f.src.SampleRate() }

// Stop closes the underlying device and ends the frame stream. Idempotent.
func (f *FrameSource) Stop() {
	f.stopOnce.Do(func() {
		close(f.stopCh)
		f.src.Close()
	})
}

// Err returns the read error that ended the stream, if any. A clean stop
// reports nil.
func (f *FrameSource) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *FrameSource) readLoop() {
	defer close(f.frames)

	pending := make([]float32, 0, f.frameSize*2)
	for {
		buf, err := f.src.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !stopped(f.stopCh) {
				f.mu.Lock()
				f.err = err
				f.mu.Unlock()
			}
			return
		}
		pending = append(pending, buf...)

		for len(pending) >= f.frameSize {
			frame := make([]float32, f.frameSize)
			copy(frame, pending[:f.frameSize])
			pending = pending[f.frameSize:]

			select {
			case f.frames <- frame:
			case <-f.stopCh:
				return
			}
		}
	}
}

func stopped(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
