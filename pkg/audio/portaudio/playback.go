package portaudio

import (
	"fmt"
	"sync"
	"time"

	"github.com/voxline/voxline/pkg/audio/device"
	"github.com/voxline/voxline/pkg/audio/pcm"
)

// writeBlock is the granularity at which buffers are fed to the device, so
// a Stop takes effect within one block.
const writeBlock = 20 * time.Millisecond

// PlaybackSink plays scheduled mono PCM buffers on the default output
// device and implements device.Sink. Its clock starts at zero when the
// sink is opened.
type PlaybackSink struct {
	stream *rawStream
	format pcm.Format
	epoch  time.Time

	mu     sync.Mutex
	queue  []*playbackHandle
	closed bool

	wake chan struct{}
	done chan struct{}
}

var _ device.Sink = (*PlaybackSink)(nil)

// NewPlaybackSink opens the default output device at the given rate.
func NewPlaybackSink(sampleRate int) (*PlaybackSink, error) {
	format, err := pcm.FormatForRate(sampleRate)
	if err != nil {
		return nil, err
	}
	frames := int(format.SamplesInDuration(writeBlock))

	stream, err := openRawStream(false, float64(sampleRate), frames)
	if err != nil {
		return nil, fmt.Errorf("portaudio: open output: %w: %v", device.ErrPermissionDenied, err)
	}

	s := &PlaybackSink{
		stream: stream,
		format: format,
		epoch:  time.Now(),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.playLoop()
	return s, nil
}

// SampleRate returns the playback rate in Hz.
func (s *PlaybackSink) SampleRate() int { return s.format.SampleRate() }

// Now returns the position of the output clock.
func (s *PlaybackSink) Now() time.Duration { return time.Since(s.epoch) }

// ScheduleAt queues samples to begin playing at the given clock position.
func (s *PlaybackSink) ScheduleAt(samples []int16, start time.Duration) (device.Handle, error) {
	h := &playbackHandle{
		samples: samples,
		start:   start,
		stopped: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, device.ErrClosed
	}
	s.queue = append(s.queue, h)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return h, nil
}

// Close stops all playback and releases the device. Idempotent.
func (s *PlaybackSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pending := s.queue
	s.queue = nil
	s.mu.Unlock()

	for _, h := range pending {
		h.Stop()
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
	<-s.done
	return s.stream.Close()
}

// playLoop consumes queued handles in order, waiting for each scheduled
// start and feeding the device in small blocks so stops are prompt.
func (s *PlaybackSink) playLoop() {
	defer close(s.done)

	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		var h *playbackHandle
		if len(s.queue) > 0 {
			h = s.queue[0]
			s.queue = s.queue[1:]
		}
		s.mu.Unlock()

		if h == nil {
			<-s.wake
			continue
		}
		s.play(h)
	}
}

func (s *PlaybackSink) play(h *playbackHandle) {
	defer h.closeDone()

	if wait := h.start - s.Now(); wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-h.stopped:
			t.Stop()
			return
		}
	}

	block := int(s.format.SamplesInDuration(writeBlock))
	for off := 0; off < len(h.samples); off += block {
		select {
		case <-h.stopped:
			return
		default:
		}
		end := off + block
		if end > len(h.samples) {
			end = len(h.samples)
		}
		if err := s.stream.Write(h.samples[off:end]); err != nil {
			return
		}
	}
}

// playbackHandle is one scheduled buffer.
type playbackHandle struct {
	samples []int16
	start   time.Duration

	stopOnce sync.Once
	stopped  chan struct{}

	doneOnce sync.Once
	doneCh   chan struct{}
}

var _ device.Handle = (*playbackHandle)(nil)

// Stop halts playback of this buffer immediately. Idempotent.
func (h *playbackHandle) Stop() {
	h.stopOnce.Do(func() { close(h.stopped) })
	h.closeDone()
}

// Done is closed when the buffer finishes playing or is stopped.
func (h *playbackHandle) Done() <-chan struct{} { return h.doneCh }

func (h *playbackHandle) closeDone() {
	h.doneOnce.Do(func() { close(h.doneCh) })
}
