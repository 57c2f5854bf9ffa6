package livechat

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voxline/voxline/pkg/audio/device"
	"github.com/voxline/voxline/pkg/audio/pcm"
	"github.com/voxline/voxline/pkg/audio/resampler"
)

// PlaybackScheduler queues inbound PCM chunks onto a device.Sink so that
// consecutive chunks play back to back with no gap and no overlap, even
// when chunks arrive faster than realtime.
type PlaybackScheduler struct {
	sink device.Sink
	rs   *resampler.Resampler
	log  *slog.Logger

	mu     sync.Mutex
	next   time.Duration
	active map[int]device.Handle
	seq    int
	closed bool
}

// NewPlaybackScheduler wires a scheduler to sink. inputRate is the rate of
// chunks passed to Enqueue; they are resampled to the sink's rate when the
// two differ.
func NewPlaybackScheduler(sink device.Sink, inputRate int, log *slog.Logger) (*PlaybackScheduler, error) {
	rs, err := resampler.New(inputRate, sink.SampleRate())
	if err != nil {
		return nil, fmt.Errorf("livechat: playback resampler: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &PlaybackScheduler{
		sink:   sink,
		rs:     rs,
		log:    log,
		active: map[int]device.Handle{},
	}, nil
}

// Enqueue schedules one chunk of little-endian s16 mono PCM. A malformed
// chunk returns an error wrapping ErrDecode and leaves the schedule
// untouched; the caller may keep enqueueing.
func (p *PlaybackScheduler) Enqueue(chunk []byte) error {
	if len(chunk)%2 != 0 {
		return fmt.Errorf("%w: odd length %d", ErrDecode, len(chunk))
	}
	if len(chunk) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return device.ErrClosed
	}

	out, err := p.rs.Process(chunk)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	samples := pcm.DecodeS16LE(out)
	if len(samples) == 0 {
		return nil
	}
	dur := time.Duration(len(samples)) * time.Second / time.Duration(p.sink.SampleRate())

	start := p.sink.Now()
	if p.next > start {
		start = p.next
	}
	h, err := p.sink.ScheduleAt(samples, start)
	if err != nil {
		return fmt.Errorf("livechat: schedule: %w", err)
	}
	p.next = start + dur

	id := p.seq
	p.seq++
	p.active[id] = h
	go func() {
		<-h.Done()
		p.mu.Lock()
		if p.active[id] == h {
			delete(p.active, id)
		}
		p.mu.Unlock()
	}()
	return nil
}

// Stop hard-cancels everything scheduled and resets the schedule so the
// next chunk plays immediately.
func (p *PlaybackScheduler) Stop() {
	p.mu.Lock()
	handles := make([]device.Handle, 0, len(p.active))
	for _, h := range p.active {
		handles = append(handles, h)
	}
	p.active = map[int]device.Handle{}
	p.next = 0
	p.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}
}

// ActiveCount reports how many scheduled chunks have not yet finished.
func (p *PlaybackScheduler) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// Close stops all playback and releases the resampler. Idempotent.
func (p *PlaybackScheduler) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.Stop()
	return p.rs.Close()
}
