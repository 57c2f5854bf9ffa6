package livechat

import (
	"io"
	"iter"
	"sync"
	"time"

	"github.com/voxline/voxline/pkg/audio/device"
	"github.com/voxline/voxline/pkg/geminilive"
)

type fakeCredentials struct {
	key string
	ok  bool
}

func (f fakeCredentials) Credential() (string, bool) { return f.key, f.ok }

// fakeSource serves scripted capture buffers, then blocks until closed.
type fakeSource struct {
	rate int
	bufs chan []float32

	closeOnce sync.Once
	closed    chan struct{}
}

func newFakeSource(rate int) *fakeSource {
	return &fakeSource{
		rate:   rate,
		bufs:   make(chan []float32, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeSource) SampleRate() int { return f.rate }

func (f *fakeSource) ReadFrame() ([]float32, error) {
	select {
	case buf := <-f.bufs:
		return buf, nil
	case <-f.closed:
		return nil, io.EOF
	}
}

func (f *fakeSource) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

// fakeSink records schedules against a manually advanced clock. Handles
// finish only when the test says so. When closeGate is set, Close blocks
// until the gate is closed, so tests can hold a teardown in flight.
type fakeSink struct {
	rate      int
	closeGate chan struct{}

	mu        sync.Mutex
	now       time.Duration
	scheduled []*fakeHandle
	closed    bool
}

func newFakeSink(rate int) *fakeSink {
	return &fakeSink{rate: rate}
}

func (f *fakeSink) SampleRate() int { return f.rate }

func (f *fakeSink) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeSink) setNow(d time.Duration) {
	f.mu.Lock()
	f.now = d
	f.mu.Unlock()
}

func (f *fakeSink) ScheduleAt(samples []int16, start time.Duration) (device.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, device.ErrClosed
	}
	h := &fakeHandle{samples: samples, start: start, done: make(chan struct{})}
	f.scheduled = append(f.scheduled, h)
	return h, nil
}

func (f *fakeSink) Close() error {
	if f.closeGate != nil {
		<-f.closeGate
	}
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeSink) schedules() []*fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*fakeHandle, len(f.scheduled))
	copy(out, f.scheduled)
	return out
}

type fakeHandle struct {
	samples []int16
	start   time.Duration

	once    sync.Once
	stopped bool
	done    chan struct{}
}

func (h *fakeHandle) Stop() {
	h.once.Do(func() {
		h.stopped = true
		close(h.done)
	})
}

func (h *fakeHandle) finish() {
	h.once.Do(func() { close(h.done) })
}

func (h *fakeHandle) Done() <-chan struct{} { return h.done }

// fakeTransport yields scripted events and records sent payloads.
// A non-nil sendErr makes SendAudio fail until cleared.
type fakeTransport struct {
	mu        sync.Mutex
	sent      [][]byte
	sentTexts []string
	sendErr   error
	sendCalls int

	events chan eventOrErr

	closeOnce sync.Once
	closedCh  chan struct{}
}

type eventOrErr struct {
	ev  *geminilive.Event
	err error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		events:   make(chan eventOrErr, 16),
		closedCh: make(chan struct{}),
	}
}

func (f *fakeTransport) SendAudio(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++
	if f.sendErr != nil {
		return f.sendErr
	}
	select {
	case <-f.closedCh:
		return geminilive.ErrSessionClosed
	default:
	}
	f.sent = append(f.sent, frame)
	return nil
}

func (f *fakeTransport) setSendErr(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

func (f *fakeTransport) sendCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls
}

func (f *fakeTransport) SendText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentTexts = append(f.sentTexts, text)
	return nil
}

func (f *fakeTransport) Recv() iter.Seq2[*geminilive.Event, error] {
	return func(yield func(*geminilive.Event, error) bool) {
		for {
			select {
			case eoe := <-f.events:
				if eoe.err != nil {
					yield(nil, eoe.err)
					return
				}
				if !yield(eoe.ev, nil) {
					return
				}
			case <-f.closedCh:
				return
			}
		}
	}
}

func (f *fakeTransport) Close() error {
	f.closeOnce.Do(func() { close(f.closedCh) })
	return nil
}

func (f *fakeTransport) sentFrames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}
