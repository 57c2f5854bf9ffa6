package livechat

import (
	"errors"
	"testing"
	"time"

	"github.com/voxline/voxline/pkg/audio/pcm"
)

// chunkOf returns a silent s16le chunk lasting d at the given rate.
func chunkOf(rate int, d time.Duration) []byte {
	n := int(time.Duration(rate) * d / time.Second)
	return pcm.EncodeS16LE(make([]int16, n))
}

func newTestScheduler(t *testing.T) (*PlaybackScheduler, *fakeSink) {
	t.Helper()
	sink := newFakeSink(24000)
	p, err := NewPlaybackScheduler(sink, 24000, nil)
	if err != nil {
		t.Fatalf("NewPlaybackScheduler: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p, sink
}

func TestPlaybackChunksAbut(t *testing.T) {
	p, sink := newTestScheduler(t)

	// Two half-second chunks arriving instantly must play back to back.
	for i := 0; i < 2; i++ {
		if err := p.Enqueue(chunkOf(24000, 500*time.Millisecond)); err != nil {
			t.Fatalf("Enqueue %d: %v", i, err)
		}
	}

	scheds := sink.schedules()
	if len(scheds) != 2 {
		t.Fatalf("scheduled = %d, want 2", len(scheds))
	}
	if scheds[0].start != 0 {
		t.Errorf("first start = %v, want 0", scheds[0].start)
	}
	if want := 500 * time.Millisecond; scheds[1].start != want {
		t.Errorf("second start = %v, want %v", scheds[1].start, want)
	}
}

func TestPlaybackStartsAtClockWhenIdle(t *testing.T) {
	p, sink := newTestScheduler(t)

	sink.setNow(2 * time.Second)
	if err := p.Enqueue(chunkOf(24000, 100*time.Millisecond)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if got := sink.schedules()[0].start; got != 2*time.Second {
		t.Errorf("start = %v, want 2s", got)
	}
}

func TestPlaybackDecodeErrorSkipsChunk(t *testing.T) {
	p, sink := newTestScheduler(t)

	if err := p.Enqueue(chunkOf(24000, 100*time.Millisecond)); err != nil {
		t.Fatalf("Enqueue 1: %v", err)
	}
	err := p.Enqueue([]byte{0x01, 0x02, 0x03}) // odd length
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("Enqueue 2 = %v, want ErrDecode", err)
	}
	if err := p.Enqueue(chunkOf(24000, 100*time.Millisecond)); err != nil {
		t.Fatalf("Enqueue 3: %v", err)
	}

	// The bad chunk must not occupy schedule time: chunk 3 follows chunk 1.
	scheds := sink.schedules()
	if len(scheds) != 2 {
		t.Fatalf("scheduled = %d, want 2", len(scheds))
	}
	if want := 100 * time.Millisecond; scheds[1].start != want {
		t.Errorf("third-chunk start = %v, want %v", scheds[1].start, want)
	}
}

func TestPlaybackStopCancelsAndResets(t *testing.T) {
	p, sink := newTestScheduler(t)

	for i := 0; i < 3; i++ {
		if err := p.Enqueue(chunkOf(24000, 500*time.Millisecond)); err != nil {
			t.Fatalf("Enqueue %d: %v", i, err)
		}
	}
	if got := p.ActiveCount(); got != 3 {
		t.Fatalf("active = %d, want 3", got)
	}

	p.Stop()

	for _, h := range sink.schedules() {
		select {
		case <-h.Done():
		default:
			t.Error("handle not stopped")
		}
	}
	if got := p.ActiveCount(); got != 0 {
		t.Errorf("active after stop = %d, want 0", got)
	}

	// Schedule reset: the next chunk plays at the clock, not after the
	// cancelled backlog.
	sink.setNow(10 * time.Millisecond)
	if err := p.Enqueue(chunkOf(24000, 100*time.Millisecond)); err != nil {
		t.Fatalf("Enqueue after stop: %v", err)
	}
	scheds := sink.schedules()
	if got := scheds[len(scheds)-1].start; got != 10*time.Millisecond {
		t.Errorf("start after stop = %v, want 10ms", got)
	}
}

func TestPlaybackCompletionShrinksActiveSet(t *testing.T) {
	p, sink := newTestScheduler(t)

	if err := p.Enqueue(chunkOf(24000, 100*time.Millisecond)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	sink.schedules()[0].finish()

	deadline := time.Now().Add(5 * time.Second)
	for p.ActiveCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("active set never drained after completion")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPlaybackEmptyChunkIsNoop(t *testing.T) {
	p, sink := newTestScheduler(t)
	if err := p.Enqueue(nil); err != nil {
		t.Fatalf("Enqueue(nil) = %v", err)
	}
	if len(sink.schedules()) != 0 {
		t.Error("empty chunk was scheduled")
	}
}
