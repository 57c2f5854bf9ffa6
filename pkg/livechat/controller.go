package livechat

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"github.com/voxline/voxline/pkg/audio/device"
	"github.com/voxline/voxline/pkg/audio/pcm"
	"github.com/voxline/voxline/pkg/geminilive"
)

const (
	defaultSampleRate       = 16000
	defaultOutputSampleRate = 24000
	defaultFrameSize        = 4096

	// maxConsecutiveDrops is how many back-to-back rejected frames the
	// capture loop tolerates before declaring the session unhealthy.
	maxConsecutiveDrops = 50
)

// Transport is the duplex session the controller speaks through.
// *geminilive.Session satisfies it.
type Transport interface {
	SendAudio(frame []byte) error
	SendText(text string) error
	Recv() iter.Seq2[*geminilive.Event, error]
	Close() error
}

// CredentialProvider supplies the API credential at start time.
type CredentialProvider interface {
	// Credential returns the credential and whether one is configured.
	Credential() (string, bool)
}

// Config wires a Controller to its devices, transport and callbacks.
type Config struct {
	// Credentials supplies the API key. Required.
	Credentials CredentialProvider

	// OpenSource acquires the capture device at the given rate. Required.
	OpenSource func(sampleRate int) (device.Source, error)

	// OpenSink acquires the playback device. Required.
	OpenSink func() (device.Sink, error)

	// Connect dials the model session. Required.
	Connect func(ctx context.Context, apiKey string) (Transport, error)

	// SampleRate is the capture rate in Hz. Defaults to 16000.
	SampleRate int

	// OutputSampleRate is the rate of inbound model audio in Hz.
	// Defaults to 24000.
	OutputSampleRate int

	// FrameSize is the capture frame size in samples. Defaults to 4096.
	FrameSize int

	// OnTurn is called with each finalized turn, user before model.
	// Optional; called from the receive goroutine.
	OnTurn func(Turn)

	// OnState is called on every lifecycle transition. Optional.
	OnState func(State)

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Controller drives one voice conversation at a time through the states
// Idle, Initializing, Connected, Active, Stopping and back to Idle.
type Controller struct {
	cfg Config
	log *slog.Logger

	// opMu serializes Start, Stop and fatal-error teardown.
	opMu sync.Mutex

	stateMu sync.Mutex
	state   State
	lastErr error
	turns   []Turn

	source     *FrameSource
	sink       device.Sink
	scheduler  *PlaybackScheduler
	transport  Transport
	transcript *TranscriptAssembler

	wg sync.WaitGroup
}

// New validates cfg and returns an idle controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Credentials == nil || cfg.OpenSource == nil || cfg.OpenSink == nil || cfg.Connect == nil {
		return nil, fmt.Errorf("%w: credentials, open-source, open-sink and connect are required", ErrConfiguration)
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.OutputSampleRate == 0 {
		cfg.OutputSampleRate = defaultOutputSampleRate
	}
	if cfg.FrameSize == 0 {
		cfg.FrameSize = defaultFrameSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller{
		cfg:        cfg,
		log:        cfg.Logger,
		state:      StateIdle,
		transcript: NewTranscriptAssembler(),
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

// Err returns the error that ended the last session, if any.
func (c *Controller) Err() error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.lastErr
}

// Transcript returns the finalized turns accumulated so far.
func (c *Controller) Transcript() []Turn {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Partial returns the speaker's in-progress (not yet finalized) text.
func (c *Controller) Partial(sp Speaker) string {
	return c.transcript.Partial(sp)
}

// Start brings the pipeline up: capture device, playback device, then the
// model session. Only legal from Idle. A missing credential fails with
// ErrConfiguration before anything is acquired; any acquisition failure
// unwinds what was acquired and returns the controller to Idle.
func (c *Controller) Start(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.State() != StateIdle {
		return fmt.Errorf("%w: start from %s", ErrInvalidState, c.State())
	}

	key, ok := c.cfg.Credentials.Credential()
	if !ok || key == "" {
		return fmt.Errorf("%w: no credential configured", ErrConfiguration)
	}

	c.stateMu.Lock()
	c.lastErr = nil
	c.turns = nil
	c.stateMu.Unlock()
	c.transcript.Reset()
	c.setState(StateInitializing)

	if err := c.acquire(ctx, key); err != nil {
		c.setState(StateFailed)
		c.teardown()
		c.recordErr(err)
		c.setState(StateIdle)
		return err
	}

	c.startPipeline()
	if !c.casState(StateConnected, StateActive) {
		// A pipeline goroutine failed immediately; its cleanup runs once
		// we release the lock.
		return c.Err()
	}
	return nil
}

func (c *Controller) acquire(ctx context.Context, key string) error {
	src, err := c.cfg.OpenSource(c.cfg.SampleRate)
	if err != nil {
		return fmt.Errorf("livechat: open capture: %w", err)
	}
	c.source = NewFrameSource(src, c.cfg.FrameSize)

	sink, err := c.cfg.OpenSink()
	if err != nil {
		return fmt.Errorf("livechat: open playback: %w", err)
	}
	c.sink = sink

	sched, err := NewPlaybackScheduler(sink, c.cfg.OutputSampleRate, c.log)
	if err != nil {
		return err
	}
	c.scheduler = sched

	tr, err := c.cfg.Connect(ctx, key)
	if err != nil {
		return fmt.Errorf("livechat: connect: %w", err)
	}
	c.transport = tr
	c.setState(StateConnected)
	return nil
}

func (c *Controller) startPipeline() {
	r := &router{
		transcript: c.transcript,
		scheduler:  c.scheduler,
		onTurn:     c.emitTurn,
		log:        c.log,
	}

	c.wg.Add(2)
	go c.captureLoop()
	go c.receiveLoop(r)
}

// captureLoop streams encoded frames up. Sporadic backpressure drops a
// frame; persistent backpressure means the link cannot keep up with the
// capture cadence and is treated as fatal.
func (c *Controller) captureLoop() {
	defer c.wg.Done()

	drops := 0
	for frame := range c.source.Frames() {
		err := c.transport.SendAudio(pcm.EncodeFloat32(frame))
		switch {
		case err == nil:
			drops = 0
		case errors.Is(err, geminilive.ErrSendBackpressure):
			drops++
			c.log.Warn("livechat: frame dropped, send queue full", "consecutive", drops)
			if drops >= maxConsecutiveDrops {
				c.fatal(fmt.Errorf("livechat: persistent send backpressure: %w", err))
				return
			}
		case errors.Is(err, geminilive.ErrSessionClosed):
			return
		default:
			c.fatal(fmt.Errorf("livechat: send: %w", err))
			return
		}
	}
	if err := c.source.Err(); err != nil {
		c.fatal(fmt.Errorf("livechat: capture: %w", err))
	}
}

func (c *Controller) receiveLoop(r *router) {
	defer c.wg.Done()

	for ev, err := range c.transport.Recv() {
		if err != nil {
			c.fatal(err)
			return
		}
		if err := r.route(ev); err != nil {
			c.fatal(err)
			return
		}
	}
}

// SendText submits a typed user turn alongside the voice stream. Only
// legal while the session is up.
func (c *Controller) SendText(text string) error {
	c.stateMu.Lock()
	tr := c.transport
	s := c.state
	c.stateMu.Unlock()
	if tr == nil || (s != StateActive && s != StateConnected) {
		return fmt.Errorf("%w: send-text from %s", ErrInvalidState, s)
	}
	return tr.SendText(text)
}

// Stop tears the pipeline down and returns the controller to Idle.
// Concurrent Stop calls are a no-op for all but the first; calling Stop
// when the controller was already Idle returns ErrInvalidState.
func (c *Controller) Stop() error {
	if c.State() == StateIdle {
		return fmt.Errorf("%w: stop while idle", ErrInvalidState)
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.State() == StateIdle {
		// A concurrent Stop or a failure teardown landed first.
		return nil
	}
	c.setState(StateStopping)
	c.teardown()
	c.setState(StateIdle)
	return nil
}

// fatal records a component failure and schedules teardown. Safe to call
// from pipeline goroutines; teardown runs elsewhere so the goroutine that
// failed can exit and be waited on.
func (c *Controller) fatal(err error) {
	c.stateMu.Lock()
	switch c.state {
	case StateIdle, StateStopping, StateFailed:
		c.stateMu.Unlock()
		return
	default:
	}
	c.state = StateFailed
	c.lastErr = err
	cb := c.cfg.OnState
	c.stateMu.Unlock()

	c.log.Error("livechat: session failed", "error", err)
	if cb != nil {
		cb(StateFailed)
	}

	go func() {
		c.opMu.Lock()
		defer c.opMu.Unlock()
		if c.State() != StateFailed {
			return
		}
		c.teardown()
		c.setState(StateIdle)
	}()
}

// teardown unwinds in acquisition-reverse order and waits for the
// pipeline goroutines. Every step is nil-safe so partial acquisitions
// unwind too.
func (c *Controller) teardown() {
	if c.transport != nil {
		c.transport.Close()
	}
	if c.source != nil {
		c.source.Stop()
	}
	if c.scheduler != nil {
		c.scheduler.Close()
	}
	if c.sink != nil {
		c.sink.Close()
	}
	c.wg.Wait()

	c.stateMu.Lock()
	c.transport = nil
	c.stateMu.Unlock()
	c.source = nil
	c.scheduler = nil
	c.sink = nil
}

func (c *Controller) emitTurn(t Turn) {
	c.stateMu.Lock()
	c.turns = append(c.turns, t)
	c.stateMu.Unlock()
	if c.cfg.OnTurn != nil {
		c.cfg.OnTurn(t)
	}
}

func (c *Controller) recordErr(err error) {
	c.stateMu.Lock()
	c.lastErr = err
	c.stateMu.Unlock()
}

// casState transitions only when the current state matches from.
func (c *Controller) casState(from, to State) bool {
	c.stateMu.Lock()
	if c.state != from {
		c.stateMu.Unlock()
		return false
	}
	c.state = to
	c.stateMu.Unlock()
	if c.cfg.OnState != nil {
		c.cfg.OnState(to)
	}
	return true
}

func (c *Controller) setState(s State) {
	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
	if c.cfg.OnState != nil {
		c.cfg.OnState(s)
	}
}
