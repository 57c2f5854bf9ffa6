package geminilive

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// DefaultBaseURL is the production Live API websocket endpoint.
	DefaultBaseURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// DefaultModel is the streaming speech model used when none is given.
	DefaultModel = "gemini-2.0-flash-live-001"

	defaultInputSampleRate  = 16000
	defaultOutputSampleRate = 24000
	defaultSendQueueSize    = 64
	defaultConnectTimeout   = 15 * time.Second
)

// Config holds the parameters for a live session.
type Config struct {
	// APIKey authenticates the connection. Required.
	APIKey string

	// Model is the model identifier. Defaults to DefaultModel.
	Model string

	// BaseURL overrides the websocket endpoint. Defaults to DefaultBaseURL.
	BaseURL string

	// Voice selects a prebuilt synthesis voice. Optional.
	Voice string

	// SystemInstruction seeds the model's behavior. Optional.
	SystemInstruction string

	// InputSampleRate is the rate of audio passed to SendAudio, in Hz.
	// Defaults to 16000.
	InputSampleRate int

	// OutputSampleRate is the rate of Event.Audio, in Hz. Defaults to 24000.
	OutputSampleRate int

	// SendQueueSize bounds the outbound queue. Defaults to 64 frames.
	SendQueueSize int

	// ConnectTimeout bounds the dial plus handshake when the context has
	// no deadline of its own. Defaults to 15s.
	ConnectTimeout time.Duration

	// Logger receives debug traces of wire frames. Defaults to slog.Default.
	Logger *slog.Logger
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.Model == "" {
		out.Model = DefaultModel
	}
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.InputSampleRate == 0 {
		out.InputSampleRate = defaultInputSampleRate
	}
	if out.OutputSampleRate == 0 {
		out.OutputSampleRate = defaultOutputSampleRate
	}
	if out.SendQueueSize == 0 {
		out.SendQueueSize = defaultSendQueueSize
	}
	if out.ConnectTimeout == 0 {
		out.ConnectTimeout = defaultConnectTimeout
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return &out
}

// Connect dials the Live API, performs the setup handshake and returns an
// established session. The session is ready for SendAudio and Recv once
// Connect returns.
func Connect(ctx context.Context, cfg *Config) (*Session, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, &Error{Code: "missing_api_key", Message: "api key is required"}
	}
	cfg = cfg.withDefaults()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, &Error{Code: "invalid_base_url", Message: err.Error()}
	}
	q := u.Query()
	q.Set("key", cfg.APIKey)
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		e := &Error{Code: "connection_failed", Message: err.Error()}
		if resp != nil {
			e.HTTPStatus = resp.StatusCode
		}
		return nil, e
	}

	s := &Session{
		id:      uuid.NewString(),
		conn:    conn,
		log:     cfg.Logger,
		outRate: cfg.OutputSampleRate,
		inMIME:  fmt.Sprintf("audio/pcm;rate=%d", cfg.InputSampleRate),
		sendCh:  make(chan []byte, cfg.SendQueueSize),
		events:  make(chan eventOrError, 32),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}

	if err := s.handshake(ctx, cfg); err != nil {
		conn.Close()
		return nil, err
	}

	go s.readLoop()
	go s.writeLoop()
	return s, nil
}

// handshake writes the setup message and waits for setupComplete.
func (s *Session) handshake(ctx context.Context, cfg *Config) error {
	setup := setupMessage{
		Setup: setupConfig{
			Model: "models/" + cfg.Model,
			GenerationConfig: generationConfig{
				ResponseModalities: []string{"AUDIO"},
			},
			InputAudioTranscription:  &struct{}{},
			OutputAudioTranscription: &struct{}{},
		},
	}
	if cfg.Voice != "" {
		setup.Setup.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: voiceConfig{
				PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	if cfg.SystemInstruction != "" {
		setup.Setup.SystemInstruction = &systemInstruction{
			Parts: []part{{Text: cfg.SystemInstruction}},
		}
	}

	if deadline, ok := ctx.Deadline(); ok {
		s.conn.SetWriteDeadline(deadline)
		s.conn.SetReadDeadline(deadline)
	}
	if err := s.writeJSON(setup); err != nil {
		return &Error{Code: "setup_failed", Message: err.Error()}
	}

	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return &Error{Code: "setup_failed", Message: err.Error()}
	}
	s.log.Debug("geminilive: recv", "session", s.id, "data", truncate(data, 1024))

	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return &Error{Code: "setup_failed", Message: err.Error()}
	}
	if msg.Error != nil {
		return &Error{
			Code:       msg.Error.Status,
			Message:    msg.Error.Message,
			HTTPStatus: msg.Error.Code,
		}
	}
	if msg.SetupComplete == nil {
		return &Error{Code: "setup_failed", Message: "expected setupComplete, got other message"}
	}

	s.conn.SetWriteDeadline(time.Time{})
	s.conn.SetReadDeadline(time.Time{})
	return nil
}
