package geminilive

import (
	"encoding/base64"
	"encoding/json"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Session is one established duplex connection. It is safe for one sender
// goroutine and one receiver goroutine to use concurrently; Close may be
// called from any goroutine and is idempotent.
type Session struct {
	id      string
	conn    *websocket.Conn
	log     *slog.Logger
	outRate int
	inMIME  string

	sendCh  chan []byte
	events  chan eventOrError
	closeCh chan struct{}
	done    chan struct{}

	closeOnce sync.Once
	closed    atomic.Bool

	errMu sync.Mutex
	err   error

	writeMu sync.Mutex
}

type eventOrError struct {
	event *Event
	err   error
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// OutputSampleRate returns the rate of Event.Audio in Hz.
func (s *Session) OutputSampleRate() int { return s.outRate }

// SendAudio enqueues one frame of little-endian s16 mono PCM at the
// configured input rate. It never blocks: if the outbound queue is full
// the frame is rejected with ErrSendBackpressure.
func (s *Session) SendAudio(frame []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	msg := realtimeInputMessage{
		RealtimeInput: realtimeInput{
			MediaChunks: []mediaChunk{{
				MIMEType: s.inMIME,
				Data:     base64.StdEncoding.EncodeToString(frame),
			}},
		},
	}
	return s.enqueue(msg)
}

// SendText enqueues a complete user text turn. It shares the outbound
// queue with SendAudio, so write order matches call order.
func (s *Session) SendText(text string) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	msg := clientContentMessage{
		ClientContent: clientContent{
			Turns: []contentTurn{{
				Role:  "user",
				Parts: []part{{Text: text}},
			}},
			TurnComplete: true,
		},
	}
	return s.enqueue(msg)
}

func (s *Session) enqueue(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case s.sendCh <- data:
		return nil
	case <-s.closeCh:
		return ErrSessionClosed
	default:
		return ErrSendBackpressure
	}
}

// Recv returns an iterator over inbound events in strict arrival order.
// The iterator ends after yielding a non-nil error, or cleanly when the
// session is closed locally.
func (s *Session) Recv() iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {
		for {
			select {
			case eoe, ok := <-s.events:
				if !ok {
					return
				}
				if eoe.err != nil {
					yield(nil, eoe.err)
					return
				}
				if !yield(eoe.event, nil) {
					return
				}
			case <-s.closeCh:
				return
			}
		}
	}
}

// Err returns the first transport error observed, if any.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close tears down the connection. Pending queued frames are discarded.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.writeMu.Lock()
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()
		s.conn.Close()
		<-s.done
	})
	return nil
}

func (s *Session) setErr(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

// readLoop decodes inbound frames and forwards them to the events channel
// in arrival order. It exits on read error or local close.
func (s *Session) readLoop() {
	defer close(s.done)
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			werr := &Error{Code: "connection_lost", Message: err.Error()}
			s.setErr(werr)
			select {
			case s.events <- eventOrError{err: werr}:
			case <-s.closeCh:
			}
			return
		}
		s.log.Debug("geminilive: recv", "session", s.id, "data", truncate(data, 1024))

		ev, err := s.decode(data)
		if err != nil {
			s.log.Warn("geminilive: undecodable frame", "session", s.id, "error", err)
			continue
		}
		if ev == nil {
			continue
		}

		select {
		case s.events <- eventOrError{event: ev}:
		case <-s.closeCh:
			return
		}
	}
}

// decode maps one wire message to an Event. Returns (nil, nil) for
// messages with no consumer-visible effect.
func (s *Session) decode(data []byte) (*Event, error) {
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}

	if msg.Error != nil {
		werr := &Error{
			Code:       msg.Error.Status,
			Message:    msg.Error.Message,
			HTTPStatus: msg.Error.Code,
		}
		s.setErr(werr)
		return nil, werr
	}

	ev := &Event{}
	touched := false

	if msg.SetupComplete != nil {
		ev.SetupComplete = true
		touched = true
	}
	if msg.GoAway != nil {
		ev.GoAway = true
		touched = true
	}
	if sc := msg.ServerContent; sc != nil {
		if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
			ev.UserTranscript = sc.InputTranscription.Text
			touched = true
		}
		if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
			ev.ModelTranscript = sc.OutputTranscription.Text
			touched = true
		}
		if sc.ModelTurn != nil {
			for _, p := range sc.ModelTurn.Parts {
				if p.InlineData == nil || p.InlineData.Data == "" {
					continue
				}
				audio, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
				if err != nil {
					s.log.Warn("geminilive: bad inline audio", "session", s.id, "error", err)
					continue
				}
				ev.Audio = append(ev.Audio, audio...)
				touched = true
			}
		}
		if sc.TurnComplete {
			ev.TurnComplete = true
			touched = true
		}
		if sc.Interrupted {
			ev.Interrupted = true
			touched = true
		}
	}

	if !touched {
		return nil, nil
	}
	return ev, nil
}

// writeLoop drains the outbound queue onto the connection.
func (s *Session) writeLoop() {
	for {
		select {
		case data := <-s.sendCh:
			s.writeMu.Lock()
			err := s.conn.WriteMessage(websocket.TextMessage, data)
			s.writeMu.Unlock()
			if err != nil {
				if !s.closed.Load() {
					s.setErr(&Error{Code: "write_failed", Message: err.Error()})
				}
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeJSON(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
