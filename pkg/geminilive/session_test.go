package geminilive

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// liveServer is a scripted stand-in for the Live API endpoint.
type liveServer struct {
	t  *testing.T
	ts *httptest.Server

	mu    sync.Mutex
	conn  *websocket.Conn
	setup setupMessage
	inbox [][]byte
	got   chan []byte
}

func newLiveServer(t *testing.T) *liveServer {
	t.Helper()
	srv := &liveServer{t: t, got: make(chan []byte, 64)}
	upgrader := websocket.Upgrader{}

	srv.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "" {
			http.Error(w, "missing key", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		srv.mu.Lock()
		srv.conn = conn
		srv.mu.Unlock()

		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := json.Unmarshal(data, &srv.setup); err != nil {
			t.Errorf("bad setup message: %v", err)
			return
		}
		conn.WriteMessage(websocket.TextMessage, []byte(`{"setupComplete":{}}`))

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			srv.got <- data
		}
	}))
	t.Cleanup(srv.ts.Close)
	return srv
}

func (s *liveServer) url() string {
	return "ws" + strings.TrimPrefix(s.ts.URL, "http")
}

func (s *liveServer) send(t *testing.T, msg string) {
	t.Helper()
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		t.Fatal("no client connected")
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("server write: %v", err)
	}
}

func (s *liveServer) closeConn() {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func dialTest(t *testing.T, srv *liveServer, cfg *Config) *Session {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	cfg.BaseURL = srv.url()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sess, err := Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess
}

func TestConnectRequiresAPIKey(t *testing.T) {
	_, err := Connect(context.Background(), &Config{})
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
	var werr *Error
	if !errors.As(err, &werr) || werr.Code != "missing_api_key" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConnectSendsSetup(t *testing.T) {
	srv := newLiveServer(t)
	sess := dialTest(t, srv, &Config{
		Model:             "gemini-2.0-flash-live-001",
		Voice:             "Kore",
		SystemInstruction: "be brief",
	})
	defer sess.Close()

	if got := srv.setup.Setup.Model; got != "models/gemini-2.0-flash-live-001" {
		t.Errorf("setup model = %q", got)
	}
	mods := srv.setup.Setup.GenerationConfig.ResponseModalities
	if len(mods) != 1 || mods[0] != "AUDIO" {
		t.Errorf("response modalities = %v", mods)
	}
	sc := srv.setup.Setup.GenerationConfig.SpeechConfig
	if sc == nil || sc.VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Kore" {
		t.Errorf("speech config = %+v", sc)
	}
	si := srv.setup.Setup.SystemInstruction
	if si == nil || len(si.Parts) != 1 || si.Parts[0].Text != "be brief" {
		t.Errorf("system instruction = %+v", si)
	}
	if srv.setup.Setup.InputAudioTranscription == nil || srv.setup.Setup.OutputAudioTranscription == nil {
		t.Error("transcription configs missing from setup")
	}
}

func TestSendAudioWireFormat(t *testing.T) {
	srv := newLiveServer(t)
	sess := dialTest(t, srv, nil)

	frame := []byte{0x01, 0x02, 0x03, 0x04}
	if err := sess.SendAudio(frame); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}

	var msg realtimeInputMessage
	select {
	case data := <-srv.got:
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for frame")
	}

	chunks := msg.RealtimeInput.MediaChunks
	if len(chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(chunks))
	}
	if chunks[0].MIMEType != "audio/pcm;rate=16000" {
		t.Errorf("mime = %q", chunks[0].MIMEType)
	}
	decoded, err := base64.StdEncoding.DecodeString(chunks[0].Data)
	if err != nil {
		t.Fatalf("base64: %v", err)
	}
	if string(decoded) != string(frame) {
		t.Errorf("payload = %v, want %v", decoded, frame)
	}
}

func TestSendTextWireFormat(t *testing.T) {
	srv := newLiveServer(t)
	sess := dialTest(t, srv, nil)

	if err := sess.SendText("hello there"); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	var msg clientContentMessage
	select {
	case data := <-srv.got:
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	cc := msg.ClientContent
	if !cc.TurnComplete {
		t.Error("turnComplete = false, want true")
	}
	if len(cc.Turns) != 1 || cc.Turns[0].Role != "user" {
		t.Fatalf("turns = %+v", cc.Turns)
	}
	if len(cc.Turns[0].Parts) != 1 || cc.Turns[0].Parts[0].Text != "hello there" {
		t.Errorf("parts = %+v", cc.Turns[0].Parts)
	}
}

func TestRecvDeliversInArrivalOrder(t *testing.T) {
	srv := newLiveServer(t)
	sess := dialTest(t, srv, nil)

	audio := base64.StdEncoding.EncodeToString([]byte{0x10, 0x20})
	srv.send(t, `{"serverContent":{"inputTranscription":{"text":"hi "}}}`)
	srv.send(t, `{"serverContent":{"outputTranscription":{"text":"hello"},"modelTurn":{"parts":[{"inlineData":{"mimeType":"audio/pcm;rate=24000","data":"`+audio+`"}}]}}}`)
	srv.send(t, `{"serverContent":{"turnComplete":true}}`)

	var events []*Event
	for ev, err := range sess.Recv() {
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		events = append(events, ev)
		if len(events) == 3 {
			break
		}
	}

	if events[0].UserTranscript != "hi " {
		t.Errorf("event 0 = %+v", events[0])
	}
	if events[1].ModelTranscript != "hello" || len(events[1].Audio) != 2 {
		t.Errorf("event 1 = %+v", events[1])
	}
	if !events[2].TurnComplete {
		t.Errorf("event 2 = %+v", events[2])
	}
}

func TestRecvConcatenatesInlineParts(t *testing.T) {
	srv := newLiveServer(t)
	sess := dialTest(t, srv, nil)

	a := base64.StdEncoding.EncodeToString([]byte{1, 2})
	b := base64.StdEncoding.EncodeToString([]byte{3, 4})
	srv.send(t, `{"serverContent":{"modelTurn":{"parts":[{"inlineData":{"data":"`+a+`"}},{"inlineData":{"data":"`+b+`"}}]}}}`)

	for ev, err := range sess.Recv() {
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		want := []byte{1, 2, 3, 4}
		if string(ev.Audio) != string(want) {
			t.Errorf("audio = %v, want %v", ev.Audio, want)
		}
		break
	}
}

func TestRecvInterrupted(t *testing.T) {
	srv := newLiveServer(t)
	sess := dialTest(t, srv, nil)

	srv.send(t, `{"serverContent":{"interrupted":true}}`)
	for ev, err := range sess.Recv() {
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		if !ev.Interrupted {
			t.Errorf("event = %+v, want interrupted", ev)
		}
		break
	}
}

func TestRecvSkipsMalformedFrames(t *testing.T) {
	srv := newLiveServer(t)
	sess := dialTest(t, srv, nil)

	srv.send(t, `{not json`)
	srv.send(t, `{"serverContent":{"turnComplete":true}}`)

	for ev, err := range sess.Recv() {
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		if !ev.TurnComplete {
			t.Errorf("event = %+v, want turnComplete after skipping bad frame", ev)
		}
		break
	}
}

func TestRecvSurfacesConnectionLoss(t *testing.T) {
	srv := newLiveServer(t)
	sess := dialTest(t, srv, nil)

	srv.closeConn()

	sawErr := false
	for _, err := range sess.Recv() {
		if err != nil {
			sawErr = true
			var werr *Error
			if !errors.As(err, &werr) || werr.Code != "connection_lost" {
				t.Errorf("unexpected error: %v", err)
			}
		}
	}
	if !sawErr {
		t.Fatal("expected a connection error from Recv")
	}
	if sess.Err() == nil {
		t.Error("Err() = nil after connection loss")
	}
}

func TestSendAfterClose(t *testing.T) {
	srv := newLiveServer(t)
	sess := dialTest(t, srv, nil)

	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := sess.SendAudio([]byte{0, 0}); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("SendAudio after close = %v, want ErrSessionClosed", err)
	}
	if err := sess.SendText("x"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("SendText after close = %v, want ErrSessionClosed", err)
	}
}

func TestRecvEndsCleanlyOnClose(t *testing.T) {
	srv := newLiveServer(t)
	sess := dialTest(t, srv, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, err := range sess.Recv() {
			if err != nil {
				return
			}
		}
	}()

	sess.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Recv did not end after Close")
	}
}

func TestSendBackpressure(t *testing.T) {
	srv := newLiveServer(t)
	sess := dialTest(t, srv, &Config{SendQueueSize: 1})

	// Hold the write lock so the writer stalls mid-flight, then saturate
	// the one-slot queue. The overflowing send must fail fast, not block.
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()

	var sawBackpressure bool
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := sess.SendAudio([]byte{0, 0}); errors.Is(err, ErrSendBackpressure) {
			sawBackpressure = true
			break
		}
	}
	if !sawBackpressure {
		t.Fatal("never observed ErrSendBackpressure with a saturated queue")
	}
}
