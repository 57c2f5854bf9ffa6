package livechat

import (
	"strings"
	"sync"
)

// TranscriptAssembler accumulates transcription deltas for both speakers
// and finalizes them into turn pairs. Safe for concurrent use.
type TranscriptAssembler struct {
	mu    sync.Mutex
	user  strings.Builder
	model strings.Builder
}

// NewTranscriptAssembler returns an assembler with empty buffers.
func NewTranscriptAssembler() *TranscriptAssembler {
	return &TranscriptAssembler{}
}

// AddDelta appends a transcription fragment to the speaker's buffer.
// Fragments concatenate exactly as received, with no added whitespace.
func (a *TranscriptAssembler) AddDelta(sp Speaker, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch sp {
	case SpeakerUser:
		a.user.WriteString(text)
	case SpeakerModel:
		a.model.WriteString(text)
	}
}

// Partial returns the speaker's accumulated in-progress text.
func (a *TranscriptAssembler) Partial(sp Speaker) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if sp == SpeakerUser {
		return a.user.String()
	}
	return a.model.String()
}

// Complete finalizes both buffers into a user turn followed by a model
// turn and resets the assembler. Either turn's text may be empty; the
// finalized text comes from the buffers alone.
func (a *TranscriptAssembler) Complete() (user, model Turn) {
	a.mu.Lock()
	defer a.mu.Unlock()
	user = Turn{Speaker: SpeakerUser, Text: a.user.String(), Finalized: true}
	model = Turn{Speaker: SpeakerModel, Text: a.model.String(), Finalized: true}
	a.user.Reset()
	a.model.Reset()
	return user, model
}

// Reset clears both buffers without emitting turns.
func (a *TranscriptAssembler) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.user.Reset()
	a.model.Reset()
}
