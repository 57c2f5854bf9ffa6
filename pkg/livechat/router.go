package livechat

import (
	"errors"
	"log/slog"

	"github.com/voxline/voxline/pkg/geminilive"
)

// router applies inbound session events to the transcript and the
// playback schedule. It runs on a single goroutine, so an event carrying
// both a transcription delta and audio applies both effects before the
// next event is looked at.
type router struct {
	transcript *TranscriptAssembler
	scheduler  *PlaybackScheduler
	onTurn     func(Turn)
	log        *slog.Logger
}

// route applies one event. It returns an error only for failures that
// should end the session; per-chunk decode problems are logged and
// swallowed.
func (r *router) route(ev *geminilive.Event) error {
	if ev.UserTranscript != "" {
		r.transcript.AddDelta(SpeakerUser, ev.UserTranscript)
	}
	if ev.ModelTranscript != "" {
		r.transcript.AddDelta(SpeakerModel, ev.ModelTranscript)
	}

	if ev.Interrupted {
		r.scheduler.Stop()
	}

	if len(ev.Audio) > 0 {
		if err := r.scheduler.Enqueue(ev.Audio); err != nil {
			if !errors.Is(err, ErrDecode) {
				return err
			}
			r.log.Warn("livechat: dropped audio chunk", "error", err)
		}
	}

	if ev.TurnComplete {
		user, model := r.transcript.Complete()
		if r.onTurn != nil {
			r.onTurn(user)
			r.onTurn(model)
		}
	}
	return nil
}
