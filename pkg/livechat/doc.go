// Package livechat orchestrates a realtime voice conversation: microphone
// capture, encoding, a duplex model session, transcript assembly and
// gapless audio playback, all tied to one lifecycle state machine.
//
// A Controller owns the pipeline. Start acquires the audio devices and
// connects the session; Stop tears everything down and returns the
// controller to Idle so it can be started again. Callbacks report state
// transitions and completed turns.
package livechat
