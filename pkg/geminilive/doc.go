// Package geminilive is a duplex websocket client for the Gemini Live API
// (the BidiGenerateContent protocol).
//
// A Session owns one persistent connection. Outbound microphone PCM is
// wrapped as base64 realtimeInput media chunks and written by a dedicated
// writer goroutine fed from a bounded queue, so SendAudio never blocks the
// capture cadence; a saturated queue surfaces ErrSendBackpressure instead
// of stalling or silently dropping. Inbound frames are decoded by a single
// read loop and delivered in strict arrival order via Recv.
//
// Basic usage:
//
//	sess, err := geminilive.Connect(ctx, &geminilive.Config{APIKey: key})
//	if err != nil { ... }
//	defer sess.Close()
//
//	go func() {
//	    for frame := range frames {
//	        _ = sess.SendAudio(frame)
//	    }
//	}()
//
//	for ev, err := range sess.Recv() {
//	    if err != nil { ... }
//	    handle(ev)
//	}
package geminilive
