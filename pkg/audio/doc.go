// Package audio is an umbrella for the audio sub-packages:
//
//   - pcm: PCM format math and the float/s16le codec
//   - device: capture and playback capability interfaces
//   - portaudio: PortAudio implementations of the device interfaces
//   - resampler: sample-rate conversion for s16le streams
package audio
