package pcm

import (
	"fmt"
	"time"
)

const (
	// L16Mono16K represents audio/pcm;rate=16000, mono, 16-bit.
	L16Mono16K Format = iota
	// L16Mono24K represents audio/pcm;rate=24000, mono, 16-bit.
	L16Mono24K
	// L16Mono48K represents audio/pcm;rate=48000, mono, 16-bit.
	L16Mono48K
)

// Format represents an audio format configuration.
type Format int

// FormatForRate returns the mono 16-bit format for the given sample rate.
func FormatForRate(rate int) (Format, error) {
	switch rate {
	case 16000:
		return L16Mono16K, nil
	case 24000:
		return L16Mono24K, nil
	case 48000:
		return L16Mono48K, nil
	}
	return 0, fmt.Errorf("pcm: unsupported sample rate %d", rate)
}

// SampleRate returns the sample rate in Hz for this format.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono16K:
		return 16000
	case L16Mono24K:
		return 24000
	case L16Mono48K:
		return 48000
	}
	panic("pcm: invalid audio format")
}

// Channels returns the number of audio channels for this format.
func (f Format) Channels() int {
	switch f {
	case L16Mono16K, L16Mono24K, L16Mono48K:
		return 1
	}
	panic("pcm: invalid audio format")
}

// Depth returns the bit depth for this format.
func (f Format) Depth() int {
	switch f {
	case L16Mono16K, L16Mono24K, L16Mono48K:
		return 16
	}
	panic("pcm: invalid audio format")
}

// Samples returns the number of samples in the given number of bytes.
func (f Format) Samples(bytes int64) int64 {
	return bytes * 8 / int64(f.Channels()) / int64(f.Depth())
}

// SamplesInDuration returns the number of samples in the given duration.
func (f Format) SamplesInDuration(d time.Duration) int64 {
	return int64(time.Duration(f.SampleRate()) * d / time.Second)
}

// BytesInDuration returns the number of bytes in the given duration.
func (f Format) BytesInDuration(d time.Duration) int64 {
	return f.SamplesInDuration(d) * int64(f.Channels()) * int64(f.Depth()) / 8
}

// Duration returns the duration of the given number of bytes.
func (f Format) Duration(bytes int64) time.Duration {
	return time.Duration(f.Samples(bytes)) * time.Second / time.Duration(f.SampleRate())
}

// SampleDuration returns the duration of the given number of samples.
func (f Format) SampleDuration(samples int) time.Duration {
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate())
}

// BytesRate returns the byte rate of the audio data.
func (f Format) BytesRate() int {
	return f.SampleRate() * f.Channels() * f.Depth() / 8
}

// MIME returns the wire mime string for this format, e.g. "audio/pcm;rate=16000".
func (f Format) MIME() string {
	return fmt.Sprintf("audio/pcm;rate=%d", f.SampleRate())
}

// String returns a human-readable string representation of the format.
func (f Format) String() string {
	return f.MIME()
}
