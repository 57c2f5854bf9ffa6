// Package portaudio implements the device capture and playback interfaces
// on top of the PortAudio library.
//
// This package uses CGO to interface with the PortAudio C library.
//
// For go build: requires portaudio installed via pkg-config (brew install portaudio)
package portaudio

/*
#cgo pkg-config: portaudio-2.0

#include <portaudio.h>
#include <stdlib.h>
#include <string.h>

// Wrapper functions using void* to avoid CGO type issues with PaStream
static PaError pa_open_stream(void **stream,
                              const PaStreamParameters *inputParams,
                              const PaStreamParameters *outputParams,
                              double sampleRate,
                              unsigned long framesPerBuffer,
                              PaStreamFlags streamFlags) {
    return Pa_OpenStream((PaStream**)stream, inputParams, outputParams, sampleRate,
                         framesPerBuffer, streamFlags, NULL, NULL);
}

static PaError pa_start_stream(void *stream) {
    return Pa_StartStream((PaStream*)stream);
}

static PaError pa_stop_stream(void *stream) {
    return Pa_StopStream((PaStream*)stream);
}

static PaError pa_close_stream(void *stream) {
    return Pa_CloseStream((PaStream*)stream);
}

static PaError pa_read_stream(void *stream, void *buffer, unsigned long frames) {
    return Pa_ReadStream((PaStream*)stream, buffer, frames);
}

static PaError pa_write_stream(void *stream, const void *buffer, unsigned long frames) {
    return Pa_WriteStream((PaStream*)stream, buffer, frames);
}
*/
import "C"

import (
	"errors"
	"sync"
	"unsafe"
)

var (
	initOnce sync.Once
	initErr  error
)

// paError converts a PortAudio error code to a Go error.
func paError(code C.PaError) error {
	if code == C.paNoError {
		return nil
	}
	return errors.New(C.GoString(C.Pa_GetErrorText(code)))
}

// Initialize initializes the PortAudio library.
// It is safe to call multiple times.
func Initialize() error {
	initOnce.Do(func() {
		initErr = paError(C.Pa_Initialize())
	})
	return initErr
}

// DeviceInfo contains information about an audio device.
type DeviceInfo struct {
	Index             int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	IsDefaultInput    bool
	IsDefaultOutput   bool
}

// Devices returns a list of available audio devices.
func Devices() ([]DeviceInfo, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}

	count := int(C.Pa_GetDeviceCount())
	if count < 0 {
		return nil, paError(C.PaError(count))
	}

	defaultInput := int(C.Pa_GetDefaultInputDevice())
	defaultOutput := int(C.Pa_GetDefaultOutputDevice())

	devices := make([]DeviceInfo, count)
	for i := 0; i < count; i++ {
		info := C.Pa_GetDeviceInfo(C.PaDeviceIndex(i))
		if info == nil {
			continue
		}
		devices[i] = DeviceInfo{
			Index:             i,
			Name:              C.GoString(info.name),
			MaxInputChannels:  int(info.maxInputChannels),
			MaxOutputChannels: int(info.maxOutputChannels),
			DefaultSampleRate: float64(info.defaultSampleRate),
			IsDefaultInput:    i == defaultInput,
			IsDefaultOutput:   i == defaultOutput,
		}
	}
	return devices, nil
}

// rawStream wraps a PortAudio stream handle and its scratch buffer.
type rawStream struct {
	stream     unsafe.Pointer
	buffer     unsafe.Pointer
	bufferSize int
	mu         sync.Mutex
	closed     bool
}

// openRawStream opens a mono PortAudio stream on the default device.
// Exactly one of input/output must be true.
func openRawStream(input bool, sampleRate float64, framesPerBuffer int) (*rawStream, error) {
	if err := Initialize(); err != nil {
		return nil, err
	}

	var inputParams, outputParams *C.PaStreamParameters

	if input {
		dev := C.Pa_GetDefaultInputDevice()
		if dev == C.paNoDevice {
			return nil, errors.New("no default input device")
		}
		info := C.Pa_GetDeviceInfo(dev)
		inputParams = &C.PaStreamParameters{
			device:                    dev,
			channelCount:              1,
			sampleFormat:              C.paInt16,
			suggestedLatency:          info.defaultLowInputLatency,
			hostApiSpecificStreamInfo: nil,
		}
	} else {
		dev := C.Pa_GetDefaultOutputDevice()
		if dev == C.paNoDevice {
			return nil, errors.New("no default output device")
		}
		info := C.Pa_GetDeviceInfo(dev)
		outputParams = &C.PaStreamParameters{
			device:                    dev,
			channelCount:              1,
			sampleFormat:              C.paInt16,
			suggestedLatency:          info.defaultLowOutputLatency,
			hostApiSpecificStreamInfo: nil,
		}
	}

	var paStream unsafe.Pointer
	err := paError(C.pa_open_stream(
		&paStream,
		inputParams,
		outputParams,
		C.double(sampleRate),
		C.ulong(framesPerBuffer),
		C.paClipOff,
	))
	if err != nil {
		return nil, err
	}

	bufferSize := framesPerBuffer * 2 // mono int16

	s := &rawStream{
		stream:     paStream,
		buffer:     C.malloc(C.size_t(bufferSize)),
		bufferSize: bufferSize,
	}
	if err := paError(C.pa_start_stream(s.stream)); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Read reads framesPerBuffer samples from an input stream.
func (s *rawStream) Read(frames int) ([]int16, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("stream closed")
	}

	if err := paError(C.pa_read_stream(s.stream, s.buffer, C.ulong(frames))); err != nil {
		return nil, err
	}

	samples := make([]int16, frames)
	C.memcpy(unsafe.Pointer(&samples[0]), s.buffer, C.size_t(frames*2))
	return samples, nil
}

// Write writes samples to an output stream, blocking until consumed.
func (s *rawStream) Write(samples []int16) error {
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("stream closed")
	}

	for off := 0; off < len(samples); {
		n := len(samples) - off
		if n*2 > s.bufferSize {
			n = s.bufferSize / 2
		}
		C.memcpy(s.buffer, unsafe.Pointer(&samples[off]), C.size_t(n*2))
		if err := paError(C.pa_write_stream(s.stream, s.buffer, C.ulong(n))); err != nil {
			return err
		}
		off += n
	}
	return nil
}

// Close stops and closes the stream. Idempotent.
func (s *rawStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	C.pa_stop_stream(s.stream)
	err := paError(C.pa_close_stream(s.stream))
	C.free(s.buffer)
	return err
}
