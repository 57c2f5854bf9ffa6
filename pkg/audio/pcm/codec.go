package pcm

import "encoding/binary"

// EncodeFloat32 converts normalized float32 samples in [-1, 1] to
// little-endian signed 16-bit PCM bytes. Each sample is scaled by 32768
// and clamped to the int16 range. Samples outside [-1, 1] are clamped,
// not wrapped.
func EncodeFloat32(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int32(s * 32768)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

// DecodeFloat32 converts little-endian signed 16-bit PCM bytes back to
// normalized float32 samples. A trailing odd byte is ignored. The result
// differs from the original input of EncodeFloat32 by at most one
// quantization step (1/32768) per sample.
func DecodeFloat32(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		out[i] = float32(v) / 32768
	}
	return out
}

// EncodeS16LE serializes int16 samples as little-endian bytes.
func EncodeS16LE(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// DecodeS16LE parses little-endian bytes into int16 samples.
// A trailing odd byte is ignored.
func DecodeS16LE(data []byte) []int16 {
	n := len(data) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}
