// Package pcm provides types and utilities for working with linear PCM audio.
//
// The package defines audio formats for the configurations the voice
// pipeline uses (16-bit mono at various sample rates), duration/byte math
// on those formats, and the codec between normalized float32 samples and
// the little-endian signed 16-bit wire representation.
//
// Key pieces:
//   - Format: sample rate, channels, bit depth and conversions between
//     byte counts, sample counts and durations
//   - EncodeFloat32 / DecodeFloat32: the codec between capture frames and
//     wire bytes, lossless up to one quantization step
//   - EncodeS16LE / DecodeS16LE: raw int16 <-> byte serialization
package pcm
