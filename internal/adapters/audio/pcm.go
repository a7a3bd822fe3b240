// Package audio provides monitor sources: an ffmpeg microphone capture, a
// shared latest-window buffer fed by other transports, and a reader source
// for recorded PCM.
package audio

import (
	"encoding/binary"
	"math"
)

const pcm16Scale = 32768.0

// DecodePCM16 converts little-endian signed 16-bit samples into dst,
// normalised to [-1,1). It returns the number of samples written. A
// trailing odd byte is ignored.
func DecodePCM16(b []byte, dst []float64) int {
	n := len(b) / 2
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = float64(int16(binary.LittleEndian.Uint16(b[2*i:]))) / pcm16Scale
	}
	return n
}

// EncodePCM16 is the inverse of DecodePCM16; samples outside [-1,1] are
// clipped.
func EncodePCM16(samples []float64) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		v := s * pcm16Scale
		switch {
		case math.IsNaN(v):
			v = 0
		case v > math.MaxInt16:
			v = math.MaxInt16
		case v < math.MinInt16:
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}
