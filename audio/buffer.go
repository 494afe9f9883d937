// Package audio converts PCM WAV recordings into the mono, 16-bit, 16 kHz
// LINEAR16 layout the speech recognizer accepts.
//
// Every stage takes a Buffer and returns a new one; nothing is modified in
// place, so stages can be run and tested on their own.
package audio

import (
	"errors"
	"time"
)

// TargetSampleRate is the rate the recognizer expects.
const TargetSampleRate = 16000

var (
	// ErrDecode reports a malformed or truncated WAV container.
	ErrDecode = errors.New("decode error")
	// ErrUnsupportedFormat reports a sample width outside {1, 2, 4} bytes
	// or a non-PCM encoding.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// Buffer holds decoded interleaved PCM samples.
type Buffer struct {
	Channels    int
	SampleWidth int // bytes per sample
	SampleRate  int
	Samples     []int32
}

// Frames returns the number of sample frames.
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback length of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Format describes a buffer without its samples.
type Format struct {
	Channels    int     `json:"channels" yaml:"channels"`
	SampleWidth int     `json:"sample_width" yaml:"sample_width"`
	SampleRate  int     `json:"sample_rate" yaml:"sample_rate"`
	Frames      int     `json:"frames" yaml:"frames"`
	Duration    float64 `json:"duration_seconds" yaml:"duration_seconds"`
}

// Format returns the buffer's header values.
func (b Buffer) Format() Format {
	return Format{
		Channels:    b.Channels,
		SampleWidth: b.SampleWidth,
		SampleRate:  b.SampleRate,
		Frames:      b.Frames(),
		Duration:    b.Duration().Seconds(),
	}
}

// Canonical reports whether b already has the recognizer layout.
func (b Buffer) Canonical() bool {
	return b.Channels == 1 && b.SampleWidth == 2 && b.SampleRate == TargetSampleRate
}
