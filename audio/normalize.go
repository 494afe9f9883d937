package audio

import (
	"bytes"
	"fmt"
	"io"
	"math"
)

// Normalize decodes a PCM WAV buffer and re-encodes it as mono, 16-bit,
// 16 kHz. Nothing is returned on error.
func Normalize(data []byte) ([]byte, error) {
	b, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return Encode(Convert(b), TargetSampleRate), nil
}

// NormalizeStream reads a whole WAV stream from r and writes the
// normalized WAV to w.
func NormalizeStream(r io.Reader, w io.Writer) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}
	out, err := Normalize(data)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, bytes.NewReader(out)); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	return nil
}

// Convert runs the downmix, resample, width and clamp stages.
func Convert(b Buffer) []int16 {
	return Clamp(NormalizeWidth(Resample(Downmix(b), TargetSampleRate)))
}

// Downmix averages each frame into one sample using floor division.
func Downmix(b Buffer) Buffer {
	out := b
	if b.Channels <= 1 {
		out.Samples = cloneSamples(b.Samples)
		return out
	}

	frames := b.Frames()
	mono := make([]int32, frames)
	ch := int64(b.Channels)
	for i := 0; i < frames; i++ {
		var sum int64
		for _, s := range b.Samples[i*b.Channels : (i+1)*b.Channels] {
			sum += int64(s)
		}
		mono[i] = int32(floorDiv(sum, ch))
	}
	out.Channels = 1
	out.Samples = mono
	return out
}

// Resample converts a mono buffer to rate by linear interpolation between
// neighbouring samples. There is no anti-aliasing filter.
func Resample(b Buffer, rate int) Buffer {
	out := b
	if b.SampleRate == rate || b.SampleRate <= 0 {
		out.Samples = cloneSamples(b.Samples)
		return out
	}
	out.SampleRate = rate

	n := len(b.Samples)
	newLength := int(int64(n) * int64(rate) / int64(b.SampleRate))
	res := make([]int32, newLength)
	for i := range res {
		pos := 0.0
		if newLength > 1 {
			pos = float64(i) * float64(n-1) / float64(newLength-1)
		}
		idx := int(pos)
		frac := pos - float64(idx)

		val := float64(b.Samples[idx])
		if idx+1 < n {
			val = float64(b.Samples[idx])*(1-frac) + float64(b.Samples[idx+1])*frac
		}
		res[i] = int32(val)
	}
	out.Samples = res
	return out
}

// NormalizeWidth rescales samples decoded from 8- or 32-bit sources so the
// loudest sample reaches 32767. 16-bit sources pass through unchanged.
func NormalizeWidth(b Buffer) Buffer {
	out := b
	out.Samples = cloneSamples(b.Samples)
	if b.SampleWidth == 2 {
		return out
	}
	out.SampleWidth = 2

	var peak int64
	for _, s := range b.Samples {
		if a := abs64(int64(s)); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		return out
	}
	scale := float64(math.MaxInt16) / float64(peak)
	for i, s := range out.Samples {
		out.Samples[i] = int32(float64(s) * scale)
	}
	return out
}

// Clamp limits every sample to the signed 16-bit range.
func Clamp(b Buffer) []int16 {
	out := make([]int16, len(b.Samples))
	for i, s := range b.Samples {
		switch {
		case s > math.MaxInt16:
			out[i] = math.MaxInt16
		case s < math.MinInt16:
			out[i] = math.MinInt16
		default:
			out[i] = int16(s)
		}
	}
	return out
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func cloneSamples(s []int32) []int32 {
	if s == nil {
		return nil
	}
	return append(make([]int32, 0, len(s)), s...)
}
