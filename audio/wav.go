package audio

import (
	"encoding/binary"
	"fmt"
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
	headerSize       = 44
)

// Decode parses a RIFF/WAVE container into a Buffer. Chunks other than
// "fmt " and "data" are skipped.
func Decode(data []byte) (Buffer, error) {
	if len(data) < 12 {
		return Buffer{}, fmt.Errorf("%w: need at least 12 bytes, got %d", ErrDecode, len(data))
	}
	if string(data[0:4]) != "RIFF" {
		return Buffer{}, fmt.Errorf("%w: missing RIFF header", ErrDecode)
	}
	if string(data[8:12]) != "WAVE" {
		return Buffer{}, fmt.Errorf("%w: missing WAVE format", ErrDecode)
	}

	var (
		f        fmtChunk
		foundFmt bool
	)
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if size < 0 || body+size > len(data) {
			return Buffer{}, fmt.Errorf("%w: %q chunk truncated (%d bytes declared, %d available)",
				ErrDecode, id, size, len(data)-body)
		}

		switch id {
		case "fmt ":
			parsed, err := parseFmt(data[body : body+size])
			if err != nil {
				return Buffer{}, err
			}
			f, foundFmt = parsed, true
		case "data":
			if !foundFmt {
				return Buffer{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrDecode)
			}
			return f.decodeSamples(data[body : body+size]), nil
		}

		offset = body + size
		if size%2 == 1 {
			offset++ // chunks are word aligned
		}
	}

	if !foundFmt {
		return Buffer{}, fmt.Errorf("%w: missing fmt chunk", ErrDecode)
	}
	return Buffer{}, fmt.Errorf("%w: missing data chunk", ErrDecode)
}

type fmtChunk struct {
	channels    int
	sampleRate  int
	sampleWidth int
}

func parseFmt(b []byte) (fmtChunk, error) {
	if len(b) < 16 {
		return fmtChunk{}, fmt.Errorf("%w: fmt chunk too small (%d bytes)", ErrDecode, len(b))
	}
	tag := binary.LittleEndian.Uint16(b[0:2])
	channels := int(binary.LittleEndian.Uint16(b[2:4]))
	rate := int(binary.LittleEndian.Uint32(b[4:8]))
	bits := int(binary.LittleEndian.Uint16(b[14:16]))

	if tag == formatExtensible && len(b) >= 26 {
		// sub-format GUID starts at byte 24; its first two bytes carry the format code
		tag = binary.LittleEndian.Uint16(b[24:26])
	}
	if tag != formatPCM {
		return fmtChunk{}, fmt.Errorf("%w: audio format %d (only PCM is supported)", ErrUnsupportedFormat, tag)
	}
	if channels == 0 {
		return fmtChunk{}, fmt.Errorf("%w: channel count is 0", ErrDecode)
	}
	if rate == 0 {
		return fmtChunk{}, fmt.Errorf("%w: sample rate is 0", ErrDecode)
	}
	if bits%8 != 0 {
		return fmtChunk{}, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, bits)
	}
	switch width := bits / 8; width {
	case 1, 2, 4:
		return fmtChunk{channels: channels, sampleRate: rate, sampleWidth: width}, nil
	default:
		return fmtChunk{}, fmt.Errorf("%w: sample width %d bytes", ErrUnsupportedFormat, width)
	}
}

// decodeSamples unpacks whole frames; a trailing partial frame is dropped.
func (f fmtChunk) decodeSamples(pcm []byte) Buffer {
	frameSize := f.channels * f.sampleWidth
	n := (len(pcm) / frameSize) * f.channels
	samples := make([]int32, n)
	for i := range samples {
		off := i * f.sampleWidth
		switch f.sampleWidth {
		case 1:
			samples[i] = int32(int8(pcm[off]))
		case 2:
			samples[i] = int32(int16(binary.LittleEndian.Uint16(pcm[off:])))
		case 4:
			samples[i] = int32(binary.LittleEndian.Uint32(pcm[off:]))
		}
	}
	return Buffer{
		Channels:    f.channels,
		SampleWidth: f.sampleWidth,
		SampleRate:  f.sampleRate,
		Samples:     samples,
	}
}

// Encode writes 16-bit mono PCM samples as a canonical 44-byte-header WAV.
// An empty sample slice yields a header-only file.
func Encode(samples []int16, sampleRate int) []byte {
	dataSize := len(samples) * 2
	buf := make([]byte, 0, headerSize+dataSize)

	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(36+dataSize))
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, formatPCM)
	buf = binary.LittleEndian.AppendUint16(buf, 1)                    // mono
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sampleRate))   // sample rate
	buf = binary.LittleEndian.AppendUint32(buf, uint32(sampleRate*2)) // byte rate
	buf = binary.LittleEndian.AppendUint16(buf, 2)                    // block align
	buf = binary.LittleEndian.AppendUint16(buf, 16)                   // bits per sample

	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))
	for _, s := range samples {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s))
	}
	return buf
}

// Probe decodes data and reports its format.
func Probe(data []byte) (Format, error) {
	b, err := Decode(data)
	if err != nil {
		return Format{}, err
	}
	return b.Format(), nil
}
