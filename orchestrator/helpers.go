package orchestrator

import (
	"errors"
	"strconv"

	"github.com/vocalize/fluency-pipeline/audio"
	"github.com/vocalize/fluency-pipeline/clients"
	"github.com/vocalize/fluency-pipeline/fluency"
)

// Error kinds reported to callers.
const (
	KindDecode            = "decode_error"
	KindUnsupportedFormat = "unsupported_format"
	KindTranscription     = "transcription_error"
	KindInternal          = "internal_error"
)

// ErrTranscription wraps every failure of the speech collaborator.
var ErrTranscription = errors.New("speech recognition failed")

// ErrorKind classifies err for callers.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, audio.ErrDecode):
		return KindDecode
	case errors.Is(err, audio.ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrTranscription):
		return KindTranscription
	default:
		return KindInternal
	}
}

func toWords(tr *clients.Transcript) []fluency.Word {
	if tr == nil {
		return nil
	}
	words := make([]fluency.Word, 0, len(tr.Words))
	for _, w := range tr.Words {
		words = append(words, fluency.Word{Word: w.Word, StartTime: w.Start, EndTime: w.End})
	}
	return words
}

func formatLabels(f audio.Format) (rate, channels, width string) {
	return strconv.Itoa(f.SampleRate), strconv.Itoa(f.Channels), strconv.Itoa(f.SampleWidth)
}
