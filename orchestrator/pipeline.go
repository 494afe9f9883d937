package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vocalize/fluency-pipeline/audio"
	cfg "github.com/vocalize/fluency-pipeline/config"
	"github.com/vocalize/fluency-pipeline/fluency"
	"github.com/vocalize/fluency-pipeline/metrics"
)

type Pipeline struct {
	cfg     *cfg.Root
	stt     Transcriber
	log     *logrus.Entry
	metrics *metrics.Metrics
}

// NewPipeline wires the normalizer, the transcriber and the scorer. stt may
// be nil for callers that only normalize or score; m may be nil.
func NewPipeline(c *cfg.Root, stt Transcriber, log *logrus.Logger, m *metrics.Metrics) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{cfg: c, stt: stt, log: log.WithField("component", "pipeline"), metrics: m}
}

// Normalize converts raw WAV bytes to the recognizer format and reports the
// input format.
func (p *Pipeline) Normalize(raw []byte) ([]byte, audio.Format, error) {
	start := time.Now()
	b, err := audio.Decode(raw)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordNormalizeFailure(ErrorKind(err))
		}
		return nil, audio.Format{}, err
	}
	in := b.Format()
	out := audio.Encode(audio.Convert(b), audio.TargetSampleRate)

	if p.metrics != nil {
		rate, ch, width := formatLabels(in)
		p.metrics.RecordNormalized(rate, ch, width, in.Duration, time.Since(start).Seconds())
	}
	p.log.WithFields(logrus.Fields{
		"sample_rate":  in.SampleRate,
		"channels":     in.Channels,
		"sample_width": in.SampleWidth,
		"frames":       in.Frames,
		"canonical":    b.Canonical(),
	}).Debug("audio normalized")
	return out, in, nil
}

// Score runs the fluency scorer.
func (p *Pipeline) Score(words []fluency.Word) fluency.Metrics {
	m := fluency.Analyze(words)
	if p.metrics != nil {
		p.metrics.RecordScore(len(words), m.FluencyScore, m.NoWords())
	}
	return m
}

// Run normalizes raw, transcribes it and scores the returned words.
func (p *Pipeline) Run(ctx context.Context, raw []byte, language string) (*Result, error) {
	if p.stt == nil {
		return nil, fmt.Errorf("%w: no transcriber configured", ErrTranscription)
	}
	id := uuid.NewString()
	log := p.log.WithField("request_id", id)

	wav, in, err := p.Normalize(raw)
	if err != nil {
		log.WithError(err).Warn("audio rejected")
		return nil, err
	}
	if language == "" && p.cfg != nil {
		language = p.cfg.Speech.Language
	}

	if p.metrics != nil {
		p.metrics.RecordTranscriptionRequest()
	}
	start := time.Now()
	tr, err := p.stt.Recognize(ctx, wav, language)
	elapsed := time.Since(start)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordTranscriptionFailure(elapsed.Seconds())
		}
		log.WithError(err).WithField("elapsed", elapsed).Error("transcription failed")
		return nil, fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	if p.metrics != nil {
		p.metrics.RecordTranscriptionSuccess(elapsed.Seconds())
	}

	words := toWords(tr)
	m := p.Score(words)
	log.WithFields(logrus.Fields{
		"words":         len(words),
		"wpm":           m.WPM,
		"fluency_score": m.FluencyScore,
		"elapsed":       elapsed,
	}).Info("analysis complete")

	return &Result{
		RequestID:      id,
		Transcript:     tr.Text,
		Language:       tr.Language,
		WordCount:      len(words),
		Words:          words,
		FluencyMetrics: m,
		Audio:          in,
	}, nil
}

// RunFile reads a WAV file and runs the pipeline on it.
func (p *Pipeline) RunFile(ctx context.Context, wavPath, language string) (*Result, error) {
	raw, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, raw, language)
}
