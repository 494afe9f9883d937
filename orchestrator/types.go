package orchestrator

import (
	"context"

	"github.com/vocalize/fluency-pipeline/audio"
	"github.com/vocalize/fluency-pipeline/clients"
	"github.com/vocalize/fluency-pipeline/fluency"
)

// Transcriber turns normalized LINEAR16 audio into timed words.
type Transcriber interface {
	Recognize(ctx context.Context, wav []byte, language string) (*clients.Transcript, error)
}

type Result struct {
	RequestID      string          `json:"request_id" yaml:"request_id"`
	Transcript     string          `json:"transcript" yaml:"transcript"`
	Language       string          `json:"language,omitempty" yaml:"language,omitempty"`
	WordCount      int             `json:"word_count" yaml:"word_count"`
	Words          []fluency.Word  `json:"words" yaml:"words"`
	FluencyMetrics fluency.Metrics `json:"fluency_metrics" yaml:"fluency_metrics"`
	Audio          audio.Format    `json:"audio" yaml:"audio"` // input format before normalization
}
