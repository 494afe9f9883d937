// Package fluency scores speech fluency from word-level timestamps.
package fluency

import (
	"math"
	"strconv"
	"strings"
)

// Scoring thresholds.
const (
	ShortPause       = 0.8 // seconds
	LongPause        = 1.5 // seconds
	MinWPM           = 120.0
	MaxWPM           = 150.0
	MaxFillerRate    = 0.10
	MaxScore         = 5.0
	RatePenalty      = 1.0
	FillerPenalty    = 1.0
	LongPausePenalty = 0.5
)

// NoWordsMessage is reported in Metrics.Error for an empty word list.
const NoWordsMessage = "No words"

var fillers = map[string]struct{}{
	"um":        {},
	"uh":        {},
	"like":      {},
	"you know":  {},
	"basically": {},
	"actually":  {},
	"so":        {},
}

// Word is one recognized token with its start and end offsets in seconds.
type Word struct {
	Word      string  `json:"word" yaml:"word"`
	StartTime float64 `json:"startTime" yaml:"startTime"`
	EndTime   float64 `json:"endTime" yaml:"endTime"`
}

// Metrics is the result of Analyze.
type Metrics struct {
	WPM            float64 `json:"wpm" yaml:"wpm"`
	AvgWordTime    float64 `json:"avg_word_time" yaml:"avg_word_time"`
	FillerRate     float64 `json:"filler_rate" yaml:"filler_rate"`
	PauseFrequency float64 `json:"pause_frequency" yaml:"pause_frequency"`
	LongPauses     int     `json:"long_pauses" yaml:"long_pauses"`
	FluencyScore   float64 `json:"fluency_score" yaml:"fluency_score"`

	WordCount   int     `json:"word_count" yaml:"word_count"`
	FillerCount int     `json:"filler_count" yaml:"filler_count"`
	PauseCount  int     `json:"pause_count" yaml:"pause_count"`
	Duration    float64 `json:"duration" yaml:"duration"`
	Assessment  string  `json:"assessment,omitempty" yaml:"assessment,omitempty"`

	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// NoWords reports whether m is the empty-input sentinel.
func (m Metrics) NoWords() bool {
	return m.Error == NoWordsMessage
}

// IsFiller reports whether word is a filler, ignoring case. Only whole
// tokens match; "you know" matches only when delivered as a single token.
func IsFiller(word string) bool {
	_, ok := fillers[strings.ToLower(word)]
	return ok
}

// Analyze computes fluency metrics for words, which must be ordered by
// start time. An empty list returns the NoWords sentinel.
func Analyze(words []Word) Metrics {
	if len(words) == 0 {
		return Metrics{FluencyScore: 0, Error: NoWordsMessage}
	}

	n := float64(len(words))
	fillerCount := 0
	for _, w := range words {
		if IsFiller(w.Word) {
			fillerCount++
		}
	}

	pauseCount, longPauses := 0, 0
	for i := 1; i < len(words); i++ {
		gap := words[i].StartTime - words[i-1].EndTime
		if gap > ShortPause {
			pauseCount++
		}
		if gap > LongPause {
			longPauses++
		}
	}

	duration := words[len(words)-1].EndTime - words[0].StartTime
	wpm := 0.0
	if duration > 0 {
		wpm = n / duration * 60
	}
	fillerRate := float64(fillerCount) / n

	score := MaxScore
	if wpm < MinWPM || wpm > MaxWPM {
		score -= RatePenalty
	}
	if fillerRate > MaxFillerRate {
		score -= FillerPenalty
	}
	score -= LongPausePenalty * float64(longPauses)
	score = math.Max(0, round(score, 1))

	return Metrics{
		WPM:            round(wpm, 1),
		AvgWordTime:    round(duration/n, 2),
		FillerRate:     round(fillerRate, 2),
		PauseFrequency: round(float64(pauseCount)/n, 2),
		LongPauses:     longPauses,
		FluencyScore:   score,
		WordCount:      len(words),
		FillerCount:    fillerCount,
		PauseCount:     pauseCount,
		Duration:       round(duration, 2),
		Assessment:     Assess(score),
	}
}

// Assess maps a fluency score to a coarse label.
func Assess(score float64) string {
	switch {
	case score >= 4.5:
		return "excellent"
	case score >= 3.5:
		return "good"
	case score >= 2.5:
		return "fair"
	default:
		return "needs work"
	}
}

// round rounds the exact binary value of v half to even, so 1/8 becomes
// 0.12 at two places.
func round(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}
