package fluency

import (
	"math"
	"testing"
)

func sampleWords() []Word {
	return []Word{
		{"I", 0.1, 0.2},
		{"believe", 0.3, 0.6},
		{"the", 0.7, 0.9},
		{"market", 1.0, 1.4},
		{"is", 1.5, 1.6},
		{"growing", 1.7, 2.2},
	}
}

// evenWords returns n words, each 0.3s long with 0.1s gaps.
func evenWords(tokens ...string) []Word {
	words := make([]Word, len(tokens))
	for i, tok := range tokens {
		start := float64(i) * 0.4
		words[i] = Word{Word: tok, StartTime: start, EndTime: start + 0.3}
	}
	return words
}

func TestAnalyzeNoWords(t *testing.T) {
	for _, words := range [][]Word{nil, {}} {
		m := Analyze(words)
		if m.FluencyScore != 0 {
			t.Errorf("Expected score 0, got %v", m.FluencyScore)
		}
		if !m.NoWords() || m.Error != NoWordsMessage {
			t.Errorf("Expected no-words sentinel, got %+v", m)
		}
	}
}

func TestAnalyzeSample(t *testing.T) {
	m := Analyze(sampleWords())

	if m.WordCount != 6 {
		t.Errorf("Expected 6 words, got %d", m.WordCount)
	}
	if m.Duration != 2.1 {
		t.Errorf("Expected duration 2.1, got %v", m.Duration)
	}
	if m.WPM != 171.4 {
		t.Errorf("Expected wpm 171.4, got %v", m.WPM)
	}
	if m.AvgWordTime != 0.35 {
		t.Errorf("Expected avg word time 0.35, got %v", m.AvgWordTime)
	}
	if m.FillerRate != 0 || m.PauseFrequency != 0 || m.LongPauses != 0 {
		t.Errorf("Expected no fillers or pauses, got %+v", m)
	}
	if m.FluencyScore != 4.0 {
		t.Errorf("Expected score 4.0, got %v", m.FluencyScore)
	}
	if m.Assessment != "good" {
		t.Errorf("Expected assessment good, got %q", m.Assessment)
	}
	if m.NoWords() {
		t.Error("Expected a real result, got the no-words sentinel")
	}
}

func TestAnalyzeFillerPenalty(t *testing.T) {
	words := evenWords("Um", "the", "plan", "is", "LIKE", "ready", "for", "next", "week", "now")
	m := Analyze(words)

	if m.FillerCount != 2 {
		t.Errorf("Expected 2 fillers, got %d", m.FillerCount)
	}
	if m.FillerRate != 0.2 {
		t.Errorf("Expected filler rate 0.2, got %v", m.FillerRate)
	}
	// 10 words over 3.9s is ~153.8 wpm, so the rate penalty applies as well.
	if m.FluencyScore != 3.0 {
		t.Errorf("Expected score 3.0, got %v", m.FluencyScore)
	}
}

func TestAnalyzeFillerAtThreshold(t *testing.T) {
	words := evenWords("so", "a", "b", "c", "d", "e", "f", "g", "h", "i")
	m := Analyze(words)
	if m.FillerRate != 0.1 {
		t.Fatalf("Expected filler rate 0.1, got %v", m.FillerRate)
	}
	if m.FluencyScore != 4.0 {
		t.Errorf("Expected only the rate penalty at exactly 10%% fillers, got %v", m.FluencyScore)
	}
}

func TestAnalyzePauses(t *testing.T) {
	words := []Word{
		{"one", 0.0, 0.5},
		{"two", 1.4, 1.8},  // 0.9s pause
		{"three", 3.5, 4.0}, // 1.7s long pause
		{"four", 4.1, 4.5},
	}
	m := Analyze(words)

	if m.PauseCount != 2 {
		t.Errorf("Expected 2 pauses, got %d", m.PauseCount)
	}
	if m.LongPauses != 1 {
		t.Errorf("Expected 1 long pause, got %d", m.LongPauses)
	}
	if m.PauseFrequency != 0.5 {
		t.Errorf("Expected pause frequency 0.5, got %v", m.PauseFrequency)
	}
	// 4 words over 4.5s is ~53 wpm: -1.0 rate, -0.5 long pause.
	if m.FluencyScore != 3.5 {
		t.Errorf("Expected score 3.5, got %v", m.FluencyScore)
	}
}

func TestAnalyzeScoreFloor(t *testing.T) {
	words := make([]Word, 0, 12)
	for i := 0; i < 12; i++ {
		start := float64(i) * 3
		words = append(words, Word{Word: "um", StartTime: start, EndTime: start + 0.5})
	}
	m := Analyze(words)

	if m.LongPauses != 11 {
		t.Errorf("Expected 11 long pauses, got %d", m.LongPauses)
	}
	if m.FluencyScore != 0 {
		t.Errorf("Expected score floored at 0, got %v", m.FluencyScore)
	}
	if m.Assessment != "needs work" {
		t.Errorf("Expected needs work, got %q", m.Assessment)
	}
}

func TestAnalyzeZeroDuration(t *testing.T) {
	m := Analyze([]Word{{"hi", 1.0, 1.0}})
	if m.WPM != 0 {
		t.Errorf("Expected wpm 0 for zero duration, got %v", m.WPM)
	}
	if m.FluencyScore != 4.0 {
		t.Errorf("Expected rate penalty only, got %v", m.FluencyScore)
	}
}

func TestAnalyzeOptimalPace(t *testing.T) {
	// 10 words in 4.5s is ~133 wpm.
	words := make([]Word, 10)
	for i := range words {
		start := float64(i) * 0.45
		words[i] = Word{Word: "word", StartTime: start, EndTime: start + 0.4}
	}
	words[9].EndTime = 4.5

	m := Analyze(words)
	if m.WPM < MinWPM || m.WPM > MaxWPM {
		t.Fatalf("Expected wpm within the optimal band, got %v", m.WPM)
	}
	if m.FluencyScore != MaxScore {
		t.Errorf("Expected perfect score, got %v", m.FluencyScore)
	}
	if m.Assessment != "excellent" {
		t.Errorf("Expected excellent, got %q", m.Assessment)
	}
}

func TestIsFiller(t *testing.T) {
	tests := []struct {
		word string
		want bool
	}{
		{"um", true},
		{"UH", true},
		{"Basically", true},
		{"actually", true},
		{"so", true},
		{"you know", true},
		{"you", false},
		{"know", false},
		{"um,", false},
		{"likely", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsFiller(tt.word); got != tt.want {
			t.Errorf("IsFiller(%q) = %v, want %v", tt.word, got, tt.want)
		}
	}
}

func TestAssess(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{5.0, "excellent"},
		{4.5, "excellent"},
		{4.0, "good"},
		{3.5, "good"},
		{3.0, "fair"},
		{2.5, "fair"},
		{2.0, "needs work"},
		{0, "needs work"},
	}
	for _, tt := range tests {
		if got := Assess(tt.score); got != tt.want {
			t.Errorf("Assess(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestRound(t *testing.T) {
	if got := round(171.42857, 1); math.Abs(got-171.4) > 1e-9 {
		t.Errorf("Expected 171.4, got %v", got)
	}
	if got := round(0.125001, 2); got != 0.13 {
		t.Errorf("Expected 0.13, got %v", got)
	}

	ties := []struct {
		in     float64
		places int
		want   float64
	}{
		{0.125, 2, 0.12},
		{0.375, 2, 0.38},
		{0.5, 0, 0},
		{2.5, 0, 2},
		{2.675, 2, 2.67}, // stored just below 2.675
	}
	for _, tt := range ties {
		if got := round(tt.in, tt.places); got != tt.want {
			t.Errorf("round(%v, %d) = %v, want %v", tt.in, tt.places, got, tt.want)
		}
	}
}

func TestAnalyzeFillerRateTie(t *testing.T) {
	m := Analyze(evenWords("um", "we", "should", "look", "at", "the", "next", "slide"))
	if m.FillerCount != 1 {
		t.Fatalf("Expected 1 filler, got %d", m.FillerCount)
	}
	if m.FillerRate != 0.12 {
		t.Errorf("Expected filler rate 0.12 for 1/8, got %v", m.FillerRate)
	}
	if m.FluencyScore != 3.0 {
		t.Errorf("Expected score 3.0, got %v", m.FluencyScore)
	}
}
