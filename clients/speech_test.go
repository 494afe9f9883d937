package clients

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const twoResults = `{
  "results": [
    {"alternatives": [{"transcript": "I believe", "confidence": 0.9,
      "words": [{"startTime": "0.100s", "endTime": "0.200s", "word": "I"},
                {"startTime": "0.300s", "endTime": "0.600s", "word": "believe"}]}],
     "languageCode": "en-us"},
    {"alternatives": [{"transcript": " the market ",
      "words": [{"startTime": "0.700s", "endTime": "0.900s", "word": "the"},
                {"endTime": "1.400s", "word": "market"}]}]}
  ]
}`

func newTestSpeech(t *testing.T, url string, retries int) *Speech {
	t.Helper()
	s, err := NewSpeech(NewHTTP(5*time.Second), SpeechConfig{
		Endpoint:             url,
		APIKey:               "secret",
		Language:             AutoLanguage,
		AlternativeLanguages: []string{"pa-IN", "hi-IN"},
		Punctuation:          true,
		MaxRetries:           retries,
	})
	if err != nil {
		t.Fatalf("NewSpeech failed: %v", err)
	}
	s.Backoff = func(int) time.Duration { return 0 }
	return s
}

func TestRecognizeRequestAndFlatten(t *testing.T) {
	var got recognizeReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speech:recognize" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "secret" {
			t.Errorf("Expected key query parameter, got %q", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(twoResults))
	}))
	defer srv.Close()

	tr, err := newTestSpeech(t, srv.URL, 0).Recognize(context.Background(), []byte("RIFFdata"), "")
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}

	if got.Config.Encoding != "LINEAR16" || got.Config.SampleRateHertz != 16000 {
		t.Errorf("Expected LINEAR16 at 16000 Hz, got %+v", got.Config)
	}
	if got.Config.LanguageCode != "en-US" || len(got.Config.AlternativeLanguageCodes) != 2 {
		t.Errorf("Expected auto language expansion, got %+v", got.Config)
	}
	if !got.Config.EnableWordTimeOffsets || !got.Config.EnableAutomaticPunctuation {
		t.Errorf("Expected word offsets and punctuation enabled, got %+v", got.Config)
	}
	if dec, _ := base64.StdEncoding.DecodeString(got.Audio.Content); string(dec) != "RIFFdata" {
		t.Errorf("Expected base64 audio content, got %q", got.Audio.Content)
	}

	if tr.Text != "I believe the market" {
		t.Errorf("Expected joined transcript, got %q", tr.Text)
	}
	if tr.Language != "en-us" {
		t.Errorf("Expected language en-us, got %q", tr.Language)
	}
	if len(tr.Words) != 4 {
		t.Fatalf("Expected 4 words, got %d", len(tr.Words))
	}
	if w := tr.Words[1]; w.Word != "believe" || w.Start != 0.3 || w.End != 0.6 {
		t.Errorf("Unexpected second word %+v", w)
	}
	if w := tr.Words[3]; w.Start != 0 || w.End != 1.4 {
		t.Errorf("Expected missing start time to read as 0, got %+v", w)
	}
}

func TestRecognizeExplicitLanguage(t *testing.T) {
	var got recognizeReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(twoResults))
	}))
	defer srv.Close()

	if _, err := newTestSpeech(t, srv.URL, 0).Recognize(context.Background(), nil, "hi-IN"); err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if got.Config.LanguageCode != "hi-IN" || got.Config.AlternativeLanguageCodes != nil {
		t.Errorf("Expected hi-IN without alternatives, got %+v", got.Config)
	}
}

func TestRecognizeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(twoResults))
	}))
	defer srv.Close()

	s := newTestSpeech(t, srv.URL, 3)
	var retries int
	s.OnRetry = func(int, error) { retries++ }

	if _, err := s.Recognize(context.Background(), nil, ""); err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if calls.Load() != 3 || retries != 2 {
		t.Errorf("Expected 3 calls and 2 retries, got %d and %d", calls.Load(), retries)
	}
}

func TestRecognizeDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad audio"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestSpeech(t, srv.URL, 3).Recognize(context.Background(), nil, "")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 StatusError, got %v", err)
	}
	if se.Retryable() {
		t.Error("Expected 400 to be non-retryable")
	}
	if calls.Load() != 1 {
		t.Errorf("Expected a single call, got %d", calls.Load())
	}
}

func TestRecognizeGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestSpeech(t, srv.URL, 2).Recognize(context.Background(), nil, "")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 StatusError, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls.Load())
	}
}

func TestRecognizeNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestSpeech(t, srv.URL, 2).Recognize(context.Background(), nil, "")
	if !errors.Is(err, ErrNoResults) {
		t.Errorf("Expected ErrNoResults, got %v", err)
	}
}

func TestRecognizeContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := newTestSpeech(t, srv.URL, 5)
	s.Backoff = func(int) time.Duration { return time.Hour }

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := s.Recognize(ctx, nil, ""); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestNewSpeechValidation(t *testing.T) {
	if _, err := NewSpeech(nil, SpeechConfig{APIKey: "k"}); err == nil {
		t.Error("Expected error for empty endpoint")
	}
	if _, err := NewSpeech(nil, SpeechConfig{Endpoint: "http://x"}); err == nil {
		t.Error("Expected error for empty API key")
	}
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		err  bool
	}{
		{"1.300s", 1.3, false},
		{"2s", 2, false},
		{"", 0, false},
		{"0.5", 0.5, false},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parseOffset(tt.in)
		if (err != nil) != tt.err || got != tt.want {
			t.Errorf("parseOffset(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestExponentialBackoff(t *testing.T) {
	if exponentialBackoff(1) != time.Second || exponentialBackoff(3) != 4*time.Second {
		t.Error("Expected 1s, 2s, 4s... backoff")
	}
	if exponentialBackoff(10) != 30*time.Second {
		t.Errorf("Expected backoff capped at 30s, got %v", exponentialBackoff(10))
	}
}
