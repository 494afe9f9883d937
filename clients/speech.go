package clients

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// AutoLanguage asks the recognizer to pick between the primary language and
// the configured alternatives.
const AutoLanguage = "auto"

const autoPrimaryLanguage = "en-US"

// ErrNoResults is returned when the recognizer produced no transcript.
var ErrNoResults = errors.New("no transcription results returned")

// StatusError is a non-2xx response from the recognizer.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("speech api request failed: %d: %s", e.Code, e.Body)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// SpeechConfig configures the Google Speech-to-Text REST client. The API key
// is passed in explicitly.
type SpeechConfig struct {
	Endpoint             string
	APIKey               string
	Language             string
	AlternativeLanguages []string
	Punctuation          bool
	MaxRetries           int
	MaxConcurrent        int
}

// TimedWord is a recognized word with offsets in seconds.
type TimedWord struct {
	Word  string
	Start float64
	End   float64
}

// Transcript is the flattened recognizer output.
type Transcript struct {
	Text     string
	Language string
	Words    []TimedWord
}

// Speech calls speech:recognize for LINEAR16 16 kHz audio.
type Speech struct {
	http *HTTP
	cfg  SpeechConfig
	sem  chan struct{}

	// Backoff returns the wait before retry attempt n (n >= 1).
	Backoff func(attempt int) time.Duration
	// OnRetry, when set, is called before every retry.
	OnRetry func(attempt int, err error)
}

func NewSpeech(h *HTTP, cfg SpeechConfig) (*Speech, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key cannot be empty")
	}
	if cfg.Language == "" {
		cfg.Language = AutoLanguage
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}
	if h == nil {
		h = NewHTTP(0)
	}
	return &Speech{
		http:    h,
		cfg:     cfg,
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		Backoff: exponentialBackoff,
	}, nil
}

func exponentialBackoff(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt-1)) * time.Second
	if d > 30*time.Second || d <= 0 {
		d = 30 * time.Second
	}
	return d
}

type recognitionConfig struct {
	Encoding                   string   `json:"encoding"`
	SampleRateHertz            int      `json:"sampleRateHertz"`
	LanguageCode               string   `json:"languageCode"`
	AlternativeLanguageCodes   []string `json:"alternativeLanguageCodes,omitempty"`
	EnableWordTimeOffsets      bool     `json:"enableWordTimeOffsets"`
	EnableAutomaticPunctuation bool     `json:"enableAutomaticPunctuation"`
}

type recognizeReq struct {
	Config recognitionConfig `json:"config"`
	Audio  struct {
		Content string `json:"content"`
	} `json:"audio"`
}

type wordInfo struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Word      string `json:"word"`
}

type recognizeResp struct {
	Results []struct {
		Alternatives []struct {
			Transcript string     `json:"transcript"`
			Confidence float64    `json:"confidence"`
			Words      []wordInfo `json:"words"`
		} `json:"alternatives"`
		LanguageCode string `json:"languageCode"`
	} `json:"results"`
}

func (s *Speech) request(wav []byte, language string) recognizeReq {
	if language == "" {
		language = s.cfg.Language
	}
	rc := recognitionConfig{
		Encoding:                   "LINEAR16",
		SampleRateHertz:            16000,
		LanguageCode:               language,
		EnableWordTimeOffsets:      true,
		EnableAutomaticPunctuation: s.cfg.Punctuation,
	}
	if language == AutoLanguage {
		rc.LanguageCode = autoPrimaryLanguage
		rc.AlternativeLanguageCodes = s.cfg.AlternativeLanguages
	}
	var req recognizeReq
	req.Config = rc
	req.Audio.Content = base64.StdEncoding.EncodeToString(wav)
	return req
}

// Recognize transcribes a normalized WAV buffer. An empty language uses the
// configured one; "auto" sends en-US with the alternative languages.
// 429, 5xx and transport failures are retried with exponential backoff.
func (s *Speech) Recognize(ctx context.Context, wav []byte, language string) (*Transcript, error) {
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	body, err := json.Marshal(s.request(wav, language))
	if err != nil {
		return nil, fmt.Errorf("speech encode: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if s.OnRetry != nil {
				s.OnRetry(attempt, lastErr)
			}
			select {
			case <-time.After(s.Backoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		out, err := s.do(ctx, body)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			break
		}
	}
	return nil, lastErr
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, ErrNoResults) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var de *decodeError
	return !errors.As(err, &de)
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "speech decode: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func (s *Speech) do(ctx context.Context, body []byte) (*Transcript, error) {
	u := strings.TrimRight(s.cfg.Endpoint, "/") + "/v1/speech:recognize?" + url.Values{"key": {s.cfg.APIKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var out recognizeResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &decodeError{err: err}
	}
	return flatten(out)
}

// flatten joins the first alternative of every result.
func flatten(r recognizeResp) (*Transcript, error) {
	if len(r.Results) == 0 {
		return nil, ErrNoResults
	}

	var (
		text []string
		tr   Transcript
	)
	for _, res := range r.Results {
		if tr.Language == "" {
			tr.Language = res.LanguageCode
		}
		if len(res.Alternatives) == 0 {
			continue
		}
		alt := res.Alternatives[0]
		if t := strings.TrimSpace(alt.Transcript); t != "" {
			text = append(text, t)
		}
		for _, w := range alt.Words {
			start, err := parseOffset(w.StartTime)
			if err != nil {
				return nil, &decodeError{err: err}
			}
			end, err := parseOffset(w.EndTime)
			if err != nil {
				return nil, &decodeError{err: err}
			}
			tr.Words = append(tr.Words, TimedWord{Word: w.Word, Start: start, End: end})
		}
	}
	tr.Text = strings.Join(text, " ")
	return &tr, nil
}

// parseOffset reads a protobuf JSON duration such as "1.300s".
func parseOffset(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
	if err != nil {
		return 0, fmt.Errorf("bad time offset %q: %w", s, err)
	}
	return v, nil
}
