package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvFiles are loaded into the process environment before configuration is
// read. Missing files are ignored and existing variables are not replaced.
var EnvFiles = []string{".env"}

// ErrMissingAPIKey is returned by RequireAPIKey when no speech credential
// is configured.
var ErrMissingAPIKey = errors.New("speech api key is not configured (set GOOGLE_API_KEY)")

type Audio struct {
	MaxUploadBytes int64 `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

type Speech struct {
	Endpoint             string   `yaml:"endpoint" mapstructure:"endpoint"`
	APIKey               string   `yaml:"api_key" mapstructure:"api_key"`
	Language             string   `yaml:"language" mapstructure:"language"`
	AlternativeLanguages []string `yaml:"alternative_languages" mapstructure:"alternative_languages"`
	Punctuation          bool     `yaml:"punctuation" mapstructure:"punctuation"`
	Timeout              int      `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxRetries           int      `yaml:"max_retries" mapstructure:"max_retries"`
	MaxConcurrent        int      `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

type Server struct {
	Address         string   `yaml:"address" mapstructure:"address"`
	Port            int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins  []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ReadTimeout     int      `yaml:"read_timeout" mapstructure:"read_timeout"`         // seconds
	WriteTimeout    int      `yaml:"write_timeout" mapstructure:"write_timeout"`       // seconds
	ShutdownTimeout int      `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"` // seconds
}

type Root struct {
	Pipeline struct {
		Name      string `yaml:"name" mapstructure:"name"`
		Version   string `yaml:"version" mapstructure:"version"`
		LogLvl    string `yaml:"log_level" mapstructure:"log_level"`
		LogFormat string `yaml:"log_format" mapstructure:"log_format"`
	} `yaml:"pipeline" mapstructure:"pipeline"`
	Audio  Audio  `yaml:"audio" mapstructure:"audio"`
	Speech Speech `yaml:"speech" mapstructure:"speech"`
	Server Server `yaml:"server" mapstructure:"server"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.name", "vocalize")
	v.SetDefault("pipeline.version", "1.0.0")
	v.SetDefault("pipeline.log_level", "info")
	v.SetDefault("pipeline.log_format", "text")

	v.SetDefault("audio.max_upload_bytes", 32<<20)

	v.SetDefault("speech.endpoint", "https://speech.googleapis.com")
	v.SetDefault("speech.api_key", "")
	v.SetDefault("speech.language", "auto")
	v.SetDefault("speech.alternative_languages", []string{"pa-IN", "hi-IN"})
	v.SetDefault("speech.punctuation", true)
	v.SetDefault("speech.timeout", 60)
	v.SetDefault("speech.max_retries", 2)
	v.SetDefault("speech.max_concurrent", 8)

	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "https://vocalize-demo.vercel.app"})
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("server.shutdown_timeout", 10)
}

// Load reads configuration from path, or when path is empty from the first
// of config/$CONFIG_ENV/config.yaml and config.yaml that exists. Defaults
// apply when no file is found. GOOGLE_API_KEY and VOCALIZE_<SECTION>_<KEY>
// variables override file values.
func Load(path string) (*Root, error) {
	for _, p := range EnvFiles {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err != nil {
				return nil, fmt.Errorf("load env file %s: %w", p, err)
			}
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("VOCALIZE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("speech.api_key", "VOCALIZE_SPEECH_API_KEY", "GOOGLE_API_KEY"); err != nil {
		return nil, err
	}

	if path == "" {
		path = guess()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func guess() string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	for _, p := range []string{
		filepath.Join("config", env, "config.yaml"),
		"config.yaml",
	} {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}

// Validate checks every section.
func (c *Root) Validate() error {
	if err := validateLogging(c.Pipeline.LogLvl, c.Pipeline.LogFormat); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}
	if c.Audio.MaxUploadBytes <= 0 {
		return fmt.Errorf("audio config: max_upload_bytes must be positive, got %d", c.Audio.MaxUploadBytes)
	}
	if err := c.Speech.Validate(); err != nil {
		return fmt.Errorf("speech config: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	return nil
}

func validateLogging(level, format string) error {
	switch level {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level must be one of [trace, debug, info, warn, error], got '%s'", level)
	}
	switch format {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be 'text' or 'json', got '%s'", format)
	}
	return nil
}

func (s *Speech) Validate() error {
	if s.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	if s.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}
	if s.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", s.Timeout)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", s.MaxRetries)
	}
	if s.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", s.MaxConcurrent)
	}
	return nil
}

func (s *Server) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.ReadTimeout < 1 || s.WriteTimeout < 1 || s.ShutdownTimeout < 1 {
		return fmt.Errorf("timeouts must be at least 1 second")
	}
	return nil
}

// RequireAPIKey fails when the speech collaborator has no credential.
func (c *Root) RequireAPIKey() error {
	if strings.TrimSpace(c.Speech.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (s Server) Addr() string { return fmt.Sprintf("%s:%d", s.Address, s.Port) }

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }
