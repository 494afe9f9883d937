// Package cmd holds the vocalize command line.
package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vocalize/fluency-pipeline/clients"
	"github.com/vocalize/fluency-pipeline/config"
	"github.com/vocalize/fluency-pipeline/logging"
	"github.com/vocalize/fluency-pipeline/metrics"
)

type options struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "vocalize",
		Short:         "Speech fluency analysis pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&o.configPath, "config", "", "path to config.yaml (default: config/$CONFIG_ENV/config.yaml or ./config.yaml)")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "override pipeline.log_level")
	root.PersistentFlags().StringVar(&o.logFormat, "log-format", "", "override pipeline.log_format (text|json)")

	root.AddCommand(
		newServeCommand(o),
		newAnalyzeCommand(o),
		newConvertCommand(o),
		newScoreCommand(o),
	)
	return root
}

// Execute runs the command line.
func Execute() error {
	return NewRootCommand().Execute()
}

// load reads the configuration and builds the logger, applying flag
// overrides.
func (o *options) load() (*config.Root, *logrus.Logger, error) {
	c, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		c.Pipeline.LogLvl = o.logLevel
	}
	if o.logFormat != "" {
		c.Pipeline.LogFormat = o.logFormat
	}
	return c, logging.New(c.Pipeline.LogLvl, c.Pipeline.LogFormat), nil
}

func newSpeech(c *config.Root, log *logrus.Logger, m *metrics.Metrics) (*clients.Speech, error) {
	if err := c.RequireAPIKey(); err != nil {
		return nil, err
	}
	s, err := clients.NewSpeech(clients.NewHTTP(config.DurSeconds(c.Speech.Timeout)), clients.SpeechConfig{
		Endpoint:             c.Speech.Endpoint,
		APIKey:               c.Speech.APIKey,
		Language:             c.Speech.Language,
		AlternativeLanguages: c.Speech.AlternativeLanguages,
		Punctuation:          c.Speech.Punctuation,
		MaxRetries:           c.Speech.MaxRetries,
		MaxConcurrent:        c.Speech.MaxConcurrent,
	})
	if err != nil {
		return nil, err
	}
	entry := logging.Component(log, "speech")
	s.OnRetry = func(attempt int, err error) {
		entry.WithError(err).WithField("attempt", attempt).Warn("retrying speech request")
		if m != nil {
			m.RecordTranscriptionRetry()
		}
	}
	return s, nil
}
