package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vocalize/fluency-pipeline/fluency"
	"github.com/vocalize/fluency-pipeline/orchestrator"
)

// demoWords is a short, slightly fast utterance with no fillers.
var demoWords = []fluency.Word{
	{Word: "I", StartTime: 0.1, EndTime: 0.2},
	{Word: "believe", StartTime: 0.3, EndTime: 0.6},
	{Word: "the", StartTime: 0.7, EndTime: 0.9},
	{Word: "market", StartTime: 1.0, EndTime: 1.4},
	{Word: "is", StartTime: 1.5, EndTime: 1.6},
	{Word: "growing", StartTime: 1.7, EndTime: 2.2},
}

func newScoreCommand(o *options) *cobra.Command {
	var (
		demo   bool
		format string
	)
	cmd := &cobra.Command{
		Use:   "score [words.json|words.yaml|-]",
		Short: "Score a timed word list without transcribing",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var words []fluency.Word
			switch {
			case demo:
				words = demoWords
			case len(args) == 1:
				data, err := readInput(cmd, args[0])
				if err != nil {
					return err
				}
				if words, err = parseWords(data); err != nil {
					return err
				}
			default:
				return errors.New("usage: vocalize score <words file> or vocalize score --demo")
			}

			c, log, err := o.load()
			if err != nil {
				return err
			}
			m := orchestrator.NewPipeline(c, nil, log, nil).Score(words)
			return orchestrator.WriteReport(cmd.OutOrStdout(), format, m)
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "score a built-in sample utterance")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

// parseWords accepts a list of words or a mapping with a "words" key, as
// JSON or YAML.
func parseWords(data []byte) ([]fluency.Word, error) {
	var words []fluency.Word
	if err := yaml.Unmarshal(data, &words); err == nil {
		return words, nil
	}
	var wrapped struct {
		Words []fluency.Word `yaml:"words"`
	}
	if err := yaml.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse words: %w", err)
	}
	return wrapped.Words, nil
}
