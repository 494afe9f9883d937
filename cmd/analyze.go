package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/vocalize/fluency-pipeline/orchestrator"
)

func newAnalyzeCommand(o *options) *cobra.Command {
	var (
		audioPath string
		language  string
		format    string
		outPath   string
	)
	cmd := &cobra.Command{
		Use:   "analyze [--audio path | path]",
		Short: "Transcribe a WAV file and score its fluency",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := audioPath
			if in == "" && len(args) > 0 {
				in = args[0]
			}
			if in == "" {
				return errors.New("usage: vocalize analyze [--audio path] <path/to/audio.wav>")
			}

			c, log, err := o.load()
			if err != nil {
				return err
			}
			stt, err := newSpeech(c, log, nil)
			if err != nil {
				return err
			}

			p := orchestrator.NewPipeline(c, stt, log, nil)
			res, err := p.RunFile(cmd.Context(), in, language)
			if err != nil {
				return err
			}
			if outPath != "" {
				return orchestrator.WriteReportFile(outPath, format, res)
			}
			return orchestrator.WriteReport(cmd.OutOrStdout(), format, res)
		},
	}
	cmd.Flags().StringVar(&audioPath, "audio", "", "path to a WAV file")
	cmd.Flags().StringVar(&language, "language", "", "BCP-47 language or \"auto\" (default from config)")
	cmd.Flags().StringVar(&format, "format", "", "report format: json or yaml (default json, or from --out extension)")
	cmd.Flags().StringVar(&outPath, "out", "", "write the report to this file instead of stdout")
	return cmd
}
