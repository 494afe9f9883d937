package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vocalize/fluency-pipeline/orchestrator"
)

func newConvertCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <in.wav> [out.wav]",
		Short: "Normalize a WAV file to 16 kHz mono 16-bit",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, log, err := o.load()
			if err != nil {
				return err
			}
			in := args[0]
			out := convertedPath(in)
			if len(args) == 2 {
				out = args[1]
			}

			raw, err := os.ReadFile(in)
			if err != nil {
				return err
			}
			p := orchestrator.NewPipeline(c, nil, log, nil)
			wav, f, err := p.Normalize(raw)
			if err != nil {
				return fmt.Errorf("convert %s: %w", in, err)
			}
			if err := os.WriteFile(out, wav, 0o644); err != nil {
				return err
			}

			log.WithFields(logrus.Fields{
				"in":          in,
				"out":         out,
				"sample_rate": f.SampleRate,
				"channels":    f.Channels,
				"width":       f.SampleWidth,
			}).Info("audio converted")
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

// convertedPath returns <dir>/<base>_converted.wav for in.
func convertedPath(in string) string {
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	return filepath.Join(filepath.Dir(in), base+"_converted.wav")
}
