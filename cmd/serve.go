package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vocalize/fluency-pipeline/config"
	"github.com/vocalize/fluency-pipeline/metrics"
	"github.com/vocalize/fluency-pipeline/orchestrator"
	"github.com/vocalize/fluency-pipeline/server"
)

func newServeCommand(o *options) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP analysis API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, log, err := o.load()
			if err != nil {
				return err
			}
			if port > 0 {
				c.Server.Port = port
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m := metrics.NewMetrics(reg)

			stt, err := newSpeech(c, log, m)
			if err != nil {
				return err
			}

			log.WithFields(logrus.Fields{
				"service":  c.Pipeline.Name,
				"version":  c.Pipeline.Version,
				"address":  c.Server.Addr(),
				"language": c.Speech.Language,
				"origins":  c.Server.AllowedOrigins,
			}).Info("vocalize starting")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p := orchestrator.NewPipeline(c, stt, log, m)
			srv := server.NewHTTPServer(c, p, log, m, reg)
			if err := srv.Start(); err != nil {
				return err
			}

			<-ctx.Done()
			log.Info("shutdown signal received")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DurSeconds(c.Server.ShutdownTimeout))
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				log.WithError(err).Error("error stopping HTTP server")
				return err
			}
			log.Info("vocalize stopped")
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "override server.port")
	return cmd
}
