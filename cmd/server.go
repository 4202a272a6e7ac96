package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"GenreFM/logger"
	"GenreFM/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the GenreFM HTTP server",
	Long:  `Start the HTTP server that serves the upload page and the /predict endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			logger.Error("failed to start", logger.ErrorField(err))
			return err
		}
		defer a.Close()

		if cfg.ModelWatch && (cfg.ModelSource == "" || cfg.ModelSource == "file") {
			if err := a.models.Watch(ctx, cfg.ModelPath); err != nil {
				logger.Warn("model watch disabled", logger.ErrorField(err))
			} else {
				logger.Info("watching model artifact", logger.String("path", cfg.ModelPath))
			}
		}

		var objects server.ObjectReader
		if a.store != nil {
			objects = a.store
		}
		h := server.NewAPIHandler(a.pipeline, a.models, a.history, objects, cfg)

		logger.Info("upload page enabled", logger.String("addr", cfg.ServerAddr), logger.String("dir", cfg.WebAppDir))
		return server.New(cfg, h).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
