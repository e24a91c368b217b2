package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/jobfit/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recommendation HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "listen address (default from server.listen)")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func runServe() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, logger := setup()

	logger.Info("starting the jobfit api", zap.String("version", resolveVersion()))

	d, err := buildDeps(ctx, config, logger, true)
	if err != nil {
		logger.Fatal("building dependencies", zap.Error(err))
	}

	srv := server.New(d.service, d.extractor, server.Options{
		Logger:   logger.Named("http"),
		Gatherer: d.registry,
	})

	if err := srv.Run(ctx, config.Server.Listen); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}

	logger.Info("stopped")
}
