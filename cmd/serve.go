package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/logger"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/queue"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "listen address (default :8080)")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-analyzer server", zap.String("version", version))

	comps, err := newComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the analyzer", zap.Error(err))
	}

	reports, closeReports, err := openReports(ctx, config.Database, logger)
	if err != nil {
		logger.Fatal("opening the report store", zap.Error(err))
	}
	defer closeReports()

	deps := server.Deps{
		Analyzer: comps.analyzer,
		Roles:    comps.catalog,
		Reports:  reports,
		Logger:   logger,
	}
	if comps.storage != nil {
		deps.Uploads = comps.storage
	} else {
		logger.Warn("no storage bucket configured, uploads and analyze by key are unavailable")
	}

	if config.Queue.URL != "" {
		broker, err := queue.Dial(ctx, queueConfig(config.Queue), logger)
		if err != nil {
			logger.Fatal("connecting to the queue", zap.Error(err))
		}
		defer broker.Close()
		deps.Queue = broker
	}

	srv, err := server.New(server.Config{
		Listen:       config.Server.Listen,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
	}, deps)
	if err != nil {
		logger.Fatal("building the server", zap.Error(err))
	}

	if err := srv.Run(ctx); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}
	logger.Info("server stopped")
}

func queueConfig(cfg *QueueConfig) queue.Config {
	return queue.Config{
		URL:             cfg.URL,
		Queue:           cfg.Name,
		UpdatesExchange: cfg.UpdatesExchange,
		Workers:         cfg.Workers,
		DialAttempts:    cfg.DialAttempts,
	}
}
