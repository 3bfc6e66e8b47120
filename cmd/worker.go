package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/logger"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/queue"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume queued analyses from RabbitMQ",
	Run: func(_ *cobra.Command, _ []string) {
		work()
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().IntP("workers", "w", 0, "number of concurrent consumers (default 3)")
	viper.BindPFlag("queue.workers", workerCmd.Flags().Lookup("workers"))
}

func work() {
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
	if config.Queue.URL == "" {
		logger.Fatal("queue.url is required for the worker")
	}

	comps, err := newComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the analyzer", zap.Error(err))
	}
	if comps.storage == nil {
		logger.Fatal("storage.bucket is required for the worker")
	}

	reports, closeReports, err := openReports(ctx, config.Database, logger)
	if err != nil {
		logger.Fatal("opening the report store", zap.Error(err))
	}
	defer closeReports()

	broker, err := queue.Dial(ctx, queueConfig(config.Queue), logger)
	if err != nil {
		logger.Fatal("connecting to the queue", zap.Error(err))
	}
	defer broker.Close()

	handler := queue.NewHandler(comps.analyzer, reports, broker, logger)

	logger.Info("starting queue workers",
		zap.String("version", version),
		zap.String("queue", config.Queue.Name),
		zap.Int("workers", config.Queue.Workers),
	)

	if err := broker.Consume(ctx, handler); err != nil {
		logger.Fatal("consuming", zap.Error(err))
	}
	logger.Info("workers stopped")
}
