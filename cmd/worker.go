package cmd

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ingestd/internal/app"
	"ingestd/internal/worker"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background ingestion worker",
	Long:  `Starts the Asynq worker process that executes ingestion pipelines.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get application context: %w", err)
		}

		if err := runWorker(appInstance); err != nil {
			log.Errorf("Worker exited with error: %v", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

// runWorker initializes and runs the Asynq worker server.
func runWorker(appInstance *app.App) error {
	cfg := appInstance.Config

	redisOpts := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues:      cfg.Worker.Queues,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Errorf("Asynq task failed: type=%s payload=%s err=%v",
					task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	worker.RegisterHandlers(mux, worker.IngestDeps{
		OCR:         appInstance.OCRProvider,
		Embedder:    appInstance.EmbeddingProvider,
		VectorStore: appInstance.VectorStore,
		ObjectStore: appInstance.ObjectStore,
		Analytics:   appInstance.AnalyticsStore,
		Bus:         appInstance.Bus,
		Registry:    appInstance.Registry,
		Settings:    appInstance.Settings,
	})

	log.Printf("Starting ingestion worker (concurrency=%d)", cfg.Worker.Concurrency)
	if err := srv.Run(mux); err != nil {
		return fmt.Errorf("asynq server error: %w", err)
	}
	return nil
}
