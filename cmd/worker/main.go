package main

import (
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/erickcastrillo/diquis/internal/config"
	"github.com/erickcastrillo/diquis/internal/database"
	"github.com/erickcastrillo/diquis/internal/directory"
	"github.com/erickcastrillo/diquis/internal/identity"
	"github.com/erickcastrillo/diquis/internal/logger"
	"github.com/erickcastrillo/diquis/internal/metrics"
	"github.com/erickcastrillo/diquis/internal/notify"
	"github.com/erickcastrillo/diquis/internal/provisioning"
	"github.com/erickcastrillo/diquis/internal/queue"
)

func main() {
	// Load configuration
	appConfig, err := config.Load("diquis-worker")
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       appConfig.Log.Level,
		Environment: appConfig.Server.Env,
		ServiceName: appConfig.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting diquis-worker", appConfig.LogConfig()...)

	// Initialize Prometheus metrics
	metrics.InitMetrics()

	// Database manager; the worker reuses the API's base schema and opens
	// tenant pools on demand while provisioning.
	manager := database.NewManager(&appConfig.DB, database.PostgresDialector)
	defer manager.Close()

	if _, err := manager.Pool(appConfig.DB.DSN()); err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Wire the provisioning worker
	dir := directory.New(manager)
	ids := identity.NewService(manager)
	notifier := notify.NewRedisNotifier(appConfig.Redis)
	worker := provisioning.NewWorker(manager, dir, ids, notifier, &appConfig.DB, &appConfig.Server)

	registry := queue.NewHandlersRegistry()
	registry.Register(queue.TypeTenantProvision, worker.ProcessProvisionTask)
	registry.Register(queue.TypeTenantUpdate, worker.ProcessUpdateTask)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     appConfig.Redis.Addr,
			Password: appConfig.Redis.Password,
			DB:       appConfig.Redis.DB,
		},
		asynq.Config{
			Concurrency: appConfig.Worker.Concurrency,
			Queues: map[string]int{
				queue.QueueProvisioning: 10,
				"default":               1,
			},
		},
	)

	log.Info("Worker ready",
		zap.String("queue", queue.QueueProvisioning),
		zap.Int("concurrency", appConfig.Worker.Concurrency),
	)
	if err := srv.Run(registry.Mux()); err != nil {
		log.Fatal("Worker error", zap.Error(err))
	}
}
