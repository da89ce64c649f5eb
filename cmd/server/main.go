package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sqlgym/internal/api"
	"sqlgym/internal/app/sandbox"
	"sqlgym/internal/app/service"
	"sqlgym/internal/app/validator"
	"sqlgym/internal/app/worker"
	"sqlgym/internal/domain/repository"
	"sqlgym/internal/platform/config"
	"sqlgym/internal/platform/database"
	"sqlgym/internal/platform/queue"
)

func main() {
	// 1. Load Configuration
	config.Load()
	fmt.Println("Configuration loaded.")

	// 2. Initialize Database
	database.Connect()
	defer database.Close()
	database.Migrate()
	fmt.Println("Database connected.")

	// 3. Initialize Redis
	queue.ConnectRedis()
	defer queue.CloseRedis()
	fmt.Println("Redis connected.")

	// 4. Initialize Repositories
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	problemRepo := repository.NewPgProblemRepository(database.DB)
	resultRepo := repository.NewPgExecutionResultRepository(database.DB)
	fallbackRepo := repository.NewPgFallbackJobRepository(database.DB)

	// 5. Initialize queues and liveness
	primaryQueue := queue.NewRedisQueue(queue.RDB, config.AppConfig.SubmissionQueueName)
	fallbackQueue := queue.NewFallbackQueue(fallbackRepo)
	heartbeats := queue.NewHeartbeatStore(queue.RDB, config.AppConfig.LivenessWindow)

	// 6. Initialize execution path and services
	executor := sandbox.NewExecutor(config.AppConfig.ResultRowCap)
	processor := worker.NewProcessor(submissionRepo, problemRepo, resultRepo, fallbackRepo, executor, validator.New())

	dispatcher := service.NewDispatcherService(
		submissionRepo, problemRepo, primaryQueue, fallbackQueue, heartbeats, processor,
		service.DispatcherConfig{
			MaxSQLLength:          config.AppConfig.MaxSQLLength,
			EnqueueTimeout:        config.AppConfig.EnqueueTimeout,
			DefaultRuntimeLimitMs: config.AppConfig.DefaultRuntimeLimitMs,
			DefaultMemoryLimitKb:  config.AppConfig.DefaultMemoryLimitKb,
		},
	)
	resultService := service.NewResultService(submissionRepo, resultRepo)

	// 7. Start Worker Pool and Recovery Sweeper
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	pool := worker.NewPool(
		config.AppConfig.WorkerPoolSize,
		primaryQueue, fallbackQueue, processor, heartbeats,
		worker.Config{
			PollInterval:      config.AppConfig.WorkerPollInterval,
			HeartbeatInterval: config.AppConfig.HeartbeatInterval,
		},
	)
	pool.Start(workerCtx)

	sweeper := worker.NewSweeper(
		primaryQueue, fallbackRepo, resultRepo, processor,
		worker.SweeperConfig{
			Interval: config.AppConfig.SweeperInterval,
			StaleAge: config.AppConfig.FallbackStaleAge,
		},
	)
	go sweeper.Run(workerCtx)

	// 8. Initialize Router & HTTP Server
	router := api.NewRouter(dispatcher, resultService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", config.AppConfig.APIPort, err)
		}
	}()
	log.Println("Server started successfully.")

	<-stop // Wait for interrupt signal

	log.Println("Shutting down server...")
	workerCancel() // Signal workers and sweeper to stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server and workers stopped gracefully.")
}
