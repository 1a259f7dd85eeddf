// main.go
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"cinema-booking/cmd"
	"cinema-booking/internal/broker"
	"cinema-booking/internal/data/repository"
	"cinema-booking/internal/jobs"
	"cinema-booking/internal/wire"
	"cinema-booking/pkg/database"
	"cinema-booking/pkg/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends := wire.Backends{Clock: utils.SystemClock{}}

	// Postgres holds the catalog and finalized bookings
	if config.Database.Host != "" {
		db, err := database.InitDB(config.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		backends.Repo = repository.NewRepository(db, logger)
		logger.Info("Database connected successfully")
	}

	// Redis backs the price cache and the payment timeout queue
	var timeoutServer *asynq.Server
	if config.Redis.Addr != "" {
		rdb, err := database.InitRedis(config.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without cache and timeout queue", zap.Error(err))
		} else {
			defer rdb.Close()
			backends.Redis = rdb

			redisOpt := database.AsynqRedisOpt(config.Redis)
			client := asynq.NewClient(redisOpt)
			defer client.Close()
			backends.Timeouts = jobs.NewTimeoutQueue(client, logger)
			timeoutServer = jobs.NewServer(redisOpt, logger)
		}
	}

	// RabbitMQ carries booking.paid and booking.anomaly downstream
	if config.AMQP.URL != "" {
		publisher, err := broker.Dial(config.AMQP, backends.Clock, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, booking events go to the log", zap.Error(err))
		} else {
			defer publisher.Close()
			backends.Events = publisher
		}
	}

	// Wire all dependencies
	app := wire.Wiring(backends, config, logger)

	go app.Sweeper.Start(ctx)

	if timeoutServer != nil {
		if err := timeoutServer.Start(app.Jobs.Mux()); err != nil {
			logger.Fatal("Failed to start timeout worker", zap.Error(err))
		}
		defer timeoutServer.Shutdown()
	}

	if err := cmd.APIServer(ctx, app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server error", zap.Error(err))
	}
	logger.Info("Application stopped")
}
