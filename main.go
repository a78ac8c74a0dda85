package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"vantage-go/internal/config"
	"vantage-go/internal/database"
	logger "vantage-go/internal/logging"
	"vantage-go/internal/models"
	"vantage-go/internal/repository"
	"vantage-go/internal/router"
	"vantage-go/internal/services"
	"vantage-go/internal/storage"
	"vantage-go/internal/uploader"
)

func main() {
	// Initialize Logger
	log, err := logger.Init(".")
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	// Initialize Configuration
	if err := config.Init(".", log); err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize Database
	database.Init(log)

	// Load the personality item bank at startup
	bank, err := models.LoadItemBank(config.Conf.Assessment.ItemBankPath)
	if err != nil {
		log.Fatal("Failed to load item bank", zap.Error(err))
	}
	log.Info("Item bank loaded", zap.Int("items", bank.Size()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Media storage and the background upload queue
	signer, err := storage.NewBucketSigner(ctx, config.Conf.Storage.Bucket,
		config.Conf.Storage.SignedExpiry, log)
	if err != nil {
		log.Fatal("Failed to initialize media storage", zap.Error(err))
	}

	up := config.Conf.Upload
	queue := uploader.New(uploader.Config{
		MaxAttempts: up.MaxAttempts,
		BackoffBase: up.BackoffBase,
		StallWindow: up.StallWindow,
		MinTimeout:  up.MinTimeout,
		Throughput:  up.ThroughputFloor,
		ExtraTime:   up.ExtraTimeout,
	}, signer, uploader.NewTransport(), repository.UploadWrites{}, log)
	queue.Start(ctx)

	// Background sweep of reservations whose upload never confirmed
	services.NewSweeper(log).Start(ctx)

	// Setup router, passing the logger to it
	r := router.Setup(log, bank, queue, signer)

	// Start the Gin server
	port := ":" + config.Conf.Server.Port
	log.Info("Server listening on http://localhost" + port)
	if err := r.Run(port); err != nil {
		log.Fatal("Failed to run Gin server", zap.Error(err))
	}
}
