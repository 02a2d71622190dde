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

	"github.com/redis/go-redis/v9"

	"github.com/KentSpendy/BukCare/internal/doctor"
	"github.com/KentSpendy/BukCare/internal/gateway"
	"github.com/KentSpendy/BukCare/internal/iam"
	"github.com/KentSpendy/BukCare/internal/scheduling"
	"github.com/KentSpendy/BukCare/pkg/config"
	"github.com/KentSpendy/BukCare/pkg/database"
	"github.com/KentSpendy/BukCare/pkg/logger"
	"github.com/KentSpendy/BukCare/pkg/monitoring"
)

const serviceName = "clinic-server"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg.LogLevel)
	appLogger.WithComponent(serviceName).Info("Starting clinic server")

	// Database
	db, err := database.NewConnection(&cfg.Database, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.CreateSchema(ctx); err != nil {
		cancel()
		appLogger.WithError(err).Fatal("Failed to create database schema")
	}
	cancel()

	// Redis backs on-call presence
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	defer redisClient.Close()

	// Monitoring
	metrics := monitoring.NewMetricsCollector(serviceName)
	health := monitoring.NewHealthManager(serviceName, "1.0.0")
	health.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(db.DB))
	health.RegisterChecker("redis", monitoring.NewRedisHealthChecker(redisClient))

	// Repositories
	userRepo := iam.NewUserRepository(db, appLogger)
	schedulingRepo := scheduling.NewRepository(db, appLogger)

	// Services
	iamService := iam.NewService(cfg, appLogger, userRepo, iam.NewPasswordManager(), metrics)
	schedulingService := scheduling.NewService(cfg, appLogger, schedulingRepo, metrics)
	doctorService := doctor.NewService(cfg, appLogger, userRepo, schedulingRepo,
		doctor.NewMediaClient(&cfg.Media, appLogger),
		doctor.NewRedisPresenceStore(redisClient),
		metrics)

	// HTTP handlers
	iamHandlers := iam.NewHandlers(iamService, appLogger)
	schedulingHandlers := scheduling.NewHandlers(schedulingService, appLogger)
	doctorHandlers := doctor.NewHandlers(doctorService, cfg, appLogger)

	gw := gateway.New(cfg, appLogger, iamService, metrics, health)
	router := gw.Router(iamHandlers, schedulingHandlers, doctorHandlers)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		appLogger.WithField("addr", server.Addr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down clinic server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Failed to shut down gracefully")
		os.Exit(1)
	}

	appLogger.Info("Clinic server stopped")
}
