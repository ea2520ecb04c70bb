package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"todo-webapp/internal/auth"
	"todo-webapp/internal/config"
	"todo-webapp/internal/database"
	"todo-webapp/internal/domain"
	"todo-webapp/internal/repository"
	"todo-webapp/internal/server"
	"todo-webapp/internal/service"
	"todo-webapp/internal/storage"

	"github.com/sirupsen/logrus"
)

func gracefulShutdown(apiServer *http.Server, dbService database.Service, logger *logrus.Logger, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	// Give in-flight requests 5 seconds to finish.
	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	if dbService != nil {
		if err := dbService.Close(); err != nil {
			logger.WithError(err).Error("Error closing database connection pool")
		}
	}

	logger.Info("Server exiting")
	done <- true
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	dbService, err := database.New(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	gormDB := dbService.GetDB()
	if err := gormDB.AutoMigrate(&domain.User{}, &domain.Todo{}); err != nil {
		logger.WithError(err).Fatal("Failed to auto-migrate database")
	}

	blobs, err := storage.NewDiskStore(cfg.StorageDir, cfg.StorageBaseURL)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize blob storage")
	}

	userRepo := repository.NewGormUserRepository(gormDB)
	todoRepo := repository.NewGormTodoRepository(gormDB)

	authService := service.NewAuthService(userRepo, logger)
	todoService := service.NewTodoService(todoRepo, blobs, logger)

	sessions := auth.NewSessions(cfg.JWTSecret, time.Duration(cfg.SessionTTLHours)*time.Hour, cfg.CookieSecure)

	apiServer := server.NewServer(cfg, todoService, authService, sessions, dbService, logger)

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, dbService, logger, done)

	logger.WithField("addr", apiServer.Addr).Info("Starting server")
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("HTTP server ListenAndServe error")
	}

	<-done
	logger.Info("Graceful shutdown complete")
}
