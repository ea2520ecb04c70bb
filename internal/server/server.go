package server

import (
	"fmt"
	"net/http"
	"time"

	"todo-webapp/internal/auth"
	"todo-webapp/internal/config"
	"todo-webapp/internal/database"
	"todo-webapp/internal/service"

	"github.com/sirupsen/logrus"
)

type Server struct {
	todoService service.TodoService
	authService service.AuthService
	sessions    *auth.Sessions
	db          database.Service
	logger      logrus.FieldLogger

	// local blob directory served under storageBaseURL so cover URLs
	// resolve without a separate file server in front
	storageDir     string
	storageBaseURL string
}

func NewServer(cfg *config.Config, todoService service.TodoService, authService service.AuthService, sessions *auth.Sessions, dbService database.Service, logger logrus.FieldLogger) *http.Server {
	appServer := &Server{
		todoService:    todoService,
		authService:    authService,
		sessions:       sessions,
		db:             dbService,
		logger:         logger,
		storageDir:     cfg.StorageDir,
		storageBaseURL: cfg.StorageBaseURL,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      appServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
