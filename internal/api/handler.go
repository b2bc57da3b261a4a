package api

import (
	"log/slog"

	"github.com/shaiso/attendance-bridge/internal/controller"
	"github.com/shaiso/attendance-bridge/internal/oplog"
	"github.com/shaiso/attendance-bridge/internal/repo"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	manager        *controller.Manager
	controllerRepo *repo.ControllerRepo
	logRepo        *repo.LogRepo
	oplog          *oplog.Service
	logger         *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Manager        *controller.Manager
	ControllerRepo *repo.ControllerRepo
	LogRepo        *repo.LogRepo
	Oplog          *oplog.Service
	Logger         *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		manager:        cfg.Manager,
		controllerRepo: cfg.ControllerRepo,
		logRepo:        cfg.LogRepo,
		oplog:          cfg.Oplog,
		logger:         cfg.Logger,
	}
}
