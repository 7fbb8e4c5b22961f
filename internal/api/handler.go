package api

import (
	"log/slog"

	"github.com/shaiso/Fabrica/internal/service"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Service *service.Service
	Logger  *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		svc:    cfg.Service,
		logger: cfg.Logger,
	}
}
