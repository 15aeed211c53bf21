package handler

import (
	"github.com/haraujo/libraryapi/config"
	"github.com/haraujo/libraryapi/internal/jsonlog"
	"github.com/haraujo/libraryapi/service"
)

// Handler defines the handler layer.
type Handler struct {
	config  config.Config
	logger  *jsonlog.Logger
	service service.Service
}

// New creates a new instance of Handler.
func New(cfg config.Config, logger *jsonlog.Logger, service service.Service) *Handler {
	return &Handler{
		config:  cfg,
		logger:  logger,
		service: service,
	}
}
