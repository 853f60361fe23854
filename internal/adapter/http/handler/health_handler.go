package handler

import (
	"context"
	"net/http"
	"time"

	. "todoitems/internal/adapter/http/helper"
	"todoitems/internal/core/model/response"
	"todoitems/pkg/config"
	. "todoitems/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db     Pinger
	Logger *config.LokiLogger
}

func NewHealthHandler(db Pinger, logger *config.LokiLogger) *HealthHandler {
	if logger == nil {
		logger = config.NewNopLokiLogger()
	}

	return &HealthHandler{db: db, Logger: logger}
}

// Health reports 503 when the database does not answer a ping in time.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := SpanWrapper(ctx, "handler.health.ping", nil, h.db.PingContext); err != nil {
		h.Logger.WarnWithTrace(ctx, "Database health check failed", zap.Error(err))

		SendSuccess(c, http.StatusServiceUnavailable, response.HealthResponse{Status: "unavailable", Database: "down"})
		return
	}

	SendSuccess(c, http.StatusOK, response.HealthResponse{Status: "ok", Database: "up"})
}
