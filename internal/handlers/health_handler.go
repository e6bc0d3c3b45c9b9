package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Toggle is any optional integration that may be switched off.
type Toggle interface {
	Enabled() bool
}

type HealthHandler struct {
	db       Pinger
	firebase Toggle
	mail     Toggle
}

func NewHealthHandler(db Pinger, firebase, mail Toggle) *HealthHandler {
	return &HealthHandler{db: db, firebase: firebase, mail: mail}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status, dbStatus := "ok", "ok"
	if err := h.db.Ping(ctx); err != nil {
		slog.Warn("health check: database unreachable", "error", err)
		status, dbStatus = "degraded", "unhealthy"
	}

	return c.JSON(dto.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		Firebase:  enabledString(h.firebase),
		Mail:      enabledString(h.mail),
	})
}

func enabledString(t Toggle) string {
	if t != nil && t.Enabled() {
		return "enabled"
	}
	return "disabled"
}
