package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jalvirtual/acars-dispatch/internal/scheduler"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

// writeTracker is implemented by backends that record when the log was
// last written.
type writeTracker interface {
	UpdatedAt(ctx context.Context) (time.Time, error)
}

type syncStatusReader interface {
	GetStatus() scheduler.SyncStatus
}

// HealthHandler handles health checks.
type HealthHandler struct {
	storage      pinger
	storageName  string
	sync         syncStatusReader
	checkTimeout time.Duration
}

func NewHealthHandler(storage pinger, storageName string, sync syncStatusReader) *HealthHandler {
	return &HealthHandler{
		storage:      storage,
		storageName:  storageName,
		sync:         sync,
		checkTimeout: 2 * time.Second,
	}
}

// Health returns overall status with storage connectivity and sync state.
// A failing mailbox poll only degrades the service.
// @Summary Health check
// @Description Returns overall status with storage connectivity and sync state
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.checkTimeout)
	defer cancel()

	overallStatus := "ok"

	storageComponent := map[string]any{
		"driver": h.storageName,
		"status": "up",
	}
	if h.storage == nil {
		storageComponent["status"] = "disabled"
	} else if err := h.storage.PingContext(ctx); err != nil {
		storageComponent["status"] = "down"
		overallStatus = "down"
	} else if tracker, ok := h.storage.(writeTracker); ok {
		if at, err := tracker.UpdatedAt(ctx); err == nil && !at.IsZero() {
			storageComponent["lastWriteAt"] = at
		}
	}

	syncComponent := map[string]any{"status": "unknown"}
	if h.sync != nil {
		st := h.sync.GetStatus()
		syncComponent = map[string]any{
			"status":              st.State,
			"consecutiveFailures": st.ConsecutiveFailures,
			"lastSuccessAt":       st.LastSuccessAt,
		}
		if st.ConsecutiveFailures > 0 && overallStatus == "ok" {
			overallStatus = "degraded"
		}
	}

	code := http.StatusOK
	if overallStatus == "down" {
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().Format(time.RFC3339),
		"components": map[string]any{
			"storage": storageComponent,
			"sync":    syncComponent,
		},
	})
}
