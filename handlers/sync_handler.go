package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/jalvirtual/acars-dispatch/environments"
	"github.com/jalvirtual/acars-dispatch/internal/domain"
	"github.com/jalvirtual/acars-dispatch/internal/scheduler"
	"github.com/jalvirtual/acars-dispatch/pkg/response"
	"github.com/jalvirtual/acars-dispatch/pkg/validator"
)

type syncLoop interface {
	Activate(ctx context.Context, creds domain.Credentials) error
	Deactivate()
	IsActive() bool
	GetStatus() scheduler.SyncStatus
}

type SyncHandler struct {
	sync   syncLoop
	ctx    context.Context
	config *environments.Config
}

// StartSyncRequest carries the logon from the auth collaborator. Missing
// fields fall back to the configured station and logon code.
type StartSyncRequest struct {
	Station   string `json:"station,omitempty" validate:"omitempty,callsign"`
	LogonCode string `json:"logonCode,omitempty" validate:"omitempty,max=64"`
}

func NewSyncHandler(loop syncLoop, ctx context.Context, cfg *environments.Config) *SyncHandler {
	return &SyncHandler{
		sync:   loop,
		ctx:    ctx,
		config: cfg,
	}
}

// StartSync godoc
// @Summary Start background sync
// @Description Starts the polling loop, or swaps credentials when it is already running
// @Tags sync
// @Accept json
// @Produce json
// @Param x-acars-auth-key header string true "API key for the dispatch API"
// @Param request body StartSyncRequest false "Station and logon code"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /api/v1/sync/start [post]
func (h *SyncHandler) StartSync(c echo.Context) error {
	var req StartSyncRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	creds := domain.Credentials{
		Station:   req.Station,
		LogonCode: req.LogonCode,
	}
	if creds.Station == "" {
		creds.Station = h.config.Hoppie.Station
	}
	if creds.LogonCode == "" {
		creds.LogonCode = h.config.Hoppie.LogonCode
	}

	wasActive := h.sync.IsActive()

	if err := h.sync.Activate(h.ctx, creds); err != nil {
		return respondError(c, err)
	}

	if wasActive {
		return response.OkWithMessage(c, "Sync credentials updated", h.sync.GetStatus())
	}
	return response.OkWithMessage(c, "Sync started successfully", h.sync.GetStatus())
}

// StopSync godoc
// @Summary Stop background sync
// @Tags sync
// @Produce json
// @Param x-acars-auth-key header string true "API key for the dispatch API"
// @Success 200 {object} response.SuccessResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /api/v1/sync/stop [post]
func (h *SyncHandler) StopSync(c echo.Context) error {
	if !h.sync.IsActive() {
		return response.OkWithMessage(c, "Sync is already stopped", h.sync.GetStatus())
	}

	h.sync.Deactivate()

	return response.OkWithMessage(c, "Sync stopped successfully", h.sync.GetStatus())
}

// GetSyncStatus godoc
// @Summary Sync status
// @Tags sync
// @Produce json
// @Param x-acars-auth-key header string true "API key for the dispatch API"
// @Success 200 {object} response.SuccessResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /api/v1/sync/status [get]
func (h *SyncHandler) GetSyncStatus(c echo.Context) error {
	return response.Ok(c, h.sync.GetStatus())
}
