package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/jalvirtual/acars-dispatch/pkg/hoppie"
	"github.com/jalvirtual/acars-dispatch/pkg/response"
)

type networkStatusFetcher interface {
	NetworkStatus(ctx context.Context) (*hoppie.Status, error)
}

type NetworkHandler struct {
	fetcher networkStatusFetcher
}

func NewNetworkHandler(fetcher networkStatusFetcher) *NetworkHandler {
	return &NetworkHandler{fetcher: fetcher}
}

// GetNetworkStatus returns the Hoppie system status with current NOTAMs.
// @Summary Network status
// @Tags network
// @Produce json
// @Param x-acars-auth-key header string true "API key for the dispatch API"
// @Success 200 {object} response.SuccessResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Router /api/v1/network/status [get]
func (h *NetworkHandler) GetNetworkStatus(c echo.Context) error {
	status, err := h.fetcher.NetworkStatus(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}

	return response.Ok(c, status)
}
