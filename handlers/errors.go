package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jalvirtual/acars-dispatch/internal/service"
	"github.com/jalvirtual/acars-dispatch/internal/store"
	"github.com/jalvirtual/acars-dispatch/internal/templates"
	"github.com/jalvirtual/acars-dispatch/pkg/hoppie"
	"github.com/jalvirtual/acars-dispatch/pkg/response"
)

var upstreamStatus = map[hoppie.ErrorKind]int{
	hoppie.KindMissingCredential: http.StatusUnprocessableEntity,
	hoppie.KindTimeout:           http.StatusGatewayTimeout,
	hoppie.KindUnreachable:       http.StatusBadGateway,
	hoppie.KindServerRejected:    http.StatusBadGateway,
	hoppie.KindRejected:          http.StatusBadGateway,
	hoppie.KindMalformed:         http.StatusBadGateway,
}

// kindCode turns "server rejected" into "server_rejected".
func kindCode(k hoppie.ErrorKind) string {
	return strings.ReplaceAll(k.String(), " ", "_")
}

// respondError maps domain and network errors onto HTTP statuses.
func respondError(c echo.Context, err error) error {
	if kind, ok := hoppie.KindOf(err); ok {
		if status, known := upstreamStatus[kind]; known {
			return response.Upstream(c, status, kindCode(kind), err)
		}
	}

	switch {
	case errors.Is(err, hoppie.ErrInvalidStation):
		return response.UnprocessableEntity(c, "invalid_station", err)

	case errors.Is(err, service.ErrInvalidType):
		return response.UnprocessableEntity(c, "invalid_type", err)

	case errors.Is(err, service.ErrInvalidPriority):
		return response.UnprocessableEntity(c, "invalid_priority", err)

	case errors.Is(err, store.ErrMessageNotFound),
		errors.Is(err, templates.ErrTemplateNotFound):
		return response.NotFound(c, err.Error())

	case errors.Is(err, store.ErrIllegalTransition),
		errors.Is(err, service.ErrRefreshInFlight):
		return response.Conflict(c, err)

	case errors.Is(err, store.ErrStoreDisposed):
		return response.ServiceUnavailable(c, err)
	}

	return response.InternalServerError(c, err)
}
