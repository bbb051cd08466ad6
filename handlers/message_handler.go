package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jalvirtual/acars-dispatch/internal/domain"
	"github.com/jalvirtual/acars-dispatch/internal/store"
	"github.com/jalvirtual/acars-dispatch/internal/templates"
	"github.com/jalvirtual/acars-dispatch/pkg/response"
	"github.com/jalvirtual/acars-dispatch/pkg/validator"
)

type acarsService interface {
	Send(ctx context.Context, req domain.OutboundRequest) (*domain.ACARSMessage, error)
	SendTemplate(ctx context.Context, templateID, to string, priority domain.Priority) (*domain.ACARSMessage, error)
	Refresh(ctx context.Context) (int, error)
}

type messageStore interface {
	List(filter store.ListFilter) []domain.ACARSMessage
	GroupByDay() []domain.DayGroup
	Stats() domain.Stats
	Get(id string) (domain.ACARSMessage, error)
	UpdateStatus(ctx context.Context, id string, status domain.MessageStatus) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

type MessageHandler struct {
	service acarsService
	store   messageStore
}

func NewMessageHandler(service acarsService, messages messageStore) *MessageHandler {
	return &MessageHandler{service: service, store: messages}
}

type SendMessageRequest struct {
	From     string             `json:"from" validate:"omitempty,callsign"`
	To       string             `json:"to" validate:"required,callsign"`
	Type     domain.MessageType `json:"type" validate:"omitempty,oneof=telex loadsheet report notification pdc"`
	Packet   string             `json:"packet" validate:"required,max=2000"`
	Priority domain.Priority    `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

type UpdateStatusRequest struct {
	Status domain.MessageStatus `json:"status" validate:"required,oneof=sent delivered failed pending accepted rejected"`
}

type SendTemplateRequest struct {
	To       string          `json:"to" validate:"required,callsign"`
	Priority domain.Priority `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

// GetMessages returns the log newest first, optionally filtered by status.
// @Summary List messages
// @Description Returns the message log newest first with an optional status filter
// @Tags messages
// @Accept json
// @Produce json
// @Param x-acars-auth-key header string true "API key for the dispatch API"
// @Param status query string false "Status filter"
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 50, max: 200)"
// @Success 200 {object} response.PaginatedResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /api/v1/messages [get]
func (h *MessageHandler) GetMessages(c echo.Context) error {
	page, pageSize, err := parsePaginationParams(c)
	if err != nil {
		return response.BadRequest(c, err)
	}

	filter := store.ListFilter{}
	if statusStr := c.QueryParam("status"); statusStr != "" {
		status := domain.MessageStatus(statusStr)
		if !status.Valid() {
			return response.BadRequestWithMessage(c, fmt.Sprintf("unknown status %q", statusStr))
		}
		filter.Status = status
	}

	messages := h.store.List(filter)
	total := len(messages)

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return response.Paginated(c, messages[start:end], page, pageSize, int64(total))
}

// GetMessagesByDay godoc
// @Summary Messages grouped by day
// @Description Returns the log grouped by local calendar day, newest day first
// @Tags messages
// @Produce json
// @Param x-acars-auth-key header string true "API key for the dispatch API"
// @Success 200 {object} response.SuccessResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /api/v1/messages/days [get]
func (h *MessageHandler) GetMessagesByDay(c echo.Context) error {
	return response.Ok(c, h.store.GroupByDay())
}

// GetStats godoc
// @Summary Message statistics
// @Description Returns the total count and counts by status
// @Tags messages
// @Produce json
// @Param x-acars-auth-key header string true "API key for the dispatch API"
// @Success 200 {object} response.SuccessResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /api/v1/messages/stats [get]
func (h *MessageHandler) GetStats(c echo.Context) error {
	return response.Ok(c, h.store.Stats())
}

// GetMessage godoc
// @Summary Get a message
// @Tags messages
// @Produce json
// @Param x-acars-auth-key header string true "API key for the dispatch API"
// @Param id path string true "Message ID"
// @Success 200 {object} response.SuccessResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/messages/{id} [get]
func (h *MessageHandler) GetMessage(c echo.Context) error {
	msg, err := h.store.Get(c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	return response.Ok(c, msg)
}

// SendMessage transmits a message and returns the recorded entry.
// @Summary Send a message
// @Description Transmits a message through the network and records it once acknowledged
// @Tags messages
// @Accept json
// @Produce json
// @Param x-acars-auth-key header string true "API key for the dispatch API"
// @Param request body SendMessageRequest true "Message to send"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Router /api/v1/messages [post]
func (h *MessageHandler) SendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	msg, err := h.service.Send(c.Request().Context(), domain.OutboundRequest{
		From:     req.From,
		To:       req.To,
		Type:     req.Type,
		Packet:   req.Packet,
		Priority: req.Priority,
	})
	if err != nil {
		return respondError(c, err)
	}

	return response.Created(c, "Message sent successfully", msg)
}

// RefreshMessages polls the mailbox now instead of waiting for the next tick.
// @Summary Poll the mailbox
// @Tags messages
// @Produce json
// @Param x-acars-auth-key header string true "API key for the dispatch API"
// @Success 200 {object} response.SuccessResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Router /api/v1/messages/refresh [post]
func (h *MessageHandler) RefreshMessages(c echo.Context) error {
	merged, err := h.service.Refresh(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}

	return response.Ok(c, map[string]any{
		"merged": merged,
	})
}

// UpdateStatus godoc
// @Summary Update message status
// @Tags messages
// @Accept json
// @Produce json
// @Param x-acars-auth-key header string true "API key for the dispatch API"
// @Param id path string true "Message ID"
// @Param request body UpdateStatusRequest true "New status"
// @Success 200 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/messages/{id}/status [patch]
func (h *MessageHandler) UpdateStatus(c echo.Context) error {
	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	id := c.Param("id")
	if err := h.store.UpdateStatus(c.Request().Context(), id, req.Status); err != nil {
		return respondError(c, err)
	}

	msg, err := h.store.Get(id)
	if err != nil {
		return respondError(c, err)
	}

	return response.OkWithMessage(c, "Status updated", msg)
}

// DeleteMessage godoc
// @Summary Delete a message
// @Tags messages
// @Param id path string true "Message ID"
// @Param x-acars-auth-key header string true "API key for the dispatch API"
// @Success 204
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/messages/{id} [delete]
func (h *MessageHandler) DeleteMessage(c echo.Context) error {
	if err := h.store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return respondError(c, err)
	}

	return response.NoContent(c)
}

// ClearMessages godoc
// @Summary Clear the message log
// @Tags messages
// @Param x-acars-auth-key header string true "API key for the dispatch API"
// @Success 204
// @Failure 401 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/v1/messages [delete]
func (h *MessageHandler) ClearMessages(c echo.Context) error {
	if err := h.store.Clear(c.Request().Context()); err != nil {
		return respondError(c, err)
	}

	return response.NoContent(c)
}

// GetTemplates godoc
// @Summary List templates
// @Description Returns the template catalog with an optional category filter
// @Tags templates
// @Produce json
// @Param x-acars-auth-key header string true "API key for the dispatch API"
// @Param category query string false "Category filter"
// @Success 200 {object} response.SuccessResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /api/v1/templates [get]
func (h *MessageHandler) GetTemplates(c echo.Context) error {
	if category := c.QueryParam("category"); category != "" {
		return response.Ok(c, templates.ByCategory(templates.Category(category)))
	}

	return response.Ok(c, templates.All())
}

// SendTemplate godoc
// @Summary Send a template
// @Tags templates
// @Accept json
// @Produce json
// @Param x-acars-auth-key header string true "API key for the dispatch API"
// @Param id path string true "Template ID"
// @Param request body SendTemplateRequest true "Recipient and priority"
// @Success 201 {object} response.SuccessResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Failure 502 {object} response.ErrorResponse
// @Router /api/v1/templates/{id}/send [post]
func (h *MessageHandler) SendTemplate(c echo.Context) error {
	var req SendTemplateRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return validator.HandleValidationError(c, err)
	}

	msg, err := h.service.SendTemplate(c.Request().Context(), c.Param("id"), req.To, req.Priority)
	if err != nil {
		return respondError(c, err)
	}

	return response.Created(c, "Template sent successfully", msg)
}

func parsePaginationParams(c echo.Context) (int, int, error) {
	const (
		defaultPage     = 1
		defaultPageSize = 50
		maxPageSize     = 200
	)

	pageStr := c.QueryParam("page")
	pageSizeStr := c.QueryParam("pageSize")

	page := defaultPage
	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			return 0, 0, fmt.Errorf("page must be a positive integer")
		}
		page = p
	}

	pageSize := defaultPageSize
	if pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil || ps <= 0 || ps > maxPageSize {
			return 0, 0, fmt.Errorf("pageSize must be between 1 and %d", maxPageSize)
		}

		pageSize = ps
	}

	return page, pageSize, nil
}
