package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse carries a machine readable Code next to the message so the
// dashboard can tell a network timeout from a rejected logon.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error"`
}

type PaginatedResponse struct {
	Success    bool  `json:"success"`
	Data       any   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalCount int64 `json:"totalCount"`
	TotalPages int   `json:"totalPages"`
}

const (
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeConflict     = "conflict"
	CodeInvalid      = "invalid"
	CodeUnavailable  = "unavailable"
	CodeInternal     = "internal"
)

func Ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Data:    data,
	})
}

func OkWithMessage(c echo.Context, message string, data any) error {
	return c.JSON(http.StatusOK, SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func Created(c echo.Context, message string, data any) error {
	return c.JSON(http.StatusCreated, SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func NoContent(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// Error writes a failure envelope with an explicit status and code.
func Error(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorResponse{
		Success: false,
		Code:    code,
		Error:   message,
	})
}

func BadRequest(c echo.Context, err error) error {
	return Error(c, http.StatusBadRequest, CodeBadRequest, err.Error())
}

func BadRequestWithMessage(c echo.Context, message string) error {
	return Error(c, http.StatusBadRequest, CodeBadRequest, message)
}

func Unauthorized(c echo.Context) error {
	return Error(c, http.StatusUnauthorized, CodeUnauthorized, "Invalid or missing API key")
}

func NotFound(c echo.Context, message string) error {
	return Error(c, http.StatusNotFound, CodeNotFound, message)
}

func Conflict(c echo.Context, err error) error {
	return Error(c, http.StatusConflict, CodeConflict, err.Error())
}

func UnprocessableEntity(c echo.Context, code string, err error) error {
	if code == "" {
		code = CodeInvalid
	}
	return Error(c, http.StatusUnprocessableEntity, code, err.Error())
}

// Upstream reports a failure of the ACARS network. code names the failure
// kind, e.g. "timeout" or "server_rejected".
func Upstream(c echo.Context, status int, code string, err error) error {
	return Error(c, status, code, err.Error())
}

func ServiceUnavailable(c echo.Context, err error) error {
	return Error(c, http.StatusServiceUnavailable, CodeUnavailable, err.Error())
}

func InternalServerError(c echo.Context, err error) error {
	return Error(c, http.StatusInternalServerError, CodeInternal, err.Error())
}

func Paginated(c echo.Context, data any, page, pageSize int, totalCount int64) error {
	totalPages := int(totalCount) / pageSize
	if int(totalCount)%pageSize > 0 {
		totalPages++
	}

	return c.JSON(http.StatusOK, PaginatedResponse{
		Success:    true,
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	})
}
