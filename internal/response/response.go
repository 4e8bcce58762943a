package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIResponse is the success envelope.
type APIResponse struct {
	Data      any    `json:"data"`
	Status    int    `json:"status"`
	Message   string `json:"message,omitempty"`
	Path      string `json:"path"`
	RequestID string `json:"request_id,omitempty"`
}

// APIError is the error envelope.
type APIError struct {
	Message   string `json:"message"`
	Error     string `json:"error"`
	Path      string `json:"path"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

func pathFromContext(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	return c.Request().URL.Path
}

// requestID is set by the RequestID middleware on the response header.
func requestID(c echo.Context) string {
	if c == nil || c.Response() == nil {
		return ""
	}
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

// OK sends a 200 response with data.
func OK(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusOK, APIResponse{
		Data:      data,
		Status:    http.StatusOK,
		Message:   message,
		Path:      pathFromContext(c),
		RequestID: requestID(c),
	})
}

// Error sends an APIError. err may be nil; data carries partial results.
func Error(c echo.Context, status int, message string, err error, data any) error {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return c.JSON(status, APIError{
		Message:   message,
		Error:     detail,
		Path:      pathFromContext(c),
		Status:    status,
		RequestID: requestID(c),
		Data:      data,
	})
}

func BadRequest(c echo.Context, message string, err error) error {
	return Error(c, http.StatusBadRequest, message, err, nil)
}

func NotFound(c echo.Context, message string, err error) error {
	return Error(c, http.StatusNotFound, message, err, nil)
}

func InternalError(c echo.Context, message string, err error, data any) error {
	return Error(c, http.StatusInternalServerError, message, err, data)
}
