package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/gin-gonic/gin"
)

type errorPayload struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorBody struct {
	Error errorPayload `json:"error"`
}

func newErrorBody(message string, fields map[string]string) errorBody {
	return errorBody{Error: errorPayload{Message: message, Fields: fields}}
}

// authenticate resolves the X-Auth token and stores the caller in the
// context. Rejected tokens end the request with an empty 401.
func (h *handlers) authenticate(c *gin.Context) {
	token := c.GetHeader(common.AuthHeaderName)

	user, err := h.sessions.ResolveFromToken(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, common.ErrInvalidToken) || errors.Is(err, common.ErrorUnauthorized) {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		_ = c.Error(err)
		c.Abort()
		return
	}

	c.Set(userKey, user)
	c.Set(tokenKey, token)
	c.Next()
}

// renderErrors turns the last handler error into a JSON response.
func (h *handlers) renderErrors(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}

	err := c.Errors.Last().Err
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
	}

	c.JSON(status, body)
}

func (h *handlers) recovered(c *gin.Context, recovered any) {
	h.logger.Error(c.Request.Context(), "panic while serving request",
		"method", c.Request.Method, "path", c.Request.URL.Path, "panic", recovered)
	c.AbortWithStatusJSON(http.StatusInternalServerError, newErrorBody("Something went wrong.", nil))
}

func errorResponse(err error) (int, errorBody) {
	var verr *common.ValidationError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, newErrorBody(common.ErrorValidation.Error(), verr.Fields)
	case errors.Is(err, common.ErrorDuplicateEmail):
		return http.StatusConflict, newErrorBody(common.ErrorDuplicateEmail.Error(), nil)
	case errors.Is(err, common.ErrorBadRequest):
		return http.StatusBadRequest, newErrorBody(common.ErrorBadRequest.Error(), nil)
	case errors.Is(err, common.ErrorAuthenticationFailed):
		return http.StatusUnauthorized, newErrorBody(common.ErrorAuthenticationFailed.Error(), nil)
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, newErrorBody(common.ErrorUnauthorized.Error(), nil)
	default:
		return http.StatusInternalServerError, newErrorBody("Something went wrong.", nil)
	}
}

func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
