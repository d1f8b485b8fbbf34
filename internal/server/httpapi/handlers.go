package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/dmitrijs2005/shopkeeper/internal/server/models"
	"github.com/gin-gonic/gin"
)

const (
	userKey  = "user"
	tokenKey = "token"
)

type handlers struct {
	sessions Sessions
	logger   logging.Logger
}

// credentialsRequest lists the only body fields read by register and sign-in.
type credentialsRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func bindCredentials(c *gin.Context) (credentialsRequest, error) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, common.ErrorBadRequest
	}
	return req, nil
}

func (h *handlers) register(c *gin.Context) {
	req, err := bindCredentials(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	user, token, err := h.sessions.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header(common.AuthHeaderName, token)
	c.JSON(http.StatusCreated, user)
}

func (h *handlers) signIn(c *gin.Context) {
	req, err := bindCredentials(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	user, token, err := h.sessions.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header(common.AuthHeaderName, token)
	c.JSON(http.StatusOK, user)
}

func (h *handlers) signOut(c *gin.Context) {
	user := c.MustGet(userKey).(*models.User)

	if err := h.sessions.SignOut(c.Request.Context(), user, c.GetString(tokenKey)); err != nil {
		_ = c.Error(err)
		return
	}

	c.Status(http.StatusOK)
}

func (h *handlers) me(c *gin.Context) {
	user := c.MustGet(userKey).(*models.User)
	c.JSON(http.StatusOK, user.Public())
}
