package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/shopkeeper/internal/common"
	"github.com/dmitrijs2005/shopkeeper/internal/logging"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// GinMode returns the gin mode matching an application environment.
func GinMode(env string) string {
	switch env {
	case logging.EnvProduction:
		return gin.ReleaseMode
	case logging.EnvTest:
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

// NewRouter wires middleware and routes. Request logging is off in the test
// environment.
func NewRouter(logger logging.Logger, sessions Sessions, env string) *gin.Engine {
	h := &handlers{sessions: sessions, logger: logger}

	r := gin.New()
	r.Use(gin.CustomRecovery(h.recovered))

	if env != logging.EnvTest {
		r.Use(requestLogger(logger))
	}

	// Browsers may call the API from any origin and read the token header.
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete}
	corsConfig.AllowHeaders = []string{"Origin", "X-Requested-With", "Content-Type", "Accept", "Authorization", common.AuthHeaderName}
	corsConfig.ExposeHeaders = []string{common.AuthHeaderName}
	r.Use(cors.New(corsConfig))

	r.Use(h.renderErrors)

	users := r.Group("/users")
	{
		users.POST("", h.register)
		users.POST("/signin", h.signIn)
		users.DELETE("/signout", h.authenticate, h.signOut)
		users.GET("/me", h.authenticate, h.me)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, newErrorBody("Not found", nil))
	})

	return r
}
