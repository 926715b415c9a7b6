package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/ttbverify/labelverify/internal/http/handlers"
	httpMW "github.com/ttbverify/labelverify/internal/http/middleware"
	"github.com/ttbverify/labelverify/internal/pkg/logger"
)

type RouterConfig struct {
	VerifyHandler *httpH.VerifyHandler
	HealthHandler *httpH.HealthHandler
	Log           *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api/v1")
	{
		if cfg.VerifyHandler != nil {
			api.POST("/verify", cfg.VerifyHandler.Submit)
			api.GET("/verify/:job_id", cfg.VerifyHandler.GetStatus)
		}
	}

	return r
}
