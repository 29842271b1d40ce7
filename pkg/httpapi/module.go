package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"licensure-verifier/pkg/config"
	"licensure-verifier/pkg/health"
	"licensure-verifier/pkg/middleware"
)

var Module = fx.Module("httpapi",
	fx.Provide(ProvideRouter),
	fx.Invoke(
		RegisterHealthEndpoint,
		RegisterMetricsEndpoint,
	),
)

func ProvideRouter(cfg *config.Config) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestLog(),
		gin.Recovery(),
		middleware.Error(),
	)

	return r
}

func RegisterHealthEndpoint(r *gin.Engine, h health.HealthService) {
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
}

func RegisterMetricsEndpoint(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
