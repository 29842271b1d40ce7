package verification

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"

	"licensure-verifier/services/verification/metrics"
)

var Module = fx.Module("verification.service",
	fx.Provide(
		metrics.New,
		NewService,
	),
	fx.Invoke(
		autoMigrate,
		registerRoutes,
		registerHealthServer,
	),
)

// autoMigrate creates the licenses table on startup. The schema has no
// further migrations; this is intentionally the only DDL path.
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&License{})
}

func registerRoutes(r *gin.Engine, service *Service) {
	r.POST("/run", service.HandleRun)
	r.GET("/licenses", service.HandleListLicenses)
}

func registerHealthServer(server *grpc.Server, service *Service) {
	grpc_health_v1.RegisterHealthServer(server, service)
}
