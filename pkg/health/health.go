package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("health",
	fx.Provide(ProvideHealth),
)

// Dependency is the readiness report for a single backing service.
type Dependency struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type Health struct {
	Status       string       `json:"status"`
	Dependencies []Dependency `json:"dependencies"`
}

type HealthService interface {
	Liveness(c *gin.Context)
	Readiness(c *gin.Context)
}

type HealthParams struct {
	fx.In

	DB *gorm.DB
}

type health struct {
	db *gorm.DB
}

func ProvideHealth(p HealthParams) HealthService {
	return &health{
		db: p.DB,
	}
}

// Liveness reports process health only. It must stay constant while the
// process is up, so it never touches the database.
func (h *health) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *health) Readiness(c *gin.Context) {
	report := Health{Status: "ok"}
	code := http.StatusOK

	dep := Dependency{Name: "database", Status: "healthy"}
	if err := h.pingDatabase(c); err != nil {
		dep.Status = "unhealthy"
		dep.Message = err.Error()
		report.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	report.Dependencies = append(report.Dependencies, dep)

	c.JSON(code, report)
}

func (h *health) pingDatabase(c *gin.Context) error {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}
