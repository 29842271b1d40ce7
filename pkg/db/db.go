package db

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"licensure-verifier/pkg/config"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/prometheus"
)

var Module = fx.Module("database",
	fx.Provide(
		Dialect,
		New,
	),
	fx.Invoke(
		RegisterConnectionPool,
		RegisterTelemetry,
	),
)

// DefaultSQLitePath is the embedded database used when no DATABASE_URL is set.
const DefaultSQLitePath = "/tmp/state_license.db"

// Dialect selects the gorm driver from the configured connection string.
// An empty value means the embedded SQLite file; a postgres or mysql DSN
// selects the external database. Unrecognized values are treated as SQLite
// file paths so a bare path keeps working.
func Dialect(cfg *config.Config) gorm.Dialector {
	dsn := strings.TrimSpace(cfg.Database.URL)
	switch {
	case dsn == "":
		return sqlite.Open(DefaultSQLitePath)
	case strings.HasPrefix(dsn, "sqlite://"):
		// sqlite:////abs/path style URLs keep one leading slash.
		path := strings.TrimPrefix(dsn, "sqlite://")
		for strings.HasPrefix(path, "//") {
			path = path[1:]
		}
		return sqlite.Open(path)
	case strings.HasPrefix(dsn, "postgres://"),
		strings.HasPrefix(dsn, "postgresql://"),
		strings.Contains(dsn, "host="):
		return postgres.Open(dsn)
	case strings.HasPrefix(dsn, "mysql://"):
		return mysql.Open(strings.TrimPrefix(dsn, "mysql://"))
	case strings.Contains(dsn, "@tcp("):
		return mysql.Open(dsn)
	default:
		return sqlite.Open(dsn)
	}
}

func New(cfg *config.Config, dialector gorm.Dialector) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	var logLevel logger.LogLevel
	var showSQL bool

	if cfg.AppEnv == "production" {
		logLevel = logger.Warn
		showSQL = false
	} else {
		logLevel = logger.Info
		showSQL = true
	}

	gormLogger := NewZapGormLogger(zap.L(), logLevel, showSQL)

	for i := 0; i < 5; i++ {
		db, err = gorm.Open(dialector, &gorm.Config{
			Logger: gormLogger,
		})
		if err == nil {
			break
		}
		zap.L().Warn("[DB] Database not ready, retrying in 3 seconds...", zap.Int("retry", i+1), zap.Error(err))
		time.Sleep(3 * time.Second)
	}

	if err != nil {
		zap.L().Error("[DB] Failed to connect to database", zap.Error(err))
		return nil, err
	}

	zap.L().Info("[DB] ✅ Database connection established", zap.String("dialect", db.Dialector.Name()))

	return db, nil
}

type connectionPoolParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	DB        *gorm.DB
	Config    *config.Config
}

// RegisterConnectionPool applies pool limits from the config and guarantees
// the pool is closed on shutdown.
func RegisterConnectionPool(p connectionPoolParams) error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		zap.L().Error("[DB] ❌ Failed to get sql.DB from gorm", zap.Error(err))
		return err
	}

	cp := p.Config.Database.ConnectionPool
	sqlDB.SetMaxIdleConns(cp.MaxIdleConn)
	sqlDB.SetMaxOpenConns(cp.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cp.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cp.ConnMaxIdleTime)

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			zap.L().Info("[DB] Closing connection pool...")
			return sqlDB.Close()
		},
	})

	return nil
}

// RegisterTelemetry attaches the otelgorm tracing plugin and the prometheus
// stats collector. Metrics land in the default registry and are served by
// the /metrics endpoint; no embedded exporter server is started.
func RegisterTelemetry(db *gorm.DB) error {
	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		zap.L().Error("[DB] ❌ Failed to register db telemetry", zap.Error(err))
		return err
	}

	if err := db.Use(prometheus.New(prometheus.Config{
		DBName:          dbNameFromDialector(db.Dialector),
		RefreshInterval: 15,
		StartServer:     false,
	})); err != nil {
		zap.L().Error("[DB] ❌ Failed to register db metrics", zap.Error(err))
		return err
	}

	return nil
}

func dbNameFromPostgresDSN(dsn string) string {
	if strings.Contains(dsn, "://") {
		if u, err := url.Parse(dsn); err == nil && u.Path != "" {
			return strings.TrimPrefix(u.Path, "/")
		}
		return "unknown"
	}
	for _, part := range strings.Fields(dsn) {
		if strings.HasPrefix(part, "dbname=") {
			return strings.TrimPrefix(part, "dbname=")
		}
	}
	return "unknown"
}

func dbNameFromMySQLDSN(dsn string) string {
	// user:pass@tcp(host:port)/dbname?params
	if idx := strings.LastIndex(dsn, "/"); idx >= 0 {
		name := dsn[idx+1:]
		if q := strings.Index(name, "?"); q >= 0 {
			name = name[:q]
		}
		if name != "" {
			return name
		}
	}
	return "unknown"
}

func dbNameFromDialector(dialector gorm.Dialector) string {
	switch d := dialector.(type) {
	case *postgres.Dialector:
		return dbNameFromPostgresDSN(d.Config.DSN)
	case *mysql.Dialector:
		return dbNameFromMySQLDSN(d.Config.DSN)
	case *sqlite.Dialector:
		return filepath.Base(d.DSN)
	default:
		return "unknown"
	}
}
