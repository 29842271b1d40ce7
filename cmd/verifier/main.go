package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"licensure-verifier/pkg/config"
	"licensure-verifier/pkg/db"
	"licensure-verifier/pkg/health"
	"licensure-verifier/pkg/httpapi"
	"licensure-verifier/pkg/logger"
	"licensure-verifier/pkg/otelcol"
	"licensure-verifier/pkg/server"
	"licensure-verifier/services/provider"
	"licensure-verifier/services/verification"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		otelcol.Module,
		health.Module,
		fx.Provide(
			provideSnowflakeNode,
		),
		httpapi.Module,
		provider.Module,
		verification.Module,
		server.ProvideGRPCServer,
		server.ProvideHTTPServer,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
