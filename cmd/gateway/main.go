package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"teamfit-platform/internal/httpapi"
	"teamfit-platform/internal/server"
	"teamfit-platform/pkg/ai"
	"teamfit-platform/pkg/config"
	"teamfit-platform/pkg/db"
	"teamfit-platform/pkg/health"
	"teamfit-platform/pkg/logger"
	"teamfit-platform/pkg/redis"
	"teamfit-platform/pkg/task"
	"teamfit-platform/services/activity"
	"teamfit-platform/services/job"
	"teamfit-platform/services/organization"
	"teamfit-platform/services/quota"
	"teamfit-platform/services/trust"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		health.Module,
		ai.Module,
		fx.Provide(
			provideSnowflakeNode,
		),
		organization.Module,
		quota.Module,
		trust.Module,
		activity.Module,
		job.Module,
		httpapi.Module,
		server.Module,
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
