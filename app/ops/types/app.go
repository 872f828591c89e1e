package types

import (
	"context"
	"net/http"
	"time"

	metricsdb "github.com/socialpulse/pulsex/pkg/db/metrics"
	"github.com/socialpulse/pulsex/pkg/redis"
	"github.com/socialpulse/pulsex/pkg/temporal"
	"go.uber.org/zap"
)

type App struct {
	MetricsDB      *metricsdb.DB
	TemporalClient *temporal.Client
	RedisClient    *redis.Client
	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server
}

// Start starts the application.
func (a *App) Start(ctx context.Context) {
	go func() { _ = a.Server.ListenAndServe() }()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.MetricsDB.Close(); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}

	_ = a.Server.Shutdown(shutdownCtx)
	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}
