// Package web serves the status HTTP endpoints for the running agent.
package web

import (
	"net/http"

	gmw "github.com/Laisky/gin-middlewares/v7"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"

	"github.com/nocturnelabs/researchbot/internal/agent"
	"github.com/nocturnelabs/researchbot/library/log"
)

// StatsProvider exposes the controller's status snapshot.
type StatsProvider interface {
	Stats() agent.Stats
}

// NewServer builds the gin engine with the health and status routes.
func NewServer(provider StatsProvider) *gin.Engine {
	if !gconfig.Shared.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	server := gin.New()
	server.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLogger(log.Logger.Named("gin")),
		),
	)

	server.Any("/health", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "hello, world")
	})
	server.GET("/status", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, provider.Stats())
	})

	return server
}

// RunServer blocks serving the status endpoints on addr.
func RunServer(addr string, provider StatsProvider) {
	server := NewServer(provider)
	log.Logger.Info("listening on http", zap.String("addr", addr))
	if err := server.Run(addr); err != nil {
		log.Logger.Error("status server exit", zap.Error(err))
	}
}
