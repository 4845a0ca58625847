// Package router wires the HTTP surface of the feed service.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/driftline/market-sandbox/internal/api/handler"
	"github.com/driftline/market-sandbox/internal/api/middleware"
	"github.com/driftline/market-sandbox/internal/signing"
	"github.com/driftline/market-sandbox/internal/stream"
	jwtpkg "github.com/driftline/market-sandbox/pkg/jwt"
	"github.com/driftline/market-sandbox/pkg/ratelimit"
)

// Config holds router dependencies.
type Config struct {
	Signer     *signing.Signer
	Registry   *stream.Registry
	JWTManager *jwtpkg.Manager
	Limits     *ratelimit.PerRoute
	Stream     stream.Options
	Logger     zerolog.Logger
}

// Setup builds the gin engine.
func Setup(cfg *Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLog(cfg.Logger))

	// CORS: the feed is consumed from browser pages on other origins
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization, Cache-Control, Last-Event-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	historyHandler := handler.NewHistoryHandler(cfg.Signer, cfg.Logger)
	streamHandler := handler.NewStreamHandler(cfg.Signer, cfg.Registry, cfg.Stream, cfg.Logger)
	authHandler := handler.NewAuthHandler(cfg.JWTManager)
	statsHandler := handler.NewStatsHandler(cfg.Registry)

	publicAPI := r.Group("/api/v1")
	{
		publicAPI.GET("/candles/history",
			middleware.RateLimit(cfg.Limits, "history"), historyHandler.Get)
		publicAPI.GET("/stream/live",
			middleware.RateLimit(cfg.Limits, "stream"), streamHandler.Live)
		publicAPI.GET("/stream/ws",
			middleware.RateLimit(cfg.Limits, "stream"), streamHandler.LiveWS)
		publicAPI.POST("/auth/token", authHandler.Token)
	}

	protectedAPI := r.Group("/api/v1")
	protectedAPI.Use(middleware.Auth(cfg.JWTManager))
	{
		protectedAPI.GET("/stream/stats", statsHandler.Get)
	}

	return r
}
