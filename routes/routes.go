package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	handlers "resq/internal/handlers/shared"
	"resq/internal/middleware"
	"resq/internal/utils"
	"resq/pkg/logger"
	"resq/pkg/websocket"
)

type Handlers struct {
	Case      *handlers.CaseHandler
	SOS       *handlers.SOSHandler
	Location  *handlers.LocationHandler
	WebSocket *websocket.Handler
}

type Options struct {
	BridgeToken    string
	AllowedOrigins []string
	WebSocketPath  string
	Version        string
}

// NewRouter builds the local UI bridge.
func NewRouter(h Handlers, options Options, log *logger.Logger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware(options.AllowedOrigins))
	if log != nil {
		router.Use(middleware.LoggingMiddleware(log))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"app":     utils.AppName,
			"version": options.Version,
		})
	})

	if h.WebSocket != nil {
		path := options.WebSocketPath
		if path == "" {
			path = "/ws"
		}
		router.GET(path, middleware.BridgeTokenRequired(options.BridgeToken), h.WebSocket.HandleWebSocket)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.BridgeTokenRequired(options.BridgeToken))
	{
		SetupCaseRoutes(v1, h.Case)
		SetupSOSRoutes(v1, h.SOS)
		SetupLocationRoutes(v1, h.Location)
	}

	return router
}
