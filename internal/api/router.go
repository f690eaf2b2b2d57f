// Package api wires the HTTP surface of the retrieval service.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/cognidesk/idea-vault/internal/api/handler"
	"github.com/cognidesk/idea-vault/internal/api/middleware"
	"github.com/cognidesk/idea-vault/internal/config"
	"github.com/cognidesk/idea-vault/internal/logger"
)

// SetupRouter configures the Gin router with all routes.
func SetupRouter(
	retrieval handler.RetrievalAnswerer,
	log *logger.Logger,
	cfg *config.ServerConfig,
) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler()
	chatHandler := handler.NewChatHandler(retrieval)

	r.GET("/health", healthHandler.Health)

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/chat", chatHandler.Chat)
	}

	return r
}
