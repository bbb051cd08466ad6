package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jalvirtual/acars-dispatch/environments"
	"github.com/jalvirtual/acars-dispatch/handlers"
	"github.com/jalvirtual/acars-dispatch/internal/middlewares"
)

type Handlers struct {
	Health  *handlers.HealthHandler
	Message *handlers.MessageHandler
	Sync    *handlers.SyncHandler
	Network *handlers.NetworkHandler
}

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(e *echo.Echo, h Handlers, cfg *environments.Config) {
	e.GET("/health", h.Health.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1", middlewares.APIKeyAuth(cfg.Auth.APIKey))

	messages := v1.Group("/messages")

	messages.GET("", h.Message.GetMessages)
	messages.POST("", h.Message.SendMessage)
	messages.DELETE("", h.Message.ClearMessages)
	messages.GET("/days", h.Message.GetMessagesByDay)
	messages.GET("/stats", h.Message.GetStats)
	messages.POST("/refresh", h.Message.RefreshMessages)
	messages.GET("/:id", h.Message.GetMessage)
	messages.PATCH("/:id/status", h.Message.UpdateStatus)
	messages.DELETE("/:id", h.Message.DeleteMessage)

	templates := v1.Group("/templates")

	templates.GET("", h.Message.GetTemplates)
	templates.POST("/:id/send", h.Message.SendTemplate)

	syncGroup := v1.Group("/sync")

	syncGroup.POST("/start", h.Sync.StartSync)
	syncGroup.POST("/stop", h.Sync.StopSync)
	syncGroup.GET("/status", h.Sync.GetSyncStatus)

	v1.GET("/network/status", h.Network.GetNetworkStatus)
}
