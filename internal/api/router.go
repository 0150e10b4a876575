package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/victorivanov/huddle/internal/auth"
	"github.com/victorivanov/huddle/internal/gateway"
	"github.com/victorivanov/huddle/internal/redis"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all handler instances and middleware for route wiring.
type Dependencies struct {
	Messages *MessageHandler
	Standups *StandupHandler
	Gateway  *gateway.Manager

	TokenService *auth.TokenService
	Redis        *redis.Client
	Store        Pinger

	RateLimit int
}

// SetupRouter registers all API routes on the Echo instance.
func SetupRouter(e *echo.Echo, deps *Dependencies) {
	e.GET("/health", func(c echo.Context) error {
		return health(c, deps)
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// WebSocket gateway; authentication happens in IDENTIFY.
	e.GET("/gateway", deps.Gateway.HandleWebSocket)

	limit := deps.RateLimit
	if limit <= 0 {
		limit = 120
	}
	middleware := []echo.MiddlewareFunc{deps.TokenService.Middleware()}
	if deps.Redis != nil {
		middleware = append(middleware, RateLimitMiddleware(deps.Redis, limit, time.Minute))
	}
	v1 := e.Group("/api/v1", middleware...)

	// Messages
	v1.POST("/channels/:id/messages", deps.Messages.SendChannelMessage)
	v1.GET("/channels/:id/messages", deps.Messages.GetChannelMessages)
	v1.POST("/channels/:id/messages/later", deps.Messages.SendChannelMessageLater)
	v1.POST("/dms/:id/messages", deps.Messages.SendDMMessage)
	v1.GET("/dms/:id/messages", deps.Messages.GetDMMessages)
	v1.POST("/dms/:id/messages/later", deps.Messages.SendDMMessageLater)

	v1.PATCH("/messages/:message_id", deps.Messages.EditMessage)
	v1.DELETE("/messages/:message_id", deps.Messages.DeleteMessage)
	v1.PUT("/messages/:message_id/pin", deps.Messages.PinMessage)
	v1.DELETE("/messages/:message_id/pin", deps.Messages.UnpinMessage)
	v1.PUT("/messages/:message_id/reactions/:kind", deps.Messages.AddReaction)
	v1.DELETE("/messages/:message_id/reactions/:kind", deps.Messages.RemoveReaction)
	v1.POST("/messages/:message_id/share", deps.Messages.ShareMessage)

	// Standups
	v1.POST("/channels/:id/standup", deps.Standups.Start)
	v1.GET("/channels/:id/standup", deps.Standups.Active)
	v1.POST("/channels/:id/standup/messages", deps.Standups.Send)

	v1.GET("/notifications", deps.Messages.ListNotifications)
	v1.DELETE("/jobs/:job_id", deps.Messages.CancelJob)
}

func health(c echo.Context, deps *Dependencies) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if deps.Store != nil {
		if err := deps.Store.Ping(ctx); err != nil {
			status["status"], status["store"] = "degraded", err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	if deps.Redis != nil {
		if err := deps.Redis.Ping(ctx); err != nil {
			status["status"], status["redis"] = "degraded", err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	return c.JSON(code, status)
}
