// Package server exposes the engine's admin HTTP surface.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/resellhub/notify-engine/internal/config"
	notificationdomain "github.com/resellhub/notify-engine/internal/notification/domain"
	"github.com/resellhub/notify-engine/internal/scheduler"
	"github.com/resellhub/notify-engine/internal/worker"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config) *gin.Engine {
	return NewEngine(cfg)
}

type Server struct {
	engine          *gin.Engine
	log             *zap.Logger
	notificationSvc notificationdomain.Service
	scheduler       *scheduler.Scheduler
	worker          *worker.Worker
}

type ServerParams struct {
	fx.In

	Engine          *gin.Engine
	Log             *zap.Logger
	NotificationSvc notificationdomain.Service
	Scheduler       *scheduler.Scheduler
	Worker          *worker.Worker
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:          p.Engine,
		log:             p.Log.Named("server"),
		notificationSvc: p.NotificationSvc,
		scheduler:       p.Scheduler,
		worker:          p.Worker,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	notifications := v1.Group("/notifications")
	notifications.POST("/schedule", s.scheduleNotifications)
	notifications.POST("/process", s.processNotifications)
	notifications.GET("", s.listNotifications)
	notifications.GET("/:id", s.getNotification)
	notifications.PATCH("/:id", s.updateNotification)
	notifications.POST("/:id/cancel", s.cancelNotification)
	notifications.POST("/:id/resume", s.resumeNotification)
	notifications.DELETE("/:id", s.deleteNotification)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
