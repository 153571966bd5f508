package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentinal-safety/config"
	"sentinal-safety/internal/handler"
	"sentinal-safety/internal/metrics"
	"sentinal-safety/internal/middleware"
	"sentinal-safety/internal/ratelimit"
	"sentinal-safety/internal/services"
	"sentinal-safety/internal/transport/httpdto"
	"sentinal-safety/internal/websocket"
	"sentinal-safety/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Conversation *handler.ConversationHandler
	Message      *handler.MessageHandler
	Block        *handler.BlockHandler
	Report       *handler.ReportHandler
	Moderation   *handler.ModerationHandler
	WebSocket    *websocket.Handler
}

// Deps are the cross-cutting collaborators of the route table. Limiter,
// Gatherer and Health may be nil.
type Deps struct {
	Auth     *services.AuthService
	Limiter  ratelimit.Limiter
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Health   func(ctx context.Context) error
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery(l))

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// Engine exposes the router, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(h *Handlers, deps Deps) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if deps.Health != nil {
			if err := deps.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
				return
			}
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	if deps.Gatherer != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	if h.WebSocket != nil {
		s.engine.GET("/ws", h.WebSocket.Connect)
	}

	auth := middleware.AuthMiddleware(deps.Auth)
	messageLimit := middleware.RateLimitMiddleware(deps.Limiter, ratelimit.BucketMessages, deps.Metrics)
	reportLimit := middleware.RateLimitMiddleware(deps.Limiter, ratelimit.BucketReports, deps.Metrics)

	v1 := s.engine.Group("/v1", auth)
	{
		v1.POST("/conversations", messageLimit, h.Conversation.Open)
		v1.GET("/conversations", h.Conversation.List)
		v1.GET("/conversations/:id", h.Conversation.Get)
		v1.POST("/conversations/:id/mute", h.Conversation.Mute)
		v1.POST("/conversations/:id/unmute", h.Conversation.Unmute)
		v1.GET("/conversations/:id/messages", h.Message.List)
		v1.POST("/conversations/:id/messages", messageLimit, h.Message.Send)
		v1.DELETE("/messages/:id", h.Message.Retract)

		v1.POST("/blocks/:otherParty", h.Block.Block)
		v1.POST("/unblocks/:otherParty", h.Block.Unblock)
		v1.GET("/blocks", h.Block.List)

		v1.POST("/reports", reportLimit, h.Report.File)
		v1.POST("/reports/evidence-uploads", reportLimit, h.Report.CreateEvidenceUpload)

		v1.POST("/appeals/:entryId", h.Moderation.Appeal)
	}

	admin := v1.Group("/admin", middleware.AdminOnly())
	{
		admin.GET("/reports", h.Report.List)
		admin.GET("/reports/frequent", h.Report.Frequent)
		admin.GET("/reports/stats", h.Report.Stats)
		admin.GET("/reports/:id", h.Report.Get)
		admin.POST("/reports/:id/investigate", h.Report.Investigate)
		admin.POST("/reports/:id/resolve", h.Report.Resolve)
		admin.POST("/reports/:id/dismiss", h.Report.Dismiss)

		admin.POST("/messages/:id/hide", h.Moderation.HideMessage)
		admin.POST("/blocks", h.Block.AdminBlock)

		admin.POST("/users/:id/ban", h.Moderation.Ban)
		admin.POST("/users/:id/unban", h.Moderation.Unban)
		admin.POST("/users/:id/reconcile-strikes", h.Moderation.ReconcileStrikes)
		admin.GET("/users/:id/history", h.Moderation.History)

		admin.POST("/actions", h.Moderation.RecordAction)
		admin.POST("/appeals/:entryId/resolve", h.Moderation.ResolveAppeal)
		admin.GET("/dashboard/stats", h.Moderation.Dashboard)
	}
}

func (s *Server) Start() error {
	go func() {
		s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("Error in starting the server: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	s.logger.Infof("Server is running on :%s", s.config.AppPort)

	<-quit

	s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		return err
	}

	s.logger.Infof("Server stopped gracefully")

	return nil
}
