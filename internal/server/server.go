// Package server wires the gin router and owns the HTTP listener.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tm-acme-shop/clubhouse-orders-service/internal/config"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/handlers"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/metrics"
	"github.com/tm-acme-shop/clubhouse-orders-service/internal/middleware"
)

const limiterCleanupInterval = time.Minute

type Server struct {
	config  *config.Config
	router  *gin.Engine
	http    *http.Server
	limiter *middleware.RateLimiter
	logger  *zap.Logger
	done    chan struct{}
}

// NewServer builds the router. gatherer backs /metrics.
func NewServer(cfg *config.Config, h *handlers.Handlers, gatherer prometheus.Gatherer, m *metrics.Metrics, logger *zap.Logger) *Server {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger, m))

	s := &Server{
		config:  cfg,
		router:  router,
		limiter: limiter,
		logger:  logger,
		done:    make(chan struct{}),
		http: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	s.setupRoutes(h, gatherer)

	return s
}

func (s *Server) setupRoutes(h *handlers.Handlers, gatherer prometheus.Gatherer) {
	s.router.GET("/health", h.Health)
	s.router.GET("/ready", h.Ready)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1", s.limiter.Handler())
	{
		v1.POST("/checkout/preview", h.PreviewCheckout)
		v1.POST("/orders", h.CreateOrder)
		v1.GET("/orders/:id", h.GetOrder)
		v1.GET("/orders/:id/history", h.GetOrderHistory)
	}

	admin := v1.Group("/admin", middleware.RequireAdmin(s.config.Auth.JWTSecret, s.config.Auth.AdminRole))
	{
		admin.GET("/orders", h.ListOrders)
		admin.PATCH("/orders/:id/status", h.UpdateOrderStatus)
		admin.POST("/orders/:id/cancel", h.CancelOrder)
		admin.PUT("/orders/:id/driver", h.AssignDriver)
		admin.POST("/orders/:id/pos-sync", h.RequeuePOSSync)
		admin.GET("/finances", h.GetFinances)
		admin.GET("/delivery-config", h.GetDeliveryConfig)
		admin.PUT("/delivery-config", h.UpdateDeliveryConfig)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until Shutdown is called. It returns http.ErrServerClosed
// after a clean shutdown.
func (s *Server) Start() error {
	go s.cleanupVisitors()

	s.logger.Info("server listening", zap.String("addr", s.http.Addr))
	return s.http.ListenAndServe()
}

func (s *Server) cleanupVisitors() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.limiter.Cleanup()
		}
	}
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.done)
	return s.http.Shutdown(ctx)
}
