package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	billservice "github.com/residify/residify/internal/bill/service"
	"github.com/residify/residify/internal/config"
	"github.com/residify/residify/internal/observability"
	obsmiddleware "github.com/residify/residify/internal/observability/logger"
	obsmetrics "github.com/residify/residify/internal/observability/metrics"
	paymentservice "github.com/residify/residify/internal/payment/service"
	paymentwebhook "github.com/residify/residify/internal/payment/webhook"
	"github.com/residify/residify/internal/ratelimit"
	transactionservice "github.com/residify/residify/internal/transaction/service"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func registerGin(obsCfg observability.Config, log *zap.Logger) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Log:   log,
		Debug: obsCfg.Debug(),
	}))
	r.Use(ErrorHandlingMiddleware())

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	paymentSvc *paymentservice.Service
	webhookSvc *paymentwebhook.Service
	ledger     *transactionservice.Service
	billSvc    *billservice.Service
	limiter    *ratelimit.PaymentCreateLimiter
	obsMetrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	PaymentSvc *paymentservice.Service
	WebhookSvc *paymentwebhook.Service
	Ledger     *transactionservice.Service
	BillSvc    *billservice.Service
	Limiter    *ratelimit.PaymentCreateLimiter `optional:"true"`
	ObsMetrics *obsmetrics.Metrics             `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		paymentSvc: p.PaymentSvc,
		webhookSvc: p.WebhookSvc,
		ledger:     p.Ledger,
		billSvc:    p.BillSvc,
		limiter:    p.Limiter,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Server) RegisterRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(s.metricsHandler()))
	s.engine.GET("/mock-payment", s.HandleMockPaymentPage)

	api := s.engine.Group("/api/v1")
	{
		api.POST("/payments", s.HandleCreatePayment)
		api.GET("/payments/:order_id", s.HandleGetPayment)
		api.GET("/payments/:order_id/logs", s.HandleListPaymentLogs)
		api.POST("/payments/:order_id/cancel", s.HandleCancelPayment)
		api.POST("/payments/:order_id/simulate", s.HandleSimulatePayment)
		api.POST("/payments/webhook/:provider", s.HandlePaymentWebhook)
		api.GET("/bills/:bill_id", s.HandleGetBill)
	}
}

func (s *Server) metricsHandler() http.Handler {
	if s.obsMetrics != nil {
		return promhttp.HandlerFor(s.obsMetrics.Registry(), promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}
