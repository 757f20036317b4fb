package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kilomet/kilomet/internal/config"
	obslogger "github.com/kilomet/kilomet/internal/observability/logger"
	obsmetrics "github.com/kilomet/kilomet/internal/observability/metrics"
	pricingdomain "github.com/kilomet/kilomet/internal/pricing/domain"
	processingdomain "github.com/kilomet/kilomet/internal/processing/domain"
	uploaddomain "github.com/kilomet/kilomet/internal/upload/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewEngine(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	uploadSvc     uploaddomain.Service
	processingSvc processingdomain.Service
	pricingSvc    pricingdomain.Service
}

type Params struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Log           *zap.Logger
	UploadSvc     uploaddomain.Service
	ProcessingSvc processingdomain.Service
	PricingSvc    pricingdomain.Service
}

func NewServer(p Params) *Server {
	return &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("server"),
		uploadSvc:     p.UploadSvc,
		processingSvc: p.ProcessingSvc,
		pricingSvc:    p.PricingSvc,
	}
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api/v1")

	uploads := api.Group("/uploads")
	uploads.POST("/:id/process", s.StartProcessing)
	uploads.GET("/:id/status", s.GetUploadStatus)
	uploads.PUT("/:id/pricing", s.ApplyPricing)
	uploads.GET("/:id/pricing", s.GetPricingConfig)
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
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
