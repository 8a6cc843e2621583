package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pslima001/govy-function-current-sub002/config"
	"github.com/pslima001/govy-function-current-sub002/handler"
	"github.com/pslima001/govy-function-current-sub002/middleware"
	"github.com/pslima001/govy-function-current-sub002/pkg/logger"
	"github.com/pslima001/govy-function-current-sub002/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	rules, err := config.LoadRules(cfg.Extraction.RulesPath)
	if err != nil {
		slog.Error("failed to load extraction rules", "path", cfg.Extraction.RulesPath, "error", err)
		os.Exit(1)
	}

	// Initialize services
	minioSvc, err := service.NewMinioService(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize MINIO service", "error", err)
		os.Exit(1)
	}

	// Ensure bucket exists
	if err := minioSvc.EnsureBucket(context.Background()); err != nil {
		slog.Error("failed to ensure MINIO bucket", "error", err)
		os.Exit(1)
	}

	mineruSvc := service.NewMineruService(&cfg.Mineru)

	extraction, err := service.NewExtraction(rules, cfg.Extraction, service.DefaultSources(minioSvc), minioSvc)
	if err != nil {
		slog.Error("failed to compile extraction rules", "error", err)
		os.Exit(1)
	}
	slog.Info("extraction rules compiled", "parameters", strings.Join(extraction.Parameters(), ","))

	service.InitEditalStore(&cfg.Store)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(cfg)
	editalHandler := handler.NewEditalHandler(minioSvc, mineruSvc)
	callbackHandler := handler.NewCallbackHandler(editalHandler, cfg.Mineru.UID, cfg.Mineru.Seed)
	extractHandler := handler.NewExtractHandler(extraction)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware())
	router.Use(noCacheMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public routes, limited per client IP
	api := router.Group("/api")
	public := api.Group("/")
	public.Use(middleware.RateLimit(30, time.Minute))
	{
		public.POST("/auth/login", authHandler.Login)
		public.POST("/mineru/callback", callbackHandler.HandleCallback)
	}

	// Protected routes, limited per tenant
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	protected.Use(middleware.RateLimit(100, time.Minute))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.GET("/parameters", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"parameters": extraction.Parameters()})
		})
		protected.POST("/editais/upload", editalHandler.Upload)
		protected.GET("/editais", editalHandler.List)
		protected.GET("/editais/:id", editalHandler.Get)
		protected.GET("/editais/:id/status", editalHandler.GetStatus)
		protected.DELETE("/editais/:id", editalHandler.Delete)
		protected.POST("/extract", extractHandler.Extract)
		protected.POST("/extract/items", extractHandler.ExtractItems)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// noCacheMiddleware keeps extraction results out of shared caches
func noCacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
		}
		c.Next()
	}
}
